package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioFeaturesExtractor_NoSamples(t *testing.T) {
	e := NewAudioFeaturesExtractor()
	result, err := e.Extract(context.Background(), PassageContext{})
	require.NoError(t, err)
	assert.Nil(t, result.Flavor)
}

func TestAudioFeaturesExtractor_Silence(t *testing.T) {
	samples := make([]float32, 1000)
	e := NewAudioFeaturesExtractor()
	result, err := e.Extract(context.Background(), PassageContext{Samples: samples, SampleRate: 44100})
	require.NoError(t, err)
	require.NotNil(t, result.Flavor)
	assert.InDelta(t, 0.0, result.Flavor.Characteristics["energy"], 0.001)
	assert.InDelta(t, 0.0, result.Flavor.Characteristics["zero_crossing_rate"], 0.001)
}

func TestAudioFeaturesExtractor_Square(t *testing.T) {
	samples := make([]float32, 100)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1.0
		} else {
			samples[i] = -1.0
		}
	}
	e := NewAudioFeaturesExtractor()
	result, err := e.Extract(context.Background(), PassageContext{Samples: samples, SampleRate: 100})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Flavor.Characteristics["energy"], 0.001)
	assert.Greater(t, result.Flavor.Characteristics["zero_crossing_rate"], 0.0)
}

func TestRMSEnergy(t *testing.T) {
	samples := []float32{1, -1, 1, -1}
	assert.InDelta(t, 1.0, rmsEnergy(samples), 0.001)
}

func TestZeroCrossingRate_TooFewSamples(t *testing.T) {
	assert.Equal(t, 0.0, zeroCrossingRate([]float32{0.5}, 44100))
}
