package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangocats/wkmp/internal/ticks"
)

func TestWithThresholdDBRejectsPositive(t *testing.T) {
	_, err := New(WithThresholdDB(10))
	require.Error(t, err)
}

func TestWithMinDurationRejectsNegative(t *testing.T) {
	_, err := New(WithMinDuration(-1))
	require.Error(t, err)
}

func TestDetectSilenceFindsMiddleGap(t *testing.T) {
	const sampleRate = 44100
	d, err := New(WithSampleRate(sampleRate))
	require.NoError(t, err)

	samples := make([]float32, 0, 22*sampleRate)
	appendConstant := func(v float32, seconds int) {
		for i := 0; i < seconds*sampleRate; i++ {
			samples = append(samples, v)
		}
	}
	appendConstant(0.5, 10)
	appendConstant(0.0001, 2)
	appendConstant(0.5, 10)

	regions := d.DetectSilence(samples, sampleRate)
	require.Len(t, regions, 1)

	startSec := regions[0].Start.Seconds()
	endSec := regions[0].End.Seconds()
	assert.InDelta(t, 10.0, startSec, 1.0)
	assert.InDelta(t, 12.0, endSec, 1.0)
}

func TestDetectSilenceFiltersBelowMinimumDuration(t *testing.T) {
	const sampleRate = 44100
	d, err := New(WithSampleRate(sampleRate), WithMinDuration(ticks.FromSeconds(0.5)))
	require.NoError(t, err)

	samples := make([]float32, 0)
	appendConstant := func(v float32, seconds float64) {
		n := int(seconds * sampleRate)
		for i := 0; i < n; i++ {
			samples = append(samples, v)
		}
	}
	appendConstant(0.5, 10)
	appendConstant(0.0001, 0.2) // too short, filtered out
	appendConstant(0.5, 10)
	appendConstant(0.0001, 1.0) // long enough, detected
	appendConstant(0.5, 5)

	regions := d.DetectSilence(samples, sampleRate)
	assert.Len(t, regions, 1)
}

func TestDetectSilenceEmptyInput(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	assert.Nil(t, d.DetectSilence(nil, 44100))
	assert.Nil(t, d.DetectSilence([]float32{1, 2, 3}, 0))
}

func TestSegmentWithNoSilenceProducesWholeFilePassage(t *testing.T) {
	d, err := New()
	require.NoError(t, err)

	boundaries := d.Segment(nil, ticks.FromSeconds(180))
	require.Len(t, boundaries, 1)
	assert.Equal(t, ticks.Tick(0), boundaries[0].Start)
	assert.Equal(t, ticks.FromSeconds(180), boundaries[0].End)
}

func TestSegmentSplitsAroundSilenceRegions(t *testing.T) {
	d, err := New()
	require.NoError(t, err)

	fileDuration := ticks.FromSeconds(30)
	regions := []Region{
		{Start: ticks.FromSeconds(10), End: ticks.FromSeconds(12)},
	}

	boundaries := d.Segment(regions, fileDuration)
	require.Len(t, boundaries, 2)
	assert.Equal(t, ticks.Tick(0), boundaries[0].Start)
	assert.Equal(t, ticks.FromSeconds(10), boundaries[0].End)
	assert.Equal(t, ticks.FromSeconds(12), boundaries[1].Start)
	assert.Equal(t, fileDuration, boundaries[1].End)
}

func TestSegmentIgnoresLeadingAndTrailingSilence(t *testing.T) {
	d, err := New()
	require.NoError(t, err)

	fileDuration := ticks.FromSeconds(30)
	regions := []Region{
		{Start: ticks.FromSeconds(0), End: ticks.FromSeconds(1)},
		{Start: ticks.FromSeconds(29), End: ticks.FromSeconds(30)},
	}

	boundaries := d.Segment(regions, fileDuration)
	require.Len(t, boundaries, 1)
	assert.Equal(t, ticks.FromSeconds(1), boundaries[0].Start)
	assert.Equal(t, ticks.FromSeconds(29), boundaries[0].End)
}

func TestRegionDuration(t *testing.T) {
	r := Region{Start: ticks.FromSeconds(1), End: ticks.FromSeconds(3)}
	assert.Equal(t, ticks.FromSeconds(2), r.Duration())
}
