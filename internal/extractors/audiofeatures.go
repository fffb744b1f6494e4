package extractors

import (
	"context"
	"math"

	"github.com/mangocats/wkmp/internal/fusion"
	"github.com/mangocats/wkmp/internal/logging"
)

// audioFeaturesConfidence is the lowest of the flavor sources: these are
// coarse signal statistics computed in-process, not a trained analyzer's
// output, and only ever fill in what AcousticBrainz and Essentia missed.
const audioFeaturesConfidence = 0.3

var audioFeaturesLog = logging.ForService("extractors.audiofeatures")

// AudioFeaturesExtractor derives a handful of low-level flavor
// characteristics directly from decoded samples, with no external
// dependency or network access. It always succeeds given decoded audio,
// making it the guaranteed-present flavor source when nothing else
// resolves.
type AudioFeaturesExtractor struct{}

// NewAudioFeaturesExtractor returns an AudioFeaturesExtractor.
func NewAudioFeaturesExtractor() *AudioFeaturesExtractor { return &AudioFeaturesExtractor{} }

func (e *AudioFeaturesExtractor) Name() string { return "AudioFeatures" }

// Extract computes RMS energy and zero-crossing rate from the passage's
// samples. Returns an empty result, not an error, when no samples are
// available (e.g. a metadata-only pass).
func (e *AudioFeaturesExtractor) Extract(_ context.Context, passage PassageContext) (Result, error) {
	if len(passage.Samples) == 0 {
		audioFeaturesLog.Debug("no samples available for audio feature extraction", "passage_id", passage.PassageID)
		return Result{}, nil
	}

	energy := rmsEnergy(passage.Samples)
	zcr := zeroCrossingRate(passage.Samples, passage.SampleRate)

	return Result{
		Flavor: &fusion.FlavorExtraction{
			Characteristics: map[string]float64{
				"energy":            energy,
				"zero_crossing_rate": zcr,
			},
			Confidence: audioFeaturesConfidence,
			Source:     "AudioFeatures",
		},
	}, nil
}

func rmsEnergy(samples []float32) float64 {
	var sumSquares float64
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

// zeroCrossingRate counts sign changes per second, a coarse proxy for
// noisiness/timbral brightness used when no spectral analyzer ran.
func zeroCrossingRate(samples []float32, sampleRate int) float64 {
	if len(samples) < 2 || sampleRate <= 0 {
		return 0
	}
	var crossings int
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	durationSeconds := float64(len(samples)) / float64(sampleRate)
	if durationSeconds <= 0 {
		return 0
	}
	return float64(crossings) / durationSeconds
}
