package fusion

import (
	"log/slog"
	"sort"

	"github.com/mangocats/wkmp/internal/logging"
)

var flavorLog = logging.ForService("fusion.flavor")

// defaultExpectedCharacteristics is the AcousticBrainz high-level feature
// count used as the denominator for FlavorSynthesizer's completeness score.
const defaultExpectedCharacteristics = 13

// FlavorSynthesizer performs confidence-weighted averaging of musical
// flavor characteristics (danceability, energy, valence, ...) across
// multiple extraction sources.
type FlavorSynthesizer struct {
	// ExpectedCharacteristics is the denominator for the completeness
	// score (default 13, AcousticBrainz's high-level feature count).
	ExpectedCharacteristics int
}

// NewFlavorSynthesizer returns a synthesizer with the default expected
// characteristic count.
func NewFlavorSynthesizer() *FlavorSynthesizer {
	return &FlavorSynthesizer{ExpectedCharacteristics: defaultExpectedCharacteristics}
}

// Synthesize unions the characteristic names present across inputs and, for
// each, computes Σ(v_i·c_i) / Σ(c_i) with per-characteristic confidence
// equal to the mean of contributing confidences. Completeness is the
// fraction of ExpectedCharacteristics that resolved.
func (s *FlavorSynthesizer) Synthesize(extractions []FlavorExtraction) FusedFlavor {
	expected := s.ExpectedCharacteristics
	if expected <= 0 {
		expected = defaultExpectedCharacteristics
	}

	if len(extractions) == 0 {
		return FusedFlavor{
			Characteristics: map[string]float64{},
			ConfidenceMap:   map[string]float64{},
		}
	}

	names := make(map[string]struct{})
	for _, e := range extractions {
		for name := range e.Characteristics {
			names[name] = struct{}{}
		}
	}

	characteristics := make(map[string]float64, len(names))
	confidenceMap := make(map[string]float64, len(names))
	for name := range names {
		value, confidence, ok := fuseCharacteristic(name, extractions)
		if ok {
			characteristics[name] = value
			confidenceMap[name] = confidence
		}
	}

	blend := sourceBlend(extractions)
	completeness := float64(len(characteristics)) / float64(expected)
	if completeness > 1.0 {
		completeness = 1.0
	}

	flavorLog.Debug("flavor synthesis complete",
		slog.Int("characteristic_count", len(characteristics)),
		slog.Float64("completeness", completeness))

	return FusedFlavor{
		Characteristics: characteristics,
		ConfidenceMap:   confidenceMap,
		SourceBlend:     blend,
		Completeness:    completeness,
	}
}

func fuseCharacteristic(name string, extractions []FlavorExtraction) (value, confidence float64, ok bool) {
	var weightedSum, confidenceSum float64
	count := 0
	for _, e := range extractions {
		v, present := e.Characteristics[name]
		if !present {
			continue
		}
		weightedSum += v * e.Confidence
		confidenceSum += e.Confidence
		count++
	}
	if count == 0 {
		return 0, 0, false
	}
	if confidenceSum > 0 {
		value = weightedSum / confidenceSum
	}
	confidence = confidenceSum / float64(count)
	return value, confidence, true
}

func sourceBlend(extractions []FlavorExtraction) []SourceWeight {
	weights := make(map[string]float64)
	for _, e := range extractions {
		weights[e.Source] += float64(len(e.Characteristics)) * e.Confidence
	}

	var total float64
	for _, w := range weights {
		total += w
	}

	blend := make([]SourceWeight, 0, len(weights))
	for source, w := range weights {
		if total > 0 {
			w /= total
		}
		blend = append(blend, SourceWeight{Source: source, Weight: w})
	}

	sort.Slice(blend, func(i, j int) bool { return blend[i].Weight > blend[j].Weight })
	return blend
}
