package extractors

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"

	"github.com/mangocats/wkmp/internal/fusion"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

// essentiaConfidence is lower than AcousticBrainz's: a local analysis run
// with default profile settings rather than AcousticBrainz's curated,
// community-reviewed extraction.
const essentiaConfidence = 0.7

var essentiaLog = logging.ForService("extractors.essentia")

// essentiaOutput mirrors the subset of essentia_streaming_extractor_music's
// JSON output WKMP draws from, matching AcousticBrainz's own field
// selection so both sources fuse into the same flavor characteristics.
type essentiaOutput struct {
	Tonal *struct {
		KeyKey      string  `json:"key_key"`
		KeyScale    string  `json:"key_scale"`
		KeyStrength float64 `json:"key_strength"`
	} `json:"tonal"`
	Rhythm *struct {
		BPM          float64 `json:"bpm"`
		Danceability float64 `json:"danceability"`
	} `json:"rhythm"`
	LowLevel *struct {
		SpectralCentroid  *meanStat `json:"spectral_centroid"`
		SpectralEnergy    *meanStat `json:"spectral_energy"`
		Dissonance        *meanStat `json:"dissonance"`
		DynamicComplexity float64   `json:"dynamic_complexity"`
	} `json:"lowlevel"`
}

// EssentiaExtractor shells out to essentia_streaming_extractor_music, the
// local fallback flavor source for recordings AcousticBrainz has never
// seen. There is no pure-Go Essentia port, so this mirrors the original
// system's own CLI-invocation design rather than reimplementing the
// underlying signal analysis.
type EssentiaExtractor struct {
	// BinaryPath overrides the PATH lookup, for tests.
	BinaryPath string
}

// NewEssentiaExtractor returns an extractor using the binary from PATH.
func NewEssentiaExtractor() *EssentiaExtractor {
	return &EssentiaExtractor{BinaryPath: "essentia_streaming_extractor_music"}
}

func (e *EssentiaExtractor) Name() string { return "Essentia" }

// Extract runs the extractor against the passage's audio file, writing its
// JSON profile output to a temp file and reading it back. A missing binary
// is treated as a skip, not an error — Essentia is an optional enrichment.
func (e *EssentiaExtractor) Extract(ctx context.Context, passage PassageContext) (Result, error) {
	bin := e.BinaryPath
	if bin == "" {
		bin = "essentia_streaming_extractor_music"
	}

	out, err := os.CreateTemp("", "wkmp-essentia-*.json")
	if err != nil {
		return Result{}, wkmperrors.New(err).Component("extractors").Category(wkmperrors.CategoryLocalData).Build()
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, bin, passage.FilePath, outPath)
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.Error); ok {
			essentiaLog.Warn("essentia binary not found, skipping flavor analysis", "error", err)
			return Result{}, nil
		}
		essentiaLog.Warn("essentia analysis failed", "file", passage.FilePath, "error", err)
		return Result{}, nil
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return Result{}, wkmperrors.New(err).Component("extractors").Category(wkmperrors.CategoryLocalData).Build()
	}

	var output essentiaOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return Result{}, wkmperrors.New(err).Component("extractors").Category(wkmperrors.CategoryLocalData).Build()
	}

	return Result{
		Flavor: &fusion.FlavorExtraction{
			Characteristics: essentiaCharacteristics(output),
			Confidence:      essentiaConfidence,
			Source:          "Essentia",
		},
	}, nil
}

func essentiaCharacteristics(o essentiaOutput) map[string]float64 {
	characteristics := make(map[string]float64)
	if o.Rhythm != nil {
		if o.Rhythm.BPM > 0 {
			characteristics["bpm"] = o.Rhythm.BPM
		}
		characteristics["danceability"] = o.Rhythm.Danceability
	}
	if o.Tonal != nil {
		characteristics["key_strength"] = o.Tonal.KeyStrength
	}
	if o.LowLevel != nil {
		if o.LowLevel.SpectralCentroid != nil {
			characteristics["spectral_centroid"] = o.LowLevel.SpectralCentroid.Mean
		}
		if o.LowLevel.SpectralEnergy != nil {
			characteristics["energy"] = o.LowLevel.SpectralEnergy.Mean
		}
		if o.LowLevel.Dissonance != nil {
			characteristics["dissonance"] = o.LowLevel.Dissonance.Mean
		}
		characteristics["dynamic_complexity"] = o.LowLevel.DynamicComplexity
	}
	return characteristics
}
