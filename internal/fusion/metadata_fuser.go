package fusion

import (
	"log/slog"

	"github.com/mangocats/wkmp/internal/logging"
)

var metadataLog = logging.ForService("fusion.metadata")

// MetadataFuser performs field-wise fusion of metadata extracted from
// multiple sources: each field (title, artist, album, MBID, plus arbitrary
// extras) is resolved independently by taking the highest-confidence value
// and recording its source.
type MetadataFuser struct{}

// NewMetadataFuser returns a MetadataFuser.
func NewMetadataFuser() *MetadataFuser {
	return &MetadataFuser{}
}

// Fuse resolves each field to its highest-confidence value across sources.
// Completeness is the fraction of the four core fields (title, artist,
// album, MBID) that resolved to a value.
func (f *MetadataFuser) Fuse(extractions []MetadataExtraction) FusedMetadata {
	if len(extractions) == 0 {
		return FusedMetadata{Additional: map[string]ConfidenceValue{}}
	}

	title := bestOf(extractionField(extractions, func(m MetadataExtraction) *ConfidenceValue { return m.Title }))
	artist := bestOf(extractionField(extractions, func(m MetadataExtraction) *ConfidenceValue { return m.Artist }))
	album := bestOf(extractionField(extractions, func(m MetadataExtraction) *ConfidenceValue { return m.Album }))
	mbid := bestOf(extractionField(extractions, func(m MetadataExtraction) *ConfidenceValue { return m.RecordingMBID }))

	additional := make(map[string]ConfidenceValue)
	keys := make(map[string]struct{})
	for _, m := range extractions {
		for k := range m.Additional {
			keys[k] = struct{}{}
		}
	}
	for k := range keys {
		var candidates []ConfidenceValue
		for _, m := range extractions {
			if v, ok := m.Additional[k]; ok {
				candidates = append(candidates, v)
			}
		}
		if best := bestOfValues(candidates); best != nil {
			additional[k] = *best
		}
	}

	present := 0
	for _, v := range []*ConfidenceValue{title, artist, album, mbid} {
		if v != nil {
			present++
		}
	}

	metadataLog.Debug("metadata fusion complete",
		slog.Int("present_fields", present),
		slog.Int("additional_fields", len(additional)))

	return FusedMetadata{
		Title:         title,
		Artist:        artist,
		Album:         album,
		RecordingMBID: mbid,
		Additional:    additional,
		Completeness:  float64(present) / 4.0,
	}
}

func extractionField(extractions []MetadataExtraction, get func(MetadataExtraction) *ConfidenceValue) []ConfidenceValue {
	var values []ConfidenceValue
	for _, m := range extractions {
		if v := get(m); v != nil {
			values = append(values, *v)
		}
	}
	return values
}

func bestOf(values []ConfidenceValue) *ConfidenceValue {
	return bestOfValues(values)
}

func bestOfValues(values []ConfidenceValue) *ConfidenceValue {
	if len(values) == 0 {
		return nil
	}
	best := values[0]
	for _, v := range values[1:] {
		if v.Confidence > best.Confidence {
			best = v
		}
	}
	return &best
}
