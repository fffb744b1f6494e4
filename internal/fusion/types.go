// Package fusion implements §4.10 Phase 7: the three fusers that turn a
// passage's raw per-source extractions into a single fused identity,
// metadata record, and flavor vector.
package fusion

// ConfidenceValue pairs an extracted value with the confidence its source
// assigned it and the source's name, used for field-wise provenance
// tracking in MetadataFuser output.
type ConfidenceValue struct {
	Value      string
	Confidence float64
	Source     string
}

// IdentityExtraction is one source's MBID candidate for a passage.
type IdentityExtraction struct {
	RecordingMBID string
	Confidence    float64
	Source        string
}

// MetadataExtraction is one source's metadata fields for a passage. Fields
// left nil were not provided by this source.
type MetadataExtraction struct {
	Title         *ConfidenceValue
	Artist        *ConfidenceValue
	Album         *ConfidenceValue
	RecordingMBID *ConfidenceValue
	Additional    map[string]ConfidenceValue
}

// FlavorExtraction is one source's musical-characteristic vector for a
// passage (e.g. Essentia's danceability/energy/valence outputs).
type FlavorExtraction struct {
	Characteristics map[string]float64
	Confidence      float64
	Source          string
}

// FusedIdentity is IdentityResolver's output.
type FusedIdentity struct {
	RecordingMBID       string // empty if unresolved
	Confidence          float64
	PosteriorProbability float64
	Conflicts           []string
}

// FusedMetadata is MetadataFuser's output.
type FusedMetadata struct {
	Title        *ConfidenceValue
	Artist       *ConfidenceValue
	Album        *ConfidenceValue
	RecordingMBID *ConfidenceValue
	Additional   map[string]ConfidenceValue

	Completeness float64 // present / 4 core fields
}

// SourceWeight is one source's normalized contribution to a FusedFlavor.
type SourceWeight struct {
	Source string
	Weight float64
}

// FusedFlavor is FlavorSynthesizer's output.
type FusedFlavor struct {
	Characteristics map[string]float64
	ConfidenceMap   map[string]float64
	SourceBlend     []SourceWeight
	Completeness    float64
}
