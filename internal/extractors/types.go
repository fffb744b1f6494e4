// Package extractors implements §4.10 Phases 3/5/6: the pluggable Source
// objects that each yield confidence-scored metadata, identity candidates,
// or musical-flavor characteristics for a passage. Every extractor is
// independent and best-effort: a source that cannot contribute for a given
// passage returns a zero-value result, not an error, unless the failure is
// itself the operation's outcome (network unreachable, tool missing).
package extractors

import (
	"context"

	"github.com/mangocats/wkmp/internal/fusion"
)

// PassageContext is the input every extractor receives: the decoded
// passage's location on disk plus the samples already in memory from
// Phase 4's segmentation pass, so sample-domain extractors (audio-derived
// features) don't re-decode the file.
type PassageContext struct {
	PassageID  int64
	FilePath   string
	Samples    []float32 // mono mixdown, as produced by the segmenter
	SampleRate int
	Duration   float64 // seconds
}

// Result is one extractor's contribution for a passage. Any of the three
// fields may be absent (zero value) when the extractor doesn't produce
// that kind of data or found nothing for this passage.
type Result struct {
	Metadata *fusion.MetadataExtraction
	Identity *fusion.IdentityExtraction
	Flavor   *fusion.FlavorExtraction
}

// Source is implemented by every metadata/identity/flavor extractor.
type Source interface {
	Name() string
	Extract(ctx context.Context, passage PassageContext) (Result, error)
}
