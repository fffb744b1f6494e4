package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityResolverEmptyInput(t *testing.T) {
	r := NewIdentityResolver()
	fused := r.Resolve(nil)
	assert.Empty(t, fused.RecordingMBID)
	assert.Zero(t, fused.Confidence)
}

func TestIdentityResolverSingleSourceUsesBaseConfidence(t *testing.T) {
	r := NewIdentityResolver()
	fused := r.Resolve([]IdentityExtraction{
		{RecordingMBID: "mbid-123", Confidence: 0.9, Source: "AcoustID"},
	})
	assert.Equal(t, "mbid-123", fused.RecordingMBID)
	assert.InDelta(t, 0.9, fused.Confidence, 1e-9)
}

func TestIdentityResolverAgreementBoostsPosterior(t *testing.T) {
	r := NewIdentityResolver()
	fused := r.Resolve([]IdentityExtraction{
		{RecordingMBID: "mbid-123", Confidence: 0.9, Source: "AcoustID"},
		{RecordingMBID: "mbid-123", Confidence: 0.6, Source: "ID3"},
	})
	assert.Equal(t, "mbid-123", fused.RecordingMBID)
	// posterior = 1 - (1-0.9)*(1-0.6) = 1 - 0.04 = 0.96
	assert.InDelta(t, 0.96, fused.Confidence, 1e-9)
	assert.Empty(t, fused.Conflicts)
}

func TestIdentityResolverReportsSignificantConflicts(t *testing.T) {
	r := NewIdentityResolver()
	fused := r.Resolve([]IdentityExtraction{
		{RecordingMBID: "mbid-a", Confidence: 0.9, Source: "AcoustID"},
		{RecordingMBID: "mbid-b", Confidence: 0.6, Source: "ID3"},
	})
	assert.Equal(t, "mbid-a", fused.RecordingMBID)
	assert.Equal(t, []string{"mbid-b"}, fused.Conflicts)
}

func TestIdentityResolverDropsCandidatesBelowMinConfidence(t *testing.T) {
	r := &IdentityResolver{MinConfidence: 0.5}
	fused := r.Resolve([]IdentityExtraction{
		{RecordingMBID: "mbid-weak", Confidence: 0.2, Source: "Heuristic"},
	})
	assert.Empty(t, fused.RecordingMBID)
}

func TestIdentityResolverIgnoresLowConfidenceConflict(t *testing.T) {
	r := NewIdentityResolver()
	fused := r.Resolve([]IdentityExtraction{
		{RecordingMBID: "mbid-a", Confidence: 0.9, Source: "AcoustID"},
		{RecordingMBID: "mbid-c", Confidence: 0.35, Source: "Guess"},
	})
	assert.Equal(t, "mbid-a", fused.RecordingMBID)
	assert.Empty(t, fused.Conflicts)
}
