// Package validators implements §4.10 Phase 8: CompletenessScorer, which
// turns a passage's fused identity/metadata/flavor data into a Pass/Warning/
// Fail verdict.
package validators

import (
	"log/slog"

	"github.com/mangocats/wkmp/internal/fusion"
	"github.com/mangocats/wkmp/internal/logging"
)

var scorerLog = logging.ForService("validators.completeness")

// Status is a CompletenessScorer verdict.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusWarning Status = "WARNING"
	StatusFail    Status = "FAIL"
)

// Result is the output of scoring one fused passage.
type Result struct {
	Status  Status
	Score   float64
	Issues  []string
}

// CompletenessScorer computes a weighted-mix completeness score across the
// metadata (0.4), identity (0.3), and flavor (0.3) dimensions.
type CompletenessScorer struct {
	PassThreshold         float64
	WarningThreshold      float64
	MinFlavorCompleteness float64
}

// NewCompletenessScorer returns a scorer with the default thresholds: pass
// at 0.75, warning at 0.5, minimum flavor completeness 0.3.
func NewCompletenessScorer() *CompletenessScorer {
	return &CompletenessScorer{
		PassThreshold:         0.75,
		WarningThreshold:      0.5,
		MinFlavorCompleteness: 0.3,
	}
}

// Score assesses a fused passage's data completeness across all three
// dimensions and produces a verdict.
func (s *CompletenessScorer) Score(identity fusion.FusedIdentity, metadata fusion.FusedMetadata, flavor fusion.FusedFlavor) Result {
	metadataScore, issues := s.scoreMetadata(metadata)
	identityScore, identityIssues := s.scoreIdentity(identity)
	issues = append(issues, identityIssues...)
	flavorScore, flavorIssues := s.scoreFlavor(flavor)
	issues = append(issues, flavorIssues...)

	overall := metadataScore*0.4 + identityScore*0.3 + flavorScore*0.3

	var status Status
	switch {
	case overall >= s.PassThreshold:
		status = StatusPass
	case overall >= s.WarningThreshold:
		status = StatusWarning
	default:
		status = StatusFail
	}

	scorerLog.Debug("completeness scoring complete",
		slog.String("status", string(status)),
		slog.Float64("overall", overall),
		slog.Float64("metadata", metadataScore),
		slog.Float64("identity", identityScore),
		slog.Float64("flavor", flavorScore))

	return Result{Status: status, Score: overall, Issues: issues}
}

// scoreMetadata: title and artist are critical (0.5 each); album and MBID
// are bonuses (0.1 each), capped at 1.0.
func (s *CompletenessScorer) scoreMetadata(metadata fusion.FusedMetadata) (float64, []string) {
	var score float64
	var issues []string

	if metadata.Title != nil {
		score += 0.5
	} else {
		issues = append(issues, "missing metadata: title (critical)")
	}
	if metadata.Artist != nil {
		score += 0.5
	} else {
		issues = append(issues, "missing metadata: artist (critical)")
	}
	if metadata.Album != nil {
		score += 0.1
	}
	if metadata.RecordingMBID != nil {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, issues
}

// scoreIdentity: no MBID scores 0; otherwise a step function on posterior
// confidence (>=0.8 -> 1.0, >=0.5 -> 0.85, else 0.7).
func (s *CompletenessScorer) scoreIdentity(identity fusion.FusedIdentity) (float64, []string) {
	if identity.RecordingMBID == "" {
		return 0.0, []string{"missing recording MBID (identity incomplete)"}
	}
	switch {
	case identity.Confidence >= 0.8:
		return 1.0, nil
	case identity.Confidence >= 0.5:
		return 0.85, nil
	default:
		return 0.7, nil
	}
}

// scoreFlavor uses flavor.Completeness directly, flagging passages below
// the configured minimum.
func (s *CompletenessScorer) scoreFlavor(flavor fusion.FusedFlavor) (float64, []string) {
	score := flavor.Completeness
	if score < s.MinFlavorCompleteness {
		return score, []string{"insufficient flavor characteristics"}
	}
	return score, nil
}
