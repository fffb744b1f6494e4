package fusion

import (
	"sort"

	"log/slog"

	"github.com/mangocats/wkmp/internal/logging"
)

var identityLog = logging.ForService("fusion.identity")

// IdentityResolver performs Bayesian fusion of recording MBID candidates
// from multiple extractors, resolving conflicts when sources disagree.
type IdentityResolver struct {
	// MinConfidence is the floor below which a candidate is dropped before
	// grouping (default 0.3).
	MinConfidence float64
}

// NewIdentityResolver returns a resolver with the default 0.3 minimum
// confidence.
func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{MinConfidence: 0.3}
}

type mbidGroup struct {
	mbid      string
	posterior float64
	sources   []string
}

// Resolve groups candidates by MBID and computes each group's posterior
// probability via Bayesian update: for a group of confidences {c_i},
// posterior = c_1 if |group| = 1, else 1 - Π(1 - c_i). The highest-posterior
// MBID wins; any other group with posterior >= 0.5 is reported as a
// conflict.
func (r *IdentityResolver) Resolve(candidates []IdentityExtraction) FusedIdentity {
	if len(candidates) == 0 {
		return FusedIdentity{}
	}

	minConfidence := r.MinConfidence
	if minConfidence == 0 {
		minConfidence = 0.3
	}

	valid := make([]IdentityExtraction, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence >= minConfidence {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		identityLog.Debug("no identity candidates above minimum confidence", slog.Float64("min_confidence", minConfidence))
		return FusedIdentity{}
	}

	byMBID := make(map[string][]IdentityExtraction)
	for _, c := range valid {
		byMBID[c.RecordingMBID] = append(byMBID[c.RecordingMBID], c)
	}

	groups := make([]mbidGroup, 0, len(byMBID))
	for mbid, sources := range byMBID {
		groups = append(groups, mbidGroup{
			mbid:      mbid,
			posterior: posterior(sources),
			sources:   sourceNames(sources),
		})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].posterior > groups[j].posterior })

	best := groups[0]
	var conflicts []string
	for _, g := range groups[1:] {
		if g.posterior >= 0.5 {
			conflicts = append(conflicts, g.mbid)
		}
	}

	identityLog.Debug("identity fusion complete",
		slog.String("mbid", best.mbid),
		slog.Float64("posterior", best.posterior),
		slog.Int("conflicts", len(conflicts)))

	return FusedIdentity{
		RecordingMBID:        best.mbid,
		Confidence:           best.posterior,
		PosteriorProbability: best.posterior,
		Conflicts:            conflicts,
	}
}

func posterior(sources []IdentityExtraction) float64 {
	if len(sources) == 1 {
		return sources[0].Confidence
	}
	product := 1.0
	for _, s := range sources {
		product *= 1.0 - s.Confidence
	}
	return 1.0 - product
}

func sourceNames(sources []IdentityExtraction) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Source
	}
	return names
}
