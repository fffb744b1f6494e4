package extractors

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/mangocats/wkmp/internal/fusion"
	"github.com/mangocats/wkmp/internal/httpclient"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

const (
	acoustIDBaseURL    = "https://api.acoustid.org/v2/lookup"
	acoustIDRateLimit  = 334 * time.Millisecond // ~3 req/s, AcoustID's documented limit
	acoustIDConfidence = 0.85
)

var acoustIDLog = logging.ForService("extractors.acoustid")

// AcoustIDClient resolves a Chromaprint fingerprint to MusicBrainz
// recording candidates. Skipped entirely (Phase 5/6) when no API key is
// configured.
type AcoustIDClient struct {
	http    *httpclient.Client
	limiter *rateLimiter
	apiKey  string
	// BaseURL overrides acoustIDBaseURL, for tests.
	BaseURL string
}

// NewAcoustIDClient builds a client for the given API key.
func NewAcoustIDClient(apiKey string) *AcoustIDClient {
	cfg := httpclient.FromSettings(15000, 5000, "WKMP/1.0 ( https://github.com/mangocats/wkmp )")
	return &AcoustIDClient{
		http:    httpclient.New(&cfg),
		limiter: newRateLimiter(acoustIDRateLimit),
		apiKey:  apiKey,
		BaseURL: acoustIDBaseURL,
	}
}

// Candidate is one AcoustID-resolved MusicBrainz recording match.
type Candidate struct {
	RecordingMBID string
	Score         float64
}

// Lookup queries AcoustID with a Chromaprint fingerprint and passage
// duration, returning MBID candidates ordered by descending score.
func (c *AcoustIDClient) Lookup(ctx context.Context, fingerprint string, durationSeconds int) ([]Candidate, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{
		"client":      {c.apiKey},
		"meta":        {"recordings recordingids"},
		"duration":    {strconv.Itoa(durationSeconds)},
		"fingerprint": {fingerprint},
	}

	acoustIDLog.Debug("querying acoustid", "duration_seconds", durationSeconds)

	resp, err := c.http.Post(ctx, c.BaseURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, wkmperrors.New(err).Component("extractors").
			Category(wkmperrors.CategoryTransientExternal).Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, wkmperrors.Newf("acoustid: invalid API key").Category(wkmperrors.CategoryInput).Build()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, wkmperrors.Newf("acoustid API error %d: %s", resp.StatusCode, string(body)).
			Category(wkmperrors.CategoryTransientExternal).Build()
	}

	doc, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, wkmperrors.New(err).Component("extractors").Category(wkmperrors.CategoryLocalData).Build()
	}

	results, err := doc.GetObjectArray("results")
	if err != nil || len(results) == 0 {
		return nil, nil
	}

	var candidates []Candidate
	for _, result := range results {
		score, _ := result.GetFloat64("score")
		recordings, err := result.GetObjectArray("recordings")
		if err != nil {
			continue
		}
		for _, rec := range recordings {
			mbid, err := rec.GetString("id")
			if err != nil || mbid == "" {
				continue
			}
			candidates = append(candidates, Candidate{RecordingMBID: mbid, Score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	return candidates, nil
}

// ToIdentityExtractions converts AcoustID candidates into identity
// fusion inputs, scaling AcoustID's match score by this source's base
// confidence.
func ToIdentityExtractions(candidates []Candidate) []fusion.IdentityExtraction {
	extractions := make([]fusion.IdentityExtraction, 0, len(candidates))
	for _, c := range candidates {
		extractions = append(extractions, fusion.IdentityExtraction{
			RecordingMBID: c.RecordingMBID,
			Confidence:    c.Score * acoustIDConfidence,
			Source:        "AcoustID",
		})
	}
	return extractions
}
