package extractors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/mangocats/wkmp/internal/httpclient"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

const (
	musicBrainzBaseURL        = "https://musicbrainz.org/ws/2"
	musicBrainzRateLimit      = time.Second // 1 req/s, MusicBrainz's documented anonymous-use limit
	musicBrainzConfidence     = 0.9
)

var mbLog = logging.ForService("extractors.musicbrainz")

// rateLimiter serializes calls to a minimum interval apart, shared by the
// MusicBrainz and AcoustID clients (both document a hard per-second cap).
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.last.IsZero() {
		if wait := r.interval - time.Since(r.last); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	r.last = time.Now()
	return nil
}

// MusicBrainzClient looks up recording metadata by MBID, rate-limited to
// one request per second. It is shared by identity resolution's
// AcoustID-to-MBID cross-check and metadata fusion (Open Question decision,
// see DESIGN.md).
type MusicBrainzClient struct {
	http    *httpclient.Client
	limiter *rateLimiter
	// BaseURL overrides musicBrainzBaseURL, for tests.
	BaseURL string
}

// NewMusicBrainzClient builds a client over the shared httpclient, with a
// MusicBrainz-specific User-Agent as MusicBrainz's API policy requires.
func NewMusicBrainzClient() *MusicBrainzClient {
	cfg := httpclient.FromSettings(15000, 5000, "WKMP/1.0 ( https://github.com/mangocats/wkmp )")
	return &MusicBrainzClient{
		http:    httpclient.New(&cfg),
		limiter: newRateLimiter(musicBrainzRateLimit),
		BaseURL: musicBrainzBaseURL,
	}
}

// Recording is the subset of MusicBrainz's recording response WKMP needs.
type Recording struct {
	MBID    string
	Title   string
	Artist  string
	Length  time.Duration
}

// LookupRecording fetches a recording by MBID.
func (c *MusicBrainzClient) LookupRecording(ctx context.Context, mbid string) (*Recording, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/recording/%s?inc=artist-credits&fmt=json", c.BaseURL, mbid)
	mbLog.Debug("querying musicbrainz", "mbid", mbid)

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, wkmperrors.New(err).Component("extractors").
			Category(wkmperrors.CategoryTransientExternal).Context("mbid", mbid).Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, wkmperrors.Newf("recording not found: %s", mbid).
			Category(wkmperrors.CategoryNotFound).Build()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, wkmperrors.Newf("musicbrainz API error %d: %s", resp.StatusCode, string(body)).
			Category(wkmperrors.CategoryTransientExternal).Build()
	}

	doc, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, wkmperrors.New(err).Component("extractors").
			Category(wkmperrors.CategoryLocalData).Build()
	}

	title, _ := doc.GetString("title")
	artist := firstArtistName(doc)
	lengthMs, _ := doc.GetInt64("length")

	return &Recording{
		MBID:   mbid,
		Title:  title,
		Artist: artist,
		Length: time.Duration(lengthMs) * time.Millisecond,
	}, nil
}

func firstArtistName(doc *jason.Object) string {
	credits, err := doc.GetObjectArray("artist-credit")
	if err != nil || len(credits) == 0 {
		return ""
	}
	name, _ := credits[0].GetString("name")
	return name
}

// MetadataConfidence is MusicBrainz's fixed field confidence (§4.10 Phase 7
// treats registry lookups as authoritative relative to embedded tags).
const MetadataConfidence = musicBrainzConfidence
