package extractors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mangocats/wkmp/internal/fusion"
	"github.com/mangocats/wkmp/internal/httpclient"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

const (
	acousticBrainzBaseURL   = "https://acousticbrainz.org/api/v1"
	acousticBrainzRateLimit = time.Second // 1 req/s, conservative per AcousticBrainz's own client
	acousticBrainzConfidence = 0.85
)

var abLog = logging.ForService("extractors.acousticbrainz")

// acousticBrainzLowLevel is the subset of AcousticBrainz's low-level
// response WKMP's flavor vector draws from; the full response carries
// hundreds of features.
type acousticBrainzLowLevel struct {
	Tonal *struct {
		KeyKey      string  `json:"key_key"`
		KeyScale    string  `json:"key_scale"`
		KeyStrength float64 `json:"key_strength"`
	} `json:"tonal"`
	Rhythm *struct {
		BPM           float64 `json:"bpm"`
		Danceability  float64 `json:"danceability"`
		OnsetRate     float64 `json:"onset_rate"`
	} `json:"rhythm"`
	LowLevel *struct {
		SpectralCentroid  *meanStat `json:"spectral_centroid"`
		SpectralEnergy    *meanStat `json:"spectral_energy"`
		Dissonance        *meanStat `json:"dissonance"`
		DynamicComplexity float64   `json:"dynamic_complexity"`
	} `json:"lowlevel"`
}

type meanStat struct {
	Mean float64 `json:"mean"`
}

// AcousticBrainzClient queries pre-computed musical flavor vectors by
// recording MBID. AcousticBrainz stopped accepting new submissions in
// 2022, so only recordings analyzed before then will resolve.
type AcousticBrainzClient struct {
	http    *httpclient.Client
	limiter *rateLimiter
	// BaseURL overrides acousticBrainzBaseURL, for tests.
	BaseURL string
}

// NewAcousticBrainzClient builds a client over the shared httpclient.
func NewAcousticBrainzClient() *AcousticBrainzClient {
	cfg := httpclient.FromSettings(15000, 5000, "WKMP/1.0 ( https://github.com/mangocats/wkmp )")
	return &AcousticBrainzClient{
		http:    httpclient.New(&cfg),
		limiter: newRateLimiter(acousticBrainzRateLimit),
		BaseURL: acousticBrainzBaseURL,
	}
}

// LookupFlavor queries AcousticBrainz's low-level endpoint and converts the
// response into a flavor extraction. Returns (nil, nil) on a 404 — absence
// from AcousticBrainz is expected, not an error, for most recordings.
func (c *AcousticBrainzClient) LookupFlavor(ctx context.Context, recordingMBID string) (*fusion.FlavorExtraction, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/low-level", c.BaseURL, recordingMBID)
	abLog.Debug("querying acousticbrainz", "mbid", recordingMBID)

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, wkmperrors.New(err).Component("extractors").
			Category(wkmperrors.CategoryTransientExternal).Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, wkmperrors.Newf("acousticbrainz API error %d: %s", resp.StatusCode, string(body)).
			Category(wkmperrors.CategoryTransientExternal).Build()
	}

	var lowLevel acousticBrainzLowLevel
	if err := json.NewDecoder(resp.Body).Decode(&lowLevel); err != nil {
		return nil, wkmperrors.New(err).Component("extractors").Category(wkmperrors.CategoryLocalData).Build()
	}

	return &fusion.FlavorExtraction{
		Characteristics: flavorCharacteristics(lowLevel),
		Confidence:      acousticBrainzConfidence,
		Source:          "AcousticBrainz",
	}, nil
}

func flavorCharacteristics(l acousticBrainzLowLevel) map[string]float64 {
	characteristics := make(map[string]float64)
	if l.Rhythm != nil {
		if l.Rhythm.BPM > 0 {
			characteristics["bpm"] = l.Rhythm.BPM
		}
		characteristics["danceability"] = l.Rhythm.Danceability
	}
	if l.Tonal != nil {
		characteristics["key_strength"] = l.Tonal.KeyStrength
	}
	if l.LowLevel != nil {
		if l.LowLevel.SpectralCentroid != nil {
			characteristics["spectral_centroid"] = l.LowLevel.SpectralCentroid.Mean
		}
		if l.LowLevel.SpectralEnergy != nil {
			characteristics["energy"] = l.LowLevel.SpectralEnergy.Mean
		}
		if l.LowLevel.Dissonance != nil {
			characteristics["dissonance"] = l.LowLevel.Dissonance.Mean
		}
		characteristics["dynamic_complexity"] = l.LowLevel.DynamicComplexity
	}
	return characteristics
}
