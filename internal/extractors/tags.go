package extractors

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/mangocats/wkmp/internal/fusion"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

var tagLog = logging.ForService("extractors.tag")

// baseTagConfidence is the confidence assigned to embedded-tag fields:
// user-editable, unverified against an authoritative source, but more
// reliable than a guess (§4.10 Phase 3).
const baseTagConfidence = 0.6

// mbidTagConfidence is used when the tag itself carries a MusicBrainz
// recording ID: authoritative enough to seed identity resolution directly.
const mbidTagConfidence = 0.9

// rawMBIDKeys are the keys under which various taggers (ID3v2 TXXX,
// Vorbis comments, MP4 freeform atoms) store the MusicBrainz recording ID.
var rawMBIDKeys = []string{
	"musicbrainz_trackid",
	"musicbrainz trackid",
	"musicbrainz recording id",
}

// TagExtractor reads embedded ID3v2/ID3v1/Vorbis/MP4 tags via dhowden/tag.
type TagExtractor struct{}

// NewTagExtractor returns a TagExtractor.
func NewTagExtractor() *TagExtractor { return &TagExtractor{} }

func (e *TagExtractor) Name() string { return "ID3" }

// Extract opens the passage's file and reads its tag block. A file with no
// recognizable tags yields an empty MetadataExtraction, not an error.
func (e *TagExtractor) Extract(_ context.Context, passage PassageContext) (Result, error) {
	f, err := os.Open(passage.FilePath)
	if err != nil {
		return Result{}, wkmperrors.New(err).Component("extractors").
			Category(wkmperrors.CategoryLocalData).Context("file", passage.FilePath).Build()
	}
	defer f.Close()

	metadata, err := tag.ReadFrom(f)
	if err != nil {
		tagLog.Debug("no readable tags", "file", passage.FilePath, "error", err)
		return Result{Metadata: &fusion.MetadataExtraction{Additional: map[string]fusion.ConfidenceValue{}}}, nil
	}

	extraction := &fusion.MetadataExtraction{Additional: map[string]fusion.ConfidenceValue{}}

	if title := metadata.Title(); title != "" {
		extraction.Title = &fusion.ConfidenceValue{Value: title, Confidence: baseTagConfidence, Source: "ID3"}
	}
	if artist := metadata.Artist(); artist != "" {
		extraction.Artist = &fusion.ConfidenceValue{Value: artist, Confidence: baseTagConfidence, Source: "ID3"}
	}
	if album := metadata.Album(); album != "" {
		extraction.Album = &fusion.ConfidenceValue{Value: album, Confidence: baseTagConfidence, Source: "ID3"}
	}
	if genre := metadata.Genre(); genre != "" {
		extraction.Additional["genre"] = fusion.ConfidenceValue{Value: genre, Confidence: baseTagConfidence, Source: "ID3"}
	}
	if year := metadata.Year(); year != 0 {
		extraction.Additional["year"] = fusion.ConfidenceValue{Value: strconv.Itoa(year), Confidence: baseTagConfidence, Source: "ID3"}
	}

	if mbid := recordingMBID(metadata); mbid != "" {
		extraction.RecordingMBID = &fusion.ConfidenceValue{Value: mbid, Confidence: mbidTagConfidence, Source: "ID3-MBID"}
	}

	return Result{Metadata: extraction}, nil
}

func recordingMBID(metadata tag.Metadata) string {
	raw := metadata.Raw()
	for _, key := range rawMBIDKeys {
		for rawKey, value := range raw {
			if !strings.EqualFold(rawKey, key) {
				continue
			}
			if s, ok := value.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
