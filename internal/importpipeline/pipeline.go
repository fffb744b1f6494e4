package importpipeline

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/mangocats/wkmp/internal/conf"
	"github.com/mangocats/wkmp/internal/datastore"
	"github.com/mangocats/wkmp/internal/extractors"
	"github.com/mangocats/wkmp/internal/fusion"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/segmenter"
	"github.com/mangocats/wkmp/internal/ticks"
	"github.com/mangocats/wkmp/internal/validators"
)

var pipelineLog = logging.ForService("importpipeline.file")

// FileProcessor runs one File through §4.10 Phases 2-10. It is stateless
// across files: every dependency is a shared, reentrant client safe for
// concurrent use by the orchestrator's worker pool.
type FileProcessor struct {
	Store *datastore.Store

	Tags          *extractors.TagExtractor
	MusicBrainz   *extractors.MusicBrainzClient
	AcoustID      *extractors.AcoustIDClient
	Chromaprint   *extractors.ChromaprintFingerprinter
	AcousticBrainz *extractors.AcousticBrainzClient
	Essentia      *extractors.EssentiaExtractor
	AudioFeatures *extractors.AudioFeaturesExtractor

	Identity *fusion.IdentityResolver
	Metadata *fusion.MetadataFuser
	Flavor   *fusion.FlavorSynthesizer
	Validate *validators.CompletenessScorer

	RootFolder string
}

// NewFileProcessor builds a FileProcessor with default-constructed
// extractor/fusion/validator dependencies from conf.Settings.
func NewFileProcessor(store *datastore.Store, settings *conf.Settings, rootFolder string) *FileProcessor {
	chromaprint := extractors.NewChromaprintFingerprinter()
	essentia := extractors.NewEssentiaExtractor()
	if settings.Import.EssentiaBinary != "" {
		essentia.BinaryPath = settings.Import.EssentiaBinary
	}

	return &FileProcessor{
		Store:          store,
		Tags:           extractors.NewTagExtractor(),
		MusicBrainz:    extractors.NewMusicBrainzClient(),
		AcoustID:       extractors.NewAcoustIDClient(settings.Import.AcoustIDAPIKey),
		Chromaprint:    chromaprint,
		AcousticBrainz: extractors.NewAcousticBrainzClient(),
		Essentia:       essentia,
		AudioFeatures:  extractors.NewAudioFeaturesExtractor(),
		Identity:       fusion.NewIdentityResolver(),
		Metadata:       fusion.NewMetadataFuser(),
		Flavor:         fusion.NewFlavorSynthesizer(),
		Validate:       validators.NewCompletenessScorer(),
		RootFolder:     rootFolder,
	}
}

// Process runs phases 2-10 for one File to completion, persisting every
// intermediate result so a crash mid-file leaves a resumable state rather
// than silently losing work.
func (p *FileProcessor) Process(ctx context.Context, file datastore.File) error {
	absPath := filepath.Join(p.RootFolder, filepath.FromSlash(file.Path))
	file.Status = datastore.FileProcessing
	if err := p.Store.SaveFile(ctx, &file); err != nil {
		return err
	}

	// Phase 2: HASH
	hash, err := hashFile(absPath)
	if err != nil {
		return p.fail(ctx, &file, err)
	}
	file.ContentHash = hash

	audio, err := decodeFile(absPath)
	if err != nil {
		return p.fail(ctx, &file, err)
	}
	file.DurationTicks = int64(audio.DurationTicks)
	file.SampleRate = audio.SampleRate
	file.Format = filepath.Ext(absPath)
	file.Channels = 2
	if err := p.Store.SaveFile(ctx, &file); err != nil {
		return err
	}

	// Phase 3: METADATA (embedded tags, file-scoped; applied to every
	// passage the file yields below).
	tagResult, err := p.Tags.Extract(ctx, extractors.PassageContext{FilePath: absPath})
	if err != nil {
		pipelineLog.Warn("tag extraction failed", "file", file.Path, "error", err)
	}

	// Phase 4: SEGMENT
	detector, err := segmenter.New()
	if err != nil {
		return p.fail(ctx, &file, err)
	}
	regions := detector.DetectSilence(audio.Mono, audio.SampleRate)
	boundaries := detector.Segment(regions, audio.DurationTicks)

	anyFailed := false
	for _, boundary := range boundaries {
		passage := findOrCreatePassage(ctx, p.Store, file.ID, boundary)
		if err := p.processPassage(ctx, absPath, &passage, audio, tagResult); err != nil {
			pipelineLog.Warn("passage processing failed", "file", file.Path, "passage_id", passage.ID, "error", err)
			anyFailed = true
			continue
		}
	}

	// Phase 10: FINALIZE
	if anyFailed {
		file.Status = datastore.FileFailed
	} else {
		file.Status = datastore.FileIngestComplete
	}
	return p.Store.SaveFile(ctx, &file)
}

func (p *FileProcessor) fail(ctx context.Context, file *datastore.File, cause error) error {
	file.Status = datastore.FileFailed
	_ = p.Store.SaveFile(ctx, file)
	return cause
}

func findOrCreatePassage(ctx context.Context, store *datastore.Store, fileID int64, boundary segmenter.Boundary) datastore.Passage {
	existing, err := store.PassagesForFile(ctx, fileID)
	if err == nil {
		for _, p := range existing {
			if p.StartTicks == int64(boundary.Start) && p.EndTicks == int64(boundary.End) {
				return p
			}
		}
	}
	return datastore.Passage{
		FileID:     fileID,
		StartTicks: int64(boundary.Start),
		EndTicks:   int64(boundary.End),
	}
}

// processPassage runs phases 5-9 for one segmented passage.
func (p *FileProcessor) processPassage(ctx context.Context, absPath string, passage *datastore.Passage, audio decodedAudio, tagResult extractors.Result) error {
	start := int(ticks.Tick(passage.StartTicks).ToSamples(audio.SampleRate))
	end := int(ticks.Tick(passage.EndTicks).ToSamples(audio.SampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(audio.Mono) {
		end = len(audio.Mono)
	}
	var passageSamples []float32
	if start < end {
		passageSamples = audio.Mono[start:end]
	}
	durationSeconds := float64(len(passageSamples)) / float64(audio.SampleRate)

	// Phase 5: FINGERPRINT. Fingerprinting runs against the whole file
	// rather than a passage-local clip: fpcalc has no notion of a sub-range,
	// matching the Chromaprint/AcoustID service's own whole-recording model.
	var identityCandidates []fusion.IdentityExtraction
	if p.AcoustID != nil {
		fp, err := p.Chromaprint.Compute(ctx, absPath, durationSeconds)
		if err != nil {
			pipelineLog.Warn("fingerprint failed", "passage_id", passage.ID, "error", err)
		}
		if fp != nil {
			// Phase 6: RESOLVE IDENTITY
			candidates, err := p.AcoustID.Lookup(ctx, fp.Value, fp.DurationSeconds)
			if err != nil {
				pipelineLog.Warn("acoustid lookup failed", "passage_id", passage.ID, "error", err)
			}
			identityCandidates = append(identityCandidates, extractors.ToIdentityExtractions(candidates)...)
		}
	}
	if tagResult.Metadata != nil && tagResult.Metadata.RecordingMBID != nil {
		identityCandidates = append(identityCandidates, fusion.IdentityExtraction{
			RecordingMBID: tagResult.Metadata.RecordingMBID.Value,
			Confidence:    tagResult.Metadata.RecordingMBID.Confidence,
			Source:        tagResult.Metadata.RecordingMBID.Source,
		})
	}

	// Phase 7: FUSE
	identity := p.Identity.Resolve(identityCandidates)

	metadataSources := []fusion.MetadataExtraction{}
	if tagResult.Metadata != nil {
		metadataSources = append(metadataSources, *tagResult.Metadata)
	}
	if identity.RecordingMBID != "" {
		if rec, err := p.MusicBrainz.LookupRecording(ctx, identity.RecordingMBID); err == nil && rec != nil {
			metadataSources = append(metadataSources, fusion.MetadataExtraction{
				Title:         &fusion.ConfidenceValue{Value: rec.Title, Confidence: extractors.MetadataConfidence, Source: "MusicBrainz"},
				Artist:        &fusion.ConfidenceValue{Value: rec.Artist, Confidence: extractors.MetadataConfidence, Source: "MusicBrainz"},
				RecordingMBID: &fusion.ConfidenceValue{Value: identity.RecordingMBID, Confidence: identity.Confidence, Source: "MusicBrainz"},
			})
		}
	}
	metadata := p.Metadata.Fuse(metadataSources)

	var flavorSources []fusion.FlavorExtraction
	if identity.RecordingMBID != "" {
		if flavor, err := p.AcousticBrainz.LookupFlavor(ctx, identity.RecordingMBID); err == nil && flavor != nil {
			flavorSources = append(flavorSources, *flavor)
		} else {
			if result, err := p.Essentia.Extract(ctx, extractors.PassageContext{FilePath: absPath, Samples: passageSamples, SampleRate: audio.SampleRate, Duration: durationSeconds}); err == nil && result.Flavor != nil {
				flavorSources = append(flavorSources, *result.Flavor)
			}
		}
	}
	if result, err := p.AudioFeatures.Extract(ctx, extractors.PassageContext{Samples: passageSamples, SampleRate: audio.SampleRate, Duration: durationSeconds}); err == nil && result.Flavor != nil {
		flavorSources = append(flavorSources, *result.Flavor)
	}
	flavor := p.Flavor.Synthesize(flavorSources)

	// Phase 8: VALIDATE
	outcome := p.Validate.Score(identity, metadata, flavor)

	// Phase 9: PERSIST
	return p.persist(ctx, passage, metadata, flavor, identity, outcome)
}

func (p *FileProcessor) persist(ctx context.Context, passage *datastore.Passage, metadata fusion.FusedMetadata, flavor fusion.FusedFlavor, identity fusion.FusedIdentity, outcome validators.Result) error {
	if metadata.Title != nil {
		passage.Title = metadata.Title.Value
	}
	if metadata.Artist != nil {
		passage.Artist = metadata.Artist.Value
	}
	if metadata.Album != nil {
		passage.Album = metadata.Album.Value
	}

	flavorJSON, _ := json.Marshal(flavor.Characteristics)
	passage.FlavorVector = string(flavorJSON)

	if identity.RecordingMBID != "" {
		songStatus := datastore.SongPending
		switch outcome.Status {
		case validators.StatusPass:
			songStatus = datastore.SongFlavorReady
		case validators.StatusFail:
			songStatus = datastore.SongFailed
		}
		title := ""
		if metadata.Title != nil {
			title = metadata.Title.Value
		}
		song, err := p.Store.UpsertSongByMBID(ctx, identity.RecordingMBID, title, string(flavorJSON), songStatus)
		if err != nil {
			return err
		}
		passage.SongID = &song.ID
	}

	passage.Status = string(outcome.Status)
	return p.Store.SavePassage(ctx, passage)
}

