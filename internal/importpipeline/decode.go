package importpipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/mangocats/wkmp/internal/decoder"
	"github.com/mangocats/wkmp/internal/ticks"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

// decodedAudio is a full-file decode result: mono samples for silence
// detection/flavor analysis, plus the native format facts recorded on File.
type decodedAudio struct {
	Mono          []float32
	SampleRate    int
	DurationTicks ticks.Tick
}

// decodeFile fully decodes path into a mono downmix. WKMP's library consists
// of whole tracks and DJ sets short enough to hold entirely in memory during
// import; streaming decode is the playback engine's concern, not this one.
func decodeFile(path string) (decodedAudio, error) {
	d, err := decoder.Open(path)
	if err != nil {
		return decodedAudio{}, err
	}
	defer d.Close()

	sampleRate := d.SampleRate()
	var mono []float32
	var totalFrames int64

	for {
		chunk, err := d.DecodeChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return decodedAudio{}, wkmperrors.New(err).Component("importpipeline").
				Category(wkmperrors.CategoryDecoder).Context("file", path).Build()
		}
		frames := len(chunk.Samples) / 2
		totalFrames += int64(frames)
		for i := 0; i < frames; i++ {
			l := chunk.Samples[2*i]
			r := chunk.Samples[2*i+1]
			mono = append(mono, (l+r)/2)
		}
	}

	return decodedAudio{
		Mono:          mono,
		SampleRate:    sampleRate,
		DurationTicks: ticks.FromSamples(totalFrames, sampleRate),
	}, nil
}

// hashFile computes the SHA-256 content hash used by File.ContentHash
// (§4.10 Phase 2), without holding the whole file in memory.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", wkmperrors.New(err).Component("importpipeline").
			Category(wkmperrors.CategoryLocalData).Context("file", path).Build()
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", wkmperrors.New(err).Component("importpipeline").
			Category(wkmperrors.CategoryLocalData).Context("file", path).Build()
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
