// Package decoder opens audio files, probed by extension and magic bytes,
// and exposes them as a sequence of interleaved stereo f32 chunks at the
// file's native sample rate (§4.4).
package decoder

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mangocats/wkmp/internal/ticks"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

// Chunk is one block of decoded audio: interleaved stereo f32 samples at
// the decoder's native sample rate.
type Chunk struct {
	Samples    []float32
	SampleRate int
}

// Decoder is implemented by each codec backend.
type Decoder interface {
	// DecodeChunk returns the next chunk, or io.EOF once the stream is
	// exhausted.
	DecodeChunk() (Chunk, error)

	// SampleRate returns the file's native sample rate.
	SampleRate() int

	// SeekTicks seeks to the given tick position, within 1-sample precision
	// where the underlying format permits it.
	SeekTicks(t ticks.Tick) error

	// Close releases the underlying file handle.
	Close() error
}

// Sentinel errors per the failure modes of §4.4.
var (
	ErrFileNotFound = wkmperrors.New(wkmperrors.NewStd("file not found")).
				Component("decoder").Category(wkmperrors.CategoryInput).Build()
	ErrUnsupportedCodec = wkmperrors.New(wkmperrors.NewStd("unsupported codec")).
				Component("decoder").Category(wkmperrors.CategoryInput).Build()
)

// DecoderFault wraps a codec-level failure, which is fatal for the owning
// chain.
type DecoderFault struct {
	Msg string
	Err error
}

func (f *DecoderFault) Error() string { return "decoder fault: " + f.Msg }
func (f *DecoderFault) Unwrap() error { return f.Err }

func newDecoderFault(msg string, err error) error {
	return wkmperrors.New(&DecoderFault{Msg: msg, Err: err}).
		Component("decoder").
		Category(wkmperrors.CategoryDecoder).
		Build()
}

// magic bytes used to disambiguate extension-less or mislabeled files.
var (
	riffMagic = []byte("RIFF")
	flacMagic = []byte("fLaC")
)

// Open probes path by extension first, falling back to magic bytes, and
// returns the matching Decoder.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, newDecoderFault("opening file", err)
	}

	head := make([]byte, 12)
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, newDecoderFault("seeking to start", err)
	}

	switch {
	case strings.EqualFold(filepath.Ext(path), ".wav") || bytes.HasPrefix(head, riffMagic):
		return newWavDecoder(f)
	case strings.EqualFold(filepath.Ext(path), ".flac") || bytes.HasPrefix(head, flacMagic):
		return newFlacDecoder(f)
	default:
		f.Close()
		return nil, ErrUnsupportedCodec
	}
}

// duplicateMono expands a mono f32 buffer into interleaved stereo f32.
func duplicateMono(mono []float32) []float32 {
	out := make([]float32, len(mono)*2)
	for i, s := range mono {
		out[2*i] = s
		out[2*i+1] = s
	}
	return out
}

// downmixToStereo averages within each stereo side, per the >2-channel rule
// in §4.4: even-indexed channels (0, 2, ...) into left, odd-indexed
// channels (1, 3, ...) into right.
func downmixToStereo(interleaved []float32, channels int) []float32 {
	if channels == 2 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames*2)
	nl := (channels + 1) / 2
	nr := channels / 2
	for i := 0; i < frames; i++ {
		var l, r float32
		for c := 0; c < channels; c++ {
			s := interleaved[i*channels+c]
			if c%2 == 0 {
				l += s
			} else {
				r += s
			}
		}
		out[2*i] = l / float32(nl)
		if nr > 0 {
			out[2*i+1] = r / float32(nr)
		} else {
			out[2*i+1] = out[2*i]
		}
	}
	return out
}
