package decoder

import (
	"io"
	"os"

	"github.com/tphakala/flac"
	"github.com/tphakala/flac/frame"

	"github.com/mangocats/wkmp/internal/ticks"
)

type flacDecoder struct {
	file       *os.File
	stream     *flac.Stream
	channels   int
	bitDepth   int
	sampleRate int
}

func newFlacDecoder(f *os.File) (Decoder, error) {
	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, newDecoderFault("parsing FLAC stream", err)
	}

	return &flacDecoder{
		file:       f,
		stream:     stream,
		channels:   int(stream.Info.NChannels),
		bitDepth:   int(stream.Info.BitsPerSample),
		sampleRate: int(stream.Info.SampleRate),
	}, nil
}

func (d *flacDecoder) SampleRate() int { return d.sampleRate }

func (d *flacDecoder) DecodeChunk() (Chunk, error) {
	fr, err := d.stream.ParseNext()
	if err == io.EOF {
		return Chunk{}, io.EOF
	}
	if err != nil {
		return Chunk{}, newDecoderFault("parsing FLAC frame", err)
	}

	interleaved := frameToInterleavedFloat(fr, d.bitDepth)

	var stereo []float32
	switch d.channels {
	case 1:
		stereo = duplicateMono(interleaved)
	case 2:
		stereo = interleaved
	default:
		stereo = downmixToStereo(interleaved, d.channels)
	}

	return Chunk{Samples: stereo, SampleRate: d.sampleRate}, nil
}

// frameToInterleavedFloat converts a decoded FLAC frame's per-channel
// subframes into interleaved float32 samples in [-1, 1].
func frameToInterleavedFloat(fr *frame.Frame, bitDepth int) []float32 {
	channels := len(fr.Subframes)
	if channels == 0 {
		return nil
	}
	n := len(fr.Subframes[0].Samples)
	divisor := float32(int64(1) << uint(bitDepth-1))

	out := make([]float32, n*channels)
	for c, sub := range fr.Subframes {
		for i, s := range sub.Samples[:n] {
			out[i*channels+c] = float32(s) / divisor
		}
	}
	return out
}

// SeekTicks seeks the decoder to the given tick position. tphakala/flac
// exposes sample-indexed seeking directly on the stream.
func (d *flacDecoder) SeekTicks(t ticks.Tick) error {
	frame := t.ToSamples(d.sampleRate)
	if _, err := d.stream.Seek(uint64(frame)); err != nil {
		return newDecoderFault("seeking FLAC stream", err)
	}
	return nil
}

func (d *flacDecoder) Close() error {
	return d.file.Close()
}
