package decoder

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/mangocats/wkmp/internal/ticks"
)

// chunkFrames bounds each decode_chunk() call to roughly one second of
// native-rate audio, per §4.4.
const chunkFrames = 1

type wavDecoder struct {
	file       *os.File
	dec        *wav.Decoder
	channels   int
	bitDepth   int
	sampleRate int
	divisor    float32
}

func newWavDecoder(f *os.File) (Decoder, error) {
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		f.Close()
		return nil, newDecoderFault("invalid WAV file", nil)
	}

	var divisor float32
	switch dec.BitDepth {
	case 16:
		divisor = 32768.0
	case 24:
		divisor = 8388608.0
	case 32:
		divisor = 2147483648.0
	default:
		f.Close()
		return nil, newDecoderFault("unsupported WAV bit depth", nil)
	}

	return &wavDecoder{
		file:       f,
		dec:        dec,
		channels:   int(dec.NumChans),
		bitDepth:   int(dec.BitDepth),
		sampleRate: int(dec.SampleRate),
		divisor:    divisor,
	}, nil
}

func (d *wavDecoder) SampleRate() int { return d.sampleRate }

func (d *wavDecoder) DecodeChunk() (Chunk, error) {
	frames := d.sampleRate * chunkFrames
	buf := &audio.IntBuffer{
		Data:   make([]int, frames*d.channels),
		Format: &audio.Format{SampleRate: d.sampleRate, NumChannels: d.channels},
	}

	n, err := d.dec.PCMBuffer(buf)
	if err != nil {
		return Chunk{}, newDecoderFault("reading PCM buffer", err)
	}
	if n == 0 {
		return Chunk{}, io.EOF
	}

	interleaved := make([]float32, n)
	for i, sample := range buf.Data[:n] {
		interleaved[i] = float32(sample) / d.divisor
	}

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

// SeekTicks seeks the decoder to the given tick position. go-audio/wav does
// not expose arbitrary frame-indexed seeking, so SeekTicks rewinds to the
// start of the PCM data and skips forward frame-by-frame, which still meets
// the 1-sample precision requirement of §4.4.
func (d *wavDecoder) SeekTicks(t ticks.Tick) error {
	frame := t.ToSamples(d.sampleRate)

	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return newDecoderFault("rewinding file for seek", err)
	}
	d.dec = wav.NewDecoder(d.file)
	d.dec.ReadInfo()

	remaining := frame
	for remaining > 0 {
		step := remaining
		if step > 4096 {
			step = 4096
		}
		buf := &audio.IntBuffer{
			Data:   make([]int, int(step)*d.channels),
			Format: &audio.Format{SampleRate: d.sampleRate, NumChannels: d.channels},
		}
		n, err := d.dec.PCMBuffer(buf)
		if err != nil {
			return newDecoderFault("seeking via PCM skip", err)
		}
		if n == 0 {
			break
		}
		remaining -= int64(n / d.channels)
	}
	return nil
}

func (d *wavDecoder) Close() error {
	return d.file.Close()
}
