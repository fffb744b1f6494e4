// Package chain binds a Decoder, Resampler, Fader, and PlayoutBuffer into
// the single per-queue-entry pipeline stage driven by the DecoderWorker
// (§4.5).
package chain

import (
	"errors"
	"io"

	"github.com/mangocats/wkmp/internal/decoder"
	"github.com/mangocats/wkmp/internal/fader"
	"github.com/mangocats/wkmp/internal/playback/playout"
	"github.com/mangocats/wkmp/internal/resampler"
	"github.com/mangocats/wkmp/internal/ringbuffer"
)

// ResultKind is the outcome of one ProcessChunk call.
type ResultKind int

const (
	Processed ResultKind = iota
	BufferFull
	Finished
)

// Result reports what ProcessChunk accomplished.
type Result struct {
	Kind         ResultKind
	FramesPushed int
	TotalFrames  int // populated on Finished
}

// Chain is the Decoder→Resampler→Fader→PlayoutBuffer pipeline for one
// queue entry.
type Chain struct {
	EntryID     int64
	dec         decoder.Decoder
	res         *resampler.Resampler
	fad         *fader.Fader
	buf         *playout.Buffer
	workingRate int
	totalFrames int
}

// New constructs a Chain. env is the queue entry's resolved fade envelope
// (precedence: explicit override > passage defaults > system defaults,
// resolved by the Engine when it assigns the entry a chain, per §4.9).
func New(entryID int64, dec decoder.Decoder, workingRate int, env fader.Envelope, buf *playout.Buffer) *Chain {
	return &Chain{
		EntryID:     entryID,
		dec:         dec,
		res:         resampler.New(dec.SampleRate(), workingRate),
		fad:         fader.New(env, workingRate),
		buf:         buf,
		workingRate: workingRate,
	}
}

// ProcessChunk decodes, resamples, and fades one native-rate chunk, then
// pushes the result into the PlayoutBuffer.
func (c *Chain) ProcessChunk() (Result, error) {
	ch, err := c.dec.DecodeChunk()
	if errors.Is(err, io.EOF) {
		c.buf.MarkFinished()
		return Result{Kind: Finished, TotalFrames: c.totalFrames}, nil
	}
	if err != nil {
		return Result{}, err
	}

	resampled := c.res.Process(ch.Samples)

	framesApplied, err := c.fad.Apply(resampled)
	if err != nil {
		return Result{}, err
	}

	// Don't push samples beyond passage_end: framesApplied already stops
	// short of any frame at or past the envelope boundary.
	toPush := samplesToFrames(resampled[:framesApplied*2])
	pushed, _ := c.buf.Push(toPush)
	c.totalFrames += pushed

	if c.fad.Done() {
		c.buf.MarkFinished()
		return Result{Kind: Finished, TotalFrames: c.totalFrames}, nil
	}
	if pushed < len(toPush) {
		return Result{Kind: BufferFull, FramesPushed: pushed}, nil
	}
	return Result{Kind: Processed, FramesPushed: pushed}, nil
}

// Close releases the underlying decoder's resources.
func (c *Chain) Close() error {
	return c.dec.Close()
}

// Buffer returns the chain's PlayoutBuffer, for the Engine to hand to the
// Mixer when promoting this chain to current or next.
func (c *Chain) Buffer() *playout.Buffer {
	return c.buf
}

func samplesToFrames(samples []float32) []ringbuffer.Frame {
	frames := make([]ringbuffer.Frame, len(samples)/2)
	for i := range frames {
		frames[i] = ringbuffer.Frame{L: samples[2*i], R: samples[2*i+1]}
	}
	return frames
}
