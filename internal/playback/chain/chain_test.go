package chain

import (
	"io"
	"testing"

	"github.com/mangocats/wkmp/internal/decoder"
	"github.com/mangocats/wkmp/internal/fader"
	"github.com/mangocats/wkmp/internal/playback/playout"
	"github.com/mangocats/wkmp/internal/ticks"
)

// fakeDecoder serves a fixed list of chunks then io.EOF, for testing Chain
// without touching the filesystem.
type fakeDecoder struct {
	rate   int
	chunks [][]float32
	pos    int
}

func (f *fakeDecoder) SampleRate() int { return f.rate }
func (f *fakeDecoder) DecodeChunk() (decoder.Chunk, error) {
	if f.pos >= len(f.chunks) {
		return decoder.Chunk{}, io.EOF
	}
	c := decoder.Chunk{Samples: f.chunks[f.pos], SampleRate: f.rate}
	f.pos++
	return c, nil
}
func (f *fakeDecoder) SeekTicks(t ticks.Tick) error { return nil }
func (f *fakeDecoder) Close() error                 { return nil }

func fullEnvelope(rate int, frames int) fader.Envelope {
	end := ticks.FromSamples(int64(frames), rate)
	return fader.Envelope{
		PassageStart: 0,
		FadeInStart:  0,
		LeadInStart:  0,
		LeadOutStart: end,
		FadeOutStart: end,
		PassageEnd:   end,
		FadeInCurve:  fader.Linear,
		FadeOutCurve: fader.Linear,
	}
}

func TestProcessChunkReturnsProcessedWhenBufferHasRoom(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, chunks: [][]float32{
		make([]float32, 2*1000),
	}}
	buf := playout.New(playout.Config{Capacity: 10000, Headroom: 10, ResumeHysteresis: 20, MixerMinStartFill: 100})
	c := New(1, dec, 44100, fullEnvelope(44100, 5000), buf)

	res, err := c.ProcessChunk()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Processed {
		t.Fatalf("expected Processed, got %v", res.Kind)
	}
	if res.FramesPushed != 1000 {
		t.Fatalf("expected 1000 frames pushed, got %d", res.FramesPushed)
	}
}

func TestProcessChunkReturnsFinishedAtEOF(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, chunks: nil}
	buf := playout.New(playout.Config{Capacity: 1000, Headroom: 10, ResumeHysteresis: 20, MixerMinStartFill: 10})
	c := New(1, dec, 44100, fullEnvelope(44100, 100), buf)

	res, err := c.ProcessChunk()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Finished {
		t.Fatalf("expected Finished, got %v", res.Kind)
	}
	if buf.State() != playout.Exhausted && buf.State() != playout.Decoding {
		t.Fatalf("unexpected buffer state after finish with no data: %v", buf.State())
	}
}

func TestProcessChunkReturnsBufferFullWhenCapacityExceeded(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, chunks: [][]float32{
		make([]float32, 2*100),
	}}
	buf := playout.New(playout.Config{Capacity: 50, Headroom: 5, ResumeHysteresis: 5, MixerMinStartFill: 10})
	c := New(1, dec, 44100, fullEnvelope(44100, 1000), buf)

	res, err := c.ProcessChunk()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != BufferFull {
		t.Fatalf("expected BufferFull, got %v", res.Kind)
	}
	if res.FramesPushed != 50 {
		t.Fatalf("expected 50 frames pushed (buffer capacity), got %d", res.FramesPushed)
	}
}

func TestProcessChunkFinishesWhenPassageEndCrossedMidChunk(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, chunks: [][]float32{
		make([]float32, 2*1000),
	}}
	buf := playout.New(playout.Config{Capacity: 10000, Headroom: 10, ResumeHysteresis: 20, MixerMinStartFill: 10})
	// Passage ends at 500 frames, well inside the 1000-frame chunk.
	c := New(1, dec, 44100, fullEnvelope(44100, 500), buf)

	res, err := c.ProcessChunk()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Finished {
		t.Fatalf("expected Finished when passage_end is crossed mid-chunk, got %v", res.Kind)
	}
	if res.TotalFrames != 500 {
		t.Fatalf("expected 500 frames pushed before passage_end, got %d", res.TotalFrames)
	}
}
