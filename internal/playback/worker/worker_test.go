package worker

import (
	"io"
	"testing"

	"github.com/mangocats/wkmp/internal/decoder"
	"github.com/mangocats/wkmp/internal/fader"
	"github.com/mangocats/wkmp/internal/playback/chain"
	"github.com/mangocats/wkmp/internal/playback/playout"
	"github.com/mangocats/wkmp/internal/ticks"
)

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

func newTestChain(entryID int64, numChunks, framesPerChunk int) *chain.Chain {
	chunks := make([][]float32, numChunks)
	for i := range chunks {
		chunks[i] = make([]float32, 2*framesPerChunk)
	}
	dec := &fakeDecoder{rate: 44100, chunks: chunks}
	buf := playout.New(playout.Config{Capacity: 1_000_000, Headroom: 10, ResumeHysteresis: 20, MixerMinStartFill: 10})
	end := ticks.FromSamples(int64(numChunks*framesPerChunk)+1, 44100)
	env := fader.Envelope{PassageEnd: end, LeadOutStart: end}
	return chain.New(entryID, dec, 44100, env, buf)
}

func TestStepPrefersHigherPriority(t *testing.T) {
	w := New(0, 44100)
	w.Submit(1, newTestChain(1, 5, 100), Prefetch, true)
	w.Submit(2, newTestChain(2, 5, 100), Immediate, true)

	id, _, ran, err := w.Step()
	if err != nil || !ran {
		t.Fatalf("expected a step to run, err=%v", err)
	}
	if id != 2 {
		t.Fatalf("expected Immediate-priority entry 2 to run first, got %d", id)
	}
}

func TestStepTieBreaksByInsertionOrder(t *testing.T) {
	w := New(0, 44100)
	w.Submit(1, newTestChain(1, 5, 100), Next, true)
	w.Submit(2, newTestChain(2, 5, 100), Next, true)

	id, _, _, _ := w.Step()
	if id != 1 {
		t.Fatalf("expected first-submitted entry to win a priority tie, got %d", id)
	}
}

func TestDuplicateSubmissionIsNoOp(t *testing.T) {
	w := New(0, 44100)
	w.Submit(1, newTestChain(1, 5, 100), Prefetch, true)
	w.Submit(1, newTestChain(1, 5, 100), Immediate, true)

	w.mu.Lock()
	got := w.entries[1].priority
	w.mu.Unlock()
	if got != Prefetch {
		t.Fatalf("expected duplicate submission to be ignored, priority=%v", got)
	}
}

func TestFinishedEntryIsRemoved(t *testing.T) {
	w := New(0, 44100)
	w.Submit(1, newTestChain(1, 0, 0), Immediate, true)

	_, res, ran, err := w.Step()
	if err != nil || !ran {
		t.Fatalf("expected a step to run, err=%v", err)
	}
	if res.Kind != chain.Finished {
		t.Fatalf("expected Finished for an empty decoder, got %v", res.Kind)
	}
	if w.Pending() {
		t.Fatal("expected no pending work after the only entry finished")
	}
}

func TestBufferFullSuspendsEntryUntilResumed(t *testing.T) {
	w := New(0, 44100)
	// A buffer sized smaller than the chunk forces BufferFull immediately.
	dec := &fakeDecoder{rate: 44100, chunks: [][]float32{make([]float32, 2*1000)}}
	buf := playout.New(playout.Config{Capacity: 10, Headroom: 1, ResumeHysteresis: 1, MixerMinStartFill: 1})
	c := chain.New(1, dec, 44100, fader.Envelope{PassageEnd: ticks.Tick(1 << 40), LeadOutStart: ticks.Tick(1 << 40)}, buf)
	w.Submit(1, c, Immediate, true)

	_, res, ran, err := w.Step()
	if err != nil || !ran {
		t.Fatalf("expected a step to run, err=%v", err)
	}
	if res.Kind != chain.BufferFull {
		t.Fatalf("expected BufferFull, got %v", res.Kind)
	}
	if w.Pending() {
		t.Fatal("expected suspended entry to not be pending")
	}
	w.Resume(1)
	if !w.Pending() {
		t.Fatal("expected entry to be pending again after Resume")
	}
}

func TestCappedSubmissionStopsAfterFrameLimit(t *testing.T) {
	w := New(0, 100) // workingRate=100 => 15s cap = 1500 frames
	chunks := [][]float32{
		make([]float32, 2*1000),
		make([]float32, 2*1000),
	}
	dec := &fakeDecoder{rate: 100, chunks: chunks}
	buf := playout.New(playout.Config{Capacity: 1_000_000, Headroom: 10, ResumeHysteresis: 20, MixerMinStartFill: 10})
	c := chain.New(1, dec, 100, fader.Envelope{PassageEnd: ticks.Tick(1 << 40), LeadOutStart: ticks.Tick(1 << 40)}, buf)
	w.Submit(1, c, Immediate, false)

	w.Step() // 1000 frames pushed, limit now 500
	if !w.Pending() {
		t.Fatal("expected entry still pending after first chunk, under 1500-frame cap")
	}
	w.Step() // another 1000 frames pushed, exceeds remaining 500 -> capped
	if w.Pending() {
		t.Fatal("expected entry capped after exceeding the 15s frame budget")
	}
}
