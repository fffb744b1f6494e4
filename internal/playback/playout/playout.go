// Package playout implements the per-queue-entry bounded stereo-frame
// buffer sitting between a DecoderChain and the Mixer (§4.6).
package playout

import (
	"sync"

	"github.com/mangocats/wkmp/internal/ringbuffer"
)

// State is the lifecycle of a PlayoutBuffer.
type State int

const (
	Decoding State = iota
	Ready
	Playing
	Exhausted
)

func (s State) String() string {
	switch s {
	case Decoding:
		return "Decoding"
	case Ready:
		return "Ready"
	case Playing:
		return "Playing"
	case Exhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// Config sizes a Buffer from the tuning parameters of §6.
type Config struct {
	Capacity          int // playout_ringbuffer_size
	Headroom          int // playout_ringbuffer_headroom
	ResumeHysteresis  int // decoder_resume_hysteresis_samples
	MixerMinStartFill int // mixer_min_start_level
}

// Buffer wraps a wait-free ring buffer with the state machine and
// pause/resume signalling of §4.6. Push is called by exactly one
// DecoderChain goroutine; Pop is called by exactly one Mixer goroutine, so
// the underlying ring buffer's SPSC contract holds.
type Buffer struct {
	rb  *ringbuffer.RingBuffer
	cfg Config

	mu       sync.Mutex
	state    State
	paused   bool
	finished bool // decoder has emitted Finished; buffer drains to Exhausted
}

// New creates a Buffer per Config.
func New(cfg Config) *Buffer {
	return &Buffer{
		rb:    ringbuffer.New(cfg.Capacity),
		cfg:   cfg,
		state: Decoding,
	}
}

// State returns the current lifecycle state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ProgressPercent reports fill level as a percentage, meaningful while
// Decoding.
func (b *Buffer) ProgressPercent() int {
	occ := b.rb.Occupied()
	capacity := b.rb.Capacity()
	if capacity == 0 {
		return 0
	}
	return occ * 100 / capacity
}

// Push enqueues decoded, resampled, faded frames. It returns the number of
// frames accepted (less than len(frames) if the buffer filled mid-batch)
// and whether the decoder should now pause (free space at or below
// headroom).
func (b *Buffer) Push(frames []ringbuffer.Frame) (pushed int, shouldPause bool) {
	pushed = b.rb.PushBatch(frames)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Decoding && b.rb.Occupied() >= b.cfg.MixerMinStartFill {
		b.state = Ready
	}
	if b.rb.Free() <= b.cfg.Headroom {
		b.paused = true
	}
	return pushed, b.paused
}

// ShouldResume reports whether a paused decoder may resume pushing, i.e.
// free space has grown past headroom plus the hysteresis gap (§4.6), which
// prevents pause/resume chatter right at the headroom boundary.
func (b *Buffer) ShouldResume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.paused {
		return true
	}
	if b.rb.Free() >= b.cfg.Headroom+b.cfg.ResumeHysteresis {
		b.paused = false
		return true
	}
	return false
}

// MarkFinished records that the owning DecoderChain has emitted Finished;
// once the buffer drains it transitions to Exhausted rather than staying
// in Playing forever.
func (b *Buffer) MarkFinished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished = true
}

// Pop dequeues up to len(out) frames, used by the Mixer. It transitions the
// buffer to Playing on first successful pop, and to Exhausted once the
// decoder has finished and the buffer has drained.
func (b *Buffer) Pop(out []ringbuffer.Frame) int {
	n := b.rb.PopBatch(out)

	b.mu.Lock()
	defer b.mu.Unlock()
	if n > 0 && b.state != Exhausted {
		b.state = Playing
	}
	if b.finished && b.rb.Occupied() == 0 {
		b.state = Exhausted
	}
	return n
}

// Underruns returns the monotonic underrun count from the underlying ring
// buffer, observed by the AudioCallbackMonitor.
func (b *Buffer) Underruns() uint64 { return b.rb.Underruns() }

// Overruns returns the monotonic overrun count from the underlying ring
// buffer.
func (b *Buffer) Overruns() uint64 { return b.rb.Overruns() }
