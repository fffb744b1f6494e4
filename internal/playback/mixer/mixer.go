// Package mixer drains up to two active PlayoutBuffers, applies crossfade
// summation, and writes the result into the output ring buffer consumed by
// the audio callback (§4.8).
package mixer

import (
	"sync"

	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/playback/playout"
	"github.com/mangocats/wkmp/internal/ringbuffer"
	"github.com/mangocats/wkmp/internal/ticks"
)

// ActiveChain is the subset of a playback chain the mixer needs to drain
// and report on.
type ActiveChain struct {
	EntryID    int64
	PassageID  int64
	Buf        *playout.Buffer
	PassageEnd ticks.Tick
}

// Config parameterizes the mixer from the tuning table of §6.
type Config struct {
	WorkingRate          int
	PositionEventMs      int
	PauseDecayFactor     float64 // per-frame geometric decay while pausing
	PauseDecayFloor      float64 // gain below which pause hard-zeros
	BackpressureGraceMs  int
}

// Mixer is driven once per callback batch by the Engine/audio callback.
type Mixer struct {
	cfg Config
	out *ringbuffer.RingBuffer
	bus *eventbus.Bus

	mu      sync.Mutex
	current *ActiveChain
	next    *ActiveChain

	positionTick       ticks.Tick
	lastPositionMarkMs int64
	paused             bool
	pauseGain          float64
}

// New creates a Mixer writing into out and publishing markers on bus.
func New(cfg Config, out *ringbuffer.RingBuffer, bus *eventbus.Bus) *Mixer {
	return &Mixer{cfg: cfg, out: out, bus: bus, pauseGain: 1.0}
}

// SetCurrent assigns the chain the mixer treats as the primary source.
func (m *Mixer) SetCurrent(c *ActiveChain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = c
}

// SetNext assigns the chain crossfading in, or nil when no crossfade is
// active. The Engine only sets this once current has entered its lead-out
// region (§4.8 item 1).
func (m *Mixer) SetNext(c *ActiveChain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = c
}

// Pause begins a geometric fade toward silence, applied over subsequent
// MixBatch calls, avoiding a device-level click (§4.8).
func (m *Mixer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

// Resume begins a symmetric fade back up to full level.
func (m *Mixer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

// MixBatch drains up to n frames from the active chain(s), crossfades,
// writes the result to the output ring buffer, and fires position/
// completion markers. It returns the number of frames written to the
// output ring buffer (may be less than n under backpressure).
func (m *Mixer) MixBatch(n int) int {
	m.mu.Lock()
	current, next := m.current, m.next
	m.mu.Unlock()

	frames := make([]ringbuffer.Frame, n)
	underrun := false

	if current != nil {
		got := current.Buf.Pop(frames)
		if got < n {
			underrun = true
		}
	} else {
		underrun = true
	}

	if next != nil {
		nextFrames := make([]ringbuffer.Frame, n)
		next.Buf.Pop(nextFrames)
		for i := range frames {
			frames[i].L = clamp(frames[i].L + nextFrames[i].L)
			frames[i].R = clamp(frames[i].R + nextFrames[i].R)
		}
	}

	m.applyPauseGain(frames)

	if underrun && m.bus != nil {
		m.bus.Publish("AudioCallbackUnderrun", nil)
	}

	written := m.out.PushBatch(frames)
	if written < len(frames) && m.bus != nil {
		m.bus.Publish("MixerBackpressure", map[string]int{"dropped": len(frames) - written})
	}

	m.advancePosition(n, current)

	return written
}

// applyPauseGain scales frames toward zero while pausing, or back toward
// unity while resuming, using the configured geometric decay per frame.
func (m *Mixer) applyPauseGain(frames []ringbuffer.Frame) {
	m.mu.Lock()
	paused := m.paused
	gain := m.pauseGain
	decay := m.cfg.PauseDecayFactor
	floor := m.cfg.PauseDecayFloor
	m.mu.Unlock()

	if decay <= 0 {
		decay = 0.999
	}

	for i := range frames {
		if paused {
			if gain > floor {
				gain *= decay
			} else {
				gain = 0
			}
		} else if gain < 1.0 {
			gain = 1 - (1-gain)*decay
			if gain > 1.0 {
				gain = 1.0
			}
		}
		g := float32(gain)
		frames[i].L *= g
		frames[i].R *= g
	}

	m.mu.Lock()
	m.pauseGain = gain
	m.mu.Unlock()
}

// advancePosition moves the shared position counter forward by n frames at
// the working rate and fires PositionUpdate / PassageComplete markers that
// fall within the traversed tick range.
func (m *Mixer) advancePosition(n int, current *ActiveChain) {
	perSample := ticks.PerSample(m.cfg.WorkingRate)

	m.mu.Lock()
	prevPos := m.positionTick
	newPos := prevPos + ticks.Tick(perSample)*ticks.Tick(n)
	m.positionTick = newPos
	m.mu.Unlock()

	if m.bus == nil {
		return
	}

	intervalTicks := ticks.Tick(m.cfg.PositionEventMs) * ticks.Tick(ticks.Rate) / 1000
	if intervalTicks > 0 {
		for t := (prevPos/intervalTicks + 1) * intervalTicks; t < newPos; t += intervalTicks {
			m.bus.Publish("PositionUpdate", map[string]int64{"ticks": int64(t)})
		}
	}

	if current != nil && prevPos < current.PassageEnd && newPos >= current.PassageEnd {
		m.bus.Publish("PassageComplete", map[string]int64{
			"passage_id": current.PassageID,
			"entry_id":   current.EntryID,
		})
	}
}

func clamp(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
