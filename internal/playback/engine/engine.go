// Package engine owns the playback queue, the slot table of active
// chains, the shared parameter singleton, and the status/progress event
// bus (§4.9).
package engine

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mangocats/wkmp/internal/decoder"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/playback/chain"
	"github.com/mangocats/wkmp/internal/playback/mixer"
	"github.com/mangocats/wkmp/internal/playback/playout"
	"github.com/mangocats/wkmp/internal/playback/worker"
	"github.com/mangocats/wkmp/internal/ticks"
)

// QueueEntry is one item in the ordered playback queue.
type QueueEntry struct {
	ID             int64
	FilePath       string
	PassageID      *int64
	PlayOrder      int64
	Override       TimingOverride
	PassageDefault TimingOverride
	FileDuration   ticks.Tick
	generation     uint64
}

// Store persists the queue. Implemented by internal/datastore; kept as an
// interface here so this package never imports the ORM layer directly.
type Store interface {
	LoadQueue() ([]QueueEntry, error)
	SaveQueueEntry(QueueEntry) error
	DeleteQueueEntry(id int64) error
}

// Config sizes the engine from the tuning table of §6.
type Config struct {
	MaximumDecodeStreams int
	WorkingRate           int
}

// Engine wires the queue, slot table, worker scheduler, and mixer
// together.
type Engine struct {
	cfg   Config
	store Store
	bus   *eventbus.Bus
	wk    *worker.Worker
	mx    *mixer.Mixer

	mu         sync.Mutex
	queue      []QueueEntry
	slots      map[int64]*chain.Chain // entryID -> active chain
	generation atomic.Uint64
	playing    bool

	openDecoder func(path string) (decoder.Decoder, error)
}

// New creates an Engine. openDecoder defaults to decoder.Open when nil,
// and is overridable for testing.
func New(cfg Config, store Store, bus *eventbus.Bus, wk *worker.Worker, mx *mixer.Mixer, openDecoder func(string) (decoder.Decoder, error)) *Engine {
	if openDecoder == nil {
		openDecoder = decoder.Open
	}
	return &Engine{
		cfg:         cfg,
		store:       store,
		bus:         bus,
		wk:          wk,
		mx:          mx,
		slots:       make(map[int64]*chain.Chain),
		openDecoder: openDecoder,
	}
}

// Enqueue adds the entry to the queue kept sorted by PlayOrder, bumps the
// generation counter, persists it, and re-evaluates chain assignments; the
// entry's timing is resolved when it is given a chain (§4.9).
func (e *Engine) Enqueue(entry QueueEntry) error {
	e.mu.Lock()
	entry.generation = e.generation.Add(1)
	e.queue = append(e.queue, entry)
	sort.Slice(e.queue, func(i, j int) bool { return e.queue[i].PlayOrder < e.queue[j].PlayOrder })
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveQueueEntry(entry); err != nil {
			return err
		}
	}

	e.bus.Publish("QueueChanged", map[string]int64{"entry_id": entry.ID})
	e.reevaluateSlots()
	return nil
}

// Dequeue removes an entry by ID, tearing down its chain if active.
func (e *Engine) Dequeue(entryID int64) error {
	e.mu.Lock()
	for i, q := range e.queue {
		if q.ID == entryID {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			break
		}
	}
	c, hadChain := e.slots[entryID]
	delete(e.slots, entryID)
	e.mu.Unlock()

	e.wk.Remove(entryID)
	if hadChain {
		c.Close()
	}
	if e.store != nil {
		if err := e.store.DeleteQueueEntry(entryID); err != nil {
			return err
		}
	}
	e.bus.Publish("QueueChanged", map[string]int64{"entry_id": entryID})
	return nil
}

// Play resumes mixing if paused and re-evaluates slot assignment so
// playback starts from the head of the queue (§6.3 POST /play).
func (e *Engine) Play() {
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()

	e.mx.Resume()
	e.reevaluateSlots()
	e.bus.Publish("PlaybackStateChanged", map[string]string{"state": "playing"})
}

// Pause has the mixer fade its output toward silence without tearing
// down any chain, so Play resumes from the same position (§6.3 POST /pause).
func (e *Engine) Pause() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()

	e.mx.Pause()
	e.bus.Publish("PlaybackStateChanged", map[string]string{"state": "paused"})
}

// Stop pauses the mixer and tears down every active chain and queue entry,
// returning the engine to an empty, idle state (§6.3 POST /stop).
func (e *Engine) Stop() {
	e.mx.Pause()

	e.mu.Lock()
	e.playing = false
	ids := make([]int64, 0, len(e.queue))
	for _, q := range e.queue {
		ids = append(ids, q.ID)
	}
	e.mu.Unlock()

	for _, id := range ids {
		_ = e.Dequeue(id)
	}
	e.bus.Publish("PlaybackStateChanged", map[string]string{"state": "stopped"})
}

// IsPlaying reports the engine's last requested play/pause state.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Queue returns a snapshot of the ordered queue.
func (e *Engine) Queue() []QueueEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]QueueEntry, len(e.queue))
	copy(out, e.queue)
	return out
}

// reevaluateSlots fills empty slot-table entries (up to
// MaximumDecodeStreams) with chains for the head of the queue that aren't
// already active, submitting each to the worker at Next priority, and
// promotes the very first queue entry to Immediate so it starts decoding
// ahead of everything else.
func (e *Engine) reevaluateSlots() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, q := range e.queue {
		if len(e.slots) >= e.cfg.MaximumDecodeStreams {
			break
		}
		if _, active := e.slots[q.ID]; active {
			continue
		}

		dec, err := e.openDecoder(q.FilePath)
		if err != nil {
			e.bus.Publish("ChainOpenFailed", map[string]any{"entry_id": q.ID, "error": err.Error()})
			continue
		}

		env := ResolveTiming(&q.Override, &q.PassageDefault, q.FileDuration)
		buf := playout.New(playout.Config{
			Capacity:          e.cfg.WorkingRate * 10, // ~10s of working-rate frames
			Headroom:          e.cfg.WorkingRate,
			ResumeHysteresis:  e.cfg.WorkingRate / 2,
			MixerMinStartFill: e.cfg.WorkingRate / 4,
		})
		c := chain.New(q.ID, dec, e.cfg.WorkingRate, env, buf)
		e.slots[q.ID] = c

		priority := worker.Next
		if i == 0 {
			priority = worker.Immediate
		}
		e.wk.Submit(q.ID, c, priority, true)
	}

	if len(e.queue) > 0 {
		head := e.queue[0]
		if c, ok := e.slots[head.ID]; ok {
			e.mx.SetCurrent(&mixer.ActiveChain{
				EntryID:    head.ID,
				PassageID:  derefPassageID(head.PassageID),
				Buf:        chainBuffer(c),
				PassageEnd: ResolveTiming(&head.Override, &head.PassageDefault, head.FileDuration).PassageEnd,
			})
		}
	}
}

func derefPassageID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// chainBuffer is a tiny accessor kept in this file (rather than exported
// from the chain package) since only the engine needs to hand a chain's
// buffer to the mixer.
func chainBuffer(c *chain.Chain) *playout.Buffer {
	return c.Buffer()
}
