// Package worker implements the single-threaded priority decode scheduler
// that drives every DecoderChain's ProcessChunk calls (§4.7). Exactly one
// chunk is decoded at a time across the whole engine.
package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mangocats/wkmp/internal/playback/chain"
)

// Priority orders submissions; higher values pre-empt lower ones.
type Priority int

const (
	Prefetch Priority = iota
	Next
	Immediate
)

// cappedSeconds is the frame budget applied when a submission sets
// full_decode=false: decode stops after this many seconds of working-rate
// audio even if the PlayoutBuffer has more room (§4.7 item 6).
const cappedSeconds = 15

type entry struct {
	chain      *chain.Chain
	priority   Priority
	fullDecode bool
	suspended  bool
	capped     bool
	frameLimit int // -1 when fullDecode is true
	seq        int // insertion order, for stable tie-break
}

// Worker serializes chunk decoding across all active chains.
type Worker struct {
	mu               sync.Mutex
	entries          map[int64]*entry
	nextSeq          int
	decodeWorkPeriod time.Duration
	workingRate      int
}

// New creates a Worker. decodeWorkPeriod bounds how long the scheduler will
// wait before re-evaluating priorities even without a triggering event
// (§4.7 item 5).
func New(decodeWorkPeriod time.Duration, workingRate int) *Worker {
	return &Worker{
		entries:          make(map[int64]*entry),
		decodeWorkPeriod: decodeWorkPeriod,
		workingRate:      workingRate,
	}
}

// Submit registers a chain for decoding at the given priority. A duplicate
// submission for an entry ID already being managed is a no-op (§4.7 item
// 7).
func (w *Worker) Submit(entryID int64, c *chain.Chain, priority Priority, fullDecode bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.entries[entryID]; exists {
		return
	}

	limit := -1
	if !fullDecode {
		limit = w.workingRate * cappedSeconds
	}

	w.entries[entryID] = &entry{
		chain:      c,
		priority:   priority,
		fullDecode: fullDecode,
		frameLimit: limit,
		seq:        w.nextSeq,
	}
	w.nextSeq++
}

// Reprioritize raises or lowers an already-submitted entry's priority,
// e.g. when the engine promotes the next queue entry to Immediate.
func (w *Worker) Reprioritize(entryID int64, priority Priority) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[entryID]; ok {
		e.priority = priority
	}
}

// Resume un-suspends an entry whose PlayoutBuffer has drained below its
// resume threshold, signalled by the mixer's consumer side.
func (w *Worker) Resume(entryID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[entryID]; ok {
		e.suspended = false
		e.capped = false
	}
}

// Remove drops an entry from scheduling, used after Finished or on queue
// removal.
func (w *Worker) Remove(entryID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, entryID)
}

// Pending reports whether any entry is currently eligible to decode.
func (w *Worker) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.entries {
		if !e.suspended && !e.capped {
			return true
		}
	}
	return false
}

func (w *Worker) pickLocked() (int64, *entry) {
	var bestID int64
	var best *entry
	for id, e := range w.entries {
		if e.suspended || e.capped {
			continue
		}
		if best == nil ||
			e.priority > best.priority ||
			(e.priority == best.priority && e.seq < best.seq) {
			best, bestID = e, id
		}
	}
	return bestID, best
}

// Step performs the scheduler's single unit of work: select the
// highest-priority eligible entry, decode exactly one chunk from it, and
// apply the resulting state transition. It returns false when nothing was
// eligible to run.
func (w *Worker) Step() (entryID int64, result chain.Result, ran bool, err error) {
	w.mu.Lock()
	id, e := w.pickLocked()
	w.mu.Unlock()

	if e == nil {
		return 0, chain.Result{}, false, nil
	}

	res, procErr := e.chain.ProcessChunk()
	if procErr != nil {
		return id, chain.Result{}, true, procErr
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch res.Kind {
	case chain.Finished:
		delete(w.entries, id)
	case chain.BufferFull:
		e.suspended = true
	case chain.Processed:
		if e.frameLimit >= 0 && res.FramesPushed > 0 {
			e.frameLimit -= res.FramesPushed
			if e.frameLimit <= 0 {
				e.capped = true
			}
		}
	}

	return id, res, true, nil
}

// Run drives Step in a loop, re-evaluating at least every decodeWorkPeriod,
// until ctx is cancelled. Shutdown lets the in-flight chunk finish but
// starts no new one, so the loop exits within one chunk's decode time
// regardless of queue length (§4.7 cancellation contract).
func (w *Worker) Run(ctx context.Context, onStep func(entryID int64, res chain.Result, err error)) {
	ticker := time.NewTicker(w.decodeWorkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		id, res, ran, err := w.Step()
		if ran && onStep != nil {
			onStep(id, res, err)
		}

		if !ran {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// sortedIDs is a small test/debug helper returning currently-tracked entry
// IDs in submission order.
func (w *Worker) sortedIDs() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]int64, 0, len(w.entries))
	for id := range w.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return w.entries[ids[i]].seq < w.entries[ids[j]].seq
	})
	return ids
}
