package engine

import (
	"io"
	"testing"

	"github.com/mangocats/wkmp/internal/decoder"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/playback/mixer"
	"github.com/mangocats/wkmp/internal/playback/worker"
	"github.com/mangocats/wkmp/internal/ringbuffer"
	"github.com/mangocats/wkmp/internal/ticks"
)

type fakeDecoder struct{ rate int }

func (f *fakeDecoder) SampleRate() int                        { return f.rate }
func (f *fakeDecoder) DecodeChunk() (decoder.Chunk, error)     { return decoder.Chunk{}, io.EOF }
func (f *fakeDecoder) SeekTicks(t ticks.Tick) error            { return nil }
func (f *fakeDecoder) Close() error                            { return nil }

type fakeStore struct {
	saved   []QueueEntry
	deleted []int64
}

func (s *fakeStore) LoadQueue() ([]QueueEntry, error) { return nil, nil }
func (s *fakeStore) SaveQueueEntry(e QueueEntry) error {
	s.saved = append(s.saved, e)
	return nil
}
func (s *fakeStore) DeleteQueueEntry(id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestEngine() (*Engine, *fakeStore) {
	bus := eventbus.New(64)
	wk := worker.New(0, 44100)
	out := ringbuffer.New(1000)
	mx := mixer.New(mixer.Config{WorkingRate: 44100, PositionEventMs: 100}, out, bus)
	store := &fakeStore{}
	opener := func(path string) (decoder.Decoder, error) {
		return &fakeDecoder{rate: 44100}, nil
	}
	e := New(Config{MaximumDecodeStreams: 2, WorkingRate: 44100}, store, bus, wk, mx, opener)
	return e, store
}

func TestEnqueuePersistsAndOrdersByPlayOrder(t *testing.T) {
	e, store := newTestEngine()
	sub := e.bus.Subscribe()
	defer sub.Close()

	if err := e.Enqueue(QueueEntry{ID: 2, FilePath: "b.wav", PlayOrder: 2, FileDuration: 1000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Enqueue(QueueEntry{ID: 1, FilePath: "a.wav", PlayOrder: 1, FileDuration: 1000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := e.Queue()
	if len(q) != 2 || q[0].ID != 1 || q[1].ID != 2 {
		t.Fatalf("expected queue ordered by play_order [1,2], got %+v", q)
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", len(store.saved))
	}
}

func TestDequeueRemovesFromQueueAndStore(t *testing.T) {
	e, store := newTestEngine()
	e.Enqueue(QueueEntry{ID: 1, FilePath: "a.wav", PlayOrder: 1, FileDuration: 1000})

	if err := e.Dequeue(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Queue()) != 0 {
		t.Fatal("expected empty queue after dequeue")
	}
	if len(store.deleted) != 1 || store.deleted[0] != 1 {
		t.Fatalf("expected entry 1 deleted from store, got %+v", store.deleted)
	}
}

func TestReevaluateSlotsRespectsMaximumDecodeStreams(t *testing.T) {
	e, _ := newTestEngine()
	e.Enqueue(QueueEntry{ID: 1, FilePath: "a.wav", PlayOrder: 1, FileDuration: 1000})
	e.Enqueue(QueueEntry{ID: 2, FilePath: "b.wav", PlayOrder: 2, FileDuration: 1000})
	e.Enqueue(QueueEntry{ID: 3, FilePath: "c.wav", PlayOrder: 3, FileDuration: 1000})

	e.mu.Lock()
	slotCount := len(e.slots)
	e.mu.Unlock()
	if slotCount > 2 {
		t.Fatalf("expected at most 2 active slots (MaximumDecodeStreams), got %d", slotCount)
	}
}

func TestPlayPausePublishPlaybackStateChanged(t *testing.T) {
	e, _ := newTestEngine()
	sub := e.bus.Subscribe()
	defer sub.Close()

	if e.IsPlaying() {
		t.Fatal("expected engine to start not playing")
	}

	e.Play()
	if !e.IsPlaying() {
		t.Fatal("expected IsPlaying true after Play")
	}
	if evt := <-sub.Events(); evt.Kind != "PlaybackStateChanged" {
		t.Fatalf("expected PlaybackStateChanged, got %s", evt.Kind)
	}

	e.Pause()
	if e.IsPlaying() {
		t.Fatal("expected IsPlaying false after Pause")
	}
	if evt := <-sub.Events(); evt.Kind != "PlaybackStateChanged" {
		t.Fatalf("expected PlaybackStateChanged, got %s", evt.Kind)
	}
}

func TestStopEmptiesQueueAndStore(t *testing.T) {
	e, store := newTestEngine()
	e.Enqueue(QueueEntry{ID: 1, FilePath: "a.wav", PlayOrder: 1, FileDuration: 1000})
	e.Enqueue(QueueEntry{ID: 2, FilePath: "b.wav", PlayOrder: 2, FileDuration: 1000})
	e.Play()

	e.Stop()

	if e.IsPlaying() {
		t.Fatal("expected IsPlaying false after Stop")
	}
	if len(e.Queue()) != 0 {
		t.Fatalf("expected empty queue after Stop, got %+v", e.Queue())
	}
	if len(store.deleted) != 2 {
		t.Fatalf("expected both entries deleted from store, got %+v", store.deleted)
	}
}
