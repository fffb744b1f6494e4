package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mangocats/wkmp/internal/eventbus"
)

// AudioCallbackMonitor tracks the real-time audio callback's health using
// only atomic counters in the hot path (no logging, no allocation); a
// separate goroutine polls the counters every pollInterval and emits
// events (§4.9).
type AudioCallbackMonitor struct {
	bus          *eventbus.Bus
	expectedGap  time.Duration
	pollInterval time.Duration

	callbackCount atomic.Uint64
	underruns     atomic.Uint64
	lastCallback  atomic.Int64 // unix nanos, written only from the RT callback
	lastGapNanos  atomic.Int64
}

// NewAudioCallbackMonitor creates a monitor expecting callbacks roughly
// every expectedGap (derived from the audio device's buffer size).
func NewAudioCallbackMonitor(bus *eventbus.Bus, expectedGap time.Duration) *AudioCallbackMonitor {
	return &AudioCallbackMonitor{
		bus:          bus,
		expectedGap:  expectedGap,
		pollInterval: 100 * time.Millisecond,
	}
}

// OnCallback is invoked from the real-time audio callback itself. It must
// never block, allocate, or log.
func (m *AudioCallbackMonitor) OnCallback(now time.Time, underran bool) {
	prev := m.lastCallback.Swap(now.UnixNano())
	if prev != 0 {
		m.lastGapNanos.Store(now.UnixNano() - prev)
	}
	m.callbackCount.Add(1)
	if underran {
		m.underruns.Add(1)
	}
}

// Run polls the counters every pollInterval and emits AudioCallbackUnderrun
// and AudioCallbackIrregular events until ctx is cancelled. Irregular means
// the actual callback interval deviated from the expected one by more than
// 2ms (§4.9).
func (m *AudioCallbackMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var lastUnderruns uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			underruns := m.underruns.Load()
			if underruns > lastUnderruns {
				m.bus.Publish("AudioCallbackUnderrun", map[string]uint64{
					"count": underruns - lastUnderruns,
				})
				lastUnderruns = underruns
			}

			gap := time.Duration(m.lastGapNanos.Load())
			if gap > 0 {
				deviation := gap - m.expectedGap
				if deviation < 0 {
					deviation = -deviation
				}
				if deviation > 2*time.Millisecond {
					m.bus.Publish("AudioCallbackIrregular", map[string]int64{
						"expected_us": m.expectedGap.Microseconds(),
						"actual_us":   gap.Microseconds(),
					})
				}
			}
		}
	}
}

// CallbackCount returns the total number of RT callbacks observed.
func (m *AudioCallbackMonitor) CallbackCount() uint64 { return m.callbackCount.Load() }

// Underruns returns the total number of RT callbacks that reported an
// underrun.
func (m *AudioCallbackMonitor) Underruns() uint64 { return m.underruns.Load() }
