// Package observability exposes WKMP's prometheus metrics: ring-buffer
// occupancy, callback underrun/overrun counters, decode-worker queue depth,
// and import-pipeline phase durations. New registers the collectors with a
// caller-supplied prometheus.Registerer. No other package in this
// repository constructs a Metrics or records into it, and no HTTP route
// serves these collectors.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the process-wide set of WKMP prometheus collectors.
type Metrics struct {
	RingBufferOccupancy   *prometheus.GaugeVec
	RingBufferOverruns    *prometheus.CounterVec
	RingBufferUnderruns   *prometheus.CounterVec

	DecodeQueueDepth      prometheus.Gauge
	DecodeChunksProcessed *prometheus.CounterVec

	AudioCallbackUnderruns prometheus.Counter
	AudioCallbackIrregular prometheus.Counter

	ImportPhaseDuration *prometheus.HistogramVec
	ImportFilesTotal    *prometheus.CounterVec
}

// New constructs and registers every collector against reg. Passing a
// fresh prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps tests hermetic.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RingBufferOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wkmp",
			Subsystem: "ringbuffer",
			Name:      "occupancy_frames",
			Help:      "Current occupied frame count of a ring buffer, labeled by owner.",
		}, []string{"owner"}),
		RingBufferOverruns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wkmp",
			Subsystem: "ringbuffer",
			Name:      "overruns_total",
			Help:      "Pushes attempted against a full ring buffer, labeled by owner.",
		}, []string{"owner"}),
		RingBufferUnderruns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wkmp",
			Subsystem: "ringbuffer",
			Name:      "underruns_total",
			Help:      "Pops attempted against an empty ring buffer, labeled by owner.",
		}, []string{"owner"}),

		DecodeQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wkmp",
			Subsystem: "decoder",
			Name:      "queue_depth",
			Help:      "Number of chains currently pending in the decoder worker's schedule.",
		}),
		DecodeChunksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wkmp",
			Subsystem: "decoder",
			Name:      "chunks_processed_total",
			Help:      "Decode chunks processed, labeled by result kind (processed/buffer_full/finished).",
		}, []string{"result"}),

		AudioCallbackUnderruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wkmp",
			Subsystem: "engine",
			Name:      "audio_callback_underruns_total",
			Help:      "Audio callback invocations that had no output frames ready.",
		}),
		AudioCallbackIrregular: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wkmp",
			Subsystem: "engine",
			Name:      "audio_callback_irregular_total",
			Help:      "Audio callback invocations whose inter-call gap deviated more than 2ms from expected.",
		}),

		ImportPhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wkmp",
			Subsystem: "import",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each import pipeline phase, labeled by phase name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		ImportFilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wkmp",
			Subsystem: "import",
			Name:      "files_total",
			Help:      "Files completed by the import pipeline, labeled by outcome (success/failed).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.RingBufferOccupancy, m.RingBufferOverruns, m.RingBufferUnderruns,
		m.DecodeQueueDepth, m.DecodeChunksProcessed,
		m.AudioCallbackUnderruns, m.AudioCallbackIrregular,
		m.ImportPhaseDuration, m.ImportFilesTotal,
	)
	return m
}
