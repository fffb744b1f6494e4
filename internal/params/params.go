// Package params implements the database-backed, range-validated parameter
// registry of §6.2 — distinct from internal/conf's file/env ambient
// settings. Values are read far more often than they are written (every
// mixer tick consults working_sample_rate-derived quantities), so reads are
// a lock-free atomic pointer load against an immutable snapshot; writes
// rebuild the snapshot and swap it in.
package params

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

// Key names a single registry entry. These are the canonical column values
// stored in the Setting table.
type Key string

const (
	VolumeLevel                    Key = "volume_level"
	WorkingSampleRate               Key = "working_sample_rate"
	OutputRingbufferSize            Key = "output_ringbuffer_size"
	MaximumDecodeStreams            Key = "maximum_decode_streams"
	DecodeWorkPeriodMs              Key = "decode_work_period"
	ChunkDurationMs                 Key = "chunk_duration_ms"
	PlayoutRingbufferSize           Key = "playout_ringbuffer_size"
	PlayoutRingbufferHeadroom       Key = "playout_ringbuffer_headroom"
	DecoderResumeHysteresisSamples  Key = "decoder_resume_hysteresis_samples"
	MixerMinStartLevel              Key = "mixer_min_start_level"
	PauseDecayFactor                Key = "pause_decay_factor"
	PauseDecayFloor                 Key = "pause_decay_floor"
	AudioBufferSize                 Key = "audio_buffer_size"
	MixerCheckIntervalMs            Key = "mixer_check_interval_ms"
)

// definition describes one registry entry's valid range, default, and
// whether accepted values are truncated toward zero to an integer.
type definition struct {
	min, max, def float64
	isInt         bool
}

var registry = map[Key]definition{
	VolumeLevel:                    {0.0, 1.0, 0.5, false},
	WorkingSampleRate:               {8000, 192000, 44100, true},
	OutputRingbufferSize:            {2048, 262144, 8192, true},
	MaximumDecodeStreams:            {1, 32, 12, true},
	DecodeWorkPeriodMs:              {100, 60000, 5000, true},
	ChunkDurationMs:                 {250, 5000, 1000, true},
	PlayoutRingbufferSize:           {44100, 1e7, 661941, true},
	PlayoutRingbufferHeadroom:       {2205, 88200, 4410, true},
	DecoderResumeHysteresisSamples:  {2205, 441000, 44100, true},
	MixerMinStartLevel:              {2205, 88200, 22050, true},
	PauseDecayFactor:                {0.5, 0.99, 0.95, false},
	PauseDecayFloor:                 {0.00001, 0.001, 0.0001778, false},
	AudioBufferSize:                 {512, 8192, 2208, true},
	MixerCheckIntervalMs:            {5, 100, 10, true},
}

// Store persists and loads raw string values. It is implemented by
// internal/datastore against the Setting table; defined here (rather than
// imported from datastore) to keep params decoupled from the ORM layer.
type Store interface {
	LoadAll(ctx context.Context) (map[string]string, error)
	SaveValue(ctx context.Context, key, value string) error
}

// Registry is a many-readers/one-writer parameter snapshot. The zero value
// is not usable; construct with New.
type Registry struct {
	store    Store
	snapshot atomic.Pointer[map[Key]float64]
}

// New constructs a Registry backed by store, pre-populated with defaults so
// Get is safe to call before the first Load.
func New(store Store) *Registry {
	r := &Registry{store: store}
	defaults := make(map[Key]float64, len(registry))
	for k, d := range registry {
		defaults[k] = d.def
	}
	r.snapshot.Store(&defaults)
	return r
}

// Load reads every key from the store, validates it against its declared
// range, and atomically swaps in a new snapshot. Invalid or missing values
// fall back to their default with a logged warning, per §6.2.
func (r *Registry) Load(ctx context.Context) error {
	raw, err := r.store.LoadAll(ctx)
	if err != nil {
		return wkmperrors.New(err).
			Component("params").
			Category(wkmperrors.CategoryDatabase).
			Context("operation", "load-all").
			Build()
	}

	next := make(map[Key]float64, len(registry))
	for key, def := range registry {
		val, ok := raw[string(key)]
		if !ok {
			logging.ForService("params").Warn("missing parameter value, using default",
				"key", key, "default", def.def)
			next[key] = def.def
			continue
		}
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil || parsed < def.min || parsed > def.max {
			logging.ForService("params").Warn("invalid parameter value, using default",
				"key", key, "value", val, "min", def.min, "max", def.max, "default", def.def)
			next[key] = def.def
			continue
		}
		if def.isInt {
			parsed = float64(int64(parsed))
		}
		next[key] = parsed
	}
	r.snapshot.Store(&next)
	return nil
}

// Set validates value against key's declared range, persists it, and
// refreshes the in-memory snapshot for that key only.
func (r *Registry) Set(ctx context.Context, key Key, value float64) error {
	def, ok := registry[key]
	if !ok {
		return wkmperrors.New(fmt.Errorf("unknown parameter %q", key)).
			Component("params").
			Category(wkmperrors.CategoryInput).
			Build()
	}
	if value < def.min || value > def.max {
		return wkmperrors.New(fmt.Errorf("value %v for %q out of range [%v, %v]", value, key, def.min, def.max)).
			Component("params").
			Category(wkmperrors.CategoryInput).
			Context("key", string(key)).
			Build()
	}
	if def.isInt {
		value = float64(int64(value))
	}

	serialized := strconv.FormatFloat(value, 'f', -1, 64)
	if err := r.store.SaveValue(ctx, string(key), serialized); err != nil {
		return wkmperrors.New(err).
			Component("params").
			Category(wkmperrors.CategoryDatabase).
			Context("key", string(key)).
			Build()
	}

	current := r.snapshot.Load()
	next := make(map[Key]float64, len(*current))
	for k, v := range *current {
		next[k] = v
	}
	next[key] = value
	r.snapshot.Store(&next)
	return nil
}

// Get returns the current value for key, or its default if key is unknown.
func (r *Registry) Get(key Key) float64 {
	snap := r.snapshot.Load()
	if v, ok := (*snap)[key]; ok {
		return v
	}
	return registry[key].def
}

// GetInt returns Get(key) truncated to an int.
func (r *Registry) GetInt(key Key) int {
	return int(r.Get(key))
}

// Defaults exposes each key's declared range and default, for use by the
// HTTP control surface's parameter-introspection responses.
func Defaults() map[Key]struct{ Min, Max, Default float64 } {
	out := make(map[Key]struct{ Min, Max, Default float64 }, len(registry))
	for k, d := range registry {
		out[k] = struct{ Min, Max, Default float64 }{d.min, d.max, d.def}
	}
	return out
}
