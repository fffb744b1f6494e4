// Package fader applies a 6-point fade envelope to chunks of interleaved
// stereo samples, advancing an internal tick cursor as it goes (§4.2).
package fader

import (
	"math"

	"github.com/mangocats/wkmp/internal/ticks"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

// Curve names the shape applied within a fade-in or fade-out region.
type Curve int

const (
	Linear Curve = iota
	Exponential
	Logarithmic
	CosineS
)

// String names the curve the way it is persisted (§3 Passage.fade_in_curve
// / fade_out_curve).
func (c Curve) String() string {
	switch c {
	case Exponential:
		return "exponential"
	case Logarithmic:
		return "logarithmic"
	case CosineS:
		return "cosine-S"
	default:
		return "linear"
	}
}

// ParseCurve is the inverse of String, defaulting to Linear for an unknown
// or empty name.
func ParseCurve(name string) Curve {
	switch name {
	case "exponential":
		return Exponential
	case "logarithmic":
		return Logarithmic
	case "cosine-S":
		return CosineS
	default:
		return Linear
	}
}

// apply maps progress x in [0,1] to gain y in [0,1] for the given curve.
func apply(curve Curve, x float64) float64 {
	switch curve {
	case Exponential:
		return x * x
	case Logarithmic:
		return math.Sqrt(x)
	case CosineS:
		return (1 - math.Cos(math.Pi*x)) / 2
	default: // Linear
		return x
	}
}

// ErrInvalidSampleCount is returned when Apply is given an odd number of
// samples, which cannot represent a whole number of interleaved stereo
// frames.
var ErrInvalidSampleCount = wkmperrors.New(wkmperrors.NewStd("odd sample count for interleaved stereo chunk")).
	Component("fader").
	Category(wkmperrors.CategoryFader).
	Build()

// Envelope is the six tick markers bounding a passage's fade regions, in
// non-decreasing order: PassageStart ≤ FadeInStart ≤ LeadInStart ≤
// LeadOutStart ≤ FadeOutStart ≤ PassageEnd.
type Envelope struct {
	PassageStart  ticks.Tick
	FadeInStart   ticks.Tick
	LeadInStart   ticks.Tick
	LeadOutStart  ticks.Tick
	FadeOutStart  ticks.Tick
	PassageEnd    ticks.Tick
	FadeInCurve   Curve
	FadeOutCurve  Curve
}

// Fader applies an Envelope to successive chunks of samples at a fixed
// sample rate, tracking playback position as a tick cursor that only ever
// advances forward.
type Fader struct {
	env        Envelope
	sampleRate int
	cursor     ticks.Tick
}

// New creates a Fader starting its cursor at env.PassageStart.
func New(env Envelope, sampleRate int) *Fader {
	return &Fader{env: env, sampleRate: sampleRate, cursor: env.PassageStart}
}

// Cursor returns the current tick position.
func (f *Fader) Cursor() ticks.Tick { return f.cursor }

// Done reports whether the cursor has reached or passed PassageEnd.
func (f *Fader) Done() bool { return f.cursor >= f.env.PassageEnd }

// gainAt returns the envelope gain for tick position t.
func (f *Fader) gainAt(t ticks.Tick) float64 {
	e := f.env
	switch {
	case t < e.PassageStart:
		return 0
	case t < e.FadeInStart:
		return 0
	case t < e.LeadInStart:
		span := float64(e.LeadInStart - e.FadeInStart)
		if span <= 0 {
			return 1
		}
		progress := float64(t-e.FadeInStart) / span
		return apply(e.FadeInCurve, progress)
	case t < e.LeadOutStart:
		return 1
	case t < e.PassageEnd:
		span := float64(e.PassageEnd - e.LeadOutStart)
		if span <= 0 {
			return 0
		}
		progress := float64(t-e.LeadOutStart) / span
		return apply(e.FadeOutCurve, 1-progress)
	default:
		return 0
	}
}

// Apply scales samples (interleaved stereo f32) in place according to the
// envelope at the fader's current cursor position, advancing the cursor by
// one frame's ticks for each frame before PassageEnd. Frames at or beyond
// PassageEnd are zeroed and do not advance the cursor.
func (f *Fader) Apply(samples []float32) (framesApplied int, err error) {
	if len(samples)%2 != 0 {
		return 0, ErrInvalidSampleCount
	}

	perSample := ticks.PerSample(f.sampleRate)
	frames := len(samples) / 2
	t := f.cursor

	for i := 0; i < frames; i++ {
		if t >= f.env.PassageEnd {
			samples[2*i] = 0
			samples[2*i+1] = 0
			continue
		}
		gain := float32(f.gainAt(t))
		samples[2*i] *= gain
		samples[2*i+1] *= gain
		t += ticks.Tick(perSample)
		framesApplied++
	}

	f.cursor = t
	return framesApplied, nil
}

// Reset rewinds the cursor to the envelope's PassageStart, for seeking.
func (f *Fader) Reset() {
	f.cursor = f.env.PassageStart
}

// SeekTo moves the cursor directly to tick t, used when a chain seeks its
// decoder to a non-zero start position.
func (f *Fader) SeekTo(t ticks.Tick) {
	f.cursor = t
}
