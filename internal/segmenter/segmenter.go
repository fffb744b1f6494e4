// Package segmenter implements §4.10 Phase 4: silence-based segmentation of
// a decoded file into one or more Passages. A file with no usable silence
// produces a single whole-file passage.
package segmenter

import (
	"math"

	"github.com/mangocats/wkmp/internal/ticks"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

// Region is a detected span of near-silence, in ticks from the start of the
// decoded buffer.
type Region struct {
	Start ticks.Tick
	End   ticks.Tick
}

// Duration returns the region's length.
func (r Region) Duration() ticks.Tick {
	return r.End - r.Start
}

// Boundary is a single whole-file-relative passage span. It carries only
// Start and End; the detector places no fade or lead points.
type Boundary struct {
	Start ticks.Tick
	End   ticks.Tick
}

// Detector finds silence regions by RMS-over-window thresholding and turns
// the gaps between them into passage boundaries.
type Detector struct {
	thresholdDB    float64
	minDuration    ticks.Tick
	windowSamples  int
}

// Option configures a Detector.
type Option func(*Detector) error

// New creates a Detector with WKMP's defaults: -60dB threshold, 0.5s
// minimum silence duration, and a 100ms RMS window (at the detector's
// configured sample rate, via WithSampleRate).
func New(opts ...Option) (*Detector, error) {
	d := &Detector{
		thresholdDB:   -60.0,
		minDuration:   ticks.FromSeconds(0.5),
		windowSamples: 4410, // 100ms at 44.1kHz; rescaled by WithSampleRate
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// WithThresholdDB sets the silence threshold. Must be negative.
func WithThresholdDB(db float64) Option {
	return func(d *Detector) error {
		if db > 0 {
			return wkmperrors.Newf("silence threshold must be negative dB, got %.1f", db).
				Category(wkmperrors.CategoryInput).Build()
		}
		d.thresholdDB = db
		return nil
	}
}

// WithMinDuration sets the minimum silence duration to report.
func WithMinDuration(d ticks.Tick) Option {
	return func(det *Detector) error {
		if d < 0 {
			return wkmperrors.Newf("minimum silence duration must be >= 0, got %d", d).
				Category(wkmperrors.CategoryInput).Build()
		}
		det.minDuration = d
		return nil
	}
}

// WithSampleRate rescales the RMS window to 100ms at the given sample rate.
func WithSampleRate(sampleRate int) Option {
	return func(d *Detector) error {
		if sampleRate <= 0 {
			return wkmperrors.Newf("sample rate must be positive, got %d", sampleRate).
				Category(wkmperrors.CategoryInput).Build()
		}
		d.windowSamples = sampleRate / 10
		if d.windowSamples < 1 {
			d.windowSamples = 1
		}
		return nil
	}
}

// DetectSilence scans mono-reduced samples (one value per frame, any
// channel mixdown already applied by the caller) for near-silent regions.
func (d *Detector) DetectSilence(samples []float32, sampleRate int) []Region {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}

	thresholdLinear := dbToLinear(d.thresholdDB)
	perSample := ticks.PerSample(sampleRate)

	var regions []Region
	inSilence := false
	var silenceStartSample int

	windowCount := (len(samples) + d.windowSamples - 1) / d.windowSamples
	for w := 0; w < windowCount; w++ {
		lo := w * d.windowSamples
		hi := lo + d.windowSamples
		if hi > len(samples) {
			hi = len(samples)
		}
		rms := calculateRMS(samples[lo:hi])
		samplePos := lo

		if rms < thresholdLinear {
			if !inSilence {
				inSilence = true
				silenceStartSample = samplePos
			}
		} else if inSilence {
			d.closeRegion(&regions, silenceStartSample, samplePos, perSample)
			inSilence = false
		}
	}

	if inSilence {
		d.closeRegion(&regions, silenceStartSample, len(samples), perSample)
	}

	return regions
}

func (d *Detector) closeRegion(regions *[]Region, startSample, endSample int, perSample int64) {
	durationTicks := ticks.Tick(int64(endSample-startSample) * perSample)
	if durationTicks < d.minDuration {
		return
	}
	*regions = append(*regions, Region{
		Start: ticks.Tick(int64(startSample) * perSample),
		End:   ticks.Tick(int64(endSample) * perSample),
	})
}

// Segment turns detected silence regions into passage boundaries spanning
// [0, fileDuration). A silence region becomes the gap between two
// passages; leading/trailing silence is trimmed from the adjacent
// passage. A file with no usable silence yields one whole-file boundary.
func (d *Detector) Segment(regions []Region, fileDuration ticks.Tick) []Boundary {
	if fileDuration <= 0 {
		return nil
	}
	if len(regions) == 0 {
		return []Boundary{{Start: 0, End: fileDuration}}
	}

	var boundaries []Boundary
	cursor := ticks.Tick(0)
	for _, r := range regions {
		if r.Start > cursor {
			boundaries = append(boundaries, Boundary{Start: cursor, End: r.Start})
		}
		cursor = r.End
	}
	if cursor < fileDuration {
		boundaries = append(boundaries, Boundary{Start: cursor, End: fileDuration})
	}

	if len(boundaries) == 0 {
		return []Boundary{{Start: 0, End: fileDuration}}
	}
	return boundaries
}

func calculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
