// Package resampler converts interleaved stereo f32 audio between sample
// rates, preserving filter state across chunks so chunk boundaries never
// introduce phase discontinuities (§4.3).
package resampler

// Resampler performs stateful linear-interpolation resampling from InRate to
// OutRate. When the rates are equal, Process is a zero-copy passthrough.
type Resampler struct {
	inRate, outRate int

	// pos is the fractional read position into the *next* Process call's
	// input, carried across calls. It may be negative, in which case it
	// refers to prevL/prevR (the last frame of the previous chunk) rather
	// than the current chunk's input.
	pos float64

	prevL, prevR float32
	hasPrev      bool
}

// New creates a Resampler converting from inRate to outRate.
func New(inRate, outRate int) *Resampler {
	return &Resampler{inRate: inRate, outRate: outRate}
}

// InRate returns the configured input sample rate.
func (r *Resampler) InRate() int { return r.inRate }

// OutRate returns the configured output sample rate.
func (r *Resampler) OutRate() int { return r.outRate }

// Process resamples one chunk of interleaved stereo f32 samples. The
// returned slice is newly allocated except in the passthrough case (equal
// rates), where the input slice is returned unchanged.
func (r *Resampler) Process(in []float32) []float32 {
	if r.inRate == r.outRate {
		return in
	}

	frames := len(in) / 2
	if frames == 0 {
		return nil
	}

	step := float64(r.inRate) / float64(r.outRate)
	out := make([]float32, 0, int(float64(frames)/step)+2)

	for {
		idx := floor(r.pos)
		frac := r.pos - float64(idx)
		i := int(idx)
		if i+1 >= frames {
			break
		}

		var l0, rr0 float32
		if i < 0 {
			if !r.hasPrev {
				// No prior chunk: hold the first sample instead of
				// interpolating against silence.
				l0, rr0 = in[0], in[1]
			} else {
				l0, rr0 = r.prevL, r.prevR
			}
		} else {
			l0, rr0 = in[2*i], in[2*i+1]
		}
		l1, rr1 := in[2*(i+1)], in[2*(i+1)+1]

		fracF := float32(frac)
		out = append(out, l0+(l1-l0)*fracF, rr0+(rr1-rr0)*fracF)
		r.pos += step
	}

	r.pos -= float64(frames)
	r.prevL, r.prevR = in[2*(frames-1)], in[2*(frames-1)+1]
	r.hasPrev = true

	return out
}

// Reset clears carried filter state, used when a chain seeks its decoder.
func (r *Resampler) Reset() {
	r.pos = 0
	r.hasPrev = false
}

func floor(x float64) int64 {
	i := int64(x)
	if x < 0 && float64(i) != x {
		i--
	}
	return i
}
