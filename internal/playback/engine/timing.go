package engine

import (
	"github.com/mangocats/wkmp/internal/fader"
	"github.com/mangocats/wkmp/internal/ticks"
)

// TimingOverride holds optional per-entry or per-passage timing fields.
// A nil pointer means "not specified at this level", letting ResolveTiming
// apply the §4.9 precedence: explicit override > passage defaults > system
// defaults.
type TimingOverride struct {
	Start    *ticks.Tick
	End      *ticks.Tick
	LeadIn   *ticks.Tick
	LeadOut  *ticks.Tick
	FadeIn   *ticks.Tick
	FadeOut  *ticks.Tick
	FadeInCurve  *fader.Curve
	FadeOutCurve *fader.Curve
}

func firstNonNilTick(candidates ...*ticks.Tick) *ticks.Tick {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func firstNonNilCurve(candidates ...*fader.Curve) *fader.Curve {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

// ResolveTiming applies the precedence rule of §4.9 — explicit override >
// passage defaults > system defaults — to produce a concrete fade
// envelope for one queue entry. passageDefaults may be nil when the entry
// has no associated passage. fileDuration bounds the system-default end.
func ResolveTiming(override, passageDefaults *TimingOverride, fileDuration ticks.Tick) fader.Envelope {
	if override == nil {
		override = &TimingOverride{}
	}
	if passageDefaults == nil {
		passageDefaults = &TimingOverride{}
	}

	zero := ticks.Tick(0)
	linear := fader.Linear

	start := derefOr(firstNonNilTick(override.Start, passageDefaults.Start), zero)
	end := derefOr(firstNonNilTick(override.End, passageDefaults.End), fileDuration)
	leadIn := derefOr(firstNonNilTick(override.LeadIn, passageDefaults.LeadIn), start)
	leadOut := derefOr(firstNonNilTick(override.LeadOut, passageDefaults.LeadOut), end)
	fadeIn := derefOr(firstNonNilTick(override.FadeIn, passageDefaults.FadeIn), start)
	fadeOut := derefOr(firstNonNilTick(override.FadeOut, passageDefaults.FadeOut), end)
	fadeInCurve := derefCurveOr(firstNonNilCurve(override.FadeInCurve, passageDefaults.FadeInCurve), linear)
	fadeOutCurve := derefCurveOr(firstNonNilCurve(override.FadeOutCurve, passageDefaults.FadeOutCurve), linear)

	return fader.Envelope{
		PassageStart: start,
		FadeInStart:  fadeIn,
		LeadInStart:  leadIn,
		LeadOutStart: leadOut,
		FadeOutStart: fadeOut,
		PassageEnd:   end,
		FadeInCurve:  fadeInCurve,
		FadeOutCurve: fadeOutCurve,
	}
}

func derefOr(t *ticks.Tick, fallback ticks.Tick) ticks.Tick {
	if t == nil {
		return fallback
	}
	return *t
}

func derefCurveOr(c *fader.Curve, fallback fader.Curve) fader.Curve {
	if c == nil {
		return fallback
	}
	return *c
}
