package engine

import (
	"testing"

	"github.com/mangocats/wkmp/internal/fader"
	"github.com/mangocats/wkmp/internal/ticks"
)

func tickPtr(t ticks.Tick) *ticks.Tick { return &t }

func TestSystemDefaultsWhenNoOverridesOrPassage(t *testing.T) {
	duration := ticks.Tick(1000)
	env := ResolveTiming(nil, nil, duration)
	if env.PassageStart != 0 {
		t.Fatalf("start = %d, want 0", env.PassageStart)
	}
	if env.PassageEnd != duration {
		t.Fatalf("end = %d, want file duration %d", env.PassageEnd, duration)
	}
	if env.LeadInStart != env.PassageStart {
		t.Fatalf("lead_in default should equal start")
	}
	if env.LeadOutStart != env.PassageEnd {
		t.Fatalf("lead_out default should equal end")
	}
}

func TestPassageDefaultsOverrideSystemDefaults(t *testing.T) {
	passage := &TimingOverride{Start: tickPtr(100), End: tickPtr(900)}
	env := ResolveTiming(nil, passage, ticks.Tick(1000))
	if env.PassageStart != 100 {
		t.Fatalf("start = %d, want passage default 100", env.PassageStart)
	}
	if env.PassageEnd != 900 {
		t.Fatalf("end = %d, want passage default 900", env.PassageEnd)
	}
}

func TestExplicitOverrideWinsOverPassageDefault(t *testing.T) {
	passage := &TimingOverride{Start: tickPtr(100)}
	override := &TimingOverride{Start: tickPtr(50)}
	env := ResolveTiming(override, passage, ticks.Tick(1000))
	if env.PassageStart != 50 {
		t.Fatalf("start = %d, want explicit override 50", env.PassageStart)
	}
}

func TestCurveDefaultsToLinear(t *testing.T) {
	env := ResolveTiming(nil, nil, ticks.Tick(1000))
	if env.FadeInCurve != fader.Linear || env.FadeOutCurve != fader.Linear {
		t.Fatalf("expected linear default curves, got %v/%v", env.FadeInCurve, env.FadeOutCurve)
	}
}

func TestExplicitCurveOverride(t *testing.T) {
	cosine := fader.CosineS
	override := &TimingOverride{FadeInCurve: &cosine}
	env := ResolveTiming(override, nil, ticks.Tick(1000))
	if env.FadeInCurve != fader.CosineS {
		t.Fatalf("expected explicit cosine-S override, got %v", env.FadeInCurve)
	}
}
