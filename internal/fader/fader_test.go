package fader

import (
	"math"
	"testing"

	"github.com/mangocats/wkmp/internal/ticks"
)

func stereoEnvelope(sampleRate int) Envelope {
	return Envelope{
		PassageStart: 0,
		FadeInStart:  0,
		LeadInStart:  ticks.Tick(ticks.Rate), // 1 second fade-in
		LeadOutStart: ticks.Tick(ticks.Rate * 3),
		FadeOutStart: ticks.Tick(ticks.Rate * 3),
		PassageEnd:   ticks.Tick(ticks.Rate * 4), // 1 second fade-out
		FadeInCurve:  Linear,
		FadeOutCurve: Linear,
	}
}

func TestApplyRejectsOddSampleCount(t *testing.T) {
	f := New(stereoEnvelope(44100), 44100)
	if _, err := f.Apply(make([]float32, 3)); err == nil {
		t.Fatal("expected an error for an odd sample count")
	}
}

func TestGainNeverExceedsInputMagnitude(t *testing.T) {
	f := New(stereoEnvelope(44100), 44100)
	samples := make([]float32, 2*44100)
	for i := range samples {
		samples[i] = 1.0
	}
	if _, err := f.Apply(samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range samples {
		if math.Abs(float64(s)) > 1.0+1e-9 {
			t.Fatalf("sample %d = %f exceeds input magnitude 1.0", i, s)
		}
	}
}

func TestZeroOutsideEnvelopeBounds(t *testing.T) {
	env := stereoEnvelope(44100)
	env.PassageStart = ticks.Tick(ticks.Rate) // passage doesn't start until t=1s
	f := New(env, 44100)
	f.SeekTo(0)

	samples := make([]float32, 2*100)
	for i := range samples {
		samples[i] = 1.0
	}
	if _, err := f.Apply(samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d = %f, expected 0 before PassageStart", i, s)
		}
	}
}

func TestFadeInReachesUnityAtLeadIn(t *testing.T) {
	f := New(stereoEnvelope(44100), 44100)
	if g := f.gainAt(0); g != 0 {
		t.Fatalf("gain at fade-in start = %f, want 0", g)
	}
	if g := f.gainAt(ticks.Tick(ticks.Rate)); g != 1 {
		t.Fatalf("gain at lead-in start = %f, want 1", g)
	}
}

func TestCursorAdvancesByFrameCount(t *testing.T) {
	f := New(stereoEnvelope(44100), 44100)
	samples := make([]float32, 2*1000)
	before := f.Cursor()
	if _, err := f.Apply(samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := before + ticks.Tick(ticks.PerSample(44100)*1000)
	if f.Cursor() != want {
		t.Fatalf("cursor = %d, want %d", f.Cursor(), want)
	}
}

func TestDoneAfterPassageEnd(t *testing.T) {
	env := stereoEnvelope(44100)
	env.PassageEnd = ticks.Tick(100)
	f := New(env, 44100)
	samples := make([]float32, 2*44100)
	if _, err := f.Apply(samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Done() {
		t.Fatal("expected fader to be done after passing PassageEnd")
	}
}

func TestCosineSCurveMidpoint(t *testing.T) {
	got := apply(CosineS, 0.5)
	want := 0.5
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("cosine-S(0.5) = %f, want %f", got, want)
	}
}

func TestExponentialAndLogarithmicCurvesAreInverses(t *testing.T) {
	x := 0.36
	exp := apply(Exponential, math.Sqrt(x))
	log := apply(Logarithmic, x*x)
	if math.Abs(exp-x) > 1e-9 {
		t.Fatalf("exponential(sqrt(x)) = %f, want %f", exp, x)
	}
	if math.Abs(log-x) > 1e-9 {
		t.Fatalf("logarithmic(x^2) = %f, want %f", log, x)
	}
}
