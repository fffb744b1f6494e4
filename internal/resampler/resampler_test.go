package resampler

import "testing"

func TestEqualRatesIsZeroCopyPassthrough(t *testing.T) {
	r := New(44100, 44100)
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := r.Process(in)
	if &out[0] != &in[0] {
		t.Fatal("expected passthrough to return the same backing array")
	}
}

func TestDownsampleProducesFewerFrames(t *testing.T) {
	r := New(48000, 44100)
	frames := 48000 // 1 second
	in := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		in[2*i] = float32(i % 2)
		in[2*i+1] = float32(i % 2)
	}
	out := r.Process(in)
	gotFrames := len(out) / 2
	// Expect roughly 44100 output frames for 48000 input at this ratio.
	if gotFrames < 43000 || gotFrames > 45000 {
		t.Fatalf("got %d output frames, expected close to 44100", gotFrames)
	}
}

func TestStateCarriesAcrossChunksWithoutDiscontinuity(t *testing.T) {
	r := New(48000, 44100)
	// A constant DC signal should resample to the same constant, regardless
	// of chunk boundaries, proving no phase discontinuity is introduced.
	chunk := make([]float32, 4800*2) // 100ms chunks
	for i := range chunk {
		chunk[i] = 0.5
	}

	for c := 0; c < 5; c++ {
		out := r.Process(chunk)
		for i, s := range out {
			if s < 0.499 || s > 0.501 {
				t.Fatalf("chunk %d sample %d = %f, want ~0.5 (DC signal)", c, i, s)
			}
		}
	}
}

func TestUpsampleProducesMoreFrames(t *testing.T) {
	r := New(44100, 48000)
	frames := 44100
	in := make([]float32, frames*2)
	out := r.Process(in)
	gotFrames := len(out) / 2
	if gotFrames < 47000 || gotFrames > 49000 {
		t.Fatalf("got %d output frames, expected close to 48000", gotFrames)
	}
}

func BenchmarkDownsample48to44(b *testing.B) {
	r := New(48000, 44100)
	chunk := make([]float32, 48000*2) // 1 second chunk
	for i := range chunk {
		chunk[i] = float32(i%1000) / 1000
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Process(chunk)
	}
}

func BenchmarkDownsample192to44(b *testing.B) {
	r := New(192000, 44100)
	chunk := make([]float32, 192000*2) // 1 second chunk
	for i := range chunk {
		chunk[i] = float32(i%1000) / 1000
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Process(chunk)
	}
}
