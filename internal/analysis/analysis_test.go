package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func sine(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 3 + math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func TestDominantFrequency(t *testing.T) {
	f, amp, err := DominantFrequency(sine(5, 100, 200), 100)
	if err != nil {
		t.Fatalf("dominant frequency: %v", err)
	}
	if math.Abs(f-5) > 1e-9 {
		t.Errorf("expected 5 Hz, got %f", f)
	}
	// A unit sine splits its energy between the two sides of the spectrum.
	if math.Abs(amp-0.5) > 1e-6 {
		t.Errorf("expected amplitude 0.5, got %f", amp)
	}
}

func TestSpectrumRemovesMean(t *testing.T) {
	_, power, err := Spectrum([]float64{4, 4, 4, 4, 4, 4}, 10)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	for i, p := range power {
		if p > 1e-12 {
			t.Errorf("expected no power for a constant signal, bin %d has %g", i, p)
		}
	}
}

func TestSpectrumErrors(t *testing.T) {
	if _, _, err := Spectrum([]float64{1, 2}, 10); !errors.Is(err, ErrShortSignal) {
		t.Errorf("expected ErrShortSignal, got %v", err)
	}
	if _, _, err := Spectrum([]float64{1, 2, 3, 4}, 0); err == nil {
		t.Error("expected an error for a zero sample rate")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	if s.Mean != 2.5 || s.Min != 1 || s.Max != 4 {
		t.Errorf("unexpected summary %+v", s)
	}
	if math.Abs(s.RMS-math.Sqrt(7.5)) > 1e-12 {
		t.Errorf("expected rms %f, got %f", math.Sqrt(7.5), s.RMS)
	}
	if (Summarize(nil) != Summary{}) {
		t.Error("expected a zero summary for no data")
	}
}

func TestPhasePortrait(t *testing.T) {
	p, err := NewPhasePortrait("pz", []float64{0, 1, 2}, "vz", []float64{1, 0})
	if err != nil {
		t.Fatalf("portrait: %v", err)
	}
	if len(p.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(p.Points))
	}

	art := PhasePortraitToASCII(p, 20, 10)
	lines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	if len(lines) != 10 {
		t.Errorf("expected 10 rows, got %d", len(lines))
	}
	if strings.Count(art, "•") != 2 {
		t.Errorf("expected 2 plotted points, got %d", strings.Count(art, "•"))
	}

	if _, err := NewPhasePortrait("a", nil, "b", nil); err == nil {
		t.Error("expected an error for empty signals")
	}
}
