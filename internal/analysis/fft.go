package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

var ErrShortSignal = errors.New("analysis: signal needs at least 4 samples")

// Spectrum returns the one-sided amplitude spectrum of data sampled at rate
// Hz, with the mean removed. freqs[i] is the frequency of power[i].
func Spectrum(data []float64, rate float64) (freqs, power []float64, err error) {
	n := len(data)
	if n < 4 {
		return nil, nil, ErrShortSignal
	}
	if rate <= 0 {
		return nil, nil, errors.New("analysis: sample rate must be positive")
	}

	mean := stat.Mean(data, nil)
	centred := make([]float64, n)
	for i, v := range data {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	half := n / 2
	freqs = make([]float64, half)
	power = make([]float64, half)
	for i := 0; i < half; i++ {
		freqs[i] = float64(i) * rate / float64(n)
		power[i] = cmplx.Abs(coeffs[i]) / float64(n)
	}
	return freqs, power, nil
}

// DominantFrequency returns the non-zero frequency with the largest
// amplitude and that amplitude.
func DominantFrequency(data []float64, rate float64) (freq, amplitude float64, err error) {
	freqs, power, err := Spectrum(data, rate)
	if err != nil {
		return 0, 0, err
	}
	best := 1
	for i := 2; i < len(power); i++ {
		if power[i] > power[best] {
			best = i
		}
	}
	return freqs[best], power[best], nil
}

type Summary struct {
	Mean, StdDev float64
	Min, Max     float64
	RMS          float64
}

func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	s := Summary{Min: data[0], Max: data[0]}
	s.Mean, s.StdDev = stat.MeanStdDev(data, nil)
	sq := 0.0
	for _, v := range data {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sq += v * v
	}
	s.RMS = math.Sqrt(sq / float64(len(data)))
	return s
}
