package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// Spectrum returns the one-sided power spectrum of a series sampled every
// dt. The mean is removed first so the zero-frequency bin only holds
// rounding noise.
func Spectrum(series []float64, dt float64) (freqs, power []float64, err error) {
	n := len(series)
	if n < 2 {
		return nil, nil, fmt.Errorf("spectrum needs at least 2 samples, got %d", n)
	}
	if dt <= 0 {
		return nil, nil, fmt.Errorf("sample spacing must be positive, got %v", dt)
	}

	mean := stat.Mean(series, nil)
	centered := make([]float64, n)
	for i, v := range series {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	bins := n/2 + 1
	freqs = make([]float64, bins)
	power = make([]float64, bins)
	for k := range power {
		freqs[k] = float64(k) / (float64(n) * dt)
		a := cmplx.Abs(coeffs[k])
		power[k] = a * a / float64(n)
	}
	return freqs, power, nil
}

// DominantFrequency is the non-zero frequency with the most power.
func DominantFrequency(series []float64, dt float64) (float64, error) {
	freqs, power, err := Spectrum(series, dt)
	if err != nil {
		return 0, err
	}
	best := 1
	for k := 2; k < len(power); k++ {
		if power[k] > power[best] {
			best = k
		}
	}
	return freqs[best], nil
}
