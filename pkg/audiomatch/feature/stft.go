package feature

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Analysis defaults, matching the reference pipeline.
const (
	DefaultWindowSize = 2048
	DefaultHopLength  = 512
	DefaultSampleRate = 22050
)

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// STFT computes a time-major magnitude spectrogram: frames[frameIdx][freqBin],
// keeping only the positive-frequency bins.
func STFT(samples []float64, windowSize, hopLength int, window []float64) ([][]float64, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) < windowSize {
		return nil, errors.New("input shorter than window size")
	}

	frames := make([][]float64, 0, (len(samples)-windowSize)/hopLength+1)
	buf := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopLength {
		copy(buf, samples[start:start+windowSize])
		for i := 0; i < windowSize; i++ {
			buf[i] *= window[i]
		}
		spectrum := fft.FFTReal(buf)
		frames = append(frames, magnitudeSpectrum(spectrum))
	}
	return frames, nil
}

// magnitudeSpectrum converts a complex spectrum into magnitudes of the
// positive-frequency half.
func magnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}
