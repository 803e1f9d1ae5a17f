package feature

import "math"

// Timbral feature tunables.
const (
	// NumMFCC is the number of cepstral coefficients kept per frame.
	NumMFCC = 13

	// numMelFilters is the size of the mel filterbank applied to the
	// power spectrum before the cepstral transform.
	numMelFilters = 40

	// logFloor avoids log(0) on silent filter bands.
	logFloor = 1e-10
)

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterbank builds triangular filters spaced evenly on the mel scale
// from 0 Hz to Nyquist, mapped onto the positive FFT bins.
// filters[f][bin] is the weight of bin in filter f.
func melFilterbank(numFilters, numBins, windowSize, sampleRate int) [][]float64 {
	lowMel := hzToMel(0)
	highMel := hzToMel(float64(sampleRate) / 2.0)

	// numFilters+2 edge points: each filter spans three consecutive points
	binOf := make([]int, numFilters+2)
	for i := range binOf {
		mel := lowMel + (highMel-lowMel)*float64(i)/float64(numFilters+1)
		hz := melToHz(mel)
		bin := int(math.Floor(float64(windowSize) * hz / float64(sampleRate)))
		if bin > numBins-1 {
			bin = numBins - 1
		}
		binOf[i] = bin
	}

	filters := make([][]float64, numFilters)
	for f := 0; f < numFilters; f++ {
		filters[f] = make([]float64, numBins)
		left, center, right := binOf[f], binOf[f+1], binOf[f+2]
		for k := left; k < center; k++ {
			if center > left {
				filters[f][k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right; k++ {
			if right > center {
				filters[f][k] = float64(right-k) / float64(right-center)
			} else if k == center {
				filters[f][k] = 1.0
			}
		}
	}
	return filters
}

// mfccFrame computes NumMFCC cepstral coefficients from one magnitude
// spectrum frame: power spectrum -> mel filterbank -> log -> DCT-II.
func mfccFrame(magnitude []float64, filters [][]float64) []float64 {
	logEnergies := make([]float64, len(filters))
	for f, filter := range filters {
		var energy float64
		for k, w := range filter {
			if w == 0 {
				continue
			}
			energy += w * magnitude[k] * magnitude[k]
		}
		logEnergies[f] = math.Log(energy + logFloor)
	}

	n := float64(len(logEnergies))
	coeffs := make([]float64, NumMFCC)
	for i := 0; i < NumMFCC; i++ {
		var sum float64
		for f, e := range logEnergies {
			sum += e * math.Cos(math.Pi*float64(i)*(float64(f)+0.5)/n)
		}
		coeffs[i] = sum
	}
	return coeffs
}
