package feature

import "math"

// Harmonic feature tunables.
const (
	// NumChroma is the number of pitch classes per frame.
	NumChroma = 12

	// Fold range: A0 through roughly the top of the piano. Bins outside
	// contribute mostly noise and percussive energy.
	chromaMinHz = 27.5
	chromaMaxHz = 4400.0
)

// chromaFrame folds one magnitude spectrum frame onto the 12 pitch
// classes. Each bin's magnitude is added to the class of its nearest
// equal-tempered pitch (A440 reference).
func chromaFrame(magnitude []float64, windowSize, sampleRate int) []float64 {
	out := make([]float64, NumChroma)
	for k := 1; k < len(magnitude); k++ {
		freq := float64(k) * float64(sampleRate) / float64(windowSize)
		if freq < chromaMinHz || freq > chromaMaxHz {
			continue
		}
		// MIDI note number of the bin center; note 69 is A4.
		midi := int(math.Round(69.0 + 12.0*math.Log2(freq/440.0)))
		pc := ((midi % NumChroma) + NumChroma) % NumChroma
		out[pc] += magnitude[k]
	}
	return out
}
