// Package feature converts raw PCM audio into normalized sequences of
// spectral feature frames for time-warped alignment. Extraction is a pure
// function of the input signal: identical samples always produce
// bit-identical sequences.
package feature

import (
	"fmt"
	"math"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// Type selects the feature family extracted per frame.
type Type string

const (
	// Timbral extracts 13-dim MFCC frames. Default; robust for most content.
	Timbral Type = "mfcc"
	// Harmonic extracts 12-dim chroma frames; better for melodic content
	// re-recorded with different instrumentation.
	Harmonic Type = "chroma"
)

// Sequence is an ordered run of fixed-dimension feature frames at a fixed
// hop, derived from one AudioSignal. Frames are per-frame L2-normalized so
// that comparisons are robust to loudness and production differences.
// Never mutated after extraction.
type Sequence struct {
	Frames     [][]float64
	Type       Type
	HopLength  int
	SampleRate int
}

// Len returns the number of frames.
func (s *Sequence) Len() int { return len(s.Frames) }

// Dim returns the per-frame dimensionality, 0 for an empty sequence.
func (s *Sequence) Dim() int {
	if len(s.Frames) == 0 {
		return 0
	}
	return len(s.Frames[0])
}

// FrameTime converts a frame index to seconds.
func (s *Sequence) FrameTime(idx int) float64 {
	return float64(idx*s.HopLength) / float64(s.SampleRate)
}

// InsufficientAudioError reports a signal too short to produce a single
// feature frame. Fatal: nothing can be aligned without at least one frame.
type InsufficientAudioError struct {
	SampleCount int
	WindowSize  int
}

func (e *InsufficientAudioError) Error() string {
	return fmt.Sprintf("insufficient audio: %d samples, need at least %d for one frame",
		e.SampleCount, e.WindowSize)
}

// Extract computes the feature sequence for a mono signal. windowSize and
// hopLength fall back to package defaults when zero.
func Extract(sig model.AudioSignal, typ Type, windowSize, hopLength int) (*Sequence, error) {
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	if hopLength == 0 {
		hopLength = DefaultHopLength
	}
	if typ == "" {
		typ = Timbral
	}
	if len(sig.Samples) < windowSize {
		return nil, &InsufficientAudioError{SampleCount: len(sig.Samples), WindowSize: windowSize}
	}

	spectrogram, err := STFT(sig.Samples, windowSize, hopLength, Hamming(windowSize))
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	frames := make([][]float64, len(spectrogram))
	switch typ {
	case Harmonic:
		for i, mag := range spectrogram {
			frames[i] = chromaFrame(mag, windowSize, sig.SampleRate)
		}
	case Timbral:
		filters := melFilterbank(numMelFilters, len(spectrogram[0]), windowSize, sig.SampleRate)
		for i, mag := range spectrogram {
			frames[i] = mfccFrame(mag, filters)
		}
	default:
		return nil, fmt.Errorf("unknown feature type %q", typ)
	}

	for _, frame := range frames {
		normalizeFrame(frame)
	}

	return &Sequence{
		Frames:     frames,
		Type:       typ,
		HopLength:  hopLength,
		SampleRate: sig.SampleRate,
	}, nil
}

// normalizeFrame scales a frame by its own L2 norm. Silent frames with a
// zero norm are left as zeros rather than producing NaNs.
func normalizeFrame(frame []float64) {
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range frame {
		frame[i] /= norm
	}
}
