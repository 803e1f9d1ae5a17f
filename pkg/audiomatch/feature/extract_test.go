package feature

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

func testSignal(freq, dur float64, sampleRate int) model.AudioSignal {
	return model.AudioSignal{
		Samples:    sine(freq, dur, sampleRate),
		SampleRate: sampleRate,
	}
}

func TestExtractTimbral(t *testing.T) {
	sig := testSignal(440, 2.0, 8000)

	seq, err := Extract(sig, Timbral, 1024, 256)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if seq.Type != Timbral {
		t.Errorf("Expected type %q, got %q", Timbral, seq.Type)
	}
	if seq.Dim() != NumMFCC {
		t.Errorf("Expected %d-dim frames, got %d", NumMFCC, seq.Dim())
	}

	expectedFrames := (len(sig.Samples)-1024)/256 + 1
	if seq.Len() != expectedFrames {
		t.Errorf("Expected %d frames, got %d", expectedFrames, seq.Len())
	}
}

func TestExtractHarmonicPitchClass(t *testing.T) {
	// A 440 Hz tone should land in pitch class 9 (A).
	sig := testSignal(440, 2.0, 8000)

	seq, err := Extract(sig, Harmonic, 1024, 256)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if seq.Dim() != NumChroma {
		t.Fatalf("Expected %d-dim frames, got %d", NumChroma, seq.Dim())
	}

	frame := seq.Frames[seq.Len()/2]
	maxClass := 0
	for pc, v := range frame {
		if v > frame[maxClass] {
			maxClass = pc
		}
	}
	if maxClass != 9 {
		t.Errorf("Expected dominant pitch class 9 for 440 Hz, got %d (frame %v)", maxClass, frame)
	}
}

func TestExtractDefaultType(t *testing.T) {
	sig := testSignal(440, 1.0, 22050)

	seq, err := Extract(sig, "", 0, 0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if seq.Type != Timbral {
		t.Errorf("Expected default type %q, got %q", Timbral, seq.Type)
	}
	if seq.HopLength != DefaultHopLength || seq.SampleRate != 22050 {
		t.Errorf("Unexpected sequence params: hop=%d rate=%d", seq.HopLength, seq.SampleRate)
	}
}

func TestExtractFramesNormalized(t *testing.T) {
	sig := testSignal(440, 1.0, 8000)

	seq, err := Extract(sig, Harmonic, 1024, 256)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	for i, frame := range seq.Frames {
		var sum float64
		for _, v := range frame {
			sum += v * v
		}
		norm := math.Sqrt(sum)
		if norm == 0 {
			continue // silent frame
		}
		if math.Abs(norm-1.0) > 1e-9 {
			t.Errorf("Frame %d norm = %f, want 1.0", i, norm)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	sig := testSignal(440, 1.5, 8000)

	a, err := Extract(sig, Timbral, 1024, 256)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	b, err := Extract(sig, Timbral, 1024, 256)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if !reflect.DeepEqual(a.Frames, b.Frames) {
		t.Error("Extraction is not deterministic: identical inputs produced different frames")
	}
}

func TestExtractInsufficientAudio(t *testing.T) {
	sig := model.AudioSignal{Samples: make([]float64, 100), SampleRate: 8000}

	_, err := Extract(sig, Timbral, 1024, 256)
	if err == nil {
		t.Fatal("Expected error for signal shorter than one frame")
	}

	var insufficientErr *InsufficientAudioError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("Expected InsufficientAudioError, got %T: %v", err, err)
	}
	if insufficientErr.SampleCount != 100 || insufficientErr.WindowSize != 1024 {
		t.Errorf("Error context wrong: %+v", insufficientErr)
	}
}

func TestFrameTime(t *testing.T) {
	seq := &Sequence{HopLength: 512, SampleRate: 22050}
	got := seq.FrameTime(43)
	want := float64(43*512) / 22050.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("FrameTime(43) = %f, want %f", got, want)
	}
}
