// Package audio binds the matching core to decoded audio on disk: WAV
// reading and ffmpeg-based conversion of other containers. Container
// handling stays here; the core only ever sees PCM signals.
package audio

import (
	"errors"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// ReadWAV decodes a PCM WAV file into a mono signal with samples
// normalized to [-1, 1]. Stereo input is downmixed by averaging channels.
func ReadWAV(path string) (model.AudioSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.AudioSignal{}, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return model.AudioSignal{}, fmt.Errorf("not a valid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return model.AudioSignal{}, fmt.Errorf("reading PCM data from %s: %w", path, err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return model.AudioSignal{}, fmt.Errorf("no samples in %s", path)
	}

	samples, err := toMonoFloat64(buf, int(decoder.BitDepth))
	if err != nil {
		return model.AudioSignal{}, fmt.Errorf("converting samples from %s: %w", path, err)
	}

	return model.AudioSignal{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// toMonoFloat64 scales integer PCM to [-1, 1] and downmixes to mono.
func toMonoFloat64(buf *gaudio.IntBuffer, bitDepth int) ([]float64, error) {
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	scale := 1.0 / float64(int(1)<<(uint(bitDepth)-1))

	switch buf.Format.NumChannels {
	case 1:
		out := make([]float64, len(buf.Data))
		for i, v := range buf.Data {
			out[i] = float64(v) * scale
		}
		return out, nil
	case 2:
		frames := len(buf.Data) / 2
		out := make([]float64, frames)
		for i := 0; i < frames; i++ {
			l := float64(buf.Data[2*i]) * scale
			r := float64(buf.Data[2*i+1]) * scale
			out[i] = (l + r) * 0.5
		}
		return out, nil
	default:
		return nil, errors.New("unsupported channel count: only mono/stereo supported")
	}
}
