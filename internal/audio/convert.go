package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// ConvertConfig controls the ffmpeg conversion.
type ConvertConfig struct {
	SampleRate int // e.g. 22050
}

// ConvertToMonoWAV converts an audio or video file to a mono 16-bit PCM
// WAV at the configured rate, writing it under outputDir with the input's
// base name. Requires ffmpeg on PATH.
func ConvertToMonoWAV(ctx context.Context, inputPath, outputDir string, cfg ConvertConfig) (string, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 22050
	}

	// Defensive timeout
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".wav"
	outputPath := filepath.Join(outputDir, base)

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", tmpPath, outputPath, err)
	}

	return outputPath, nil
}

// Load reads path as a mono signal, converting through ffmpeg first
// unless it is already a WAV file.
func Load(ctx context.Context, path, tempDir string, sampleRate int) (model.AudioSignal, error) {
	wavPath := path
	if strings.ToLower(filepath.Ext(path)) != ".wav" {
		converted, err := ConvertToMonoWAV(ctx, path, tempDir, ConvertConfig{SampleRate: sampleRate})
		if err != nil {
			return model.AudioSignal{}, fmt.Errorf("converting %s: %w", path, err)
		}
		wavPath = converted
	}
	return ReadWAV(wavPath)
}
