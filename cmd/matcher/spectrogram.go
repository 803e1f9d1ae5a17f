package main

import (
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/eligwz/spectrogram"
	"github.com/spf13/cobra"

	"github.com/techno-hippies/karaoke-school/internal/audio"
)

var spectrogramOut string

var spectrogramCmd = &cobra.Command{
	Use:   "spectrogram <audio>",
	Short: "Render a PNG spectrogram of an audio file (debugging aid)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpectrogram,
}

func init() {
	spectrogramCmd.Flags().StringVar(&spectrogramOut, "out", "", "output PNG path (default <input>.png)")
	rootCmd.AddCommand(spectrogramCmd)
}

func runSpectrogram(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	sig, err := audio.Load(cmd.Context(), inputPath, tempDir, sampleRate)
	if err != nil {
		return err
	}

	const (
		width  = 2048
		height = 512
	)
	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor("000000")), image.Point{}, draw.Src)

	// Hamming window, FFT backend, linear magnitude.
	spectrogram.Drawfft(img, sig.Samples, uint32(sig.SampleRate), uint32(height), false, false, true, false)

	out := spectrogramOut
	if out == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		out = base + ".png"
	}
	if err := spectrogram.SavePng(img, out); err != nil {
		return fmt.Errorf("saving %s: %w", out, err)
	}
	fmt.Printf("Saved spectrogram to %s\n", out)
	return nil
}
