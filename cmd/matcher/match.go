package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/techno-hippies/karaoke-school/internal/audio"
	"github.com/techno-hippies/karaoke-school/internal/stt"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/feature"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
	"github.com/techno-hippies/karaoke-school/pkg/logger"
)

var (
	segmentsPath string
	useChroma    bool
	jsonOut      string
	noStore      bool
	sttCommand   string
)

var matchCmd = &cobra.Command{
	Use:   "match <clip> <track>",
	Short: "Match a clip against a full track and print crop instructions",
	Args:  cobra.ExactArgs(2),
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&segmentsPath, "segments", "",
		"transcript segment catalog (JSON) enabling the secondary matcher")
	matchCmd.Flags().BoolVar(&useChroma, "chroma", false,
		"use harmonic (chroma) features instead of timbral (MFCC)")
	matchCmd.Flags().StringVar(&jsonOut, "json", "",
		"also write the crop report JSON to this file")
	matchCmd.Flags().BoolVar(&noStore, "no-store", false,
		"skip recording this run in the history database")
	matchCmd.Flags().StringVar(&sttCommand, "stt-cmd", os.Getenv("MATCHER_STT_CMD"),
		"external transcript matcher command line, split on whitespace (no quoting)")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()
	ctx := cmd.Context()
	clipPath, trackPath := args[0], args[1]

	clip, err := audio.Load(ctx, clipPath, tempDir, sampleRate)
	if err != nil {
		return fmt.Errorf("loading clip: %w", err)
	}
	track, err := audio.Load(ctx, trackPath, tempDir, sampleRate)
	if err != nil {
		return fmt.Errorf("loading track: %w", err)
	}

	opts := []audiomatch.Option{
		audiomatch.WithSampleRate(sampleRate),
		audiomatch.WithLogger(log),
	}
	if useChroma {
		opts = append(opts, audiomatch.WithFeatureType(feature.Harmonic))
	}
	if !noStore {
		opts = append(opts, audiomatch.WithDBPath(dbPath))
	}
	if segmentsPath != "" {
		var cmdline []string
		if sttCommand != "" {
			cmdline = strings.Fields(sttCommand)
		}
		opts = append(opts, audiomatch.WithSecondaryMatcher(stt.NewMatcher(cmdline)))
	}

	svc, err := audiomatch.NewService(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Match(ctx, audiomatch.MatchRequest{
		Clip:         clip,
		Track:        track,
		ClipPath:     clipPath,
		TrackPath:    trackPath,
		SegmentsPath: segmentsPath,
	})
	if err != nil {
		return err
	}

	printReport(report)

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Println(string(payload))

	if jsonOut != "" {
		if err := os.WriteFile(jsonOut, payload, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", jsonOut, err)
		}
		log.Infof("Saved crop report to %s", jsonOut)
	}
	return nil
}

func printReport(r *model.CropReport) {
	fmt.Println()
	fmt.Printf("Crop:       %s - %s (%.1fs)\n",
		formatTime(r.CropStart), formatTime(r.CropEnd), r.CropDuration)
	fmt.Printf("Match:      %s - %s\n", formatTime(r.MatchStart), formatTime(r.MatchEnd))
	fmt.Printf("Buffer:     -%.1fs / +%.1fs\n", r.BufferStart, r.BufferEnd)
	fmt.Printf("Confidence: %.1f%%\n", r.Confidence*100)
	fmt.Printf("Method:     %s\n", r.Method)
	fmt.Println()
	fmt.Printf("ffmpeg -i %q -ss %.3f -to %.3f -acodec libmp3lame -q:a 2 segment.mp3\n",
		r.SourceFile, r.CropStart, r.CropEnd)
	fmt.Println()
}

func formatTime(seconds float64) string {
	mins := int(seconds) / 60
	return fmt.Sprintf("%d:%06.3f", mins, seconds-float64(mins*60))
}
