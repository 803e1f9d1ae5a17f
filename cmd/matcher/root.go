package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/storage"
)

var (
	dbPath     string
	tempDir    string
	sampleRate int
)

var rootCmd = &cobra.Command{
	Use:           "matcher",
	Short:         "Locate a short audio clip inside a full recording and emit crop boundaries",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath,
		"db", envOrDefault("MATCHER_DB_PATH", storage.DefaultDBFile),
		"path to the run-history SQLite database")
	rootCmd.PersistentFlags().StringVar(&tempDir,
		"temp", envOrDefault("MATCHER_TEMP_DIR", os.TempDir()),
		"directory for temporary audio conversion files")
	rootCmd.PersistentFlags().IntVar(&sampleRate,
		"rate", 22050, "sample rate audio is resampled to before matching")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
