package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored match runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	for _, r := range reports {
		fmt.Printf("%s  %-20s  crop %7.2fs - %7.2fs  conf %5.1f%%  %s\n",
			r.RunID, r.Method, r.CropStart, r.CropEnd, r.Confidence*100, r.SourceFile)
	}
	return nil
}
