package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest documents into the index from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		store, err := newStore(cfg)
		if err != nil {
			return fmt.Errorf("create document store: %w", err)
		}

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			result, err := store.Ingest(data, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			if result.Indexed {
				fmt.Fprintf(os.Stdout, "%s: indexed %d chunks\n", filepath.Base(path), result.Chunks)
			} else {
				fmt.Fprintf(os.Stdout, "%s: stored without indexing\n", filepath.Base(path))
			}
		}
		return nil
	},
}
