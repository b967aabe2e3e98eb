package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/user/stashd/internal/config"
	"github.com/user/stashd/internal/db"
	"github.com/user/stashd/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive as a zip of Markdown files",
	Long:  "Write every bookmark as a Markdown document, with an index, into a zip archive.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		data, err := export.Archive(store)
		if err != nil {
			return fmt.Errorf("failed to build archive: %w", err)
		}
		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOut, err)
		}

		count, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d bookmarks to %s\n", count, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "stashd-export.zip", "Output zip path")
	rootCmd.AddCommand(exportCmd)
}
