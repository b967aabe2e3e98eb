package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stashd",
	Short: "Bookmark ingestion and enrichment daemon",
	Long:  "A local daemon that receives social media bookmarks, downloads their media, extracts linked articles, and serves the enriched archive over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (default: ~/.stashd)")
}
