package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/user/stashd/internal/config"
	"github.com/user/stashd/internal/db"
	"github.com/user/stashd/internal/ingest"
	"github.com/user/stashd/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bookmark ingestion server",
	Long:  "Listen for bookmark payloads from the browser extension and serve the enriched archive.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := db.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	svc := ingest.NewService(cfg, store)
	srv := server.New(cfg, store, svc)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logrus.Info("Shutting down")
		srv.Shutdown()
	}()

	return srv.Listen()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
