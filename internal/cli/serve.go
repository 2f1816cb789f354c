package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bookworm/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the translation workers and the periodic resume sweep",
	Long:  "Starts the job queue workers and a cron-driven sweep that re-enqueues every partially translated book. Jobs interrupted by a previous shutdown resume automatically. Runs until SIGINT or SIGTERM.",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start service: %w", err)
		}
		defer svc.Stop()
		log.Info("Bookworm service started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("Received %v, shutting down", sig)
		return nil
	},
}
