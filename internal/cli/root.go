// Package cli implements the bookworm command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"bookworm/internal/config"
	"bookworm/internal/persistence"
	"bookworm/internal/service"
	"bookworm/pkg/log"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "bookworm",
	Short: "Personal ebook reader with cached batch translation",
	Long:  "Bookworm manages a local book library and translates books through LLM providers, caching every translated paragraph so no text is ever paid for twice.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	log.InitLogger(log.ParseLevel(os.Getenv("BOOKWORM_LOG_LEVEL")))

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print bookworm version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "bookworm version %s\n", version)
	},
}

// openService loads configuration, opens the store, and assembles the
// service. The returned cleanup closes the store.
func openService() (*service.Service, func(), error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, nil, err
	}
	store, err := persistence.NewStore(cfg.System.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	svc := service.New(cfg, store, cron.New())
	return svc, func() { _ = store.Close() }, nil
}
