// Package cli is the terminal client: take an exam or review a result
// without a browser.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/logger"
)

var (
	logLevel    string
	fixturePath string
)

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "exam-cli",
		Short:         "Take and review ExStem exams from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
	cmd.PersistentFlags().StringVar(&fixturePath, "fixture", "", "serve exams from this YAML catalog instead of API_BASE_URL")
	cmd.AddCommand(newTakeCmd())
	cmd.AddCommand(newReviewCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig() (*config.Config, zerolog.Logger) {
	cfg := config.Load()
	if fixturePath != "" {
		cfg.APIBaseURL = ""
		cfg.FixturePath = fixturePath
	}
	return cfg, logger.New(os.Stderr, logLevel, "pretty")
}
