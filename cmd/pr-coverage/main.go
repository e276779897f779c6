package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jupierce/pr-coverage/pkg/log"
)

var (
	// Global flags
	verbosity string
	logDir    string

	// Root command
	rootCmd = &cobra.Command{
		Use:   "pr-coverage",
		Short: "Report test coverage for the files changed in a pull request",
		Long: `pr-coverage joins an LCOV (or Go cover profile) coverage file with the
files changed in a pull request and produces a coverage report: a summary of
all files, a summary of the changed files, and a directory table of the
changed files with coverage rolled up at every level.

The report can be posted as a pull request comment, written to disk as
markdown or HTML, printed to the terminal, or exported to SQLite or BigQuery.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// runs before required flags are checked, so INPUT_<NAME> can satisfy them
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyEnvFallbacks(cmd)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&verbosity, "verbosity", "info", "Log verbosity (error, info, debug, trace)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for a timestamped log file (disabled when empty)")
}

// createLogger creates the logger shared by all commands
func createLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(verbosity)
	if err != nil {
		return nil, err
	}

	logger, err := log.New(level, logDir)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
