// Package cmd contains CLI command definitions
package cmd

import (
	"fmt"
	"os"

	"github.com/ethpandaops/pageprobe/internal/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Logger is the shared logger instance for all commands
	Logger *logrus.Logger

	envFile     string
	verbose     bool
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:   "pageprobe",
		Short: "Pageprobe - headless browser page checks",
		Long: `Pageprobe loads pages in a real browser, checks that they are healthy and
evaluates declarative assertions against them.

Run without arguments to launch interactive mode, or use subcommands for direct operations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := godotenv.Overload(envFile); err != nil {
					return fmt.Errorf("failed to load env file '%s': %w", envFile, err)
				}

				InitLogger()
			}

			if verbose {
				Logger.SetLevel(logrus.DebugLevel)
			}

			return nil
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// InitLogger (re)creates the shared logger from LOG_LEVEL.
func InitLogger() {
	Logger = newLogger(os.Getenv("LOG_LEVEL"), false)
}

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()

	InitLogger()

	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Environment file to load (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides METRICS_ADDR)")
}

// loadConfig reads the environment configuration and applies global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	return cfg, nil
}
