package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethpandaops/pageprobe/internal/actions"
	"github.com/ethpandaops/pageprobe/internal/taskdef"
	"github.com/spf13/cobra"
)

var (
	runConcurrency int
	runTimeout     time.Duration
	runReportsDir  string
	runNoStore     bool
)

var runCmd = &cobra.Command{
	Use:   "run <file|dir>...",
	Short: "Run task definition files",
	Long: `Load task definitions from YAML files or directories and run them as a suite.

Each task is loaded in a fresh browser, health checked and its assertions evaluated.
Reports are written to the reports directory and, when configured, ClickHouse.

Examples:
  pageprobe run tasks/
  pageprobe run tasks/homepage.yaml tasks/checkout.yaml --concurrency 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency = runConcurrency
		}
		if cmd.Flags().Changed("timeout") {
			cfg.RunTimeout = runTimeout
		}
		if cmd.Flags().Changed("reports-dir") {
			cfg.ReportsDir = runReportsDir
		}

		tasks, err := taskdef.NewLoader(Logger).Load(args...)
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = actions.RunTasks(ctx, Logger, cfg, tasks, actions.RunOptions{
			Verbose: verbose,
			NoStore: runNoStore,
		})

		return err
	},
}

func init() {
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 2, "Number of tasks to run in parallel (overrides PROBE_CONCURRENCY)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "Outer deadline per task run (overrides PROBE_RUN_TIMEOUT)")
	runCmd.Flags().StringVar(&runReportsDir, "reports-dir", "reports", "Directory for JSON reports and screenshots (overrides REPORTS_DIR)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "Do not persist reports")
	rootCmd.AddCommand(runCmd)
}
