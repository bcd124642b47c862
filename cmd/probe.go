package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/pageprobe/internal/actions"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/ethpandaops/pageprobe/internal/taskdef"
	"github.com/spf13/cobra"
)

var (
	probeTexts     []string
	probeSelectors []string
	probeHeadful   bool
	probeTimeoutMs int
	probeNoStore   bool
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Probe a single URL",
	Long: `Run an ad hoc task against one URL.

Examples:
  pageprobe probe https://example.com
  pageprobe probe https://example.com --text "Example Domain" --selector h1`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		task := actions.NewProbeTask(actions.ProbeOptions{
			URL:       args[0],
			Texts:     probeTexts,
			Selectors: probeSelectors,
			Headful:   probeHeadful,
			TimeoutMs: probeTimeoutMs,
		})

		if err := taskdef.Validate(task); err != nil {
			return fmt.Errorf("invalid probe: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = actions.RunTasks(ctx, Logger, cfg, []*probe.TaskRecord{task}, actions.RunOptions{
			Verbose: verbose,
			NoStore: probeNoStore,
		})

		return err
	},
}

func init() {
	probeCmd.Flags().StringArrayVar(&probeTexts, "text", nil, "Text the page content must include (repeatable)")
	probeCmd.Flags().StringArrayVar(&probeSelectors, "selector", nil, "CSS selector that must match an element (repeatable)")
	probeCmd.Flags().BoolVar(&probeHeadful, "headful", false, "Run with a visible browser window and desktop viewport")
	probeCmd.Flags().IntVar(&probeTimeoutMs, "timeout-ms", 0, "Navigation timeout in milliseconds (default 30000)")
	probeCmd.Flags().BoolVar(&probeNoStore, "no-store", false, "Do not persist the report")
	rootCmd.AddCommand(probeCmd)
}
