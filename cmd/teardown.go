package cmd

import (
	"fmt"

	"github.com/ethpandaops/pageprobe/internal/actions"
	"github.com/spf13/cobra"
)

var (
	forceTeardown bool
)

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Drop the ClickHouse report table",
	Long: `Validates configuration and rolls back the report schema in ClickHouse.
This command will:
- Validate your configuration
- Check the server hostname against PAGEPROBE_SAFE_HOSTS
- DROP the probe_reports table and all stored reports

⚠️  WARNING: This will permanently delete all stored reports!`,
	RunE: func(_ *cobra.Command, _ []string) error {
		// For CLI mode, we pass skipConfirm=true if --force is used
		// Otherwise the action will just show the config and return
		if !forceTeardown {
			if err := actions.Teardown(Logger, false, false); err != nil {
				return err
			}
			fmt.Println("\n⚠️  WARNING: This will permanently delete all stored reports!")
			fmt.Println("Use --force flag to proceed with teardown")
			return nil
		}

		if err := actions.Teardown(Logger, false, true); err != nil {
			return fmt.Errorf("teardown failed: %w", err)
		}
		return nil
	},
}

func init() {
	teardownCmd.Flags().BoolVarP(&forceTeardown, "force", "f", false, "Skip confirmation and proceed with teardown")
	rootCmd.AddCommand(teardownCmd)
}
