package cmd

import (
	"fmt"

	"github.com/ethpandaops/pageprobe/internal/actions"
	"github.com/spf13/cobra"
)

var (
	forceSetup bool
)

var setupCmd = &cobra.Command{
	Use:     "migrate",
	Aliases: []string{"setup"},
	Short:   "Apply the ClickHouse report schema",
	Long: `Validates configuration and applies the embedded report schema to ClickHouse.
This command will:
- Validate your configuration
- Connect to ClickHouse
- Create the probe_reports table if it doesn't exist

Safe to run multiple times.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		// For CLI mode, we pass skipConfirm=true if --force is used
		// Otherwise the action will just show the config and return
		if !forceSetup {
			// First call to show config
			if err := actions.Setup(Logger, false, false); err != nil {
				return err
			}
			fmt.Println("\nUse --force flag to proceed with migration")
			return nil
		}

		// Run the actual setup
		if err := actions.Setup(Logger, false, true); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	},
}

func init() {
	setupCmd.Flags().BoolVarP(&forceSetup, "force", "f", false, "Skip confirmation and apply migrations")
	rootCmd.AddCommand(setupCmd)
}
