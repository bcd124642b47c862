package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"

	"github.com/ethpandaops/pageprobe/cmd"
	"github.com/ethpandaops/pageprobe/internal/actions"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/ethpandaops/pageprobe/internal/taskdef"
	"github.com/ethpandaops/pageprobe/pkg/interactive"
)

func runInteractive() {
	fmt.Println("Pageprobe - Interactive Mode")
	fmt.Println("============================")
	fmt.Println()

	for {
		options := []interactive.MenuOption{
			{
				Name:        "🔎 Probe URL",
				Description: "Load a single page and check it",
				Action:      probeURLInteractive,
			},
			{
				Name:        "📂 Run Tasks",
				Description: "Run task definition files from a directory",
				Action:      runTasksInteractive,
			},
			{
				Name:        "🗄️  Report Storage",
				Description: "Apply or drop the ClickHouse report schema",
				Action:      showStorageMenu,
			},
			{
				Name:        "📋 Show Config",
				Description: "Display current environment configuration",
				Action: func() error {
					if err := actions.ShowConfig(); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}
					interactive.PauseForEnter()
					return nil
				},
			},
		}

		if err := interactive.ShowMainMenu(options); err != nil {
			if errors.Is(err, interactive.ErrExit) {
				fmt.Println("Goodbye!")
				return
			}
			log.Fatal(err)
		}

		fmt.Println()
	}
}

func showStorageMenu() error {
	for {
		options := []interactive.MenuOption{
			{
				Name:        "Migrate",
				Description: "Create the ClickHouse report table (safe to run multiple times)",
				Action: func() error {
					if err := actions.Setup(cmd.Logger, true, false); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
						interactive.PauseForEnter()
						return nil
					}

					if !interactive.Confirm("Do you want to proceed with the migration?") {
						fmt.Println("Migration canceled.")
						interactive.PauseForEnter()
						return nil
					}

					if err := actions.Setup(cmd.Logger, true, true); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}

					interactive.PauseForEnter()
					return nil
				},
			},
			{
				Name:        "Teardown",
				Description: "Drop the ClickHouse report table (destructive)",
				Action: func() error {
					if err := actions.Teardown(cmd.Logger, true, false); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
						interactive.PauseForEnter()
						return nil
					}

					if !interactive.Confirm("⚠️  Are you SURE you want to drop all stored reports? This cannot be undone!") {
						fmt.Println("Teardown canceled.")
						interactive.PauseForEnter()
						return nil
					}

					if err := actions.Teardown(cmd.Logger, true, true); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}

					interactive.PauseForEnter()
					return nil
				},
			},
		}

		fmt.Println("\n🗄️  Report Storage")
		fmt.Println("==================")
		if err := interactive.ShowMainMenu(options); err != nil {
			if errors.Is(err, interactive.ErrExit) {
				return nil // Return to main menu
			}
			return err
		}
	}
}

func probeURLInteractive() error {
	url, err := interactive.Input("URL to probe:", "https://", func(value string) error {
		return taskdef.Validate(&probe.TaskRecord{URL: value})
	})
	if err != nil {
		fmt.Println("Input canceled.")
		interactive.PauseForEnter()
		return nil
	}

	args := []string{"probe", url}

	text, err := interactive.Input("Text the page must include (leave empty to skip):", "", nil)
	if err == nil && text != "" {
		args = append(args, "--text", text)
	}

	selector, err := interactive.Input("CSS selector that must exist (leave empty to skip):", "", nil)
	if err == nil && selector != "" {
		args = append(args, "--selector", selector)
	}

	timeout, err := interactive.Input("Navigation timeout in ms:", strconv.Itoa(probe.DefaultTimeoutMs), validateTimeout)
	if err == nil {
		args = append(args, "--timeout-ms", timeout)
	}

	if interactive.Confirm("Show the browser window (headful)?") {
		args = append(args, "--headful")
	}

	if interactive.Confirm("Enable verbose output?") {
		args = append(args, "--verbose")
	}

	return runCLICommand(args...)
}

func runTasksInteractive() error {
	dir, err := interactive.Input("Task directory or file:", "tasks", func(value string) error {
		_, statErr := os.Stat(value)
		return statErr
	})
	if err != nil {
		fmt.Println("Input canceled.")
		interactive.PauseForEnter()
		return nil
	}

	concurrency, err := interactive.SelectFromList("Concurrency:", []string{"1", "2", "4", "8"})
	if err != nil {
		fmt.Println("Selection canceled.")
		interactive.PauseForEnter()
		return nil
	}

	args := []string{"run", dir, "--concurrency", concurrency}
	if interactive.Confirm("Enable verbose output?") {
		args = append(args, "--verbose")
	}

	return runCLICommand(args...)
}

func validateTimeout(value string) error {
	ms, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not a number: %w", err)
	}

	if ms < 0 {
		return errors.New("timeout must not be negative")
	}

	return nil
}

// runCLICommand re-executes this binary with args so every run gets the
// same signal handling and exit status as the CLI.
func runCLICommand(args ...string) error {
	binaryPath, err := os.Executable()
	if err != nil {
		fmt.Printf("\n❌ Cannot locate pageprobe binary: %v\n", err)
		interactive.PauseForEnter()
		return nil
	}

	fmt.Printf("\n🚀 Running: pageprobe %v\n\n", args)

	// #nosec G204 -- binaryPath is this executable and args are controlled by menu selections
	c := exec.Command(binaryPath, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Stdin = os.Stdin

	if err := c.Run(); err != nil {
		fmt.Printf("\n❌ Command failed: %v\n", err)
		interactive.PauseForEnter()
		return nil
	}

	interactive.PauseForEnter()
	return nil
}
