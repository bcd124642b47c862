// Package main is the entry point for the pageprobe binary.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethpandaops/pageprobe/cmd"
	"github.com/joho/godotenv"
)

const (
	envFlag      = "--env"
	envFlagEqual = "--env="
	defaultEnv   = ".env"
)

var errEnvValueMissing = errors.New("--env flag requires a value")

// launchMode says how main should continue after inspecting os.Args.
type launchMode struct {
	envFile string
	tui     bool
}

func main() {
	mode, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !mode.tui {
		// Cobra handles --env itself.
		cmd.Execute()
		return
	}

	if err := loadEnvFile(mode.envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env file: %v\n", err)
		os.Exit(1)
	}

	cmd.InitLogger()
	runInteractive()
}

// parseArgs picks the interactive menu when args carry nothing but an
// optional --env selection, and the cobra CLI otherwise.
func parseArgs(args []string) (launchMode, error) {
	var mode launchMode

	consumed := 0
	for i, arg := range args {
		if arg == envFlag {
			if i+1 >= len(args) {
				return mode, errEnvValueMissing
			}
			mode.envFile = args[i+1]
			consumed = 2
			break
		}

		if value, ok := strings.CutPrefix(arg, envFlagEqual); ok {
			if value == "" {
				return mode, errEnvValueMissing
			}
			mode.envFile = value
			consumed = 1
			break
		}
	}

	mode.tui = len(args) == consumed

	return mode, nil
}

// loadEnvFile loads file, tolerating a missing default .env.
func loadEnvFile(file string) error {
	if file == "" {
		file = defaultEnv
	}

	if err := godotenv.Load(file); err != nil {
		if file == defaultEnv && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load env file '%s': %w", file, err)
	}

	return nil
}
