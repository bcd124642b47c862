package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// newLogger creates a logger at level (default info). If verbose is true the
// logger is set to DebugLevel regardless of level.
func newLogger(level string, verbose bool) *logrus.Logger {
	log := logrus.New()

	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return log
	}

	if level == "" {
		level = "info"
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		// Can't use the logger here since it might not be set up yet
		fmt.Printf("Invalid LOG_LEVEL '%s', defaulting to 'info'\n", level)
		parsed = logrus.InfoLevel
	}

	log.SetLevel(parsed)

	return log
}
