package cmd

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   string
		verbose bool
		want    logrus.Level
	}{
		{name: "default", want: logrus.InfoLevel},
		{name: "explicit", level: "warn", want: logrus.WarnLevel},
		{name: "invalid falls back to info", level: "loud", want: logrus.InfoLevel},
		{name: "verbose wins", level: "error", verbose: true, want: logrus.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, newLogger(tt.level, tt.verbose).GetLevel())
		})
	}
}
