package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 500 * time.Microsecond, want: "500µs"},
		{in: 250 * time.Millisecond, want: "250ms"},
		{in: 1500 * time.Millisecond, want: "1.5s"},
		{in: 90 * time.Second, want: "1.5m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.in))
	}

	assert.Equal(t, "2.0s", Millis(2000))
	assert.Equal(t, "0ms", Millis(0))
}

func TestBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", Bytes(512))
	assert.Equal(t, "1.5 KB", Bytes(1536))
	assert.Equal(t, "2.0 MB", Bytes(2*1024*1024))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo wo...", Truncate("héllo world, again", 11))
}
