// Package config handles configuration loading and management
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	LogLevel string

	BrowserControlURL string
	BrowserBin        string
	BrowserFlags      []string

	Concurrency int
	RunTimeout  time.Duration
	ReportsDir  string

	ClickhouseHost     string
	ClickhousePort     int
	ClickhouseUsername string
	ClickhousePassword string
	ClickhouseDatabase string
	SafeHostnames      []string

	NatsURL     string
	NatsSubject string

	MetricsAddr string
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BrowserControlURL:  getEnv("BROWSER_CONTROL_URL", ""),
		BrowserBin:         getEnv("BROWSER_BIN", ""),
		BrowserFlags:       parseList(getEnv("BROWSER_FLAGS", "")),
		ReportsDir:         getEnv("REPORTS_DIR", DefaultReportsDir),
		ClickhouseHost:     getEnv("CLICKHOUSE_HOST", ""),
		ClickhouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickhousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickhouseDatabase: getEnv("CLICKHOUSE_DATABASE", DefaultDatabase),
		SafeHostnames:      parseList(getEnv("PAGEPROBE_SAFE_HOSTS", "")),
		NatsURL:            getEnv("NATS_URL", ""),
		NatsSubject:        getEnv("NATS_SUBJECT", DefaultNatsSubject),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
	}

	concurrency, err := strconv.Atoi(getEnv("PROBE_CONCURRENCY", strconv.Itoa(DefaultConcurrency)))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_CONCURRENCY: %w", err)
	}

	if concurrency < 1 {
		return nil, fmt.Errorf("invalid PROBE_CONCURRENCY: %d: %w", concurrency, ErrNonPositive)
	}

	cfg.Concurrency = concurrency

	runTimeout, err := time.ParseDuration(getEnv("PROBE_RUN_TIMEOUT", DefaultRunTimeout.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_RUN_TIMEOUT: %w", err)
	}

	if runTimeout <= 0 {
		return nil, fmt.Errorf("invalid PROBE_RUN_TIMEOUT: %s: %w", runTimeout, ErrNonPositive)
	}

	cfg.RunTimeout = runTimeout

	port, err := strconv.Atoi(getEnv("CLICKHOUSE_PORT", "9000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
	}

	cfg.ClickhousePort = port

	return cfg, nil
}

// ClickHouseEnabled reports whether a ClickHouse report store is configured.
func (c *Config) ClickHouseEnabled() bool {
	return c.ClickhouseHost != ""
}

// ClickHouseAddr returns host:port of the native ClickHouse endpoint.
func (c *Config) ClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickhouseHost, c.ClickhousePort)
}

// ClickHouseMigrateURL returns the connection string golang-migrate expects.
func (c *Config) ClickHouseMigrateURL() string {
	u := url.URL{
		Scheme: "clickhouse",
		Host:   c.ClickHouseAddr(),
	}

	q := url.Values{}
	q.Set("username", c.ClickhouseUsername)
	q.Set("database", c.ClickhouseDatabase)
	q.Set("x-multi-statement", "true")
	q.Set("x-migrations-table", SchemaMigrationsTable)
	q.Set("x-migrations-table-engine", "MergeTree")

	if c.ClickhousePassword != "" {
		q.Set("password", c.ClickhousePassword)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (c *Config) String() string {
	passwordDisplay := "(not set)"
	if c.ClickhousePassword != "" {
		passwordDisplay = "********"
	}

	clickhouseDisplay := "(disabled)"
	if c.ClickHouseEnabled() {
		clickhouseDisplay = c.ClickHouseAddr()
	}

	flagsDisplay := strings.Join(c.BrowserFlags, ",")
	if flagsDisplay == "" {
		flagsDisplay = "(none)"
	}

	return fmt.Sprintf(`Current Configuration:
======================
Log Level:              %s
Browser Control URL:    %s
Browser Binary:         %s
Browser Flags:          %s
Concurrency:            %d
Run Timeout:            %s
Reports Dir:            %s
ClickHouse:             %s
ClickHouse Username:    %s
ClickHouse Password:    %s
ClickHouse Database:    %s
Safe Hostnames:         %s
NATS URL:               %s
NATS Subject:           %s
Metrics Addr:           %s`,
		c.LogLevel,
		orDefault(maskURL(c.BrowserControlURL), "(local launch)"),
		orDefault(c.BrowserBin, "(auto)"),
		flagsDisplay,
		c.Concurrency,
		c.RunTimeout,
		c.ReportsDir,
		clickhouseDisplay,
		c.ClickhouseUsername,
		passwordDisplay,
		c.ClickhouseDatabase,
		orDefault(strings.Join(c.SafeHostnames, ","), "(none)"),
		orDefault(maskURL(c.NatsURL), "(disabled)"),
		c.NatsSubject,
		orDefault(c.MetricsAddr, "(disabled)"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseList parses a comma-separated list, dropping empty entries.
func parseList(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	values := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}

// maskURL hides credentials embedded in a connection URL.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	u.User = url.User("********")

	return u.String()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
