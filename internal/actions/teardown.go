package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/pageprobe/internal/config"
	"github.com/ethpandaops/pageprobe/internal/store"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// ErrHostnameValidationFailed is returned when hostname validation fails for safety reasons.
var ErrHostnameValidationFailed = errors.New("hostname validation failed - operation blocked for safety")

const teardownConnectTimeout = 30 * time.Second

// Teardown validates config and rolls back the report schema, dropping all
// stored reports. The server hostname must be listed in PAGEPROBE_SAFE_HOSTS.
func Teardown(log logrus.FieldLogger, isInteractive, skipConfirm bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if valErr := validateConfig(cfg); valErr != nil {
		return valErr
	}

	printTarget("⚠️  Teardown Configuration:", cfg)

	if !skipConfirm {
		if isInteractive {
			fmt.Printf("🗑️  You are about to DROP table %s in database: %s\n", config.ReportsTable, strings.ToUpper(cfg.ClickhouseDatabase))
			fmt.Println("⚠️  WARNING: This will permanently delete ALL stored reports!")
		}
		// Return here so the caller can handle confirmation
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), teardownConnectTimeout)
	defer cancel()

	fmt.Println("🔗 Connecting to ClickHouse...")

	ch := store.NewClickHouseStore(log, cfg)
	if err := ch.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	defer func() {
		if closeErr := ch.Stop(); closeErr != nil {
			fmt.Printf("Warning: failed to close connection: %v\n", closeErr)
		}
	}()

	fmt.Println("🔒 Validating hostname safety...")

	hostname, err := store.NewHostGuard(log, cfg.SafeHostnames).Check(ctx, ch)
	if err != nil {
		if errors.Is(err, store.ErrNonWhitelistedHost) {
			fmt.Println()
			displayHostnameValidationError(hostname, cfg.SafeHostnames)

			return ErrHostnameValidationFailed
		}

		return err
	}

	fmt.Println("✅ Hostname validated successfully!")

	fmt.Printf("\n🗑️  Rolling back schema in database '%s'...\n", cfg.ClickhouseDatabase)

	if err := store.Rollback(log, cfg); err != nil {
		return err
	}

	fmt.Println("\n✅ Teardown completed successfully!")
	return nil
}

// displayHostnameValidationError displays a red warning box when hostname validation fails
func displayHostnameValidationError(hostname string, whitelist []string) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	fmt.Println(red("╔════════════════════════════════════════════════════════════╗"))
	fmt.Println(red("║         🚨  HOSTNAME VALIDATION FAILED  🚨                 ║"))
	fmt.Println(red("╚════════════════════════════════════════════════════════════╝"))
	fmt.Println(red(""))
	fmt.Println(red("  ⚠️  Non-whitelisted ClickHouse host detected!"))
	fmt.Println(red(""))
	fmt.Println(red("  Blocked Hostname: " + hostname))
	fmt.Println(red(""))
	fmt.Println(red("  Current Whitelist: " + fmt.Sprintf("%v", whitelist)))
	fmt.Println(red(""))
	fmt.Println(red("  To allow, set environment variable:"))
	newWhitelist := append(append([]string{}, whitelist...), hostname)
	exportCmd := fmt.Sprintf("PAGEPROBE_SAFE_HOSTS=%q", strings.Join(newWhitelist, ","))
	fmt.Println(red("    " + exportCmd))
	fmt.Println()
}
