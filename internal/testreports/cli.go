package testreports

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tamrielmeta/buildscry/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init("text"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "check_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the report check tool.
func ShowHelp() {
	os.Stdout.WriteString(`Buildscry Report Check Tool
===========================

Generates synthetic combat reports and drives them through the full
consolidation pipeline, verifying the invariants the build store relies on:
identity determinism, fold order independence, re-fold idempotence, the
two-handed tally rule, publish thresholds, representative selection and a
disk round-trip of the consolidated snapshot.

Usage:
  go run cmd/test-reports/main.go [options]

Options:
  -reports int
        Number of synthetic reports folded by the ordering checks (default 8)
  -permutations int
        Number of fold orders tried per ordering check (default 6)
  -seed int
        Shuffle seed for permutation checks (default 1)
  -output string
        Snapshot file for the scan round-trip (default: buildscry_snapshot_TIMESTAMP.json)
  -log string
        Log file for check output (default: check_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run every check with default settings
  go run cmd/test-reports/main.go

  # Stress the ordering checks with a bigger corpus
  go run cmd/test-reports/main.go -reports 64 -permutations 20

  # Reproduce a failing shuffle
  go run cmd/test-reports/main.go -seed 1724 -verbose

  # Keep the snapshot for inspection
  go run cmd/test-reports/main.go -output /tmp/snapshot.json
`)
}
