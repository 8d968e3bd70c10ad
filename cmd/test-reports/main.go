package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/tamrielmeta/buildscry/internal/testreports"
)

// Default configuration constants.
const (
	defaultReports      = 8
	defaultPermutations = 6
	defaultSeed         = 1
	defaultRunTimeout   = 5 * time.Minute
)

func main() {
	var (
		reports      = flag.Int("reports", defaultReports, "Number of synthetic clear reports to generate")
		permutations = flag.Int("permutations", defaultPermutations, "Number of shuffled fold orders to try per check")
		seed         = flag.Int64("seed", defaultSeed, "Seed for the shuffled fold orders")
		outputFile   = flag.String("output", "", "Snapshot file for the scan scenario (default: buildscry_snapshot_TIMESTAMP.json)")
		logFile      = flag.String("log", "", "Log file for check output (default: check_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testreports.ShowHelp()
		return
	}

	// Setup logging
	if err := testreports.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create check configuration
	config := &testreports.Config{
		Reports:      *reports,
		Permutations: *permutations,
		Seed:         *seed,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	// Run the checks
	if err := testreports.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Checks failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
