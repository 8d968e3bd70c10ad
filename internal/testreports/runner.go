package testreports

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tamrielmeta/buildscry/pkg/logger"
)

// check pairs a named pipeline invariant with the function exercising it.
type check struct {
	name string
	run  func(ctx context.Context, config *Config, stats *Stats) error
}

// checks lists every invariant the tool exercises, in run order.
var checks = []check{
	{"identity determinism", checkIdentityDeterminism},
	{"fold commutativity", checkFoldCommutativity},
	{"fold idempotence", checkFoldIdempotence},
	{"two-handed tally", checkTwoHandedTally},
	{"publish thresholds", checkPublishThresholds},
	{"representative selection", checkRepresentativeSelection},
	{"report accumulation", checkReportAccumulation},
	{"full scan round-trip", runScanScenario},
}

// Run executes the complete consolidation check suite.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	if config.Verbose {
		_ = logger.SetLevelString("debug")
	}

	// Determine the snapshot filename the scan scenario writes to.
	if config.OutputFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		config.OutputFile = "buildscry_snapshot_" + timestamp + ".json"
	}

	logger.Get().Info(ctx, "starting buildscry report checks",
		logger.Int("reports", config.Reports),
		logger.Int("permutations", config.Permutations),
		logger.Int64("seed", config.Seed),
		logger.String("output", config.OutputFile),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	for _, c := range checks {
		stats.ChecksRun++
		if err := c.run(ctx, config, stats); err != nil {
			stats.ChecksFailed++
			log.Printf("❌ %s: %v", c.name, err)
			continue
		}
		stats.ChecksPassed++
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	if stats.ChecksFailed > 0 {
		return fmt.Errorf("%d of %d checks failed", stats.ChecksFailed, stats.ChecksRun)
	}

	logger.Get().Info(ctx, "all checks passed")
	return nil
}

// displayFinalStats prints the final check statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("reportsGenerated", stats.ReportsGenerated),
		logger.Int("recordsGenerated", stats.RecordsGenerated),
		logger.Int("checksRun", stats.ChecksRun),
		logger.Int("checksPassed", stats.ChecksPassed),
		logger.Int("checksFailed", stats.ChecksFailed),
		logger.Int("buildsConsolidated", stats.BuildsConsolidated),
		logger.String("duration", stats.Duration.String()))
}
