package testreports

import "time"

// Config holds configuration for a consolidation check run
type Config struct {
	Reports      int    // Number of synthetic reports folded by the ordering checks
	Permutations int    // Number of fold orders tried per ordering check
	Seed         int64  // Shuffle seed for permutation checks
	OutputFile   string // Snapshot file written by the scan round-trip
	LogFile      string // Log file for check output
	Verbose      bool   // Enable verbose logging
}

// Stats holds check run statistics
type Stats struct {
	ReportsGenerated   int
	RecordsGenerated   int
	ChecksRun          int
	ChecksPassed       int
	ChecksFailed       int
	BuildsConsolidated int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
