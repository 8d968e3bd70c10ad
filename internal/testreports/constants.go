package testreports

import "time"

// Synthetic fight framing.
const (
	trialName         = "Dreadsail Reef"
	bossName          = "Tideborn Taleria"
	veteranDifficulty = 122
	fightDurationMS   = 300000
	fightSeconds      = fightDurationMS / 1000
)

// Baseline rates for the metric a role is not measured by.
const (
	supportDPS  = 9000
	offHealRate = 2000
)

// Scan scenario pacing.
const (
	scanPassTimeout = 30 * time.Second
	pollInterval    = 25 * time.Millisecond
)
