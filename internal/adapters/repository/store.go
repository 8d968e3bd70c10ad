// Package repository defines the consolidated build store and its file
// persistence.
package repository

import (
	"context"
	"time"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// CacheStats mirrors the report cache counters captured while scanning
// one trial. Persisted alongside the trial's builds.
type CacheStats struct {
	MemoryHits int64 `json:"memory_hits"`
	DiskHits   int64 `json:"disk_hits"`
	Misses     int64 `json:"misses"`
}

// TrialMeta is the per-trial bookkeeping kept next to the builds.
type TrialMeta struct {
	LastUpdated   time.Time
	UpdateVersion string
	CacheStats    CacheStats
}

// Meta describes store-level bookkeeping for the status surfaces.
type Meta struct {
	Trials         map[string]TrialMeta
	LastFullUpdate time.Time
}

// Store provides read/write access to the consolidated build state.
type Store interface {
	// Upsert stores a build under its key. Fresh data always replaces a
	// previously persisted aggregate; a strictly staler build is refused.
	// Returns true if the store accepted the build, false otherwise.
	Upsert(ctx context.Context, build model.ConsolidatedBuild) (bool, error)

	// Get returns the build under the given key.
	// Returns ErrNotFound if no build exists for it.
	Get(ctx context.Context, key types.BuildKey) (model.ConsolidatedBuild, error)

	// ListAll returns every stored build ordered by key.
	ListAll(ctx context.Context) []model.ConsolidatedBuild

	// ListTrial returns the builds of one trial ordered by key.
	ListTrial(ctx context.Context, trial string) []model.ConsolidatedBuild

	// Count returns the number of builds tracked in the store.
	Count(ctx context.Context) int

	// Meta returns a copy of the trial bookkeeping.
	Meta(ctx context.Context) Meta

	// SetTrialMeta records the bookkeeping of a finished trial scan.
	SetTrialMeta(ctx context.Context, trial string, meta TrialMeta)

	// MarkFullUpdate records the completion time of a full scan pass.
	MarkFullUpdate(ctx context.Context, at time.Time)
}
