// Package service runs the scan pipeline and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tamrielmeta/buildscry/internal/adapters/esologs"
	"github.com/tamrielmeta/buildscry/internal/adapters/mq/queue"
	"github.com/tamrielmeta/buildscry/internal/adapters/mq/worker"
	"github.com/tamrielmeta/buildscry/internal/adapters/repository"
	"github.com/tamrielmeta/buildscry/internal/domain/enrich"
	"github.com/tamrielmeta/buildscry/internal/domain/gate"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// Source is the slice of the logs API client the scanner drives.
// *esologs.Client satisfies it.
type Source interface {
	worker.ReportSource

	Zones(ctx context.Context) ([]model.Zone, error)
	TopRankings(ctx context.Context, zoneID, encounterID, limit int) ([]model.Ranking, error)
	PlayerBoon(ctx context.Context, reportCode string, fightID, sourceID int, startTime, endTime int64) (string, error)
	CacheStats() esologs.CacheStats
}

// Service implements the API dependencies for the build discovery system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	source   Source
	parser   worker.RecordParser
	gate     *gate.Gate
	enricher *enrich.Enricher
	queue    queue.Queue // live only while a pass is draining

	// Configuration
	clientID         string
	clientSecret     string
	trials           []string
	topLogs          int
	damageThreshold  int
	supportThreshold int
	workerCount      int
	queueSize        int
	scanInterval     time.Duration
	cacheDir         string
	cacheSize        int
	rateRPS          float64
	rateBurst        int
	outputPath       string

	// State
	started      bool
	stopCh       chan struct{}
	wg           sync.WaitGroup
	passes       int
	lastPassTime time.Time
	lastPassTook time.Duration

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topLogs:          12,
		damageThreshold:  5,
		supportThreshold: 3,
		workerCount:      4,
		queueSize:        1024,
		cacheDir:         "cache",
		cacheSize:        512,
		rateRPS:          2,
		rateBurst:        5,
		outputPath:       "data/builds.json",
		stopCh:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.gate = gate.New(
		gate.WithDamageMinimum(s.damageThreshold),
		gate.WithSupportMinimum(s.supportThreshold),
	)

	return s
}

// Start initializes the service components and launches the scan loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting build scanner...")

	if s.store == nil {
		s.store = repository.NewFileStore(ctx, repository.WithPath(s.outputPath))
	}
	if loader, ok := s.store.(interface{ Load(context.Context) error }); ok {
		if err := loader.Load(ctx); err != nil {
			// The next pass rebuilds everything the snapshot held.
			s.logger.Warn(ctx, "loading persisted builds", logger.Error(err))
		}
	}

	if s.source == nil {
		client, err := esologs.New(ctx, s.clientID, s.clientSecret,
			esologs.WithRateLimit(s.rateRPS, s.rateBurst),
			esologs.WithCacheSize(s.cacheSize),
			esologs.WithCacheDir(s.cacheDir),
		)
		if err != nil {
			return fmt.Errorf("building logs client: %w", err)
		}
		s.source = client
	}
	if s.parser == nil {
		s.parser = esologs.NewParser()
	}
	s.enricher = enrich.New(s.source)

	s.stopCh = make(chan struct{})
	s.started = true

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info(ctx, "build scanner started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("topLogs", s.topLogs),
	)

	return nil
}

// Stop gracefully shuts down the service. An in-flight scan pass finishes
// before the store is flushed and closed.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping build scanner...")

	s.wg.Wait()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error(ctx, "closing store", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "build scanner stopped")
}

// Builds returns stored builds ordered by key, narrowed to one trial when
// trial is non-empty.
func (s *Service) Builds(ctx context.Context, trial string) []model.ConsolidatedBuild {
	if trial == "" {
		return s.store.ListAll(ctx)
	}
	return s.store.ListTrial(ctx, trial)
}

// Build returns the stored build under key.
func (s *Service) Build(ctx context.Context, key types.BuildKey) (model.ConsolidatedBuild, error) {
	return s.store.Get(ctx, key)
}

// Publishable reports whether a build clears its role threshold.
func (s *Service) Publishable(b model.ConsolidatedBuild) bool {
	return s.gate.Publishable(b)
}

// Meta exposes the per-trial scan bookkeeping.
func (s *Service) Meta(ctx context.Context) repository.Meta {
	return s.store.Meta(ctx)
}

// Stats returns service statistics for the status surface.
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":        s.started,
		"worker_count":   s.workerCount,
		"queue_capacity": s.queueSize,
		"scan_passes":    s.passes,
		"queue_depth":    0,
	}

	if s.store != nil {
		count := s.store.Count(ctx)
		stats["builds_stored"] = count
		metrics.UpdateStoreBuilds(count)

		meta := s.store.Meta(ctx)
		stats["trials_tracked"] = len(meta.Trials)
		if !meta.LastFullUpdate.IsZero() {
			stats["last_full_update"] = meta.LastFullUpdate.UTC().Format(time.RFC3339)
		}
	}
	if s.queue != nil {
		stats["queue_depth"] = s.queue.Len(ctx)
	}
	if s.lastPassTook > 0 {
		stats["last_scan_duration_seconds"] = s.lastPassTook.Seconds()
	}

	return stats
}
