package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamrielmeta/buildscry/internal/adapters/mq/queue"
	"github.com/tamrielmeta/buildscry/internal/adapters/mq/worker"
	"github.com/tamrielmeta/buildscry/internal/adapters/repository"
	"github.com/tamrielmeta/buildscry/internal/domain/consolidate"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// run drives scan passes until the context or the service stops. Without
// an interval the service scans once and then only serves.
func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	s.scanPass(ctx)
	if s.scanInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scanPass(ctx)
		}
	}
}

// scanPass mines every configured trial once and lands the survivors in
// the store. A failed trial never aborts the others.
func (s *Service) scanPass(ctx context.Context) {
	start := time.Now()
	s.logger.Info(ctx, "scan pass starting")

	zones, err := s.source.Zones(ctx)
	if err != nil {
		s.logger.Error(ctx, "fetching zones", logger.Error(err))
		metrics.RecordErrorByComponent("service", "zones_fetch")
		return
	}
	targets := selectTrials(zones, s.trials)
	if len(targets) == 0 {
		s.logger.Warn(ctx, "no trials to scan", logger.Int("zones", len(zones)))
		return
	}

	cons := consolidate.New()
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	pool := worker.NewPool(s.workerCount, q, s.source, s.parser, cons)
	pool.Start(ctx)

	s.mu.Lock()
	s.queue = q
	s.mu.Unlock()
	defer s.clearQueue()

	var g errgroup.Group
	for _, zone := range targets {
		zone := zone
		g.Go(func() error {
			s.scanTrial(ctx, q, zone)
			return nil
		})
	}
	_ = g.Wait()

	_ = q.Close()
	if err := pool.Wait(ctx); err != nil {
		// Interrupted mid-drain; keep the last completed pass's data.
		s.logger.Warn(ctx, "scan pass interrupted", logger.Error(err))
		return
	}

	builds := cons.Snapshot()
	publishable := s.gate.Filter(builds)
	enriched := s.enricher.Enrich(ctx, publishable)

	stored := 0
	for _, b := range enriched {
		ok, upsertErr := s.store.Upsert(ctx, b)
		if upsertErr != nil {
			s.logger.Warn(ctx, "storing build",
				logger.String("slug", b.Slug),
				logger.Error(upsertErr),
			)
			continue
		}
		if ok {
			stored++
		}
	}

	s.finishPass(ctx, targets, cons.TrialVersions())

	elapsed := time.Since(start)
	metrics.RecordScanPass(elapsed.Seconds())

	s.mu.Lock()
	s.passes++
	s.lastPassTime = time.Now().UTC()
	s.lastPassTook = elapsed
	s.mu.Unlock()

	s.logger.Info(ctx, "scan pass finished",
		logger.Int("trials", len(targets)),
		logger.Int("builds", len(builds)),
		logger.Int("publishable", len(publishable)),
		logger.Int("stored", stored),
		logger.Duration("elapsed", elapsed),
	)
}

// scanTrial queues the trial's top-ranked reports. Rankings come from the
// final encounter, the cleanest signal for who actually cleared the trial.
func (s *Service) scanTrial(ctx context.Context, q queue.Queue, zone model.Zone) {
	if len(zone.Encounters) == 0 {
		s.logger.Debug(ctx, "zone has no encounters", logger.String("trial", zone.Name))
		return
	}
	final := zone.Encounters[len(zone.Encounters)-1]

	rankings, err := s.source.TopRankings(ctx, zone.ID, final.ID, s.topLogs)
	if err != nil {
		s.logger.Warn(ctx, "fetching rankings",
			logger.String("trial", zone.Name),
			logger.String("encounter", final.Name),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("service", "rankings_fetch")
		return
	}

	seen := make(map[string]struct{}, len(rankings))
	enqueued := 0
	for _, r := range rankings {
		if _, dup := seen[r.ReportCode]; dup {
			continue
		}
		seen[r.ReportCode] = struct{}{}

		job := queue.Job{Trial: zone.Name, ReportCode: r.ReportCode, Encounters: zone.Encounters}
		if !q.Enqueue(ctx, job) {
			s.logger.Warn(ctx, "scan job rejected",
				logger.String("trial", zone.Name),
				logger.String("report", r.ReportCode),
			)
			continue
		}
		enqueued++
	}

	s.logger.Info(ctx, "trial queued",
		logger.String("trial", zone.Name),
		logger.Int("reports", enqueued),
	)
}

// finishPass records per-trial bookkeeping and flushes the store. The
// cache counters are a client-wide snapshot taken as the pass lands;
// deltas between passes show how well the response cache is working.
func (s *Service) finishPass(ctx context.Context, targets []model.Zone, versions map[string]string) {
	now := time.Now().UTC()
	known := s.store.Meta(ctx).Trials
	cache := s.source.CacheStats()

	for _, zone := range targets {
		version := versions[zone.Name]
		if version == "" {
			// A trial whose reports all failed keeps its previous label.
			version = known[zone.Name].UpdateVersion
		}
		s.store.SetTrialMeta(ctx, zone.Name, repository.TrialMeta{
			LastUpdated:   now,
			UpdateVersion: version,
			CacheStats: repository.CacheStats{
				MemoryHits: cache.MemoryHits,
				DiskHits:   cache.DiskHits,
				Misses:     cache.Misses,
			},
		})
	}
	s.store.MarkFullUpdate(ctx, now)
	metrics.UpdateScanLastUnix(now.Unix())

	if saver, ok := s.store.(interface{ Save(context.Context) error }); ok {
		if err := saver.Save(ctx); err != nil {
			s.logger.Error(ctx, "persisting builds", logger.Error(err))
		}
	}
}

func (s *Service) clearQueue() {
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}

// selectTrials filters zones by configured trial names. An empty filter
// selects every zone.
func selectTrials(zones []model.Zone, wanted []string) []model.Zone {
	if len(wanted) == 0 {
		return zones
	}
	want := make(map[string]struct{}, len(wanted))
	for _, name := range wanted {
		want[name] = struct{}{}
	}
	out := make([]model.Zone, 0, len(wanted))
	for _, z := range zones {
		if _, ok := want[z.Name]; ok {
			out = append(out, z)
		}
	}
	return out
}
