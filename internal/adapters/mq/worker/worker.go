// Package worker drains the scan queue, turning queued reports into
// consolidated builds.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamrielmeta/buildscry/internal/adapters/esologs"
	"github.com/tamrielmeta/buildscry/internal/adapters/mq/queue"
	"github.com/tamrielmeta/buildscry/internal/domain/consolidate"
	"github.com/tamrielmeta/buildscry/internal/domain/grouping"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

const (
	// Scan jobs spend their time on a rate-limited API client, so a
	// handful of workers keeps it saturated.
	defaultWorkerCount    = 4
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// ReportSource fetches combat reports and their data tables.
// *esologs.Client satisfies it.
type ReportSource interface {
	Report(ctx context.Context, code string) (model.Report, error)
	Table(ctx context.Context, code string, fightID int, startTime, endTime int64, dataType string, combatantInfo bool) (json.RawMessage, error)
}

// RecordParser turns raw report tables into player records.
type RecordParser interface {
	ParseFight(ctx context.Context, reportCode string, fight model.Fight, summaryRaw, damageRaw, healingRaw []byte) ([]model.PlayerRecord, error)
}

// Annotator classifies parsed records into builds.
type Annotator interface {
	Annotate(ctx context.Context, records []model.PlayerRecord) []model.ClassifiedBuild
}

// Folder accumulates grouped builds across reports.
type Folder interface {
	Fold(ctx context.Context, in consolidate.FoldInput)
}

// Queue defines how workers receive scan jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker consumes scan jobs until its queue drains or it is told to stop.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// ScanWorker implements Worker for the report scan pipeline.
type ScanWorker struct {
	queue     Queue
	source    ReportSource
	parser    RecordParser
	annotator Annotator
	folder    Folder
	name      string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Shared with the pool so gauges cover all workers.
	busy *atomic.Int64

	logger logger.Logger
}

// NewScanWorker creates a worker with configuration options.
func NewScanWorker(q Queue, source ReportSource, parser RecordParser, folder Folder, opts ...Option) *ScanWorker {
	w := &ScanWorker{
		queue:     q,
		source:    source,
		parser:    parser,
		annotator: grouping.New(),
		folder:    folder,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		busy:      &atomic.Int64{},
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *ScanWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				// Queue closed and drained.
				return
			}

			w.busy.Add(1)
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Warn(ctx, "report skipped",
					logger.String("trial", job.Trial),
					logger.String("report", job.ReportCode),
					logger.Error(err),
				)
			}
			w.busy.Add(-1)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *ScanWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob folds one report's fastest kill of each wanted encounter into
// the consolidator. A report that cannot be fetched or decoded is skipped
// whole; a single encounter whose tables fail to fetch is skipped alone.
func (w *ScanWorker) processJob(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerJobLatency(float64(time.Since(start).Milliseconds()))
	}()

	report, err := w.source.Report(ctx, job.ReportCode)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "report_fetch")
		return fmt.Errorf("fetching report %s: %w", job.ReportCode, err)
	}

	version := report.UpdateVersion()

	for _, encounter := range job.Encounters {
		fight, ok := report.FastestKill(encounter.Name)
		if !ok {
			w.logger.Debug(ctx, "no successful kill in report",
				logger.String("report", job.ReportCode),
				logger.String("encounter", encounter.Name),
			)
			continue
		}

		err := w.processFight(ctx, job, fight, encounter.Name, version)
		if err == nil {
			metrics.RecordFightScanned()
			continue
		}
		if errors.Is(err, esologs.ErrMalformedPayload) {
			// A table that does not decode means the log itself is
			// broken; the rest of the report will not fare better.
			metrics.RecordReportSkipped()
			return fmt.Errorf("report %s unusable: %w", job.ReportCode, err)
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "table_fetch")
		w.logger.Warn(ctx, "encounter skipped",
			logger.String("report", job.ReportCode),
			logger.String("encounter", encounter.Name),
			logger.Error(err),
		)
	}

	return nil
}

func (w *ScanWorker) processFight(ctx context.Context, job queue.Job, fight model.Fight, boss, version string) error {
	summary, err := w.source.Table(ctx, job.ReportCode, fight.ID, fight.StartTime, fight.EndTime, esologs.TableSummary, true)
	if err != nil {
		return fmt.Errorf("fetching summary table: %w", err)
	}

	damage, err := w.source.Table(ctx, job.ReportCode, fight.ID, fight.StartTime, fight.EndTime, esologs.TableDamageDone, true)
	if err != nil {
		return fmt.Errorf("fetching damage table: %w", err)
	}

	// Healing is informational; a fight without it still yields builds.
	healing, err := w.source.Table(ctx, job.ReportCode, fight.ID, fight.StartTime, fight.EndTime, esologs.TableHealing, false)
	if err != nil {
		w.logger.Debug(ctx, "healing table unavailable",
			logger.String("report", job.ReportCode),
			logger.Int("fight", fight.ID),
			logger.Error(err),
		)
		healing = nil
	}

	records, err := w.parser.ParseFight(ctx, job.ReportCode, fight, summary, damage, healing)
	if err != nil {
		return fmt.Errorf("parsing fight %d: %w", fight.ID, err)
	}

	builds := w.annotator.Annotate(ctx, records)
	if len(builds) == 0 {
		return nil
	}

	w.folder.Fold(ctx, consolidate.FoldInput{
		Trial:         job.Trial,
		Boss:          boss,
		UpdateVersion: version,
		Groups:        grouping.GroupByIdentity(builds),
	})
	return nil
}

// Pool manages multiple workers draining one queue.
type Pool struct {
	workers []*ScanWorker
	queue   Queue

	busy atomic.Int64

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool for the scan queue.
func NewPool(workerCount int, q Queue, source ReportSource, parser RecordParser, folder Folder) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers:  make([]*ScanWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		w := NewScanWorker(q, source, parser, folder, WithName("worker-"+strconv.Itoa(i)))
		w.busy = &pool.busy
		pool.workers[i] = w
	}

	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}

	go p.publishGauges(ctx)
}

// Wait blocks until every worker has exited. Workers exit once the queue
// has been closed and drained, so a scan pass is: enqueue, close, Wait.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for workers: %w", ctx.Err())
		}
	}
	p.signalStop()
	return nil
}

// Shutdown closes the queue and stops the pool, letting workers drain
// what is already queued.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker", i))
		}
	}

	p.signalStop()
	return nil
}

func (p *Pool) signalStop() {
	p.stopOnce.Do(func() { close(p.shutdown) })
}

func (p *Pool) publishGauges(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	publish := func() {
		busy := int(p.busy.Load())
		metrics.UpdateWorkerActiveCount(busy)
		metrics.UpdateWorkerIdleCount(len(p.workers) - busy)
	}
	publish()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			metrics.UpdateWorkerActiveCount(0)
			metrics.UpdateWorkerIdleCount(0)
			return
		case <-ticker.C:
			publish()
		}
	}
}
