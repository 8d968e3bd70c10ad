// Package metrics provides Prometheus metrics for the buildscry scanner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric the scanner exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Scan pipeline
	scanPasses       prometheus.Counter
	scanPassDuration prometheus.Histogram
	scanLastUnix     prometheus.Gauge
	reportsFetched   prometheus.Counter
	reportsFailed    prometheus.Counter
	reportsSkipped   prometheus.Counter
	fightsScanned    prometheus.Counter

	// Classification and grouping
	recordsParsed     prometheus.Counter
	recordsDropped    prometheus.Counter
	recordsClassified prometheus.Counter
	classifyLatency   prometheus.Histogram
	groupsEmitted     prometheus.Counter

	// Consolidation
	foldsApplied   prometheus.Counter
	foldDuplicates prometheus.Counter
	aggregatesLive prometheus.Gauge
	publishable    prometheus.Gauge

	// Enrichment
	enrichmentLookups   prometheus.Counter
	enrichmentMemoHits  prometheus.Counter
	enrichmentBackfills prometheus.Counter
	enrichmentFailures  prometheus.Counter

	// Store
	storeUpserts    prometheus.Counter
	storeSaves      prometheus.Counter
	storeSaveFails  prometheus.Counter
	storeBuilds     prometheus.Gauge
	storeSaveLatency prometheus.Histogram

	// esologs client
	apiCalls        *prometheus.CounterVec
	apiCallDuration *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec

	// Queue
	queueDepth       prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueRejections  prometheus.Counter

	// Workers
	workerActive      prometheus.Gauge
	workerIdle        prometheus.Gauge
	workerJobLatency  prometheus.Histogram
	workerErrors      prometheus.Counter

	// HTTP API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors by component
	errorsByComponent *prometheus.CounterVec
}

// Global manager on a private registry so default Go collectors stay out of
// the scrape unless the entrypoint adds them.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "buildscry",
		subsystem:        "scanner",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one metric per line adds up
	auto := promauto.With(m.registry)

	m.scanPasses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_passes_total",
		Help:      "Total number of completed scan passes",
	})

	m.scanPassDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_pass_duration_seconds",
		Help:      "Duration of a full scan pass in seconds",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	m.scanLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_last_unix",
		Help:      "Unix timestamp of the last completed scan pass",
	})

	m.reportsFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reports_fetched_total",
		Help:      "Total number of reports fetched and processed",
	})

	m.reportsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reports_failed_total",
		Help:      "Total number of reports that failed to fetch or parse",
	})

	m.reportsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reports_skipped_total",
		Help:      "Total number of reports skipped as malformed",
	})

	m.fightsScanned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fights_scanned_total",
		Help:      "Total number of boss kills processed",
	})

	m.recordsParsed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "player_records_parsed_total",
		Help:      "Total number of player records parsed from report tables",
	})

	m.recordsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "player_records_dropped_total",
		Help:      "Total number of player records dropped for incomplete gear or bars",
	})

	m.recordsClassified = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "player_records_classified_total",
		Help:      "Total number of player records annotated with subclasses and identity",
	})

	m.classifyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classify_latency_milliseconds",
		Help:      "Latency of classifying one player record in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.groupsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fight_groups_emitted_total",
		Help:      "Total number of per-fight identity groups emitted",
	})

	m.foldsApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "folds_applied_total",
		Help:      "Total number of player instances folded into aggregates",
	})

	m.foldDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fold_duplicates_total",
		Help:      "Total number of instances skipped as already-recorded provenance",
	})

	m.aggregatesLive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregates_live",
		Help:      "Number of consolidated build aggregates currently held",
	})

	m.publishable = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publishable_builds",
		Help:      "Number of aggregates that met their role threshold in the last pass",
	})

	m.enrichmentLookups = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_lookups_total",
		Help:      "Total number of mundus boon lookups issued",
	})

	m.enrichmentMemoHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_memo_hits_total",
		Help:      "Total number of boon lookups answered from the per-character memo",
	})

	m.enrichmentBackfills = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_backfills_total",
		Help:      "Total number of boons backfilled onto sibling builds",
	})

	m.enrichmentFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_failures_total",
		Help:      "Total number of boon lookups that resolved nothing",
	})

	m.storeUpserts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_upserts_total",
		Help:      "Total number of aggregates upserted into the build store",
	})

	m.storeSaves = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_saves_total",
		Help:      "Total number of successful store persists",
	})

	m.storeSaveFails = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_save_failures_total",
		Help:      "Total number of failed store persists",
	})

	m.storeBuilds = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_builds",
		Help:      "Number of builds currently in the store",
	})

	m.storeSaveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_save_latency_milliseconds",
		Help:      "Latency of persisting the store in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.apiCalls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "esologs_calls_total",
			Help:      "Total number of esologs API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.apiCallDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "esologs_call_duration_milliseconds",
			Help:      "esologs API call duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"operation"},
	)

	m.cacheHits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "esologs_cache_hits_total",
			Help:      "Total number of esologs cache hits by tier",
		},
		[]string{"tier"},
	)

	m.cacheMisses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "esologs_cache_misses_total",
			Help:      "Total number of esologs cache misses by tier",
		},
		[]string{"tier"},
	)

	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_depth",
		Help:      "Current number of queued scan jobs",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum scan job queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (depth / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of scan jobs enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of scan jobs dequeued",
	})

	m.queueRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_rejections_total",
		Help:      "Total number of scan jobs rejected by a full or closed queue",
	})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Number of workers currently processing a job",
	})

	m.workerIdle = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_idle_count",
		Help:      "Number of workers waiting for a job",
	})

	m.workerJobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_job_latency_milliseconds",
		Help:      "Latency of processing one report job in milliseconds",
		Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker job failures",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component and kind",
		},
		[]string{"component", "error_type"},
	)
}

// Scan pipeline.

// RecordScanPass records one completed scan pass and its duration.
func RecordScanPass(durationSeconds float64) {
	globalManager.scanPasses.Inc()
	globalManager.scanPassDuration.Observe(durationSeconds)
}

// UpdateScanLastUnix sets the timestamp of the last completed pass.
func UpdateScanLastUnix(unix int64) {
	globalManager.scanLastUnix.Set(float64(unix))
}

// RecordReportFetched increments the fetched reports counter.
func RecordReportFetched() { globalManager.reportsFetched.Inc() }

// RecordReportFailed increments the failed reports counter.
func RecordReportFailed() { globalManager.reportsFailed.Inc() }

// RecordReportSkipped increments the malformed reports counter.
func RecordReportSkipped() { globalManager.reportsSkipped.Inc() }

// RecordFightScanned increments the processed boss kills counter.
func RecordFightScanned() { globalManager.fightsScanned.Inc() }

// Classification.

// RecordRecordsParsed adds n to the parsed player records counter.
func RecordRecordsParsed(n int) { globalManager.recordsParsed.Add(float64(n)) }

// RecordRecordDropped increments the incomplete-record drop counter.
func RecordRecordDropped() { globalManager.recordsDropped.Inc() }

// RecordRecordClassified increments the classified records counter.
func RecordRecordClassified() { globalManager.recordsClassified.Inc() }

// RecordClassifyLatency records one classification latency in milliseconds.
func RecordClassifyLatency(latencyMs float64) {
	globalManager.classifyLatency.Observe(latencyMs)
}

// RecordGroupsEmitted adds n to the emitted fight groups counter.
func RecordGroupsEmitted(n int) { globalManager.groupsEmitted.Add(float64(n)) }

// Consolidation.

// RecordFoldApplied increments the folded instances counter.
func RecordFoldApplied() { globalManager.foldsApplied.Inc() }

// RecordFoldDuplicate increments the duplicate provenance counter.
func RecordFoldDuplicate() { globalManager.foldDuplicates.Inc() }

// UpdateAggregatesLive sets the live aggregate count.
func UpdateAggregatesLive(n int) { globalManager.aggregatesLive.Set(float64(n)) }

// UpdatePublishableBuilds sets the publishable aggregate count.
func UpdatePublishableBuilds(n int) { globalManager.publishable.Set(float64(n)) }

// Enrichment.

// RecordEnrichmentLookup increments the boon lookup counter.
func RecordEnrichmentLookup() { globalManager.enrichmentLookups.Inc() }

// RecordEnrichmentMemoHit increments the memo hit counter.
func RecordEnrichmentMemoHit() { globalManager.enrichmentMemoHits.Inc() }

// RecordEnrichmentBackfill increments the backfill counter.
func RecordEnrichmentBackfill() { globalManager.enrichmentBackfills.Inc() }

// RecordEnrichmentFailure increments the unresolved boon counter.
func RecordEnrichmentFailure() { globalManager.enrichmentFailures.Inc() }

// Store.

// RecordStoreUpsert increments the store upsert counter.
func RecordStoreUpsert() { globalManager.storeUpserts.Inc() }

// RecordStoreSave records one successful persist and its latency.
func RecordStoreSave(latencyMs float64) {
	globalManager.storeSaves.Inc()
	globalManager.storeSaveLatency.Observe(latencyMs)
}

// RecordStoreSaveFailure increments the failed persist counter.
func RecordStoreSaveFailure() { globalManager.storeSaveFails.Inc() }

// UpdateStoreBuilds sets the stored build count.
func UpdateStoreBuilds(n int) { globalManager.storeBuilds.Set(float64(n)) }

// esologs client.

// RecordAPICall records one esologs call with its outcome and latency.
func RecordAPICall(operation, outcome string, latencyMs float64) {
	globalManager.apiCalls.WithLabelValues(operation, outcome).Inc()
	globalManager.apiCallDuration.WithLabelValues(operation).Observe(latencyMs)
}

// RecordCacheHit increments the cache hit counter for a tier.
func RecordCacheHit(tier string) { globalManager.cacheHits.WithLabelValues(tier).Inc() }

// RecordCacheMiss increments the cache miss counter for a tier.
func RecordCacheMiss(tier string) { globalManager.cacheMisses.WithLabelValues(tier).Inc() }

// Queue.

// UpdateQueueDepth sets the queued job count.
func UpdateQueueDepth(n int) { globalManager.queueDepth.Set(float64(n)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// UpdateQueueUtilization sets the depth/capacity ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueues.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeues.Inc() }

// RecordQueueRejection increments the rejected-job counter.
func RecordQueueRejection() { globalManager.queueRejections.Inc() }

// Workers.

// UpdateWorkerActiveCount sets the busy worker count.
func UpdateWorkerActiveCount(n int) { globalManager.workerActive.Set(float64(n)) }

// UpdateWorkerIdleCount sets the idle worker count.
func UpdateWorkerIdleCount(n int) { globalManager.workerIdle.Set(float64(n)) }

// RecordWorkerJobLatency records one job latency in milliseconds.
func RecordWorkerJobLatency(latencyMs float64) {
	globalManager.workerJobLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker failure counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP API.

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records one request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Errors.

// RecordErrorByComponent counts an error against a component and kind.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the private registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
