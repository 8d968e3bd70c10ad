// Package consolidate merges build groups across independent reports.
//
// Folds are idempotent and commutative: every player instance is guarded
// by its provenance key, and the representative is chosen by a total
// order, so refetched reports and arbitrary fold interleavings always
// land on the same aggregate.
package consolidate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tamrielmeta/buildscry/internal/domain/dedupe"
	"github.com/tamrielmeta/buildscry/internal/domain/grouping"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/skillline"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// FoldInput is one fight's grouped players tagged with provenance.
type FoldInput struct {
	Trial         string
	Boss          string
	UpdateVersion string
	Groups        map[string]grouping.Group
}

// Option applies a configuration option to the Consolidator.
type Option func(*Consolidator)

// WithDeduper replaces the provenance tracker.
func WithDeduper(d dedupe.Deduper) Option {
	return func(c *Consolidator) {
		if d != nil {
			c.deduper = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Consolidator) {
		if log != nil {
			c.log = log
		}
	}
}

// aggregate is the evolving state for one (trial, boss, slug) key.
type aggregate struct {
	trial string
	boss  string
	slug  string

	instances []model.ClassifiedBuild
	reports   map[string]struct{}
	versions  map[string]string // report code -> update version
}

// Consolidator folds per-fight build groups into per-encounter aggregates.
// A single mutex serializes folds; reports are fetched concurrently but a
// fold itself is cheap map work.
type Consolidator struct {
	mu      sync.Mutex
	deduper dedupe.Deduper
	aggs    map[types.BuildKey]*aggregate
	log     logger.Logger
}

// New creates an empty consolidator. Callers typically create one per
// scan pass so provenance tracking starts clean.
func New(opts ...Option) *Consolidator {
	c := &Consolidator{
		aggs: make(map[types.BuildKey]*aggregate),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.deduper == nil {
		// Unbounded: a scan pass must never forget an instance it
		// already folded, or retries would double-count.
		c.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	}
	if c.log == nil {
		c.log = logger.Get().Named("consolidate")
	}

	return c
}

// Fold merges one fight's groups into the running aggregates. Instances
// already recorded for the same (report, fight, source) are skipped, so
// folding the same report twice leaves every aggregate unchanged.
func (c *Consolidator) Fold(ctx context.Context, in FoldInput) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for slug, group := range in.Groups {
		if len(group.Players) == 0 {
			continue
		}

		key := types.BuildKey{Trial: in.Trial, Boss: in.Boss, Slug: slug}
		agg, ok := c.aggs[key]
		if !ok {
			agg = &aggregate{
				trial:    in.Trial,
				boss:     in.Boss,
				slug:     slug,
				reports:  make(map[string]struct{}),
				versions: make(map[string]string),
			}
			c.aggs[key] = agg
		}

		for _, player := range group.Players {
			instance := player.Player.Instance()
			if c.deduper.SeenAndRecord(ctx, instance) {
				metrics.RecordFoldDuplicate()
				c.log.Debug(ctx, "skipping already folded instance",
					logger.String("instance", instance.String()),
					logger.String("build", key.String()),
				)
				continue
			}

			agg.instances = append(agg.instances, player)
			agg.reports[instance.ReportCode] = struct{}{}
			if in.UpdateVersion != "" {
				agg.versions[instance.ReportCode] = in.UpdateVersion
			}
			metrics.RecordFoldApplied()
		}
	}

	metrics.UpdateAggregatesLive(len(c.aggs))
}

// Len returns the number of live aggregates.
func (c *Consolidator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.aggs)
}

// TrialVersions returns, per trial, the update version seen by the most
// distinct contributing reports, ties resolved toward the newest label.
func (c *Consolidator) TrialVersions() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	perTrial := make(map[string]map[string]string)
	for key, agg := range c.aggs {
		reports := perTrial[key.Trial]
		if reports == nil {
			reports = make(map[string]string)
			perTrial[key.Trial] = reports
		}
		for code, version := range agg.versions {
			reports[code] = version
		}
	}

	out := make(map[string]string, len(perTrial))
	for trial, reports := range perTrial {
		counts := make(map[string]int, len(reports))
		for _, version := range reports {
			counts[version]++
		}

		best := ""
		bestCount := 0
		for version, count := range counts {
			if count > bestCount || (count == bestCount && version > best) {
				best = version
				bestCount = count
			}
		}
		if best != "" {
			out[trial] = best
		}
	}
	return out
}

// Snapshot finalizes every aggregate into a ConsolidatedBuild, sorted by
// key for stable output. The representative is the instance with the
// highest primary metric; exact ties resolve by provenance key so the
// outcome never depends on fold order.
func (c *Consolidator) Snapshot() []model.ConsolidatedBuild {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	builds := make([]model.ConsolidatedBuild, 0, len(c.aggs))
	for _, agg := range c.aggs {
		if len(agg.instances) == 0 {
			continue
		}
		builds = append(builds, agg.finalize(now))
	}

	sort.Slice(builds, func(i, j int) bool {
		return builds[i].Key().String() < builds[j].Key().String()
	})
	return builds
}

// finalize derives the outward-facing aggregate record.
func (agg *aggregate) finalize(now time.Time) model.ConsolidatedBuild {
	rep := representative(agg.instances)

	subclasses := make([]string, 0, len(rep.Subclasses))
	for _, abbrev := range rep.Subclasses {
		subclasses = append(subclasses, skillline.ByAbbrev(abbrev).Display())
	}

	instances := make([]model.ClassifiedBuild, len(agg.instances))
	copy(instances, agg.instances)
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Player.Instance().String() < instances[j].Player.Instance().String()
	})

	if rep.Player.Mundus == "" {
		// Another sighting of the same character may carry the boon the
		// representative's fight never exposed. Scan the sorted copy so
		// the borrowed boon does not depend on fold order.
		for _, candidate := range instances {
			if candidate.Player.CharacterName == rep.Player.CharacterName && candidate.Player.Mundus != "" {
				rep.Player.Mundus = candidate.Player.Mundus
				break
			}
		}
	}

	return model.ConsolidatedBuild{
		Trial:          agg.trial,
		Boss:           agg.boss,
		Slug:           agg.slug,
		Subclasses:     subclasses,
		Sets:           append([]string(nil), rep.DominantSets...),
		Count:          len(agg.instances),
		ReportCount:    len(agg.reports),
		Representative: rep,
		Instances:      instances,
		UpdateVersion:  agg.updateVersion(),
		LastUpdated:    now,
	}
}

// representative picks the instance with the maximum primary metric.
// Equal metrics fall back to the smaller provenance key so the choice is
// a total order over instances.
func representative(instances []model.ClassifiedBuild) model.ClassifiedBuild {
	best := instances[0]
	bestMetric := best.Player.PrimaryMetric()
	bestKey := best.Player.Instance().String()

	for _, candidate := range instances[1:] {
		metric := candidate.Player.PrimaryMetric()
		key := candidate.Player.Instance().String()
		if metric > bestMetric || (metric == bestMetric && key < bestKey) {
			best = candidate
			bestMetric = metric
			bestKey = key
		}
	}
	return best
}

// updateVersion returns the version seen by the most distinct reports,
// ties resolved toward the lexicographically greatest (newest) label.
func (agg *aggregate) updateVersion() string {
	if len(agg.versions) == 0 {
		return ""
	}

	counts := make(map[string]int, len(agg.versions))
	for _, version := range agg.versions {
		counts[version]++
	}

	best := ""
	bestCount := 0
	for version, count := range counts {
		if count > bestCount || (count == bestCount && version > best) {
			best = version
			bestCount = count
		}
	}
	return best
}
