// Package grouping annotates raw player records with their derived build
// identity and groups them per fight.
package grouping

import (
	"context"
	"time"

	"github.com/tamrielmeta/buildscry/internal/domain/identity"
	"github.com/tamrielmeta/buildscry/internal/domain/loadout"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/skillline"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// Group is the set of players in one fight sharing a build identity.
type Group struct {
	Slug    string
	Players []model.ClassifiedBuild
}

// Count returns the number of player instances in the group.
func (g Group) Count() int { return len(g.Players) }

// Option applies a configuration option to the Annotator.
type Option func(*Annotator)

// WithClassifier replaces the skill line classifier.
func WithClassifier(c *skillline.Classifier) Option {
	return func(a *Annotator) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithAnalyzer replaces the loadout analyzer.
func WithAnalyzer(an *loadout.Analyzer) Option {
	return func(a *Annotator) {
		if an != nil {
			a.analyzer = an
		}
	}
}

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(a *Annotator) {
		if log != nil {
			a.log = log
		}
	}
}

// Annotator turns raw player records into classified builds.
type Annotator struct {
	classifier *skillline.Classifier
	analyzer   *loadout.Analyzer
	log        logger.Logger
}

// New creates an annotator with default classifier and analyzer.
func New(opts ...Option) *Annotator {
	a := &Annotator{
		classifier: skillline.New(),
		analyzer:   loadout.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.log == nil {
		a.log = logger.Get().Named("grouping")
	}

	return a
}

// Annotate classifies every complete record and derives its identity.
// Incomplete records are dropped quietly; they cannot support
// classification and their absence is expected, not an error.
func (a *Annotator) Annotate(ctx context.Context, records []model.PlayerRecord) []model.ClassifiedBuild {
	builds := make([]model.ClassifiedBuild, 0, len(records))
	for _, record := range records {
		if !record.Complete() {
			metrics.RecordRecordDropped()
			a.log.Debug(ctx, "dropping incomplete player record",
				logger.String("character", record.CharacterName),
				logger.String("report", record.ReportCode),
				logger.Int("fight_id", record.FightID),
				logger.Int("gear_pieces", len(record.Gear)),
			)
			continue
		}
		builds = append(builds, a.annotate(record))
	}
	return builds
}

// annotate derives subclasses, set tallies and the identity slug for one
// complete record.
func (a *Annotator) annotate(record model.PlayerRecord) model.ClassifiedBuild {
	start := time.Now()

	lines := a.classifier.Classify(record.Abilities())
	tallies := a.analyzer.Tally(record.Gear)
	dominant := a.analyzer.Dominant(tallies)

	build := model.ClassifiedBuild{
		Player:       record,
		Subclasses:   skillline.Abbrevs(lines),
		SetTotals:    tallies.Totals,
		SetsBar1:     tallies.Bar1,
		SetsBar2:     tallies.Bar2,
		DominantSets: dominant,
		Slug:         identity.Slug(lines, dominant),
	}

	metrics.RecordRecordClassified()
	metrics.RecordClassifyLatency(float64(time.Since(start).Milliseconds()))

	return build
}

// GroupByIdentity partitions classified builds by their identity slug.
// Every group is emitted no matter how small; publication thresholds are
// applied only after cross-report consolidation, so no occurrence count
// is judged here.
func GroupByIdentity(builds []model.ClassifiedBuild) map[string]Group {
	groups := make(map[string]Group)
	for _, build := range builds {
		group, ok := groups[build.Slug]
		if !ok {
			group = Group{Slug: build.Slug}
		}
		group.Players = append(group.Players, build)
		groups[build.Slug] = group
	}
	metrics.RecordGroupsEmitted(len(groups))
	return groups
}
