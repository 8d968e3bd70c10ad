// Package enrich resolves the mundus boon for published builds.
//
// Boon data lives in a per-fight buff table, a separate API call per
// player, so it is only fetched for builds that survive the publish
// gate. Successful lookups are memoized by character name and a second
// pass backfills builds whose own lookup failed but whose character
// resolved elsewhere in the batch.
package enrich

import (
	"context"
	"sync"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// BoonSource resolves the mundus boon a player carried during one fight.
// An empty boon with a nil error means the player had no detectable boon.
type BoonSource interface {
	PlayerBoon(ctx context.Context, reportCode string, fightID, sourceID int, startTime, endTime int64) (string, error)
}

// Option applies a configuration option to the Enricher.
type Option func(*Enricher)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Enricher) {
		if log != nil {
			e.log = log
		}
	}
}

// Enricher fills in Representative boons, memoizing per character.
type Enricher struct {
	source BoonSource
	log    logger.Logger

	mu   sync.Mutex
	memo map[string]string // character name -> boon
}

// New creates an Enricher backed by the given source.
func New(source BoonSource, opts ...Option) *Enricher {
	e := &Enricher{
		source: source,
		memo:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = logger.Get().Named("enrich")
	}

	return e
}

// Enrich returns a copy of builds with representative boons filled in
// where they were missing. Builds that already carry a boon pass through
// untouched; lookup failures leave the boon empty rather than failing
// the batch.
func (e *Enricher) Enrich(ctx context.Context, builds []model.ConsolidatedBuild) []model.ConsolidatedBuild {
	out := make([]model.ConsolidatedBuild, len(builds))
	copy(out, builds)

	var pending []int
	for i := range out {
		rep := &out[i].Representative.Player
		if rep.Mundus != "" {
			continue
		}

		if boon, ok := e.recall(rep.CharacterName); ok {
			rep.Mundus = boon
			metrics.RecordEnrichmentMemoHit()
			continue
		}

		metrics.RecordEnrichmentLookup()
		boon, err := e.source.PlayerBoon(ctx, rep.ReportCode, rep.FightID, rep.SourceID, rep.FightStartTime, rep.FightEndTime)
		if err != nil {
			metrics.RecordEnrichmentFailure()
			e.log.Warn(ctx, "boon lookup failed",
				logger.String("character", rep.CharacterName),
				logger.String("report_code", rep.ReportCode),
				logger.Int("fight_id", rep.FightID),
				logger.Error(err),
			)
			pending = append(pending, i)
			continue
		}
		if boon == "" {
			e.log.Debug(ctx, "no boon visible in fight",
				logger.String("character", rep.CharacterName),
				logger.String("report_code", rep.ReportCode),
			)
			pending = append(pending, i)
			continue
		}

		rep.Mundus = boon
		e.remember(rep.CharacterName, boon)
	}

	// Lookups later in the batch may have resolved a character whose own
	// fight gave nothing.
	for _, i := range pending {
		rep := &out[i].Representative.Player
		if boon, ok := e.recall(rep.CharacterName); ok {
			rep.Mundus = boon
			metrics.RecordEnrichmentBackfill()
		}
	}

	return out
}

func (e *Enricher) recall(character string) (string, bool) {
	if character == "" {
		return "", false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	boon, ok := e.memo[character]
	return boon, ok
}

func (e *Enricher) remember(character, boon string) {
	if character == "" || boon == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.memo[character] = boon
}
