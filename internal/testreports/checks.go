package testreports

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"reflect"
	"sort"

	"github.com/google/uuid"

	"github.com/tamrielmeta/buildscry/internal/domain/consolidate"
	"github.com/tamrielmeta/buildscry/internal/domain/gate"
	"github.com/tamrielmeta/buildscry/internal/domain/grouping"
	"github.com/tamrielmeta/buildscry/internal/domain/loadout"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// canonicalBuild is the order-free projection used to compare aggregates
// produced by different fold orders.
type canonicalBuild struct {
	Count          int
	ReportCount    int
	UpdateVersion  string
	Representative types.InstanceKey
	RepMetric      float64
	Instances      []string
}

func canonicalize(builds []model.ConsolidatedBuild) map[string]canonicalBuild {
	out := make(map[string]canonicalBuild, len(builds))
	for _, b := range builds {
		keys := make([]string, 0, len(b.Instances))
		for _, inst := range b.Instances {
			keys = append(keys, inst.Player.Instance().String())
		}
		sort.Strings(keys)

		out[b.Key().String()] = canonicalBuild{
			Count:          b.Count,
			ReportCount:    b.ReportCount,
			UpdateVersion:  b.UpdateVersion,
			Representative: b.Representative.Player.Instance(),
			RepMetric:      b.Representative.Player.PrimaryMetric(),
			Instances:      keys,
		}
	}
	return out
}

// checkIdentityDeterminism verifies that classifying the same records twice
// yields the same slugs, subclasses and dominant sets.
func checkIdentityDeterminism(ctx context.Context, config *Config, stats *Stats) error {
	report := generateClears(stats, 1)[0]
	records := report.records()

	first := grouping.New().Annotate(ctx, records)
	second := grouping.New().Annotate(ctx, records)
	if len(first) != len(second) {
		return fmt.Errorf("classification count changed between runs: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i].Slug != second[i].Slug {
			return fmt.Errorf("slug changed between runs: %q vs %q", first[i].Slug, second[i].Slug)
		}
		if !reflect.DeepEqual(first[i].Subclasses, second[i].Subclasses) {
			return fmt.Errorf("subclasses changed between runs for %q", first[i].Slug)
		}
		if !reflect.DeepEqual(first[i].DominantSets, second[i].DominantSets) {
			return fmt.Errorf("dominant sets changed between runs for %q", first[i].Slug)
		}
	}

	// Record order within a fight must not matter either.
	reversed := make([]model.PlayerRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		reversed = append(reversed, records[i])
	}
	third := grouping.New().Annotate(ctx, reversed)

	want := slugsOf(first)
	got := slugsOf(third)
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("slugs depend on record order: %v vs %v", want, got)
	}

	log.Printf("✅ identity stable across %d classifications", len(records))
	return nil
}

func slugsOf(builds []model.ClassifiedBuild) []string {
	out := make([]string, 0, len(builds))
	for _, b := range builds {
		out = append(out, b.Slug)
	}
	sort.Strings(out)
	return out
}

// checkFoldCommutativity folds the same reports in shuffled orders and
// demands identical aggregates.
func checkFoldCommutativity(ctx context.Context, config *Config, stats *Stats) error {
	clears := generateClears(stats, config.Reports)
	inputs := make([]consolidate.FoldInput, 0, len(clears))
	for _, report := range clears {
		inputs = append(inputs, report.foldInput(ctx))
	}

	base := consolidate.New()
	for _, in := range inputs {
		base.Fold(ctx, in)
	}
	want := canonicalize(base.Snapshot())

	for p := 0; p < config.Permutations; p++ {
		rng := rand.New(rand.NewSource(config.Seed + int64(p)))
		shuffled := append([]consolidate.FoldInput(nil), inputs...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		cons := consolidate.New()
		for _, in := range shuffled {
			cons.Fold(ctx, in)
		}
		if got := canonicalize(cons.Snapshot()); !reflect.DeepEqual(got, want) {
			return fmt.Errorf("fold order %d produced a different aggregate", p)
		}
	}

	log.Printf("✅ %d fold orders over %d reports agree", config.Permutations, len(inputs))
	return nil
}

// checkFoldIdempotence re-folds already-seen reports and demands an
// unchanged aggregate.
func checkFoldIdempotence(ctx context.Context, config *Config, stats *Stats) error {
	clears := generateClears(stats, 4)
	inputs := make([]consolidate.FoldInput, 0, len(clears))
	for _, report := range clears {
		inputs = append(inputs, report.foldInput(ctx))
	}

	cons := consolidate.New()
	for _, in := range inputs {
		cons.Fold(ctx, in)
	}
	want := canonicalize(cons.Snapshot())

	cons.Fold(ctx, inputs[0])
	cons.Fold(ctx, inputs[len(inputs)-1])

	if got := canonicalize(cons.Snapshot()); !reflect.DeepEqual(got, want) {
		return fmt.Errorf("re-folding seen reports changed the aggregate")
	}

	log.Printf("✅ re-folding %d seen reports changed nothing", 2)
	return nil
}

// checkTwoHandedTally verifies that a two-handed weapon fills its off-hand
// position in the set tally.
func checkTwoHandedTally(ctx context.Context, config *Config, stats *Stats) error {
	analyzer := loadout.New()
	flame := flameArchetype()

	// Armor, jewelry and the front-bar staff only: eleven items.
	staffOnly := append([]model.GearPiece(nil), flame.gear[:11]...)
	tallies := analyzer.Tally(staffOnly)
	if got := tallies.Totals["Relequen"]; got != 7 {
		return fmt.Errorf("staff loadout credits Relequen with %d pieces, want 7", got)
	}
	if got := totalPieces(tallies.Totals); got != 12 {
		return fmt.Errorf("eleven items with one two-hander tallied %d pieces, want 12", got)
	}

	// Both bars on two-handers: twelve items, fourteen credited pieces.
	full := analyzer.Tally(flame.gear)
	if got := totalPieces(full.Totals); got != 14 {
		return fmt.Errorf("double two-hander loadout tallied %d pieces, want 14", got)
	}
	if full.Totals["Deadly Strike"] != 7 || full.Totals["Relequen"] != 7 {
		return fmt.Errorf("double two-hander loadout split %v, want 7 and 7", full.Totals)
	}

	log.Printf("✅ two-handed weapons fill both hands in the tally")
	return nil
}

func totalPieces(totals map[string]int) int {
	sum := 0
	for _, n := range totals {
		sum += n
	}
	return sum
}

// checkPublishThresholds walks both role gates across their boundaries.
func checkPublishThresholds(ctx context.Context, config *Config, stats *Stats) error {
	g := gate.New()

	damage := flameArchetype()
	cons := consolidate.New()
	for sightings := 1; sightings <= 5; sightings++ {
		records := []model.PlayerRecord{damage.record(uuid.NewString(), 1, 11, 100000)}
		builds := grouping.New().Annotate(ctx, records)
		cons.Fold(ctx, consolidate.FoldInput{
			Trial:         trialName,
			Boss:          bossName,
			UpdateVersion: "u46",
			Groups:        grouping.GroupByIdentity(builds),
		})

		b := cons.Snapshot()[0]
		want := sightings >= 5
		if got := g.Publishable(b); got != want {
			return fmt.Errorf("damage build with %d sightings: publishable=%v, want %v", sightings, got, want)
		}
	}

	healer := menderArchetype()
	cons = consolidate.New()
	for sightings := 1; sightings <= 3; sightings++ {
		records := []model.PlayerRecord{healer.record(uuid.NewString(), 1, 21, 42000)}
		builds := grouping.New().Annotate(ctx, records)
		cons.Fold(ctx, consolidate.FoldInput{
			Trial:         trialName,
			Boss:          bossName,
			UpdateVersion: "u46",
			Groups:        grouping.GroupByIdentity(builds),
		})

		b := cons.Snapshot()[0]
		want := sightings >= 3
		if got := g.Publishable(b); got != want {
			return fmt.Errorf("support build with %d sightings: publishable=%v, want %v", sightings, got, want)
		}
	}

	log.Printf("✅ publish gates flip at 5 damage and 3 support sightings")
	return nil
}

// checkRepresentativeSelection verifies the representative is the metric
// maximum no matter which report lands first.
func checkRepresentativeSelection(ctx context.Context, config *Config, stats *Stats) error {
	metrics := []float64{10000, 25000, 18000}

	for p := 0; p < config.Permutations; p++ {
		rng := rand.New(rand.NewSource(config.Seed + int64(p)))
		order := append([]float64(nil), metrics...)
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		flame := flameArchetype()
		cons := consolidate.New()
		for _, dps := range order {
			records := []model.PlayerRecord{flame.record(uuid.NewString(), 1, 11, dps)}
			builds := grouping.New().Annotate(ctx, records)
			cons.Fold(ctx, consolidate.FoldInput{
				Trial:         trialName,
				Boss:          bossName,
				UpdateVersion: "u46",
				Groups:        grouping.GroupByIdentity(builds),
			})
		}

		b := cons.Snapshot()[0]
		if b.Representative.Player.DPS != 25000 {
			return fmt.Errorf("fold order %v elected representative with %.0f dps, want 25000", order, b.Representative.Player.DPS)
		}
	}

	log.Printf("✅ representative is the metric maximum in %d fold orders", config.Permutations)
	return nil
}

// checkReportAccumulation replays the canonical five-report scenario: three
// sightings stay gated, two more flip the build publishable.
func checkReportAccumulation(ctx context.Context, config *Config, stats *Stats) error {
	g := gate.New()
	flame := flameArchetype()
	cons := consolidate.New()

	fold := func() {
		records := []model.PlayerRecord{flame.record(uuid.NewString(), 1, 11, 100000)}
		builds := grouping.New().Annotate(ctx, records)
		cons.Fold(ctx, consolidate.FoldInput{
			Trial:         trialName,
			Boss:          bossName,
			UpdateVersion: "u46",
			Groups:        grouping.GroupByIdentity(builds),
		})
	}

	for i := 0; i < 3; i++ {
		fold()
	}
	b := cons.Snapshot()[0]
	if b.Count != 3 || b.ReportCount != 3 {
		return fmt.Errorf("after three reports: count=%d reports=%d, want 3/3", b.Count, b.ReportCount)
	}
	if g.Publishable(b) {
		return fmt.Errorf("build publishable after three damage sightings")
	}

	wantSubclasses := []string{"Ardent Flame", "Assassination", "Herald of the Tome"}
	if !sameStrings(b.Subclasses, wantSubclasses) {
		return fmt.Errorf("subclasses %v, want %v", b.Subclasses, wantSubclasses)
	}
	wantSets := []string{"Deadly Strike", "Relequen"}
	if !sameStrings(b.Sets, wantSets) {
		return fmt.Errorf("sets %v, want %v", b.Sets, wantSets)
	}

	for i := 0; i < 2; i++ {
		fold()
	}
	b = cons.Snapshot()[0]
	if b.Count != 5 || b.ReportCount != 5 {
		return fmt.Errorf("after five reports: count=%d reports=%d, want 5/5", b.Count, b.ReportCount)
	}
	if !g.Publishable(b) {
		return fmt.Errorf("build not publishable after five damage sightings")
	}

	log.Printf("✅ five-report accumulation flips the build publishable")
	return nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	return reflect.DeepEqual(as, bs)
}
