package testreports

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tamrielmeta/buildscry/internal/adapters/esologs"
	"github.com/tamrielmeta/buildscry/internal/adapters/repository"
	service "github.com/tamrielmeta/buildscry/internal/app"
	"github.com/tamrielmeta/buildscry/internal/domain/grouping"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// runScanScenario drives generated reports through a full scan pass with the
// real table parser, then confirms the persisted snapshot survives a reload.
func runScanScenario(ctx context.Context, config *Config, stats *Stats) error {
	// Five clears: enough sightings to clear the damage gate.
	clears := generateClears(stats, 5)
	source, err := newMemorySource(clears)
	if err != nil {
		return fmt.Errorf("build memory source: %w", err)
	}

	svc := service.New(
		service.WithSource(source),
		service.WithParser(esologs.NewParser()),
		service.WithOutputPath(config.OutputFile),
		service.WithWorkerCount(2),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	log.Printf("🔍 scanning %d generated reports for %s", len(clears), trialName)
	if !waitForPass(svc, scanPassTimeout) {
		return fmt.Errorf("scan pass did not finish within %s", scanPassTimeout)
	}

	flameKey, err := buildKeyFor(ctx, flameArchetype())
	if err != nil {
		return err
	}
	menderKey, err := buildKeyFor(ctx, menderArchetype())
	if err != nil {
		return err
	}

	flame, err := svc.Build(ctx, flameKey)
	if err != nil {
		return fmt.Errorf("damage build %s missing after scan: %w", flameKey, err)
	}
	if flame.Count != len(clears) || flame.ReportCount != len(clears) {
		return fmt.Errorf("damage build count=%d reports=%d, want %d/%d", flame.Count, flame.ReportCount, len(clears), len(clears))
	}
	if !svc.Publishable(flame) {
		return fmt.Errorf("damage build with %d sightings not publishable", flame.Count)
	}
	if flame.UpdateVersion != "u46" {
		return fmt.Errorf("damage build tagged %q, want u46", flame.UpdateVersion)
	}
	if flame.Representative.Player.Mundus != "The Thief" {
		return fmt.Errorf("damage representative boon %q, want The Thief", flame.Representative.Player.Mundus)
	}
	log.Printf("🏆 damage representative: %s at %.0f dps", flame.Representative.Player.CharacterName, flame.Representative.Player.DPS)

	mender, err := svc.Build(ctx, menderKey)
	if err != nil {
		return fmt.Errorf("support build %s missing after scan: %w", menderKey, err)
	}
	if mender.Count != len(clears) {
		return fmt.Errorf("support build count=%d, want %d", mender.Count, len(clears))
	}
	if mender.Representative.Player.Mundus != "The Atronach" {
		return fmt.Errorf("support representative boon %q, want The Atronach", mender.Representative.Player.Mundus)
	}

	meta := svc.Meta(ctx)
	trial, ok := meta.Trials[trialName]
	if !ok {
		return fmt.Errorf("trial %q missing from store metadata", trialName)
	}
	if trial.UpdateVersion != "u46" {
		return fmt.Errorf("trial stamped %q, want u46", trial.UpdateVersion)
	}
	if meta.LastFullUpdate.IsZero() {
		return fmt.Errorf("full update timestamp never set")
	}

	stats.BuildsConsolidated = len(svc.Builds(ctx, ""))
	svc.Stop()

	// A fresh store reading the snapshot file must agree with what was
	// served before shutdown.
	reloaded := repository.NewFileStore(ctx, repository.WithPath(config.OutputFile))
	if err := reloaded.Load(ctx); err != nil {
		return fmt.Errorf("reload snapshot: %w", err)
	}
	again, err := reloaded.Get(ctx, flameKey)
	if err != nil {
		return fmt.Errorf("damage build missing from reloaded snapshot: %w", err)
	}
	if again.Count != flame.Count || again.ReportCount != flame.ReportCount {
		return fmt.Errorf("reloaded build count=%d reports=%d, want %d/%d", again.Count, again.ReportCount, flame.Count, flame.ReportCount)
	}
	if again.Representative.Player.Mundus != "The Thief" {
		return fmt.Errorf("representative boon lost in snapshot round-trip")
	}
	if err := reloaded.Close(); err != nil {
		return fmt.Errorf("close reloaded store: %w", err)
	}

	log.Printf("✅ full scan stored %d builds and the snapshot reloads intact", stats.BuildsConsolidated)
	return nil
}

// buildKeyFor classifies a single probe record to learn the store key the
// scan will have filed the archetype under.
func buildKeyFor(ctx context.Context, arch archetype) (types.BuildKey, error) {
	probe := arch.record("slug-probe", 1, 11, 100000)
	annotated := grouping.New().Annotate(ctx, []model.PlayerRecord{probe})
	if len(annotated) != 1 {
		return types.BuildKey{}, fmt.Errorf("probe record for %s did not classify", arch.name)
	}
	return types.BuildKey{Trial: trialName, Boss: bossName, Slug: annotated[0].Slug}, nil
}

func waitForPass(svc *service.Service, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if passes, ok := svc.Stats()["scan_passes"].(int); ok && passes >= 1 {
			return true
		}
		time.Sleep(pollInterval)
	}
	return false
}
