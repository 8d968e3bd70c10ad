package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
	"github.com/tamrielmeta/buildscry/pkg/logger"
)

func init() {
	if err := logger.Init("text"); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func tempStore(t *testing.T, ctx context.Context) *FileStore {
	t.Helper()
	return NewFileStore(ctx, WithPath(filepath.Join(t.TempDir(), "builds.json")))
}

func testBuild(trial, boss, slug string, count int, updated time.Time) model.ConsolidatedBuild {
	return model.ConsolidatedBuild{
		Trial:      trial,
		Boss:       boss,
		Slug:       slug,
		Subclasses: []string{"Ardent Flame", "Assassination", "Herald of the Tome"},
		Sets:       []string{"Deadly Strike", "Relequen"},
		Count:      count,
		Representative: model.ClassifiedBuild{
			Player: model.PlayerRecord{
				ReportCode:    "AbC123",
				FightID:       5,
				SourceID:      1,
				CharacterName: "Scaleblade",
				Role:          types.RoleDamage,
				DPS:           112000,
				Mundus:        "The Thief",
			},
			Subclasses:   []string{"Ardent", "Ass", "Herald"},
			DominantSets: []string{"Deadly Strike", "Relequen"},
			Slug:         slug,
		},
		UpdateVersion: "u46",
		LastUpdated:   updated,
	}
}

func TestFileStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t, ctx)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	// Empty store
	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if _, err := store.Get(ctx, types.BuildKey{Trial: "t", Boss: "b", Slug: "s"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// First upsert
	build := testBuild("Dreadsail Reef", "Tideborn Taleria", "ardent-ass-herald-deadly-strike-relequen", 5, now)
	accepted, err := store.Upsert(ctx, build)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !accepted {
		t.Error("expected upsert to be accepted")
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	// Get returns what was stored
	got, err := store.Get(ctx, build.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 5 || got.Slug != build.Slug {
		t.Errorf("unexpected build: %+v", got)
	}
}

func TestFileStore_FreshOverStale(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t, ctx)
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	first := testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 5, base)
	if accepted, _ := store.Upsert(ctx, first); !accepted {
		t.Fatal("expected first upsert to be accepted")
	}

	// A fresher build replaces
	fresher := testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 8, base.Add(time.Hour))
	if accepted, _ := store.Upsert(ctx, fresher); !accepted {
		t.Error("expected fresher upsert to be accepted")
	}
	got, _ := store.Get(ctx, fresher.Key())
	if got.Count != 8 {
		t.Errorf("expected count 8 after fresher upsert, got %d", got.Count)
	}

	// A staler build is refused
	staler := testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 2, base.Add(-time.Hour))
	if accepted, _ := store.Upsert(ctx, staler); accepted {
		t.Error("expected staler upsert to be refused")
	}
	got, _ = store.Get(ctx, staler.Key())
	if got.Count != 8 {
		t.Errorf("expected count 8 to survive stale upsert, got %d", got.Count)
	}

	// Same timestamp counts as fresh (same-pass re-upsert)
	same := testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 9, base.Add(time.Hour))
	if accepted, _ := store.Upsert(ctx, same); !accepted {
		t.Error("expected same-timestamp upsert to be accepted")
	}
}

func TestFileStore_Listing(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t, ctx)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	builds := []model.ConsolidatedBuild{
		testBuild("Sunspire", "Nahviintaas", "slug-c", 5, now),
		testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-b", 6, now),
		testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 7, now),
	}
	for _, b := range builds {
		if _, err := store.Upsert(ctx, b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all := store.ListAll(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 builds, got %d", len(all))
	}
	// Ordered by key: Dreadsail before Sunspire, slug-a before slug-b
	if all[0].Slug != "slug-a" || all[1].Slug != "slug-b" || all[2].Slug != "slug-c" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].Slug, all[1].Slug, all[2].Slug)
	}

	dreadsail := store.ListTrial(ctx, "Dreadsail Reef")
	if len(dreadsail) != 2 {
		t.Fatalf("expected 2 Dreadsail builds, got %d", len(dreadsail))
	}
	if dreadsail[0].Slug != "slug-a" {
		t.Errorf("expected slug-a first, got %s", dreadsail[0].Slug)
	}

	if empty := store.ListTrial(ctx, "Rockgrove"); len(empty) != 0 {
		t.Errorf("expected no Rockgrove builds, got %d", len(empty))
	}
}

func TestFileStore_Meta(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t, ctx)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	store.SetTrialMeta(ctx, "Dreadsail Reef", TrialMeta{
		LastUpdated:   now,
		UpdateVersion: "u46",
		CacheStats:    CacheStats{MemoryHits: 10, DiskHits: 4, Misses: 2},
	})
	store.MarkFullUpdate(ctx, now)

	meta := store.Meta(ctx)
	trial, ok := meta.Trials["Dreadsail Reef"]
	if !ok {
		t.Fatal("expected Dreadsail Reef meta")
	}
	if trial.UpdateVersion != "u46" {
		t.Errorf("expected u46, got %s", trial.UpdateVersion)
	}
	if trial.CacheStats.MemoryHits != 10 || trial.CacheStats.Misses != 2 {
		t.Errorf("unexpected cache stats: %+v", trial.CacheStats)
	}
	if !meta.LastFullUpdate.Equal(now) {
		t.Errorf("expected last full update %v, got %v", now, meta.LastFullUpdate)
	}

	// An older full-update mark never rewinds the clock
	store.MarkFullUpdate(ctx, now.Add(-time.Hour))
	if got := store.Meta(ctx).LastFullUpdate; !got.Equal(now) {
		t.Errorf("expected %v to survive older mark, got %v", now, got)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "builds.json")
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	source := NewFileStore(ctx, WithPath(path))
	build := testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 5, now)
	if _, err := source.Upsert(ctx, build); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	source.SetTrialMeta(ctx, "Dreadsail Reef", TrialMeta{LastUpdated: now, UpdateVersion: "u46"})
	source.MarkFullUpdate(ctx, now)
	if err := source.Save(ctx); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	restored := NewFileStore(ctx, WithPath(path))
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if count := restored.Count(ctx); count != 1 {
		t.Fatalf("expected 1 build after load, got %d", count)
	}
	got, err := restored.Get(ctx, build.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 5 || got.UpdateVersion != "u46" {
		t.Errorf("unexpected build after load: count=%d version=%s", got.Count, got.UpdateVersion)
	}
	if got.Representative.Player.CharacterName != "Scaleblade" {
		t.Errorf("representative lost in round trip: %+v", got.Representative.Player)
	}
	if got.Representative.Player.Role != types.RoleDamage {
		t.Errorf("role lost in round trip: %s", got.Representative.Player.Role)
	}
	if !got.LastUpdated.Equal(now) {
		t.Errorf("timestamp drift: want %v, got %v", now, got.LastUpdated)
	}

	meta := restored.Meta(ctx)
	if meta.Trials["Dreadsail Reef"].UpdateVersion != "u46" {
		t.Errorf("trial meta lost in round trip: %+v", meta.Trials)
	}
	if !meta.LastFullUpdate.Equal(now) {
		t.Errorf("last full update lost: %v", meta.LastFullUpdate)
	}
}

func TestFileStore_LoadMergesUnderFresh(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "builds.json")
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	// Persist an older snapshot.
	older := NewFileStore(ctx, WithPath(path))
	stale := testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 3, base)
	if _, err := older.Upsert(ctx, stale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := older.Save(ctx); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// A live store already holds fresher data for the same key.
	live := NewFileStore(ctx, WithPath(path))
	fresh := testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 9, base.Add(time.Hour))
	if _, err := live.Upsert(ctx, fresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := live.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	got, _ := live.Get(ctx, fresh.Key())
	if got.Count != 9 {
		t.Errorf("expected fresh build to survive load, got count %d", got.Count)
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(ctx, WithPath(filepath.Join(t.TempDir(), "nope", "builds.json")))

	if err := store.Load(ctx); err != nil {
		t.Errorf("expected clean start on missing file, got %v", err)
	}
	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected empty store, got %d", count)
	}
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "builds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store := NewFileStore(ctx, WithPath(path))
	if err := store.Load(ctx); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestFileStore_SaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "builds.json")
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	store := NewFileStore(ctx, WithPath(path))
	if _, err := store.Upsert(ctx, testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 5, now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected temp file to be renamed away, stat: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected builds file to exist: %v", err)
	}
}

func TestFileStore_Close(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "builds.json")
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	store := NewFileStore(ctx, WithPath(path), WithAutosaveInterval(time.Hour))
	if _, err := store.Upsert(ctx, testBuild("Dreadsail Reef", "Tideborn Taleria", "slug-a", 5, now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected final snapshot on close: %v", err)
	}

	// Double close is safe.
	if err := store.Close(); err != nil {
		t.Errorf("expected idempotent close, got %v", err)
	}
}

func TestFileStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t, ctx)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				slug := fmt.Sprintf("slug-%d-%d", g, i)
				if _, err := store.Upsert(ctx, testBuild("Dreadsail Reef", "Tideborn Taleria", slug, 5, now)); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	if count := store.Count(ctx); count != 500 {
		t.Errorf("expected 500 builds, got %d", count)
	}
}
