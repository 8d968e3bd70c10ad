package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	esologs "github.com/tamrielmeta/buildscry/internal/adapters/esologs"
	repository "github.com/tamrielmeta/buildscry/internal/adapters/repository"
	service "github.com/tamrielmeta/buildscry/internal/app"
	model "github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
	"github.com/tamrielmeta/buildscry/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init("text"); err != nil {
		panic(err)
	}
}

var (
	guardian = model.Encounter{ID: 52, Name: "Reef Guardian"}
	taleria  = model.Encounter{ID: 53, Name: "Tideborn Taleria"}
)

// flameSlug is the identity produced by damageRecord's loadout.
const flameSlug = "ardent-ass-herald-deadly-strike-relequen"

func dreadsailZone() model.Zone {
	return model.Zone{
		ID:         19,
		Name:       "Dreadsail Reef",
		Encounters: []model.Encounter{guardian, taleria},
	}
}

// clearReport kills both Dreadsail bosses once each.
func clearReport(code string) model.Report {
	return model.Report{
		Code:        code,
		GameVersion: "10.6.0",
		Fights: []model.Fight{
			{ID: 1, Name: "Reef Guardian", Difficulty: 122, Kill: true, StartTime: 0, EndTime: 300000},
			{ID: 2, Name: "Tideborn Taleria", Difficulty: 122, Kill: true, StartTime: 300000, EndTime: 600000},
		},
	}
}

// damageRecord is a complete damage record resolving to Ardent Flame,
// Assassination and Herald of the Tome in Deadly Strike and Relequen.
func damageRecord(report string, fightID, sourceID int, dps float64) model.PlayerRecord {
	armor := []model.Slot{model.SlotHead, model.SlotShoulders, model.SlotChest, model.SlotHands, model.SlotWaist}
	jewelry := []model.Slot{model.SlotLegs, model.SlotFeet, model.SlotNeck, model.SlotRing1, model.SlotRing2}

	gear := make([]model.GearPiece, 0, 12)
	for _, slot := range armor {
		gear = append(gear, model.GearPiece{Slot: slot, ItemName: "Deadly Piece", SetName: "Deadly Strike", Trait: "Divines"})
	}
	for _, slot := range jewelry {
		gear = append(gear, model.GearPiece{Slot: slot, ItemName: "Relequen Piece", SetName: "Relequen", Trait: "Divines"})
	}
	gear = append(gear,
		model.GearPiece{Slot: model.SlotMainHand, ItemName: "Relequen Inferno Staff", SetName: "Relequen", Trait: "Precise", Bar: 1},
		model.GearPiece{Slot: model.SlotBackupMainHand, ItemName: "Deadly Greatsword", SetName: "Deadly Strike", Trait: "Precise", Bar: 2},
	)

	frontNames := []string{"Molten Whip", "Burning Embers", "Engulfing Flames", "Flames of Oblivion", "Cauterize", "Standard of Might"}
	backNames := []string{"Merciless Resolve", "Impale", "Ambush", "Fatecarver", "Cephaliarch's Flail", "Incapacitating Strike"}
	front := make([]model.Ability, 0, model.BarSize)
	back := make([]model.Ability, 0, model.BarSize)
	for i, name := range frontNames {
		front = append(front, model.Ability{Name: name, Slot: i, Bar: 1})
	}
	for i, name := range backNames {
		back = append(back, model.Ability{Name: name, Slot: i, Bar: 2})
	}

	return model.PlayerRecord{
		ReportCode:     report,
		FightID:        fightID,
		SourceID:       sourceID,
		CharacterName:  fmt.Sprintf("Blade %d", sourceID),
		Role:           types.RoleDamage,
		DPS:            dps,
		Gear:           gear,
		FrontBar:       front,
		BackBar:        back,
		FightStartTime: 300000,
		FightEndTime:   600000,
	}
}

// healerRecord resolves to Restoring Light, Green Balance and Living Death
// in Spell Power Cure and Jorvuld's Guidance.
func healerRecord(report string, fightID, sourceID int, healing float64) model.PlayerRecord {
	armor := []model.Slot{model.SlotHead, model.SlotShoulders, model.SlotChest, model.SlotHands, model.SlotWaist}
	jewelry := []model.Slot{model.SlotLegs, model.SlotFeet, model.SlotNeck, model.SlotRing1, model.SlotRing2}

	gear := make([]model.GearPiece, 0, 12)
	for _, slot := range armor {
		gear = append(gear, model.GearPiece{Slot: slot, ItemName: "Cure Piece", SetName: "Spell Power Cure", Trait: "Divines"})
	}
	for _, slot := range jewelry {
		gear = append(gear, model.GearPiece{Slot: slot, ItemName: "Jorvuld Piece", SetName: "Jorvuld's Guidance", Trait: "Arcane"})
	}
	gear = append(gear,
		model.GearPiece{Slot: model.SlotMainHand, ItemName: "Jorvuld Restoration Staff", SetName: "Jorvuld's Guidance", Trait: "Powered", Bar: 1},
		model.GearPiece{Slot: model.SlotBackupMainHand, ItemName: "Cure Restoration Staff", SetName: "Spell Power Cure", Trait: "Powered", Bar: 2},
	)

	frontNames := []string{"Breath of Life", "Ritual of Rebirth", "Channeled Focus", "Extended Ritual", "Radiant Aura", "Remembrance"}
	backNames := []string{"Budding Seeds", "Enchanted Growth", "Leeching Vines", "Spirit Guardian", "Render Flesh", "Enchanted Forest"}
	front := make([]model.Ability, 0, model.BarSize)
	back := make([]model.Ability, 0, model.BarSize)
	for i, name := range frontNames {
		front = append(front, model.Ability{Name: name, Slot: i, Bar: 1})
	}
	for i, name := range backNames {
		back = append(back, model.Ability{Name: name, Slot: i, Bar: 2})
	}

	return model.PlayerRecord{
		ReportCode:     report,
		FightID:        fightID,
		SourceID:       sourceID,
		CharacterName:  fmt.Sprintf("Mender %d", sourceID),
		Role:           types.RoleHealer,
		DPS:            9000,
		Healing:        healing,
		Gear:           gear,
		FrontBar:       front,
		BackBar:        back,
		FightStartTime: 300000,
		FightEndTime:   600000,
	}
}

// Mock implementations for testing.
type fakeSource struct {
	mu       sync.Mutex
	zones    []model.Zone
	zonesErr error
	rankings map[int][]model.Ranking
	rankErrs map[int]error
	reports  map[string]model.Report
	boons    map[string]string
	cache    esologs.CacheStats
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		rankings: make(map[int][]model.Ranking),
		rankErrs: make(map[int]error),
		reports:  make(map[string]model.Report),
		boons:    make(map[string]string),
	}
}

func boonKey(code string, fightID, sourceID int) string {
	return fmt.Sprintf("%s/%d/%d", code, fightID, sourceID)
}

func (s *fakeSource) serveZones(zones ...model.Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = zones
}

func (s *fakeSource) rankReports(encounterID int, codes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, code := range codes {
		s.rankings[encounterID] = append(s.rankings[encounterID], model.Ranking{
			PlayerName: fmt.Sprintf("Ranked %d", i+1),
			Class:      "DragonKnight",
			Amount:     120000 - float64(i),
			ReportCode: code,
			FightID:    2,
		})
	}
}

func (s *fakeSource) failRankings(encounterID int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankErrs[encounterID] = err
}

func (s *fakeSource) addReport(r model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.Code] = r
}

func (s *fakeSource) serveBoon(code string, fightID, sourceID int, boon string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boons[boonKey(code, fightID, sourceID)] = boon
}

func (s *fakeSource) Zones(ctx context.Context) ([]model.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.zonesErr != nil {
		return nil, s.zonesErr
	}
	return append([]model.Zone(nil), s.zones...), nil
}

func (s *fakeSource) TopRankings(ctx context.Context, zoneID, encounterID, limit int) ([]model.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rankErrs[encounterID]; err != nil {
		return nil, err
	}
	rankings := s.rankings[encounterID]
	if limit > 0 && limit < len(rankings) {
		rankings = rankings[:limit]
	}
	return append([]model.Ranking(nil), rankings...), nil
}

func (s *fakeSource) Report(ctx context.Context, code string) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[code]
	if !ok {
		return model.Report{}, esologs.ErrReportNotFound
	}
	return report, nil
}

func (s *fakeSource) Table(ctx context.Context, code string, fightID int, startTime, endTime int64, dataType string, combatantInfo bool) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (s *fakeSource) PlayerBoon(ctx context.Context, reportCode string, fightID, sourceID int, startTime, endTime int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boons[boonKey(reportCode, fightID, sourceID)], nil
}

func (s *fakeSource) CacheStats() esologs.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

type fakeParser struct {
	mu      sync.Mutex
	records map[string][]model.PlayerRecord
	calls   []string
}

func newFakeParser() *fakeParser {
	return &fakeParser{records: make(map[string][]model.PlayerRecord)}
}

func parseKey(code string, fightID int) string {
	return fmt.Sprintf("%s/%d", code, fightID)
}

func (p *fakeParser) serve(code string, fightID int, records ...model.PlayerRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[parseKey(code, fightID)] = records
}

func (p *fakeParser) ParseFight(ctx context.Context, reportCode string, fight model.Fight, summaryRaw, damageRaw, healingRaw []byte) ([]model.PlayerRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := parseKey(reportCode, fight.ID)
	p.calls = append(p.calls, key)
	return p.records[key], nil
}

func (p *fakeParser) timesParsed(code string, fightID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, call := range p.calls {
		if call == parseKey(code, fightID) {
			n++
		}
	}
	return n
}

// waitForPasses polls the service until at least n scan passes have landed
// or the deadline expires.
func waitForPasses(svc *service.Service, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if passes, ok := svc.Stats()["scan_passes"].(int); ok && passes >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func storedBuild(trial, boss, slug string, role types.Role, count int) model.ConsolidatedBuild {
	return model.ConsolidatedBuild{
		Trial:      trial,
		Boss:       boss,
		Slug:       slug,
		Subclasses: []string{"Ardent Flame", "Assassination", "Herald of the Tome"},
		Sets:       []string{"Deadly Strike", "Relequen"},
		Count:      count,
		Representative: model.ClassifiedBuild{
			Player: model.PlayerRecord{CharacterName: "Scaleblade", Role: role, DPS: 112000},
		},
		UpdateVersion: "u46",
		LastUpdated:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a service with default options", t, func() {
		svc := service.New()

		Convey("Then it reports sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.Stats()
			So(stats["started"], ShouldBeFalse)
			So(stats["worker_count"], ShouldEqual, 4)
			So(stats["queue_capacity"], ShouldEqual, 1024)
			So(stats["scan_passes"], ShouldEqual, 0)
		})

		Convey("Then the default gate needs five damage sightings", func() {
			b := storedBuild("Dreadsail Reef", "Tideborn Taleria", flameSlug, types.RoleDamage, 5)
			So(svc.Publishable(b), ShouldBeTrue)

			b.Count = 4
			So(svc.Publishable(b), ShouldBeFalse)
		})

		Convey("Then the default gate needs three support sightings", func() {
			b := storedBuild("Dreadsail Reef", "Tideborn Taleria", flameSlug, types.RoleHealer, 3)
			So(svc.Publishable(b), ShouldBeTrue)

			b.Count = 2
			So(svc.Publishable(b), ShouldBeFalse)
		})
	})

	Convey("Given a service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(64),
			service.WithTopLogs(3),
			service.WithDamageThreshold(2),
			service.WithSupportThreshold(1),
		)

		Convey("Then the stats reflect the configuration", func() {
			stats := svc.Stats()
			So(stats["worker_count"], ShouldEqual, 8)
			So(stats["queue_capacity"], ShouldEqual, 64)
		})

		Convey("Then the gate follows the lowered thresholds", func() {
			damage := storedBuild("Dreadsail Reef", "Tideborn Taleria", flameSlug, types.RoleDamage, 2)
			So(svc.Publishable(damage), ShouldBeTrue)

			tank := storedBuild("Dreadsail Reef", "Tideborn Taleria", flameSlug, types.RoleTank, 1)
			So(svc.Publishable(tank), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service over a source with an empty trial", t, func() {
		source := newFakeSource()
		source.serveZones(model.Zone{ID: 19, Name: "Dreadsail Reef"})

		svc := service.New(
			service.WithSource(source),
			service.WithParser(newFakeParser()),
			service.WithOutputPath(filepath.Join(t.TempDir(), "builds.json")),
		)
		defer svc.Stop()

		Convey("When the service starts", func() {
			err := svc.Start(context.Background())

			Convey("Then it reports started and completes one pass", func() {
				So(err, ShouldBeNil)
				So(svc.Stats()["started"], ShouldBeTrue)
				So(waitForPasses(svc, 1, 5*time.Second), ShouldBeTrue)
			})

			Convey("And a second start is a no-op", func() {
				So(waitForPasses(svc, 1, 5*time.Second), ShouldBeTrue)
				So(svc.Start(context.Background()), ShouldBeNil)

				time.Sleep(50 * time.Millisecond)
				So(svc.Stats()["scan_passes"], ShouldEqual, 1)
			})

			Convey("And stopping flips the flag and is safe to repeat", func() {
				So(waitForPasses(svc, 1, 5*time.Second), ShouldBeTrue)
				svc.Stop()
				So(svc.Stats()["started"], ShouldBeFalse)
				svc.Stop()
			})
		})
	})
}

func TestService_Dependencies(t *testing.T) {
	Convey("Given a service over a seeded store", t, func() {
		ctx := context.Background()
		store := repository.NewFileStore(ctx, repository.WithPath(filepath.Join(t.TempDir(), "builds.json")))
		defer func() { _ = store.Close() }()

		flame := storedBuild("Dreadsail Reef", "Tideborn Taleria", flameSlug, types.RoleDamage, 6)
		torment := storedBuild("Dreadsail Reef", "Reef Guardian", "dawn-herald-spear-ansuuls-torment-whorl-of-the-depths", types.RoleDamage, 9)
		mender := storedBuild("Lucent Citadel", "Xoryn the Radiant", "green-living-resto-jorvulds-guidance-spell-power-cure", types.RoleHealer, 4)
		for _, b := range []model.ConsolidatedBuild{flame, torment, mender} {
			ok, err := store.Upsert(ctx, b)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		}

		svc := service.New(service.WithStore(store))

		Convey("When listing builds", func() {
			Convey("Then an empty trial yields everything", func() {
				So(svc.Builds(ctx, ""), ShouldHaveLength, 3)
			})

			Convey("Then a trial filter narrows the answer", func() {
				reef := svc.Builds(ctx, "Dreadsail Reef")
				So(reef, ShouldHaveLength, 2)
				for _, b := range reef {
					So(b.Trial, ShouldEqual, "Dreadsail Reef")
				}
			})
		})

		Convey("When fetching one build", func() {
			got, err := svc.Build(ctx, flame.Key())
			So(err, ShouldBeNil)
			So(got.Count, ShouldEqual, 6)
			So(got.Slug, ShouldEqual, flameSlug)

			Convey("Then an unknown key reports not found", func() {
				_, err := svc.Build(ctx, types.BuildKey{Trial: "Dreadsail Reef", Boss: "Tideborn Taleria", Slug: "no-such-identity"})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading trial metadata", func() {
			store.SetTrialMeta(ctx, "Dreadsail Reef", repository.TrialMeta{
				LastUpdated:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
				UpdateVersion: "u46",
			})

			meta := svc.Meta(ctx)
			So(meta.Trials["Dreadsail Reef"].UpdateVersion, ShouldEqual, "u46")
		})

		Convey("When checking publishability", func() {
			So(svc.Publishable(flame), ShouldBeTrue)

			shy := storedBuild("Dreadsail Reef", "Tideborn Taleria", "dawn-herald-spear-pillar-of-nirn-relequen", types.RoleDamage, 4)
			So(svc.Publishable(shy), ShouldBeFalse)

			So(svc.Publishable(mender), ShouldBeTrue)
		})

		Convey("When reading stats", func() {
			stats := svc.Stats()
			So(stats["builds_stored"], ShouldEqual, 3)
			So(stats["started"], ShouldBeFalse)
		})
	})
}
