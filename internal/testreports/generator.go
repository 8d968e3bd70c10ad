package testreports

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/tamrielmeta/buildscry/internal/domain/consolidate"
	"github.com/tamrielmeta/buildscry/internal/domain/grouping"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// Wire shapes mirroring the report table payloads the parser consumes.

type wireTable struct {
	Data wireData `json:"data"`
}

type wireData struct {
	TotalTime     int64        `json:"totalTime"`
	PlayerDetails *wireDetails `json:"playerDetails,omitempty"`
	Entries       []wireEntry  `json:"entries,omitempty"`
}

type wireDetails struct {
	DPS     []wirePlayer `json:"dps"`
	Healers []wirePlayer `json:"healers"`
	Tanks   []wirePlayer `json:"tanks"`
}

type wirePlayer struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	GUID          int64         `json:"guid"`
	Type          string        `json:"type"`
	DisplayName   string        `json:"displayName"`
	CombatantInfo wireCombatant `json:"combatantInfo"`
}

type wireCombatant struct {
	Gear      []wireGear `json:"gear"`
	Abilities wireBars   `json:"abilities"`
	Buffs     []wireBuff `json:"buffs"`
}

type wireGear struct {
	Slot      string `json:"slot"`
	ItemName  string `json:"itemName"`
	SetName   string `json:"setName"`
	TraitName string `json:"traitName"`
}

type wireBars struct {
	Bar1 []wireAbility `json:"bar1"`
	Bar2 []wireAbility `json:"bar2"`
}

type wireAbility struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type wireBuff struct {
	Name string `json:"name"`
}

type wireEntry struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	ActiveTime int64   `json:"activeTime"`
}

// archetype is one synthetic player template with a fixed loadout, so its
// build identity is the same in every generated report.
type archetype struct {
	name    string
	account string
	class   string
	role    types.Role
	gear    []model.GearPiece
	front   []string
	back    []string
	boon    string
}

// flameArchetype resolves to Ardent Flame, Assassination and Herald of the
// Tome in Deadly Strike and Relequen.
func flameArchetype() archetype {
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

	return archetype{
		name:    "Flame Blade",
		account: "@emberfall",
		class:   "DragonKnight",
		role:    types.RoleDamage,
		gear:    gear,
		front:   []string{"Molten Whip", "Burning Embers", "Engulfing Flames", "Flames of Oblivion", "Cauterize", "Standard of Might"},
		back:    []string{"Merciless Resolve", "Impale", "Ambush", "Fatecarver", "Cephaliarch's Flail", "Incapacitating Strike"},
		boon:    "The Thief",
	}
}

// menderArchetype resolves to Restoring Light, Green Balance and Living
// Death in Spell Power Cure and Jorvuld's Guidance.
func menderArchetype() archetype {
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

	return archetype{
		name:    "Mender Ilen",
		account: "@lightkeeper",
		class:   "Templar",
		role:    types.RoleHealer,
		gear:    gear,
		front:   []string{"Breath of Life", "Ritual of Rebirth", "Channeled Focus", "Extended Ritual", "Radiant Aura", "Remembrance"},
		back:    []string{"Budding Seeds", "Enchanted Growth", "Leeching Vines", "Spirit Guardian", "Render Flesh", "Enchanted Forest"},
		boon:    "The Atronach",
	}
}

// record builds the player record the parser would produce for this
// archetype, for checks that skip the wire layer.
func (a archetype) record(code string, fightID, sourceID int, metric float64) model.PlayerRecord {
	front := make([]model.Ability, 0, len(a.front))
	for i, name := range a.front {
		front = append(front, model.Ability{Name: name, Slot: i, Bar: 1})
	}
	back := make([]model.Ability, 0, len(a.back))
	for i, name := range a.back {
		back = append(back, model.Ability{Name: name, Slot: i, Bar: 2})
	}

	rec := model.PlayerRecord{
		ReportCode:     code,
		FightID:        fightID,
		SourceID:       sourceID,
		CharacterName:  a.name,
		AccountName:    a.account,
		ClassName:      a.class,
		Role:           a.role,
		Gear:           append([]model.GearPiece(nil), a.gear...),
		FrontBar:       front,
		BackBar:        back,
		FightStartTime: 0,
		FightEndTime:   fightDurationMS,
	}
	if a.role == types.RoleHealer {
		rec.DPS = supportDPS
		rec.Healing = metric
	} else {
		rec.DPS = metric
	}
	return rec
}

func (a archetype) wirePlayer(sourceID int) wirePlayer {
	gear := make([]wireGear, 0, len(a.gear))
	for _, piece := range a.gear {
		gear = append(gear, wireGear{
			Slot:      string(piece.Slot),
			ItemName:  piece.ItemName,
			SetName:   piece.SetName,
			TraitName: piece.Trait,
		})
	}

	bar1 := make([]wireAbility, 0, len(a.front))
	for i, name := range a.front {
		bar1 = append(bar1, wireAbility{ID: int64(20000 + i), Name: name})
	}
	bar2 := make([]wireAbility, 0, len(a.back))
	for i, name := range a.back {
		bar2 = append(bar2, wireAbility{ID: int64(21000 + i), Name: name})
	}

	return wirePlayer{
		ID:          sourceID,
		Name:        a.name,
		GUID:        int64(100000 + sourceID),
		Type:        a.class,
		DisplayName: a.account,
		CombatantInfo: wireCombatant{
			Gear:      gear,
			Abilities: wireBars{Bar1: bar1, Bar2: bar2},
			Buffs:     []wireBuff{},
		},
	}
}

// squadMember pairs an archetype with its actor id and primary metric in
// one report.
type squadMember struct {
	arch     archetype
	sourceID int
	metric   float64
}

func (m squadMember) damageTotal() float64 {
	if m.arch.role == types.RoleDamage {
		return m.metric * fightSeconds
	}
	return supportDPS * fightSeconds
}

func (m squadMember) healingTotal() float64 {
	if m.arch.role == types.RoleHealer {
		return m.metric * fightSeconds
	}
	return offHealRate * fightSeconds
}

// syntheticReport is one generated clear of the boss.
type syntheticReport struct {
	code   string
	report model.Report
	squad  []squadMember
}

// generateClears produces n single-fight kill reports. Damage climbs with
// the report index, so the freshest report carries the representative.
func generateClears(stats *Stats, n int) []syntheticReport {
	out := make([]syntheticReport, 0, n)
	for i := 0; i < n; i++ {
		code := uuid.NewString()
		clear := syntheticReport{
			code: code,
			report: model.Report{
				Code:        code,
				Title:       "Synthetic clear",
				GameVersion: "10.6.0",
				Fights: []model.Fight{
					{ID: 1, Name: bossName, Difficulty: veteranDifficulty, Kill: true, StartTime: 0, EndTime: fightDurationMS},
				},
			},
			squad: []squadMember{
				{arch: flameArchetype(), sourceID: 11, metric: 90000 + float64(i)*5000},
				{arch: menderArchetype(), sourceID: 21, metric: 38000 + float64(i)*2000},
			},
		}
		out = append(out, clear)
		stats.ReportsGenerated++
		stats.RecordsGenerated += len(clear.squad)
	}
	return out
}

func (r syntheticReport) records() []model.PlayerRecord {
	out := make([]model.PlayerRecord, 0, len(r.squad))
	for _, m := range r.squad {
		out = append(out, m.arch.record(r.code, 1, m.sourceID, m.metric))
	}
	return out
}

func (r syntheticReport) foldInput(ctx context.Context) consolidate.FoldInput {
	builds := grouping.New().Annotate(ctx, r.records())
	return consolidate.FoldInput{
		Trial:         trialName,
		Boss:          bossName,
		UpdateVersion: r.report.UpdateVersion(),
		Groups:        grouping.GroupByIdentity(builds),
	}
}

func (r syntheticReport) summaryTable() ([]byte, error) {
	details := wireDetails{
		DPS:     []wirePlayer{},
		Healers: []wirePlayer{},
		Tanks:   []wirePlayer{},
	}
	for _, m := range r.squad {
		player := m.arch.wirePlayer(m.sourceID)
		switch m.arch.role {
		case types.RoleHealer:
			details.Healers = append(details.Healers, player)
		case types.RoleTank:
			details.Tanks = append(details.Tanks, player)
		default:
			details.DPS = append(details.DPS, player)
		}
	}
	return sonic.Marshal(wireTable{Data: wireData{TotalTime: fightDurationMS, PlayerDetails: &details}})
}

func (r syntheticReport) damageTable() ([]byte, error) {
	entries := make([]wireEntry, 0, len(r.squad))
	for _, m := range r.squad {
		entries = append(entries, wireEntry{ID: m.sourceID, Name: m.arch.name, Total: m.damageTotal(), ActiveTime: fightDurationMS})
	}
	return sonic.Marshal(wireTable{Data: wireData{TotalTime: fightDurationMS, Entries: entries}})
}

func (r syntheticReport) healingTable() ([]byte, error) {
	entries := make([]wireEntry, 0, len(r.squad))
	for _, m := range r.squad {
		entries = append(entries, wireEntry{ID: m.sourceID, Name: m.arch.name, Total: m.healingTotal(), ActiveTime: fightDurationMS})
	}
	return sonic.Marshal(wireTable{Data: wireData{TotalTime: fightDurationMS, Entries: entries}})
}
