// Package model contains the domain records passed between pipeline layers.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// Slot identifies an equipment position on a player.
type Slot string

// Equipment slots as reported by combat logs. Armor and jewelry are shared
// across both loadouts; the weapon positions are loadout-specific.
const (
	SlotHead           Slot = "head"
	SlotShoulders      Slot = "shoulders"
	SlotChest          Slot = "chest"
	SlotHands          Slot = "hands"
	SlotWaist          Slot = "waist"
	SlotLegs           Slot = "legs"
	SlotFeet           Slot = "feet"
	SlotNeck           Slot = "neck"
	SlotRing1          Slot = "ring1"
	SlotRing2          Slot = "ring2"
	SlotMainHand       Slot = "main_hand"
	SlotOffHand        Slot = "off_hand"
	SlotBackupMainHand Slot = "backup_main_hand"
	SlotBackupOffHand  Slot = "backup_off_hand"
)

// IsMainHand reports whether the slot is a weapon position that can carry a
// two-handed weapon or staff.
func (s Slot) IsMainHand() bool {
	return s == SlotMainHand || s == SlotBackupMainHand
}

// GearPiece is a single equipped item.
type GearPiece struct {
	Slot     Slot
	ItemID   int64
	ItemName string
	SetID    int64
	SetName  string // empty when the item belongs to no set
	Trait    string
	Enchant  string
	Quality  int
	Level    int
	Bar      int // loadout the piece is active on (1 or 2); 0 means shared
}

// Ability is a single slotted ability on an action bar.
type Ability struct {
	AbilityID int64
	Name      string
	Slot      int // 0-5 within the bar; slot 5 is the ultimate
	Bar       int // 1 or 2
}

// BarSize is the number of ability slots per loadout, ultimate included.
const BarSize = 6

// PlayerRecord is one player's build as observed in a single fight. It is
// the raw input to classification; provenance fields make each observation
// uniquely attributable for idempotent consolidation.
type PlayerRecord struct {
	// Provenance
	ReportCode string
	FightID    int
	SourceID   int // actor id within the report

	// Identity
	CharacterName string
	AccountName   string
	CharacterID   int64
	ClassName     string
	Role          types.Role

	// Performance
	DPS            float64
	DPSPercent     float64
	Healing        float64
	HealingPercent float64

	// Build components
	Gear     []GearPiece
	FrontBar []Ability
	BackBar  []Ability

	// Mundus is the boon display name; empty until a buff scan or a
	// post-gate enrichment lookup finds one.
	Mundus string

	// Fight context used for post-gate enrichment queries.
	FightStartTime int64 // ms offset within the report
	FightEndTime   int64
}

// Instance returns the provenance key for this observation.
func (p PlayerRecord) Instance() types.InstanceKey {
	return types.InstanceKey{ReportCode: p.ReportCode, FightID: p.FightID, SourceID: p.SourceID}
}

// Complete reports whether the record carries enough data to classify:
// every equipped piece names its set and trait, and both bars hold a full
// complement of abilities. Incomplete records must be dropped before
// classification.
func (p PlayerRecord) Complete() bool {
	if p.CharacterName == "" || len(p.Gear) == 0 {
		return false
	}
	for _, g := range p.Gear {
		if g.SetName == "" || g.Trait == "" {
			return false
		}
	}
	if len(p.FrontBar) < BarSize || len(p.BackBar) < BarSize {
		return false
	}
	return true
}

// Abilities returns the names of every slotted ability across both bars,
// in bar order. Empty names are skipped.
func (p PlayerRecord) Abilities() []string {
	names := make([]string, 0, len(p.FrontBar)+len(p.BackBar))
	for _, a := range p.FrontBar {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	for _, a := range p.BackBar {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// PrimaryMetric returns the performance value the player's role is measured
// by: healing rate for healers, damage rate otherwise.
func (p PlayerRecord) PrimaryMetric() float64 {
	if p.Role == types.RoleHealer {
		return p.Healing
	}
	return p.DPS
}

// ClassifiedBuild is a PlayerRecord annotated with its derived identity.
type ClassifiedBuild struct {
	Player PlayerRecord

	Subclasses   []string       // exactly three abbreviations, "x" when unresolved
	SetTotals    map[string]int // set name -> total piece count
	SetsBar1     map[string]int
	SetsBar2     map[string]int
	DominantSets []string // literal names of the identity-defining sets
	Slug         string
}

// ConsolidatedBuild is the aggregate of every observed instance of one build
// identity on one encounter.
type ConsolidatedBuild struct {
	Trial string
	Boss  string
	Slug  string

	Subclasses []string // display names of the three subclasses
	Sets       []string // dominant set display names, up to two

	Count       int // deduplicated instance count
	ReportCount int // distinct contributing reports, never exceeds Count

	Representative ClassifiedBuild   // highest primary metric among instances
	Instances      []ClassifiedBuild // every deduplicated instance

	UpdateVersion string
	LastUpdated   time.Time
}

// Key returns the consolidation key triple for this build.
func (c ConsolidatedBuild) Key() types.BuildKey {
	return types.BuildKey{Trial: c.Trial, Boss: c.Boss, Slug: c.Slug}
}

// Fight is a single pull within a combat report.
type Fight struct {
	ID         int
	Name       string
	Difficulty int
	Kill       bool
	StartTime  int64 // ms offset from report start
	EndTime    int64
}

// Duration returns the fight length.
func (f Fight) Duration() time.Duration {
	return time.Duration(f.EndTime-f.StartTime) * time.Millisecond
}

// Report is a combat report with its pull list.
type Report struct {
	Code        string
	Title       string
	StartTime   int64 // unix ms
	EndTime     int64
	GameVersion string
	Fights      []Fight
}

// FastestKill returns the shortest successful kill of the named encounter.
// Trash pulls carry no difficulty and wipes carry no kill flag; both are
// skipped.
func (r Report) FastestKill(encounterName string) (Fight, bool) {
	var best Fight
	found := false
	for _, f := range r.Fights {
		if f.Name != encounterName || f.Difficulty == 0 || !f.Kill {
			continue
		}
		if !found || f.Duration() < best.Duration() {
			best = f
			found = true
		}
	}
	return best, found
}

// UpdateVersion derives the game update label the report was logged under.
// Client versions read major.minor.patch and major 10 covers the updates
// numbered from 40, so "10.6.0" becomes "u46". Reports without a parsable
// version fall back to a date label so they still land in a stable bucket.
func (r Report) UpdateVersion() string {
	parts := strings.Split(r.GameVersion, ".")
	if len(parts) >= 2 {
		major, majorErr := strconv.Atoi(parts[0])
		minor, minorErr := strconv.Atoi(parts[1])
		if majorErr == nil && minorErr == nil && major == 10 {
			return fmt.Sprintf("u%d", 40+minor)
		}
	}
	if r.StartTime > 0 {
		return "unknown-" + time.UnixMilli(r.StartTime).UTC().Format("20060102")
	}
	return "unknown"
}

// Encounter is one boss within a trial zone.
type Encounter struct {
	ID   int
	Name string
}

// Zone is a trial with its ordered encounter list; the final encounter is
// the trial's last boss.
type Zone struct {
	ID         int
	Name       string
	Encounters []Encounter
}

// Ranking is one entry from an encounter's top-ranked fight listing.
type Ranking struct {
	PlayerName string
	Class      string
	Spec       string
	Amount     float64
	ReportCode string
	FightID    int
	StartTime  int64
}
