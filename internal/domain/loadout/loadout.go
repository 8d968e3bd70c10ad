// Package loadout derives gear-set occupancy from equipped items.
package loadout

import (
	"sort"
	"strings"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
)

// Piece-count thresholds used when selecting a build's dominant sets.
const (
	// NoiseFloor excludes sets too small to be deliberate.
	NoiseFloor = 2
	// DefaultMinimumPieces is the piece count a set needs to anchor a
	// build's identity.
	DefaultMinimumPieces = 4
	// SignaturePieces marks a full five-piece bonus.
	SignaturePieces = 5
)

// DominantPairSize is the number of sets that define a build's identity.
const DominantPairSize = 2

// Default keyword tables. Matching is lowercase substring over item names.
var (
	defaultTwoHandedKeywords = []string{
		"greatsword", "battleaxe", "battle axe", "warhammer", "bow",
		"staff", "inferno staff", "ice staff", "lightning staff",
		"restoration staff",
	}
	defaultMythicKeywords = []string{
		"oakensoul", "death dealer's fete", "pale order", "wild hunt",
		"gaze of sithis", "malacath's band", "mythic", "ring of",
		"band of", "amulet of", "necklace of",
	}
	defaultArenaKeywords = []string{
		"maelstrom's", "vateshran's", "dragonstar arena",
		"blackrose prison", "imperial city prison",
		"vateshran hollows", "maelstrom arena",
	}
)

// Tallies holds per-set piece counts for one player.
type Tallies struct {
	// Totals counts every named piece across all slots, with a
	// two-handed weapon or staff worth two.
	Totals map[string]int
	// Bar1 and Bar2 count pieces active on each loadout. Shared armor
	// and jewelry contribute to both; mythics and arena weapons are
	// excluded because they never feed a five-piece bonus.
	Bar1 map[string]int
	Bar2 map[string]int
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithMinimumPieces sets the piece count a set needs to be eligible for
// the dominant pair.
func WithMinimumPieces(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.minPieces = n
		}
	}
}

// WithTwoHandedKeywords replaces the two-handed weapon keyword table.
func WithTwoHandedKeywords(keywords ...string) Option {
	return func(a *Analyzer) {
		if len(keywords) > 0 {
			a.twoHanded = lowerAll(keywords)
		}
	}
}

// WithMythicKeywords replaces the mythic item keyword table.
func WithMythicKeywords(keywords ...string) Option {
	return func(a *Analyzer) {
		if len(keywords) > 0 {
			a.mythics = lowerAll(keywords)
		}
	}
}

// WithArenaKeywords replaces the arena weapon keyword table.
func WithArenaKeywords(keywords ...string) Option {
	return func(a *Analyzer) {
		if len(keywords) > 0 {
			a.arena = lowerAll(keywords)
		}
	}
}

// Analyzer tallies gear sets and selects a build's dominant pair.
type Analyzer struct {
	twoHanded []string
	mythics   []string
	arena     []string
	minPieces int
}

// New creates an analyzer with the default keyword tables.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		twoHanded: defaultTwoHandedKeywords,
		mythics:   defaultMythicKeywords,
		arena:     defaultArenaKeywords,
		minPieces: DefaultMinimumPieces,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Tally computes per-set piece counts for a player's equipped gear.
//
// Every named piece adds one to its set's total; a two-handed weapon or
// staff in a main-hand slot adds one more, so a full loadout credits 12
// pieces whether or not an off-hand exists. Bar counts skip mythics and
// arena weapons.
func (a *Analyzer) Tally(gear []model.GearPiece) Tallies {
	t := Tallies{
		Totals: make(map[string]int),
		Bar1:   make(map[string]int),
		Bar2:   make(map[string]int),
	}

	for _, piece := range gear {
		set := strings.TrimSpace(piece.SetName)
		if set == "" {
			continue
		}

		t.Totals[set]++

		if a.IsMythic(piece.ItemName) || a.IsArenaWeapon(piece.ItemName) {
			continue
		}
		addBarCount(&t, piece.Bar, set, 1)
	}

	// Double-occupancy pass: a two-handed weapon fills its loadout's
	// off-hand position too.
	for _, piece := range gear {
		if !piece.Slot.IsMainHand() || !a.IsTwoHanded(piece.ItemName) {
			continue
		}
		set := strings.TrimSpace(piece.SetName)
		if set == "" {
			continue
		}

		t.Totals[set]++

		if a.IsArenaWeapon(piece.ItemName) {
			continue
		}
		addBarCount(&t, piece.Bar, set, 1)
	}

	return t
}

func addBarCount(t *Tallies, bar int, set string, n int) {
	switch bar {
	case 2:
		t.Bar2[set] += n
	case 1:
		t.Bar1[set] += n
	default:
		// Shared armor and jewelry are active on both loadouts.
		t.Bar1[set] += n
		t.Bar2[set] += n
	}
}

// Dominant returns up to two set names eligible to define the build's
// identity: total piece count at or above the configured minimum, highest
// counts first, ties broken alphabetically.
func (a *Analyzer) Dominant(t Tallies) []string {
	type candidate struct {
		set   string
		count int
	}
	candidates := make([]candidate, 0, len(t.Totals))
	for set, count := range t.Totals {
		if count < NoiseFloor || count < a.minPieces {
			continue
		}
		candidates = append(candidates, candidate{set: set, count: count})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].set < candidates[j].set
	})

	dominant := make([]string, 0, DominantPairSize)
	for _, c := range candidates {
		if len(dominant) == DominantPairSize {
			break
		}
		dominant = append(dominant, c.set)
	}
	return dominant
}

// IsTwoHanded reports whether an item name denotes a two-handed weapon or
// staff.
func (a *Analyzer) IsTwoHanded(itemName string) bool {
	return matchesAny(itemName, a.twoHanded)
}

// IsMythic reports whether an item name denotes a mythic item.
func (a *Analyzer) IsMythic(itemName string) bool {
	return matchesAny(itemName, a.mythics)
}

// IsArenaWeapon reports whether an item name denotes an arena weapon.
func (a *Analyzer) IsArenaWeapon(itemName string) bool {
	return matchesAny(itemName, a.arena)
}

func matchesAny(itemName string, keywords []string) bool {
	if itemName == "" {
		return false
	}
	lower := strings.ToLower(itemName)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
