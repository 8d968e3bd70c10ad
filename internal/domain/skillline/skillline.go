// Package skillline classifies slotted abilities into class skill lines.
//
// Classification is table-driven: every known ability (ultimates, actives
// and their morphs) belongs to exactly one of the 21 class skill lines. A
// player's three subclasses are the three lines with the most slotted
// abilities across both bars.
package skillline

import (
	"sort"
	"strings"
)

// SubclassCount is the number of skill lines that define a build.
const SubclassCount = 3

// Line is a class skill line, identified by its full display name.
type Line string

// Unresolved marks a subclass slot no tabulated ability could fill. It
// participates in build identity as the literal token "x".
const Unresolved Line = "x"

// Skill lines by archetype.
const (
	ArdentFlame     Line = "Ardent Flame"
	DraconicPower   Line = "Draconic Power"
	EarthenHeart    Line = "Earthen Heart"
	DarkMagic       Line = "Dark Magic"
	DaedricSummon   Line = "Daedric Summoning"
	StormCalling    Line = "Storm Calling"
	Assassination   Line = "Assassination"
	Shadow          Line = "Shadow"
	Siphoning       Line = "Siphoning"
	AedricSpear     Line = "Aedric Spear"
	DawnsWrath      Line = "Dawn's Wrath"
	RestoringLight  Line = "Restoring Light"
	AnimalCompanion Line = "Animal Companions"
	GreenBalance    Line = "Green Balance"
	WintersEmbrace  Line = "Winter's Embrace"
	BoneTyrant      Line = "Bone Tyrant"
	GraveLord       Line = "Grave Lord"
	LivingDeath     Line = "Living Death"
	HeraldOfTheTome Line = "Herald of the Tome"
	SoldierOfApoc   Line = "Soldier of Apocrypha"
	CurativeRunes   Line = "Curative Runeforms"
)

// Abbrev returns the canonical short token used in build slugs.
func (l Line) Abbrev() string {
	if l == Unresolved {
		return "x"
	}
	if abbrev, ok := abbrevByLine[l]; ok {
		return abbrev
	}
	// Fallback for lines added through options: first word, truncated.
	words := strings.Fields(string(l))
	if len(words) == 0 {
		return "x"
	}
	if len(words[0]) > 6 {
		return words[0][:6]
	}
	return words[0]
}

// Display returns the human-readable skill line name.
func (l Line) Display() string {
	if l == Unresolved {
		return "Unknown"
	}
	return string(l)
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithAdditionalAbilities registers extra ability names for a line, for
// morphs published after the static table was compiled.
func WithAdditionalAbilities(line Line, names ...string) Option {
	return func(c *Classifier) {
		for _, name := range names {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, exists := c.index[name]; exists {
				continue
			}
			c.index[name] = line
			c.ordered = append(c.ordered, name)
		}
	}
}

// Classifier resolves ability names to skill lines.
type Classifier struct {
	index   map[string]Line // lowercased ability name -> line
	ordered []string        // lowercased names in table order, for fallback
}

// New builds a classifier from the static membership table.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		index:   make(map[string]Line, len(lineDefs)*abilitiesPerLine),
		ordered: make([]string, 0, len(lineDefs)*abilitiesPerLine),
	}
	for _, def := range lineDefs {
		for _, name := range def.abilities {
			lower := strings.ToLower(name)
			if _, exists := c.index[lower]; exists {
				continue
			}
			c.index[lower] = def.line
			c.ordered = append(c.ordered, lower)
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Resolve returns the skill line owning an ability name. Exact lookup
// first, then a bidirectional substring scan in table order so untabulated
// morph spellings still resolve deterministically.
func (c *Classifier) Resolve(name string) (Line, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return Unresolved, false
	}
	if line, ok := c.index[lower]; ok {
		return line, true
	}
	for _, known := range c.ordered {
		if strings.Contains(known, lower) || strings.Contains(lower, known) {
			return c.index[known], true
		}
	}
	return Unresolved, false
}

// Classify tallies the slotted abilities per skill line and returns exactly
// SubclassCount lines: highest tally first, ties broken by the order a line
// first matched in the input, padded with Unresolved. Unknown abilities
// contribute nothing; they are not an error.
func (c *Classifier) Classify(abilities []string) []Line {
	type tally struct {
		line  Line
		count int
		first int // input index of the line's first match
	}
	byLine := make(map[Line]*tally)

	for i, name := range abilities {
		line, ok := c.Resolve(name)
		if !ok {
			continue
		}
		t, seen := byLine[line]
		if !seen {
			t = &tally{line: line, first: i}
			byLine[line] = t
		}
		t.count++
	}

	ranked := make([]*tally, 0, len(byLine))
	for _, t := range byLine {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	result := make([]Line, 0, SubclassCount)
	for _, t := range ranked {
		if len(result) == SubclassCount {
			break
		}
		result = append(result, t.line)
	}
	for len(result) < SubclassCount {
		result = append(result, Unresolved)
	}
	return result
}

// Abbrevs maps lines to their slug tokens, preserving order.
func Abbrevs(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Abbrev())
	}
	return out
}

// Displays maps lines to their display names, preserving order.
func Displays(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Display())
	}
	return out
}
