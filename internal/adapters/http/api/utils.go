package api

import (
	"time"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
)

// unknownMundus is what the API shows when no boon was ever observed for a
// build's representative. Internally a missing boon is the empty string.
const unknownMundus = "Unknown"

type buildSummary struct {
	Trial          string        `json:"trial"`
	Boss           string        `json:"boss"`
	Slug           string        `json:"slug"`
	Subclasses     []string      `json:"subclasses"`
	Sets           []string      `json:"sets"`
	Count          int           `json:"count"`
	ReportCount    int           `json:"report_count"`
	Publishable    bool          `json:"publishable"`
	UpdateVersion  string        `json:"update_version"`
	LastUpdated    time.Time     `json:"last_updated"`
	Representative playerSummary `json:"representative"`
}

type playerSummary struct {
	CharacterName string  `json:"character_name"`
	AccountName   string  `json:"account_name"`
	ClassName     string  `json:"class_name"`
	Role          string  `json:"role"`
	DPS           float64 `json:"dps"`
	Healing       float64 `json:"healing"`
	Mundus        string  `json:"mundus"`
}

type buildDetail struct {
	Trial          string       `json:"trial"`
	Boss           string       `json:"boss"`
	Slug           string       `json:"slug"`
	Subclasses     []string     `json:"subclasses"`
	Sets           []string     `json:"sets"`
	Count          int          `json:"count"`
	ReportCount    int          `json:"report_count"`
	Publishable    bool         `json:"publishable"`
	UpdateVersion  string       `json:"update_version"`
	LastUpdated    time.Time    `json:"last_updated"`
	Representative playerDetail `json:"representative"`
}

type playerDetail struct {
	CharacterName  string        `json:"character_name"`
	AccountName    string        `json:"account_name"`
	ClassName      string        `json:"class_name"`
	Role           string        `json:"role"`
	DPS            float64       `json:"dps"`
	DPSPercent     float64       `json:"dps_percent"`
	Healing        float64       `json:"healing"`
	HealingPercent float64       `json:"healing_percent"`
	Mundus         string        `json:"mundus"`
	Gear           []gearView    `json:"gear"`
	FrontBar       []abilityView `json:"front_bar"`
	BackBar        []abilityView `json:"back_bar"`
}

type gearView struct {
	Slot     string `json:"slot"`
	ItemName string `json:"item_name"`
	SetName  string `json:"set_name,omitempty"`
	Trait    string `json:"trait,omitempty"`
	Enchant  string `json:"enchant,omitempty"`
	Bar      int    `json:"bar,omitempty"`
}

type abilityView struct {
	Name string `json:"name"`
	Slot int    `json:"slot"`
}

func displayMundus(mundus string) string {
	if mundus == "" {
		return unknownMundus
	}
	return mundus
}

func toSummary(b model.ConsolidatedBuild, publishable bool) buildSummary {
	p := b.Representative.Player
	return buildSummary{
		Trial:         b.Trial,
		Boss:          b.Boss,
		Slug:          b.Slug,
		Subclasses:    b.Subclasses,
		Sets:          b.Sets,
		Count:         b.Count,
		ReportCount:   b.ReportCount,
		Publishable:   publishable,
		UpdateVersion: b.UpdateVersion,
		LastUpdated:   b.LastUpdated,
		Representative: playerSummary{
			CharacterName: p.CharacterName,
			AccountName:   p.AccountName,
			ClassName:     p.ClassName,
			Role:          string(p.Role),
			DPS:           p.DPS,
			Healing:       p.Healing,
			Mundus:        displayMundus(p.Mundus),
		},
	}
}

func toDetail(b model.ConsolidatedBuild, publishable bool) buildDetail {
	p := b.Representative.Player
	return buildDetail{
		Trial:         b.Trial,
		Boss:          b.Boss,
		Slug:          b.Slug,
		Subclasses:    b.Subclasses,
		Sets:          b.Sets,
		Count:         b.Count,
		ReportCount:   b.ReportCount,
		Publishable:   publishable,
		UpdateVersion: b.UpdateVersion,
		LastUpdated:   b.LastUpdated,
		Representative: playerDetail{
			CharacterName:  p.CharacterName,
			AccountName:    p.AccountName,
			ClassName:      p.ClassName,
			Role:           string(p.Role),
			DPS:            p.DPS,
			DPSPercent:     p.DPSPercent,
			Healing:        p.Healing,
			HealingPercent: p.HealingPercent,
			Mundus:         displayMundus(p.Mundus),
			Gear:           toGearViews(p.Gear),
			FrontBar:       toAbilityViews(p.FrontBar),
			BackBar:        toAbilityViews(p.BackBar),
		},
	}
}

func toGearViews(gear []model.GearPiece) []gearView {
	out := make([]gearView, 0, len(gear))
	for _, g := range gear {
		out = append(out, gearView{
			Slot:     string(g.Slot),
			ItemName: g.ItemName,
			SetName:  g.SetName,
			Trait:    g.Trait,
			Enchant:  g.Enchant,
			Bar:      g.Bar,
		})
	}
	return out
}

func toAbilityViews(abilities []model.Ability) []abilityView {
	out := make([]abilityView, 0, len(abilities))
	for _, a := range abilities {
		out = append(out, abilityView{Name: a.Name, Slot: a.Slot})
	}
	return out
}
