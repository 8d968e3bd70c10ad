package repository

import (
	"time"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
)

// On-disk shapes for the builds file. The domain model stays tag-free;
// these mirror it with stable snake_case keys. Only the representative
// instance is persisted per build, the full instance list is scan-pass
// state and rebuilt on the next pass.

type storeDocument struct {
	Trials         map[string]trialDocument `json:"trials"`
	LastFullUpdate time.Time                `json:"last_full_update"`
}

type trialDocument struct {
	Builds        []buildDocument `json:"builds"`
	LastUpdated   time.Time       `json:"last_updated"`
	UpdateVersion string          `json:"update_version"`
	CacheStats    CacheStats      `json:"cache_stats"`
}

type buildDocument struct {
	Trial          string             `json:"trial"`
	Boss           string             `json:"boss"`
	Slug           string             `json:"slug"`
	Subclasses     []string           `json:"subclasses"`
	Sets           []string           `json:"sets"`
	Count          int                `json:"count"`
	ReportCount    int                `json:"report_count"`
	Representative classifiedDocument `json:"representative"`
	UpdateVersion  string             `json:"update_version"`
	LastUpdated    time.Time          `json:"last_updated"`
}

type classifiedDocument struct {
	Player       playerDocument `json:"player"`
	Subclasses   []string       `json:"subclasses"`
	SetTotals    map[string]int `json:"set_totals"`
	SetsBar1     map[string]int `json:"sets_bar1"`
	SetsBar2     map[string]int `json:"sets_bar2"`
	DominantSets []string       `json:"dominant_sets"`
	Slug         string         `json:"slug"`
}

type playerDocument struct {
	ReportCode     string            `json:"report_code"`
	FightID        int               `json:"fight_id"`
	SourceID       int               `json:"source_id"`
	CharacterName  string            `json:"character_name"`
	AccountName    string            `json:"account_name"`
	CharacterID    int64             `json:"character_id"`
	ClassName      string            `json:"class_name"`
	Role           string            `json:"role"`
	DPS            float64           `json:"dps"`
	DPSPercent     float64           `json:"dps_percent"`
	Healing        float64           `json:"healing"`
	HealingPercent float64           `json:"healing_percent"`
	Gear           []gearDocument    `json:"gear"`
	FrontBar       []abilityDocument `json:"front_bar"`
	BackBar        []abilityDocument `json:"back_bar"`
	Mundus         string            `json:"mundus"`
	FightStartTime int64             `json:"fight_start_time"`
	FightEndTime   int64             `json:"fight_end_time"`
}

type gearDocument struct {
	Slot     string `json:"slot"`
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	SetID    int64  `json:"set_id"`
	SetName  string `json:"set_name"`
	Trait    string `json:"trait"`
	Enchant  string `json:"enchant"`
	Quality  int    `json:"quality"`
	Level    int    `json:"level"`
	Bar      int    `json:"bar"`
}

type abilityDocument struct {
	AbilityID int64  `json:"ability_id"`
	Name      string `json:"name"`
	Slot      int    `json:"slot"`
	Bar       int    `json:"bar"`
}

func buildToDocument(b model.ConsolidatedBuild) buildDocument {
	return buildDocument{
		Trial:          b.Trial,
		Boss:           b.Boss,
		Slug:           b.Slug,
		Subclasses:     b.Subclasses,
		Sets:           b.Sets,
		Count:          b.Count,
		ReportCount:    b.ReportCount,
		Representative: classifiedToDocument(b.Representative),
		UpdateVersion:  b.UpdateVersion,
		LastUpdated:    b.LastUpdated,
	}
}

func (d buildDocument) toModel() model.ConsolidatedBuild {
	return model.ConsolidatedBuild{
		Trial:          d.Trial,
		Boss:           d.Boss,
		Slug:           d.Slug,
		Subclasses:     d.Subclasses,
		Sets:           d.Sets,
		Count:          d.Count,
		ReportCount:    d.ReportCount,
		Representative: d.Representative.toModel(),
		UpdateVersion:  d.UpdateVersion,
		LastUpdated:    d.LastUpdated,
	}
}

func classifiedToDocument(c model.ClassifiedBuild) classifiedDocument {
	return classifiedDocument{
		Player:       playerToDocument(c.Player),
		Subclasses:   c.Subclasses,
		SetTotals:    c.SetTotals,
		SetsBar1:     c.SetsBar1,
		SetsBar2:     c.SetsBar2,
		DominantSets: c.DominantSets,
		Slug:         c.Slug,
	}
}

func (d classifiedDocument) toModel() model.ClassifiedBuild {
	return model.ClassifiedBuild{
		Player:       d.Player.toModel(),
		Subclasses:   d.Subclasses,
		SetTotals:    d.SetTotals,
		SetsBar1:     d.SetsBar1,
		SetsBar2:     d.SetsBar2,
		DominantSets: d.DominantSets,
		Slug:         d.Slug,
	}
}

func playerToDocument(p model.PlayerRecord) playerDocument {
	gear := make([]gearDocument, 0, len(p.Gear))
	for _, piece := range p.Gear {
		gear = append(gear, gearDocument{
			Slot:     string(piece.Slot),
			ItemID:   piece.ItemID,
			ItemName: piece.ItemName,
			SetID:    piece.SetID,
			SetName:  piece.SetName,
			Trait:    piece.Trait,
			Enchant:  piece.Enchant,
			Quality:  piece.Quality,
			Level:    piece.Level,
			Bar:      piece.Bar,
		})
	}

	return playerDocument{
		ReportCode:     p.ReportCode,
		FightID:        p.FightID,
		SourceID:       p.SourceID,
		CharacterName:  p.CharacterName,
		AccountName:    p.AccountName,
		CharacterID:    p.CharacterID,
		ClassName:      p.ClassName,
		Role:           p.Role.String(),
		DPS:            p.DPS,
		DPSPercent:     p.DPSPercent,
		Healing:        p.Healing,
		HealingPercent: p.HealingPercent,
		Gear:           gear,
		FrontBar:       abilitiesToDocument(p.FrontBar),
		BackBar:        abilitiesToDocument(p.BackBar),
		Mundus:         p.Mundus,
		FightStartTime: p.FightStartTime,
		FightEndTime:   p.FightEndTime,
	}
}

func (d playerDocument) toModel() model.PlayerRecord {
	gear := make([]model.GearPiece, 0, len(d.Gear))
	for _, piece := range d.Gear {
		gear = append(gear, model.GearPiece{
			Slot:     model.Slot(piece.Slot),
			ItemID:   piece.ItemID,
			ItemName: piece.ItemName,
			SetID:    piece.SetID,
			SetName:  piece.SetName,
			Trait:    piece.Trait,
			Enchant:  piece.Enchant,
			Quality:  piece.Quality,
			Level:    piece.Level,
			Bar:      piece.Bar,
		})
	}

	return model.PlayerRecord{
		ReportCode:     d.ReportCode,
		FightID:        d.FightID,
		SourceID:       d.SourceID,
		CharacterName:  d.CharacterName,
		AccountName:    d.AccountName,
		CharacterID:    d.CharacterID,
		ClassName:      d.ClassName,
		Role:           types.ParseRole(d.Role),
		DPS:            d.DPS,
		DPSPercent:     d.DPSPercent,
		Healing:        d.Healing,
		HealingPercent: d.HealingPercent,
		Gear:           gear,
		FrontBar:       abilitiesToModel(d.FrontBar),
		BackBar:        abilitiesToModel(d.BackBar),
		Mundus:         d.Mundus,
		FightStartTime: d.FightStartTime,
		FightEndTime:   d.FightEndTime,
	}
}

func abilitiesToDocument(abilities []model.Ability) []abilityDocument {
	out := make([]abilityDocument, 0, len(abilities))
	for _, a := range abilities {
		out = append(out, abilityDocument{
			AbilityID: a.AbilityID,
			Name:      a.Name,
			Slot:      a.Slot,
			Bar:       a.Bar,
		})
	}
	return out
}

func abilitiesToModel(abilities []abilityDocument) []model.Ability {
	out := make([]model.Ability, 0, len(abilities))
	for _, a := range abilities {
		out = append(out, model.Ability{
			AbilityID: a.AbilityID,
			Name:      a.Name,
			Slot:      a.Slot,
			Bar:       a.Bar,
		})
	}
	return out
}
