package esologs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// Wire shapes for report tables. Roles come from the Summary table's
// playerDetails buckets; the DamageDone and Healing tables carry the
// per-player totals under entries.

type tableEnvelope struct {
	Data tableData `json:"data"`
}

type tableData struct {
	TotalTime     int64         `json:"totalTime"`
	PlayerDetails playerDetails `json:"playerDetails"`
	Entries       []tableEntry  `json:"entries"`
}

type playerDetails struct {
	DPS     []playerDetail `json:"dps"`
	Healers []playerDetail `json:"healers"`
	Tanks   []playerDetail `json:"tanks"`
}

type playerDetail struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	GUID        int64  `json:"guid"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`

	// The field arrives as an empty array when the log carries no gear
	// snapshot, so it cannot decode into a struct directly.
	CombatantInfoRaw json.RawMessage `json:"combatantInfo"`
}

// combatantDetails decodes the combatant payload; anything but a JSON
// object yields nil.
func (d playerDetail) combatantDetails() *combatantInfo {
	raw := bytes.TrimSpace(d.CombatantInfoRaw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var info combatantInfo
	if err := sonic.Unmarshal(raw, &info); err != nil {
		return nil
	}
	return &info
}

type combatantInfo struct {
	Gear      []gearEntry `json:"gear"`
	Abilities abilityBars `json:"abilities"`
	Buffs     []buffEntry `json:"buffs"`
}

type gearEntry struct {
	Slot        string `json:"slot"`
	ItemID      int64  `json:"itemID"`
	ItemName    string `json:"itemName"`
	SetID       int64  `json:"setID"`
	SetName     string `json:"setName"`
	TraitName   string `json:"traitName"`
	EnchantName string `json:"enchantName"`
	Quality     int    `json:"quality"`
	ItemLevel   int    `json:"itemLevel"`
}

type abilityBars struct {
	Bar1 []abilityEntry `json:"bar1"`
	Bar2 []abilityEntry `json:"bar2"`
}

type abilityEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type buffEntry struct {
	Name string `json:"name"`
}

type tableEntry struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	GUID       int64   `json:"guid"`
	Total      float64 `json:"total"`
	ActiveTime int64   `json:"activeTime"`
}

// ParserOption applies a configuration option to the Parser.
type ParserOption func(*Parser)

// WithParserLogger sets the parser's logger.
func WithParserLogger(log logger.Logger) ParserOption {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// Parser converts raw report tables into player records.
type Parser struct {
	log logger.Logger
}

// NewParser creates a parser with configuration options.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}

	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logger.Get().Named("parser")
	}

	return p
}

// ParseFight assembles one record per player in the fight: identity,
// role, and combatant info from the summary table, damage and healing
// rates from their tables. A nil healing table is allowed; the records
// then carry zero healing. Tables that do not decode return
// ErrMalformedPayload. A fight with no players is a valid empty result.
func (p *Parser) ParseFight(ctx context.Context, reportCode string, fight model.Fight, summaryRaw, damageRaw, healingRaw []byte) ([]model.PlayerRecord, error) {
	var summary tableEnvelope
	if err := sonic.Unmarshal(summaryRaw, &summary); err != nil {
		return nil, fmt.Errorf("decoding summary table: %w", ErrMalformedPayload)
	}

	damage, err := decodeEntries(damageRaw)
	if err != nil {
		return nil, fmt.Errorf("decoding damage table: %w", err)
	}
	healing, err := decodeEntries(healingRaw)
	if err != nil {
		return nil, fmt.Errorf("decoding healing table: %w", err)
	}

	buckets := []struct {
		role    types.Role
		details []playerDetail
	}{
		{types.RoleDamage, summary.Data.PlayerDetails.DPS},
		{types.RoleHealer, summary.Data.PlayerDetails.Healers},
		{types.RoleTank, summary.Data.PlayerDetails.Tanks},
	}

	var records []model.PlayerRecord
	for _, bucket := range buckets {
		for _, detail := range bucket.details {
			records = append(records, p.buildRecord(reportCode, fight, bucket.role, detail, damage, healing))
		}
	}

	metrics.RecordRecordsParsed(len(records))
	p.log.Debug(ctx, "parsed fight",
		logger.String("report", reportCode),
		logger.Int("fight_id", fight.ID),
		logger.Int("players", len(records)),
	)
	return records, nil
}

func (p *Parser) buildRecord(reportCode string, fight model.Fight, role types.Role, detail playerDetail, damage, healing rateTable) model.PlayerRecord {
	record := model.PlayerRecord{
		ReportCode:     reportCode,
		FightID:        fight.ID,
		SourceID:       detail.ID,
		CharacterName:  detail.Name,
		AccountName:    detail.DisplayName,
		CharacterID:    detail.GUID,
		ClassName:      detail.Type,
		Role:           role,
		FightStartTime: fight.StartTime,
		FightEndTime:   fight.EndTime,
	}

	record.DPS, record.DPSPercent = damage.rate(detail.ID, detail.Name)
	record.Healing, record.HealingPercent = healing.rate(detail.ID, detail.Name)

	info := detail.combatantDetails()
	if info == nil {
		return record
	}

	record.Gear = make([]model.GearPiece, 0, len(info.Gear))
	for _, g := range info.Gear {
		slot := normalizeSlot(g.Slot)
		record.Gear = append(record.Gear, model.GearPiece{
			Slot:     slot,
			ItemID:   g.ItemID,
			ItemName: g.ItemName,
			SetID:    g.SetID,
			SetName:  g.SetName,
			Trait:    g.TraitName,
			Enchant:  g.EnchantName,
			Quality:  g.Quality,
			Level:    g.ItemLevel,
			Bar:      barForSlot(slot),
		})
	}

	record.FrontBar = slottedAbilities(info.Abilities.Bar1, 1)
	record.BackBar = slottedAbilities(info.Abilities.Bar2, 2)

	for _, buff := range info.Buffs {
		lower := strings.ToLower(buff.Name)
		if strings.Contains(lower, "boon") || strings.Contains(lower, "mundus") {
			record.Mundus = buff.Name
			break
		}
	}

	return record
}

// rateTable indexes one numeric table's entries with the fight-wide sum
// for share computation.
type rateTable struct {
	totalTime int64
	sum       float64
	byID      map[int]tableEntry
	byName    map[string]tableEntry
}

func decodeEntries(raw []byte) (rateTable, error) {
	t := rateTable{
		byID:   make(map[int]tableEntry),
		byName: make(map[string]tableEntry),
	}
	if len(raw) == 0 {
		return t, nil
	}

	var envelope tableEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return rateTable{}, ErrMalformedPayload
	}

	t.totalTime = envelope.Data.TotalTime
	for _, e := range envelope.Data.Entries {
		t.byID[e.ID] = e
		if e.Name != "" {
			t.byName[e.Name] = e
		}
		t.sum += e.Total
	}
	return t, nil
}

// rate returns the per-second rate and the share of the fight total for
// one player, matched by source id with a name fallback.
func (t rateTable) rate(id int, name string) (float64, float64) {
	e, ok := t.byID[id]
	if !ok {
		e, ok = t.byName[name]
	}
	if !ok {
		return 0, 0
	}

	value := e.Total
	if t.totalTime > 0 {
		value = e.Total / (float64(t.totalTime) / 1000.0)
	}

	var percent float64
	if t.sum > 0 {
		percent = e.Total / t.sum * 100
	}
	return value, percent
}

// normalizeSlot maps wire slot labels onto the model's slot names.
func normalizeSlot(slot string) model.Slot {
	s := strings.ToLower(strings.TrimSpace(slot))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return model.Slot(s)
}

// barForSlot assigns the loadout a piece is active on. Only weapon slots
// are loadout-specific; armor and jewelry stay equipped through a bar
// swap.
func barForSlot(slot model.Slot) int {
	switch slot {
	case model.SlotMainHand, model.SlotOffHand:
		return 1
	case model.SlotBackupMainHand, model.SlotBackupOffHand:
		return 2
	default:
		return 0
	}
}

func slottedAbilities(entries []abilityEntry, bar int) []model.Ability {
	out := make([]model.Ability, 0, len(entries))
	for i, e := range entries {
		out = append(out, model.Ability{
			AbilityID: e.ID,
			Name:      e.Name,
			Slot:      i,
			Bar:       bar,
		})
	}
	return out
}
