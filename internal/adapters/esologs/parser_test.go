package esologs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bytedance/sonic"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tamrielmeta/buildscry/internal/adapters/esologs"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/internal/domain/types"
	"github.com/tamrielmeta/buildscry/pkg/logger"
)

func init() {
	if err := logger.Init("text"); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func gearItem(slot, setName string) map[string]any {
	return map[string]any{
		"slot":        slot,
		"itemID":      184873,
		"itemName":    setName + " Cuirass",
		"setID":       602,
		"setName":     setName,
		"traitName":   "Divines",
		"enchantName": "Magicka",
		"quality":     5,
		"itemLevel":   66,
	}
}

func abilityBar(names ...string) []map[string]any {
	out := make([]map[string]any, 0, len(names))
	for i, name := range names {
		out = append(out, map[string]any{"id": 20000 + i, "name": name})
	}
	return out
}

func combatant(gear []map[string]any, bar1, bar2 []map[string]any, buffs ...string) map[string]any {
	buffList := make([]map[string]any, 0, len(buffs))
	for _, b := range buffs {
		buffList = append(buffList, map[string]any{"name": b})
	}
	return map[string]any{
		"gear":      gear,
		"abilities": map[string]any{"bar1": bar1, "bar2": bar2},
		"buffs":     buffList,
	}
}

func detail(id int, name, class, account string, info any) map[string]any {
	d := map[string]any{
		"id":          id,
		"name":        name,
		"guid":        id * 100,
		"type":        class,
		"displayName": account,
	}
	if info != nil {
		d["combatantInfo"] = info
	}
	return d
}

func summaryTable(dps, healers, tanks []map[string]any) []byte {
	doc := map[string]any{
		"data": map[string]any{
			"totalTime": 300000,
			"playerDetails": map[string]any{
				"dps":     dps,
				"healers": healers,
				"tanks":   tanks,
			},
		},
	}
	raw, err := sonic.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}

func numericEntry(id int, name string, total float64) map[string]any {
	return map[string]any{
		"id":         id,
		"name":       name,
		"guid":       id * 100,
		"total":      total,
		"activeTime": 295000,
	}
}

func numericTable(totalTime int64, entries ...map[string]any) []byte {
	doc := map[string]any{
		"data": map[string]any{
			"totalTime": totalTime,
			"entries":   entries,
		},
	}
	raw, err := sonic.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}

var parseFight = model.Fight{
	ID:         5,
	Name:       "Tideborn Taleria",
	StartTime:  1000,
	EndTime:    301000,
	Difficulty: 122,
	Kill:       true,
}

func TestParseFight(t *testing.T) {
	ctx := context.Background()
	parser := esologs.NewParser()

	Convey("Given a fight with two damage dealers, a healer, and a tank", t, func() {
		gear := []map[string]any{
			gearItem("head", "Deadly Strike"),
			gearItem("ring1", "Deadly Strike"),
			gearItem("main_hand", "Relequen"),
			gearItem("backup_main_hand", "Relequen"),
		}
		summary := summaryTable(
			[]map[string]any{
				detail(1, "Scaleblade", "DragonKnight", "@emberfall",
					combatant(gear, abilityBar("Molten Whip"), abilityBar("Flames of Oblivion"), "Major Sorcery", "Boon: The Thief")),
				detail(2, "Nightfang", "Nightblade", "@veilstep",
					combatant(gear, abilityBar("Killer's Blade"), abilityBar("Impale"))),
			},
			[]map[string]any{
				detail(3, "Tidemender", "Templar", "@brightwater",
					combatant(gear, abilityBar("Breath of Life"), abilityBar("Ritual of Retribution"))),
			},
			[]map[string]any{
				detail(4, "Wallbreaker", "Necromancer", "@gravecall",
					combatant(gear, abilityBar("Pummeling Goliath"), abilityBar("Beckoning Armor"))),
			},
		)
		damage := numericTable(300000,
			numericEntry(1, "Scaleblade", 33000000),
			numericEntry(2, "Nightfang", 27000000),
		)
		healing := numericTable(300000,
			numericEntry(3, "Tidemender", 15000000),
		)

		Convey("When parsing the tables", func() {
			records, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, damage, healing)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 4)

			Convey("Then roles follow the summary buckets", func() {
				So(records[0].Role, ShouldEqual, types.RoleDamage)
				So(records[1].Role, ShouldEqual, types.RoleDamage)
				So(records[2].Role, ShouldEqual, types.RoleHealer)
				So(records[3].Role, ShouldEqual, types.RoleTank)
			})

			Convey("Then identity and provenance are carried", func() {
				first := records[0]
				So(first.ReportCode, ShouldEqual, "AbC123")
				So(first.FightID, ShouldEqual, 5)
				So(first.SourceID, ShouldEqual, 1)
				So(first.CharacterName, ShouldEqual, "Scaleblade")
				So(first.AccountName, ShouldEqual, "@emberfall")
				So(first.CharacterID, ShouldEqual, 100)
				So(first.ClassName, ShouldEqual, "DragonKnight")
				So(first.FightStartTime, ShouldEqual, 1000)
				So(first.FightEndTime, ShouldEqual, 301000)
			})

			Convey("Then damage rates divide the total by fight seconds", func() {
				So(records[0].DPS, ShouldAlmostEqual, 110000)
				So(records[1].DPS, ShouldAlmostEqual, 90000)
				So(records[0].DPSPercent, ShouldAlmostEqual, 55)
				So(records[1].DPSPercent, ShouldAlmostEqual, 45)
			})

			Convey("Then healing rates come from the healing table", func() {
				So(records[2].Healing, ShouldAlmostEqual, 50000)
				So(records[2].HealingPercent, ShouldAlmostEqual, 100)
				So(records[0].Healing, ShouldEqual, 0)
			})

			Convey("Then gear bars derive from the slot", func() {
				pieces := records[0].Gear
				So(pieces, ShouldHaveLength, 4)
				So(pieces[0].Slot, ShouldEqual, model.SlotHead)
				So(pieces[0].Bar, ShouldEqual, 0)
				So(pieces[1].Bar, ShouldEqual, 0)
				So(pieces[2].Slot, ShouldEqual, model.SlotMainHand)
				So(pieces[2].Bar, ShouldEqual, 1)
				So(pieces[3].Slot, ShouldEqual, model.SlotBackupMainHand)
				So(pieces[3].Bar, ShouldEqual, 2)
				So(pieces[0].SetName, ShouldEqual, "Deadly Strike")
				So(pieces[0].Trait, ShouldEqual, "Divines")
			})

			Convey("Then abilities keep their bar and slot positions", func() {
				So(records[0].FrontBar, ShouldHaveLength, 1)
				So(records[0].FrontBar[0].Name, ShouldEqual, "Molten Whip")
				So(records[0].FrontBar[0].Bar, ShouldEqual, 1)
				So(records[0].FrontBar[0].Slot, ShouldEqual, 0)
				So(records[0].BackBar[0].Name, ShouldEqual, "Flames of Oblivion")
				So(records[0].BackBar[0].Bar, ShouldEqual, 2)
			})

			Convey("Then a boon buff fills the mundus", func() {
				So(records[0].Mundus, ShouldEqual, "Boon: The Thief")
				So(records[1].Mundus, ShouldEqual, "")
			})
		})
	})
}

func TestParseFightEdgeCases(t *testing.T) {
	ctx := context.Background()
	parser := esologs.NewParser()

	Convey("Given a summary that is not valid JSON", t, func() {
		Convey("Then parsing fails with the malformed sentinel", func() {
			_, err := parser.ParseFight(ctx, "AbC123", parseFight, []byte("{broken"), nil, nil)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, esologs.ErrMalformedPayload), ShouldBeTrue)
		})
	})

	Convey("Given a damage table that is not valid JSON", t, func() {
		summary := summaryTable(nil, nil, nil)

		Convey("Then parsing fails with the malformed sentinel", func() {
			_, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, []byte("<html>"), nil)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, esologs.ErrMalformedPayload), ShouldBeTrue)
		})
	})

	Convey("Given a fight with no players at all", t, func() {
		summary := summaryTable(nil, nil, nil)

		Convey("Then parsing yields an empty result without error", func() {
			records, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, numericTable(300000), nil)
			So(err, ShouldBeNil)
			So(records, ShouldBeEmpty)
		})
	})

	Convey("Given no healing table", t, func() {
		summary := summaryTable(
			[]map[string]any{detail(1, "Scaleblade", "DragonKnight", "@emberfall", nil)},
			nil, nil,
		)
		damage := numericTable(300000, numericEntry(1, "Scaleblade", 33000000))

		Convey("Then records parse with zero healing", func() {
			records, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, damage, nil)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].DPS, ShouldAlmostEqual, 110000)
			So(records[0].Healing, ShouldEqual, 0)
		})
	})

	Convey("Given combatant info sent as an empty array", t, func() {
		summary := summaryTable(
			[]map[string]any{detail(1, "Scaleblade", "DragonKnight", "@emberfall", []any{})},
			nil, nil,
		)

		Convey("Then the record parses without gear or bars", func() {
			records, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, numericTable(300000), nil)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].Gear, ShouldBeEmpty)
			So(records[0].FrontBar, ShouldBeEmpty)
			So(records[0].Complete(), ShouldBeFalse)
		})
	})

	Convey("Given a damage entry that only matches by name", t, func() {
		summary := summaryTable(
			[]map[string]any{detail(7, "Scaleblade", "DragonKnight", "@emberfall", nil)},
			nil, nil,
		)
		damage := numericTable(300000, numericEntry(99, "Scaleblade", 33000000))

		Convey("Then the rate still lands on the record", func() {
			records, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, damage, nil)
			So(err, ShouldBeNil)
			So(records[0].DPS, ShouldAlmostEqual, 110000)
		})
	})

	Convey("Given a table with zero total time", t, func() {
		summary := summaryTable(
			[]map[string]any{detail(1, "Scaleblade", "DragonKnight", "@emberfall", nil)},
			nil, nil,
		)
		damage := numericTable(0, numericEntry(1, "Scaleblade", 42))

		Convey("Then the raw total is used instead of a rate", func() {
			records, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, damage, nil)
			So(err, ShouldBeNil)
			So(records[0].DPS, ShouldAlmostEqual, 42)
		})
	})

	Convey("Given wire slot labels in mixed shapes", t, func() {
		gear := []map[string]any{
			gearItem("Main Hand", "Relequen"),
			gearItem("BACKUP-MAIN-HAND", "Relequen"),
		}
		summary := summaryTable(
			[]map[string]any{detail(1, "Scaleblade", "DragonKnight", "@emberfall",
				combatant(gear, nil, nil))},
			nil, nil,
		)

		Convey("Then slots normalize to the model names", func() {
			records, err := parser.ParseFight(ctx, "AbC123", parseFight, summary, numericTable(300000), nil)
			So(err, ShouldBeNil)
			So(records[0].Gear[0].Slot, ShouldEqual, model.SlotMainHand)
			So(records[0].Gear[0].Bar, ShouldEqual, 1)
			So(records[0].Gear[1].Slot, ShouldEqual, model.SlotBackupMainHand)
			So(records[0].Gear[1].Bar, ShouldEqual, 2)
		})
	})
}
