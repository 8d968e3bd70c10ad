package skillline_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	skillline "github.com/tamrielmeta/buildscry/internal/domain/skillline"
)

func TestClassifier_Classify(t *testing.T) {
	Convey("Given a classifier built from the static table", t, func() {
		classifier := skillline.New()

		Convey("When classifying a flame blade loadout", func() {
			abilities := []string{
				// Front bar: Ardent Flame heavy.
				"Molten Whip", "Burning Embers", "Engulfing Flames",
				"Flames of Oblivion", "Cauterize", "Standard of Might",
				// Back bar: Assassination plus two tome abilities.
				"Merciless Resolve", "Impale", "Ambush",
				"Fatecarver", "Cephaliarch's Flail", "Incapacitating Strike",
			}

			Convey("Then the three subclasses rank by tally", func() {
				lines := classifier.Classify(abilities)
				So(lines, ShouldHaveLength, 3)
				So(lines[0], ShouldEqual, skillline.ArdentFlame)
				So(lines[1], ShouldEqual, skillline.Assassination)
				So(lines[2], ShouldEqual, skillline.HeraldOfTheTome)
			})

			Convey("And classification is deterministic across calls", func() {
				first := classifier.Classify(abilities)
				for i := 0; i < 20; i++ {
					So(classifier.Classify(abilities), ShouldResemble, first)
				}
			})
		})

		Convey("When two lines tie on tally", func() {
			abilities := []string{
				"Fatecarver", "Molten Whip",
				"Cephaliarch's Flail", "Burning Embers",
			}

			Convey("Then the line matched first in the input wins the tie", func() {
				lines := classifier.Classify(abilities)
				So(lines[0], ShouldEqual, skillline.HeraldOfTheTome)
				So(lines[1], ShouldEqual, skillline.ArdentFlame)
			})
		})

		Convey("When fewer than three lines have any match", func() {
			abilities := []string{"Fatecarver", "Runeblades", "Barbed Trap"}

			Convey("Then the result pads with the unresolved placeholder", func() {
				lines := classifier.Classify(abilities)
				So(lines, ShouldResemble, []skillline.Line{
					skillline.HeraldOfTheTome, skillline.Unresolved, skillline.Unresolved,
				})
			})
		})

		Convey("When no ability is tabulated", func() {
			abilities := []string{
				"Barbed Trap", "Unstable Wall of Elements", "Inner Light",
				"Camouflaged Hunter", "Resolving Vigor", "Flawless Dawnbreaker",
			}

			Convey("Then all three slots are unresolved", func() {
				lines := classifier.Classify(abilities)
				So(lines, ShouldResemble, []skillline.Line{
					skillline.Unresolved, skillline.Unresolved, skillline.Unresolved,
				})
			})
		})

		Convey("When an untabulated morph spelling appears", func() {
			Convey("Then the substring fallback still resolves it", func() {
				lines := classifier.Classify([]string{"Greater Blastbones"})
				So(lines[0], ShouldEqual, skillline.GraveLord)
			})
		})
	})
}

func TestClassifier_Resolve(t *testing.T) {
	Convey("Given a classifier", t, func() {
		classifier := skillline.New()

		Convey("When resolving an exact tabulated name", func() {
			line, ok := classifier.Resolve("Cephaliarch's Flail")
			So(ok, ShouldBeTrue)
			So(line, ShouldEqual, skillline.HeraldOfTheTome)
		})

		Convey("When resolving with arbitrary casing and padding", func() {
			line, ok := classifier.Resolve("  MERCILESS RESOLVE ")
			So(ok, ShouldBeTrue)
			So(line, ShouldEqual, skillline.Assassination)
		})

		Convey("When resolving an unknown name", func() {
			line, ok := classifier.Resolve("Radiant Mage Light")
			So(ok, ShouldBeFalse)
			So(line, ShouldEqual, skillline.Unresolved)
		})

		Convey("When resolving the empty string", func() {
			_, ok := classifier.Resolve("")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestClassifier_WithAdditionalAbilities(t *testing.T) {
	Convey("Given a classifier extended with a post-release morph", t, func() {
		classifier := skillline.New(
			skillline.WithAdditionalAbilities(skillline.HeraldOfTheTome, "Tome of Torment"),
		)

		Convey("Then the extra name resolves to its line", func() {
			line, ok := classifier.Resolve("Tome of Torment")
			So(ok, ShouldBeTrue)
			So(line, ShouldEqual, skillline.HeraldOfTheTome)
		})

		Convey("And registering a duplicate of a tabulated name is ignored", func() {
			dup := skillline.New(
				skillline.WithAdditionalAbilities(skillline.Shadow, "Fatecarver"),
			)
			line, ok := dup.Resolve("Fatecarver")
			So(ok, ShouldBeTrue)
			So(line, ShouldEqual, skillline.HeraldOfTheTome)
		})
	})
}

func TestLine_AbbrevAndDisplay(t *testing.T) {
	Convey("Given the skill line vocabulary", t, func() {
		Convey("Then abbreviations match the slug tokens", func() {
			So(skillline.ArdentFlame.Abbrev(), ShouldEqual, "Ardent")
			So(skillline.Assassination.Abbrev(), ShouldEqual, "Ass")
			So(skillline.HeraldOfTheTome.Abbrev(), ShouldEqual, "Herald")
			So(skillline.DawnsWrath.Abbrev(), ShouldEqual, "Dawn")
			So(skillline.RestoringLight.Abbrev(), ShouldEqual, "Resto")
			So(skillline.BoneTyrant.Abbrev(), ShouldEqual, "Bone")
			So(skillline.Unresolved.Abbrev(), ShouldEqual, "x")
		})

		Convey("Then display names keep the full spelling", func() {
			So(skillline.HeraldOfTheTome.Display(), ShouldEqual, "Herald of the Tome")
			So(skillline.WintersEmbrace.Display(), ShouldEqual, "Winter's Embrace")
			So(skillline.Unresolved.Display(), ShouldEqual, "Unknown")
		})

		Convey("Then an unlisted line falls back to its first word", func() {
			So(skillline.Line("Stalwart Vanguard").Abbrev(), ShouldEqual, "Stalwa")
		})

		Convey("Then slice helpers preserve order", func() {
			lines := []skillline.Line{
				skillline.ArdentFlame, skillline.Assassination, skillline.Unresolved,
			}
			So(skillline.Abbrevs(lines), ShouldResemble, []string{"Ardent", "Ass", "x"})
			So(skillline.Displays(lines), ShouldResemble, []string{
				"Ardent Flame", "Assassination", "Unknown",
			})
		})
	})
}

func TestArchetypeOf(t *testing.T) {
	Convey("Given the archetype mapping", t, func() {
		So(skillline.ArchetypeOf(skillline.HeraldOfTheTome), ShouldEqual, skillline.Arcanist)
		So(skillline.ArchetypeOf(skillline.GraveLord), ShouldEqual, skillline.Necromancer)
		So(skillline.ArchetypeOf(skillline.GreenBalance), ShouldEqual, skillline.Warden)
		So(skillline.ArchetypeOf(skillline.Unresolved), ShouldEqual, skillline.Archetype(""))
	})
}

func TestByAbbrev(t *testing.T) {
	Convey("Given slug tokens", t, func() {
		Convey("Then every abbreviation round-trips to its line", func() {
			So(skillline.ByAbbrev("Ardent"), ShouldEqual, skillline.ArdentFlame)
			So(skillline.ByAbbrev("ass"), ShouldEqual, skillline.Assassination)
			So(skillline.ByAbbrev("HERALD"), ShouldEqual, skillline.HeraldOfTheTome)
		})

		Convey("Then unknown tokens resolve to the placeholder", func() {
			So(skillline.ByAbbrev("x"), ShouldEqual, skillline.Unresolved)
			So(skillline.ByAbbrev("nonsense"), ShouldEqual, skillline.Unresolved)
		})
	})
}
