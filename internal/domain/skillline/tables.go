package skillline

import "strings"

// Archetype is a playable class owning three skill lines.
type Archetype string

// Playable archetypes.
const (
	Dragonknight Archetype = "Dragonknight"
	Sorcerer     Archetype = "Sorcerer"
	Nightblade   Archetype = "Nightblade"
	Templar      Archetype = "Templar"
	Warden       Archetype = "Warden"
	Necromancer  Archetype = "Necromancer"
	Arcanist     Archetype = "Arcanist"
)

// abilitiesPerLine is the tabulated name count per line: one ultimate with
// its two morphs, then five actives each with their two morphs.
const abilitiesPerLine = 18

// lineDef couples a skill line to its tabulated ability names.
type lineDef struct {
	archetype Archetype
	line      Line
	abbrev    string
	abilities []string
}

// lineDefs is the authoritative membership table. Order matters: the
// substring fallback walks it front to back. Every name appears under
// exactly one line.
var lineDefs = []lineDef{
	{
		archetype: Dragonknight,
		line:      ArdentFlame,
		abbrev:    "Ardent",
		abilities: []string{
			"Dragonknight Standard", "Shifting Standard", "Standard of Might",
			"Lava Whip", "Molten Whip", "Flame Lash",
			"Searing Strike", "Venomous Claw", "Burning Embers",
			"Fiery Breath", "Noxious Breath", "Engulfing Flames",
			"Fiery Grip", "Empowering Chains", "Unrelenting Grip",
			"Inferno", "Flames of Oblivion", "Cauterize",
		},
	},
	{
		archetype: Dragonknight,
		line:      DraconicPower,
		abbrev:    "Draconic",
		abilities: []string{
			"Dragon Leap", "Ferocious Leap", "Take Flight",
			"Spiked Armor", "Hardened Armor", "Volatile Armor",
			"Dark Talons", "Burning Talons", "Choking Talons",
			"Dragon Blood", "Green Dragon Blood", "Coagulating Blood",
			"Reflective Scale", "Dragon Fire Scale", "Reflective Plate",
			"Inhale", "Deep Breath", "Draw Essence",
		},
	},
	{
		archetype: Dragonknight,
		line:      EarthenHeart,
		abbrev:    "Earthen",
		abilities: []string{
			"Magma Armor", "Magma Shell", "Corrosive Armor",
			"Stonefist", "Stone Giant", "Obsidian Shard",
			"Molten Weapons", "Igneous Weapons", "Molten Armaments",
			"Obsidian Shield", "Igneous Shield", "Fragmented Shield",
			"Petrify", "Fossilize", "Shattering Rocks",
			"Ash Cloud", "Cinder Storm", "Eruption",
		},
	},
	{
		archetype: Sorcerer,
		line:      DarkMagic,
		abbrev:    "Dark",
		abilities: []string{
			"Negate Magic", "Suppression Field", "Absorption Field",
			"Crystal Shard", "Crystal Fragments", "Crystal Weapon",
			"Encase", "Shattering Prison", "Restraining Prison",
			"Rune Prison", "Rune Cage", "Defensive Rune",
			"Dark Exchange", "Dark Deal", "Dark Conversion",
			"Daedric Mines", "Daedric Tomb", "Daedric Minefield",
		},
	},
	{
		archetype: Sorcerer,
		line:      DaedricSummon,
		abbrev:    "Daedric",
		abilities: []string{
			"Summon Storm Atronach", "Greater Storm Atronach", "Summon Charged Atronach",
			"Summon Unstable Familiar", "Summon Unstable Clannfear", "Summon Volatile Familiar",
			"Daedric Curse", "Daedric Prey", "Haunting Curse",
			"Summon Winged Twilight", "Summon Twilight Tormentor", "Summon Twilight Matriarch",
			"Conjured Ward", "Hardened Ward", "Empowered Ward",
			"Bound Armor", "Bound Armaments", "Bound Aegis",
		},
	},
	{
		archetype: Sorcerer,
		line:      StormCalling,
		abbrev:    "Storm",
		abilities: []string{
			"Overload", "Power Overload", "Energy Overload",
			"Mages' Fury", "Mages' Wrath", "Endless Fury",
			"Lightning Form", "Hurricane", "Boundless Storm",
			"Lightning Splash", "Liquid Lightning", "Lightning Flood",
			"Surge", "Power Surge", "Critical Surge",
			"Bolt Escape", "Streak", "Ball of Lightning",
		},
	},
	{
		archetype: Nightblade,
		line:      Assassination,
		abbrev:    "Ass",
		abilities: []string{
			"Death Stroke", "Incapacitating Strike", "Soul Harvest",
			"Assassin's Blade", "Killer's Blade", "Impale",
			"Teleport Strike", "Ambush", "Lotus Fan",
			"Veiled Strike", "Surprise Attack", "Concealed Weapon",
			"Mark Target", "Piercing Mark", "Reaper's Mark",
			"Grim Focus", "Relentless Focus", "Merciless Resolve",
		},
	},
	{
		archetype: Nightblade,
		line:      Shadow,
		abbrev:    "Shadow",
		abilities: []string{
			"Consuming Darkness", "Bolstering Darkness", "Veil of Blades",
			"Shadow Cloak", "Shadowy Disguise", "Dark Cloak",
			"Blur", "Mirage", "Phantasmal Escape",
			"Path of Darkness", "Twisting Path", "Refreshing Path",
			"Aspect of Terror", "Mass Hysteria", "Manifestation of Terror",
			"Summon Shade", "Dark Shade", "Shadow Image",
		},
	},
	{
		archetype: Nightblade,
		line:      Siphoning,
		abbrev:    "Siphon",
		abilities: []string{
			"Soul Shred", "Soul Siphon", "Soul Tether",
			"Strife", "Funnel Health", "Swallow Soul",
			"Agony", "Prolonged Suffering", "Malefic Wreath",
			"Cripple", "Debilitate", "Crippling Grasp",
			"Siphoning Strikes", "Leeching Strikes", "Siphoning Attacks",
			"Drain Power", "Power Extraction", "Sap Essence",
		},
	},
	{
		archetype: Templar,
		line:      AedricSpear,
		abbrev:    "Spear",
		abilities: []string{
			"Radial Sweep", "Crescent Sweep", "Everlasting Sweep",
			"Puncturing Strikes", "Biting Jabs", "Puncturing Sweep",
			"Piercing Javelin", "Aurora Javelin", "Binding Javelin",
			"Focused Charge", "Explosive Charge", "Toppling Charge",
			"Spear Shards", "Luminous Shards", "Blazing Spear",
			"Sun Shield", "Radiant Ward", "Blazing Shield",
		},
	},
	{
		archetype: Templar,
		line:      DawnsWrath,
		abbrev:    "Dawn",
		abilities: []string{
			"Nova", "Solar Prison", "Solar Disturbance",
			"Sun Fire", "Vampire's Bane", "Reflective Light",
			"Solar Flare", "Dark Flare", "Solar Barrage",
			"Backlash", "Purifying Light", "Power of the Light",
			"Eclipse", "Total Dark", "Unstable Core",
			"Radiant Destruction", "Radiant Glory", "Radiant Oppression",
		},
	},
	{
		archetype: Templar,
		line:      RestoringLight,
		abbrev:    "Resto",
		abilities: []string{
			"Rite of Passage", "Practiced Incantation", "Remembrance",
			"Rushed Ceremony", "Honor the Dead", "Breath of Life",
			"Healing Ritual", "Ritual of Rebirth", "Hasty Prayer",
			"Restoring Aura", "Radiant Aura", "Repentance",
			"Cleansing Ritual", "Extended Ritual", "Ritual of Retribution",
			"Rune Focus", "Channeled Focus", "Restoring Focus",
		},
	},
	{
		archetype: Warden,
		line:      AnimalCompanion,
		abbrev:    "Animal",
		abilities: []string{
			"Feral Guardian", "Eternal Guardian", "Wild Guardian",
			"Dive", "Cutting Dive", "Screaming Cliff Racer",
			"Scorch", "Subterranean Assault", "Deep Fissure",
			"Swarm", "Fetcher Infection", "Growing Swarm",
			"Betty Netch", "Blue Betty", "Bull Netch",
			"Falcon's Swiftness", "Deceptive Predator", "Bird of Prey",
		},
	},
	{
		archetype: Warden,
		line:      GreenBalance,
		abbrev:    "Green",
		abilities: []string{
			"Secluded Grove", "Enchanted Forest", "Healing Thicket",
			"Fungal Growth", "Enchanted Growth", "Soothing Spores",
			"Healing Seed", "Budding Seeds", "Corrupting Pollen",
			"Living Vines", "Leeching Vines", "Living Trellis",
			"Lotus Flower", "Green Lotus", "Lotus Blossom",
			"Nature's Grasp", "Bursting Vines", "Nature's Embrace",
		},
	},
	{
		archetype: Warden,
		line:      WintersEmbrace,
		abbrev:    "Winter",
		abilities: []string{
			"Sleet Storm", "Northern Storm", "Permafrost",
			"Frost Cloak", "Expansive Frost Cloak", "Ice Fortress",
			"Impaling Shards", "Gripping Shards", "Winter's Revenge",
			"Arctic Wind", "Polar Wind", "Arctic Blast",
			"Crystallized Shield", "Crystallized Slab", "Shimmering Shield",
			"Frozen Gate", "Frozen Device", "Frozen Retreat",
		},
	},
	{
		archetype: Necromancer,
		line:      GraveLord,
		abbrev:    "Grave",
		abilities: []string{
			"Frozen Colossus", "Glacial Colossus", "Pestilent Colossus",
			"Flame Skull", "Venom Skull", "Ricochet Skull",
			"Blastbones", "Blighted Blastbones", "Stalking Blastbones",
			"Boneyard", "Unnerving Boneyard", "Avid Boneyard",
			"Skeletal Mage", "Skeletal Archer", "Skeletal Arcanist",
			"Shocking Siphon", "Detonating Siphon", "Mystic Siphon",
		},
	},
	{
		archetype: Necromancer,
		line:      BoneTyrant,
		abbrev:    "Bone",
		abilities: []string{
			"Bone Goliath Transformation", "Pummeling Goliath", "Ravenous Goliath",
			"Death Scythe", "Ruinous Scythe", "Hungry Scythe",
			"Bone Armor", "Beckoning Armor", "Summoner's Armor",
			"Bitter Harvest", "Deaden Pain", "Necrotic Potency",
			"Bone Totem", "Remote Totem", "Agony Totem",
			"Grave Grasp", "Ghostly Embrace", "Empowering Grasp",
		},
	},
	{
		archetype: Necromancer,
		line:      LivingDeath,
		abbrev:    "Living",
		abilities: []string{
			"Reanimate", "Renewing Animation", "Animate Blastbones",
			"Render Flesh", "Resistant Flesh", "Blood Sacrifice",
			"Life amid Death", "Renewing Undeath", "Enduring Undeath",
			"Spirit Mender", "Spirit Guardian", "Intensive Mender",
			"Restoring Tether", "Braided Tether", "Mortal Coil",
			"Expunge", "Expunge and Modify", "Hexproof",
		},
	},
	{
		archetype: Arcanist,
		line:      HeraldOfTheTome,
		abbrev:    "Herald",
		abilities: []string{
			"The Unblinking Eye", "The Tide King's Gaze", "The Languid Eye",
			"Runeblades", "Writhing Runeblades", "Escalating Runeblades",
			"Fatecarver", "Exhausting Fatecarver", "Pragmatic Fatecarver",
			"Abyssal Impact", "Cephaliarch's Flail", "Tentacular Dread",
			"Tome-Bearer's Inspiration", "Inspired Scholarship", "Recuperative Treatise",
			"The Imperfect Ring", "Rune of Displacement", "Fulminating Rune",
		},
	},
	{
		archetype: Arcanist,
		line:      SoldierOfApoc,
		abbrev:    "Soldier",
		abilities: []string{
			"Gibbering Shield", "Sea of Enduring Ill", "Gibbering Shelter",
			"Runic Jolt", "Runic Sunder", "Runic Embrace",
			"Runespite Ward", "Spiteward of the Lucid Mind", "Impervious Runeward",
			"Fatewoven Armor", "Cruxweaver Armor", "Unbreakable Fate",
			"Runic Defense", "Runeguard of Still Waters", "Runeguard of Freedom",
			"Rune of Eldritch Horror", "Rune of Uncanny Adoration", "Rune of the Colorless Pool",
		},
	},
	{
		archetype: Arcanist,
		line:      CurativeRunes,
		abbrev:    "Curative",
		abilities: []string{
			"Vitalizing Glyphic", "Glyphic of the Tides", "Resonating Glyphic",
			"Runemend", "Evolving Runemend", "Audacious Runemend",
			"Remedy Cascade", "Cascading Fortune", "Curative Surge",
			"Chakram Shields", "Chakram of Destiny", "Tidal Chakram",
			"Arcanist's Domain", "Zenas' Empowering Disc", "Reconstructive Domain",
			"Apocryphal Gate", "Fleet-footed Gate", "Passage Between Worlds",
		},
	},
}

// abbrevByLine is derived from lineDefs once at startup.
var abbrevByLine = func() map[Line]string {
	m := make(map[Line]string, len(lineDefs))
	for _, def := range lineDefs {
		m[def.line] = def.abbrev
	}
	return m
}()

// archetypeByLine is derived from lineDefs once at startup.
var archetypeByLine = func() map[Line]Archetype {
	m := make(map[Line]Archetype, len(lineDefs))
	for _, def := range lineDefs {
		m[def.line] = def.archetype
	}
	return m
}()

// lineByAbbrev is derived from lineDefs once at startup.
var lineByAbbrev = func() map[string]Line {
	m := make(map[string]Line, len(lineDefs))
	for _, def := range lineDefs {
		m[strings.ToLower(def.abbrev)] = def.line
	}
	return m
}()

// ArchetypeOf returns the playable class owning a skill line. The empty
// archetype is returned for Unresolved and unknown lines.
func ArchetypeOf(l Line) Archetype {
	return archetypeByLine[l]
}

// ByAbbrev inverts the abbreviation mapping, accepting any casing.
// Unknown tokens and "x" map to Unresolved.
func ByAbbrev(abbrev string) Line {
	if line, ok := lineByAbbrev[strings.ToLower(abbrev)]; ok {
		return line
	}
	return Unresolved
}
