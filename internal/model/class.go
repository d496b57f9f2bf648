package model

// CharacterClass identifies a playable mercenary, its robot counterpart,
// or one of the placeholder slots used by the loadout view.
type CharacterClass int

const (
	ClassScout CharacterClass = iota
	ClassSniper
	ClassSoldier
	ClassDemoman
	ClassMedic
	ClassHeavy
	ClassPyro
	ClassSpy
	ClassEngineer
)

const (
	ClassScoutBot CharacterClass = iota + 100
	ClassSniperBot
	ClassSoldierBot
	ClassDemomanBot
	ClassMedicBot
	ClassHeavyBot
	ClassPyroBot
	ClassSpyBot
	ClassEngineerBot
)

const (
	ClassRandom           CharacterClass = 1000
	ClassNone             CharacterClass = 1001
	ClassEmpty            CharacterClass = 1002
	ClassCompareWarpaints CharacterClass = 1003
)

// botOffset converts a mercenary class to its robot counterpart.
const botOffset = 100

// ClassDef carries the per-class metadata needed to resolve models
// and match schema used_by_classes entries.
type ClassDef struct {
	Name      string
	ModelPath string
	NPC       string
	Bot       bool
	Hidden    bool
}

// ClassList maps every selectable class to its definition. Placeholder
// classes resolve to an empty model and stay hidden from pickers.
var ClassList = map[CharacterClass]ClassDef{
	ClassScout:    {Name: "scout", ModelPath: "models/player/scout", NPC: "scout"},
	ClassSniper:   {Name: "sniper", ModelPath: "models/player/sniper", NPC: "sniper"},
	ClassSoldier:  {Name: "soldier", ModelPath: "models/player/soldier", NPC: "soldier"},
	ClassDemoman:  {Name: "demoman", ModelPath: "models/player/demo", NPC: "demoman"},
	ClassMedic:    {Name: "medic", ModelPath: "models/player/medic", NPC: "medic"},
	ClassHeavy:    {Name: "heavy", ModelPath: "models/player/heavy", NPC: "heavy"},
	ClassPyro:     {Name: "pyro", ModelPath: "models/player/pyro", NPC: "pyro"},
	ClassSpy:      {Name: "spy", ModelPath: "models/player/spy", NPC: "spy"},
	ClassEngineer: {Name: "engineer", ModelPath: "models/player/engineer", NPC: "engineer"},

	ClassScoutBot:    {Name: "scout", ModelPath: "models/bots/scout/bot_scout", NPC: "bot_scout", Bot: true},
	ClassSniperBot:   {Name: "sniper", ModelPath: "models/bots/sniper/bot_sniper", NPC: "bot_sniper", Bot: true},
	ClassSoldierBot:  {Name: "soldier", ModelPath: "models/bots/soldier/bot_soldier", NPC: "bot_soldier", Bot: true},
	ClassDemomanBot:  {Name: "demoman", ModelPath: "models/bots/demo/bot_demo", NPC: "bot_demoman", Bot: true},
	ClassMedicBot:    {Name: "medic", ModelPath: "models/bots/medic/bot_medic", NPC: "bot_medic", Bot: true},
	ClassHeavyBot:    {Name: "heavy", ModelPath: "models/bots/heavy/bot_heavy", NPC: "bot_heavy", Bot: true},
	ClassPyroBot:     {Name: "pyro", ModelPath: "models/bots/pyro/bot_pyro", NPC: "bot_pyro", Bot: true},
	ClassSpyBot:      {Name: "spy", ModelPath: "models/bots/spy/bot_spy", NPC: "bot_spy", Bot: true},
	ClassEngineerBot: {Name: "engineer", ModelPath: "models/bots/engineer/bot_engineer", NPC: "bot_engineer", Bot: true},

	ClassEmpty:            {Name: "dummy", ModelPath: "models/empty", NPC: "dummy", Hidden: true},
	ClassCompareWarpaints: {Name: "warpaints", ModelPath: "models/empty", NPC: "warpaints", Hidden: true},
}

// Name returns the schema class name ("scout", "demoman", ...) or ""
// for classes without a definition.
func (c CharacterClass) Name() string {
	return ClassList[c].Name
}

// NPC returns the npc identifier used for model lookup.
func (c CharacterClass) NPC() string {
	return ClassList[c].NPC
}

// IsBot reports whether the class is a robot variant.
func (c CharacterClass) IsBot() bool {
	return ClassList[c].Bot
}

// IsPlaceholder reports whether the class is one of the sentinel slots
// that never equips items.
func (c CharacterClass) IsPlaceholder() bool {
	switch c {
	case ClassNone, ClassEmpty, ClassCompareWarpaints:
		return true
	}
	return false
}

// Bot returns the robot counterpart of a mercenary class. Bot variants
// and placeholders are returned unchanged.
func (c CharacterClass) Bot() CharacterClass {
	if c >= ClassScout && c <= ClassEngineer {
		return c + botOffset
	}
	return c
}

// NPCToClass resolves an npc identifier back to its class.
func NPCToClass(npc string) (CharacterClass, bool) {
	for class, def := range ClassList {
		if def.NPC == npc {
			return class, true
		}
	}
	return ClassNone, false
}
