package model

// KillstreakColor identifies a killstreak sheen color.
type KillstreakColor int

const (
	KillstreakNone KillstreakColor = iota
	KillstreakTeamShine
	KillstreakDeadlyDaffodil
	KillstreakManndarin
	KillstreakMeanGreen
	KillstreakAgonizingEmerald
	KillstreakVillainousViolet
	KillstreakHotrod

	KillstreakCustom KillstreakColor = 1000
)

// Tint is a normalized RGB color in [0,1].
type Tint [3]float64

// ColorToTint converts a packed 0xRRGGBB color to a normalized tint.
func ColorToTint(color int) Tint {
	return Tint{
		float64((color>>16)&0xFF) / 255.0,
		float64((color>>8)&0xFF) / 255.0,
		float64(color&0xFF) / 255.0,
	}
}

// killstreakSheenTints holds the packed sheen colors per effect id.
// Team Shine is the only row with a distinct blu entry.
var killstreakSheenTints = [][]int{
	{},                   // invalid
	{13112335, 2646728},  // Team Shine
	{15903754},           // Deadly Daffodil
	{16730885},           // Manndarin
	{6618890},            // Mean Green
	{2686790},            // Agonizing Emerald
	{6886655},            // Villainous Violet
	{16719615},           // Hot Rod
}

// SheenTint returns the sheen tint for a killstreak idle effect id.
// Teams without a dedicated entry fall back to the red tint. Unknown
// effect ids tint black.
func SheenTint(effectID int, team Team) Tint {
	var color int
	if effectID >= 0 && effectID < len(killstreakSheenTints) {
		row := killstreakSheenTints[effectID]
		if int(team) >= 0 && int(team) < len(row) {
			color = row[team]
		} else if len(row) > 0 {
			color = row[0]
		}
	}
	return ColorToTint(color)
}

// KillstreakDef holds per-team sheen and eye glow colors for one
// killstreak color, parsed from the killstreak definition table.
type KillstreakDef struct {
	ID          KillstreakColor
	Name        string
	TeamColored bool
	SheenRed    int
	SheenBlu    int
	Color1Red   int
	Color1Blu   int
	Color2Red   int
	Color2Blu   int
}

// KillstreakList holds the definition for every stock sheen color.
// Team Shine is the only team colored entry.
var KillstreakList = map[KillstreakColor]*KillstreakDef{
	KillstreakTeamShine:        newKillstreakDef(KillstreakTeamShine, "Team Shine", true),
	KillstreakDeadlyDaffodil:   newKillstreakDef(KillstreakDeadlyDaffodil, "Deadly Daffodil", false),
	KillstreakManndarin:        newKillstreakDef(KillstreakManndarin, "Manndarin", false),
	KillstreakMeanGreen:        newKillstreakDef(KillstreakMeanGreen, "Mean Green", false),
	KillstreakAgonizingEmerald: newKillstreakDef(KillstreakAgonizingEmerald, "Agonizing Emerald", false),
	KillstreakVillainousViolet: newKillstreakDef(KillstreakVillainousViolet, "Villainous Violet", false),
	KillstreakHotrod:           newKillstreakDef(KillstreakHotrod, "Hot Rod", false),
}

func newKillstreakDef(id KillstreakColor, name string, teamColored bool) *KillstreakDef {
	row := killstreakSheenTints[id]
	red := row[0]
	blu := red
	if len(row) > 1 {
		blu = row[1]
	}
	return &KillstreakDef{
		ID:          id,
		Name:        name,
		TeamColored: teamColored,
		SheenRed:    red,
		SheenBlu:    blu,
		Color1Red:   red,
		Color1Blu:   blu,
		Color2Red:   red,
		Color2Blu:   blu,
	}
}

// GetKillstreak returns the definition for a sheen color.
func GetKillstreak(color KillstreakColor) (*KillstreakDef, bool) {
	d, ok := KillstreakList[color]
	return d, ok
}

// KillstreakColorForTint finds the sheen color whose primary glow
// matches the tint on either team, within a small tolerance.
func KillstreakColorForTint(tint Tint) (KillstreakColor, bool) {
	const epsilon = 0.001
	for color, def := range KillstreakList {
		for _, candidate := range []Tint{ColorToTint(def.Color1Blu), ColorToTint(def.Color1Red)} {
			if tintNear(tint, candidate, epsilon) {
				return color, true
			}
		}
	}
	return KillstreakNone, false
}

func tintNear(a, b Tint, epsilon float64) bool {
	for i := range a {
		d := a[i] - b[i]
		if d < -epsilon || d > epsilon {
			return false
		}
	}
	return true
}

// Sheen returns the sheen tint for the given team.
func (d *KillstreakDef) Sheen(team Team) Tint {
	if team == TeamBlu {
		return ColorToTint(d.SheenBlu)
	}
	return ColorToTint(d.SheenRed)
}

// Color1 returns the primary eye glow tint for the given team.
func (d *KillstreakDef) Color1(team Team) Tint {
	if team == TeamBlu {
		return ColorToTint(d.Color1Blu)
	}
	return ColorToTint(d.Color1Red)
}

// Color2 returns the secondary eye glow tint for the given team.
func (d *KillstreakDef) Color2(team Team) Tint {
	if team == TeamBlu {
		return ColorToTint(d.Color2Blu)
	}
	return ColorToTint(d.Color2Red)
}
