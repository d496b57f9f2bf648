package registry

import (
	"encoding/json"
	"strconv"
	"strings"
)

// EffectType identifies a particle system category in the schema.
type EffectType string

const (
	EffectCosmeticUnusual   EffectType = "cosmetic_unusual_effects"
	EffectKillstreakEyeglow EffectType = "killstreak_eyeglows"
	EffectTauntUnusual      EffectType = "taunt_unusual_effects"
	EffectWeaponUnusual     EffectType = "weapon_unusual_effects"
	EffectOther             EffectType = "other_particles"
)

// EffectTypes lists every category present in the systems schema.
var EffectTypes = []EffectType{
	EffectCosmeticUnusual,
	EffectKillstreakEyeglow,
	EffectTauntUnusual,
	EffectWeaponUnusual,
	EffectOther,
}

// EffectDefinition is the typed form of one particle system entry.
type EffectDefinition struct {
	Name          string
	System        string
	UseSuffixName bool
	Attachment    string
	ControlPoints map[int]string
}

func (d *EffectDefinition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		var s string
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, &s); err != nil {
				s = strings.Trim(string(v), `"`)
			}
		}
		return s
	}

	d.Name = str("name")
	d.System = str("system")
	d.Attachment = str("attachment")
	switch str("use_suffix_name") {
	case "1", "true":
		d.UseSuffixName = true
	}

	for key, v := range raw {
		if !strings.HasPrefix(key, "control_point_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(key, "control_point_"))
		if err != nil {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		if d.ControlPoints == nil {
			d.ControlPoints = make(map[int]string)
		}
		d.ControlPoints[n] = s
	}
	return nil
}

// EffectTemplate is one loaded particle system.
type EffectTemplate struct {
	ID   int
	Type EffectType
	Def  EffectDefinition
}

func (e *EffectTemplate) Name() string {
	return e.Def.Name
}

// System returns the particle system name. Suffixed systems append the
// given suffix when the schema flags use_suffix_name.
func (e *EffectTemplate) System(suffix string) string {
	if e.Def.UseSuffixName && suffix != "" {
		return e.Def.System + "_" + suffix
	}
	return e.Def.System
}

// IsTeamColored reports whether the system carries a team color token.
func (e *EffectTemplate) IsTeamColored() bool {
	return strings.Contains(e.Def.System, "_teamcolor_red") ||
		strings.Contains(e.Def.System, "_teamcolor_blue")
}

// TeamSystem swaps the red token for the blu one when blu is requested.
func (e *EffectTemplate) TeamSystem(blu bool) string {
	if !blu {
		return e.Def.System
	}
	return strings.ReplaceAll(e.Def.System, "_teamcolor_red", "_teamcolor_blue")
}

// weaponEffectNames maps the schema weapon effect ids to the base
// names used to assemble the per-weapon particle system name.
var weaponEffectNames = map[int]string{
	701: "hot",
	702: "isotope",
	703: "cool",
	704: "energyorb",
}

// WeaponEffectSystem assembles the particle system name for a weapon
// unusual effect applied to a weapon with the given particle suffix.
func WeaponEffectSystem(effectID int, particleSuffix string) (string, bool) {
	name, ok := weaponEffectNames[effectID]
	if !ok {
		return "", false
	}
	return "weapon_unusual_" + name + "_" + particleSuffix, true
}
