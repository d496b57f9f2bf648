// Package legacy maps virtual warpaint and paintkit definition
// indexes, still present in listings and saved presets, onto the
// current item schema.
package legacy

import (
	"regexp"

	"github.com/loadout-tf/extension/internal/model"
)

const (
	// FirstWarpaint and LastWarpaint bound the retired warpaint
	// definition index range. Items in this range carry the warpaint
	// on the item itself instead of a paintkit attribute.
	FirstWarpaint = 15000
	LastWarpaint  = 15158

	// FirstPaintkitDef and LastPaintkitDef bound the virtual paintkit
	// definition index range used by decorated weapon listings.
	FirstPaintkitDef = 16000
	LastPaintkitDef  = 18000

	// FirstSyntheticDef is the lowest virtual index that has no
	// schema entry and needs a synthesized paintkit tool template.
	FirstSyntheticDef = 16102
)

// DecoratedWeapons maps the display name of each weapon a warpaint can
// be previewed on to its definition index. The paintkit tool is the
// fallback when the user has not picked a weapon.
var DecoratedWeapons = map[string]int{
	"Paint kit Tool":         model.PaintKitToolIndex,
	"Ubersaw":                37,
	"Scotsman's Skullcutter": 172,
	"Knife":                  194,
	"Wrench":                 197,
	"Shotgun":                199,
	"Scattergun":             200,
	"Sniper rifle":           201,
	"Minigun":                202,
	"SMG":                    203,
	"Rocket launcher":        205,
	"Grenade Launcher":       206,
	"Sticky launcher":        207,
	"Flamethrower":           208,
	"Pistol":                 209,
	"Revolver":               210,
	"Medigun":                211,
	"Powerjack":              214,
	"Degreaser":              215,
	"Shortstop":              220,
	"Holy Mackerel":          221,
	"Black Box":              228,
	"Amputator":              304,
	"Crusader's Crossbow":    305,
	"Loch-n-Load":            308,
	"Brass Beast":            312,
	"Back Scratcher":         326,
	"Claidheamohmor":         327,
	"Jag":                    329,
	"Detonator":              351,
	"Shahanshah":             401,
	"Bazaar Bargain":         402,
	"Persian Persuader":      404,
	"Reserve Shooter":        415,
	"Tomislav":               424,
	"Family Business":        425,
	"Disciplinary Action":    447,
	"Soda Popper":            448,
	"Winger":                 449,
	"Scorch Shot":            740,
	"Loose Cannon":           996,
	"Rescue Ranger":          997,
	"Air Strike":             1104,
	"Iron Bomber":            1151,
	"Panic Attack":           1153,
	"Dragon's Fury":          1178,
}

// IsWarpaint reports whether the definition index is a retired
// warpaint carried on the item itself.
func IsWarpaint(defIndex int) bool {
	return defIndex >= FirstWarpaint && defIndex <= LastWarpaint
}

// IsPaintkitDef reports whether the definition index falls in the
// virtual paintkit range used by decorated weapon listings.
func IsPaintkitDef(defIndex int) bool {
	return defIndex >= FirstPaintkitDef && defIndex < LastPaintkitDef
}

// NeedsSyntheticTemplate reports whether the virtual index has no
// schema entry of its own.
func NeedsSyntheticTemplate(defIndex int) bool {
	return defIndex >= FirstSyntheticDef && defIndex <= LastPaintkitDef
}

// ProtoDefIndex converts a virtual paintkit definition index into the
// warpaint proto definition index it encodes.
func ProtoDefIndex(defIndex int) int {
	if defIndex < 17000 {
		return defIndex - 16000
	}
	return defIndex - 17000
}

// RemapDefIndex resolves a virtual paintkit definition index to the
// weapon the warpaint should be previewed on. forcedWeaponIndex is the
// stored user choice; zero means no choice and falls back to the
// paintkit tool. The second return reports whether a remap happened.
func RemapDefIndex(defIndex, forcedWeaponIndex int) (int, bool) {
	if !IsPaintkitDef(defIndex) {
		return defIndex, false
	}
	if forcedWeaponIndex != 0 {
		return forcedWeaponIndex, true
	}
	return model.PaintKitToolIndex, true
}

var styleSuffix = regexp.MustCompile(`~\d+$`)

// StripStyle removes a trailing ~N style suffix from a template id.
func StripStyle(id string) string {
	return styleSuffix.ReplaceAllString(id, "")
}
