package loadout

import (
	"github.com/loadout-tf/extension/internal/filter"
	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/registry"
)

// Ragdoll selects a full-body ragdoll material treatment.
type Ragdoll int

const (
	RagdollNone Ragdoll = iota
	RagdollGold
	RagdollIce
)

// Material override paths applied by character wide states.
const (
	MaterialInvulnRed   = "models/effects/invulnfx_red.vmt"
	MaterialInvulnBlu   = "models/effects/invulnfx_blue.vmt"
	MaterialGoldRagdoll = "models/player/shared/gold_player.vmt"
	MaterialIceRagdoll  = "models/player/shared/ice_player.vmt"
)

// Crit boost particle systems and model glow colors per team.
const (
	critSystemRed = "critgun_weaponmodel_red"
	critSystemBlu = "critgun_weaponmodel_blu"
)

var (
	critGlowRed = [3]float64{80, 8, 5}
	critGlowBlu = [3]float64{5, 20, 80}
)

// WarpaintParams carries everything the warpaint compositor needs to
// redraw a weapon texture.
type WarpaintParams struct {
	ItemID      string
	WarpaintID  int
	Wear        float64
	Seed        uint64
	Team        model.Team
	TextureSize int
}

// Item is one equipped item with its customization state. Derived
// render properties (skin, material override, tints, particle systems)
// are computed from the current state on demand.
type Item struct {
	ID        string
	template  *registry.ItemTemplate
	character *Character

	team           model.Team
	killCount      *int
	showFestivizer bool
	critBoost      bool
	customTexture  string
	paint          *model.Paint
	sheen          model.KillstreakColor
	weaponEffectID *int

	warpaintID   *int
	warpaintWear float64
	warpaintSeed uint64
	textureSize  int
}

func newItem(template *registry.ItemTemplate, character *Character) *Item {
	return &Item{
		ID:        template.ID,
		template:  template,
		character: character,
		team:      model.TeamNone,
	}
}

// Template returns the schema template the item was equipped from.
func (i *Item) Template() *registry.ItemTemplate {
	return i.template
}

// Character returns the owning character, or nil for detached items.
func (i *Item) Character() *Character {
	return i.character
}

// EquipRegions returns the regions the item occupies.
func (i *Item) EquipRegions() []string {
	return i.template.Def.EquipRegions
}

// SetTeam switches the item to the given team.
func (i *Item) SetTeam(team model.Team) {
	i.team = team
}

// Team returns the current team.
func (i *Item) Team() model.Team {
	return i.team
}

// Skin returns the skin index for the current team.
func (i *Item) Skin() int {
	return i.template.Skin(i.team)
}

// MaterialOverride resolves the active material override. Character
// ragdoll state wins over invulnerability, which wins over the
// template's own override.
func (i *Item) MaterialOverride() (string, bool) {
	if c := i.character; c != nil {
		switch c.Ragdoll() {
		case RagdollGold:
			return MaterialGoldRagdoll, true
		case RagdollIce:
			return MaterialIceRagdoll, true
		}
		if c.IsInvulnerable() {
			if i.team == model.TeamBlu {
				return MaterialInvulnBlu, true
			}
			return MaterialInvulnRed, true
		}
	}
	if m := i.template.Def.MaterialOverride; m != "" {
		return m, true
	}
	return "", false
}

// SetKillCount sets the stat clock counter. A nil count hides the
// module.
func (i *Item) SetKillCount(count *int) {
	i.killCount = count
}

// KillCount returns the stat clock counter, or nil when unset.
func (i *Item) KillCount() *int {
	return i.killCount
}

// StattrakModule returns the stat clock model path, or false when the
// weapon carries none.
func (i *Item) StattrakModule() (string, bool) {
	path := string(i.template.Def.WeaponUsesStattrakModule)
	return path, path != ""
}

// StattrakVisible reports whether the stat clock should render.
func (i *Item) StattrakVisible() bool {
	return i.killCount != nil
}

// StattrakSkin returns the module skin. Modules only ship a red and a
// blu skin, higher weapon skins wrap.
func (i *Item) StattrakSkin() int {
	return i.Skin() % 2
}

// StattrakScale returns the scale applied to the stat clock bone.
func (i *Item) StattrakScale() float64 {
	return i.template.StattrakScale()
}

// SetShowFestivizer toggles the festive lights model.
func (i *Item) SetShowFestivizer(show bool) {
	i.showFestivizer = show
}

// ShowFestivizer reports whether the festive lights render.
func (i *Item) ShowFestivizer() bool {
	return i.showFestivizer
}

// ToggleFestivizer flips the festive lights state.
func (i *Item) ToggleFestivizer() {
	i.showFestivizer = !i.showFestivizer
}

// FestivizerModel returns the festive lights model path when the item
// is festivized and the template carries one.
func (i *Item) FestivizerModel() (string, bool) {
	path := i.template.Def.AttachedModelsFestive
	if path == "" || !i.showFestivizer {
		return "", false
	}
	return path, true
}

// SetCritBoost sets the crit boost state.
func (i *Item) SetCritBoost(boost bool) {
	i.critBoost = boost
}

// ToggleCritBoost flips the crit boost state.
func (i *Item) ToggleCritBoost() {
	i.critBoost = !i.critBoost
}

// IsCritBoosted reports whether the item glows with crit lightning.
func (i *Item) IsCritBoosted() bool {
	return i.critBoost
}

// CritBoostEffect returns the crit particle system and model glow color
// for the current team, or false when not crit boosted.
func (i *Item) CritBoostEffect() (system string, glow [3]float64, ok bool) {
	if !i.critBoost {
		return "", [3]float64{}, false
	}
	if i.team == model.TeamBlu {
		return critSystemBlu, critGlowBlu, true
	}
	return critSystemRed, critGlowRed, true
}

// SetCustomTexture sets the decal texture name, "" clears it.
func (i *Item) SetCustomTexture(name string) {
	i.customTexture = name
}

// CustomTexture returns the decal texture name, or "".
func (i *Item) CustomTexture() string {
	return i.customTexture
}

// SetPaint applies a paint can by id. Unknown ids clear the paint.
func (i *Item) SetPaint(id int) {
	i.paint, _ = model.GetPaint(id)
}

// ClearPaint removes the applied paint.
func (i *Item) ClearPaint() {
	i.paint = nil
}

// Paint returns the applied paint, or nil.
func (i *Item) Paint() *model.Paint {
	return i.paint
}

// Tint resolves the model tint: applied paint first, then the
// template's own tint attribute for the current team.
func (i *Item) Tint() (model.Tint, bool) {
	if i.paint != nil {
		return i.paint.Tint(i.team), true
	}
	return i.template.TintRGB(i.team)
}

// SetSheen sets the killstreak sheen color.
func (i *Item) SetSheen(color model.KillstreakColor) {
	i.sheen = color
}

// Sheen returns the killstreak sheen color.
func (i *Item) Sheen() model.KillstreakColor {
	return i.sheen
}

// SheenTint returns the sheen tint for the current team, or false when
// no sheen is applied.
func (i *Item) SheenTint() (model.Tint, bool) {
	def, ok := model.GetKillstreak(i.sheen)
	if !ok {
		return model.Tint{}, false
	}
	return def.Sheen(i.team), true
}

// SetWeaponEffectID sets the weapon unusual effect, nil removes it.
func (i *Item) SetWeaponEffectID(id *int) {
	i.weaponEffectID = id
}

// WeaponEffectID returns the weapon unusual effect id, or nil.
func (i *Item) WeaponEffectID() *int {
	return i.weaponEffectID
}

// WeaponEffectSystem assembles the particle system name for the applied
// weapon unusual effect. Items without a particle suffix cannot carry
// weapon effects.
func (i *Item) WeaponEffectSystem() (string, bool) {
	if i.weaponEffectID == nil {
		return "", false
	}
	suffix := i.template.Def.ParticleSuffix
	if suffix == "" {
		return "", false
	}
	return registry.WeaponEffectSystem(*i.weaponEffectID, suffix)
}

// SetWarpaintID sets the warpaint, nil removes it. It reports whether
// the value changed.
func (i *Item) SetWarpaintID(id *int) bool {
	if equalIntPtr(i.warpaintID, id) {
		return false
	}
	i.warpaintID = id
	return true
}

// WarpaintID returns the applied warpaint id, or nil.
func (i *Item) WarpaintID() *int {
	return i.warpaintID
}

// SetWarpaintWear sets the wear float. It reports whether the value
// changed.
func (i *Item) SetWarpaintWear(wear float64) bool {
	if i.warpaintWear == wear {
		return false
	}
	i.warpaintWear = wear
	return true
}

// WarpaintWear returns the wear float.
func (i *Item) WarpaintWear() float64 {
	return i.warpaintWear
}

// SetWarpaintSeed sets the pattern seed. It reports whether the value
// changed.
func (i *Item) SetWarpaintSeed(seed uint64) bool {
	if i.warpaintSeed == seed {
		return false
	}
	i.warpaintSeed = seed
	return true
}

// WarpaintSeed returns the pattern seed.
func (i *Item) WarpaintSeed() uint64 {
	return i.warpaintSeed
}

// SetWarpaint applies id, wear and seed in one step. It reports whether
// anything changed.
func (i *Item) SetWarpaint(id int, wear float64, seed uint64) bool {
	changed := i.SetWarpaintID(&id)
	changed = i.SetWarpaintWear(wear) || changed
	changed = i.SetWarpaintSeed(seed) || changed
	return changed
}

// SetTextureSize raises the warpaint texture resolution. Lowering it is
// refused so a high resolution compose is never thrown away.
func (i *Item) SetTextureSize(size int) bool {
	if size <= i.textureSize {
		return false
	}
	i.textureSize = size
	return true
}

// TextureSize returns the requested warpaint texture resolution, zero
// means the compositor default.
func (i *Item) TextureSize() int {
	return i.textureSize
}

// WarpaintParams returns the compositor parameters. Warpaints do not
// compose while a material override is active or when the template is
// not warpaintable.
func (i *Item) WarpaintParams() (WarpaintParams, bool) {
	if i.warpaintID == nil || !i.template.IsWarpaintable() {
		return WarpaintParams{}, false
	}
	if _, overridden := i.MaterialOverride(); overridden {
		return WarpaintParams{}, false
	}
	return WarpaintParams{
		ItemID:      i.ID,
		WarpaintID:  *i.warpaintID,
		Wear:        i.warpaintWear,
		Seed:        i.warpaintSeed,
		Team:        i.team,
		TextureSize: i.textureSize,
	}, true
}

// Repository returns the content repository models and materials load
// from.
func (i *Item) Repository() string {
	if r := i.template.Def.Repository; r != "" {
		return r
	}
	return "tf2"
}

// IsTaunt reports whether the item is a taunt.
func (i *Item) IsTaunt() bool {
	return i.template.IsTaunt()
}

// TauntAttackName returns the taunt attack hook name, or "".
func (i *Item) TauntAttackName() string {
	return i.template.Def.TauntAttackName
}

// IsConflicting reports whether the two items occupy conflicting equip
// regions.
func (i *Item) IsConflicting(other *Item) bool {
	return filter.HasConflict(i.EquipRegions(), other.EquipRegions())
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
