package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/loadout-tf/extension/internal/model"
)

// FlexString decodes schema values that arrive as strings, numbers or
// booleans. The upstream schema is not consistent about this, and
// workshop entries use raw numbers where the item schema uses strings.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

// Bool reports whether the value is the schema truthy "1" or "true".
func (f FlexString) Bool() bool {
	return f == "1" || f == "true"
}

// Int returns the numeric value, or 0 when unset or unparsable.
func (f FlexString) Int() int {
	n, _ := strconv.Atoi(string(f))
	return n
}

// Float returns the numeric value, or the fallback when unset.
func (f FlexString) Float(fallback float64) float64 {
	if f == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return fallback
	}
	return v
}

// ItemDefinition is the typed form of one schema item entry.
type ItemDefinition struct {
	Name           string                `json:"name"`
	UsedByClasses  map[string]FlexString `json:"used_by_classes"`
	ImageInventory string                `json:"image_inventory"`
	Repository     string                `json:"repository"`
	CreatorID64    string                `json:"creatorid64"`

	ModelPlayer             string            `json:"model_player"`
	ModelPlayerPerClass     map[string]string `json:"model_player_per_class"`
	ModelPlayerPerClassBlue map[string]string `json:"model_player_per_class_blue"`
	CustomTauntPropPerClass map[string]string `json:"custom_taunt_prop_per_class"`
	SkinRed                 FlexString        `json:"skin_red"`
	SkinBlu                 FlexString        `json:"skin_blu"`
	PlayerBodygroups        map[string]string `json:"player_bodygroups"`
	WmBodygroupOverride     map[string]string `json:"wm_bodygroup_override"`
	ExtraWearable           string            `json:"extra_wearable"`
	AttachedModels          string            `json:"attached_models"`
	AttachedModelsFestive   string            `json:"attached_models_festive"`
	MaterialOverride        string            `json:"material_override"`

	AnimSlot                  string     `json:"anim_slot"`
	ItemSlot                  string     `json:"item_slot"`
	WeaponUsesStattrakModule  FlexString `json:"weapon_uses_stattrak_module"`
	WeaponStattrakModuleScale FlexString `json:"weapon_stattrak_module_scale"`

	ParticleSuffix            string            `json:"particle_suffix"`
	SetItemTintRGB            FlexString        `json:"set_item_tint_rgb"`
	SetItemTintRGB2           FlexString        `json:"set_item_tint_rgb_2"`
	UseSmokeParticleEffect    FlexString        `json:"use_smoke_particle_effect"`
	SetAttachedParticleStatic FlexString        `json:"set_attached_particle_static"`
	AttachedParticleSystems   map[string]string `json:"attached_particlesystems"`

	CustomTauntScenePerClass          map[string]json.RawMessage `json:"custom_taunt_scene_per_class"`
	CustomTauntOutroScenePerClass     map[string]string          `json:"custom_taunt_outro_scene_per_class"`
	CustomTauntPropScenePerClass      map[string]json.RawMessage `json:"custom_taunt_prop_scene_per_class"`
	CustomTauntPropOutroScenePerClass map[string]string          `json:"custom_taunt_prop_outro_scene_per_class"`
	TauntAttackName                   string                     `json:"taunt_attack_name"`
	TauntSuccessSoundLoop             string                     `json:"taunt_success_sound_loop"`

	EquipRegions          []string   `json:"equip_regions"`
	IsWorkshop            bool       `json:"is_workshop"`
	IsTournamentMedal     bool       `json:"is_tournament_medal"`
	Paintable             FlexString `json:"paintable"`
	PaintkitBase          FlexString `json:"paintkit_base"`
	PaintkitProtoDefIndex FlexString `json:"paintkit_proto_def_index"`
	HolidayRestriction    string     `json:"holiday_restriction"`
	ItemTypeName          string     `json:"item_type_name"`
	Collection            string     `json:"collection"`
	Grade                 string     `json:"grade"`
	Hide                  FlexString `json:"hide"`
	CanCustomizeTexture   FlexString `json:"can_customize_texture"`
	IsTauntItem           FlexString `json:"is_taunt_item"`
}

// Warpaint is warpaint metadata attached to a weapon template.
type Warpaint struct {
	Weapon string
	Title  string
}

// ItemTemplate is an immutable item schema entry plus the derived
// search keywords and warpaint metadata attached after load.
type ItemTemplate struct {
	ID  string
	Def ItemDefinition

	keywords  map[string]struct{}
	warpaints map[string]Warpaint
}

// NewItemTemplate builds a template from a parsed definition.
func NewItemTemplate(id string, def ItemDefinition) *ItemTemplate {
	return &ItemTemplate{
		ID:        id,
		Def:       def,
		keywords:  make(map[string]struct{}),
		warpaints: make(map[string]Warpaint),
	}
}

func (t *ItemTemplate) Name() string {
	return t.Def.Name
}

// UsedByClass reports whether the template can be equipped by the class.
// Templates without a used_by_classes entry are usable by nobody, and
// classes without a schema name are allowed through.
func (t *ItemTemplate) UsedByClass(class model.CharacterClass) bool {
	if t.Def.UsedByClasses == nil {
		return false
	}
	name := class.Name()
	if name == "" {
		return true
	}
	return t.Def.UsedByClasses[name] != ""
}

// ClassCount returns the number of classes listed in used_by_classes.
func (t *ItemTemplate) ClassCount() int {
	return len(t.Def.UsedByClasses)
}

// convertDemo maps the schema class name to the model path token.
func convertDemo(npc string) string {
	if npc == "demoman" {
		return "demo"
	}
	return npc
}

// Model resolves the model path for the given npc identifier, walking
// the per-class map, the %s basename substitution, the shared
// model_player, taunt props, and finally any per-class entry at all.
func (t *ItemTemplate) Model(npc string) (string, bool) {
	npc = strings.TrimPrefix(npc, "bot_")

	if perClass := t.Def.ModelPlayerPerClass; perClass != nil {
		if p, ok := perClass[npc]; ok && p != "" {
			return p, true
		}

		if basename, ok := perClass["basename"]; ok && basename != "" {
			if used := t.Def.UsedByClasses; len(used) > 0 {
				if used[npc] == "1" {
					return strings.ReplaceAll(basename, "%s", convertDemo(npc)), true
				}
				return strings.ReplaceAll(basename, "%s", convertDemo(firstKey(used))), true
			}
		}
	}

	if t.Def.ModelPlayer != "" {
		return t.Def.ModelPlayer, true
	}

	if p, ok := t.Def.CustomTauntPropPerClass[npc]; ok && p != "" {
		return p, true
	}

	if perClass := t.Def.ModelPlayerPerClass; len(perClass) > 0 {
		if p := perClass[firstKey(perClass)]; p != "" {
			return p, true
		}
	}
	return "", false
}

// firstKey returns the smallest key, standing in for first insertion
// order which maps do not preserve.
func firstKey[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// ModelBlue resolves the blu-team model variant, if any.
func (t *ItemTemplate) ModelBlue(npc string) (string, bool) {
	p, ok := t.Def.ModelPlayerPerClassBlue[npc]
	return p, ok && p != ""
}

// RedSkin returns the red team skin index, defaulting to 0.
func (t *ItemTemplate) RedSkin() int {
	return t.Def.SkinRed.Int()
}

// BluSkin returns the blu team skin index, defaulting to 1.
func (t *ItemTemplate) BluSkin() int {
	if t.Def.SkinBlu == "" {
		return 1
	}
	return t.Def.SkinBlu.Int()
}

// Skin returns the skin index for a team.
func (t *ItemTemplate) Skin(team model.Team) int {
	if team == model.TeamBlu {
		return t.BluSkin()
	}
	return t.RedSkin()
}

// ItemSlot returns the schema item slot, or "" when absent.
func (t *ItemTemplate) ItemSlot() string {
	return t.Def.ItemSlot
}

// ItemSlotPerClass returns the slot for a class. Multi-class weapons can
// sit in different slots per class, recorded in used_by_classes.
func (t *ItemTemplate) ItemSlotPerClass(name string) string {
	if slot, ok := t.Def.UsedByClasses[name]; ok {
		if slot == "primary" || slot == "secondary" {
			return string(slot)
		}
	}
	return t.Def.ItemSlot
}

// TintRGB returns the item tint for the team. The blu tint falls back
// to the red one when absent. ok is false when the template has none.
func (t *ItemTemplate) TintRGB(team model.Team) (model.Tint, bool) {
	v := t.Def.SetItemTintRGB
	if team == model.TeamBlu && t.Def.SetItemTintRGB2 != "" {
		v = t.Def.SetItemTintRGB2
	}
	if v == "" {
		return model.Tint{}, false
	}
	return model.ColorToTint(v.Int()), true
}

// StaticAttachedParticle returns the effect id of the template's
// built-in particle. Smoke effects are deliberately suppressed.
func (t *ItemTemplate) StaticAttachedParticle() (int, bool) {
	if t.Def.UseSmokeParticleEffect == "0" {
		return 0, false
	}
	if t.Def.SetAttachedParticleStatic == "" {
		return 0, false
	}
	return t.Def.SetAttachedParticleStatic.Int(), true
}

func (t *ItemTemplate) IsWorkshop() bool {
	return t.Def.IsWorkshop
}

func (t *ItemTemplate) IsTournamentMedal() bool {
	return t.Def.IsTournamentMedal
}

func (t *ItemTemplate) IsPaintable() bool {
	return t.Def.Paintable.Bool()
}

func (t *ItemTemplate) IsWarpaintable() bool {
	return t.Def.PaintkitBase.Bool()
}

func (t *ItemTemplate) IsHalloweenRestricted() bool {
	return t.Def.HolidayRestriction == "halloween_or_fullmoon"
}

func (t *ItemTemplate) IsTaunt() bool {
	return t.Def.IsTauntItem.Bool()
}

func (t *ItemTemplate) IsHidden() bool {
	return t.Def.Hide.Bool()
}

func (t *ItemTemplate) CanCustomizeTexture() bool {
	return t.Def.CanCustomizeTexture.Bool()
}

// IsMedal reports whether the item type marks the template as a medal.
func (t *ItemTemplate) IsMedal() bool {
	switch t.Def.ItemTypeName {
	case "Community Medal", "Tournament Medal", "Badge", "Medallion", "Func_Medal":
		return true
	}
	return false
}

// PaintkitProtoDefIndex returns the warpaint definition index baked
// into the schema entry, when present.
func (t *ItemTemplate) PaintkitProtoDefIndex() (int, bool) {
	if t.Def.PaintkitProtoDefIndex == "" {
		return 0, false
	}
	return t.Def.PaintkitProtoDefIndex.Int(), true
}

// AddKeyword indexes a lowercase search keyword.
func (t *ItemTemplate) AddKeyword(keyword string) {
	t.keywords[strings.ToLower(keyword)] = struct{}{}
}

// HasKeyword reports whether any indexed keyword contains the search term.
func (t *ItemTemplate) HasKeyword(search string) bool {
	for keyword := range t.keywords {
		if strings.Contains(keyword, search) {
			return true
		}
	}
	return false
}

// AddWarpaint attaches warpaint metadata to the template.
func (t *ItemTemplate) AddWarpaint(id, weapon, title string) {
	t.warpaints[id] = Warpaint{Weapon: weapon, Title: title}
}

// Warpaints returns a copy of the attached warpaint metadata.
func (t *ItemTemplate) Warpaints() map[string]Warpaint {
	out := make(map[string]Warpaint, len(t.warpaints))
	for id, w := range t.warpaints {
		out[id] = w
	}
	return out
}

// MergeWorkshopMetadata folds the per-item workshop manifest into the
// definition. Only the model keys are trusted from the manifest.
func (t *ItemTemplate) MergeWorkshopMetadata(repository, modelPlayer string, perClass, bodygroups map[string]string) {
	t.Def.Repository = repository
	if modelPlayer != "" {
		t.Def.ModelPlayer = modelPlayer
	}
	if len(perClass) > 0 {
		t.Def.ModelPlayerPerClass = perClass
	}
	if len(bodygroups) > 0 {
		t.Def.PlayerBodygroups = bodygroups
	}
}

// StattrakScale parses the stattrak module scale, defaulting to 1.
func (t *ItemTemplate) StattrakScale() float64 {
	return t.Def.WeaponStattrakModuleScale.Float(1)
}

// TauntScene picks the taunt scene for an npc. Scenes can be a plain
// string or an object of variants; the first variant is used.
func (t *ItemTemplate) TauntScene(npc string) (string, bool) {
	return sceneFor(t.Def.CustomTauntScenePerClass, npc)
}

// TauntPropScene picks the taunt prop scene for an npc.
func (t *ItemTemplate) TauntPropScene(npc string) (string, bool) {
	return sceneFor(t.Def.CustomTauntPropScenePerClass, npc)
}

// TauntOutroScene returns the outro scene for an npc.
func (t *ItemTemplate) TauntOutroScene(npc string) (string, bool) {
	s, ok := t.Def.CustomTauntOutroScenePerClass[npc]
	return s, ok && s != ""
}

// TauntPropOutroScene returns the prop outro scene for an npc.
func (t *ItemTemplate) TauntPropOutroScene(npc string) (string, bool) {
	s, ok := t.Def.CustomTauntPropOutroScenePerClass[npc]
	return s, ok && s != ""
}

func sceneFor(scenes map[string]json.RawMessage, npc string) (string, bool) {
	raw, ok := scenes[npc]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var variants map[string]string
	if err := json.Unmarshal(raw, &variants); err == nil {
		for _, v := range variants {
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// syntheticPaintkitTool builds the template substituted for legacy
// warpaint definition indexes that have no schema entry of their own.
func syntheticPaintkitTool(defIndex int) *ItemTemplate {
	proto := defIndex - 16000
	if defIndex >= 17000 {
		proto = defIndex - 17000
	}

	used := make(map[string]FlexString, 9)
	for _, name := range []string{"demoman", "engineer", "heavy", "medic", "pyro", "scout", "sniper", "soldier", "spy"} {
		used[name] = "1"
	}

	return NewItemTemplate(strconv.Itoa(defIndex), ItemDefinition{
		ModelPlayer:           "models/items/paintkit_tool.mdl",
		PaintkitBase:          "1",
		PaintkitProtoDefIndex: FlexString(fmt.Sprintf("%d", proto)),
		UsedByClasses:         used,
	})
}
