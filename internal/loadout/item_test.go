package loadout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/registry"
)

func weaponTemplate(id string) *registry.ItemTemplate {
	return registry.NewItemTemplate(id, registry.ItemDefinition{
		Name:           "Scattergun",
		ModelPlayer:    "models/weapons/w_scattergun.mdl",
		ItemSlot:       "primary",
		SkinRed:        "0",
		SkinBlu:        "1",
		PaintkitBase:   "1",
		ParticleSuffix: "scattergun",
		UsedByClasses:  map[string]registry.FlexString{"scout": "1"},
	})
}

func hatTemplate(id, name string, regions ...string) *registry.ItemTemplate {
	return registry.NewItemTemplate(id, registry.ItemDefinition{
		Name:         name,
		ModelPlayer:  "models/player/items/all_class/hat.mdl",
		ItemSlot:     "misc",
		Paintable:    "1",
		EquipRegions: regions,
	})
}

func detachedItem(template *registry.ItemTemplate) *Item {
	return newItem(template, nil)
}

func TestItemSkinFollowsTeam(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))

	item.SetTeam(model.TeamRed)
	assert.Equal(t, 0, item.Skin())

	item.SetTeam(model.TeamBlu)
	assert.Equal(t, 1, item.Skin())
}

func TestItemTintPrefersPaint(t *testing.T) {
	template := registry.NewItemTemplate("30365", registry.ItemDefinition{
		Name:            "Hat",
		SetItemTintRGB:  "8208497",
		SetItemTintRGB2: "2960676",
	})
	item := detachedItem(template)
	item.SetTeam(model.TeamRed)

	tint, ok := item.Tint()
	require.True(t, ok)
	assert.Equal(t, model.ColorToTint(8208497), tint)

	item.SetPaint(12073019) // Team Spirit
	tint, ok = item.Tint()
	require.True(t, ok)
	assert.Equal(t, model.ColorToTint(12073019), tint)

	item.SetTeam(model.TeamBlu)
	tint, _ = item.Tint()
	assert.Equal(t, model.ColorToTint(5801378), tint, "team paints follow the team")

	item.ClearPaint()
	tint, ok = item.Tint()
	require.True(t, ok)
	assert.Equal(t, model.ColorToTint(2960676), tint)
}

func TestItemUnknownPaintClears(t *testing.T) {
	item := detachedItem(hatTemplate("1", "Hat"))
	item.SetPaint(12073019)
	require.NotNil(t, item.Paint())

	item.SetPaint(-1)
	assert.Nil(t, item.Paint())
}

func TestMaterialOverridePrecedence(t *testing.T) {
	character := NewCharacter(model.ClassScout, nil, nil, nil)
	template := registry.NewItemTemplate("266", registry.ItemDefinition{
		Name:             "Horseless Headless Horsemann's Headtaker",
		MaterialOverride: "models/weapons/c_items/c_hhh_axe.vmt",
	})
	item := character.AddItem(template)

	override, ok := item.MaterialOverride()
	require.True(t, ok)
	assert.Equal(t, "models/weapons/c_items/c_hhh_axe.vmt", override)

	character.SetInvulnerable(true)
	override, _ = item.MaterialOverride()
	assert.Equal(t, MaterialInvulnRed, override)

	character.SetTeam(model.TeamBlu)
	override, _ = item.MaterialOverride()
	assert.Equal(t, MaterialInvulnBlu, override)

	character.SetRagdoll(RagdollGold)
	override, _ = item.MaterialOverride()
	assert.Equal(t, MaterialGoldRagdoll, override, "ragdoll wins over invulnerability")

	character.SetRagdoll(RagdollIce)
	override, _ = item.MaterialOverride()
	assert.Equal(t, MaterialIceRagdoll, override)
}

func TestWarpaintParams(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))
	item.SetTeam(model.TeamBlu)

	_, ok := item.WarpaintParams()
	assert.False(t, ok, "no warpaint applied")

	assert.True(t, item.SetWarpaint(290, 0.4, 42))
	item.SetTextureSize(2048)

	params, ok := item.WarpaintParams()
	require.True(t, ok)
	assert.Equal(t, WarpaintParams{
		ItemID:      "200",
		WarpaintID:  290,
		Wear:        0.4,
		Seed:        42,
		Team:        model.TeamBlu,
		TextureSize: 2048,
	}, params)
}

func TestWarpaintParamsSuppressedByMaterialOverride(t *testing.T) {
	character := NewCharacter(model.ClassScout, nil, nil, nil)
	item := character.AddItem(weaponTemplate("200"))
	item.SetWarpaint(290, 0.2, 1)

	_, ok := item.WarpaintParams()
	require.True(t, ok)

	character.SetRagdoll(RagdollGold)
	_, ok = item.WarpaintParams()
	assert.False(t, ok)
}

func TestWarpaintParamsRequireWarpaintableTemplate(t *testing.T) {
	item := detachedItem(hatTemplate("30365", "Law"))
	item.SetWarpaint(290, 0.2, 1)

	_, ok := item.WarpaintParams()
	assert.False(t, ok)
}

func TestWarpaintSettersReportChanges(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))

	id := 290
	assert.True(t, item.SetWarpaintID(&id))
	assert.False(t, item.SetWarpaintID(&id), "same value is a no-op")
	assert.True(t, item.SetWarpaintWear(0.6))
	assert.False(t, item.SetWarpaintWear(0.6))
	assert.True(t, item.SetWarpaintSeed(7))
	assert.False(t, item.SetWarpaint(290, 0.6, 7))
	assert.True(t, item.SetWarpaintID(nil))
}

func TestTextureSizeOnlyRaises(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))

	assert.True(t, item.SetTextureSize(1024))
	assert.False(t, item.SetTextureSize(256))
	assert.Equal(t, 1024, item.TextureSize())
}

func TestCritBoostEffect(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))

	_, _, ok := item.CritBoostEffect()
	assert.False(t, ok)

	item.ToggleCritBoost()
	system, glow, ok := item.CritBoostEffect()
	require.True(t, ok)
	assert.Equal(t, "critgun_weaponmodel_red", system)
	assert.Equal(t, [3]float64{80, 8, 5}, glow)

	item.SetTeam(model.TeamBlu)
	system, glow, _ = item.CritBoostEffect()
	assert.Equal(t, "critgun_weaponmodel_blu", system)
	assert.Equal(t, [3]float64{5, 20, 80}, glow)

	item.ToggleCritBoost()
	assert.False(t, item.IsCritBoosted())
}

func TestStattrakModule(t *testing.T) {
	template := registry.NewItemTemplate("200", registry.ItemDefinition{
		Name:                      "Scattergun",
		SkinRed:                   "2",
		SkinBlu:                   "3",
		WeaponUsesStattrakModule:  "models/weapons/c_models/stattrack.mdl",
		WeaponStattrakModuleScale: "0.8",
	})
	item := detachedItem(template)
	item.SetTeam(model.TeamBlu)

	path, ok := item.StattrakModule()
	require.True(t, ok)
	assert.Equal(t, "models/weapons/c_models/stattrack.mdl", path)
	assert.InDelta(t, 0.8, item.StattrakScale(), 1e-9)

	assert.False(t, item.StattrakVisible())
	count := 8001
	item.SetKillCount(&count)
	assert.True(t, item.StattrakVisible())

	assert.Equal(t, 3, item.Skin())
	assert.Equal(t, 1, item.StattrakSkin(), "module skins wrap to red/blu")
}

func TestWeaponEffectSystem(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))

	_, ok := item.WeaponEffectSystem()
	assert.False(t, ok)

	effect := 702
	item.SetWeaponEffectID(&effect)
	system, ok := item.WeaponEffectSystem()
	require.True(t, ok)
	assert.Equal(t, "weapon_unusual_isotope_scattergun", system)

	unknown := 9999
	item.SetWeaponEffectID(&unknown)
	_, ok = item.WeaponEffectSystem()
	assert.False(t, ok)
}

func TestSheenTint(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))

	_, ok := item.SheenTint()
	assert.False(t, ok)

	item.SetSheen(model.KillstreakTeamShine)
	tint, ok := item.SheenTint()
	require.True(t, ok)
	assert.Equal(t, model.ColorToTint(13112335), tint)

	item.SetTeam(model.TeamBlu)
	tint, _ = item.SheenTint()
	assert.Equal(t, model.ColorToTint(2646728), tint)
}

func TestFestivizerModel(t *testing.T) {
	template := registry.NewItemTemplate("200", registry.ItemDefinition{
		Name:                  "Scattergun",
		AttachedModelsFestive: "models/weapons/c_models/c_scattergun/c_scattergun_festivizer.mdl",
	})
	item := detachedItem(template)

	_, ok := item.FestivizerModel()
	assert.False(t, ok)

	item.SetShowFestivizer(true)
	path, ok := item.FestivizerModel()
	require.True(t, ok)
	assert.Contains(t, path, "festivizer")

	item.ToggleFestivizer()
	_, ok = item.FestivizerModel()
	assert.False(t, ok)
}

func TestItemConflicts(t *testing.T) {
	hat := detachedItem(hatTemplate("1", "Hat One", "hat"))
	wholeHead := detachedItem(hatTemplate("2", "Big Mask", "whole_head"))
	glasses := detachedItem(hatTemplate("3", "Glasses", "glasses"))

	assert.True(t, hat.IsConflicting(wholeHead))
	assert.False(t, hat.IsConflicting(glasses))
}

func TestItemRepository(t *testing.T) {
	item := detachedItem(weaponTemplate("200"))
	assert.Equal(t, "tf2", item.Repository())

	workshop := detachedItem(registry.NewItemTemplate("w123", registry.ItemDefinition{
		Name:       "Workshop Hat",
		Repository: "tf2_workshop_123",
	}))
	assert.Equal(t, "tf2_workshop_123", workshop.Repository())
}
