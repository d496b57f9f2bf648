package loadout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-tf/extension/internal/dispatcher"
	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/preset"
	"github.com/loadout-tf/extension/internal/registry"
)

type fakeTemplates struct {
	items   map[string]*registry.ItemTemplate
	effects map[registry.EffectType]map[int]*registry.EffectTemplate
}

func newFakeTemplates(templates ...*registry.ItemTemplate) *fakeTemplates {
	f := &fakeTemplates{
		items:   map[string]*registry.ItemTemplate{},
		effects: map[registry.EffectType]map[int]*registry.EffectTemplate{},
	}
	for _, t := range templates {
		f.items[t.ID] = t
	}
	return f
}

func (f *fakeTemplates) addEffect(e *registry.EffectTemplate) {
	if f.effects[e.Type] == nil {
		f.effects[e.Type] = map[int]*registry.EffectTemplate{}
	}
	f.effects[e.Type][e.ID] = e
}

func (f *fakeTemplates) Template(id string) (*registry.ItemTemplate, bool) {
	t, ok := f.items[id]
	return t, ok
}

func (f *fakeTemplates) Effect(typ registry.EffectType, id int) (*registry.EffectTemplate, bool) {
	e, ok := f.effects[typ][id]
	return e, ok
}

type recordedEvent struct {
	name    string
	payload any
}

type recordingEmitter struct {
	events []recordedEvent
}

func (r *recordingEmitter) Emit(name string, payload any) {
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
}

func (r *recordingEmitter) names() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

// fakeChoreographer records played scenes. Completion callbacks are
// held until finish is called, mirroring a deferred outro.
type fakeChoreographer struct {
	played  []string
	pending []func()
	refuse  bool
	stops   int
}

func (f *fakeChoreographer) Play(scene, actor string, done func()) bool {
	if f.refuse {
		return false
	}
	f.played = append(f.played, scene)
	if done != nil {
		f.pending = append(f.pending, done)
	}
	return true
}

func (f *fakeChoreographer) StopAll() {
	f.stops++
}

func (f *fakeChoreographer) finish() {
	for _, done := range f.pending {
		done()
	}
	f.pending = nil
}

func tauntTemplate(id string) *registry.ItemTemplate {
	return registry.NewItemTemplate(id, registry.ItemDefinition{
		Name:        "Taunt: The Schadenfreude",
		IsTauntItem: "1",
		ItemSlot:    "taunt",
		CustomTauntScenePerClass: map[string]json.RawMessage{
			"scout": json.RawMessage(`"scenes/player/scout/low/taunt_laugh.vcd"`),
		},
		CustomTauntOutroScenePerClass: map[string]string{
			"scout": "scenes/player/scout/low/taunt_laugh_outro.vcd",
		},
	})
}

func TestToggleItem(t *testing.T) {
	events := &recordingEmitter{}
	c := NewCharacter(model.ClassScout, nil, events, nil)
	template := hatTemplate("30365", "Law", "hat")

	item, equipped := c.ToggleItem(template)
	require.True(t, equipped)
	assert.Equal(t, "30365", item.ID)
	assert.Len(t, c.Items(), 1)

	again, equipped := c.ToggleItem(template)
	assert.False(t, equipped)
	assert.Same(t, item, again)
	assert.Empty(t, c.Items())

	assert.Equal(t, []string{dispatcher.EventItemAdded, dispatcher.EventItemRemoved}, events.names())
}

func TestAddItemReturnsExisting(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)
	template := hatTemplate("30365", "Law", "hat")

	first := c.AddItem(template)
	second := c.AddItem(template)
	assert.Same(t, first, second)
	assert.Len(t, c.Items(), 1)
}

func TestItemsInheritTeam(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)
	c.SetTeam(model.TeamBlu)

	item := c.AddItem(weaponTemplate("200"))
	assert.Equal(t, model.TeamBlu, item.Team())

	c.SetTeam(model.TeamRed)
	assert.Equal(t, model.TeamRed, item.Team())
}

func TestTauntReplacement(t *testing.T) {
	choreo := &fakeChoreographer{}
	c := NewCharacter(model.ClassScout, nil, nil, choreo)

	first := c.AddItem(tauntTemplate("1182"))
	require.True(t, first.IsTaunt())
	assert.Contains(t, choreo.played, "scenes/player/scout/low/taunt_laugh.vcd")

	c.AddItem(tauntTemplate("30570"))
	assert.Len(t, c.Items(), 1, "a new taunt replaces the old one")
	assert.Equal(t, "30570", c.Items()[0].ID)
}

func TestTauntOutroDefersRemoval(t *testing.T) {
	choreo := &fakeChoreographer{}
	c := NewCharacter(model.ClassScout, nil, nil, choreo)

	c.AddItem(tauntTemplate("1182"))
	require.True(t, c.RemoveItem("1182"))

	assert.Contains(t, choreo.played, "scenes/player/scout/low/taunt_laugh_outro.vcd")
	assert.Empty(t, c.Items(), "the item leaves the loadout immediately")
	assert.Len(t, c.RetiringItems(), 1, "the model stays alive through the outro")

	choreo.finish()
	assert.Empty(t, c.RetiringItems())
}

func TestTauntOutroRefusedRemovesImmediately(t *testing.T) {
	choreo := &fakeChoreographer{}
	c := NewCharacter(model.ClassScout, nil, nil, choreo)
	c.AddItem(tauntTemplate("1182"))

	choreo.refuse = true
	require.True(t, c.RemoveItem("1182"))
	assert.Empty(t, c.Items())
	assert.Empty(t, c.RetiringItems())
}

func TestTauntAttackEffect(t *testing.T) {
	c := NewCharacter(model.ClassMedic, nil, nil, nil)
	template := registry.NewItemTemplate("1015", registry.ItemDefinition{
		Name:            "The Meet the Medic",
		IsTauntItem:     "1",
		TauntAttackName: "TAUNTATK_MEDIC_HEROIC_TAUNT",
	})

	c.AddItem(template)

	effects := c.Effects()
	require.Len(t, effects, 1)
	assert.Equal(t, "god_rays", effects[0].System)
}

func TestZombieSkin(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)
	assert.Equal(t, 0, c.SkinIndex())

	soul := registry.NewItemTemplate("5617", registry.ItemDefinition{Name: "Voodoo-Cursed Scout Soul"})
	c.AddItem(soul)
	assert.True(t, c.IsZombie())
	assert.Equal(t, 4, c.SkinIndex())

	c.SetTeam(model.TeamBlu)
	c.SetInvulnerable(true)
	assert.Equal(t, 1+4+2, c.SkinIndex())

	c.RemoveItem("5617")
	assert.False(t, c.IsZombie())
}

func TestZombieSkinSpyOffset(t *testing.T) {
	c := NewCharacter(model.ClassSpy, nil, nil, nil)
	c.AddItem(registry.NewItemTemplate("5622", registry.ItemDefinition{Name: "Voodoo-Cursed Spy Soul"}))
	assert.Equal(t, 22, c.SkinIndex())
}

func TestCharacterMaterialOverride(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)

	_, ok := c.MaterialOverride()
	assert.False(t, ok)

	c.SetRagdoll(RagdollGold)
	override, ok := c.MaterialOverride()
	require.True(t, ok)
	assert.Equal(t, MaterialGoldRagdoll, override)
}

func TestKillstreakEyes(t *testing.T) {
	template := &registry.EffectTemplate{
		ID:   2003,
		Type: registry.EffectKillstreakEyeglow,
		Def:  registry.EffectDefinition{Name: "Killstreak effect", System: "killstreak_t0_lvl1"},
	}

	c := NewCharacter(model.ClassScout, nil, nil, nil)
	pair := c.SetKillstreakEffect(template, model.KillstreakHotrod)
	require.NotNil(t, pair[EyeRight])
	require.NotNil(t, pair[EyeLeft])
	assert.Equal(t, "eyeglow_R", pair[EyeRight].Attachment)
	assert.Equal(t, "eyeglow_L", pair[EyeLeft].Attachment)
	assert.Equal(t, model.KillstreakHotrod, c.KillstreakColor())

	tint, ok := pair[EyeRight].ControlPointTint(model.TeamRed)
	require.True(t, ok)
	assert.Equal(t, model.ColorToTint(16719615), tint)

	cleared := c.SetKillstreakEffect(nil, model.KillstreakNone)
	assert.Nil(t, cleared[EyeRight])
	assert.Nil(t, cleared[EyeLeft])
}

func TestKillstreakEyesDemomanHasNoLeftEye(t *testing.T) {
	template := &registry.EffectTemplate{
		ID:   2004,
		Type: registry.EffectKillstreakEyeglow,
		Def:  registry.EffectDefinition{Name: "Killstreak effect", System: "killstreak_t0_lvl2"},
	}

	c := NewCharacter(model.ClassDemoman, nil, nil, nil)
	pair := c.SetKillstreakEffect(template, model.KillstreakMeanGreen)
	assert.NotNil(t, pair[EyeRight])
	assert.Nil(t, pair[EyeLeft])
}

func TestDecapitationGlow(t *testing.T) {
	c := NewCharacter(model.ClassDemoman, nil, nil, nil)

	pair := c.SetDecapitationLevel(3)
	assert.Nil(t, pair[EyeRight], "the eyelander glow sits in the demoman's left eye")
	require.NotNil(t, pair[EyeLeft])
	assert.Equal(t, "eye_powerup_green_lvl_3", pair[EyeLeft].System)
	assert.Equal(t, 3, c.DecapitationLevel())

	pair = c.SetDecapitationLevel(0)
	assert.Nil(t, pair[EyeLeft])
}

func TestSetTeamSwapsEffectSystems(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)
	effect := c.AddEffect(&registry.EffectTemplate{
		ID:   3041,
		Type: registry.EffectCosmeticUnusual,
		Def:  registry.EffectDefinition{Name: "Spellbound", System: "unusual_spellbound_aura_teamcolor_red"},
	})
	assert.Equal(t, attachmentHead, effect.Attachment)

	c.SetTeam(model.TeamBlu)
	assert.Equal(t, "unusual_spellbound_aura_teamcolor_blue", effect.System)

	c.SetTeam(model.TeamRed)
	assert.Equal(t, "unusual_spellbound_aura_teamcolor_red", effect.System)
}

func TestAnimationName(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)
	assert.Equal(t, "stand_secondary", c.AnimationName())

	c.AddItem(weaponTemplate("200"))
	assert.Equal(t, "stand_primary", c.AnimationName())

	c.SetPose("crouch")
	assert.Equal(t, "crouch_primary", c.AnimationName())

	c.SetUserAnim("taunt_laugh")
	assert.Equal(t, "taunt_laugh", c.AnimationName())
	c.SetUserAnim("")
	assert.Equal(t, "crouch_primary", c.AnimationName())
}

func TestAnimationNameAnimSlots(t *testing.T) {
	tests := []struct {
		name string
		def  registry.ItemDefinition
		want string
	}{
		{
			name: "forced sequence",
			def:  registry.ItemDefinition{Name: "A", ItemSlot: "melee", AnimSlot: "!taunt_russian"},
			want: "taunt_russian",
		},
		{
			name: "primary2 maps to primary",
			def:  registry.ItemDefinition{Name: "B", ItemSlot: "secondary", AnimSlot: "PRIMARY2"},
			want: "stand_primary",
		},
		{
			name: "plain anim slot",
			def:  registry.ItemDefinition{Name: "C", ItemSlot: "melee", AnimSlot: "melee_allclass"},
			want: "stand_melee_allclass",
		},
		{
			name: "force_not_used keeps default",
			def:  registry.ItemDefinition{Name: "D", ItemSlot: "melee", AnimSlot: "force_not_used"},
			want: "stand_secondary",
		},
		{
			name: "building slot maps to sapper",
			def:  registry.ItemDefinition{Name: "E", ItemSlot: "building"},
			want: "stand_sapper",
		},
		{
			name: "force_building maps to building",
			def:  registry.ItemDefinition{Name: "F", ItemSlot: "force_building"},
			want: "stand_building",
		},
		{
			name: "action slot keeps default",
			def:  registry.ItemDefinition{Name: "G", ItemSlot: "action", AnimSlot: "melee"},
			want: "stand_secondary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCharacter(model.ClassScout, nil, nil, nil)
			c.AddItem(registry.NewItemTemplate("1", tt.def))
			assert.Equal(t, tt.want, c.AnimationName())
		})
	}
}

func TestBodyGroups(t *testing.T) {
	c := NewCharacter(model.ClassSniper, nil, nil, nil)
	c.AddItem(registry.NewItemTemplate("1005", registry.ItemDefinition{
		Name:                "Darwin's Danger Shield",
		PlayerBodygroups:    map[string]string{"backpack": "1"},
		WmBodygroupOverride: map[string]string{"2": "1"},
	}))

	hidden, named, indexed := c.BodyGroups()
	assert.Contains(t, hidden, "darts_bodygroup")
	assert.Equal(t, map[string]int{"backpack": 1}, named)
	assert.Equal(t, map[int]int{2: 1}, indexed)
}

func TestConflictingItems(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)
	hat := c.AddItem(hatTemplate("1", "Hat", "hat"))
	mask := c.AddItem(hatTemplate("2", "Mask", "whole_head"))
	glasses := c.AddItem(hatTemplate("3", "Glasses", "glasses"))

	conflicts := c.ConflictingItems(hat)
	require.Len(t, conflicts, 1)
	assert.Same(t, mask, conflicts[0])

	assert.Len(t, c.ConflictingItems(mask), 2)
	assert.Len(t, c.ConflictingItems(glasses), 1)
}

func TestFlexControllers(t *testing.T) {
	c := NewCharacter(model.ClassHeavy, nil, nil, nil)
	c.SetFlexControllerValue("smile", 0.75)
	assert.Equal(t, map[string]float64{"smile": 0.75}, c.FlexControllers())

	c.ResetFlexes()
	assert.Empty(t, c.FlexControllers())
}

func TestSavePresetLoadPresetRoundTrip(t *testing.T) {
	weapon := weaponTemplate("200")
	workshop := registry.NewItemTemplate("w123", registry.ItemDefinition{
		Name:       "Workshop Hat",
		IsWorkshop: true,
	})
	unusual := &registry.EffectTemplate{
		ID:   13,
		Type: registry.EffectCosmeticUnusual,
		Def:  registry.EffectDefinition{Name: "Burning Flames", System: "burningplayer_flyingbits"},
	}
	templates := newFakeTemplates(weapon, workshop)
	templates.addEffect(unusual)

	c := NewCharacter(model.ClassScout, templates, nil, nil)
	item := c.AddItem(weapon)
	item.SetWarpaint(290, 0.4, 42)
	item.SetSheen(model.KillstreakManndarin)
	item.SetShowFestivizer(true)
	count := 13
	item.SetKillCount(&count)
	c.AddItem(workshop)
	c.AddEffect(unusual)
	c.SetDecapitationLevel(2)

	p := c.SavePreset("A")
	require.Len(t, p.Items, 2)
	assert.Equal(t, "200", p.Items[0].ID)
	assert.Equal(t, "123", p.Items[1].ID, "workshop ids drop the w prefix")
	assert.True(t, p.Items[1].IsWorkshop)
	assert.Equal(t, 2, p.DecapitationLevel)

	restored := NewCharacter(model.ClassScout, templates, nil, nil)
	restored.LoadPreset(p)

	require.Len(t, restored.Items(), 2)
	got, ok := restored.ItemByID("200")
	require.True(t, ok)
	require.NotNil(t, got.WarpaintID())
	assert.Equal(t, 290, *got.WarpaintID())
	assert.Equal(t, uint64(42), got.WarpaintSeed())
	assert.Equal(t, model.KillstreakManndarin, got.Sheen())
	assert.True(t, got.ShowFestivizer())
	require.NotNil(t, got.KillCount())
	assert.Equal(t, 13, *got.KillCount())

	_, ok = restored.ItemByID("w123")
	assert.True(t, ok, "workshop ids regain the w prefix")
	assert.Equal(t, 2, restored.DecapitationLevel())
	require.Len(t, restored.Effects(), 1)
	assert.Equal(t, "burningplayer_flyingbits", restored.Effects()[0].System)
}

func TestLoadPresetSkipsUnknownTemplates(t *testing.T) {
	templates := newFakeTemplates(weaponTemplate("200"))
	c := NewCharacter(model.ClassScout, templates, nil, nil)

	p := preset.New("A")
	p.Items = append(p.Items, preset.Item{ID: "200"}, preset.Item{ID: "404"})
	c.LoadPreset(p)

	assert.Len(t, c.Items(), 1)
}

func TestCopy(t *testing.T) {
	weapon := weaponTemplate("200")
	templates := newFakeTemplates(weapon)

	src := NewCharacter(model.ClassScout, templates, nil, nil)
	item := src.AddItem(weapon)
	item.SetCritBoost(true)
	item.SetPaint(12073019)
	item.SetWarpaint(290, 0.4, 7)
	src.SetDecapitationLevel(1)
	src.SetKillstreakEffect(&registry.EffectTemplate{
		ID:   2003,
		Type: registry.EffectKillstreakEyeglow,
		Def:  registry.EffectDefinition{Name: "Killstreak effect", System: "killstreak_t0_lvl1"},
	}, model.KillstreakHotrod)

	dst := NewCharacter(model.ClassScoutBot, templates, nil, nil)
	dst.Copy(src)

	copied, ok := dst.ItemByID("200")
	require.True(t, ok)
	assert.True(t, copied.IsCritBoosted())
	require.NotNil(t, copied.Paint())
	assert.Equal(t, 12073019, copied.Paint().ID)
	require.NotNil(t, copied.WarpaintID())
	assert.Equal(t, 290, *copied.WarpaintID())
	assert.Equal(t, 1, dst.DecapitationLevel())
	assert.NotNil(t, dst.KillstreakEffects()[EyeRight])
	assert.Equal(t, model.KillstreakHotrod, dst.KillstreakEffects()[EyeRight].Color)
}

func TestRemoveAll(t *testing.T) {
	c := NewCharacter(model.ClassScout, nil, nil, nil)
	c.AddItem(hatTemplate("1", "Hat", "hat"))
	c.AddEffect(&registry.EffectTemplate{
		ID:   13,
		Type: registry.EffectCosmeticUnusual,
		Def:  registry.EffectDefinition{Name: "Burning Flames", System: "burningplayer_flyingbits"},
	})
	c.SetDecapitationLevel(2)

	c.RemoveAll()

	assert.Empty(t, c.Items())
	assert.Empty(t, c.Effects())
	assert.Nil(t, c.KillstreakEffects()[EyeRight])
	assert.Nil(t, c.TauntEffect())
}
