package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	items     string
	medals    string
	workshop  string
	metadata  string
	warpaints string
	err       error

	mu         sync.Mutex
	itemsCalls int
}

func (s *fakeSource) FetchItems(_ context.Context, lang string) ([]byte, error) {
	s.mu.Lock()
	s.itemsCalls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.items), nil
}

func (s *fakeSource) FetchMedals(_ context.Context, lang string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.medals), nil
}

func (s *fakeSource) FetchWorkshopItems(context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.workshop), nil
}

func (s *fakeSource) FetchWorkshopMetadata(_ context.Context, creatorID, itemID string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(fmt.Sprintf(s.metadata, creatorID, itemID)), nil
}

func (s *fakeSource) FetchWarpaintDefinitions(context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.warpaints), nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) Emit(name string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, name)
}

func (e *recordingEmitter) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

const testItemsDocument = `{
	"items": {
		"200": {
			"name": "Scattergun",
			"item_slot": "primary",
			"paintkit_base": "1",
			"model_player": "models/weapons/c_models/c_scattergun/c_scattergun.mdl",
			"used_by_classes": {"scout": "1"}
		},
		"15002": {
			"name": "Night Terror",
			"item_slot": "primary",
			"paintkit_base": "1",
			"model_player": "models/weapons/c_models/c_scattergun/c_scattergun.mdl",
			"used_by_classes": {"scout": "1"}
		},
		"30365~0": {
			"name": "Law",
			"item_slot": "misc",
			"collection": "The Powerhouse Collection",
			"grade": "Mercenary",
			"equip_regions": ["hat"],
			"model_player": "models/player/items/demo/law.mdl",
			"used_by_classes": {"demoman": "1"}
		},
		"30365~1": {
			"name": "Law Style 2",
			"item_slot": "misc",
			"model_player": "models/player/items/demo/law_style2.mdl",
			"used_by_classes": {"demoman": "1"}
		},
		"30357": {
			"name": "Tartan Shade",
			"item_slot": "misc",
			"model_player": "models/player/items/demo/tartan_shade.mdl",
			"used_by_classes": {"demoman": "1"}
		},
		"30357~0": {
			"name": "Tartan Shade Classic",
			"item_slot": "misc",
			"model_player": "models/player/items/demo/tartan_shade.mdl",
			"used_by_classes": {"demoman": "1"}
		},
		"hidden": {
			"name": "Hidden Collection Item",
			"collection": "Secret Collection",
			"hide": 1
		}
	},
	"systems": {
		"cosmetic_unusual_effects": {
			"13": {"name": "Burning Flames", "system": "burningplayer_flyingbits"}
		},
		"killstreak_eyeglows": {
			"2003": {"name": "Eyeglow", "system": "killstreak_t0_lvl1_teamcolor_red", "attachment": "eyes"}
		}
	}
}`

func newTestRegistry(t *testing.T, source *fakeSource) (*Registry, *recordingEmitter) {
	t.Helper()
	emitter := &recordingEmitter{}
	return New(source, emitter, slog.Default(), "english"), emitter
}

func TestLoadItems(t *testing.T) {
	source := &fakeSource{items: testItemsDocument}
	registry, emitter := newTestRegistry(t, source)

	require.NoError(t, registry.LoadItems(context.Background()))

	template, ok := registry.Template("200")
	require.True(t, ok)
	assert.Equal(t, "Scattergun", template.Name())
	assert.True(t, template.IsWarpaintable())

	assert.Equal(t, []string{"The Powerhouse Collection"}, registry.Collections())
	assert.Equal(t, []string{"hat"}, registry.EquipRegions())

	law, ok := registry.Template("30365")
	require.True(t, ok)
	assert.Equal(t, "Law", law.Name())
	assert.True(t, law.HasKeyword("powerhouse"))
	assert.True(t, law.HasKeyword("mercenary"))
	assert.True(t, law.HasKeyword("hat"))
	assert.True(t, law.HasKeyword("misc"))
	assert.False(t, law.HasKeyword("scattergun"))

	effect, ok := registry.Effect(EffectCosmeticUnusual, 13)
	require.True(t, ok)
	assert.Equal(t, "burningplayer_flyingbits", effect.System(""))

	assert.Contains(t, emitter.names(), "items_loaded")
	assert.Contains(t, emitter.names(), "systems_loaded")
}

func TestLoadItemsOnce(t *testing.T) {
	source := &fakeSource{items: testItemsDocument}
	registry, _ := newTestRegistry(t, source)

	require.NoError(t, registry.LoadItems(context.Background()))
	require.NoError(t, registry.LoadItems(context.Background()))

	assert.Equal(t, 1, source.itemsCalls)
}

func TestLoadItemsRetriesAfterFailure(t *testing.T) {
	source := &fakeSource{items: testItemsDocument, err: errors.New("network down")}
	registry, _ := newTestRegistry(t, source)

	err := registry.LoadItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")

	source.err = nil
	require.NoError(t, registry.LoadItems(context.Background()))
	_, ok := registry.Template("200")
	assert.True(t, ok)
}

func TestLoadItemsRejectsMalformedDocument(t *testing.T) {
	source := &fakeSource{items: `{"items": "not an object"}`}
	registry, _ := newTestRegistry(t, source)

	err := registry.LoadItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item schema rejected")
}

func TestTemplateStyleFallback(t *testing.T) {
	source := &fakeSource{items: testItemsDocument}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadItems(context.Background()))

	tests := []struct {
		name  string
		id    string
		style int
		want  string
	}{
		{name: "styled variant", id: "30365", style: 1, want: "Law Style 2"},
		{name: "missing style falls back to style zero", id: "30365", style: 5, want: "Law"},
		{name: "bare id without styles", id: "200", style: 2, want: "Scattergun"},
		{name: "missing style prefers style zero over bare id", id: "30357", style: 3, want: "Tartan Shade Classic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template, ok := registry.TemplateWithStyle(tt.id, tt.style)
			require.True(t, ok)
			assert.Equal(t, tt.want, template.Name())
		})
	}
}

func TestTemplateSynthesizesPaintkitTool(t *testing.T) {
	source := &fakeSource{items: testItemsDocument}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadItems(context.Background()))

	template, ok := registry.Template("16310")
	require.True(t, ok)
	assert.True(t, template.IsWarpaintable())

	proto, ok := template.PaintkitProtoDefIndex()
	require.True(t, ok)
	assert.Equal(t, 310, proto)

	model, ok := template.Model("scout")
	require.True(t, ok)
	assert.Equal(t, "models/items/paintkit_tool.mdl", model)

	_, ok = registry.Template("12000")
	assert.False(t, ok)
}

func TestLoadMedals(t *testing.T) {
	source := &fakeSource{
		items: testItemsDocument,
		medals: `{"items": {
			"12000": {"name": "Tournament Medal", "item_type_name": "Tournament Medal"}
		}}`,
	}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadItems(context.Background()))
	require.NoError(t, registry.LoadMedals(context.Background()))

	medal, ok := registry.Template("12000")
	require.True(t, ok)
	assert.True(t, medal.IsTournamentMedal())
	assert.True(t, medal.IsMedal())
}

func TestLoadWorkshop(t *testing.T) {
	source := &fakeSource{
		workshop: `{"result": "1", "items": [
			{"id": 123, "title": "Robo Cap", "previewurl": "https://example.test/cap.png", "tags": "Cosmetic;Scout;Soldier", "creatorid64": "765"}
		]}`,
	}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadWorkshop(context.Background()))

	template, ok := registry.Template("w123")
	require.True(t, ok)
	assert.Equal(t, "Robo Cap", template.Name())
	assert.True(t, template.IsWorkshop())
	assert.True(t, template.IsPaintable())
	assert.Equal(t, 2, template.ClassCount())
}

func TestLoadWorkshopRefused(t *testing.T) {
	source := &fakeSource{workshop: `{"result": "0"}`}
	registry, _ := newTestRegistry(t, source)

	err := registry.LoadWorkshop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workshop request refused")
}

func TestHydrateWorkshop(t *testing.T) {
	source := &fakeSource{
		workshop: `{"result": "1", "items": [
			{"id": 123, "title": "Robo Cap", "creatorid64": "765"}
		]}`,
		metadata: `{"result": "1", "item": {
			"model_player": "models/workshop/%s_%s.mdl"
		}}`,
	}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadWorkshop(context.Background()))

	template, ok := registry.Template("w123")
	require.True(t, ok)

	require.NoError(t, registry.HydrateWorkshop(context.Background(), template))

	model, ok := template.Model("scout")
	require.True(t, ok)
	assert.Equal(t, "models/workshop/765_123.mdl", model)
	assert.Equal(t, "tf2_workshop_123", template.Def.Repository)
}

func TestLoadWarpaints(t *testing.T) {
	source := &fakeSource{
		items: testItemsDocument,
		warpaints: `{
			"8": {
				"290": {"name": "Scattergun | Night Terror", "item_definition_index": 15002, "desc_token": "Night Terror"}
			},
			"9": {
				"290": {"name": "Night Terror"}
			}
		}`,
	}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadItems(context.Background()))
	require.NoError(t, registry.LoadWarpaints(context.Background()))

	// The retired 15002 entry resolves to the real weapon by model.
	weapon, ok := registry.Template("200")
	require.True(t, ok)
	warpaints := weapon.Warpaints()
	require.Contains(t, warpaints, "290")
	assert.Equal(t, "Scattergun | Night Terror", warpaints["290"].Weapon)

	weaponID, ok := registry.LegacyWeapon(15002)
	require.True(t, ok)
	assert.Equal(t, "200", weaponID)

	raw, ok := registry.WarpaintDefinition(ProtoPaintkit, 290)
	require.True(t, ok)
	assert.Contains(t, string(raw), "Night Terror")
}

func TestWeaponByModel(t *testing.T) {
	source := &fakeSource{items: testItemsDocument}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadItems(context.Background()))

	id, ok := registry.WeaponByModel("models/weapons/c_models/c_scattergun/c_scattergun.mdl")
	require.True(t, ok)
	assert.Equal(t, "200", id)

	_, ok = registry.WeaponByModel("models/weapons/unknown.mdl")
	assert.False(t, ok)
}

func TestEffectLookups(t *testing.T) {
	source := &fakeSource{items: testItemsDocument}
	registry, _ := newTestRegistry(t, source)
	require.NoError(t, registry.LoadItems(context.Background()))

	effect, ok := registry.EffectByID(2003)
	require.True(t, ok)
	assert.Equal(t, EffectKillstreakEyeglow, effect.Type)
	assert.True(t, effect.IsTeamColored())
	assert.Equal(t, "killstreak_t0_lvl1_teamcolor_blue", effect.TeamSystem(true))

	effect, ok = registry.EffectBySystem("burningplayer_flyingbits")
	require.True(t, ok)
	assert.Equal(t, 13, effect.ID)

	_, ok = registry.EffectByID(99999)
	assert.False(t, ok)
}
