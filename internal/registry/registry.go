// Package registry loads and indexes the item schema, particle
// systems, warpaint definitions, workshop items and tournament medals,
// and answers template lookups for the rest of the application.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/loadout-tf/extension/internal/dispatcher"
	"github.com/loadout-tf/extension/internal/legacy"
)

// Source fetches the raw schema documents.
type Source interface {
	FetchItems(ctx context.Context, lang string) ([]byte, error)
	FetchMedals(ctx context.Context, lang string) ([]byte, error)
	FetchWorkshopItems(ctx context.Context) ([]byte, error)
	FetchWorkshopMetadata(ctx context.Context, creatorID, itemID string) ([]byte, error)
	FetchWarpaintDefinitions(ctx context.Context) ([]byte, error)
}

// Emitter publishes registry lifecycle events.
type Emitter interface {
	Emit(name string, payload any)
}

// ProtoDefType identifies a warpaint proto definition category.
type ProtoDefType int

const (
	ProtoPaintkitVariables ProtoDefType = 6
	ProtoPaintkitOperation ProtoDefType = 7
	ProtoPaintkitItem      ProtoDefType = 8
	ProtoPaintkit          ProtoDefType = 9
	ProtoHeaderOnly        ProtoDefType = 10
)

// Registry is the in-memory item and effect template index.
type Registry struct {
	source Source
	events Emitter
	logger *slog.Logger

	group singleflight.Group

	mu            sync.RWMutex
	lang          string
	items         map[string]*ItemTemplate
	effects       map[EffectType]map[int]*EffectTemplate
	collections   map[string]struct{}
	equipRegions  map[string]struct{}
	legacyWeapons map[int]string
	warpaintDefs  map[ProtoDefType]map[string]json.RawMessage
	hydrated      map[string]bool
	itemsLoaded   bool
	medalsLoaded  bool
	workshopDone  bool
	warpaintsDone bool
}

// New creates an empty registry backed by the given source.
func New(source Source, events Emitter, logger *slog.Logger, lang string) *Registry {
	if lang == "" {
		lang = "english"
	}
	return &Registry{
		source:        source,
		events:        events,
		logger:        logger,
		lang:          lang,
		items:         make(map[string]*ItemTemplate),
		effects:       make(map[EffectType]map[int]*EffectTemplate),
		collections:   make(map[string]struct{}),
		equipRegions:  make(map[string]struct{}),
		legacyWeapons: make(map[int]string),
		warpaintDefs:  make(map[ProtoDefType]map[string]json.RawMessage),
		hydrated:      make(map[string]bool),
	}
}

// SetLang changes the schema language for subsequent loads.
func (r *Registry) SetLang(lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lang = lang
}

func (r *Registry) emit(name string) {
	if r.events != nil {
		r.events.Emit(name, nil)
	}
}

// itemsDocument is the decoded items_{lang}.json payload.
type itemsDocument struct {
	Items   map[string]ItemDefinition                  `json:"items"`
	Systems map[EffectType]map[string]EffectDefinition `json:"systems"`
}

// LoadItems fetches and indexes the item schema and particle systems.
// Concurrent calls share one fetch, and a successful load is final. A
// failed load can be retried.
func (r *Registry) LoadItems(ctx context.Context) error {
	r.mu.RLock()
	done := r.itemsLoaded
	lang := r.lang
	r.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := r.group.Do("items", func() (any, error) {
		data, err := r.source.FetchItems(ctx, lang)
		if err != nil {
			return nil, fmt.Errorf("error fetching item schema: %w", err)
		}

		doc, err := parseItemsDocument(data)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.indexItems(doc.Items, false)
		for effectType, group := range doc.Systems {
			for id, def := range group {
				n, err := strconv.Atoi(id)
				if err != nil {
					continue
				}
				if r.effects[effectType] == nil {
					r.effects[effectType] = make(map[int]*EffectTemplate)
				}
				r.effects[effectType][n] = &EffectTemplate{ID: n, Type: effectType, Def: def}
			}
		}
		r.itemsLoaded = true
		itemCount, effectCount := len(r.items), 0
		for _, group := range r.effects {
			effectCount += len(group)
		}
		r.mu.Unlock()

		r.logger.Info("item schema loaded", "lang", lang, "items", itemCount, "systems", effectCount)
		r.emit(dispatcher.EventItemsLoaded)
		r.emit(dispatcher.EventSystemsLoaded)
		return nil, nil
	})
	return err
}

// LoadMedals fetches and indexes the tournament medal schema.
func (r *Registry) LoadMedals(ctx context.Context) error {
	r.mu.RLock()
	done := r.medalsLoaded
	lang := r.lang
	r.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := r.group.Do("medals", func() (any, error) {
		data, err := r.source.FetchMedals(ctx, lang)
		if err != nil {
			return nil, fmt.Errorf("error fetching medal schema: %w", err)
		}

		doc, err := parseItemsDocument(data)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.indexItems(doc.Items, true)
		r.medalsLoaded = true
		r.mu.Unlock()

		r.logger.Info("medal schema loaded", "lang", lang, "medals", len(doc.Items))
		r.emit(dispatcher.EventItemsLoaded)
		return nil, nil
	})
	return err
}

// indexItems registers templates and their search keywords. The caller
// holds the write lock.
func (r *Registry) indexItems(defs map[string]ItemDefinition, tournamentMedals bool) {
	for id, def := range defs {
		def.IsTournamentMedal = tournamentMedals
		template := NewItemTemplate(id, def)
		r.items[id] = template

		if collection := def.Collection; collection != "" {
			if !template.IsHidden() {
				r.collections[collection] = struct{}{}
			}
			template.AddKeyword(collection)
		}

		for _, region := range def.EquipRegions {
			template.AddKeyword(region)
			r.equipRegions[region] = struct{}{}
		}

		if slot := def.ItemSlot; slot != "" {
			template.AddKeyword(slot)
		}

		if grade := def.Grade; grade != "" {
			template.AddKeyword(grade)
		}
	}
}

// workshopResponse is the workshop item listing payload.
type workshopResponse struct {
	Result FlexString     `json:"result"`
	Items  []workshopItem `json:"items"`
}

type workshopItem struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	PreviewURL  string      `json:"previewurl"`
	Tags        string      `json:"tags"`
	CreatorID64 string      `json:"creatorid64"`
}

// LoadWorkshop fetches the community workshop items and registers them
// under a "w" prefixed template id.
func (r *Registry) LoadWorkshop(ctx context.Context) error {
	r.mu.RLock()
	done := r.workshopDone
	r.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := r.group.Do("workshop", func() (any, error) {
		data, err := r.source.FetchWorkshopItems(ctx)
		if err != nil {
			return nil, fmt.Errorf("error fetching workshop items: %w", err)
		}

		var response workshopResponse
		if err := json.Unmarshal(data, &response); err != nil {
			return nil, fmt.Errorf("error decoding workshop items: %w", err)
		}
		if response.Result != "1" {
			return nil, fmt.Errorf("workshop request refused: result %q", string(response.Result))
		}

		r.mu.Lock()
		for _, item := range response.Items {
			def := ItemDefinition{
				Name:           item.Title,
				ImageInventory: item.PreviewURL,
				IsWorkshop:     true,
				Paintable:      "1",
				CreatorID64:    item.CreatorID64,
				UsedByClasses:  workshopClasses(item.Tags),
			}
			template := NewItemTemplate("w"+item.ID.String(), def)
			r.items[template.ID] = template
		}
		r.workshopDone = true
		r.mu.Unlock()

		r.logger.Info("workshop items loaded", "count", len(response.Items))
		r.emit(dispatcher.EventItemsLoaded)
		return nil, nil
	})
	return err
}

// workshopClasses derives used_by_classes from the workshop tag list.
func workshopClasses(tags string) map[string]FlexString {
	if tags == "" {
		return nil
	}
	used := make(map[string]FlexString)
	for _, tag := range strings.Split(tags, ";") {
		switch tag {
		case "Demoman", "Engineer", "Heavy", "Medic", "Pyro", "Scout", "Sniper", "Soldier", "Spy":
			used[strings.ToLower(tag)] = "1"
		}
	}
	if len(used) == 0 {
		return nil
	}
	return used
}

// workshopMetadata is the per-item UGC manifest payload.
type workshopMetadata struct {
	Result FlexString `json:"result"`
	Item   *struct {
		ModelPlayer         string            `json:"model_player"`
		ModelPlayerPerClass map[string]string `json:"model_player_per_class"`
		PlayerBodygroups    map[string]string `json:"player_bodygroups"`
	} `json:"item"`
}

// HydrateWorkshop loads the per-item manifest of a workshop template,
// filling in its models and repository. Repeat calls are no-ops.
func (r *Registry) HydrateWorkshop(ctx context.Context, template *ItemTemplate) error {
	if !template.IsWorkshop() {
		return nil
	}

	r.mu.RLock()
	done := r.hydrated[template.ID]
	r.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := r.group.Do("ugc:"+template.ID, func() (any, error) {
		itemID := template.ID[1:] // strip the "w" prefix
		data, err := r.source.FetchWorkshopMetadata(ctx, template.Def.CreatorID64, itemID)
		if err != nil {
			return nil, fmt.Errorf("error fetching workshop metadata for %s: %w", template.ID, err)
		}

		var meta workshopMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("error decoding workshop metadata for %s: %w", template.ID, err)
		}
		if meta.Result == "" || meta.Item == nil {
			return nil, fmt.Errorf("workshop metadata missing for %s", template.ID)
		}

		r.mu.Lock()
		template.MergeWorkshopMetadata("tf2_workshop_"+itemID, meta.Item.ModelPlayer, meta.Item.ModelPlayerPerClass, meta.Item.PlayerBodygroups)
		r.hydrated[template.ID] = true
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// warpaintItemBinding is one proto item definition binding a warpaint
// to the weapon it can be applied to.
type warpaintItemBinding struct {
	Name                string      `json:"name"`
	ItemDefinitionIndex json.Number `json:"item_definition_index"`
	DescToken           string      `json:"desc_token"`
}

// LoadWarpaints fetches the warpaint proto definitions and attaches
// each warpaint to the weapon templates it applies to. Item templates
// must be loaded first.
func (r *Registry) LoadWarpaints(ctx context.Context) error {
	r.mu.RLock()
	done := r.warpaintsDone
	r.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := r.group.Do("warpaints", func() (any, error) {
		data, err := r.source.FetchWarpaintDefinitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("error fetching warpaint definitions: %w", err)
		}

		var doc map[string]map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("error decoding warpaint definitions: %w", err)
		}

		r.mu.Lock()
		for typ, group := range doc {
			n, err := strconv.Atoi(typ)
			if err != nil {
				continue
			}
			r.warpaintDefs[ProtoDefType(n)] = group
		}
		r.warpaintsDone = true
		bindings := r.warpaintDefs[ProtoPaintkitItem]
		r.mu.Unlock()

		count := 0
		for warpaintID, raw := range bindings {
			var binding warpaintItemBinding
			if err := json.Unmarshal(raw, &binding); err != nil {
				continue
			}
			if binding.ItemDefinitionIndex == "" {
				continue
			}
			r.RegisterWarpaint(binding.ItemDefinitionIndex.String(), warpaintID, binding.Name, binding.DescToken)
			count++
		}

		r.logger.Info("warpaint definitions loaded", "bindings", count)
		return nil, nil
	})
	return err
}

// WarpaintDefinition returns the raw proto definition for a type and
// definition index.
func (r *Registry) WarpaintDefinition(typ ProtoDefType, defIndex int) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, ok := r.warpaintDefs[typ]
	if !ok {
		return nil, false
	}
	raw, ok := group[strconv.Itoa(defIndex)]
	return raw, ok
}

// Template looks up a template by id, falling back to the ~0 style
// variant. Virtual paintkit indexes with no schema entry synthesize a
// paintkit tool template.
func (r *Registry) Template(id string) (*ItemTemplate, bool) {
	r.mu.RLock()
	template, ok := r.items[id]
	if !ok {
		template, ok = r.items[id+"~0"]
	}
	r.mu.RUnlock()
	if ok {
		return template, true
	}

	if defIndex, err := strconv.Atoi(id); err == nil && legacy.NeedsSyntheticTemplate(defIndex) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if template, ok := r.items[id]; ok {
			return template, true
		}
		template := syntheticPaintkitTool(defIndex)
		r.items[id] = template
		return template, true
	}
	return nil, false
}

// TemplateWithStyle looks up the styled variant of a template. A
// missing style falls back to the ~0 variant before the bare id.
func (r *Registry) TemplateWithStyle(id string, style int) (*ItemTemplate, bool) {
	r.mu.RLock()
	template, ok := r.items[id+"~"+strconv.Itoa(style)]
	if !ok {
		template, ok = r.items[id+"~0"]
	}
	if !ok {
		template, ok = r.items[id]
	}
	r.mu.RUnlock()
	if ok {
		return template, true
	}
	return r.Template(id)
}

// Templates returns a copy of the template index.
func (r *Registry) Templates() map[string]*ItemTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*ItemTemplate, len(r.items))
	for id, template := range r.items {
		out[id] = template
	}
	return out
}

// Effect returns one effect template.
func (r *Registry) Effect(typ EffectType, id int) (*EffectTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	template, ok := r.effects[typ][id]
	return template, ok
}

// Effects returns a copy of one effect category.
func (r *Registry) Effects(typ EffectType) map[int]*EffectTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]*EffectTemplate, len(r.effects[typ]))
	for id, template := range r.effects[typ] {
		out[id] = template
	}
	return out
}

// EffectByID scans every category for an effect id.
func (r *Registry) EffectByID(id int) (*EffectTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, typ := range EffectTypes {
		if template, ok := r.effects[typ][id]; ok {
			return template, true
		}
	}
	return nil, false
}

// EffectBySystem finds the effect whose particle system matches.
func (r *Registry) EffectBySystem(system string) (*EffectTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, typ := range EffectTypes {
		for _, template := range r.effects[typ] {
			if template.System("") == system {
				return template, true
			}
		}
	}
	return nil, false
}

// Collections returns the visible item collections, sorted.
func (r *Registry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.collections))
	for collection := range r.collections {
		out = append(out, collection)
	}
	sort.Strings(out)
	return out
}

// EquipRegions returns every equip region seen in the schema, sorted.
func (r *Registry) EquipRegions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.equipRegions))
	for region := range r.equipRegions {
		out = append(out, region)
	}
	sort.Strings(out)
	return out
}

// RegisterWarpaint attaches a warpaint to a weapon template. Retired
// warpaint indexes resolve to the real weapon sharing the model, and
// the mapping is remembered for listing resolution.
func (r *Registry) RegisterWarpaint(itemID, warpaintID, weaponName, title string) {
	template, ok := r.Template(itemID)
	if !ok {
		r.logger.Warn("warpaint weapon not found", "item", itemID, "warpaint", warpaintID)
		return
	}

	defIndex, err := strconv.Atoi(legacy.StripStyle(itemID))
	if err == nil && legacy.IsWarpaint(defIndex) {
		model, ok := template.Model("")
		if !ok {
			return
		}
		weaponID, ok := r.WeaponByModel(model)
		if !ok {
			return
		}
		r.mu.Lock()
		r.legacyWeapons[defIndex] = weaponID
		r.mu.Unlock()
		r.RegisterWarpaint(weaponID, warpaintID, weaponName, title)
		return
	}

	r.mu.Lock()
	template.AddWarpaint(warpaintID, weaponName, title)
	r.mu.Unlock()
}

// WeaponByModel finds the warpaintable template using the model path.
func (r *Registry) WeaponByModel(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, template := range r.items {
		if !template.IsWarpaintable() {
			continue
		}
		// Retired warpaint entries share the weapon model; skip them so
		// the lookup lands on the real weapon.
		if defIndex, err := strconv.Atoi(legacy.StripStyle(id)); err == nil && legacy.IsWarpaint(defIndex) {
			continue
		}
		if model, ok := template.Model(""); ok && model == path {
			return id, true
		}
	}
	return "", false
}

// LegacyWeapon returns the weapon template id recorded for a retired
// warpaint definition index.
func (r *Registry) LegacyWeapon(defIndex int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.legacyWeapons[defIndex]
	return id, ok
}
