// Package resolver drives the pipeline that turns a market listing or
// inventory reference into a fully parameterized preview model: class
// info lookup, legacy paintkit remapping, template resolution, inspect
// data retrieval, warpaint texture parameters and secondary attributes
// like stattrak modules, festivizers, sheens and attached particles.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/loadout-tf/extension/internal/api"
	"github.com/loadout-tf/extension/internal/dispatcher"
	"github.com/loadout-tf/extension/internal/legacy"
	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/registry"
	"github.com/loadout-tf/extension/internal/store"
)

// DefaultDebounce is the hover delay applied before a listing resolves.
const DefaultDebounce = 200 * time.Millisecond

// attachmentHead is the fallback particle attachment point. The schema
// sometimes names "unusual" or "muzzle" points that the player models
// do not carry; both normalize to the head.
const attachmentHead = "bip_head"

// ErrSuperseded is returned when a newer request for the same slot
// arrived while this resolution was in flight.
var ErrSuperseded = errors.New("superseded by a newer request")

// Schema is the template lookup surface the resolver needs,
// satisfied by *registry.Registry.
type Schema interface {
	Template(id string) (*registry.ItemTemplate, bool)
	TemplateWithStyle(id string, style int) (*registry.ItemTemplate, bool)
	EffectByID(id int) (*registry.EffectTemplate, bool)
}

// AssetSource resolves class info and inspect payloads, satisfied by
// *assets.Cache.
type AssetSource interface {
	ClassInfo(ctx context.Context, appID, classID int) (*model.ClassInfo, error)
	Inspect(ctx context.Context, inspectLink string) (*model.EconItem, error)
}

// PreferenceStore persists the forced warpaint weapon choice,
// satisfied by *store.Manager.
type PreferenceStore interface {
	Preference(key string, out any) (bool, error)
	SetPreference(key string, value any) error
}

// Emitter fans resolver events out to the rest of the application.
type Emitter interface {
	Emit(name string, payload any)
}

// Renderer receives the resolved model parameters. The engine itself
// lives outside this module; tests observe the calls directly.
type Renderer interface {
	CreateModel(ctx context.Context, key, modelPath string) error
	SetSkin(key string, skin int)
	RefreshWarpaint(ctx context.Context, key string, params Warpaint) error
	AttachParticleSystem(key, system, attachment string, controlPoints map[int]string)
	SetSheen(key string, tint model.Tint)
	AttachModel(key, modelPath string, scale float64)
}

// ListingRef identifies one market listing or inventory item hovered
// in the page. Slot keys the UI row so a newer hover on the same row
// supersedes an older one.
type ListingRef struct {
	Slot             string
	AppID            int
	ClassID          int
	ListingOrSteamID string
	AssetID          string
	MarketHashName   string
	Actions          []model.AssetAction
	ClassName        string
}

// DefaultTextureSize is the warpaint compositing resolution used when
// none is configured.
const DefaultTextureSize = 2048

// Warpaint carries the texture generation parameters for a decorated
// weapon. Wear is the discrete 0..4 bucket, not the raw float.
type Warpaint struct {
	DefIndex    int
	PaintKitID  int
	Wear        int
	Seed        uint64
	TextureSize int
}

func (w Warpaint) key() string {
	return fmt.Sprintf("%d:%d:%d:%d", w.DefIndex, w.PaintKitID, w.Wear, w.Seed)
}

// Attachment records one particle system bound to the model.
type Attachment struct {
	EffectID      int
	System        string
	Point         string
	ControlPoints map[int]string
}

// ModelState is the fully dressed result of a resolution. Hidden marks
// listings that have no previewable model or inspect link.
type ModelState struct {
	Slot             string
	TemplateID       string
	DefIndex         int
	OriginalDefIndex int
	ModelPath        string
	Skin             int
	Tint             *model.Tint
	Sheen            *model.Tint
	Warpaint         *Warpaint
	CraftIndex       *int
	KillCount        *int
	StattrakModule   string
	StattrakScale    float64
	Festivizer       string
	Attachments      []Attachment
	Classes          []string
	ActiveClass      string
	Hidden           bool
}

// GenerationEvent is the payload emitted on every generation state
// transition.
type GenerationEvent struct {
	Slot  string
	State model.GenerationState
}

// Resolver runs the listing resolution pipeline. Each UI slot tracks
// the identity of its latest request; completions whose identity no
// longer matches are dropped silently.
type Resolver struct {
	schema   Schema
	assets   AssetSource
	renderer Renderer
	prefs    PreferenceStore
	events   Emitter
	logger   *slog.Logger

	debounce    time.Duration
	team        model.Team
	textureSize int

	mu          sync.Mutex
	tokens      map[string]uuid.UUID
	timers      map[string]*time.Timer
	states      map[string]*ModelState
	slotLocks   map[string]*sync.Mutex
	classModels map[string]bool

	classMu     sync.Mutex
	classFlight singleflight.Group
	paintFlight singleflight.Group

	resolutions metric.Int64Counter
}

// New creates a Resolver. prefs and events may be nil; the renderer
// must not be.
func New(schema Schema, assets AssetSource, renderer Renderer, prefs PreferenceStore, events Emitter, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		schema:      schema,
		assets:      assets,
		renderer:    renderer,
		prefs:       prefs,
		events:      events,
		logger:      logger,
		debounce:    DefaultDebounce,
		team:        model.TeamRed,
		textureSize: DefaultTextureSize,
		tokens:      make(map[string]uuid.UUID),
		timers:      make(map[string]*time.Timer),
		states:      make(map[string]*ModelState),
		slotLocks:   make(map[string]*sync.Mutex),
		classModels: make(map[string]bool),
	}

	var err error
	r.resolutions, err = meter().Int64Counter(
		"resolver.resolutions",
		metric.WithDescription("Total listing resolutions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolutions counter: %w", err)
	}
	return r, nil
}

// SetDebounce overrides the hover delay.
func (r *Resolver) SetDebounce(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debounce = d
}

// SetTextureSize sets the warpaint compositing resolution.
func (r *Resolver) SetTextureSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if size > 0 {
		r.textureSize = size
	}
}

// SetTeam selects the red or blu variant for skins, tints and sheens.
func (r *Resolver) SetTeam(team model.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.team = team
}

// SetForcedWeaponIndex persists the weapon a bare warpaint listing is
// previewed on and asks the page to re-render the current listing.
func (r *Resolver) SetForcedWeaponIndex(defIndex int) error {
	if r.prefs != nil {
		if err := r.prefs.SetPreference(store.KeyWarpaintWeaponIndex, defIndex); err != nil {
			return err
		}
	}
	r.emit(dispatcher.EventRefreshListing, defIndex)
	return nil
}

// forcedWeaponIndex reads the stored weapon choice, zero when unset.
func (r *Resolver) forcedWeaponIndex() int {
	if r.prefs == nil {
		return 0
	}
	var idx int
	if ok, err := r.prefs.Preference(store.KeyWarpaintWeaponIndex, &idx); err != nil || !ok {
		return 0
	}
	return idx
}

// State returns the last resolved state for a slot.
func (r *Resolver) State(slot string) (*ModelState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[slot]
	return s, ok
}

// Hover schedules a resolution after the debounce delay. A second
// hover on the same slot restarts the timer with the new reference.
func (r *Resolver) Hover(ref ListingRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[ref.Slot]; ok {
		t.Stop()
	}
	r.timers[ref.Slot] = time.AfterFunc(r.debounce, func() {
		if _, err := r.Resolve(context.Background(), ref); err != nil && !errors.Is(err, ErrSuperseded) {
			r.logger.Warn("listing resolution failed", "slot", ref.Slot, "error", err)
		}
	})
}

// Leave cancels a pending hover and invalidates any resolution still
// in flight for the slot.
func (r *Resolver) Leave(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[slot]; ok {
		t.Stop()
		delete(r.timers, slot)
	}
	r.tokens[slot] = uuid.New()
}

// Resolve runs the full pipeline for a listing. It returns the dressed
// model state, a state with Hidden set when the listing cannot be
// previewed, or ErrSuperseded when a newer request took over the slot.
func (r *Resolver) Resolve(ctx context.Context, ref ListingRef) (*ModelState, error) {
	token := r.begin(ref.Slot)

	state, err := r.resolve(ctx, ref, token)
	switch {
	case errors.Is(err, ErrSuperseded):
		r.count(ctx, "superseded")
	case err != nil:
		r.count(ctx, "error")
	case state.Hidden:
		r.count(ctx, "hidden")
	default:
		r.count(ctx, "resolved")
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.tokens[ref.Slot] == token {
		r.states[ref.Slot] = state
	}
	r.mu.Unlock()
	return state, nil
}

func (r *Resolver) resolve(ctx context.Context, ref ListingRef, token uuid.UUID) (*ModelState, error) {
	r.emitState(ref.Slot, model.GenerationStarted)

	info, err := r.assets.ClassInfo(ctx, ref.AppID, ref.ClassID)
	if err != nil {
		r.emitState(ref.Slot, model.GenerationFailure)
		return nil, fmt.Errorf("resolving class info: %w", err)
	}
	defIndex, ok := info.DefIndex()
	if !ok {
		return r.hidden(ref.Slot), nil
	}

	displayIndex := defIndex
	originalIndex := 0
	if remapped, ok := legacy.RemapDefIndex(defIndex, r.forcedWeaponIndex()); ok {
		displayIndex = remapped
		originalIndex = defIndex
	}

	template, ok := r.schema.Template(strconv.Itoa(displayIndex))
	if !ok {
		return r.hidden(ref.Slot), nil
	}
	modelPath, ok := template.Model(ref.ClassName)
	if !ok {
		return r.hidden(ref.Slot), nil
	}

	actions := ref.Actions
	if len(actions) == 0 {
		actions = info.Actions
	}
	link, ok := api.InspectLink(actions, ref.ListingOrSteamID, ref.AssetID)
	if !ok {
		return r.hidden(ref.Slot), nil
	}

	r.emitState(ref.Slot, model.GenerationLoadingModel)
	if err := r.createModel(ctx, ref.Slot, modelPath); err != nil {
		r.emitState(ref.Slot, model.GenerationFailure)
		return nil, fmt.Errorf("creating model %s: %w", modelPath, err)
	}
	if !r.valid(ref.Slot, token) {
		return nil, ErrSuperseded
	}

	// The virtual listing template carries the paintkit binding and the
	// base skin; attachments and class usage come from the weapon it is
	// previewed on.
	paintTemplate := template
	if originalIndex != 0 {
		if t, ok := r.schema.Template(strconv.Itoa(originalIndex)); ok {
			paintTemplate = t
		}
	}

	r.emitState(ref.Slot, model.GenerationRetrievingItemData)
	econ, err := r.assets.Inspect(ctx, link)
	if err != nil {
		r.emitState(ref.Slot, model.GenerationFailure)
		return nil, fmt.Errorf("inspecting item: %w", err)
	}
	if !r.valid(ref.Slot, token) {
		return nil, ErrSuperseded
	}

	state := &ModelState{
		Slot:             ref.Slot,
		TemplateID:       template.ID,
		DefIndex:         displayIndex,
		OriginalDefIndex: originalIndex,
		ModelPath:        modelPath,
		CraftIndex:       econ.UniqueCraftIndex,
	}

	r.applyWarpaint(ctx, state, paintTemplate, econ)
	r.applySkin(state, paintTemplate, econ)
	r.applyAttachedModels(state, template, econ)
	r.applyEffects(state, template, econ)
	r.applyClasses(ctx, state, template, ref.ClassName)

	return state, nil
}

// applyWarpaint computes the texture generation parameters and hands
// them to the renderer when complete. The paintkit id prefers the
// schema binding over the inspected paint index; missing wear or a
// zero seed skips generation entirely.
func (r *Resolver) applyWarpaint(ctx context.Context, state *ModelState, paintTemplate *registry.ItemTemplate, econ *model.EconItem) {
	paintKitID := 0
	if id, ok := paintTemplate.PaintkitProtoDefIndex(); ok {
		paintKitID = id
	} else if econ.PaintIndex != nil {
		paintKitID = *econ.PaintIndex
	}
	seed := econ.Seed()

	if paintKitID == 0 || econ.PaintWear == nil || seed == 0 {
		r.emitState(state.Slot, model.GenerationSuccess)
		return
	}

	wp := Warpaint{
		DefIndex:    state.DefIndex,
		PaintKitID:  paintKitID,
		Wear:        model.WearBucket(*econ.PaintWear),
		Seed:        seed,
		TextureSize: r.textureSize,
	}
	state.Warpaint = &wp

	r.emitState(state.Slot, model.GenerationWaitingForGeneration)
	slot := state.Slot
	_, err, _ := r.paintFlight.Do(wp.key(), func() (any, error) {
		return nil, r.renderer.RefreshWarpaint(ctx, slot, wp)
	})
	if err != nil {
		r.logger.Warn("warpaint generation failed", "slot", slot, "paintkit", paintKitID, "error", err)
		r.emitState(slot, model.GenerationFailure)
		return
	}
	r.emitState(slot, model.GenerationSuccess)
}

// applySkin picks the skin index, honoring an inspected style override
// by re-fetching the style-specific template entry.
func (r *Resolver) applySkin(state *ModelState, paintTemplate *registry.ItemTemplate, econ *model.EconItem) {
	skinTemplate := paintTemplate
	if econ.ItemStyleOverride != nil {
		if styled, ok := r.schema.TemplateWithStyle(strconv.Itoa(state.DefIndex), *econ.ItemStyleOverride); ok {
			skinTemplate = styled
		}
	}
	if skin := skinTemplate.Skin(r.team); skin != 0 {
		state.Skin = skin
		r.renderer.SetSkin(state.Slot, skin)
	}
	if tint, ok := skinTemplate.TintRGB(r.team); ok {
		state.Tint = &tint
	}
}

func (r *Resolver) applyAttachedModels(state *ModelState, template *registry.ItemTemplate, econ *model.EconItem) {
	if econ.IsStrange && template.Def.WeaponUsesStattrakModule != "" {
		module := string(template.Def.WeaponUsesStattrakModule)
		scale := template.StattrakScale()
		state.StattrakModule = module
		state.StattrakScale = scale
		kills := econ.KillEater
		state.KillCount = &kills
		r.renderer.AttachModel(state.Slot, module, scale)
	}
	if econ.IsFestivized && template.Def.AttachedModelsFestive != "" {
		state.Festivizer = template.Def.AttachedModelsFestive
		r.renderer.AttachModel(state.Slot, state.Festivizer, 1)
	}
	if econ.KillstreakIdleEffect != 0 {
		tint := model.SheenTint(econ.KillstreakIdleEffect, r.team)
		state.Sheen = &tint
		r.renderer.SetSheen(state.Slot, tint)
	}
}

func (r *Resolver) applyEffects(state *ModelState, template *registry.ItemTemplate, econ *model.EconItem) {
	suffix := template.Def.ParticleSuffix
	if econ.SetAttachedParticle != 0 {
		r.attachEffect(state, econ.SetAttachedParticle, suffix)
	}
	if id, ok := template.StaticAttachedParticle(); ok {
		r.attachEffect(state, id, suffix)
	}
}

func (r *Resolver) attachEffect(state *ModelState, effectID int, suffix string) {
	effect, ok := r.schema.EffectByID(effectID)
	if !ok || effect.Def.System == "" {
		return
	}
	system := effect.System(suffix)
	point := effect.Def.Attachment
	if point == "" || point == "unusual" || point == "muzzle" {
		point = attachmentHead
	}
	state.Attachments = append(state.Attachments, Attachment{
		EffectID:      effectID,
		System:        system,
		Point:         point,
		ControlPoints: effect.Def.ControlPoints,
	})
	r.renderer.AttachParticleSystem(state.Slot, system, point, effect.Def.ControlPoints)
}

// applyClasses records which classes can equip the item and mounts the
// item on the active class model when it is one of them.
func (r *Resolver) applyClasses(ctx context.Context, state *ModelState, template *registry.ItemTemplate, className string) {
	for name, slot := range template.Def.UsedByClasses {
		if slot != "" {
			state.Classes = append(state.Classes, name)
		}
	}
	sort.Strings(state.Classes)

	for _, name := range state.Classes {
		if name == className {
			if err := r.selectClass(ctx, name); err != nil {
				r.logger.Warn("class model load failed", "class", name, "error", err)
				return
			}
			state.ActiveClass = name
			return
		}
	}
}

// selectClass loads the mercenary model for a class once and keeps it
// around for reuse. Selections are serialized so back-to-back clicks
// on class icons cannot interleave.
func (r *Resolver) selectClass(ctx context.Context, className string) error {
	r.classMu.Lock()
	defer r.classMu.Unlock()

	r.mu.Lock()
	loaded := r.classModels[className]
	r.mu.Unlock()
	if loaded {
		return nil
	}

	class, ok := model.NPCToClass(className)
	if !ok {
		return fmt.Errorf("unknown class %q", className)
	}
	path := model.ClassList[class].ModelPath

	_, err, _ := r.classFlight.Do(className, func() (any, error) {
		return nil, r.renderer.CreateModel(ctx, "class:"+className, path)
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.classModels[className] = true
	r.mu.Unlock()
	return nil
}

// createModel serializes model creation per slot so a superseding
// request cannot race the teardown of the previous model.
func (r *Resolver) createModel(ctx context.Context, slot, modelPath string) error {
	mu := r.slotLock(slot)
	mu.Lock()
	defer mu.Unlock()
	return r.renderer.CreateModel(ctx, slot, modelPath)
}

func (r *Resolver) slotLock(slot string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	mu, ok := r.slotLocks[slot]
	if !ok {
		mu = &sync.Mutex{}
		r.slotLocks[slot] = mu
	}
	return mu
}

// begin issues a fresh identity token for the slot, superseding any
// resolution still in flight.
func (r *Resolver) begin(slot string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := uuid.New()
	r.tokens[slot] = token
	return token
}

func (r *Resolver) valid(slot string, token uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[slot] == token
}

func (r *Resolver) hidden(slot string) *ModelState {
	r.emitState(slot, model.GenerationSuccess)
	return &ModelState{Slot: slot, Hidden: true}
}

func (r *Resolver) emitState(slot string, s model.GenerationState) {
	r.emit(dispatcher.EventGenerationState, GenerationEvent{Slot: slot, State: s})
}

func (r *Resolver) emit(name string, payload any) {
	if r.events != nil {
		r.events.Emit(name, payload)
	}
}

func (r *Resolver) count(ctx context.Context, outcome string) {
	r.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
