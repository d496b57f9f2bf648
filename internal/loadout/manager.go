package loadout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/preset"
	"github.com/loadout-tf/extension/internal/store"
)

// Slot is one character position in the scene.
type Slot struct {
	Character   *Character
	Position    [3]float64
	Orientation [4]float64
}

func newSlot() *Slot {
	return &Slot{Orientation: [4]float64{0, 0, -1, 1}}
}

// meetTheTeamClasses is the slot order of the meet-the-team lineup.
var meetTheTeamClasses = []model.CharacterClass{
	model.ClassPyro,
	model.ClassEngineer,
	model.ClassSpy,
	model.ClassHeavy,
	model.ClassSniper,
	model.ClassScout,
	model.ClassSoldier,
	model.ClassDemoman,
	model.ClassMedic,
}

// PresetStore persists presets, typically the sqlite store.
type PresetStore interface {
	SavePreset(name, character string, data []byte) error
	Presets() ([]store.PresetRecord, error)
	DeletePreset(name string) error
	SetPreference(key string, value any) error
	Preference(key string, out any) (bool, error)
}

// Manager owns the character slots, the shared team state and the
// per-class preset collections.
type Manager struct {
	mu sync.Mutex

	templates TemplateSource
	events    Emitter
	choreo    Choreographer
	store     PresetStore
	logger    *slog.Logger

	slots   []*Slot
	unused  []*Character
	current *Character

	team       model.Team
	applyToAll bool
	useBots    bool

	presets map[string]*preset.Collection
}

// NewManager builds a manager with a single empty slot. The store may
// be nil for a non-persistent session.
func NewManager(templates TemplateSource, events Emitter, choreo Choreographer, presetStore PresetStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		templates:  templates,
		events:     events,
		choreo:     choreo,
		store:      presetStore,
		logger:     logger,
		slots:      []*Slot{newSlot()},
		applyToAll: true,
		presets:    map[string]*preset.Collection{},
	}
}

// SelectCharacter places a character of the given class into the slot,
// recycling a previously dismissed character of the same class.
func (m *Manager) SelectCharacter(class model.CharacterClass, slotID int) *Character {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := m.slot(slotID)
	if slot.Character != nil && slot.Character.Class == class {
		slot.Character.SetVisible(true)
		m.setCurrent(slot.Character)
		return slot.Character
	}

	m.dismiss(slot)

	character := m.takeUnused(class)
	if character == nil {
		character = NewCharacter(class, m.templates, m.events, m.choreo)
	}
	character.SetVisible(true)
	character.SetTeam(m.team)
	slot.Character = character
	m.setCurrent(character)
	return character
}

// RemoveCharacter dismisses the character in the slot, keeping it for
// later recycling.
func (m *Manager) RemoveCharacter(slotID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismiss(m.slot(slotID))
}

func (m *Manager) setCurrent(character *Character) {
	m.current = character
}

func (m *Manager) dismiss(slot *Slot) {
	if slot.Character == nil {
		return
	}
	slot.Character.SetVisible(false)
	m.unused = append(m.unused, slot.Character)
	if m.current == slot.Character {
		m.current = nil
	}
	slot.Character = nil
}

func (m *Manager) takeUnused(class model.CharacterClass) *Character {
	for i, character := range m.unused {
		if character.Class == class {
			m.unused = append(m.unused[:i], m.unused[i+1:]...)
			return character
		}
	}
	return nil
}

// slot returns the requested slot, falling back to the first free or
// placeholder slot, then the last one.
func (m *Manager) slot(slotID int) *Slot {
	if slotID >= 0 && slotID < len(m.slots) {
		return m.slots[slotID]
	}
	for _, slot := range m.slots {
		if slot.Character == nil || slot.Character.Class.IsPlaceholder() {
			return slot
		}
	}
	return m.slots[len(m.slots)-1]
}

// CurrentCharacter returns the active character, or nil.
func (m *Manager) CurrentCharacter() *Character {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Characters returns every character currently placed in a slot.
func (m *Manager) Characters() []*Character {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Character
	for _, slot := range m.slots {
		if slot.Character != nil {
			out = append(out, slot.Character)
		}
	}
	return out
}

// SetSlotsCount resizes the slot pool, optionally dismissing every
// placed character first. The pool never shrinks below one slot.
func (m *Manager) SetSlotsCount(size int, removeExisting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setSlotsCount(size, removeExisting)
}

func (m *Manager) setSlotsCount(size int, removeExisting bool) {
	if size < 1 {
		size = 1
	}

	removeStart := size - 1
	if removeExisting {
		removeStart = 0
	}
	for i := removeStart; i < len(m.slots); i++ {
		m.dismiss(m.slots[i])
	}
	if size < len(m.slots) {
		m.slots = m.slots[:size]
	}
	for len(m.slots) < size {
		m.slots = append(m.slots, newSlot())
	}
}

// SetTeam switches the team of every character, or only the current one
// when apply-to-all is off.
func (m *Manager) SetTeam(team model.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.team = team
	if m.applyToAll {
		for _, slot := range m.slots {
			if slot.Character != nil {
				slot.Character.SetTeam(team)
			}
		}
		return
	}
	if m.current != nil {
		m.current.SetTeam(team)
	}
}

// Team returns the shared team.
func (m *Manager) Team() model.Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.team
}

// SetInvulnerable toggles uber on every character, or only the current
// one when apply-to-all is off.
func (m *Manager) SetInvulnerable(invulnerable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forEachTarget(func(c *Character) { c.SetInvulnerable(invulnerable) })
}

// SetRagdoll applies a ragdoll treatment following the apply-to-all
// flag.
func (m *Manager) SetRagdoll(ragdoll Ragdoll) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forEachTarget(func(c *Character) { c.SetRagdoll(ragdoll) })
}

// SetUserAnim forces an animation following the apply-to-all flag.
func (m *Manager) SetUserAnim(anim string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forEachTarget(func(c *Character) { c.SetUserAnim(anim) })
}

func (m *Manager) forEachTarget(apply func(*Character)) {
	if m.applyToAll {
		for _, slot := range m.slots {
			if slot.Character != nil {
				apply(slot.Character)
			}
		}
		return
	}
	if m.current != nil {
		apply(m.current)
	}
}

// SetApplyToAll controls whether shared state changes fan out to every
// slot.
func (m *Manager) SetApplyToAll(applyToAll bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyToAll = applyToAll
}

// SetUseBots switches lineups to the robot variants.
func (m *Manager) SetUseBots(useBots bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.useBots = useBots
}

// SetupMeetTheTeam fills nine slots with the full mercenary lineup.
func (m *Manager) SetupMeetTheTeam() []*Character {
	m.mu.Lock()
	useBots := m.useBots
	m.setSlotsCount(len(meetTheTeamClasses), true)
	m.mu.Unlock()

	out := make([]*Character, 0, len(meetTheTeamClasses))
	for i, class := range meetTheTeamClasses {
		if useBots {
			class = class.Bot()
		}
		out = append(out, m.SelectCharacter(class, i))
	}
	return out
}

// ArrangeGrid resizes the slot pool to a countX by countY by countZ
// grid and spreads the slots around the origin.
func (m *Manager) ArrangeGrid(countX, countY, countZ int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	const (
		deltaX = 40.0
		deltaY = 50.0
		deltaZ = 80.0
	)
	if countX < 1 {
		countX = 1
	}
	if countY < 1 {
		countY = 1
	}
	if countZ < 1 {
		countZ = 1
	}

	m.setSlotsCount(countX*countY*countZ, false)

	startX := -deltaX * 0.5 * float64(countX-1)
	startY := -deltaY * 0.5 * float64(countY-1)
	startZ := -deltaZ * 0.5 * float64(countZ-1)

	i := 0
	for x := 0; x < countX; x++ {
		for y := 0; y < countY; y++ {
			for z := 0; z < countZ; z++ {
				m.slots[i].Position = [3]float64{
					startX + float64(x)*deltaX,
					startY + float64(y)*deltaY,
					startZ + float64(z)*deltaZ,
				}
				i++
			}
		}
	}
}

// Slots returns the slot pool.
func (m *Manager) Slots() []*Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Slot(nil), m.slots...)
}

// collection returns the preset collection of a class, creating it on
// first use.
func (m *Manager) collection(className string) *preset.Collection {
	c, ok := m.presets[className]
	if !ok {
		c = preset.NewCollection()
		m.presets[className] = c
	}
	return c
}

// LoadPresets restores the persisted presets and the selected name.
func (m *Manager) LoadPresets() error {
	if m.store == nil {
		return nil
	}

	records, err := m.store.Presets()
	if err != nil {
		return fmt.Errorf("error loading presets: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.presets = map[string]*preset.Collection{}
	for _, record := range records {
		var p preset.Preset
		if err := json.Unmarshal(record.Data, &p); err != nil {
			m.logger.Warn("skipping unreadable preset", "name", record.Name, "error", err)
			continue
		}
		m.collection(record.Character).Add(&p)
	}

	var selected string
	if ok, err := m.store.Preference(store.KeySelectedPreset, &selected); err == nil && ok {
		for _, c := range m.presets {
			if _, ok := c.Get(selected); ok {
				c.Select(selected)
			}
		}
	}
	return nil
}

// SavePreset captures the current character's loadout under the given
// name and persists it. An empty name reuses the selected preset, or
// allocates the next free auto-generated name.
func (m *Manager) SavePreset(name string) (*preset.Preset, error) {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current == nil {
		return nil, fmt.Errorf("no character selected")
	}

	m.mu.Lock()
	collection := m.collection(current.Name)
	if name == "" {
		name = collection.Selected()
	}
	if name == "" {
		name = collection.NextName()
	}
	m.mu.Unlock()

	p := current.SavePreset(name)

	m.mu.Lock()
	collection.Add(p)
	collection.Select(name)
	m.mu.Unlock()

	if m.store != nil {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("error encoding preset %q: %w", name, err)
		}
		if err := m.store.SavePreset(name, current.Name, data); err != nil {
			return nil, err
		}
		if err := m.store.SetPreference(store.KeySelectedPreset, name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadPreset dresses the current character from a stored preset.
func (m *Manager) LoadPreset(name string) error {
	m.mu.Lock()
	current := m.current
	var p *preset.Preset
	if current != nil {
		p, _ = m.collection(current.Name).Get(name)
	}
	m.mu.Unlock()

	if current == nil {
		return fmt.Errorf("no character selected")
	}
	if p == nil {
		return fmt.Errorf("unknown preset %q", name)
	}
	current.LoadPreset(p)
	return nil
}

// DeletePreset removes a preset from the current character's collection
// and the store.
func (m *Manager) DeletePreset(name string) error {
	m.mu.Lock()
	if m.current != nil {
		m.collection(m.current.Name).Remove(name)
	}
	m.mu.Unlock()

	if m.store != nil {
		return m.store.DeletePreset(name)
	}
	return nil
}

// ImportPreset adds a serialized preset to the current character's
// collection. Nameless or colliding presets get an auto-generated name.
func (m *Manager) ImportPreset(data []byte) (*preset.Preset, error) {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current == nil {
		return nil, fmt.Errorf("no character selected")
	}

	var p preset.Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("error decoding imported preset: %w", err)
	}

	m.mu.Lock()
	collection := m.collection(current.Name)
	if _, taken := collection.Get(p.Name); p.Name == "" || taken {
		p.Name = collection.NextName()
	}
	collection.Add(&p)
	m.mu.Unlock()

	if m.store != nil {
		encoded, err := json.Marshal(&p)
		if err != nil {
			return nil, fmt.Errorf("error encoding imported preset: %w", err)
		}
		if err := m.store.SavePreset(p.Name, current.Name, encoded); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Presets returns the preset collection of the current character, or
// nil when no character is selected.
func (m *Manager) Presets() *preset.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.collection(m.current.Name)
}
