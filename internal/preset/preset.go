// Package preset serializes saved loadouts. The wire format matches the
// presets historically stored by the extension, including the legacy
// paintkit_* field names still found in old exports.
package preset

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/registry"
)

// Item is one equipped item inside a preset. Zero-valued customizations
// are omitted from the serialized form.
type Item struct {
	ID                string
	Paint             *int
	WarpaintID        *int
	WarpaintWear      float64
	WarpaintSeed      uint64
	IsTournamentMedal bool
	IsWorkshop        bool
	WeaponEffect      *int
	Sheen             model.KillstreakColor
	ShowFestivizer    bool
	KillCount         int
}

type itemJSON struct {
	ID                string   `json:"id"`
	Paint             *int     `json:"paint,omitempty"`
	WarpaintID        *int     `json:"warpaint_id,omitempty"`
	WarpaintWear      float64  `json:"warpaint_wear,omitempty"`
	WarpaintSeed      string   `json:"warpaint_seed,omitempty"`
	PaintkitID        *int     `json:"paintkit_id,omitempty"`
	PaintkitWear      *float64 `json:"paintkit_wear,omitempty"`
	PaintkitSeed      string   `json:"paintkit_seed,omitempty"`
	WeaponEffect      *int     `json:"weapon_effect,omitempty"`
	Sheen             int      `json:"sheen,omitempty"`
	ShowFestivizer    bool     `json:"show_festivizer,omitempty"`
	KillCount         int      `json:"kill_count,omitempty"`
	IsTournamentMedal bool     `json:"is_tournament_medal,omitempty"`
	IsWorkshop        bool     `json:"is_workshop,omitempty"`
}

// MarshalJSON writes the item with the seed as a decimal string, since
// seeds exceed the integer range handled by the historical consumers.
func (i Item) MarshalJSON() ([]byte, error) {
	j := itemJSON{
		ID:                i.ID,
		Paint:             i.Paint,
		WarpaintID:        i.WarpaintID,
		WarpaintWear:      i.WarpaintWear,
		WeaponEffect:      i.WeaponEffect,
		Sheen:             int(i.Sheen),
		ShowFestivizer:    i.ShowFestivizer,
		KillCount:         i.KillCount,
		IsTournamentMedal: i.IsTournamentMedal,
		IsWorkshop:        i.IsWorkshop,
	}
	if i.WarpaintSeed != 0 {
		j.WarpaintSeed = strconv.FormatUint(i.WarpaintSeed, 10)
	}
	return json.Marshal(j)
}

// UnmarshalJSON reads an item, accepting the legacy paintkit_* field
// names. Legacy fields win over their warpaint_* counterparts.
func (i *Item) UnmarshalJSON(data []byte) error {
	var j itemJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("error decoding preset item: %w", err)
	}

	i.ID = j.ID
	i.Paint = j.Paint
	i.WarpaintID = j.WarpaintID
	i.WarpaintWear = j.WarpaintWear
	i.WeaponEffect = j.WeaponEffect
	i.Sheen = model.KillstreakColor(j.Sheen)
	i.ShowFestivizer = j.ShowFestivizer
	i.KillCount = j.KillCount
	i.IsTournamentMedal = j.IsTournamentMedal
	i.IsWorkshop = j.IsWorkshop

	if j.WarpaintSeed != "" {
		seed, err := strconv.ParseUint(j.WarpaintSeed, 10, 64)
		if err != nil {
			return fmt.Errorf("error decoding warpaint seed %q: %w", j.WarpaintSeed, err)
		}
		i.WarpaintSeed = seed
	}
	if j.PaintkitID != nil {
		i.WarpaintID = j.PaintkitID
	}
	if j.PaintkitWear != nil {
		i.WarpaintWear = *j.PaintkitWear
	}
	if j.PaintkitSeed != "" {
		seed, err := strconv.ParseUint(j.PaintkitSeed, 10, 64)
		if err != nil {
			return fmt.Errorf("error decoding paintkit seed %q: %w", j.PaintkitSeed, err)
		}
		i.WarpaintSeed = seed
	}
	return nil
}

// EffectKind is the serialized effect category.
type EffectKind string

const (
	EffectUnusual    EffectKind = "unusual"
	EffectTaunt      EffectKind = "taunt"
	EffectKillstreak EffectKind = "killstreak"
	EffectWeapon     EffectKind = "weapon"
	EffectOther      EffectKind = "other"
)

// RegistryType maps the serialized category to the schema effect type.
func (k EffectKind) RegistryType() registry.EffectType {
	switch k {
	case EffectUnusual:
		return registry.EffectCosmeticUnusual
	case EffectKillstreak:
		return registry.EffectKillstreakEyeglow
	case EffectTaunt:
		return registry.EffectTauntUnusual
	case EffectWeapon:
		return registry.EffectWeaponUnusual
	default:
		return registry.EffectOther
	}
}

// KindForType maps a schema effect type to its serialized category.
func KindForType(typ registry.EffectType) EffectKind {
	switch typ {
	case registry.EffectCosmeticUnusual:
		return EffectUnusual
	case registry.EffectKillstreakEyeglow:
		return EffectKillstreak
	case registry.EffectTauntUnusual:
		return EffectTaunt
	case registry.EffectWeaponUnusual:
		return EffectWeapon
	default:
		return EffectOther
	}
}

// Effect is one particle effect inside a preset.
type Effect struct {
	ID         int                    `json:"id"`
	Type       EffectKind             `json:"type"`
	Attachment string                 `json:"attachment,omitempty"`
	Offset     *[3]float64            `json:"offset,omitempty"`
	Color      *model.KillstreakColor `json:"color,omitempty"`
}

// Preset is a saved loadout for one class.
type Preset struct {
	Name              string   `json:"name"`
	Character         string   `json:"character"`
	Items             []Item   `json:"items"`
	Effects           []Effect `json:"effects"`
	DecapitationLevel int      `json:"decapitation_level,omitempty"`
}

// New returns an empty preset serializing with non-null item and
// effect arrays.
func New(name string) *Preset {
	return &Preset{
		Name:    name,
		Items:   []Item{},
		Effects: []Effect{},
	}
}

// MarshalJSON keeps items and effects as arrays even when empty.
func (p *Preset) MarshalJSON() ([]byte, error) {
	type alias Preset
	a := alias(*p)
	if a.Items == nil {
		a.Items = []Item{}
	}
	if a.Effects == nil {
		a.Effects = []Effect{}
	}
	return json.Marshal(a)
}

// Collection holds the presets of one class plus the selected name.
type Collection struct {
	selected string
	order    []string
	presets  map[string]*Preset
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{presets: map[string]*Preset{}}
}

// Add inserts or replaces a preset under its name.
func (c *Collection) Add(p *Preset) {
	if _, ok := c.presets[p.Name]; !ok {
		c.order = append(c.order, p.Name)
	}
	c.presets[p.Name] = p
}

// Get returns the preset stored under name.
func (c *Collection) Get(name string) (*Preset, bool) {
	p, ok := c.presets[name]
	return p, ok
}

// Remove deletes a preset. Removing the selected preset clears the
// selection.
func (c *Collection) Remove(name string) {
	if name == c.selected {
		c.selected = ""
	}
	if _, ok := c.presets[name]; !ok {
		return
	}
	delete(c.presets, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Selected returns the selected preset name, or "".
func (c *Collection) Selected() string {
	return c.selected
}

// Select records the selected preset name.
func (c *Collection) Select(name string) {
	c.selected = name
}

// Names returns the preset names in insertion order.
func (c *Collection) Names() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of stored presets.
func (c *Collection) Len() int {
	return len(c.presets)
}

type collectionJSON struct {
	Selected string    `json:"selected,omitempty"`
	Presets  []*Preset `json:"presets"`
}

// MarshalJSON writes the collection as a selected name plus an ordered
// preset array.
func (c *Collection) MarshalJSON() ([]byte, error) {
	j := collectionJSON{Selected: c.selected, Presets: []*Preset{}}
	for _, name := range c.order {
		j.Presets = append(j.Presets, c.presets[name])
	}
	return json.Marshal(j)
}

// UnmarshalJSON reads a collection, indexing presets by name.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var j collectionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("error decoding preset collection: %w", err)
	}
	c.selected = j.Selected
	c.order = nil
	c.presets = map[string]*Preset{}
	for _, p := range j.Presets {
		if p != nil {
			c.Add(p)
		}
	}
	return nil
}

// NextName returns the first free auto-generated preset name, counting
// A..Z then AA..AZ, BA.. like spreadsheet columns.
func (c *Collection) NextName() string {
	for n := 0; ; n++ {
		name := sequenceName(n)
		if _, ok := c.presets[name]; !ok {
			return name
		}
	}
}

func sequenceName(n int) string {
	var b []byte
	for n++; n > 0; n /= 26 {
		n--
		b = append([]byte{'A' + byte(n%26)}, b...)
	}
	return string(b)
}
