// Package filter decides which item templates stay visible in the item
// picker for the current character and filter settings.
package filter

import (
	"fmt"
	"strings"

	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/registry"
)

// Result classifies one template against the active filters.
type Result int

const (
	// Ok keeps the template visible.
	Ok Result = iota
	// ExcludedClass hides the template without counting it as filtered
	// out, so the excluded counter only reflects filter settings.
	ExcludedClass
	// ExcludedFilter hides the template and counts it.
	ExcludedFilter
	// Conflicting keeps the template visible but flagged, as it shares
	// an equip region with an equipped item.
	Conflicting
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case ExcludedClass:
		return "excluded_class"
	case ExcludedFilter:
		return "excluded_filter"
	case Conflicting:
		return "conflicting"
	default:
		return "unknown"
	}
}

// ActiveItem is the view of an equipped item the filter needs.
type ActiveItem interface {
	TemplateID() string
	EquipRegions() []string
}

// ItemFilter holds the picker filter settings. Tri-state settings use
// pointers; nil means the setting is not applied.
type ItemFilter struct {
	Name             string
	Selected         bool
	Workshop         bool
	HideConflict     *bool
	TournamentMedals bool

	ShowMultiClass      bool
	ShowOneClass        bool
	ShowAllClass        bool
	DoNotFilterPerClass bool

	Pinned []string

	Paintable    *bool
	Warpaintable *bool
	Halloween    *bool

	DisplayMedals    bool
	DisplayWeapons   bool
	DisplayCosmetics bool
	DisplayTaunts    bool

	Collection string
}

// New returns a filter with every class-count bucket visible.
func New() *ItemFilter {
	return &ItemFilter{
		ShowMultiClass: true,
		ShowOneClass:   true,
		ShowAllClass:   true,
	}
}

// weaponSlots are the item slots treated as weapons when filtering.
var weaponSlots = map[string]struct{}{
	"primary":        {},
	"secondary":      {},
	"melee":          {},
	"pda":            {},
	"pda2":           {},
	"building":       {},
	"force_building": {},
}

// Match classifies a template. class is nil when no character is
// selected. excluded is incremented for every template hidden by a
// filter setting, but not for class or name mismatches.
func (f *ItemFilter) Match(item *registry.ItemTemplate, excluded *int, class *model.CharacterClass, active []ActiveItem) Result {
	if item.IsHidden() {
		return ExcludedFilter
	}

	className := "scout"
	if class != nil {
		if n := class.Name(); n != "" {
			className = n
		}
	}

	var isWeapon, isTaunt bool
	switch slot := item.ItemSlotPerClass(className); {
	case slot == "taunt":
		isTaunt = true
	default:
		_, isWeapon = weaponSlots[slot]
	}

	if !f.DoNotFilterPerClass && class != nil && !class.IsPlaceholder() && *class != model.ClassRandom && !item.UsedByClass(*class) {
		return ExcludedClass
	}

	if result, ok := f.matchName(item); !ok {
		return result
	}

	if !isWeapon && f.Paintable != nil && *f.Paintable != item.IsPaintable() {
		*excluded++
		return ExcludedFilter
	}

	if isWeapon && f.Warpaintable != nil && *f.Warpaintable != item.IsWarpaintable() {
		*excluded++
		return ExcludedFilter
	}

	if f.Halloween != nil && *f.Halloween != item.IsHalloweenRestricted() {
		*excluded++
		return ExcludedFilter
	}

	if f.filterDisplayKind(item, isWeapon, isTaunt) {
		*excluded++
		return ExcludedFilter
	}

	classCount := item.ClassCount()
	if !f.ShowOneClass && classCount == 1 {
		*excluded++
		return ExcludedFilter
	}
	if !f.ShowMultiClass && classCount > 1 && classCount < 9 {
		*excluded++
		return ExcludedFilter
	}
	if !f.ShowAllClass && classCount == 9 {
		*excluded++
		return ExcludedFilter
	}

	if f.Selected {
		for _, pinned := range f.Pinned {
			if pinned == item.ID {
				return Ok
			}
		}
		for _, activeItem := range active {
			if activeItem.TemplateID() == item.ID {
				return Ok
			}
		}
		*excluded++
		return ExcludedFilter
	}

	if f.Collection != "" && f.Collection != item.Def.Collection {
		*excluded++
		return ExcludedFilter
	}

	if f.TournamentMedals != item.IsTournamentMedal() {
		*excluded++
		return ExcludedFilter
	}

	highlightConflict := false
	if f.HideConflict != nil {
		for _, activeItem := range active {
			if activeItem.TemplateID() == item.ID {
				continue
			}
			if HasConflict(activeItem.EquipRegions(), item.Def.EquipRegions) {
				if *f.HideConflict {
					*excluded++
					return ExcludedFilter
				}
				highlightConflict = true
			}
		}
	}

	if f.Workshop != item.IsWorkshop() {
		return ExcludedClass
	}

	if highlightConflict {
		return Conflicting
	}
	return Ok
}

// matchName applies the ; separated name filter. A term prefixed with
// - excludes matching items. The template must match at least one
// positive term to survive.
func (f *ItemFilter) matchName(item *registry.ItemTemplate) (Result, bool) {
	if f.Name == "" {
		return Ok, true
	}

	ret := false
	positive := false
	lowerName := strings.ToLower(item.Name())

	for _, term := range strings.Split(f.Name, ";") {
		term = strings.TrimSpace(term)
		if term == "" || term == "-" {
			continue
		}

		exclude := strings.HasPrefix(term, "-")
		if exclude {
			term = term[1:]
		}

		if item.HasKeyword(term) {
			if exclude {
				return ExcludedClass, false
			}
			ret = true
		} else if exclude {
			ret = true
		}

		if strings.Contains(lowerName, term) {
			if exclude {
				return ExcludedClass, false
			}
			ret = true
		} else if exclude {
			ret = true
		}

		if !exclude && ret {
			positive = true
		}
	}

	if !ret || !positive {
		return ExcludedClass, false
	}
	return Ok, true
}

// filterDisplayKind reports whether the display toggles hide the item.
// With no toggle active every kind stays visible.
func (f *ItemFilter) filterDisplayKind(item *registry.ItemTemplate, isWeapon, isTaunt bool) bool {
	if !f.DisplayMedals && !f.DisplayWeapons && !f.DisplayCosmetics && !f.DisplayTaunts {
		return false
	}

	filterWeapon := true
	filterMedal := true
	filterCosmetic := true
	filterTaunt := true

	isMedal := item.IsMedal()
	if f.DisplayMedals && isMedal {
		filterMedal = false
	}

	if f.DisplayWeapons || f.DisplayCosmetics || f.DisplayTaunts {
		switch {
		case isWeapon:
			if f.DisplayWeapons {
				filterWeapon = false
			}
		case isTaunt:
			if f.DisplayTaunts {
				filterTaunt = false
			}
		default:
			if f.DisplayCosmetics && !isMedal {
				filterCosmetic = false
			}
		}
	}

	return filterWeapon && filterMedal && filterCosmetic && filterTaunt
}

// Attribute names one filter setting.
type Attribute string

const (
	AttrName                Attribute = "name"
	AttrSelected            Attribute = "selected"
	AttrWorkshop            Attribute = "workshop"
	AttrHideConflict        Attribute = "hide_conflict"
	AttrTournamentMedals    Attribute = "tournament_medals"
	AttrShowMultiClass      Attribute = "show_multi_class"
	AttrShowOneClass        Attribute = "show_one_class"
	AttrShowAllClass        Attribute = "show_all_class"
	AttrDoNotFilterPerClass Attribute = "do_not_filter_per_class"
	AttrPaintable           Attribute = "paintable"
	AttrWarpaintable        Attribute = "warpaintable"
	AttrHalloween           Attribute = "halloween"
	AttrDisplayMedals       Attribute = "display_medals"
	AttrDisplayWeapons      Attribute = "display_weapons"
	AttrDisplayCosmetics    Attribute = "display_cosmetics"
	AttrDisplayTaunts       Attribute = "display_taunts"
	AttrCollection          Attribute = "collection"
)

// SetAttribute updates one setting from an untyped value. A nil value
// clears a tri-state setting.
func (f *ItemFilter) SetAttribute(attribute Attribute, value any) error {
	boolValue := func() bool {
		b, _ := value.(bool)
		return b
	}
	triState := func() *bool {
		if value == nil {
			return nil
		}
		b, _ := value.(bool)
		return &b
	}

	switch attribute {
	case AttrName:
		s, _ := value.(string)
		f.Name = s
	case AttrSelected:
		f.Selected = boolValue()
	case AttrWorkshop:
		f.Workshop = boolValue()
	case AttrHideConflict:
		f.HideConflict = triState()
	case AttrTournamentMedals:
		f.TournamentMedals = boolValue()
	case AttrShowMultiClass:
		f.ShowMultiClass = boolValue()
	case AttrShowOneClass:
		f.ShowOneClass = boolValue()
	case AttrShowAllClass:
		f.ShowAllClass = boolValue()
	case AttrDoNotFilterPerClass:
		f.DoNotFilterPerClass = boolValue()
	case AttrPaintable:
		f.Paintable = triState()
	case AttrWarpaintable:
		f.Warpaintable = triState()
	case AttrHalloween:
		f.Halloween = triState()
	case AttrDisplayMedals:
		f.DisplayMedals = boolValue()
	case AttrDisplayWeapons:
		f.DisplayWeapons = boolValue()
	case AttrDisplayCosmetics:
		f.DisplayCosmetics = boolValue()
	case AttrDisplayTaunts:
		f.DisplayTaunts = boolValue()
	case AttrCollection:
		s, _ := value.(string)
		f.Collection = s
	default:
		return fmt.Errorf("unknown filter attribute %q", string(attribute))
	}
	return nil
}
