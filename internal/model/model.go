package model

import (
	"encoding/json"
	"strconv"
)

// Steam application ids for the games whose items we can preview.
const (
	AppIDTF2 = 440
	AppIDCS2 = 730
)

// PaintKitToolIndex is the definition index of the base paintkit tool,
// used as the display weapon when a listing is a bare warpaint.
const PaintKitToolIndex = 9536

// GenerationState tracks the lifecycle of a single preview generation.
type GenerationState int

const (
	GenerationStarted GenerationState = iota
	GenerationSuccess
	GenerationFailure
	GenerationLoadingModel
	GenerationRetrievingItemData
	GenerationWaitingForGeneration
)

func (s GenerationState) String() string {
	switch s {
	case GenerationStarted:
		return "started"
	case GenerationSuccess:
		return "success"
	case GenerationFailure:
		return "failure"
	case GenerationLoadingModel:
		return "loading_model"
	case GenerationRetrievingItemData:
		return "retrieving_item_data"
	case GenerationWaitingForGeneration:
		return "waiting_for_generation"
	default:
		return "unknown"
	}
}

// Team selects the red or blu variant of skins, tints and effects.
type Team int

const (
	TeamRed Team = iota
	TeamBlu
	TeamNone
)

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "red"
	case TeamBlu:
		return "blu"
	default:
		return "none"
	}
}

// AssetAction is an action entry attached to a market asset. The inspect
// action carries the steam:// link used to retrieve item customizations.
type AssetAction struct {
	Link string `json:"link"`
	Name string `json:"name"`
}

// Asset describes a market listing asset as returned by the listing page.
type Asset struct {
	AppID          int           `json:"appid"`
	ContextID      string        `json:"contextid"`
	ID             string        `json:"id"`
	ClassID        string        `json:"classid"`
	InstanceID     string        `json:"instanceid"`
	MarketHashName string        `json:"market_hash_name"`
	Actions        []AssetAction `json:"actions"`
}

// AppData is the game-specific part of a class info record.
type AppData struct {
	DefIndex json.Number `json:"def_index"`
}

// ClassInfo is the result of an asset class info lookup.
type ClassInfo struct {
	ClassID        string        `json:"classid"`
	Name           string        `json:"name"`
	MarketHashName string        `json:"market_hash_name"`
	Actions        []AssetAction `json:"actions"`
	AppData        *AppData      `json:"app_data"`
}

// DefIndex returns the definition index carried in the class info,
// or false when the record has none.
func (c *ClassInfo) DefIndex() (int, bool) {
	if c == nil || c.AppData == nil {
		return 0, false
	}
	n, err := c.AppData.DefIndex.Int64()
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// EconItem is the customization payload returned by the inspect service.
// Numeric ids are kept as json.Number since item ids exceed int53 upstream.
type EconItem struct {
	DefIndex             int          `json:"defindex"`
	PaintIndex           *int         `json:"paint_index,omitempty"`
	PaintWear            *float64     `json:"paint_wear,omitempty"`
	CustomPaintkitSeed   *json.Number `json:"custom_paintkit_seed,omitempty"`
	OriginalID           *json.Number `json:"original_id,omitempty"`
	ID                   *json.Number `json:"id,omitempty"`
	ItemStyleOverride    *int         `json:"item_style_override,omitempty"`
	IsStrange            bool         `json:"is_strange,omitempty"`
	IsFestivized         bool         `json:"is_festivized,omitempty"`
	KillstreakIdleEffect int          `json:"killstreak_idleeffect,omitempty"`
	SetAttachedParticle  int          `json:"set_attached_particle,omitempty"`
	KillEater            int          `json:"kill_eater,omitempty"`
	UniqueCraftIndex     *int         `json:"unique_craft_index,omitempty"`
}

// Seed derives the warpaint pattern seed. The custom seed wins, then the
// original item id, then the current item id. Missing everything seeds 0.
func (e *EconItem) Seed() uint64 {
	for _, n := range []*json.Number{e.CustomPaintkitSeed, e.OriginalID, e.ID} {
		if n == nil {
			continue
		}
		if v, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return v
		}
	}
	return 0
}
