package dispatcher

// Event names published by the loadout services.
const (
	EventFiltersUpdated  = "filters_updated"
	EventItemAdded       = "item_added"
	EventItemRemoved     = "item_removed"
	EventItemPinned      = "item_pinned"
	EventItemsLoaded     = "items_loaded"
	EventSystemsLoaded   = "systems_loaded"
	EventGenerationState = "generation_state"
	EventRefreshListing  = "refresh_listing"
	EventTeamChanged     = "team_changed"
)
