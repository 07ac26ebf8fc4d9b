package model

import "slices"

// Observation is the immutable snapshot the host sends every game step.
type Observation struct {
	Step             int           `json:"step"`
	Minimap          MinimapLayers `json:"minimap" jsonschema:"required"`
	Screen           ScreenLayers  `json:"screen" jsonschema:"required"`
	Player           []int         `json:"player" jsonschema:"required"`
	AvailableActions []int         `json:"available_actions" jsonschema:"required"`
}

type MinimapLayers struct {
	PlayerRelative Layer `json:"player_relative" jsonschema:"required"`
}

type ScreenLayers struct {
	UnitType Layer `json:"unit_type" jsonschema:"required"`
	Power    Layer `json:"power" jsonschema:"required"`
}

// ActionAvailable reports whether the host currently accepts function id.
func (o Observation) ActionAvailable(id int) bool {
	return slices.Contains(o.AvailableActions, id)
}

// PlayerValue reads the player vector at index i.
func (o Observation) PlayerValue(i int) (int, bool) {
	if i < 0 || i >= len(o.Player) {
		return 0, false
	}
	return o.Player[i], true
}
