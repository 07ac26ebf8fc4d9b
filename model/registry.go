package model

import (
	"fmt"
	"maps"
	"slices"
)

// Action names in the capability table.
const (
	ActionNoOp         = "no_op"
	ActionSelectPoint  = "select_point"
	ActionBuildPylon   = "build_pylon"
	ActionBuildGateway = "build_gateway"
	ActionTrainProbe   = "train_probe"
)

// Unit type names.
const (
	UnitNexus   = "nexus"
	UnitProbe   = "probe"
	UnitPylon   = "pylon"
	UnitGateway = "gateway"
)

// Ownership codes on the player_relative layer.
const (
	OwnerSelf    = "self"
	OwnerNeutral = "neutral"
	OwnerHostile = "hostile"
)

// Player vector slots.
const (
	PlayerFoodUsed = "food_used"
	PlayerFoodCap  = "food_cap"
)

// Registry maps logical names to the numeric identifiers the host uses.
// The host owns these numbers; the agent only ever refers to names.
type Registry struct {
	Actions   map[string]int `json:"actions,omitempty" yaml:"actions,omitempty"`
	Units     map[string]int `json:"units,omitempty" yaml:"units,omitempty"`
	Ownership map[string]int `json:"ownership,omitempty" yaml:"ownership,omitempty"`
	Player    map[string]int `json:"player,omitempty" yaml:"player,omitempty"`
}

// DefaultRegistry returns the identifiers of the stock feature-layer host.
func DefaultRegistry() Registry {
	return Registry{
		Actions: map[string]int{
			ActionNoOp:         0,
			ActionSelectPoint:  2,
			ActionBuildGateway: 57,
			ActionBuildPylon:   70,
			ActionTrainProbe:   485,
		},
		Units: map[string]int{
			UnitNexus:   59,
			UnitPylon:   60,
			UnitGateway: 62,
			UnitProbe:   84,
		},
		Ownership: map[string]int{
			OwnerSelf:    1,
			OwnerNeutral: 3,
			OwnerHostile: 4,
		},
		Player: map[string]int{
			PlayerFoodUsed: 3,
			PlayerFoodCap:  4,
		},
	}
}

func (r Registry) Action(name string) (int, bool) {
	id, ok := r.Actions[name]
	return id, ok
}

func (r Registry) Unit(name string) (int, bool) {
	id, ok := r.Units[name]
	return id, ok
}

func (r Registry) Owner(name string) (int, bool) {
	id, ok := r.Ownership[name]
	return id, ok
}

func (r Registry) PlayerIndex(name string) (int, bool) {
	i, ok := r.Player[name]
	return i, ok
}

// Merge returns a copy of r with every entry in override applied on top.
func (r Registry) Merge(override Registry) Registry {
	return Registry{
		Actions:   mergeTable(r.Actions, override.Actions),
		Units:     mergeTable(r.Units, override.Units),
		Ownership: mergeTable(r.Ownership, override.Ownership),
		Player:    mergeTable(r.Player, override.Player),
	}
}

func mergeTable(base, override map[string]int) map[string]int {
	out := make(map[string]int, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// Validate checks that every name the agent relies on is present.
func (r Registry) Validate() error {
	checks := []struct {
		table string
		m     map[string]int
		names []string
	}{
		{"actions", r.Actions, []string{ActionNoOp, ActionSelectPoint, ActionBuildPylon, ActionBuildGateway, ActionTrainProbe}},
		{"units", r.Units, []string{UnitNexus, UnitProbe, UnitPylon}},
		{"ownership", r.Ownership, []string{OwnerSelf, OwnerNeutral, OwnerHostile}},
		{"player", r.Player, []string{PlayerFoodUsed, PlayerFoodCap}},
	}
	for _, c := range checks {
		for _, n := range c.names {
			if _, ok := c.m[n]; !ok {
				return fmt.Errorf("registry %s: missing %q", c.table, n)
			}
		}
	}
	for _, n := range slices.Sorted(maps.Keys(r.Player)) {
		if r.Player[n] < 0 {
			return fmt.Errorf("registry player: negative index for %q", n)
		}
	}
	return nil
}
