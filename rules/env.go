package rules

import (
	"fmt"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/model"
)

// RuleEnv wraps one step's observation and state and exposes helper methods
// callable from expr expressions.
type RuleEnv struct {
	Obs      model.Observation `expr:"-"`
	State    AgentState        `expr:"-"`
	Registry model.Registry    `expr:"-"`
	Profile  Profile           `expr:"-"`

	BuildStep        string
	MacroStep        string
	ReserveThreshold int
}

func newRuleEnv(state AgentState, obs model.Observation, reg model.Registry, p Profile) RuleEnv {
	return RuleEnv{
		Obs:              obs,
		State:            state,
		Registry:         reg,
		Profile:          p,
		BuildStep:        state.Build.String(),
		MacroStep:        state.Macro.String(),
		ReserveThreshold: p.ReserveThreshold,
	}
}

// Available reports whether the named action is currently legal.
func (e RuleEnv) Available(name string) bool {
	id, ok := e.Registry.Action(name)
	return ok && e.Obs.ActionAvailable(id)
}

// SupplyReserve is unused supply capacity: cap minus used.
func (e RuleEnv) SupplyReserve() int {
	capIdx, ok1 := e.Registry.PlayerIndex(model.PlayerFoodCap)
	usedIdx, ok2 := e.Registry.PlayerIndex(model.PlayerFoodUsed)
	if !ok1 || !ok2 {
		return 0
	}
	cap, _ := e.Obs.PlayerValue(capIdx)
	used, _ := e.Obs.PlayerValue(usedIdx)
	return cap - used
}

// HasUnit reports whether any screen cell shows the named unit type.
func (e RuleEnv) HasUnit(name string) bool {
	return e.UnitCells(name) > 0
}

// UnitCells counts screen cells showing the named unit type.
func (e RuleEnv) UnitCells(name string) int {
	id, ok := e.Registry.Unit(name)
	if !ok {
		return 0
	}
	return e.Obs.Screen.UnitType.Count(id)
}

// unitCentroid locates the named unit type on screen.
func (e RuleEnv) unitCentroid(name string) (model.Point, error) {
	id, ok := e.Registry.Unit(name)
	if !ok {
		return model.Point{}, fmt.Errorf("unit %q not in registry", name)
	}
	c, ok := e.Obs.Screen.UnitType.Centroid(id)
	if !ok {
		return model.Point{}, fmt.Errorf("centroid of %s: %w", name, ErrNoMatch)
	}
	return c, nil
}

// firstUnit returns the first screen cell of the named unit type in
// row-major order. Not the nearest: the host resolves the click to a unit.
func (e RuleEnv) firstUnit(name string) (model.Point, error) {
	id, ok := e.Registry.Unit(name)
	if !ok {
		return model.Point{}, fmt.Errorf("unit %q not in registry", name)
	}
	p, ok := e.Obs.Screen.UnitType.First(id)
	if !ok {
		return model.Point{}, fmt.Errorf("locate %s: %w", name, ErrNoMatch)
	}
	return p, nil
}

// call builds a FunctionCall for a registry action. Engine construction
// validates the registry, so the lookup cannot miss for built-in names.
func (e RuleEnv) call(name string, args ...[]int) ipc.FunctionCall {
	id, _ := e.Registry.Action(name)
	return ipc.NewCall(id, args...)
}

// screenTarget keeps a computed build site on screen.
func (e RuleEnv) screenTarget(p model.Point) model.Point {
	return e.Obs.Screen.UnitType.Clamp(p)
}
