package rules

import (
	"testing"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/model"
)

const (
	screenSize  = 84
	minimapSize = 64
)

var testRegistry = model.DefaultRegistry()

func unitID(name string) int {
	id, _ := testRegistry.Unit(name)
	return id
}

func actionID(name string) int {
	id, _ := testRegistry.Action(name)
	return id
}

func fill(l model.Layer, x0, y0, x1, y1, v int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			l.Set(x, y, v)
		}
	}
}

// baseObservation returns a top-left start: own units in the upper minimap
// rows, a 5x5 nexus centred at (42,32), one probe cell at (10,12), and 18
// free supply.
func baseObservation() model.Observation {
	minimap := model.NewLayer(minimapSize, minimapSize)
	fill(minimap, 8, 8, 12, 12, 1)

	units := model.NewLayer(screenSize, screenSize)
	fill(units, 40, 30, 44, 34, unitID(model.UnitNexus))
	units.Set(10, 12, unitID(model.UnitProbe))
	units.Set(60, 70, unitID(model.UnitProbe))

	return model.Observation{
		Minimap: model.MinimapLayers{PlayerRelative: minimap},
		Screen: model.ScreenLayers{
			UnitType: units,
			Power:    model.NewLayer(screenSize, screenSize),
		},
		// player_id, minerals, vespene, food_used, food_cap
		Player: []int{1, 400, 0, 12, 30},
		AvailableActions: []int{
			actionID(model.ActionNoOp),
			actionID(model.ActionSelectPoint),
			actionID(model.ActionBuildPylon),
			actionID(model.ActionBuildGateway),
			actionID(model.ActionTrainProbe),
		},
	}
}

func withoutAction(obs model.Observation, name string) model.Observation {
	id := actionID(name)
	var kept []int
	for _, a := range obs.AvailableActions {
		if a != id {
			kept = append(kept, a)
		}
	}
	obs.AvailableActions = kept
	return obs
}

func withSupply(obs model.Observation, used, cap int) model.Observation {
	obs.Player = []int{1, 400, 0, used, cap}
	return obs
}

func mustEngine(t *testing.T, name string) *Engine {
	t.Helper()
	p, err := ProfileByName(name)
	if err != nil {
		t.Fatalf("ProfileByName(%q): %v", name, err)
	}
	e, err := NewEngine(p, testRegistry)
	if err != nil {
		t.Fatalf("NewEngine(%q): %v", name, err)
	}
	return e
}

// stateIn returns a post-setup state pinned to phase p with a full window.
func stateIn(e *Engine, p Phase) AgentState {
	s := e.NewState()
	s.Scheduler = s.Scheduler.At(p)
	s.SetupComplete = true
	s.BaseTopLeft = true
	return s
}

func isNoOp(call ipc.FunctionCall) bool {
	return call.Function == actionID(model.ActionNoOp) && len(call.Arguments) == 0
}

func target(t *testing.T, call ipc.FunctionCall) model.Point {
	t.Helper()
	if len(call.Arguments) != 2 || len(call.Arguments[1]) != 2 {
		t.Fatalf("call %+v has no screen target", call)
	}
	return model.Point{X: call.Arguments[1][0], Y: call.Arguments[1][1]}
}
