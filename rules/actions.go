package rules

import (
	"log/slog"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/model"
)

func ActionSelectProbe(env RuleEnv) (AgentState, *ipc.FunctionCall, error) {
	target, err := env.firstUnit(model.UnitProbe)
	if err != nil {
		return env.State, nil, err
	}
	next := env.State
	next.Build = BuildPylon
	slog.Debug("selecting probe", "x", target.X, "y", target.Y)
	call := env.call(model.ActionSelectPoint, ipc.NotQueued, target.Args())
	return next, &call, nil
}

// ActionBuildPylon places the first pylon a fixed distance from the nexus,
// toward the map interior.
func ActionBuildPylon(env RuleEnv) (AgentState, *ipc.FunctionCall, error) {
	nexus, err := env.unitCentroid(model.UnitNexus)
	if err != nil {
		return env.State, nil, err
	}
	target := env.screenTarget(Transform(nexus, env.Profile.PylonOffset, env.State.BaseTopLeft))
	next := env.State
	next.Build = BuildDone
	if env.Profile.Gateway {
		next.Build = BuildGateway
	}
	slog.Debug("building pylon", "x", target.X, "y", target.Y)
	call := env.call(model.ActionBuildPylon, ipc.NotQueued, target.Args())
	return next, &call, nil
}

// ActionBuildGateway places a gateway beside the pylon, but only on a
// powered cell. An unpowered target issues nothing and waits.
func ActionBuildGateway(env RuleEnv) (AgentState, *ipc.FunctionCall, error) {
	pylon, err := env.unitCentroid(model.UnitPylon)
	if err != nil {
		return env.State, nil, err
	}
	target := env.screenTarget(Transform(pylon, env.Profile.GatewayOffset, env.State.BaseTopLeft))
	if env.Obs.Screen.Power.At(target.X, target.Y) != 1 {
		slog.Debug("gateway site unpowered", "x", target.X, "y", target.Y)
		return env.State, nil, nil
	}
	next := env.State
	next.Build = BuildDone
	slog.Debug("building gateway", "x", target.X, "y", target.Y)
	call := env.call(model.ActionBuildGateway, ipc.NotQueued, target.Args())
	return next, &call, nil
}

func ActionSelectNexus(env RuleEnv) (AgentState, *ipc.FunctionCall, error) {
	nexus, err := env.unitCentroid(model.UnitNexus)
	if err != nil {
		return env.State, nil, err
	}
	next := env.State
	next.Macro = MacroNexusSelected
	slog.Debug("selecting nexus", "x", nexus.X, "y", nexus.Y)
	call := env.call(model.ActionSelectPoint, ipc.NotQueued, nexus.Args())
	return next, &call, nil
}

// ActionTrainProbe queues a probe and drops the nexus selection so the next
// window starts from a clean latch.
func ActionTrainProbe(env RuleEnv) (AgentState, *ipc.FunctionCall, error) {
	next := env.State
	next.Macro = MacroIdle
	slog.Debug("training probe", "reserve", env.SupplyReserve())
	call := env.call(model.ActionTrainProbe, ipc.Queued)
	return next, &call, nil
}

func ActionSelectMacroProbe(env RuleEnv) (AgentState, *ipc.FunctionCall, error) {
	target, err := env.firstUnit(model.UnitProbe)
	if err != nil {
		return env.State, nil, err
	}
	next := env.State
	next.Macro = MacroProbeSelected
	slog.Debug("selecting probe for supply", "x", target.X, "y", target.Y)
	call := env.call(model.ActionSelectPoint, ipc.NotQueued, target.Args())
	return next, &call, nil
}

// ActionBuildSupplyPylon drops a pylon at a random non-negative offset from
// the nexus, then releases the probe so selection is retried next window.
func ActionBuildSupplyPylon(env RuleEnv) (AgentState, *ipc.FunctionCall, error) {
	nexus, err := env.unitCentroid(model.UnitNexus)
	if err != nil {
		return env.State, nil, err
	}
	offset := placementOffset(env.Profile.Seed, env.State.Draws, env.Profile.PlacementSpread)
	target := env.screenTarget(nexus.Add(offset))
	next := env.State
	next.Draws++
	next.Macro = MacroIdle
	slog.Debug("building supply pylon", "x", target.X, "y", target.Y, "reserve", env.SupplyReserve())
	call := env.call(model.ActionBuildPylon, ipc.NotQueued, target.Args())
	return next, &call, nil
}
