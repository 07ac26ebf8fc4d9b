package rules

import "fmt"

// BuildStep is the position in the build-phase order. Each step is reachable
// only from its predecessor, so no combination of "pylon built but no probe
// selected" can be represented.
type BuildStep int

const (
	BuildSelectProbe BuildStep = iota
	BuildPylon
	BuildGateway
	BuildDone
)

func (b BuildStep) String() string {
	switch b {
	case BuildSelectProbe:
		return "select_probe"
	case BuildPylon:
		return "build_pylon"
	case BuildGateway:
		return "build_gateway"
	case BuildDone:
		return "done"
	}
	return fmt.Sprintf("build_step(%d)", int(b))
}

// MacroStep tracks what the macro phase currently has selected. Selecting a
// probe deselects the nexus in game, so the two latches share one value.
type MacroStep int

const (
	MacroIdle MacroStep = iota
	MacroNexusSelected
	MacroProbeSelected
)

func (m MacroStep) String() string {
	switch m {
	case MacroIdle:
		return "idle"
	case MacroNexusSelected:
		return "nexus_selected"
	case MacroProbeSelected:
		return "probe_selected"
	}
	return fmt.Sprintf("macro_step(%d)", int(m))
}

// AgentState is everything the agent remembers between steps of one episode.
// It is a plain value: Step takes one and returns the next.
type AgentState struct {
	Scheduler     Scheduler `json:"scheduler"`
	SetupComplete bool      `json:"setup_complete"`
	BaseTopLeft   bool      `json:"base_top_left"`
	Build         BuildStep `json:"build"`
	Macro         MacroStep `json:"macro"`
	// Draws counts placement RNG draws so each draw uses a fresh stream.
	Draws uint64 `json:"draws"`
	Steps int    `json:"steps"`
}

// NewState returns the state at the start of an episode for profile p.
func NewState(p Profile) AgentState {
	s := NewScheduler(p.CountMax)
	if !p.Scheduled {
		s = s.At(PhaseBuild)
	}
	return AgentState{Scheduler: s}
}

func (s AgentState) Phase() Phase { return s.Scheduler.Phase() }

// resetProgress clears every per-phase sub-state at a window boundary.
func (s AgentState) resetProgress() AgentState {
	s.Build = BuildSelectProbe
	s.Macro = MacroIdle
	return s
}
