package agent

import (
	"fmt"
	"strings"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/model"
	"github.com/nstehr/saltbot/saltbot-core/rules"
)

// EventKind identifies a notable moment in an episode.
type EventKind string

const (
	EventOrientationDetected EventKind = "orientation_detected"
	EventPhaseTransition     EventKind = "phase_transition"
	EventBuildInterrupted    EventKind = "build_interrupted"
	EventStructureOrdered    EventKind = "structure_ordered"
	EventProbeTrained        EventKind = "probe_trained"
)

// Event is detected by diffing the state before and after a step together
// with the call that step emitted.
type Event struct {
	Kind   EventKind
	Step   int
	Detail string
}

func (e Event) String() string {
	return fmt.Sprintf("[step %d] %s: %s", e.Step, e.Kind, e.Detail)
}

// detectEvents compares consecutive agent states. step is the host's step
// counter for the observation that produced next.
func detectEvents(prev, next rules.AgentState, call ipc.FunctionCall, reg model.Registry, step int) []Event {
	var events []Event

	if !prev.SetupComplete && next.SetupComplete {
		corner := "bottom-right"
		if next.BaseTopLeft {
			corner = "top-left"
		}
		events = append(events, Event{
			Kind:   EventOrientationDetected,
			Step:   step,
			Detail: "base in " + corner + " corner",
		})
	}

	if prev.Phase() != next.Phase() {
		events = append(events, Event{
			Kind:   EventPhaseTransition,
			Step:   step,
			Detail: fmt.Sprintf("%s -> %s", prev.Phase(), next.Phase()),
		})
		// The window closed with the build order half done.
		if prev.Phase() == rules.PhaseBuild && prev.Build != rules.BuildSelectProbe && prev.Build != rules.BuildDone {
			events = append(events, Event{
				Kind:   EventBuildInterrupted,
				Step:   step,
				Detail: "build order reset at " + prev.Build.String(),
			})
		}
	}

	switch call.Function {
	case actionID(reg, model.ActionBuildPylon):
		events = append(events, structureEvent(model.UnitPylon, call, step))
	case actionID(reg, model.ActionBuildGateway):
		events = append(events, structureEvent(model.UnitGateway, call, step))
	case actionID(reg, model.ActionTrainProbe):
		events = append(events, Event{Kind: EventProbeTrained, Step: step, Detail: "probe queued at nexus"})
	}

	return events
}

func structureEvent(unit string, call ipc.FunctionCall, step int) Event {
	detail := unit
	if len(call.Arguments) > 1 && len(call.Arguments[1]) == 2 {
		detail = fmt.Sprintf("%s at (%d, %d)", unit, call.Arguments[1][0], call.Arguments[1][1])
	}
	return Event{Kind: EventStructureOrdered, Step: step, Detail: detail}
}

// actionID returns -1 for unknown names so it never matches a real call.
func actionID(reg model.Registry, name string) int {
	id, ok := reg.Action(name)
	if !ok {
		return -1
	}
	return id
}

// formatEvents renders events one per line.
func formatEvents(events []Event) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	return b.String()
}

func eventStrings(events []Event) []string {
	if len(events) == 0 {
		return nil
	}
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = string(e.Kind) + ": " + e.Detail
	}
	return out
}
