package agent

import (
	"strings"
	"testing"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/model"
	"github.com/nstehr/saltbot/saltbot-core/rules"
)

var testRegistry = model.DefaultRegistry()

func setupState() rules.AgentState {
	s := rules.NewState(rules.DefaultProfile())
	s.SetupComplete = true
	s.BaseTopLeft = true
	return s
}

func TestDetectEvents_NoEvents(t *testing.T) {
	s := setupState()
	events := detectEvents(s, s, ipc.NewCall(0), testRegistry, 10)
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestDetectEvents_Orientation(t *testing.T) {
	prev := rules.NewState(rules.DefaultProfile())
	next := prev
	next.SetupComplete = true

	events := detectEvents(prev, next, ipc.NewCall(0), testRegistry, 1)
	if !hasEventKind(events, EventOrientationDetected) {
		t.Fatalf("expected orientation event, got %v", events)
	}
	if !strings.Contains(events[0].Detail, "bottom-right") {
		t.Errorf("detail = %q, want bottom-right", events[0].Detail)
	}

	next.BaseTopLeft = true
	events = detectEvents(prev, next, ipc.NewCall(0), testRegistry, 1)
	if !strings.Contains(events[0].Detail, "top-left") {
		t.Errorf("detail = %q, want top-left", events[0].Detail)
	}

	// Already set up: no repeat.
	if hasEventKind(detectEvents(next, next, ipc.NewCall(0), testRegistry, 2), EventOrientationDetected) {
		t.Error("orientation should be reported once")
	}
}

func TestDetectEvents_PhaseTransition(t *testing.T) {
	prev := setupState()
	next := prev
	next.Scheduler = prev.Scheduler.Advance()

	events := detectEvents(prev, next, ipc.NewCall(0), testRegistry, 11)
	if !hasEventKind(events, EventPhaseTransition) {
		t.Fatalf("expected phase transition, got %v", events)
	}
	if events[0].Detail != "macro -> build" {
		t.Errorf("detail = %q", events[0].Detail)
	}
	if hasEventKind(events, EventBuildInterrupted) {
		t.Error("leaving macro is not a build interruption")
	}
}

func TestDetectEvents_BuildInterrupted(t *testing.T) {
	tests := []struct {
		step rules.BuildStep
		want bool
	}{
		{rules.BuildSelectProbe, false},
		{rules.BuildPylon, true},
		{rules.BuildGateway, true},
		{rules.BuildDone, false},
	}
	for _, tc := range tests {
		prev := setupState()
		prev.Scheduler = prev.Scheduler.At(rules.PhaseBuild)
		prev.Build = tc.step
		next := prev
		next.Scheduler = prev.Scheduler.Advance()
		next.Build = rules.BuildSelectProbe

		got := hasEventKind(detectEvents(prev, next, ipc.NewCall(0), testRegistry, 22), EventBuildInterrupted)
		if got != tc.want {
			t.Errorf("build step %s: interrupted = %v, want %v", tc.step, got, tc.want)
		}
	}
}

func TestDetectEvents_StructureOrdered(t *testing.T) {
	s := setupState()
	pylon := ipc.NewCall(70, ipc.NotQueued, []int{42, 52})
	events := detectEvents(s, s, pylon, testRegistry, 5)
	if len(events) != 1 || events[0].Kind != EventStructureOrdered {
		t.Fatalf("events = %v", events)
	}
	if events[0].Detail != "pylon at (42, 52)" {
		t.Errorf("detail = %q", events[0].Detail)
	}

	gateway := ipc.NewCall(57, ipc.NotQueued, []int{52, 57})
	events = detectEvents(s, s, gateway, testRegistry, 6)
	if len(events) != 1 || events[0].Detail != "gateway at (52, 57)" {
		t.Errorf("events = %v", events)
	}
}

func TestDetectEvents_ProbeTrained(t *testing.T) {
	s := setupState()
	events := detectEvents(s, s, ipc.NewCall(485, ipc.Queued), testRegistry, 3)
	if !hasEventKind(events, EventProbeTrained) {
		t.Errorf("expected probe trained, got %v", events)
	}
}

func TestDetectEvents_SelectIsQuiet(t *testing.T) {
	s := setupState()
	events := detectEvents(s, s, ipc.NewCall(2, ipc.NotQueued, []int{10, 12}), testRegistry, 3)
	if len(events) != 0 {
		t.Errorf("select_point should not raise events, got %v", events)
	}
}

func TestFormatEvents_Empty(t *testing.T) {
	if got := formatEvents(nil); got != "" {
		t.Errorf("formatEvents(nil) = %q", got)
	}
}

func TestFormatEvents_MultipleEvents(t *testing.T) {
	events := []Event{
		{Kind: EventOrientationDetected, Step: 1, Detail: "base in top-left corner"},
		{Kind: EventStructureOrdered, Step: 12, Detail: "pylon at (42, 52)"},
	}
	got := formatEvents(events)
	if !strings.Contains(got, "[step 1] orientation_detected: base in top-left corner") {
		t.Errorf("missing first event in %q", got)
	}
	if strings.Count(got, "\n") != 2 {
		t.Errorf("want one line per event, got %q", got)
	}
}

func hasEventKind(events []Event, kind EventKind) bool {
	for _, e := range events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
