package rules

import "fmt"

// Phase is the scheduler's current high-level mode.
type Phase int

const (
	PhaseMacro Phase = iota
	PhaseBuild
	PhaseMicro
)

// phaseCycle is the fixed round-robin order. The scheduler indexes into it
// modulo its length rather than holding an iterator.
var phaseCycle = [...]Phase{PhaseMacro, PhaseBuild, PhaseMicro}

func (p Phase) String() string {
	switch p {
	case PhaseMacro:
		return "macro"
	case PhaseBuild:
		return "build"
	case PhaseMicro:
		return "micro"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// DefaultCountMax is the number of steps a phase window lasts after its first.
const DefaultCountMax = 10

// Scheduler is a timer-driven round-robin over phaseCycle. It never looks at
// game state: a phase gets its window whether or not its work finished.
type Scheduler struct {
	Index     int `json:"index"`
	Countdown int `json:"countdown"`
	CountMax  int `json:"count_max"`
}

// NewScheduler starts in macro with a full countdown.
func NewScheduler(countMax int) Scheduler {
	return Scheduler{Index: 0, Countdown: countMax, CountMax: countMax}
}

// Phase returns the active phase.
func (s Scheduler) Phase() Phase {
	return phaseCycle[mod(s.Index, len(phaseCycle))]
}

// Tick runs one step of the timer. At zero it advances to the next phase and
// refills the countdown; otherwise it decrements. advanced reports which.
func (s Scheduler) Tick() (next Scheduler, advanced bool) {
	if s.Countdown <= 0 {
		return s.Advance(), true
	}
	s.Countdown--
	return s, false
}

// Advance moves to the next phase in the cycle with a full countdown.
func (s Scheduler) Advance() Scheduler {
	s.Index = mod(s.Index+1, len(phaseCycle))
	s.Countdown = s.CountMax
	return s
}

// At returns a scheduler pinned to phase p with a full countdown.
func (s Scheduler) At(p Phase) Scheduler {
	for i, c := range phaseCycle {
		if c == p {
			s.Index = i
		}
	}
	s.Countdown = s.CountMax
	return s
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
