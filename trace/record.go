// Package trace persists what the agent did: one compressed JSONL file of
// step records per episode, plus a sqlite index of episodes.
package trace

import (
	"time"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
)

// StepRecord is one agent decision.
type StepRecord struct {
	Episode string           `json:"episode"`
	Seq     int              `json:"seq"`
	Step    int              `json:"step"`
	Phase   string           `json:"phase"`
	Build   string           `json:"build"`
	Macro   string           `json:"macro"`
	Call    ipc.FunctionCall `json:"call"`
	Events  []string         `json:"events,omitempty"`
	At      time.Time        `json:"at"`
}

// Episode is one row of the episode index.
type Episode struct {
	ID        string
	Player    string
	Race      string
	Profile   string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   string
	Steps     int
	Actions   int
	TracePath string
}

// Ended reports whether the host closed the episode.
func (e Episode) Ended() bool { return !e.EndedAt.IsZero() }
