package ipc

import "github.com/nstehr/saltbot/saltbot-core/model"

// These constants must stay in sync with the host harness's message names.
const (
	TypeHello       = "hello"
	TypeAck         = "ack"
	TypeObservation = "observation"
	TypeAction      = "action"
	TypeEpisodeEnd  = "episode_end"
)

type HelloMessage struct {
	Player string `json:"player" jsonschema:"required"`
	Race   string `json:"race,omitempty"`
	// Profile selects the agent behavior for this session; empty keeps the
	// sidecar's configured profile.
	Profile string `json:"profile,omitempty"`
	// Registry overrides numeric identifiers when the host build differs
	// from the stock one.
	Registry *model.Registry `json:"registry,omitempty"`
}

type AckMessage struct {
	Status string `json:"status"`
}

// EpisodeEndMessage tells the sidecar the game is over so per-episode
// state can be discarded.
type EpisodeEndMessage struct {
	Outcome string `json:"outcome,omitempty"`
	Step    int    `json:"step"`
}
