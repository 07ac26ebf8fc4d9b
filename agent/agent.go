package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/model"
	"github.com/nstehr/saltbot/saltbot-core/rules"
	"github.com/nstehr/saltbot/saltbot-core/trace"
)

// Recorder receives the agent's trace. *trace.Recorder satisfies it.
type Recorder interface {
	BeginEpisode(ctx context.Context, ep trace.Episode) error
	RecordStep(rec trace.StepRecord) error
	EndEpisode(ctx context.Context, id, outcome string, steps, actions int) error
}

// Agent owns the decision-making for a single player session.
type Agent struct {
	Conn   *ipc.Connection
	Player string
	Race   string
	Engine *rules.Engine

	// Validator checks incoming payloads against their schemas. Nil skips
	// validation.
	Validator *ipc.Validator
	Recorder  Recorder
	// StepDelay is slept before answering each observation so a human can
	// follow along.
	StepDelay time.Duration
	// Profiles resolves a profile requested in the hello message.
	Profiles func(name string) (rules.Profile, error)

	ctx context.Context

	mu      sync.Mutex
	state   rules.AgentState
	episode string
	actions int
	events  []Event
}

func New(ctx context.Context, conn *ipc.Connection, engine *rules.Engine) *Agent {
	return &Agent{
		Conn:     conn,
		Engine:   engine,
		Profiles: rules.ProfileByName,
		ctx:      ctx,
		state:    engine.NewState(),
	}
}

// Register installs the agent's handlers on its connection.
func (a *Agent) Register() {
	a.Conn.RegisterHandler(ipc.TypeHello, a.HandleHello)
	a.Conn.RegisterHandler(ipc.TypeObservation, a.HandleObservation)
	a.Conn.RegisterHandler(ipc.TypeEpisodeEnd, a.HandleEpisodeEnd)
}

// State returns a copy of the current episode state.
func (a *Agent) State() rules.AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// HandleHello completes the handshake so the host knows the sidecar is ready.
// A requested profile is swapped into the engine; a registry override builds
// a new one. Either closes the running episode and starts a fresh state.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	if err := a.validate(env); err != nil {
		return nil, err
	}
	var hello ipc.HelloMessage
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return nil, fmt.Errorf("unmarshal hello: %w", err)
	}

	a.Player = hello.Player
	a.Race = hello.Race
	a.Conn.Player = hello.Player
	slog.Info("player identified", "player", a.Player, "race", a.Race)

	if hello.Profile != "" || hello.Registry != nil {
		// A running episode cannot change rules halfway through its trace.
		a.EndEpisode("reconfigured")
		if err := a.reconfigure(hello); err != nil {
			return nil, err
		}
	}

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

func (a *Agent) reconfigure(hello ipc.HelloMessage) error {
	profile := a.Engine.Profile()
	if hello.Profile != "" {
		p, err := a.Profiles(hello.Profile)
		if err != nil {
			return fmt.Errorf("hello profile: %w", err)
		}
		profile = p
	}

	engine := a.Engine
	if hello.Registry != nil {
		var err error
		engine, err = rules.NewEngine(profile, a.Engine.Registry().Merge(*hello.Registry))
		if err != nil {
			return fmt.Errorf("hello: %w", err)
		}
	} else if err := engine.Swap(profile); err != nil {
		return fmt.Errorf("hello: %w", err)
	}

	a.mu.Lock()
	a.Engine = engine
	a.state = engine.NewState()
	a.mu.Unlock()
	slog.Info("session configured", "player", a.Player, "profile", profile.Name, "registryOverride", hello.Registry != nil)
	return nil
}

// HandleObservation runs one agent step and replies with the chosen action.
// The host waits for exactly one action per observation, so a payload that
// cannot be used is answered with a no-op and leaves the state untouched.
func (a *Agent) HandleObservation(env ipc.Envelope) (*ipc.Envelope, error) {
	var obs model.Observation
	err := a.validate(env)
	if err == nil {
		if err = json.Unmarshal(env.Data, &obs); err != nil {
			err = fmt.Errorf("unmarshal observation: %w", err)
		}
	}
	if err != nil {
		slog.Warn("observation rejected", "player", a.Player, "error", err)
		return a.noOpReply()
	}

	if a.StepDelay > 0 {
		time.Sleep(a.StepDelay)
	}

	a.mu.Lock()
	if a.episode == "" {
		a.beginEpisodeLocked()
	}
	engine := a.Engine
	prev := a.state
	next, call := engine.Step(prev, obs)
	a.state = next
	reg := engine.Registry()
	if id, _ := reg.Action(model.ActionNoOp); call.Function != id {
		a.actions++
	}
	episode := a.episode
	events := detectEvents(prev, next, call, reg, obs.Step)
	a.events = append(a.events, events...)
	a.mu.Unlock()

	for _, e := range events {
		slog.Info("episode event", "player", a.Player, "kind", e.Kind, "step", e.Step, "detail", e.Detail)
	}

	if a.Recorder != nil {
		rec := trace.StepRecord{
			Episode: episode,
			Seq:     next.Steps,
			Step:    obs.Step,
			Phase:   next.Phase().String(),
			Build:   next.Build.String(),
			Macro:   next.Macro.String(),
			Call:    call,
			Events:  eventStrings(events),
			At:      time.Now(),
		}
		if err := a.Recorder.RecordStep(rec); err != nil {
			slog.Warn("trace write failed", "episode", episode, "error", err)
		}
	}

	resp, err := ipc.NewEnvelope(ipc.TypeAction, call)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// HandleEpisodeEnd closes the episode and resets state for the next game.
func (a *Agent) HandleEpisodeEnd(env ipc.Envelope) (*ipc.Envelope, error) {
	if err := a.validate(env); err != nil {
		return nil, err
	}
	var end ipc.EpisodeEndMessage
	if err := json.Unmarshal(env.Data, &end); err != nil {
		return nil, fmt.Errorf("unmarshal episode_end: %w", err)
	}

	a.EndEpisode(end.Outcome)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// EndEpisode records the outcome of the running episode, if any, and
// resets the agent state.
func (a *Agent) EndEpisode(outcome string) {
	a.mu.Lock()
	id, steps, actions, events := a.episode, a.state.Steps, a.actions, a.events
	a.episode = ""
	a.actions = 0
	a.events = nil
	a.state = a.Engine.NewState()
	a.mu.Unlock()

	if id == "" {
		return
	}
	slog.Info("episode ended", "player", a.Player, "episode", id, "outcome", outcome, "steps", steps, "actions", actions)
	slog.Debug("episode events", "episode", id, "events", "\n"+formatEvents(events))
	if a.Recorder == nil {
		return
	}
	if err := a.Recorder.EndEpisode(a.ctx, id, outcome, steps, actions); err != nil {
		slog.Warn("episode index update failed", "episode", id, "error", err)
	}
}

func (a *Agent) beginEpisodeLocked() {
	a.episode = uuid.NewString()
	a.actions = 0
	slog.Info("episode started", "player", a.Player, "episode", a.episode, "profile", a.Engine.Profile().Name)
	if a.Recorder == nil {
		return
	}
	ep := trace.Episode{
		ID:        a.episode,
		Player:    a.Player,
		Race:      a.Race,
		Profile:   a.Engine.Profile().Name,
		StartedAt: time.Now(),
	}
	if err := a.Recorder.BeginEpisode(a.ctx, ep); err != nil {
		slog.Warn("episode trace unavailable", "episode", a.episode, "error", err)
	}
}

func (a *Agent) noOpReply() (*ipc.Envelope, error) {
	a.mu.Lock()
	reg := a.Engine.Registry()
	a.mu.Unlock()
	id, _ := reg.Action(model.ActionNoOp)
	resp, err := ipc.NewEnvelope(ipc.TypeAction, ipc.NewCall(id))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *Agent) validate(env ipc.Envelope) error {
	if a.Validator == nil {
		return nil
	}
	return a.Validator.Validate(env.Type, env.Data)
}
