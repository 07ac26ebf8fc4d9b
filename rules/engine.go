package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/model"
)

// Engine runs a compiled profile against one observation per step.
// It holds no episode state: callers thread AgentState through Step.
type Engine struct {
	mu       sync.RWMutex
	rules    []*Rule
	profile  Profile
	registry model.Registry
}

// NewEngine validates the registry and compiles the profile's rule set.
func NewEngine(p Profile, reg model.Registry) (*Engine, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	p.Validate()
	compiled, err := compileRules(CompileProfile(p))
	if err != nil {
		return nil, err
	}
	return &Engine{
		rules:    compiled,
		profile:  p,
		registry: reg,
	}, nil
}

// Profile returns the active profile.
func (e *Engine) Profile() Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile
}

// Registry returns the active capability table.
func (e *Engine) Registry() model.Registry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry
}

// NewState returns a fresh episode state for the active profile.
func (e *Engine) NewState() AgentState {
	return NewState(e.Profile())
}

// Swap atomically replaces the profile. Compiles first; if compilation fails
// the old rules remain active. Callers should start a new state afterwards
// since the scheduler period may have changed.
func (e *Engine) Swap(p Profile) error {
	p.Validate()
	compiled, err := compileRules(CompileProfile(p))
	if err != nil {
		return err
	}
	names := make([]string, len(compiled))
	for i, r := range compiled {
		names[i] = r.Name
	}
	e.mu.Lock()
	e.rules = compiled
	e.profile = p
	e.mu.Unlock()
	slog.Info("profile swapped", "profile", p.Name, "count", len(compiled), "rules", names)
	return nil
}

// Step advances state by one game step and returns the single call for the
// host. It never fails: anything that goes wrong yields a no-op.
func (e *Engine) Step(state AgentState, obs model.Observation) (AgentState, ipc.FunctionCall) {
	e.mu.RLock()
	rules, profile, reg := e.rules, e.profile, e.registry
	e.mu.RUnlock()

	next := state
	next.Steps++

	if !next.SetupComplete {
		next = detectSetup(next, obs, profile, reg)
	}

	if profile.Scheduled {
		sched, advanced := next.Scheduler.Tick()
		next.Scheduler = sched
		if advanced {
			next = next.resetProgress()
			slog.Debug("phase advanced", "phase", next.Phase(), "step", next.Steps)
		}
	}

	noop := noOp(reg)
	env := newRuleEnv(next, obs, reg, profile)
	for _, r := range rules {
		if r.Phase != next.Phase() {
			continue
		}

		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "error", err)
			continue
		}

		match, ok := result.(bool)
		if !ok || !match {
			continue
		}

		slog.Debug("rule fired", "rule", r.Name, "priority", r.Priority, "phase", r.Phase)

		after, call, err := r.Action(env)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				slog.Warn("rule skipped", "rule", r.Name, "error", err)
			} else {
				slog.Error("rule action error", "rule", r.Name, "error", err)
			}
			return next, noop
		}
		if call == nil {
			return after, noop
		}
		if err := checkLegal(*call, obs, reg); err != nil {
			slog.Warn("rule call dropped", "rule", r.Name, "error", err)
			return next, noop
		}
		return after, *call
	}

	return next, noop
}

// detectSetup runs corner detection until it succeeds once.
func detectSetup(s AgentState, obs model.Observation, p Profile, reg model.Registry) AgentState {
	owner, ok := reg.Owner(p.DetectOwner)
	if !ok {
		slog.Error("corner detection owner not in registry", "owner", p.DetectOwner)
		return s
	}
	topLeft, err := DetectCorner(obs.Minimap.PlayerRelative, owner)
	if err != nil {
		slog.Warn("corner detection deferred", "step", s.Steps, "error", err)
		return s
	}
	s.BaseTopLeft = topLeft
	s.SetupComplete = true
	slog.Info("base corner detected", "topLeft", topLeft, "step", s.Steps)
	return s
}

// checkLegal guards every emitted call against the host's legal action list.
// No-op is always legal.
func checkLegal(call ipc.FunctionCall, obs model.Observation, reg model.Registry) error {
	if id, _ := reg.Action(model.ActionNoOp); call.Function == id {
		return nil
	}
	if !obs.ActionAvailable(call.Function) {
		return fmt.Errorf("function %d: %w", call.Function, ErrIllegalAction)
	}
	return nil
}

func noOp(reg model.Registry) ipc.FunctionCall {
	id, _ := reg.Action(model.ActionNoOp)
	return ipc.NewCall(id)
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}
