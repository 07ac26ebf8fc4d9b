package rules

import (
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/saltbot/saltbot-core/ipc"
)

// ActionFunc decides what a rule does once its condition holds. It returns
// the next state and the call to emit; a nil call means the rule fired but
// found nothing to issue this step.
type ActionFunc func(env RuleEnv) (AgentState, *ipc.FunctionCall, error)

// Rule is the atomic unit of agent behavior: a condition → action pair.
// Only rules whose Phase matches the scheduler's phase are considered, and
// the first one to match decides the step.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Phase        Phase       // phase window the rule belongs to
	ConditionSrc string      // expr source (preserved for serialization)
	program      *vm.Program // compiled bytecode
	Action       ActionFunc
}
