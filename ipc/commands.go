package ipc

// Argument values shared by screen and quick actions.
var (
	NotQueued = []int{0}
	Queued    = []int{1}
)

// FunctionCall is the single action returned to the host each step:
// a function id from the host's registry plus its argument lists.
type FunctionCall struct {
	Function  int     `json:"function"`
	Arguments [][]int `json:"arguments"`
}

// NewCall builds a call. Arguments is never nil so it encodes as [] rather
// than null.
func NewCall(function int, args ...[]int) FunctionCall {
	if args == nil {
		args = [][]int{}
	}
	return FunctionCall{Function: function, Arguments: args}
}
