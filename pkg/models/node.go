package models

import "context"

// FuncImpl is the Go implementation behind a graph node. Implementations
// receive the bound argument values in declared order and return output
// values in declared order.
type FuncImpl func(ctx context.Context, args []any) ([]any, error)

// Node is the recorded effect of a pipeline function call: which function
// ran, which variables or files it consumed, and which variables it produced.
type Node struct {
	ID       string `json:"id"`
	Function string `json:"function" validate:"required"`

	// Inputs references Variable or File IDs known to the graph, in call order.
	Inputs []string `json:"inputs"`

	// Outputs references the Variables synthesized for this node's results.
	Outputs []string `json:"outputs"`

	// RunOnce nodes execute at most once per deployment; their outputs are
	// reused across runs.
	RunOnce bool `json:"run_once,omitempty"`

	// OnStartup nodes execute during deployment initialization rather than
	// per request.
	OnStartup bool `json:"on_startup,omitempty"`
}
