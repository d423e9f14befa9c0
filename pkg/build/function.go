package build

import (
	"context"
	"fmt"

	"github.com/conduitml/conduit/pkg/models"
)

// Function is a graph-node template: a named Go implementation together
// with its declared input and output types and lifecycle flags. Recording a
// call against an open Builder turns it into a graph node; calling it
// directly executes the implementation unchanged.
type Function struct {
	Name    string
	Inputs  []models.TypeTag
	Outputs []models.TypeTag

	// RunOnce nodes execute at most once per deployment, used for model loading.
	RunOnce bool

	// OnStartup nodes execute during deployment initialization.
	OnStartup bool

	Impl models.FuncImpl
}

// FunctionOption configures a Function at construction.
type FunctionOption func(*Function)

// WithInputs declares the function's parameter types in order.
func WithInputs(tags ...models.TypeTag) FunctionOption {
	return func(f *Function) { f.Inputs = tags }
}

// WithOutputs declares the function's return types in order.
func WithOutputs(tags ...models.TypeTag) FunctionOption {
	return func(f *Function) { f.Outputs = tags }
}

// RunOnce marks the function to execute at most once per deployment.
func RunOnce() FunctionOption {
	return func(f *Function) { f.RunOnce = true }
}

// OnStartup marks the function to execute during deployment initialization.
func OnStartup() FunctionOption {
	return func(f *Function) { f.OnStartup = true }
}

// NewFunction creates a graph-node template around a Go implementation.
func NewFunction(name string, impl models.FuncImpl, opts ...FunctionOption) *Function {
	f := &Function{
		Name: name,
		Impl: impl,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Call executes the underlying implementation immediately with concrete
// values. Recording never alters this behavior.
func (f *Function) Call(ctx context.Context, args ...any) ([]any, error) {
	if f.Impl == nil {
		return nil, fmt.Errorf("function %q has no implementation", f.Name)
	}

	return f.Impl(ctx, args)
}
