package build

import (
	"sort"

	"github.com/conduitml/conduit/pkg/models"
)

// Model groups Functions that share instance state, typically a loaded ML
// model held by the user's own struct and captured by the function
// closures. State written by one function (for example a load function
// flagged RunOnce and OnStartup) is visible to later calls on the same
// instance.
type Model struct {
	Name string

	functions map[string]*Function
}

// NewModel creates a named function group.
func NewModel(name string) *Model {
	return &Model{
		Name:      name,
		functions: make(map[string]*Function),
	}
}

// Function attaches a function to the model. The graph-level function name
// is namespaced as "model.function".
func (m *Model) Function(name string, impl models.FuncImpl, opts ...FunctionOption) *Function {
	f := NewFunction(m.Name+"."+name, impl, opts...)
	m.functions[name] = f

	return f
}

// Functions returns the model's functions sorted by name.
func (m *Model) Functions() []*Function {
	names := make([]string, 0, len(m.functions))
	for name := range m.functions {
		names = append(names, name)
	}

	sort.Strings(names)

	fns := make([]*Function, 0, len(names))
	for _, name := range names {
		fns = append(fns, m.functions[name])
	}

	return fns
}
