// Package build provides the recording context that assembles pipeline
// graphs from declared variables, files and function calls.
package build

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/conduitml/conduit/pkg/models"
	"github.com/conduitml/conduit/pkg/registry"
)

// Builder scopes a window of recording for a single graph. It is an
// explicit context handle: every recording call goes through the Builder,
// so independent builders never share state and can be used from different
// goroutines without cross-contamination. A single Builder is not safe for
// concurrent use.
type Builder struct {
	graph     *models.Graph
	store     *registry.Store
	declared  map[string]models.GraphItem
	produced  map[string]string
	functions map[string]*Function
	outputs   []*models.Variable
	closed    bool
}

// Option configures a Builder at construction.
type Option func(*Builder)

// WithResourceHints declares the execution environment the deployed
// pipeline needs.
func WithResourceHints(hints models.ResourceHints) Option {
	return func(b *Builder) { b.graph.Hints = hints }
}

// WithMinGPUVRAM declares the minimum GPU memory requirement in megabytes.
func WithMinGPUVRAM(mb int) Option {
	return func(b *Builder) { b.graph.Hints.MinGPUVRAMMB = mb }
}

// WithStore registers the sealed graph into the store when the builder is
// closed, overwriting any previous graph with the same name.
func WithStore(store *registry.Store) Option {
	return func(b *Builder) { b.store = store }
}

// New opens a recording context for a graph with the given name.
func New(name string, opts ...Option) *Builder {
	b := &Builder{
		graph: &models.Graph{
			Name:  name,
			Impls: make(map[string]models.FuncImpl),
		},
		declared:  make(map[string]models.GraphItem),
		produced:  make(map[string]string),
		functions: make(map[string]*Function),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// AddVariables registers variables and files as graph-level declarations.
// Each item must be uniquely identified within the graph.
func (b *Builder) AddVariables(items ...models.GraphItem) error {
	if b.closed {
		return fmt.Errorf("graph %q is sealed, no further declarations permitted", b.graph.Name)
	}

	for _, item := range items {
		if _, exists := b.declared[item.ItemID()]; exists {
			return fmt.Errorf("item %s already declared in graph %q", item.ItemID(), b.graph.Name)
		}

		switch it := item.(type) {
		case *models.Variable:
			if !it.Type.Valid() {
				return fmt.Errorf("variable %s has unknown type %q", it.ID, it.Type)
			}

			b.graph.Variables = append(b.graph.Variables, it)
		case *models.File:
			b.graph.Files = append(b.graph.Files, it)
		default:
			return fmt.Errorf("unsupported graph item %T", item)
		}

		b.declared[item.ItemID()] = item
	}

	return nil
}

// Call records a graph node for the function with the given arguments and
// returns the newly synthesized output variables. Unbound arguments must
// reference variables or files already known to the graph; a mismatch
// between an argument's type and the function's declared parameter type is
// reported immediately.
func (b *Builder) Call(fn *Function, args ...Ref) ([]*models.Variable, error) {
	if b.closed {
		return nil, fmt.Errorf("graph %q is sealed, no further recording permitted", b.graph.Name)
	}

	if fn.Impl == nil {
		return nil, fmt.Errorf("function %q has no implementation", fn.Name)
	}

	if len(args) != len(fn.Inputs) {
		return nil, fmt.Errorf("function %q expects %d arguments, got %d", fn.Name, len(fn.Inputs), len(args))
	}

	if existing, ok := b.functions[fn.Name]; ok && existing != fn {
		return nil, fmt.Errorf("a different function named %q was already recorded", fn.Name)
	}

	inputs := make([]string, 0, len(args))

	for i, arg := range args {
		declared := fn.Inputs[i]

		switch arg.kind {
		case refBound:
			if err := declared.CheckValue(arg.value); err != nil {
				return nil, fmt.Errorf("function %q argument %d: %w", fn.Name, i, err)
			}

			constant := models.NewVariable(declared, models.WithDefault(arg.value))
			b.graph.Variables = append(b.graph.Variables, constant)
			b.declared[constant.ID] = constant
			inputs = append(inputs, constant.ID)
		case refVariable:
			v := arg.variable
			if v == nil {
				return nil, fmt.Errorf("function %q argument %d: nil variable reference", fn.Name, i)
			}

			if _, known := b.declared[v.ID]; !known {
				return nil, fmt.Errorf("function %q argument %d: variable %s is not known to graph %q", fn.Name, i, v.ID, b.graph.Name)
			}

			if !declared.Matches(v.Type) {
				return nil, fmt.Errorf("function %q argument %d: declared type %q, got variable of type %q", fn.Name, i, declared, v.Type)
			}

			inputs = append(inputs, v.ID)
		case refFile:
			f := arg.file
			if f == nil {
				return nil, fmt.Errorf("function %q argument %d: nil file reference", fn.Name, i)
			}

			if _, known := b.declared[f.ID]; !known {
				return nil, fmt.Errorf("function %q argument %d: file %s is not known to graph %q", fn.Name, i, f.ID, b.graph.Name)
			}

			if !declared.Matches(models.TypeFile) {
				return nil, fmt.Errorf("function %q argument %d: declared type %q, got a file", fn.Name, i, declared)
			}

			inputs = append(inputs, f.ID)
		}
	}

	node := &models.Node{
		ID:        uuid.New().String(),
		Function:  fn.Name,
		Inputs:    inputs,
		RunOnce:   fn.RunOnce,
		OnStartup: fn.OnStartup,
	}

	outputs := make([]*models.Variable, 0, len(fn.Outputs))

	for _, tag := range fn.Outputs {
		v := models.NewVariable(tag)
		b.graph.Variables = append(b.graph.Variables, v)
		b.declared[v.ID] = v
		b.produced[v.ID] = node.ID
		node.Outputs = append(node.Outputs, v.ID)
		outputs = append(outputs, v)
	}

	b.graph.Nodes = append(b.graph.Nodes, node)
	b.graph.Impls[fn.Name] = fn.Impl
	b.functions[fn.Name] = fn

	return outputs, nil
}

// Output designates the graph's outputs. Every variable must already exist
// as a node output. Repeat calls overwrite the previous designation: the
// last call wins.
func (b *Builder) Output(vars ...*models.Variable) error {
	if b.closed {
		return fmt.Errorf("graph %q is sealed, no further recording permitted", b.graph.Name)
	}

	if len(vars) == 0 {
		return fmt.Errorf("graph %q: at least one output variable required", b.graph.Name)
	}

	for _, v := range vars {
		if _, known := b.declared[v.ID]; !known {
			return fmt.Errorf("output variable %s is not known to graph %q", v.ID, b.graph.Name)
		}

		if _, ok := b.produced[v.ID]; !ok {
			return fmt.Errorf("output variable %s is not produced by any node in graph %q", v.ID, b.graph.Name)
		}
	}

	b.outputs = vars

	return nil
}

// Close seals the graph: file contents are captured, structural invariants
// are checked and the graph becomes read-only. If the builder was created
// with a store, the sealed graph is registered under its name.
func (b *Builder) Close() (*models.Graph, error) {
	if b.closed {
		return nil, fmt.Errorf("graph %q is already sealed", b.graph.Name)
	}

	if len(b.outputs) == 0 {
		return nil, fmt.Errorf("graph %q has no designated outputs", b.graph.Name)
	}

	for _, v := range b.graph.Variables {
		if v.IsInput {
			b.graph.Inputs = append(b.graph.Inputs, v.ID)
		}
	}

	for _, v := range b.outputs {
		v.IsOutput = true
		b.graph.Outputs = append(b.graph.Outputs, v.ID)
	}

	if err := b.graph.Seal(); err != nil {
		return nil, err
	}

	b.closed = true

	if b.store != nil {
		if err := b.store.Register(b.graph); err != nil {
			return nil, err
		}
	}

	return b.graph, nil
}
