// Package runner provides local execution of sealed pipeline graphs for
// testing without a remote deployment.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/conduitml/conduit/pkg/models"
	"github.com/conduitml/conduit/pkg/tracing"
)

// Deployment is a local execution context for a sealed graph. Startup nodes
// run exactly once per deployment, run-once node outputs persist across
// runs, and a fresh deployment starts with a clean slate.
type Deployment struct {
	graph  *models.Graph
	logger *slog.Logger
	tracer trace.Tracer

	mu          sync.Mutex
	startupDone bool
	ranOnce     map[string]bool
	persistent  map[string]any
}

// Option configures a Deployment at construction.
type Option func(*Deployment)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployment) { d.logger = logger }
}

// WithTracer records a span for each executed node.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Deployment) { d.tracer = tracer }
}

// NewDeployment creates a local deployment context for a sealed graph.
// Every node's function must have a local implementation.
func NewDeployment(graph *models.Graph, opts ...Option) (*Deployment, error) {
	if graph == nil {
		return nil, fmt.Errorf("cannot deploy a nil graph")
	}

	if !graph.Sealed() {
		return nil, fmt.Errorf("graph %q is not sealed", graph.Name)
	}

	for _, node := range graph.Nodes {
		if _, ok := graph.Impls[node.Function]; !ok {
			return nil, fmt.Errorf("graph %q: no local implementation for function %q", graph.Name, node.Function)
		}
	}

	d := &Deployment{
		graph:      graph,
		logger:     slog.Default(),
		ranOnce:    make(map[string]bool),
		persistent: make(map[string]any),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Graph returns the deployed graph.
func (d *Deployment) Graph() *models.Graph {
	return d.graph
}

// Run binds concrete values to the graph's designated inputs, positionally
// via inputs and by variable name via kwargs, executes every node in
// recording order and returns the values bound to the designated outputs.
// Errors raised by pipeline functions propagate to the caller unmodified.
func (d *Deployment) Run(ctx context.Context, inputs []any, kwargs map[string]any) ([]any, error) {
	runID := uuid.New().String()
	logger := d.logger.With("pipeline", d.graph.Name, "run_id", runID)

	state, err := d.bindInputs(inputs, kwargs)
	if err != nil {
		return nil, err
	}

	if err := d.ensureStartup(ctx, logger); err != nil {
		return nil, err
	}

	d.mu.Lock()
	for id, value := range d.persistent {
		state[id] = value
	}
	d.mu.Unlock()

	for _, node := range d.graph.Nodes {
		if node.OnStartup {
			continue
		}

		if node.RunOnce {
			if err := d.runOnceNode(ctx, logger, node, state); err != nil {
				return nil, err
			}

			continue
		}

		if err := d.runNode(ctx, logger, node, state); err != nil {
			return nil, err
		}
	}

	outputs := make([]any, 0, len(d.graph.Outputs))

	for _, id := range d.graph.Outputs {
		value, ok := state[id]
		if !ok {
			return nil, fmt.Errorf("output variable %s was never bound", id)
		}

		outputs = append(outputs, value)
	}

	logger.Debug("Completed pipeline run")

	return outputs, nil
}

// bindInputs builds the initial run state: file references, constant
// defaults, then the caller's positional and keyword bindings.
func (d *Deployment) bindInputs(inputs []any, kwargs map[string]any) (map[string]any, error) {
	state := make(map[string]any)

	for _, f := range d.graph.Files {
		state[f.ID] = f
	}

	for _, v := range d.graph.Variables {
		if v.HasDefault {
			state[v.ID] = v.Default
		}
	}

	if len(inputs) > len(d.graph.Inputs) {
		return nil, fmt.Errorf("pipeline %q accepts %d inputs, got %d", d.graph.Name, len(d.graph.Inputs), len(inputs))
	}

	for i, value := range inputs {
		v, _ := d.graph.Variable(d.graph.Inputs[i])
		if err := v.Type.CheckValue(value); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}

		state[v.ID] = value
	}

	for name, value := range kwargs {
		v := d.inputByName(name)
		if v == nil {
			return nil, fmt.Errorf("pipeline %q has no input named %q", d.graph.Name, name)
		}

		if err := v.Type.CheckValue(value); err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}

		state[v.ID] = value
	}

	for _, id := range d.graph.Inputs {
		if _, ok := state[id]; !ok {
			v, _ := d.graph.Variable(id)
			return nil, fmt.Errorf("input variable %q of pipeline %q is not bound", displayName(v), d.graph.Name)
		}
	}

	return state, nil
}

func (d *Deployment) inputByName(name string) *models.Variable {
	for _, id := range d.graph.Inputs {
		v, _ := d.graph.Variable(id)
		if v.Name == name {
			return v
		}
	}

	return nil
}

// ensureStartup executes every OnStartup node exactly once for the lifetime
// of the deployment. Safe under concurrent Run calls.
func (d *Deployment) ensureStartup(ctx context.Context, logger *slog.Logger) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.startupDone {
		return nil
	}

	state := make(map[string]any)

	for _, f := range d.graph.Files {
		state[f.ID] = f
	}

	for _, v := range d.graph.Variables {
		if v.HasDefault {
			state[v.ID] = v.Default
		}
	}

	for id, value := range d.persistent {
		state[id] = value
	}

	for _, node := range d.graph.Nodes {
		if !node.OnStartup {
			continue
		}

		logger.Debug("Executing startup node", "node_id", node.ID, "function", node.Function)

		if err := d.runNode(ctx, logger, node, state); err != nil {
			return err
		}

		for _, out := range node.Outputs {
			d.persistent[out] = state[out]
		}

		d.ranOnce[node.ID] = true
	}

	d.startupDone = true

	return nil
}

// runOnceNode executes a run-once node at most once per deployment, reusing
// its persisted outputs on later runs.
func (d *Deployment) runOnceNode(ctx context.Context, logger *slog.Logger, node *models.Node, state map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ranOnce[node.ID] {
		for _, out := range node.Outputs {
			state[out] = d.persistent[out]
		}

		return nil
	}

	if err := d.runNode(ctx, logger, node, state); err != nil {
		return err
	}

	for _, out := range node.Outputs {
		d.persistent[out] = state[out]
	}

	d.ranOnce[node.ID] = true

	return nil
}

func (d *Deployment) runNode(ctx context.Context, logger *slog.Logger, node *models.Node, state map[string]any) error {
	if d.tracer != nil {
		var span trace.Span

		ctx, span = tracing.StartSpan(ctx, d.tracer, "pipeline.node",
			attribute.String(tracing.PipelineNameKey, d.graph.Name),
			attribute.String(tracing.NodeIDKey, node.ID),
			attribute.String(tracing.FunctionKey, node.Function),
		)
		defer span.End()

		if err := d.execute(ctx, node, state); err != nil {
			tracing.SetError(span, err)

			return err
		}

		return nil
	}

	return d.execute(ctx, node, state)
}

func (d *Deployment) execute(ctx context.Context, node *models.Node, state map[string]any) error {
	args := make([]any, 0, len(node.Inputs))

	for _, in := range node.Inputs {
		value, ok := state[in]
		if !ok {
			return fmt.Errorf("node %s: input %s is not bound", node.ID, in)
		}

		args = append(args, value)
	}

	impl := d.graph.Impls[node.Function]

	results, err := impl(ctx, args)
	if err != nil {
		// Pipeline function errors are business-rule failures local to the
		// pipeline's own logic; propagate them unmodified.
		return err
	}

	if len(results) != len(node.Outputs) {
		return fmt.Errorf("function %q returned %d values, node declares %d outputs", node.Function, len(results), len(node.Outputs))
	}

	for i, out := range node.Outputs {
		v, _ := d.graph.Variable(out)
		if err := v.Type.CheckValue(results[i]); err != nil {
			return fmt.Errorf("function %q output %d: %w", node.Function, i, err)
		}

		state[out] = results[i]
	}

	return nil
}

func displayName(v *models.Variable) string {
	if v.Name != "" {
		return v.Name
	}

	return v.ID
}
