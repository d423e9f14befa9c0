package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduitml/conduit/pkg/build"
	"github.com/conduitml/conduit/pkg/models"
	"github.com/conduitml/conduit/pkg/runner"
)

func echoGraph(t *testing.T) *models.Graph {
	t.Helper()

	builder := build.New("echo")
	x := models.NewVariable(models.TypeInteger, models.AsInput(), models.WithName("x"))
	require.NoError(t, builder.AddVariables(x))

	echo := build.NewFunction("echo",
		func(_ context.Context, args []any) ([]any, error) { return []any{args[0]}, nil },
		build.WithInputs(models.TypeInteger),
		build.WithOutputs(models.TypeInteger),
	)

	out, err := builder.Call(echo, build.Use(x))
	require.NoError(t, err)
	require.NoError(t, builder.Output(out[0]))

	graph, err := builder.Close()
	require.NoError(t, err)

	return graph
}

func TestDeployment_RunEcho(t *testing.T) {
	t.Parallel()

	deployment, err := runner.NewDeployment(echoGraph(t))
	require.NoError(t, err)

	outputs, err := deployment.Run(context.Background(), []any{5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{5}, outputs)
}

func TestDeployment_RunKwargBinding(t *testing.T) {
	t.Parallel()

	deployment, err := runner.NewDeployment(echoGraph(t))
	require.NoError(t, err)

	outputs, err := deployment.Run(context.Background(), nil, map[string]any{"x": 11})
	require.NoError(t, err)
	assert.Equal(t, []any{11}, outputs)
}

func TestDeployment_RunUnknownKwarg(t *testing.T) {
	t.Parallel()

	deployment, err := runner.NewDeployment(echoGraph(t))
	require.NoError(t, err)

	_, err = deployment.Run(context.Background(), nil, map[string]any{"y": 11})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input named")
}

func TestDeployment_RunMissingInput(t *testing.T) {
	t.Parallel()

	deployment, err := runner.NewDeployment(echoGraph(t))
	require.NoError(t, err)

	_, err = deployment.Run(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not bound")
}

func TestDeployment_RunInputTypeChecked(t *testing.T) {
	t.Parallel()

	deployment, err := runner.NewDeployment(echoGraph(t))
	require.NoError(t, err)

	_, err = deployment.Run(context.Background(), []any{"five"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible value")
}

func TestDeployment_ChainedNodes(t *testing.T) {
	t.Parallel()

	builder := build.New("chain")
	x := models.NewVariable(models.TypeInteger, models.AsInput())
	require.NoError(t, builder.AddVariables(x))

	increment := build.NewFunction("increment",
		func(_ context.Context, args []any) ([]any, error) { return []any{args[0].(int) + 1}, nil },
		build.WithInputs(models.TypeInteger),
		build.WithOutputs(models.TypeInteger),
	)
	double := build.NewFunction("double",
		func(_ context.Context, args []any) ([]any, error) { return []any{args[0].(int) * 2}, nil },
		build.WithInputs(models.TypeInteger),
		build.WithOutputs(models.TypeInteger),
	)

	mid, err := builder.Call(increment, build.Use(x))
	require.NoError(t, err)

	out, err := builder.Call(double, build.Use(mid[0]))
	require.NoError(t, err)
	require.NoError(t, builder.Output(out[0]))

	graph, err := builder.Close()
	require.NoError(t, err)

	deployment, err := runner.NewDeployment(graph)
	require.NoError(t, err)

	outputs, err := deployment.Run(context.Background(), []any{3}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{8}, outputs)
}

// startupGraph records a load node flagged RunOnce+OnStartup whose
// execution count is observable, feeding a predict node.
func startupGraph(t *testing.T, loads *atomic.Int64) *models.Graph {
	t.Helper()

	path := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0o600))

	load := build.NewFunction("load",
		func(_ context.Context, args []any) ([]any, error) {
			loads.Add(1)

			file := args[0].(*models.File)

			return []any{string(file.Bytes)}, nil
		},
		build.WithInputs(models.TypeFile),
		build.WithOutputs(models.TypeString),
		build.RunOnce(),
		build.OnStartup(),
	)
	predict := build.NewFunction("predict",
		func(_ context.Context, args []any) ([]any, error) {
			return []any{args[0].(string) + ":" + args[1].(string)}, nil
		},
		build.WithInputs(models.TypeString, models.TypeString),
		build.WithOutputs(models.TypeString),
	)

	builder := build.New("startup")
	file := models.NewFile(path)
	prompt := models.NewVariable(models.TypeString, models.AsInput(), models.WithName("prompt"))
	require.NoError(t, builder.AddVariables(file, prompt))

	weights, err := builder.Call(load, build.UseFile(file))
	require.NoError(t, err)

	out, err := builder.Call(predict, build.Use(weights[0]), build.Use(prompt))
	require.NoError(t, err)
	require.NoError(t, builder.Output(out[0]))

	graph, err := builder.Close()
	require.NoError(t, err)

	return graph
}

func TestDeployment_StartupRunsOncePerDeployment(t *testing.T) {
	t.Parallel()

	var loads atomic.Int64

	graph := startupGraph(t, &loads)

	deployment, err := runner.NewDeployment(graph)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		outputs, err := deployment.Run(context.Background(), []any{"hi"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"weights:hi"}, outputs)
	}

	assert.Equal(t, int64(1), loads.Load())

	// A fresh deployment context re-runs the startup node once.
	fresh, err := runner.NewDeployment(graph)
	require.NoError(t, err)

	_, err = fresh.Run(context.Background(), []any{"hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loads.Load())
}

func TestDeployment_StartupConcurrentRuns(t *testing.T) {
	t.Parallel()

	var loads atomic.Int64

	deployment, err := runner.NewDeployment(startupGraph(t, &loads))
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := deployment.Run(context.Background(), []any{"hi"}, nil)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	assert.Equal(t, int64(1), loads.Load())
}

func TestDeployment_RunOncePersistsAcrossRuns(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	expensive := build.NewFunction("expensive",
		func(_ context.Context, args []any) ([]any, error) {
			calls.Add(1)

			return []any{100}, nil
		},
		build.WithOutputs(models.TypeInteger),
		build.RunOnce(),
	)
	add := build.NewFunction("add",
		func(_ context.Context, args []any) ([]any, error) {
			return []any{args[0].(int) + args[1].(int)}, nil
		},
		build.WithInputs(models.TypeInteger, models.TypeInteger),
		build.WithOutputs(models.TypeInteger),
	)

	builder := build.New("run-once")
	x := models.NewVariable(models.TypeInteger, models.AsInput())
	require.NoError(t, builder.AddVariables(x))

	base, err := builder.Call(expensive)
	require.NoError(t, err)

	out, err := builder.Call(add, build.Use(base[0]), build.Use(x))
	require.NoError(t, err)
	require.NoError(t, builder.Output(out[0]))

	graph, err := builder.Close()
	require.NoError(t, err)

	deployment, err := runner.NewDeployment(graph)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		outputs, err := deployment.Run(context.Background(), []any{i}, nil)
		require.NoError(t, err)
		assert.Equal(t, []any{100 + i}, outputs)
	}

	assert.Equal(t, int64(1), calls.Load())
}

func TestDeployment_FunctionErrorsPropagateUnmodified(t *testing.T) {
	t.Parallel()

	errBusiness := errors.New("num_samples must be less than 4 in this version of the pipeline")

	failing := build.NewFunction("predict",
		func(_ context.Context, args []any) ([]any, error) { return nil, errBusiness },
		build.WithInputs(models.TypeInteger),
		build.WithOutputs(models.TypeInteger),
	)

	builder := build.New("failing")
	x := models.NewVariable(models.TypeInteger, models.AsInput())
	require.NoError(t, builder.AddVariables(x))

	out, err := builder.Call(failing, build.Use(x))
	require.NoError(t, err)
	require.NoError(t, builder.Output(out[0]))

	graph, err := builder.Close()
	require.NoError(t, err)

	deployment, err := runner.NewDeployment(graph)
	require.NoError(t, err)

	_, err = deployment.Run(context.Background(), []any{5}, nil)
	require.ErrorIs(t, err, errBusiness)
}

func TestDeployment_OutputArityChecked(t *testing.T) {
	t.Parallel()

	lying := build.NewFunction("lying",
		func(_ context.Context, args []any) ([]any, error) { return []any{1, 2}, nil },
		build.WithInputs(models.TypeInteger),
		build.WithOutputs(models.TypeInteger),
	)

	builder := build.New("arity")
	x := models.NewVariable(models.TypeInteger, models.AsInput())
	require.NoError(t, builder.AddVariables(x))

	out, err := builder.Call(lying, build.Use(x))
	require.NoError(t, err)
	require.NoError(t, builder.Output(out[0]))

	graph, err := builder.Close()
	require.NoError(t, err)

	deployment, err := runner.NewDeployment(graph)
	require.NoError(t, err)

	_, err = deployment.Run(context.Background(), []any{1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node declares 1 outputs")
}

func TestNewDeployment_RequiresSealedGraph(t *testing.T) {
	t.Parallel()

	_, err := runner.NewDeployment(&models.Graph{Name: "unsealed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not sealed")
}
