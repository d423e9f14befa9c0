package serve_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduitml/conduit/pkg/build"
	"github.com/conduitml/conduit/pkg/models"
	"github.com/conduitml/conduit/pkg/registry"
	"github.com/conduitml/conduit/pkg/schemas"
	"github.com/conduitml/conduit/pkg/serve"
)

var errTooManySamples = errors.New("num_samples must be less than 4 in this version of the pipeline")

func testStore(t *testing.T) *registry.Store {
	t.Helper()

	store := registry.NewStore()

	builder := build.New("echo", build.WithStore(store))
	x := models.NewVariable(models.TypeInteger, models.AsInput(), models.WithName("x"))
	require.NoError(t, builder.AddVariables(x))

	echo := build.NewFunction("echo",
		func(_ context.Context, args []any) ([]any, error) {
			n := args[0].(int)
			if n > 3 {
				return nil, errTooManySamples
			}

			return []any{n}, nil
		},
		build.WithInputs(models.TypeInteger),
		build.WithOutputs(models.TypeInteger),
	)

	out, err := builder.Call(echo, build.Use(x))
	require.NoError(t, err)
	require.NoError(t, builder.Output(out[0]))

	_, err = builder.Close()
	require.NoError(t, err)

	return store
}

func postRun(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v2/runs", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestListPipelines(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v2/pipelines", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Pipelines []serve.PipelineSummary `json:"pipelines"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Pipelines, 1)
	assert.Equal(t, "echo", body.Pipelines[0].Name)
	assert.Equal(t, 1, body.Pipelines[0].Nodes)
}

func TestGetPipeline(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v2/pipelines/echo", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload schemas.PipelineCreate
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "echo", payload.Name)
	require.Len(t, payload.Nodes, 1)
}

func TestGetPipeline_NotFound(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v2/pipelines/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pipeline not found")
}

func TestCreateRun(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp := postRun(t, app, `{"pipeline": "echo", "inputs": [3]}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var result schemas.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "echo", result.Pipeline)
	require.Len(t, result.Outputs, 1)
	assert.EqualValues(t, 3, result.Outputs[0])
}

func TestCreateRun_Kwargs(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp := postRun(t, app, `{"pipeline": "echo", "kwargs": {"x": 2}}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var result schemas.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Outputs, 1)
	assert.EqualValues(t, 2, result.Outputs[0])
}

func TestCreateRun_PipelineNotFound(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp := postRun(t, app, `{"pipeline": "missing", "inputs": [1]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRun_InvalidJSON(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp := postRun(t, app, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_MissingPipelineName(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp := postRun(t, app, `{"inputs": [1]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_FunctionErrorIsUnprocessable(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp := postRun(t, app, `{"pipeline": "echo", "inputs": [9]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "num_samples must be less than 4")
}

func TestCreateRun_IntegerInputOutOfRange(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	// 2^64: whole, but not representable as int. Must be rejected, not wrapped.
	resp := postRun(t, app, `{"pipeline": "echo", "inputs": [18446744073709551616]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "incompatible value")
}

func TestCreateRun_FractionalIntegerInput(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp := postRun(t, app, `{"pipeline": "echo", "inputs": [1.5]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	app := serve.NewServer(testStore(t)).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
