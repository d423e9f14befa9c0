package serve

import (
	"math"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/conduitml/conduit/pkg/models"
	"github.com/conduitml/conduit/pkg/registry"
	"github.com/conduitml/conduit/pkg/schemas"
)

// PipelineSummary is the dev server's listing entry for a registered graph.
type PipelineSummary struct {
	Name    string `json:"name"`
	Nodes   int    `json:"nodes"`
	Inputs  int    `json:"inputs"`
	Outputs int    `json:"outputs"`
}

func (s *Server) ListPipelines(c fiber.Ctx) error {
	names := s.store.List()
	summaries := make([]PipelineSummary, 0, len(names))

	for _, name := range names {
		graph, err := s.store.Get(name)
		if err != nil {
			continue
		}

		summaries = append(summaries, PipelineSummary{
			Name:    graph.Name,
			Nodes:   len(graph.Nodes),
			Inputs:  len(graph.Inputs),
			Outputs: len(graph.Outputs),
		})
	}

	return c.JSON(fiber.Map{"pipelines": summaries})
}

func (s *Server) GetPipeline(c fiber.Ctx) error {
	name := c.Params("name")

	graph, err := s.store.Get(name)
	if err != nil {
		if registry.IsPipelineNotFound(err) {
			return notFound(c, "pipeline not found")
		}

		return internalError(c, err)
	}

	payload, err := schemas.FromGraph(graph)
	if err != nil {
		return internalError(c, err)
	}

	// File contents stay local; the listing only describes the assets.
	for i := range payload.Files {
		payload.Files[i].Data = ""
	}

	return c.JSON(payload)
}

func (s *Server) CreateRun(c fiber.Ctx) error {
	var req schemas.RunCreate
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	deployment, err := s.deployment(req.Pipeline)
	if err != nil {
		if registry.IsPipelineNotFound(err) {
			return notFound(c, "pipeline not found")
		}

		return internalError(c, err)
	}

	coerceInputs(deployment.Graph(), req.Inputs, req.Kwargs)

	start := time.Now()

	outputs, err := deployment.Run(c.Context(), req.Inputs, req.Kwargs)
	if err != nil {
		return runFailed(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(schemas.RunResult{
		RunID:      uuid.New().String(),
		Pipeline:   req.Pipeline,
		Outputs:    outputs,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// coerceInputs rewrites whole JSON numbers bound to integer-typed inputs as
// ints. JSON carries a single number type, so decoded request bodies hold
// float64 values even for inputs declared as integers.
func coerceInputs(graph *models.Graph, inputs []any, kwargs map[string]any) {
	for i, value := range inputs {
		if i >= len(graph.Inputs) {
			break
		}

		v, ok := graph.Variable(graph.Inputs[i])
		if !ok {
			continue
		}

		inputs[i] = coerceValue(v.Type, value)
	}

	for name, value := range kwargs {
		for _, id := range graph.Inputs {
			v, ok := graph.Variable(id)
			if ok && v.Name == name {
				kwargs[name] = coerceValue(v.Type, value)

				break
			}
		}
	}
}

func coerceValue(tag models.TypeTag, value any) any {
	f, ok := value.(float64)
	if !ok || tag != models.TypeInteger {
		return value
	}

	// Converting an out-of-range float64 to int is not defined; values
	// beyond the int range stay float64 and fail the input type check.
	if f == math.Trunc(f) && f >= float64(math.MinInt) && f < float64(math.MaxInt) {
		return int(f)
	}

	return value
}
