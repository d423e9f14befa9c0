// Package serve exposes registered pipelines over HTTP for local
// development, mirroring the remote service's run API.
package serve

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/conduitml/conduit/pkg/models"
	"github.com/conduitml/conduit/pkg/registry"
	"github.com/conduitml/conduit/pkg/runner"
)

// Server serves the pipelines registered in a store. Deployments are
// created lazily per pipeline and kept warm across requests, so startup and
// run-once nodes behave as they would on a remote deployment.
type Server struct {
	store    *registry.Store
	logger   *slog.Logger
	validate *validator.Validate

	mu          sync.Mutex
	deployments map[string]*deploymentEntry
	runnerOpts  []runner.Option
}

type deploymentEntry struct {
	graph      *models.Graph
	deployment *runner.Deployment
}

// Option configures a Server at construction.
type Option func(*Server)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRunnerOptions forwards options to every deployment the server creates.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(s *Server) { s.runnerOpts = opts }
}

// NewServer creates a dev server over a pipeline store.
func NewServer(store *registry.Store, opts ...Option) *Server {
	s := &Server{
		store:       store,
		logger:      slog.Default(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		deployments: make(map[string]*deploymentEntry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// App builds the fiber application.
func (s *Server) App() *fiber.App {
	app := fiber.New()
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())

	v2 := app.Group("/v2")
	v2.Get("/pipelines", s.ListPipelines)
	v2.Get("/pipelines/:name", s.GetPipeline)
	v2.Post("/runs", s.CreateRun)

	return app
}

// Start listens on the given port until the server is shut down.
func (s *Server) Start(port int) error {
	return s.App().Listen(":" + strconv.Itoa(port))
}

// deployment returns a warm deployment for the named pipeline, recreating
// it when the registered graph was replaced.
func (s *Server) deployment(name string) (*runner.Deployment, error) {
	graph, err := s.store.Get(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.deployments[name]
	if ok && entry.graph == graph {
		return entry.deployment, nil
	}

	deployment, err := runner.NewDeployment(graph, s.runnerOpts...)
	if err != nil {
		return nil, err
	}

	s.deployments[name] = &deploymentEntry{graph: graph, deployment: deployment}

	return deployment, nil
}
