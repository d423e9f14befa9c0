// Package registry provides the pipeline store: a lookup from pipeline name
// to its most recently sealed graph.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/conduitml/conduit/pkg/models"
)

// ErrPipelineNotFound is returned when no graph was registered under a name.
var ErrPipelineNotFound = errors.New("pipeline not found")

// IsPipelineNotFound reports whether the error is a missing-pipeline lookup.
func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}

// Store maps pipeline names to sealed graphs. Registering a graph under an
// existing name fully replaces the previous one. The caller constructs and
// owns the store; there is no process-wide ambient registry.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]*models.Graph
}

// NewStore creates an empty pipeline store.
func NewStore() *Store {
	return &Store{graphs: make(map[string]*models.Graph)}
}

// Register adds a sealed graph under its name, overwriting any previous
// graph with the same name.
func (s *Store) Register(graph *models.Graph) error {
	if graph == nil {
		return errors.New("cannot register a nil graph")
	}

	if graph.Name == "" {
		return errors.New("cannot register a graph without a name")
	}

	if !graph.Sealed() {
		return fmt.Errorf("graph %q is not sealed", graph.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[graph.Name] = graph

	return nil
}

// Get retrieves the graph registered under the given name.
func (s *Store) Get(name string) (*models.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph, ok := s.graphs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPipelineNotFound, name)
	}

	return graph, nil
}

// List returns the sorted names of all registered pipelines.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.graphs))
	for name := range s.graphs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
