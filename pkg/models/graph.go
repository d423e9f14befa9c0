package models

import (
	"errors"
	"fmt"
)

// ResourceHints describe the execution environment a deployed pipeline needs.
type ResourceHints struct {
	MinGPUVRAMMB int `json:"min_gpu_vram_mb,omitempty"`
	MinCPUCores  int `json:"min_cpu_cores,omitempty"`
	MinMemoryMB  int `json:"min_memory_mb,omitempty"`
}

// Graph is a named, directed acyclic graph of recorded function-call nodes
// and the variables flowing between them. Nodes are kept in recording
// order, which is guaranteed to be a valid topological order.
type Graph struct {
	Name      string        `json:"name" validate:"required,min=1"`
	Hints     ResourceHints `json:"resource_hints"`
	Variables []*Variable   `json:"variables"`
	Files     []*File       `json:"files"`
	Nodes     []*Node       `json:"nodes"`

	// Inputs holds the declared input Variable IDs in declaration order.
	Inputs []string `json:"inputs"`

	// Outputs holds the designated output Variable IDs.
	Outputs []string `json:"outputs"`

	// Impls maps function names to their Go implementations for local
	// execution. Not serialized: the remote service receives node
	// definitions only.
	Impls map[string]FuncImpl `json:"-"`

	sealed bool
}

// Sealed reports whether the graph was finalized. A sealed graph is
// read-only and safe for concurrent execution.
func (g *Graph) Sealed() bool {
	return g.sealed
}

// Variable returns the variable with the given ID, if declared.
func (g *Graph) Variable(id string) (*Variable, bool) {
	for _, v := range g.Variables {
		if v.ID == id {
			return v, true
		}
	}

	return nil, false
}

// File returns the file with the given ID, if declared.
func (g *Graph) File(id string) (*File, bool) {
	for _, f := range g.Files {
		if f.ID == id {
			return f, true
		}
	}

	return nil, false
}

// Item returns the variable or file with the given ID.
func (g *Graph) Item(id string) (GraphItem, bool) {
	if v, ok := g.Variable(id); ok {
		return v, true
	}

	if f, ok := g.File(id); ok {
		return f, true
	}

	return nil, false
}

// Producers maps each variable ID to the ID of the node that produces it.
func (g *Graph) Producers() map[string]string {
	produced := make(map[string]string)
	for _, node := range g.Nodes {
		for _, out := range node.Outputs {
			produced[out] = node.ID
		}
	}

	return produced
}

// Validate checks the structural invariants of the graph: declared inputs
// have no producing node, designated outputs are produced by some node, and
// every node only consumes variables that exist before it in recording order.
func (g *Graph) Validate() error {
	if g.Name == "" {
		return errors.New("graph has no name")
	}

	produced := g.Producers()

	for _, id := range g.Inputs {
		v, ok := g.Variable(id)
		if !ok {
			return fmt.Errorf("input variable %s not declared in graph %q", id, g.Name)
		}

		if !v.IsInput {
			return fmt.Errorf("variable %s is designated as input but not flagged is_input", id)
		}

		if producer, ok := produced[id]; ok {
			return fmt.Errorf("input variable %s is produced by node %s", id, producer)
		}
	}

	for _, id := range g.Outputs {
		if _, ok := g.Variable(id); !ok {
			return fmt.Errorf("output variable %s not declared in graph %q", id, g.Name)
		}

		if _, ok := produced[id]; !ok {
			return fmt.Errorf("output variable %s is not produced by any node", id)
		}
	}

	available := make(map[string]bool)

	// Startup nodes run before any inputs are bound, so only defaults,
	// files and earlier startup outputs are available to them.
	availableAtStartup := make(map[string]bool)

	for _, v := range g.Variables {
		if v.IsInput || v.HasDefault {
			available[v.ID] = true
		}

		if v.HasDefault {
			availableAtStartup[v.ID] = true
		}
	}

	for _, f := range g.Files {
		available[f.ID] = true
		availableAtStartup[f.ID] = true
	}

	for _, node := range g.Nodes {
		for _, in := range node.Inputs {
			if _, ok := g.Item(in); !ok {
				return fmt.Errorf("node %s references unknown input %s", node.ID, in)
			}

			if !available[in] {
				return fmt.Errorf("node %s consumes %s before it is produced", node.ID, in)
			}

			if node.OnStartup && !availableAtStartup[in] {
				return fmt.Errorf("startup node %s consumes %s, which is not available before inputs are bound", node.ID, in)
			}
		}

		for _, out := range node.Outputs {
			if _, ok := g.Variable(out); !ok {
				return fmt.Errorf("node %s references unknown output %s", node.ID, out)
			}

			available[out] = true

			if node.OnStartup {
				availableAtStartup[out] = true
			}
		}
	}

	return nil
}

// Seal validates the graph, captures the contents of every referenced file
// and marks the graph read-only. Sealing fails if any file path is missing
// or unreadable.
func (g *Graph) Seal() error {
	if g.sealed {
		return fmt.Errorf("graph %q is already sealed", g.Name)
	}

	if err := g.Validate(); err != nil {
		return err
	}

	for _, f := range g.Files {
		if f.Captured() {
			continue
		}

		if err := f.Capture(); err != nil {
			return err
		}
	}

	g.sealed = true

	return nil
}
