package schemas

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/conduitml/conduit/pkg/models"
)

// VariableDef is the wire representation of a graph variable.
type VariableDef struct {
	ID       string         `json:"id"         validate:"required"`
	Name     string         `json:"name,omitempty"`
	Type     models.TypeTag `json:"type"       validate:"required"`
	IsInput  bool           `json:"is_input"`
	IsOutput bool           `json:"is_output"`
	Default  any            `json:"default,omitempty"`
}

// NodeDef is the wire representation of a graph node.
type NodeDef struct {
	ID        string   `json:"id"       validate:"required"`
	Function  string   `json:"function" validate:"required"`
	Inputs    []string `json:"inputs"`
	Outputs   []string `json:"outputs"`
	RunOnce   bool     `json:"run_once,omitempty"`
	OnStartup bool     `json:"on_startup,omitempty"`
}

// FileDef is the wire representation of a captured file asset.
type FileDef struct {
	ID         string     `json:"id"          validate:"required"`
	Name       string     `json:"name"`
	FileFormat FileFormat `json:"file_format"`
	// Data holds the captured bytes, hex-encoded.
	Data string `json:"data"`
}

// PipelineCreate is the upload payload for a sealed graph: node
// definitions, declared variable types and captured file bytes.
type PipelineCreate struct {
	Name          string               `json:"name" validate:"required,min=1"`
	ResourceHints models.ResourceHints `json:"resource_hints"`
	Variables     []VariableDef        `json:"variables"`
	Nodes         []NodeDef            `json:"nodes"`
	Files         []FileDef            `json:"files"`
	Inputs        []string             `json:"inputs"`
	Outputs       []string             `json:"outputs"`
}

// PipelineGet is the remote service's representation of an uploaded pipeline.
type PipelineGet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FromGraph serializes a sealed graph into its upload payload. File bytes
// were captured at seal time and are hex-encoded on the wire.
func FromGraph(graph *models.Graph) (*PipelineCreate, error) {
	if !graph.Sealed() {
		return nil, fmt.Errorf("graph %q is not sealed", graph.Name)
	}

	// The schema requires arrays, so empty collections must not marshal as null.
	payload := &PipelineCreate{
		Name:          graph.Name,
		ResourceHints: graph.Hints,
		Variables:     make([]VariableDef, 0, len(graph.Variables)),
		Nodes:         make([]NodeDef, 0, len(graph.Nodes)),
		Files:         make([]FileDef, 0, len(graph.Files)),
		Inputs:        graph.Inputs,
		Outputs:       graph.Outputs,
	}

	if payload.Inputs == nil {
		payload.Inputs = []string{}
	}

	for _, v := range graph.Variables {
		def := VariableDef{
			ID:       v.ID,
			Name:     v.Name,
			Type:     v.Type,
			IsInput:  v.IsInput,
			IsOutput: v.IsOutput,
		}
		if v.HasDefault {
			def.Default = v.Default
		}

		payload.Variables = append(payload.Variables, def)
	}

	for _, node := range graph.Nodes {
		payload.Nodes = append(payload.Nodes, NodeDef{
			ID:        node.ID,
			Function:  node.Function,
			Inputs:    node.Inputs,
			Outputs:   node.Outputs,
			RunOnce:   node.RunOnce,
			OnStartup: node.OnStartup,
		})
	}

	for _, f := range graph.Files {
		if !f.Captured() {
			return nil, fmt.Errorf("file %q was not captured at seal time", f.Name)
		}

		payload.Files = append(payload.Files, FileDef{
			ID:         f.ID,
			Name:       f.Name,
			FileFormat: FileFormatHex,
			Data:       hex.EncodeToString(f.Bytes),
		})
	}

	return payload, nil
}

// pipelineCreateSchema is the JSON schema the upload payload must satisfy.
const pipelineCreateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "variables", "nodes", "inputs", "outputs"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"resource_hints": {
			"type": "object",
			"properties": {
				"min_gpu_vram_mb": {"type": "integer", "minimum": 0},
				"min_cpu_cores": {"type": "integer", "minimum": 0},
				"min_memory_mb": {"type": "integer", "minimum": 0}
			}
		},
		"variables": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"type": {
						"type": "string",
						"enum": ["string", "integer", "float", "boolean", "list", "map", "file", "any"]
					},
					"is_input": {"type": "boolean"},
					"is_output": {"type": "boolean"}
				}
			}
		},
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "function"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"function": {"type": "string", "minLength": 1},
					"inputs": {"type": "array", "items": {"type": "string"}},
					"outputs": {"type": "array", "items": {"type": "string"}},
					"run_once": {"type": "boolean"},
					"on_startup": {"type": "boolean"}
				}
			}
		},
		"files": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "data"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"file_format": {"type": "string", "enum": ["hex", "binary"]},
					"data": {"type": "string"}
				}
			}
		},
		"inputs": {"type": "array", "items": {"type": "string"}},
		"outputs": {"type": "array", "items": {"type": "string"}, "minItems": 1}
	}
}`

// ValidatePipelineCreate checks a serialized upload payload against the
// pipeline schema before any remote call is made.
func ValidatePipelineCreate(payload []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(pipelineCreateSchema)
	documentLoader := gojsonschema.NewBytesLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate pipeline payload: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid pipeline payload: %s", strings.Join(details, "; "))
	}

	return nil
}
