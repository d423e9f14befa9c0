package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conduitml/conduit/pkg/models"
	"github.com/conduitml/conduit/pkg/schemas"
)

// UploadPipeline serializes a sealed graph and uploads it to the remote
// service, returning the remote pipeline record. The payload is checked
// against the pipeline schema before any remote call.
func (c *Client) UploadPipeline(ctx context.Context, graph *models.Graph) (*schemas.PipelineGet, error) {
	payload, err := schemas.FromGraph(graph)
	if err != nil {
		return nil, err
	}

	if err := c.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid pipeline payload: %w", err)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pipeline payload: %w", err)
	}

	if err := schemas.ValidatePipelineCreate(encoded); err != nil {
		return nil, err
	}

	c.logger.Info("Uploading pipeline", "pipeline", graph.Name, "nodes", len(graph.Nodes), "files", len(graph.Files))

	data, err := c.Post(ctx, "/v2/pipelines", json.RawMessage(encoded))
	if err != nil {
		return nil, err
	}

	var created schemas.PipelineGet
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline response: %w", err)
	}

	return &created, nil
}

// UploadFile uploads a local file as a standalone asset, hex-encoded.
func (c *Client) UploadFile(ctx context.Context, path string) (*schemas.FileGet, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	encoded := hex.EncodeToString(contents)
	create := schemas.FileCreate{
		FileBase: schemas.FileBase{
			Name:       filepath.Base(path),
			FileFormat: schemas.FileFormatHex,
		},
		FileBytes: &encoded,
	}

	data, err := c.Post(ctx, "/v2/files", create)
	if err != nil {
		return nil, err
	}

	var file schemas.FileGet
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode file response: %w", err)
	}

	return &file, nil
}
