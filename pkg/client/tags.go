package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/conduitml/conduit/pkg/schemas"
)

// ErrInvalidTagName is returned when a tag name does not match the
// 'name:tag' pattern. The check runs before any remote call.
var ErrInvalidTagName = errors.New("tag name must match pattern 'pipeline:tag'")

// IsInvalidTagName reports whether the error is a tag-name validation failure.
func IsInvalidTagName(err error) bool {
	return errors.Is(err, ErrInvalidTagName)
}

// GetTag fetches a tag by its 'name:tag' identifier.
func (c *Client) GetTag(ctx context.Context, tagName string) (*schemas.TagGet, error) {
	if !schemas.ValidTagName.MatchString(tagName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTagName, tagName)
	}

	data, err := c.Get(ctx, "/v2/pipeline-tags/by-name/"+url.PathEscape(tagName), nil)
	if err != nil {
		return nil, err
	}

	var tag schemas.TagGet
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode tag: %w", err)
	}

	return &tag, nil
}

// CreateTag points a new tag at a pipeline. Source may be another tag
// (whose target pipeline is resolved first) or a pipeline ID.
func (c *Client) CreateTag(ctx context.Context, source, target string) (*schemas.TagGet, error) {
	pipelineID, err := c.resolveSource(ctx, source)
	if err != nil {
		return nil, err
	}

	if !schemas.ValidTagName.MatchString(target) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTagName, target)
	}

	create := schemas.TagCreate{
		Name:       target,
		PipelineID: pipelineID,
	}
	if err := c.validate.Struct(create); err != nil {
		return nil, fmt.Errorf("invalid tag create request: %w", err)
	}

	data, err := c.Post(ctx, "/v2/pipeline-tags", create)
	if err != nil {
		return nil, err
	}

	var tag schemas.TagGet
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode tag: %w", err)
	}

	return &tag, nil
}

// UpdateTag points an existing tag at a different pipeline. Source may be
// another tag or a pipeline ID.
func (c *Client) UpdateTag(ctx context.Context, source, target string) (*schemas.TagGet, error) {
	pipelineID, err := c.resolveSource(ctx, source)
	if err != nil {
		return nil, err
	}

	existing, err := c.GetTag(ctx, target)
	if err != nil {
		return nil, err
	}

	patch := schemas.TagPatch{PipelineID: pipelineID}
	if err := c.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("invalid tag patch request: %w", err)
	}

	data, err := c.Patch(ctx, "/v2/pipeline-tags/"+url.PathEscape(existing.ID), patch)
	if err != nil {
		return nil, err
	}

	var tag schemas.TagGet
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode tag: %w", err)
	}

	return &tag, nil
}

// ListTags fetches a page of tags ordered by creation time, newest first,
// optionally filtered by target pipeline ID.
func (c *Client) ListTags(ctx context.Context, skip, limit int, pipelineID string) (*schemas.Paginated[schemas.TagGet], error) {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order_by", "created_at:desc")

	if pipelineID != "" {
		params.Set("pipeline_id", pipelineID)
	}

	data, err := c.Get(ctx, "/v2/pipeline-tags", params)
	if err != nil {
		return nil, err
	}

	var page schemas.Paginated[schemas.TagGet]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode tag list: %w", err)
	}

	return &page, nil
}

// DeleteTag removes a tag by its 'name:tag' identifier.
func (c *Client) DeleteTag(ctx context.Context, tagName string) error {
	tag, err := c.GetTag(ctx, tagName)
	if err != nil {
		return err
	}

	_, err = c.Delete(ctx, "/v2/pipeline-tags/"+url.PathEscape(tag.ID))

	return err
}

// resolveSource turns a tag-or-pipeline-id source argument into a pipeline
// ID. A source matching the tag pattern is resolved remotely; anything else
// is treated as a pipeline ID.
func (c *Client) resolveSource(ctx context.Context, source string) (string, error) {
	if schemas.ValidTagName.MatchString(source) {
		tag, err := c.GetTag(ctx, source)
		if err != nil {
			return "", err
		}

		return tag.PipelineID, nil
	}

	return source, nil
}
