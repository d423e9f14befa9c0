package schemas

import "regexp"

// We loosely follow the Docker tag conventions for valid tag names:
//
//   - A tag name comprises a 'name' component and a 'tag' component in that
//     order separated by a colon, e.g. `name:tag`.
//   - Name components may contain lowercase letters, digits and separators
//     (periods, underscores, dashes, forward slashes). A name component may
//     not start or end with a separator.
//   - A tag component must be valid ASCII and may contain lowercase and
//     uppercase letters, digits, underscores, periods and dashes. It may not
//     start with a period or a dash and may contain a maximum of 128
//     characters.
var ValidTagName = regexp.MustCompile(
	`^[a-z0-9][a-z0-9-._/]*[a-z0-9]:[0-9A-Za-z_][0-9A-Za-z-_.]{0,127}$`,
)

// TagCreate is the request to point a new tag at a pipeline.
type TagCreate struct {
	Name       string `json:"name"        validate:"required"`
	PipelineID string `json:"pipeline_id" validate:"required"`
}

// TagGet is the remote service's representation of a pipeline tag.
type TagGet struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PipelineID string `json:"pipeline_id"`
}

// TagPatch points an existing tag at a different pipeline.
type TagPatch struct {
	PipelineID string `json:"pipeline_id" validate:"required"`
}
