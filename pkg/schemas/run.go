package schemas

// RunCreate is the request to execute a pipeline on the local dev server.
type RunCreate struct {
	Pipeline string         `json:"pipeline" validate:"required,min=1"`
	Inputs   []any          `json:"inputs"`
	Kwargs   map[string]any `json:"kwargs,omitempty"`
}

// RunResult is the outcome of a local pipeline run.
type RunResult struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`
	Outputs  []any  `json:"outputs"`
	// DurationMS is the wall-clock execution time in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}
