package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/moogar0880/problems"
)

// APIError is a non-2xx response from the remote service. When the service
// answers with an RFC-7807 problem document the decoded problem is attached.
type APIError struct {
	StatusCode int
	Problem    *problems.Problem
	Body       string
}

func (e *APIError) Error() string {
	if e.Problem != nil && e.Problem.Detail != "" {
		return fmt.Sprintf("remote service returned %d: %s", e.StatusCode, e.Problem.Detail)
	}

	return fmt.Sprintf("remote service returned %d", e.StatusCode)
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, problems.ProblemMediaType) || strings.HasPrefix(contentType, "application/json") {
		var problem problems.Problem
		if err := json.Unmarshal(body, &problem); err == nil && (problem.Detail != "" || problem.Title != "") {
			apiErr.Problem = &problem
		}
	}

	return apiErr
}
