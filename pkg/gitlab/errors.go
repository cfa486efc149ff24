package gitlab

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches an APIError with status 404.
	ErrNotFound = errors.New("gitlab: not found")

	// ErrUnauthorized matches an APIError with status 401 or 403.
	ErrUnauthorized = errors.New("gitlab: unauthorized")

	// ErrGraphQL is wrapped by errors reported in a GraphQL response body.
	ErrGraphQL = errors.New("gitlab: graphql error")
)

// APIError is a non-2xx response from the GitLab API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gitlab: %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("gitlab: %s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// Is lets errors.Is match the sentinel errors by status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}
