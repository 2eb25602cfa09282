package lookup

import (
	"errors"
	"fmt"

	"github.com/matsen/refmark/internal/metadata"
)

// Common errors returned by the lookup client. A work that does not exist
// surfaces as metadata.ErrNotFound so callers need only one sentinel.
var (
	// ErrAuthError indicates an authentication error (missing/invalid token).
	ErrAuthError = errors.New("metadata service authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("metadata service rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error reaching metadata service")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from metadata service")
)

// APIError represents an error response from the metadata service.
type APIError struct {
	StatusCode int
	Message    string
	DOI        string // For context in DOI lookups
}

func (e *APIError) Error() string {
	if e.DOI != "" {
		return fmt.Sprintf("metadata service error (status %d): %s (doi: %s)", e.StatusCode, e.Message, e.DOI)
	}
	return fmt.Sprintf("metadata service error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates the work was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, metadata.ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
