package github

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind distinguishes the auth failures a user can fix from everything
// else, to drive user-facing messaging.
type ErrorKind string

const (
	ErrorKindInvalidToken    ErrorKind = "INVALID_TOKEN"
	ErrorKindInvalidUsername ErrorKind = "INVALID_USERNAME"
	ErrorKindRateLimited     ErrorKind = "RATE_LIMITED"
	ErrorKindGeneric         ErrorKind = "GENERIC"
)

// APIError is a classified GitHub API failure.
type APIError struct {
	Kind     ErrorKind
	Username string
	Status   int
	Body     string
	Err      error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case ErrorKindInvalidToken:
		return "github: personal token was rejected"
	case ErrorKindInvalidUsername:
		return fmt.Sprintf("github: no commits found for username %q", e.Username)
	case ErrorKindRateLimited:
		return "github: api rate limit exceeded"
	default:
		if e.Err != nil {
			return fmt.Sprintf("github: %v", e.Err)
		}
		return fmt.Sprintf("github: api returned status %d: %s", e.Status, e.Body)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

func classifyError(status int, body, username string) *APIError {
	kind := ErrorKindGeneric
	switch {
	case status == http.StatusUnauthorized:
		kind = ErrorKindInvalidToken
	case status == http.StatusUnprocessableEntity && strings.Contains(body, "could not be resolved"):
		kind = ErrorKindInvalidUsername
	case status == http.StatusForbidden && strings.Contains(body, "rate limit"):
		kind = ErrorKindRateLimited
	}
	return &APIError{Kind: kind, Username: username, Status: status, Body: body}
}
