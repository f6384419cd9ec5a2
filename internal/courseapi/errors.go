package courseapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches any StatusError carrying a 404.
var ErrNotFound = errors.New("not found")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// InvalidPayloadError indicates the backend returned a body that does not
// match the expected shape.
type InvalidPayloadError struct {
	Path    string
	Content json.RawMessage
	Err     error
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload from %s: %v", e.Path, e.Err)
}

func (e *InvalidPayloadError) Unwrap() error { return e.Err }

// IncompatibleVersionError is returned when the backend API is older than
// the client supports.
type IncompatibleVersionError struct {
	Server  string
	Minimum string
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("backend API %s is older than required %s", e.Server, e.Minimum)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
