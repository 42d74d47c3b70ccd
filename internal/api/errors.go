package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned, without issuing a request, when an
// authenticated call is made and no session token is stored.
var ErrUnauthenticated = errors.New("api: no session token")

// APIError means the server answered and rejected the request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// NetworkError means no response arrived at all. Retrying may help.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transport failure.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// newAPIError extracts a human-readable message from an error response,
// falling back to one derived from the status code.
func newAPIError(status int, body []byte) *APIError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if msg := strings.TrimSpace(eb.Message); msg != "" {
			return &APIError{StatusCode: status, Message: msg}
		}
		if msg := errorFieldText(eb.Error); msg != "" {
			return &APIError{StatusCode: status, Message: msg}
		}
	}
	return &APIError{StatusCode: status, Message: statusMessage(status)}
}

func errorFieldText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

func statusMessage(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return fmt.Sprintf("request failed with status %d", status)
	}
	return fmt.Sprintf("request failed with status %d (%s)", status, text)
}
