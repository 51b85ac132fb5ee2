package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// Code is the adapter-level failure classification. The session core and its
// callers branch on codes, never on transport details.
type Code string

const (
	// CodeNetwork means no response was received at all.
	CodeNetwork Code = "NETWORK_ERROR"
	// CodeTimeout means the request exceeded the configured timeout.
	CodeTimeout Code = "TIMEOUT_ERROR"
	// CodeValidation maps HTTP 400.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeAuth maps HTTP 401.
	CodeAuth Code = "AUTH_ERROR"
	// CodePermission maps HTTP 403.
	CodePermission Code = "PERMISSION_ERROR"
	// CodeNotFound maps HTTP 404.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict maps HTTP 409.
	CodeConflict Code = "CONFLICT"
	// CodeRateLimit maps HTTP 429.
	CodeRateLimit Code = "RATE_LIMIT_ERROR"
	// CodeServer maps HTTP 5xx and every unmapped status.
	CodeServer Code = "SERVER_ERROR"
)

// Error is the classified failure produced by this package. It is the only
// error type the adapter returns for request failures.
type Error struct {
	Code      Code
	Status    int
	Message   string
	Details   json.RawMessage
	RequestID string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the classification from err, or "" when err is not an
// adapter error.
func CodeOf(err error) Code {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given classification.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// failureEnvelope is the backend's non-2xx body shape.
type failureEnvelope struct {
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	Details   json.RawMessage `json:"details"`
	RequestID string          `json:"requestId"`
}

func classifyStatus(status int) Code {
	switch status {
	case 400:
		return CodeValidation
	case 401:
		return CodeAuth
	case 403:
		return CodePermission
	case 404:
		return CodeNotFound
	case 409:
		return CodeConflict
	case 429:
		return CodeRateLimit
	default:
		return CodeServer
	}
}

func classifyResponse(status int, body []byte) *Error {
	var env failureEnvelope
	_ = json.Unmarshal(body, &env)

	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	if msg == "" {
		msg = "request failed"
	}

	return &Error{
		Code:      classifyStatus(status),
		Status:    status,
		Message:   msg,
		Details:   env.Details,
		RequestID: env.RequestID,
	}
}

func classifyTransport(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeTimeout, Message: err.Error()}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Code: CodeTimeout, Message: err.Error()}
	default:
		return &Error{Code: CodeNetwork, Message: err.Error()}
	}
}
