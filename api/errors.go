package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	// KindValidation is bad input rejected before any network call.
	KindValidation Kind = "validation"
	// KindAuthentication is a 401 from the service.
	KindAuthentication Kind = "authentication"
	// KindServer is a 500 from the service.
	KindServer Kind = "server"
	// KindNetwork is a transport failure other than the configured timeout.
	KindNetwork Kind = "network"
	// KindTimeout is a request aborted by the configured deadline.
	KindTimeout Kind = "timeout"
	// KindAPI is any other non-success status.
	KindAPI Kind = "api"
)

// ErrDeadline is the cancellation cause installed by transports when the
// configured request timeout fires.
var ErrDeadline = errors.New("request timeout exceeded")

// Error is the single error type surfaced by brandlink clients.
type Error struct {
	Kind Kind

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Body is the decoded JSON error body, nil when absent or not JSON.
	Body any

	Message   string
	RequestID string
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("brandlink ")
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.RequestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(e.RequestID)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the error was caused by the request deadline.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// Validation builds a validation error with the given message.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// AsError extracts *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// KindForStatus maps a non-success HTTP status to a Kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusInternalServerError:
		return KindServer
	default:
		return KindAPI
	}
}

// ClassifyStatus builds the error for a non-success response.
// A body that is not JSON is ignored and the message falls back to statusText.
func ClassifyStatus(status int, body []byte, statusText string) *Error {
	e := &Error{
		Kind:       KindForStatus(status),
		StatusCode: status,
		Message:    statusText,
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	var decoded any
	if len(body) == 0 || json.Unmarshal(body, &decoded) != nil {
		return e
	}
	e.Body = decoded
	if msg := bodyMessage(decoded); msg != "" {
		e.Message = msg
	}
	return e
}

// bodyMessage looks for {"error": "..."}, {"error": {"message": "..."}} or {"message": "..."}.
func bodyMessage(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	switch v := obj["error"].(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	if msg, ok := obj["message"].(string); ok {
		return msg
	}
	return ""
}

// ClassifyTransport wraps a failure that happened before or while reading a
// response. Errors already classified pass through unchanged.
func ClassifyTransport(ctx context.Context, err error) *Error {
	if e, ok := AsError(err); ok {
		return e
	}
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrDeadline) {
		kind = KindTimeout
	}
	if ctx != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrDeadline) || errors.Is(cause, context.DeadlineExceeded) {
			kind = KindTimeout
			if !errors.Is(err, cause) {
				err = fmt.Errorf("%w: %w", cause, err)
			}
		}
	}
	return &Error{Kind: kind, Cause: err}
}
