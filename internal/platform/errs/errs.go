package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes application errors for HTTP status mapping.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates the request was malformed (HTTP 400).
	InvalidInput
	// Unreachable indicates a remote host could not be reached (HTTP 502).
	Unreachable
	// Timeout indicates the remote took too long to respond (HTTP 504).
	Timeout
	// ParsingFailed indicates a response could not be parsed (HTTP 500).
	ParsingFailed
	// NotFound indicates the addressed record does not exist (HTTP 404).
	NotFound
	// Conflict indicates the record is not in a state that allows the change (HTTP 409).
	Conflict
	// Rejected indicates the remote answered with a non-2xx status.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case ParsingFailed:
		return "parsing_failed"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the remote side
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// KindOf returns the Kind of the first AppError in err's chain, or Unknown.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// HTTPStatus maps a Kind to the status code served for it.
func HTTPStatus(k Kind) int {
	switch k {
	case InvalidInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unreachable, Rejected:
		return http.StatusBadGateway
	case Timeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
