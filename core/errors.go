package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure categories. Kinds are assigned at the
// origin of a failure and propagated as values; callers never reconstruct a
// kind from message text.
type ErrorKind string

const (
	KindValidation       ErrorKind = "ValidationError"
	KindConfiguration    ErrorKind = "ConfigurationError"
	KindRateLimited      ErrorKind = "RateLimited"
	KindUnauthorized     ErrorKind = "Unauthorized"
	KindUnavailable      ErrorKind = "Unavailable"
	KindMalformed        ErrorKind = "Malformed"
	KindModel            ErrorKind = "ModelError"
	KindStream           ErrorKind = "StreamError"
	KindToolFailure      ErrorKind = "ToolFailure"
	KindAllFailed        ErrorKind = "AllFailed"
	KindInvalidArguments ErrorKind = "InvalidArguments"
	KindToolNotAllowed   ErrorKind = "ToolNotAllowed"
	KindProviderFailure  ErrorKind = "ProviderFailure"
	KindInternal         ErrorKind = "Internal"
)

// HTTPStatus maps a kind to the status used by the chat endpoint envelope.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidArguments, KindModel:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine readable code placed in the error envelope.
func (k ErrorKind) Code() string {
	switch k {
	case KindValidation, KindInvalidArguments:
		return "VALIDATION_ERROR"
	case KindConfiguration:
		return "SERVICE_UNAVAILABLE"
	case KindRateLimited:
		return "RATE_LIMIT_EXCEEDED"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindModel:
		return "MODEL_ERROR"
	case KindStream:
		return "STREAM_ERROR"
	case KindUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// Error is a classified error carrying its kind alongside an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates an Error without a cause.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError classifies err under kind. A nil err yields nil.
func WrapError(kind ErrorKind, message string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, core.NewError(kind, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

// Kinder is implemented by errors that know their own kind (e.g. provider errors).
type Kinder interface {
	ErrorKind() ErrorKind
}

// ErrorKind implements Kinder.
func (e *Error) ErrorKind() ErrorKind { return e.Kind }

// KindOf returns the first kind found on err's chain, or fallback.
func KindOf(err error, fallback ErrorKind) ErrorKind {
	var k Kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return fallback
}

// ToolError is the structured error payload of a failed tool invocation.
type ToolError struct {
	Tool    string    `json:"tool"`              // Name of the tool that failed
	Kind    ErrorKind `json:"kind"`              // Failure category
	Message string    `json:"message"`           // Human readable message
	Details any       `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error [%s] in %s: %s", e.Kind, e.Tool, e.Message)
}

// ErrorKind implements Kinder.
func (e *ToolError) ErrorKind() ErrorKind { return e.Kind }

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool string, kind ErrorKind, message string) *ToolError {
	return &ToolError{Tool: tool, Kind: kind, Message: message}
}
