// Package errs provides structured error types and helpers for the tariff pipeline.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies a pipeline error category.
type Code string

const (
	// CodeProvider indicates a transport or shape failure from the upstream tariff API.
	CodeProvider Code = "provider_error"
	// CodeSchema indicates the store is missing expected structure (migrations not applied).
	CodeSchema Code = "schema_error"
	// CodePersistence indicates a transaction or timeout failure during a store operation.
	CodePersistence Code = "persistence_error"
	// CodeSinkNotFound indicates the sink spreadsheet does not exist.
	CodeSinkNotFound Code = "sink_not_found"
	// CodeSinkPermission indicates the sink spreadsheet is not shared with the service account.
	CodeSinkPermission Code = "sink_permission_denied"
	// CodeSinkUnreachable indicates any other sink-side failure.
	CodeSinkUnreachable Code = "sink_unreachable"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
)

// E captures structured error information produced across the pipeline.
type E struct {
	Component string
	Code      Code
	HTTP      int
	Message   string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the component and error code.
func New(component string, code Code, opts ...Option) *E {
	e := &E{
		Component: strings.TrimSpace(component),
		Code:      code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	component := strings.TrimSpace(e.Component)
	if component == "" {
		component = "unknown"
	}
	parts = append(parts, "component="+component)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the pipeline error code from err, unwrapping as needed.
// It returns an empty Code when err carries no envelope.
func CodeOf(err error) Code {
	var envelope *E
	if errors.As(err, &envelope) {
		return envelope.Code
	}
	return ""
}

// IsRetryable reports whether err represents a failure the fetch job may retry.
// Only provider-side failures qualify.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeProvider
}

// IsSinkFailure reports whether err belongs to the per-sink failure family.
func IsSinkFailure(err error) bool {
	switch CodeOf(err) {
	case CodeSinkNotFound, CodeSinkPermission, CodeSinkUnreachable:
		return true
	default:
		return false
	}
}
