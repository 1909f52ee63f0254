package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// ErrorKind is a coarse classification used in logs, metrics and API payloads.
type ErrorKind string

const (
	KindExternal      ErrorKind = "external"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindTransient     ErrorKind = "transient"
)

// ServiceError carries stage context for a failure. It matches its marker via
// errors.Is and unwraps to the underlying cause.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Code      string
	Hint      string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

// Is reports whether target is this error's marker.
func (e *ServiceError) Is(target error) bool {
	return target != nil && e.Marker == target
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// ErrorKind returns the classification derived from the marker.
func (e *ServiceError) ErrorKind() string {
	return string(kindForMarker(e.Marker))
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WithCode attaches a stable machine-readable code (for example
// "openai_api_key_missing") to a service error. Other errors are wrapped first.
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	svcErr := asServiceError(err)
	svcErr.Code = strings.TrimSpace(code)
	return svcErr
}

// WithHint attaches an operator hint to a service error.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	svcErr := asServiceError(err)
	svcErr.Hint = strings.TrimSpace(hint)
	return svcErr
}

func asServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		clone := *svcErr
		return &clone
	}
	return &ServiceError{Marker: ErrTransient, Message: strings.TrimSpace(err.Error()), Cause: err}
}

// ErrorDetails is a flattened view of a failure for logging and API output.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Code      string
	Hint      string
	Cause     error
}

// Details extracts structured information from err. Errors that were not
// produced by Wrap report KindTransient and their plain message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return ErrorDetails{Kind: kindForError(err), Message: strings.TrimSpace(err.Error())}
	}
	message := svcErr.Message
	if message == "" && svcErr.Cause != nil {
		message = strings.TrimSpace(svcErr.Cause.Error())
	}
	return ErrorDetails{
		Kind:      kindForMarker(svcErr.Marker),
		Stage:     svcErr.Stage,
		Operation: svcErr.Operation,
		Message:   message,
		Code:      svcErr.Code,
		Hint:      svcErr.Hint,
		Cause:     svcErr.Cause,
	}
}

// Code returns the machine-readable code attached to err, if any.
func Code(err error) string {
	return Details(err).Code
}

func kindForError(err error) ErrorKind {
	for _, marker := range []error{ErrValidation, ErrConfiguration, ErrNotFound, ErrTimeout, ErrExternalTool} {
		if errors.Is(err, marker) {
			return kindForMarker(marker)
		}
	}
	return KindTransient
}

func kindForMarker(marker error) ErrorKind {
	switch marker {
	case ErrValidation:
		return KindValidation
	case ErrConfiguration:
		return KindConfiguration
	case ErrNotFound:
		return KindNotFound
	case ErrTimeout:
		return KindTimeout
	case ErrExternalTool:
		return KindExternal
	default:
		return KindTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
