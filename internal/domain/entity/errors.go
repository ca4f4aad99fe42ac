package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain layer operations.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrEmptyBatch indicates an attempt to build a notification batch without items
	ErrEmptyBatch = errors.New("notification batch must contain at least one item")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// RequestErrorKind classifies a failed fetch attempt.
type RequestErrorKind string

const (
	// KindNetwork covers connection failures such as refused or reset connections.
	KindNetwork RequestErrorKind = "network"
	// KindTimeout means a single attempt exceeded its own deadline.
	KindTimeout RequestErrorKind = "timeout"
	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus RequestErrorKind = "http_status"
	// KindProtocol covers malformed requests and unusable responses.
	KindProtocol RequestErrorKind = "protocol"
)

// RequestError is the failure of one fetch attempt.
// Attempt is the 1-based number of the attempt that produced it.
type RequestError struct {
	Kind       RequestErrorKind
	StatusCode int
	Message    string
	Attempt    int
	Err        error
}

// Error returns a message containing the kind, attempt and cause.
func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString("request failed (")
	b.WriteString(string(e.Kind))
	if e.Kind == KindHTTPStatus {
		fmt.Fprintf(&b, " %d", e.StatusCode)
	}
	fmt.Fprintf(&b, ", attempt %d)", e.Attempt)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the request may succeed.
// Network failures, attempt timeouts and 5xx statuses are transient;
// 4xx statuses and protocol errors are permanent.
func (e *RequestError) Transient() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// ExtractionError means a payload could not be turned into items.
// It is never retried: the payload, not the network, is at fault.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract items from %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Transient always reports false.
func (e *ExtractionError) Transient() bool {
	return false
}

// StorageErrorKind distinguishes read and write failures of the change store.
type StorageErrorKind string

const (
	// StorageUnreadable means the store exists but could not be read or decoded.
	StorageUnreadable StorageErrorKind = "unreadable"
	// StorageUnwritable means the updated set could not be persisted.
	StorageUnwritable StorageErrorKind = "unwritable"
)

// StorageError is a failure of the change store.
type StorageError struct {
	Kind     StorageErrorKind
	Location string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("change store %s (%s): %v", e.Kind, e.Location, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ChannelFailure records one notification channel that failed to deliver.
type ChannelFailure struct {
	Channel string
	Err     error
}

// NotificationError reports the channels that failed to deliver a batch.
type NotificationError struct {
	Failures []ChannelFailure
}

func (e *NotificationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Channel, f.Err))
	}
	return "notification failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes every channel error to errors.Is and errors.As.
func (e *NotificationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
