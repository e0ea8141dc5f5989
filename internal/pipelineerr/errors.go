// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipelineerr defines the closed error taxonomy shared by every
// component of the pipeline orchestration core. Components return typed
// *Error values instead of ad-hoc strings so the Run Coordinator can make a
// single, consistent retry decision regardless of which stage produced the
// failure.
package pipelineerr

import "fmt"

// Kind is a closed taxonomy of failure categories. Never retried unless
// IsRetryable(kind) reports true.
type Kind string

const (
	// Validation indicates a schema or structural rule failed. Never retried.
	Validation Kind = "Validation"
	// ContextMissing indicates an expected input context was absent or expired.
	// Never retried within the same run.
	ContextMissing Kind = "ContextMissing"
	// Backend indicates a transport failure talking to a store or adapter.
	// Retried per the stage's policy.
	Backend Kind = "Backend"
	// Throttled indicates the remote refused due to rate limiting. Retried
	// with longer backoff.
	Throttled Kind = "Throttled"
	// Timeout indicates a deadline was exceeded. Retried once if policy allows.
	Timeout Kind = "Timeout"
	// Cancelled indicates cooperative cancellation. Never retried.
	Cancelled Kind = "Cancelled"
	// QualityGateRejected indicates the gate's structural or quantitative
	// rules failed admission. Never retried.
	QualityGateRejected Kind = "QualityGateRejected"
	// Config indicates missing or malformed configuration. Fatal at startup.
	Config Kind = "Config"
)

// Error is the single error shape returned by core operations. It carries a
// Kind for retry/propagation decisions and a display-safe Message; Cause is
// the wrapped underlying error, if any, and is never rendered to end users.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error; otherwise
// it returns Backend, treating unclassified errors as transient transport
// failures rather than silently swallowing them.
func KindOf(err error) Kind {
	var pe *Error
	if ok := asError(err, &pe); ok {
		return pe.Kind
	}
	return Backend
}

func asError(err error, target **Error) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsRetryable reports whether the Run Coordinator and Stage Adapter Registry
// should retry an operation that failed with the given kind. Only transient,
// transport-shaped failures are retryable; everything else is a terminal
// stage-level decision.
func IsRetryable(kind Kind) bool {
	switch kind {
	case Backend, Throttled, Timeout:
		return true
	default:
		return false
	}
}
