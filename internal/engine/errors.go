package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/ir"
)

// ErrReentrantPass is returned when Reconcile is called while a pass is
// already running (for example from an inject callback).
var ErrReentrantPass = errors.New("reconciliation pass already in progress")

// Error represents a failure detected while reconciling.
//
// Errors are scoped: ConfigID names the Config whose processing failed,
// PassSeq the pass it failed in (0 outside a pass).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ConfigID identifies the affected Config.
	ConfigID string

	// PassSeq identifies the pass.
	PassSeq int64

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeLeafNotIndexed indicates a coordinate referenced an unindexed leaf.
	ErrCodeLeafNotIndexed ErrorCode = "LEAF_NOT_INDEXED"

	// ErrCodeOffsetOutOfRange indicates an offset no index entry could hold.
	ErrCodeOffsetOutOfRange ErrorCode = "OFFSET_OUT_OF_RANGE"

	// ErrCodeMalformedSelector indicates a Config whose selector has no exact text.
	ErrCodeMalformedSelector ErrorCode = "MALFORMED_SELECTOR"

	// ErrCodeInjectFailure indicates an inject callback failed for one span.
	ErrCodeInjectFailure ErrorCode = "INJECT_FAILURE"

	// ErrCodeDuplicateConfig indicates two Configs share an ID.
	ErrCodeDuplicateConfig ErrorCode = "DUPLICATE_CONFIG"

	// ErrCodeInvalidConfig indicates a Config missing its ID or inject callback.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ConfigID != "" {
		msg += fmt.Sprintf(" (config=%s", e.ConfigID)
		if e.PassSeq != 0 {
			msg += fmt.Sprintf(", pass=%d", e.PassSeq)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsInjectFailure returns true if the error is an isolated inject failure.
// Uses errors.As to handle wrapped errors.
func IsInjectFailure(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInjectFailure
	}
	return false
}

// IsIndexError returns true if the error is an index invariant violation.
func IsIndexError(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeLeafNotIndexed || ee.Code == ErrCodeOffsetOutOfRange
	}
	return anchor.IsIndexError(err)
}

// newResolveError classifies a resolution failure for one Config.
func newResolveError(configID string, seq int64, err error) *Error {
	code := ErrCodeOffsetOutOfRange
	switch {
	case errors.Is(err, anchor.ErrLeafNotIndexed):
		code = ErrCodeLeafNotIndexed
	case errors.Is(err, ir.ErrMalformedSelector):
		code = ErrCodeMalformedSelector
	}
	return &Error{
		Code:     code,
		Message:  "selector resolution failed",
		ConfigID: configID,
		PassSeq:  seq,
		Err:      err,
	}
}

// newInjectError wraps an inject failure for one span.
func newInjectError(configID string, seq int64, err error) *Error {
	return &Error{
		Code:     ErrCodeInjectFailure,
		Message:  "inject failed",
		ConfigID: configID,
		PassSeq:  seq,
		Err:      err,
	}
}
