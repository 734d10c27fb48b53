// Package domain defines the core types, schemas, and errors of the sync engine.
package domain

import (
	"errors"
	"fmt"
)

// RateLimitScope distinguishes transient throttling from an exhausted
// fixed-window quota.
type RateLimitScope string

const (
	// RateScopeSoft is a transient limit: back off and retry the same request.
	RateScopeSoft RateLimitScope = "SOFT"
	// RateScopeHard is a daily-window quota: stop calling the provider for
	// the remainder of the run.
	RateScopeHard RateLimitScope = "DAY"
)

// TransientError indicates a retryable network or server failure.
type TransientError struct {
	Message string
}

func (e *TransientError) Error() string { return e.Message }

// RateLimitError indicates the provider throttled the request.
type RateLimitError struct {
	Scope   RateLimitScope
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%s): %s", e.Scope, e.Message)
}

// PermissionError indicates the provider denied access to a resource.
// Callers skip the item; this is not a stage failure.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// MalformedRecordError indicates a single raw record could not be
// transformed. The record is dropped; the batch continues.
type MalformedRecordError struct {
	Field   string
	Message string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: field %q: %s", e.Field, e.Message)
}

// ErrTransient creates a TransientError with a formatted message.
func ErrTransient(format string, args ...interface{}) *TransientError {
	return &TransientError{Message: fmt.Sprintf(format, args...)}
}

// ErrRateLimit creates a RateLimitError for the given scope.
func ErrRateLimit(scope RateLimitScope, format string, args ...interface{}) *RateLimitError {
	return &RateLimitError{Scope: scope, Message: fmt.Sprintf(format, args...)}
}

// ErrPermission creates a PermissionError with a formatted message.
func ErrPermission(format string, args ...interface{}) *PermissionError {
	return &PermissionError{Message: fmt.Sprintf(format, args...)}
}

// ErrMalformed creates a MalformedRecordError for the given field.
func ErrMalformed(field, format string, args ...interface{}) *MalformedRecordError {
	return &MalformedRecordError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err is a retryable network/server failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsHardLimit reports whether err is an exhausted fixed-window quota.
func IsHardLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re) && re.Scope == RateScopeHard
}

// IsSoftLimit reports whether err is a transient rate limit.
func IsSoftLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re) && re.Scope == RateScopeSoft
}

// IsPermission reports whether err is a skippable permission denial.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsMalformed reports whether err is a single-record transform failure.
func IsMalformed(err error) bool {
	var me *MalformedRecordError
	return errors.As(err, &me)
}
