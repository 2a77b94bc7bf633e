// ABOUTME: Error taxonomy shared by the store, classifier gate and CLI
// ABOUTME: Codes mirror the four failure classes callers are expected to branch on
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies the class of a failure
type Code string

const (
	CodePolicyViolation    Code = "POLICY_VIOLATION"
	CodeNotFound           Code = "NOT_FOUND"
	CodeSizeLimitExceeded  Code = "SIZE_LIMIT_EXCEEDED"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
)

// Error is a classified failure. Factors is only populated for policy violations.
type Error struct {
	Code    Code
	Message string
	Err     error
	Factors []string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Factors) > 0 {
		msg += ": " + strings.Join(e.Factors, "; ")
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PolicyViolation reports content rejected by the classifier
func PolicyViolation(msg string, factors []string) error {
	return &Error{Code: CodePolicyViolation, Message: msg, Factors: append([]string(nil), factors...)}
}

// NotFound reports a missing entity or path
func NotFound(format string, args ...interface{}) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// SizeLimitExceeded reports a file over the hard size ceiling
func SizeLimitExceeded(format string, args ...interface{}) error {
	return &Error{Code: CodeSizeLimitExceeded, Message: fmt.Sprintf(format, args...)}
}

// StorageUnavailable wraps a backing store failure
func StorageUnavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Code: CodeStorageUnavailable, Message: op, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Factors returns the classifier factors attached to a policy violation, if any
func Factors(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Factors
	}
	return nil
}
