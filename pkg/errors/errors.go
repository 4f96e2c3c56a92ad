// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the structured error kinds the cram core can
// raise, per the error taxonomy in the file-format and bootstrap spec.
package errors

import (
	stderrors "errors"
	"fmt"
	"syscall"
)

// Code identifies one of the core's fatal error kinds.
type Code string

const (
	// NotFound means the cram file path could not be opened.
	NotFound Code = "NOT_FOUND"

	// NotCramFile means the file's magic number didn't match.
	NotCramFile Code = "NOT_CRAM_FILE"

	// Truncated means a short read, from a file or an in-memory buffer.
	Truncated Code = "TRUNCATED"

	// OversizeRecord means a job record's size exceeded max_job_size.
	OversizeRecord Code = "OVERSIZE_RECORD"

	// InvalidDelta means subtractions were present without a base job,
	// or a sort-order violation was detected during the merge.
	InvalidDelta Code = "INVALID_DELTA"

	// UndersizedCommunicator means the parent communicator has fewer
	// ranks than the file's total_procs.
	UndersizedCommunicator Code = "UNDERSIZED_COMMUNICATOR"

	// MessagingError means the messaging substrate reported a failure.
	MessagingError Code = "MESSAGING_ERROR"
)

// CramError is the error type returned by every core operation that can
// fail. It carries enough context for a collaborator to decide whether
// to abort locally or escalate to a collective abort.
type CramError struct {
	Code    Code
	Message string
	Cause   error
}

// New creates a CramError with no underlying cause.
func New(code Code, message string) *CramError {
	return &CramError{Code: code, Message: message}
}

// Wrap creates a CramError that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *CramError {
	return &CramError{Code: code, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *CramError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *CramError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CramError with the same Code.
func (e *CramError) Is(target error) bool {
	t, ok := target.(*CramError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ExitCode returns the process exit status a collective abort should use
// for this error, per the core's "exit codes" contract: fatal failures
// abort with 1 unless the wrapped cause carries a more meaningful errno.
func (e *CramError) ExitCode() int {
	if errno, ok := e.Cause.(interface{ ExitCode() int }); ok {
		if code := errno.ExitCode(); code != 0 {
			return code
		}
	}
	var errno syscall.Errno
	if stderrors.As(e.Cause, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}
