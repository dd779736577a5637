package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures.
type ErrorCode string

const (
	// CodePerEntry marks a recoverable failure on a single filesystem entry
	// (permission denied, vanished file, stat error). The entry is skipped.
	CodePerEntry ErrorCode = "PER_ENTRY"

	// CodeDirList marks a recoverable failure listing one directory; the
	// subtree is skipped and traversal continues elsewhere.
	CodeDirList ErrorCode = "DIR_LIST"

	// CodeCheckpointConflict marks a pre-existing run temp directory, the
	// leftover of a crashed or incomplete run. The run aborts before any
	// traversal begins.
	CodeCheckpointConflict ErrorCode = "CHECKPOINT_CONFLICT"

	// CodeArtifactCorruption marks a checkpoint or persisted artifact that
	// cannot be read or decoded. The run aborts; no partial table is written.
	CodeArtifactCorruption ErrorCode = "ARTIFACT_CORRUPTION"

	// CodeSchemaViolation marks a record with missing, extra, or wrongly
	// typed columns. Fatal: tolerating it would misalign every later row.
	CodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"
)

// SweepError is the structured error type used throughout the pipeline.
type SweepError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Fatal   bool
}

// Error returns a formatted error string.
func (e *SweepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *SweepError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target carries the same error code.
func (e *SweepError) Is(target error) bool {
	var t *SweepError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a SweepError.
func NewError(code ErrorCode, message string) *SweepError {
	return &SweepError{Code: code, Message: message, Fatal: isFatal(code)}
}

// WrapError creates a SweepError wrapping an existing error.
func WrapError(code ErrorCode, message string, cause error) *SweepError {
	return &SweepError{Code: code, Message: message, Cause: cause, Fatal: isFatal(code)}
}

// CodeOf extracts the error code from an error chain, or "" if the chain
// contains no SweepError.
func CodeOf(err error) ErrorCode {
	var se *SweepError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsFatal reports whether an error (or its chain) must abort the run.
// Errors outside the pipeline taxonomy are treated as fatal.
func IsFatal(err error) bool {
	var se *SweepError
	if errors.As(err, &se) {
		return se.Fatal
	}
	return true
}

// isFatal maps the error taxonomy onto the propagation policy: per-entry
// and directory-list failures are local, everything structural aborts.
func isFatal(code ErrorCode) bool {
	switch code {
	case CodePerEntry, CodeDirList:
		return false
	default:
		return true
	}
}
