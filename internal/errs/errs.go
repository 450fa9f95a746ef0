// Package errs defines the node-wide error taxonomy: a *NodeError
// carrying a stable Kind, matchable with errors.As without string
// comparison. The chunk store, the CTSDB engine, and the container's
// Initialize report their failures this way; the container's Run,
// Halt, and Deinitialize wrap a module's own error with fmt.Errorf
// instead, and codec decode errors are returned as they are.
package errs

import (
	"errors"
	"fmt"
)

// Kind enumerates the infrastructure-level failure modes a node
// operator or caller needs to distinguish.
type Kind string

const (
	ConfigInvalid    Kind = "config_invalid"
	DirUnavailable   Kind = "dir_unavailable"
	LockContended    Kind = "lock_contended"
	NotOpen          Kind = "not_open"
	AlreadyOpen      Kind = "already_open"
	CorruptedChunk   Kind = "corrupted_chunk"
	CorruptedInput   Kind = "corrupted_input"
	RecordTooLarge   Kind = "record_too_large"
	FlushFailed      Kind = "flush_failed"
	ModuleInitFailed Kind = "module_init_failed"
)

// NodeError is the concrete error type behind every Kind above. Code
// is the Kind, Message is a human-readable summary, and Cause (when
// present) is the underlying error that triggered it.
type NodeError struct {
	Code    Kind
	Message string
	Cause   error
}

func (e *NodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *NodeError) Unwrap() error { return e.Cause }

// Is reports whether target is a *NodeError with the same Code,
// so callers can write errors.Is(err, errs.New(errs.NotOpen, "")).
func (e *NodeError) Is(target error) bool {
	other, ok := target.(*NodeError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New constructs a *NodeError with no underlying cause.
func New(code Kind, message string) *NodeError {
	return &NodeError{Code: code, Message: message}
}

// Wrap constructs a *NodeError carrying cause.
func Wrap(code Kind, message string, cause error) *NodeError {
	return &NodeError{Code: code, Message: message, Cause: cause}
}

// FlushFailure builds the FlushFailed error for a specific bucket.
func FlushFailure(bucket uint64, cause error) *NodeError {
	return Wrap(FlushFailed, fmt.Sprintf("flush failed at bucket %d", bucket), cause)
}

// ModuleInitFailure builds the ModuleInitFailed error for a named module.
func ModuleInitFailure(name string, cause error) *NodeError {
	return Wrap(ModuleInitFailed, fmt.Sprintf("module %q failed to initialize", name), cause)
}

// KindOf extracts the Kind from err if it is, or wraps, a *NodeError.
func KindOf(err error) (Kind, bool) {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Code, true
	}
	return "", false
}
