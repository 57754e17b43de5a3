package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("already exists")
	ErrValidation             = errors.New("validation failed")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrUnresolvedCollaborator = errors.New("unresolved collaborator")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrPartialFailure         = errors.New("partial failure")

	// ErrPermissionDenied is returned when a role check fails before a write.
	ErrPermissionDenied = ErrForbidden
	// ErrDuplicateName is returned when a sibling folder already uses a name.
	ErrDuplicateName = ErrConflict
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (folder, file)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// PermissionError reports a role check that did not pass.
type PermissionError struct {
	Operation string
	Held      string
	Required  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s requires %s role, have %s", e.Operation, e.Required, e.Held)
}

func (e *PermissionError) StatusCode() int {
	return http.StatusForbidden
}

// Is allows errors.Is() to match against ErrForbidden
func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// UnresolvedCollaboratorError lists invite emails that matched no account.
// It accompanies a successful share and is never fatal on its own.
type UnresolvedCollaboratorError struct {
	Emails []string
}

func (e *UnresolvedCollaboratorError) Error() string {
	return fmt.Sprintf("no account for: %s", strings.Join(e.Emails, ", "))
}

func (e *UnresolvedCollaboratorError) Is(target error) bool {
	return target == ErrUnresolvedCollaborator
}

// PathFailure is a single failed write inside a multi-document operation.
type PathFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// PartialFailureError is returned when an operation completed what it could
// but one or more individual writes failed.
type PartialFailureError struct {
	Operation string
	Failures  []PathFailure
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Path, f.Err))
	}
	return fmt.Sprintf("%s: %d failed: %s", e.Operation, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PartialFailureError) StatusCode() int {
	return http.StatusMultiStatus
}

func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Paths returns the failed paths in the order they were recorded.
func (e *PartialFailureError) Paths() []string {
	paths := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		paths = append(paths, f.Path)
	}
	return paths
}
