package precedent

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a precedent id does not exist. It is
// distinguishable from storage-layer failures, which surface as
// *StorageError.
var ErrNotFound = errors.New("precedent not found")

// StorageError represents a failure in the precedent storage backend.
type StorageError struct {
	Backend   string // Storage backend ("sqlite", "memory")
	Operation string // Operation that failed ("store", "query", "reference", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("precedent storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
