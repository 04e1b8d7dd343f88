package verdict

import "fmt"

// ValidationError represents a malformed report or verdict value. It is a
// local input error: callers reject the offending input and continue.
type ValidationError struct {
	Field   string // Field that failed validation
	Message string // Human-readable description
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
}
