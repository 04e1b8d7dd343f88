package privacy

import "fmt"

// InsufficientDataError is returned when fewer precedents are supplied than
// the requested anonymity parameter k. It is a named, expected error, not a
// generic failure.
type InsufficientDataError struct {
	Have int // Precedents supplied
	K    int // Requested anonymity parameter
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for k-anonymity: have %d precedents, need at least %d", e.Have, e.K)
}
