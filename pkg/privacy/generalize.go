package privacy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Suppressed is the signature value for attributes that could not be kept
// uniform within a cluster.
const Suppressed = "*"

// Placeholder is the constant value substituted for redacted fields.
const Placeholder = "[REDACTED]"

// Quasi-identifier attribute names in bundle records.
const (
	AttrDate     = "date"
	AttrLocation = "location"
	AttrAge      = "age"
)

// generalizeDate reduces a timestamp to its UTC calendar date.
func generalizeDate(t time.Time) string {
	if t.IsZero() {
		return Suppressed
	}
	return t.UTC().Format("2006-01-02")
}

// generalizeLocation reduces a location to its country. Comma-separated
// locations ("Lyon, France") keep only the last component; bare values are
// assumed to already be countries.
func generalizeLocation(loc string) string {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return Suppressed
	}
	if i := strings.LastIndex(loc, ","); i >= 0 {
		loc = strings.TrimSpace(loc[i+1:])
	}
	if loc == "" {
		return Suppressed
	}
	return loc
}

// generalizeAge buckets a numeric age into a fixed range of rangeSize years.
// Non-numeric values are suppressed.
func generalizeAge(age string, rangeSize int) string {
	n, err := strconv.Atoi(strings.TrimSpace(age))
	if err != nil || n < 0 {
		return Suppressed
	}
	if rangeSize <= 0 {
		rangeSize = 10
	}
	lo := (n / rangeSize) * rangeSize
	return fmt.Sprintf("%d-%d", lo, lo+rangeSize-1)
}
