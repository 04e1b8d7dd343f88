package precedent

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CanonicalHash computes the dedup hash of an input and its context as a
// hex-encoded SHA-256 digest. Context keys are sorted so logically identical
// contexts always hash identically regardless of map iteration order.
func CanonicalHash(inputText string, context map[string]string) string {
	var b strings.Builder
	b.WriteString(inputText)

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteByte('\x1f')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(context[k])
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
