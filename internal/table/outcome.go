// internal/table/outcome.go
package table

import "strings"

// IsHandOutcome reports whether an informational message announces a hand
// result. The server marks no message specially; the client recognizes the
// two phrasings its result messages use.
func IsHandOutcome(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "wins") || strings.Contains(lower, "split pot")
}
