package shared

import (
	"sort"
	"strings"
)

// FieldErrors maps form field names to a human-readable problem.
type FieldErrors map[string]string

// Add records msg for field unless one is already present.
func (fe FieldErrors) Add(field, msg string) {
	if _, exists := fe[field]; exists {
		return
	}
	fe[field] = msg
}

// Has reports whether field has an error.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Any reports whether at least one error was recorded.
func (fe FieldErrors) Any() bool { return len(fe) > 0 }

// Error renders the errors deterministically so FieldErrors can be returned as an error.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// SafeMessage lets UserSafeMessage surface validation text verbatim.
func (fe FieldErrors) SafeMessage() string {
	return "Please correct the highlighted fields."
}
