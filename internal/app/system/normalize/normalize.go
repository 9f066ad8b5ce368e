// Package normalize provides helper functions for consistent string normalization
// across the application. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls to ensure consistent behavior.
package normalize

import "strings"

// Email normalizes an email address by trimming whitespace and converting to lowercase.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name normalizes a display name by trimming whitespace.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Username normalizes a login username by trimming whitespace.
// Case is preserved for display; use text.Fold() for matching keys.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Role normalizes a role value by trimming whitespace and converting to lowercase.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// SearchQuery trims a search query and collapses runs of whitespace.
func SearchQuery(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
