package identity

import "strings"

// NormalizeUsername canonicalizes a login identifier: trim and lower-case.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
