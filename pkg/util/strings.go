package util

import "strings"

// ContainsFold reports whether substr is within s, ignoring case
func ContainsFold(s string, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// LeadingNumber parses the digits at the start of s, eg. "42A" -> 42
func LeadingNumber(s string) (int, bool) {
	n := 0
	digits := 0

	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}

	return n, digits > 0
}
