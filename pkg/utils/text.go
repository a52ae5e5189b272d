// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s truncated to maxLen characters, with "..." appended if
// truncated. If maxLen is 0 or negative, returns s unchanged. Truncation counts
// runes so a multi-byte character is never split.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// CollapseWhitespace trims s and collapses every run of whitespace (spaces,
// tabs, newlines) into a single space. Used when quoting chunk text on a single
// citation line.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
