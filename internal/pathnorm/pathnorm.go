// Package pathnorm normalizes candidate paths and queries so they can be compared
// case-insensitively with forward slashes as the only separator.
package pathnorm

import (
	"strings"
	"unicode/utf8"
)

// Separator is the only path separator used after normalization.
const Separator = "/"

// NormalizePath converts backslashes to forward slashes. Case is preserved.
func NormalizePath(p string) string {
	if !strings.Contains(p, `\`) {
		return p
	}
	return strings.ReplaceAll(p, `\`, Separator)
}

// Fold normalizes a string for comparison: slash-normalized and lowercased.
func Fold(s string) string {
	return strings.ToLower(NormalizePath(s))
}

// Basename returns the final segment of a normalized path.
// Trailing separators are ignored, so "src/lib/" yields "lib".
func Basename(p string) string {
	trimmed := strings.TrimRight(p, Separator)
	if idx := strings.LastIndex(trimmed, Separator); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// HasSeparator reports whether a normalized query targets a path rather than a name.
func HasSeparator(q string) bool {
	return strings.Contains(q, Separator)
}

// Segments splits a normalized query on separators and drops empty segments.
// For example, "src//lib/" produces ["src", "lib"].
func Segments(q string) []string {
	parts := strings.Split(q, Separator)
	segments := make([]string, 0, len(parts)) // Initialize as empty slice, not nil
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Length returns the length of a path in characters rather than bytes.
func Length(p string) int {
	return utf8.RuneCountInString(p)
}
