package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC normalization so that visually equivalent input
// compares and transmits identically.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}

// NormalizeEmail canonicalizes an email address for transmission and
// comparison: NFKC, trimmed, lowercased.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(Normalize(s)))
}
