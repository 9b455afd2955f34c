package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// NormalizePartNumber returns the canonical form of a part number:
// uppercase with every non-alphanumeric rune removed.
func NormalizePartNumber(s string) string {
	return canonical(s)
}

// CanonicalModelNumber returns the canonical model form without any suffix
// tolerance. Two models are an exact match when their canonical forms are
// equal.
func CanonicalModelNumber(s string) string {
	return canonical(s)
}

// separatedRevision matches a trailing "-4", "_02", "/1" style revision.
var separatedRevision = regexp.MustCompile(`[^A-Za-z0-9]+[0-9]+\s*$`)

// NormalizeModelNumber returns the canonical model form with a single
// trailing revision suffix removed, so WDT780SAEM1 and WDT780SAEM compare
// equal and so do MODEL123-4 and MODEL123.
//
// The suffix rule is a heuristic: a separator followed by digits, or one
// digit directly after a letter. Models that legitimately differ only by
// that digit are conflated, which is why matches on this form carry a
// lower confidence.
func NormalizeModelNumber(s string) string {
	trimmed := strings.TrimSpace(s)
	if loc := separatedRevision.FindStringIndex(trimmed); loc != nil && loc[0] > 0 {
		return canonical(trimmed[:loc[0]])
	}
	c := canonical(trimmed)
	n := len(c)
	if n >= 3 && isDigit(c[n-1]) && isLetter(c[n-2]) {
		return c[:n-1]
	}
	return c
}

func canonical(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' }
