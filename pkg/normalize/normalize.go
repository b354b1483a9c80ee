// Package normalize turns raw member field values into comparable forms.
// Every function is pure and total: empty input yields empty output.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldCase maps s to its Unicode case-folded form for case-insensitive
// comparison ("ATENEO", "Ateneo" and "ateneo" fold to the same string).
func FoldCase(s string) string {
	if s == "" {
		return ""
	}
	// cases.Caser is stateful; a fresh one per call keeps FoldCase safe for
	// concurrent use.
	return cases.Fold().String(s)
}

// DigitsOnly strips every character that is not an ASCII digit, so
// "(555) 123-4567" and "5551234567" compare equal.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ContainsFold reports whether needle occurs anywhere in haystack, ignoring
// case. An empty needle matches.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(FoldCase(haystack), FoldCase(needle))
}

// HasPrefixFold reports whether haystack starts with prefix, ignoring case.
func HasPrefixFold(haystack, prefix string) bool {
	return strings.HasPrefix(FoldCase(haystack), FoldCase(prefix))
}

// EqualFold reports whether a and b are equal under case folding.
func EqualFold(a, b string) bool {
	return FoldCase(a) == FoldCase(b)
}

// ContainsDigits reports whether the digits of term occur in the digits of
// phone. A term without digits never matches: "ana" must not select every
// phone number.
func ContainsDigits(phone, term string) bool {
	want := DigitsOnly(term)
	if want == "" {
		return false
	}
	return strings.Contains(DigitsOnly(phone), want)
}

// Clean trims surrounding whitespace and collapses internal runs of
// whitespace to a single space.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
