package utils

import (
	"regexp"
	"strings"
)

var (
	nameNonAlnumRegex = regexp.MustCompile(`[^a-z0-9 ]+`)
	nameSuffixRegex   = regexp.MustCompile(`\b(inc|llc|ltd|corp|co|company|corporation)\b\.?`)
	nameSpaceRegex    = regexp.MustCompile(`\s+`)
)

// NormalizeNameForMatch folds a vendor/customer name down to a comparable
// key: lowercased, punctuation and common entity suffixes stripped,
// whitespace collapsed. Used for duplicate-vendor matching, not display.
func NormalizeNameForMatch(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nameNonAlnumRegex.ReplaceAllString(s, " ")
	s = nameSuffixRegex.ReplaceAllString(s, " ")
	s = nameSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
