package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reTags     = regexp.MustCompile(`<[^>]*>`)
	reSpaces   = regexp.MustCompile(`\s+`)
	reTrailing = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
)

// NormalizeToken canonicalizes a brand or article for comparison:
// uppercase, with whitespace, hyphens, dots and slashes removed.
func NormalizeToken(input string) string {
	s := strings.ToUpper(input)
	out := strings.Builder{}
	out.Grow(len(s))
	for _, r := range s {
		if r == '-' || r == '.' || r == '/' || unicode.IsSpace(r) {
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// StripMarkup drops tag-like substrings and collapses whitespace.
func StripMarkup(input string) string {
	if input == "" {
		return ""
	}
	s := reTags.ReplaceAllString(input, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripTrailingParenthetical removes one trailing "(...)" group,
// e.g. "Retail (profileId=12)" -> "Retail".
func StripTrailingParenthetical(input string) string {
	s := strings.TrimSpace(input)
	return strings.TrimSpace(reTrailing.ReplaceAllString(s, ""))
}

// NormalizeSpaces collapses runs of whitespace (NBSP included) to one space.
func NormalizeSpaces(input string) string {
	s := strings.ReplaceAll(input, "\u00A0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// NormalizeHeader lowercases a column label for keyword lookup.
func NormalizeHeader(input string) string {
	s := strings.ToLower(NormalizeSpaces(input))
	return strings.ReplaceAll(s, "ё", "е")
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func FloatPtr(v float64) *float64 { return &v }
