package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern  = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(-?\d{1,3}(?:[\s.,]\d{3})+|-?\d+(?:[.,]\d+)?)`)
	reThousandDot  = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+$`)
	reThousandComa = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+$`)
)

// ParseQty reads the first number out of a quantity cell such as
// "10", "10 шт", "1 000" or "2,5 м". Nil when the cell has no number.
func ParseQty(input string) *float64 {
	line := strings.TrimSpace(strings.NewReplacer("\u00A0", " ", "\u202F", " ").Replace(input))
	if line == "" {
		return nil
	}
	m := numberPattern.FindStringSubmatch(line)
	if len(m) < 2 {
		return nil
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(m[1]), 64)
	if err != nil {
		return nil
	}
	return FloatPtr(parsed)
}

// FormatNumber renders v without a trailing ".0" and without exponent.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandDot.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reThousandComa.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
