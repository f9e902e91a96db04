package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// noiseChars are dropped anywhere in a numeric token.
var noiseChars = strings.NewReplacer("$", "", ",", "", "#", "", "(", "", ")", "")

// unitSuffix matches the unit markers reports append to numbers.
var unitSuffix = regexp.MustCompile(`(?i)\s*/?\s*(cwt|head|hd|pr|lbs|lb|avg)\.?$`)

// StripUnits removes currency symbols, thousands separators and unit
// suffixes from a token, leaving the bare number text.
func StripUnits(token string) string {
	s := strings.TrimSpace(noiseChars.Replace(token))
	for range 2 {
		stripped := unitSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = strings.TrimSpace(stripped)
	}
	return s
}

// decimalShape is a plain decimal: no NaN or Inf words, hex floats,
// exponents or digit underscores.
var decimalShape = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// isDecimal reports whether s is a plain decimal number.
func isDecimal(s string) bool {
	if !decimalShape.MatchString(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// IsNumberLike reports whether token denotes a plain decimal number once
// units and separators are stripped.
func IsNumberLike(token string) bool {
	return isDecimal(StripUnits(token))
}

// numericIndices returns the positions of number-like tokens.
func numericIndices(tokens []string) []int {
	var idx []int
	for i, tok := range tokens {
		if IsNumberLike(tok) {
			idx = append(idx, i)
		}
	}
	return idx
}

// parseHead returns a positive integer head count.
func parseHead(token string) (string, bool) {
	s := StripUnits(token)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// parseWeight returns the digits of a weight token.
func parseWeight(token string) (string, bool) {
	s := StripUnits(token)
	if !isDecimal(s) {
		return "", false
	}
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", false
	}
	return s, true
}
