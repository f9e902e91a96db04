package extract

import (
	"regexp"
	"strings"
)

// LineKind is the role of a report line.
type LineKind int

const (
	// Noise lines are ignored.
	Noise LineKind = iota
	// Heading lines name the cattle class of the lines that follow.
	Heading
	// Sale lines describe one consignor's lot.
	Sale
)

func (k LineKind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Sale:
		return "sale"
	default:
		return "noise"
	}
}

var (
	priceShape = regexp.MustCompile(`\$?\d[\d,]*\.\d{2}`)

	// rangeShape marks price-range summaries such as "175.00 to 180.00" or
	// "142.50-151.00". Weight ranges inside a description ("550-600#") are
	// not ranges in this sense.
	rangeShape = regexp.MustCompile(`(?i)\d[\d,.]*\s*\$?\s*\bto\b\s*\$?\d|\d[\d,]*\.\d{2}\s*-\s*\$?\d[\d,]*\.\d{2}`)
)

// Classify labels a tokenized line. The first matching rule wins: short
// numberless lines naming a cattle class are headings; longer lines with a
// price that are not ranges or summaries are sales; everything else is noise.
func Classify(tokens []string, rules Rules) LineKind {
	rules = rules.withDefaults()
	if len(tokens) == 0 {
		return Noise
	}

	if len(tokens) <= rules.MaxHeadingTokens && !anyNumberLike(tokens) && anyCattleWord(tokens, rules) {
		return Heading
	}

	if len(tokens) > rules.MinSaleTokens && anyPriceShaped(tokens) &&
		!rangeShape.MatchString(strings.Join(tokens, " ")) && !rules.hasSummary(tokens) {
		return Sale
	}

	return Noise
}

func anyNumberLike(tokens []string) bool {
	for _, tok := range tokens {
		if IsNumberLike(tok) {
			return true
		}
	}
	return false
}

func anyCattleWord(tokens []string, rules Rules) bool {
	for _, tok := range tokens {
		for _, w := range strings.Fields(tok) {
			if rules.isCattleWord(w) {
				return true
			}
		}
	}
	return false
}

func anyPriceShaped(tokens []string) bool {
	for _, tok := range tokens {
		if priceShape.MatchString(tok) {
			return true
		}
	}
	return false
}
