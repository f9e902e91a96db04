package extract

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/sells-group/market-report-cli/internal/model"
)

// Default classifier thresholds.
const (
	DefaultMaxHeadingTokens = 3
	DefaultMinSaleTokens    = 2
)

// DefaultCattleWords is the cattle-class vocabulary that marks a heading.
// Plural forms ending in "s" or "es" match implicitly.
var DefaultCattleWords = []string{
	"bull", "steer", "str", "cow", "heifer", "hfr", "calf", "calves",
	"pair", "heiferette", "hfrette", "yearling", "feeder",
}

// DefaultSummaryWords mark totals, estimates and market commentary lines
// that look like sales but are not.
var DefaultSummaryWords = []string{
	"total", "totals", "estimate", "estimated", "est", "no test", "sold", "receipts",
}

// DefaultDenyWords are non-cattle classes reported alongside cattle.
var DefaultDenyWords = []string{
	"sheep", "lamb", "ewe", "wether", "goat", "kid", "hog", "sow", "boar",
	"horse", "mare", "gelding", "donkey", "mule", "buck",
}

// LinePattern is one entry of a site's pattern table. Named groups map to
// sale record fields; the pseudo groups head, weight, cattle, price, name,
// location and buyer_location get the same normalization as the token
// algorithm.
type LinePattern struct {
	// When, if set, must match the line before Match is tried.
	When *regexp.Regexp
	// Match extracts the fields.
	Match *regexp.Regexp
	// Repeat emits one record per non-overlapping match (narrative lines
	// listing several buyers).
	Repeat bool
	// Const fields are set on every record before groups are applied.
	Const model.SaleRecord
}

// Rules carries the per-site heuristics of the engine. The zero value is
// usable and behaves like DefaultRules.
type Rules struct {
	// ColumnSplit splits a line into tokens; nil splits on whitespace.
	ColumnSplit *regexp.Regexp

	MaxHeadingTokens int
	MinSaleTokens    int

	CattleWords  []string
	SummaryWords []string
	DenyWords    []string

	// StopMarkers end the walk of a report, e.g. a HOGS section.
	StopMarkers []*regexp.Regexp

	// FuzzyHeadings tolerates one-character OCR damage in cattle words.
	FuzzyHeadings bool

	Patterns []LinePattern
}

// DefaultRules returns the rules used when a site configures nothing.
func DefaultRules() Rules {
	return Rules{
		MaxHeadingTokens: DefaultMaxHeadingTokens,
		MinSaleTokens:    DefaultMinSaleTokens,
		CattleWords:      DefaultCattleWords,
		SummaryWords:     DefaultSummaryWords,
		DenyWords:        DefaultDenyWords,
	}
}

func (r Rules) withDefaults() Rules {
	if r.MaxHeadingTokens <= 0 {
		r.MaxHeadingTokens = DefaultMaxHeadingTokens
	}
	if r.MinSaleTokens <= 0 {
		r.MinSaleTokens = DefaultMinSaleTokens
	}
	if r.CattleWords == nil {
		r.CattleWords = DefaultCattleWords
	}
	if r.SummaryWords == nil {
		r.SummaryWords = DefaultSummaryWords
	}
	if r.DenyWords == nil {
		r.DenyWords = DefaultDenyWords
	}
	return r
}

// Tokens splits a normalized line into its tokens.
func (r Rules) Tokens(line string) []string {
	if r.ColumnSplit == nil {
		return strings.Fields(line)
	}
	var out []string
	for _, part := range r.ColumnSplit.Split(line, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsStop reports whether line is a section boundary that ends the report.
func (r Rules) IsStop(line string) bool {
	for _, re := range r.StopMarkers {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func normalizeWord(token string) string {
	return strings.ToLower(strings.Trim(token, " \t.,;:*()[]{}\"'!?-/&"))
}

func wordMatches(word, vocab string) bool {
	return word == vocab || word == vocab+"s" || word == vocab+"es"
}

func (r Rules) isCattleWord(token string) bool {
	w := normalizeWord(token)
	if w == "" {
		return false
	}
	for _, v := range r.CattleWords {
		if wordMatches(w, v) {
			return true
		}
	}
	if !r.FuzzyHeadings || len(w) < 5 {
		return false
	}
	for _, v := range r.CattleWords {
		if len(v) < 4 {
			continue
		}
		if levenshtein.ComputeDistance(w, v) <= 1 || levenshtein.ComputeDistance(w, v+"s") <= 1 {
			return true
		}
	}
	return false
}

func (r Rules) isDenied(tokens ...string) bool {
	for _, tok := range tokens {
		for _, field := range strings.Fields(tok) {
			w := normalizeWord(field)
			for _, v := range r.DenyWords {
				if wordMatches(w, v) {
					return true
				}
			}
		}
	}
	return false
}

// sectionConnectors may join deny words in a section heading.
var sectionConnectors = map[string]bool{"": true, "and": true, "or": true, "section": true, "sale": true}

// isDeniedSection reports whether tokens name only denied classes, as in
// "SHEEP" or "Horses & Mules". A deny word next to any other word ("Buck
// Ranch") is a name, not a section.
func (r Rules) isDeniedSection(tokens []string) bool {
	denied := false
	for _, tok := range tokens {
		for _, field := range strings.Fields(tok) {
			w := normalizeWord(field)
			switch {
			case sectionConnectors[w]:
			case r.isDenied(w):
				denied = true
			default:
				return false
			}
		}
	}
	return denied
}

// hasSummary reports whether any summary word or phrase occurs as whole
// words in tokens.
func (r Rules) hasSummary(tokens []string) bool {
	var words []string
	for _, tok := range tokens {
		for _, field := range strings.Fields(tok) {
			if w := normalizeWord(field); w != "" {
				words = append(words, w)
			}
		}
	}
	for _, phrase := range r.SummaryWords {
		want := strings.Fields(strings.ToLower(phrase))
		if len(want) == 0 || len(want) > len(words) {
			continue
		}
		for i := 0; i+len(want) <= len(words); i++ {
			if equalWords(words[i:i+len(want)], want) {
				return true
			}
		}
	}
	return false
}

func equalWords(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
