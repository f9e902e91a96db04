package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/market-report-cli/internal/model"
)

// PriceKind says how a price is quoted.
type PriceKind int

const (
	// PerHundredweight is the dominant convention and the default.
	PerHundredweight PriceKind = iota
	// PerHead prices the whole animal or pair.
	PerHead
)

func (k PriceKind) String() string {
	if k == PerHead {
		return "per_head"
	}
	return "per_cwt"
}

// Field returns the sale record field a price of this kind populates.
func (k PriceKind) Field() model.Field {
	if k == PerHead {
		return model.CattlePrice
	}
	return model.CattlePriceCwt
}

var (
	perHeadUnit    = regexp.MustCompile(`(?i)\s*/?\s*(head|hd|pr|pair)\.?$`)
	perCwtUnit     = regexp.MustCompile(`(?i)\s*/?\s*cwt\.?$`)
	perHeadHeading = regexp.MustCompile(`(?i)\b(pairs?|bred)\b`)
	amountNoise    = strings.NewReplacer("$", "", ",", "")
)

// HeadingImpliesPerHead reports whether lots under this heading are
// conventionally quoted per head (pairs and bred stock).
func HeadingImpliesPerHead(heading string) bool {
	return perHeadHeading.MatchString(heading)
}

// ResolvePrice decides the price kind of a price token and normalizes its
// amount. An explicit unit on the token decides first; a pairs or bred
// heading then forces per head. ok is false when the amount does not parse.
func ResolvePrice(token, heading string) (kind PriceKind, amount string, ok bool) {
	s := strings.TrimSpace(amountNoise.Replace(token))

	kind = PerHundredweight
	switch {
	case perHeadUnit.MatchString(s):
		kind = PerHead
		s = perHeadUnit.ReplaceAllString(s, "")
	case perCwtUnit.MatchString(s):
		s = perCwtUnit.ReplaceAllString(s, "")
	}
	if HeadingImpliesPerHead(heading) {
		kind = PerHead
	}

	s = strings.TrimSpace(s)
	if !isDecimal(s) {
		return kind, "", false
	}
	return kind, s, true
}

// normalizeAmount strips currency symbols and separators from a price that
// already has a known kind.
func normalizeAmount(value string) (string, bool) {
	s := StripUnits(value)
	if !isDecimal(s) {
		return "", false
	}
	return s, true
}
