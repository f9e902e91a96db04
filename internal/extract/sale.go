package extract

import (
	"strings"

	"github.com/sells-group/market-report-cli/internal/model"
)

// verdict is the outcome of extracting one line.
type verdict int

const (
	verdictNone verdict = iota
	verdictSale
	verdictDenied
)

const nameTrim = " \t,;:*-"

// Extractor turns sale lines into sale records.
type Extractor struct {
	rules Rules
}

// NewExtractor creates an Extractor for the given rules.
func NewExtractor(rules Rules) *Extractor {
	return &Extractor{rules: rules.withDefaults()}
}

// Extract applies the token-position algorithm to a line already classified
// as a sale. Fields whose step fails are omitted; ok is false when nothing
// lot-specific could be extracted or the lot is not cattle.
func (e *Extractor) Extract(tokens []string, state HeadingState) (model.SaleRecord, bool) {
	rec, v := e.extract(tokens, state)
	return rec, v == verdictSale
}

func (e *Extractor) extract(tokens []string, state HeadingState) (model.SaleRecord, verdict) {
	num := numericIndices(tokens)
	if len(num) == 0 {
		return nil, verdictNone
	}

	var description string
	if len(num) >= 2 {
		description = strings.Join(tokens[num[0]+1:num[1]], " ")
	}
	if e.rules.isDenied(state.Text, description) {
		return nil, verdictDenied
	}

	rec := model.SaleRecord{}
	e.setConsignor(rec, tokens[:num[0]])

	if len(num) >= 2 {
		if head, ok := parseHead(tokens[num[0]]); ok {
			rec.Set(model.CattleHead, head)
		}
	}
	rec.Set(model.CattleCattle, joinNonEmpty(state.Text, description))

	if len(num) >= 3 {
		if weight, ok := parseWeight(tokens[num[len(num)-2]]); ok {
			rec.Set(model.CattleAvgWeight, weight)
		}
	}

	if kind, amount, ok := resolvePrice(tokens[num[len(num)-1]], state); ok {
		rec.Set(kind.Field(), amount)
	}

	if !hasLotData(rec) {
		return rec, verdictNone
	}
	return rec, verdictSale
}

// Match runs the site pattern table over a raw line. The first pattern that
// yields at least one record wins.
func (e *Extractor) Match(line string, state HeadingState) ([]model.SaleRecord, bool) {
	recs, v := e.match(line, state)
	return recs, v == verdictSale
}

func (e *Extractor) match(line string, state HeadingState) ([]model.SaleRecord, verdict) {
	for _, p := range e.rules.Patterns {
		if p.Match == nil || (p.When != nil && !p.When.MatchString(line)) {
			continue
		}

		var matches [][]string
		if p.Repeat {
			matches = p.Match.FindAllStringSubmatch(line, -1)
		} else if m := p.Match.FindStringSubmatch(line); m != nil {
			matches = [][]string{m}
		}
		if len(matches) == 0 {
			continue
		}

		names := p.Match.SubexpNames()
		var out []model.SaleRecord
		for _, m := range matches {
			rec := e.applyGroups(p, names, m, state)
			if e.rules.isDenied(state.Text, rec[model.CattleCattle]) {
				return nil, verdictDenied
			}
			if len(rec) > 0 {
				out = append(out, rec)
			}
		}
		if len(out) > 0 {
			return out, verdictSale
		}
	}
	return nil, verdictNone
}

func (e *Extractor) applyGroups(p LinePattern, names, m []string, state HeadingState) model.SaleRecord {
	rec := p.Const.Clone()
	for i, name := range names {
		if i == 0 || name == "" || i >= len(m) {
			continue
		}
		value := strings.TrimSpace(m[i])
		if value == "" {
			continue
		}

		switch name {
		case "head", string(model.CattleHead):
			if head, ok := parseHead(value); ok {
				rec.Set(model.CattleHead, head)
			}
		case "weight", string(model.CattleAvgWeight):
			if weight, ok := parseWeight(value); ok {
				rec.Set(model.CattleAvgWeight, weight)
			}
		case "cattle":
			rec.Set(model.CattleCattle, joinNonEmpty(state.Text, value))
		case "price":
			if kind, amount, ok := resolvePrice(value, state); ok {
				rec.Set(kind.Field(), amount)
			}
		case string(model.CattlePrice), string(model.CattlePriceCwt):
			if amount, ok := normalizeAmount(value); ok {
				rec.Set(model.Field(name), amount)
			}
		case "name":
			rec.Set(model.ConsignorName, strings.Trim(value, nameTrim))
		case "location":
			city, st := ParseLocation(value)
			rec.Set(model.ConsignorCity, city)
			rec.Set(model.ConsignorState, st)
		case "buyer_location":
			city, st := ParseLocation(value)
			rec.Set(model.BuyerCity, city)
			rec.Set(model.BuyerState, st)
		default:
			if model.IsField(name) {
				rec.Set(model.Field(name), strings.Trim(value, nameTrim))
			}
		}
	}
	return rec
}

// setConsignor splits the leading span of a sale line into the consignor
// name and location.
func (e *Extractor) setConsignor(rec model.SaleRecord, span []string) {
	if len(span) == 0 {
		return
	}
	name, location := splitConsignor(span)
	rec.Set(model.ConsignorName, strings.Trim(name, nameTrim))
	if location == "" {
		return
	}
	city, st := ParseLocation(location)
	rec.Set(model.ConsignorCity, city)
	rec.Set(model.ConsignorState, st)
}

func splitConsignor(span []string) (name, location string) {
	joined := strings.Trim(strings.Join(span, " "), nameTrim)

	// "Gomez [Jackson, WY]"
	if i := strings.IndexAny(joined, "[("); i > 0 {
		return joined[:i], strings.Trim(joined[i:], "[]() ")
	}

	// Column tokens: the first column is the name.
	if len(span) > 1 && hasColumnToken(span[1:]) {
		return span[0], strings.Join(span[1:], " ")
	}

	if before, after, ok := strings.Cut(joined, " - "); ok {
		return before, after
	}

	switch strings.Count(joined, ",") {
	case 0:
	case 1:
		// "Circle, MT" is a location; "Jones, Circle" is name then location.
		before, after, _ := strings.Cut(joined, ",")
		if IsState(after) {
			return "", joined
		}
		return before, after
	default:
		before, after, _ := strings.Cut(joined, ",")
		return before, after
	}

	if _, st := ParseLocation(joined); st != "" {
		return "", joined
	}
	return joined, ""
}

func hasColumnToken(tokens []string) bool {
	for _, tok := range tokens {
		if strings.ContainsAny(strings.TrimSpace(tok), " \t") {
			return true
		}
	}
	return false
}

func resolvePrice(token string, state HeadingState) (PriceKind, string, bool) {
	kind, amount, ok := ResolvePrice(token, state.Text)
	if state.PerHead {
		kind = PerHead
	}
	return kind, amount, ok
}

func hasLotData(rec model.SaleRecord) bool {
	for _, f := range []model.Field{model.CattleHead, model.CattleAvgWeight, model.CattlePrice, model.CattlePriceCwt} {
		if _, ok := rec[f]; ok {
			return true
		}
	}
	return false
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
