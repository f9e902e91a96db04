package site

import (
	"regexp"
	"strings"

	"github.com/sells-group/market-report-cli/internal/extract"
	"github.com/sells-group/market-report-cli/internal/model"
	"github.com/sells-group/market-report-cli/internal/source"
)

// Site is a compiled profile.
type Site struct {
	*Profile
	Rules extract.Rules

	linkPattern *regexp.Regexp
	datePattern *regexp.Regexp
	headPattern *regexp.Regexp
}

// PrefixOr returns the profile's prefix override, or fallback.
func (s *Site) PrefixOr(fallback string) string {
	if s.Prefix != "" {
		return s.Prefix
	}
	return fallback
}

// SourceOptions returns the line-source settings of the site.
func (s *Site) SourceOptions() source.Options {
	return source.Options{
		HTMLSelector: s.HTMLSelector,
		JSONFields:   s.JSONFields,
		Sheet:        s.Sheet,
	}
}

// DateFromContent reports whether the sale date is read from the report
// itself rather than the listing.
func (s *Site) DateFromContent() bool {
	return s.Date.From == "content"
}

// BaseDefaults overlays the profile's default fields on the market's.
func (s *Site) BaseDefaults(market model.SaleRecord) model.SaleRecord {
	out := market.Clone()
	for name, v := range s.Defaults {
		out.Set(model.Field(name), v)
	}
	return out
}

// Head returns the sale's total head count from the report lines, or "".
func (s *Site) Head(lines []string) string {
	if s.headPattern == nil {
		return ""
	}
	for _, line := range lines {
		m := s.headPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := m[0]
		if len(m) > 1 {
			text = m[1]
		}
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, text)
		if digits != "" {
			return digits
		}
	}
	return ""
}

// Title returns the report title used to tell apart several reports on the
// same date, or "".
func (s *Site) Title(link Link) string {
	if !s.TitleFromLink {
		return ""
	}
	return strings.Join(strings.Fields(link.Text), " ")
}
