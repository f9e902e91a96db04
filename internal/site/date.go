package site

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	// looseDate finds a date inside free text such as link captions and
	// report headers.
	looseDate = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b` +
		`|\b\d{4}-\d{1,2}-\d{1,2}\b` +
		`|\b\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}\b`)
	ordinal = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)
	weekday = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+`)
	dashed  = regexp.MustCompile(`^\d{1,2}[-.]\d{1,2}[-.]\d{2,4}$`)
)

// LinkDate extracts the sale date from a listing link's text, falling back
// to its file name.
func (s *Site) LinkDate(link Link) (time.Time, bool) {
	if d, ok := s.findDate(link.Text); ok {
		return d, true
	}
	name := link.URL
	if u, err := url.Parse(link.URL); err == nil {
		name = u.Path
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		name, _ = url.PathUnescape(name)
	}
	name = strings.NewReplacer("_", " ", "+", " ").Replace(name)
	return s.findDate(name)
}

// ContentDate extracts the sale date from the first report line that has
// one.
func (s *Site) ContentDate(lines []string) (time.Time, bool) {
	for _, line := range lines {
		if d, ok := s.findDate(line); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func (s *Site) findDate(text string) (time.Time, bool) {
	if s.datePattern != nil {
		m := s.datePattern.FindStringSubmatch(text)
		if m == nil {
			return time.Time{}, false
		}
		if len(m) > 1 {
			text = m[1]
		} else {
			text = m[0]
		}
		if d, ok := ParseDate(text, s.Date.Layouts); ok {
			return d, true
		}
	}
	if m := looseDate.FindString(text); m != "" {
		return ParseDate(m, s.Date.Layouts)
	}
	return ParseDate(text, s.Date.Layouts)
}

// ParseDate parses a date string with the given layouts first, then with
// dateparse's format detection. Numeric dates are read month first.
func ParseDate(text string, layouts []string) (time.Time, bool) {
	text = strings.Trim(strings.Join(strings.Fields(text), " "), " .,:-")
	text = weekday.ReplaceAllString(text, "")
	text = ordinal.ReplaceAllString(text, "$1")
	if text == "" {
		return time.Time{}, false
	}
	if dashed.MatchString(text) {
		text = strings.NewReplacer("-", "/", ".", "/").Replace(text)
	}
	for _, layout := range layouts {
		if d, err := time.Parse(layout, text); err == nil {
			return d, true
		}
	}
	d, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
}
