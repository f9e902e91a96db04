package site

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const defaultLinkSelector = "a[href]"

// Link is one candidate report found on a site's index page.
type Link struct {
	URL  string
	Text string
}

// Links returns the report links on an index page, in page order, resolved
// against base and without duplicates. A link qualifies when its href or text
// matches the site's link pattern.
func (s *Site) Links(page []byte, base string) ([]Link, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, eris.Wrapf(err, "site: parse index url %q", base)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "site: parse index page")
	}

	selector := s.LinkSelector
	if selector == "" {
		selector = defaultLinkSelector
	}

	var links []Link
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return
		}
		text := strings.Join(strings.Fields(a.Text()), " ")
		if s.linkPattern != nil && !s.linkPattern.MatchString(href) && !s.linkPattern.MatchString(text) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, Link{URL: abs, Text: text})
	})

	if s.MaxReports > 0 && len(links) > s.MaxReports {
		links = links[:s.MaxReports]
	}
	return links, nil
}
