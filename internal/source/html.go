package source

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const defaultSelector = "tr"

// HTMLLines selects elements from an HTML report. Table rows become one
// line of tab-joined cells; other elements contribute one line per text line,
// with <br> treated as a line break.
func HTMLLines(data []byte, selector string) ([]string, error) {
	if selector == "" {
		selector = defaultSelector
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "source: parse html")
	}

	doc.Find("br").ReplaceWithHtml("\n")

	var lines []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		cells := s.ChildrenFiltered("td,th")
		if cells.Length() > 0 {
			row := make([]string, 0, cells.Length())
			cells.Each(func(_ int, c *goquery.Selection) {
				row = append(row, c.Text())
			})
			if line := joinCells(row); line != "" {
				lines = append(lines, line)
			}
			return
		}
		for _, l := range strings.Split(s.Text(), "\n") {
			if l = strings.Join(strings.Fields(l), " "); l != "" {
				lines = append(lines, l)
			}
		}
	})
	return lines, nil
}
