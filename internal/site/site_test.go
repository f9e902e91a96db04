package site

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-report-cli/internal/extract"
	"github.com/sells-group/market-report-cli/internal/model"
	"github.com/sells-group/market-report-cli/internal/source"
)

const hilltopYAML = `
site_id: 63
prefix: hilltop
index_url: https://example.com/market-reports.html
format: pdf
link_selector: "a[href$='.pdf']"
link_pattern: "(?i)report"
max_reports: 2
date:
  from: content
  pattern: "CATTLE RESULTS FROM:(.*)"
  layouts: ["January 2, 2006"]
head_pattern: "(?i)receipts:?\\s*([0-9,]+)"
defaults:
  sale_name: Hilltop Livestock
rules:
  column_split: "\\s{2,}"
  heading_words: [strs, hfrettes]
  deny_words: [llama]
  stop_markers: ["^HOGS"]
  fuzzy_headings: true
  patterns:
    - match: "(?:were |and )(?P<buyer_name>[^,]+?) from (?P<buyer_city>[^,]+), (?P<buyer_state>[A-Z]{2})"
      when: "(?i)^volume"
      repeat: true
      const: {cattle_cattle: volume}
`

func writeProfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func compileHilltop(t *testing.T) *Site {
	t.Helper()
	p, err := Load(writeProfile(t, t.TempDir(), "63.yaml", hilltopYAML))
	require.NoError(t, err)
	s, err := p.Compile()
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	p, err := Load(writeProfile(t, t.TempDir(), "63.yaml", hilltopYAML))
	require.NoError(t, err)

	assert.Equal(t, 63, p.SiteID)
	assert.Equal(t, "hilltop", p.Prefix)
	assert.Equal(t, source.FormatPDF, p.Format)
	assert.Equal(t, "content", p.Date.From)
	assert.Equal(t, []string{"January 2, 2006"}, p.Date.Layouts)
	assert.Equal(t, "\\s{2,}", p.Rules.ColumnSplit)
	require.Len(t, p.Rules.Patterns, 1)
	assert.True(t, p.Rules.Patterns[0].Repeat)
	assert.Equal(t, map[string]string{"cattle_cattle": "volume"}, p.Rules.Patterns[0].Const)
}

func TestLoad_DefaultsAndValidation(t *testing.T) {
	dir := t.TempDir()

	p, err := Load(writeProfile(t, dir, "a.yaml", "site_id: 5\nindex_url: https://example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, source.FormatHTML, p.Format)

	tests := []struct {
		name, yaml, want string
	}{
		{"no id", "format: pdf\n", "site_id must be > 0"},
		{"bad format", "site_id: 1\nformat: docx\n", `unknown format "docx"`},
		{"bad date source", "site_id: 1\ndate: {from: header}\n", "date.from"},
		{"bad default", "site_id: 1\ndefaults: {sale_color: red}\n", `unknown field "sale_color"`},
		{"bad yaml", "site_id: [\n", "site: parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeProfile(t, dir, "bad.yaml", tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "b.yaml", "site_id: 63\n")
	writeProfile(t, dir, "a.yml", "site_id: 5\n")
	writeProfile(t, dir, "README.md", "not a profile")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old"), 0o755))

	profiles, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, 5, profiles[0].SiteID)
	assert.Equal(t, 63, profiles[1].SiteID)

	p, ok := Find(profiles, 63)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "b.yaml"), p.Path)
	_, ok = Find(profiles, 7)
	assert.False(t, ok)

	writeProfile(t, dir, "c.yaml", "site_id: 63\n")
	_, err = LoadDir(dir)
	assert.ErrorContains(t, err, "site_id 63 defined in")
}

func TestCompile_Rules(t *testing.T) {
	s := compileHilltop(t)

	assert.Contains(t, s.Rules.CattleWords, "steer")
	assert.Contains(t, s.Rules.CattleWords, "hfrettes")
	assert.Contains(t, s.Rules.DenyWords, "llama")
	assert.Contains(t, s.Rules.DenyWords, "sheep")
	assert.True(t, s.Rules.FuzzyHeadings)
	require.Len(t, s.Rules.StopMarkers, 1)
	assert.True(t, s.Rules.IsStop("HOGS & PIGS"))
	assert.Equal(t, []string{"Jones", "Circle, MT", "10"}, s.Rules.Tokens("Jones   Circle, MT   10"))

	// Built-in vocabularies are not modified.
	assert.NotContains(t, extract.DefaultCattleWords, "hfrettes")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want string
	}{
		{"link pattern", Profile{SiteID: 1, LinkPattern: "("}, "link_pattern"},
		{"column split", Profile{SiteID: 1, Rules: RulesConfig{ColumnSplit: "["}}, "column_split"},
		{"stop marker", Profile{SiteID: 1, Rules: RulesConfig{StopMarkers: []string{"("}}}, "stop marker"},
		{"missing match", Profile{SiteID: 1, Rules: RulesConfig{Patterns: []PatternConfig{{When: "x"}}}}, "match is required"},
		{"bad const", Profile{SiteID: 1, Rules: RulesConfig{Patterns: []PatternConfig{{Match: "x", Const: map[string]string{"cow": "1"}}}}}, `unknown field "cow"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.Compile()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompiledRules_WalkVolumeBuyers(t *testing.T) {
	s := compileHilltop(t)
	w := extract.NewWalker(s.Rules)

	res, err := w.Walk([]string{
		"Volume buyers were Smith Ranch from Miles City, MT and Lund Cattle from Jordan, MT.",
	}, model.NewReportDefaults(nil, time.Time{}, "", ""))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Smith Ranch", res.Records[0][model.BuyerName])
	assert.Equal(t, "Miles City", res.Records[0][model.BuyerCity])
	assert.Equal(t, "Lund Cattle", res.Records[1][model.BuyerName])
	assert.Equal(t, "MT", res.Records[1][model.BuyerState])
	assert.Equal(t, "volume", res.Records[1][model.CattleCattle])
}

const indexHTML = `<html><body>
<a href="/reports/March_7_2016_report.pdf">Market Report March 7th, 2016</a>
<a href="reports/feb-29-report.pdf">Report 2/29/16</a>
<a href="/reports/March_7_2016_report.pdf">duplicate</a>
<a href="/reports/brochure.pdf">Brochure</a>
<a href="/reports/old-report.pdf">Report 1/4/16</a>
<a href="#top">Report top</a>
<a href="/contact.html">Contact report desk</a>
</body></html>`

func TestLinks(t *testing.T) {
	s := compileHilltop(t)

	links, err := s.Links([]byte(indexHTML), "https://example.com/market/index.html")
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{URL: "https://example.com/reports/March_7_2016_report.pdf", Text: "Market Report March 7th, 2016"},
		{URL: "https://example.com/market/reports/feb-29-report.pdf", Text: "Report 2/29/16"},
	}, links)
}

func TestLinks_NoPatternAllAnchors(t *testing.T) {
	s, err := (&Profile{SiteID: 1}).Compile()
	require.NoError(t, err)

	links, err := s.Links([]byte(indexHTML), "https://example.com/")
	require.NoError(t, err)
	assert.Len(t, links, 5)

	_, err = s.Links([]byte(indexHTML), "://bad")
	assert.Error(t, err)
}

func TestLinkDate(t *testing.T) {
	s, err := (&Profile{SiteID: 1}).Compile()
	require.NoError(t, err)

	tests := []struct {
		link Link
		want time.Time
		ok   bool
	}{
		{Link{Text: "Market Report March 7th, 2016"}, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{Link{Text: "Report 2/29/16"}, time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{Link{Text: "Latest", URL: "https://example.com/r/2016-03-14.pdf"}, time.Date(2016, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{Link{Text: "Latest", URL: "https://example.com/r/report_03-21-2016.pdf"}, time.Date(2016, 3, 21, 0, 0, 0, 0, time.UTC), true},
		{Link{Text: "Brochure", URL: "https://example.com/brochure.pdf"}, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.link.Text+tt.link.URL, func(t *testing.T) {
			got, ok := s.LinkDate(tt.link)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentDateAndHead(t *testing.T) {
	s := compileHilltop(t)
	lines := []string{
		"HILLTOP LIVESTOCK",
		"CATTLE RESULTS FROM: March 7, 2016",
		"Receipts: 1,245",
		"STEERS",
	}

	d, ok := s.ContentDate(lines)
	require.True(t, ok)
	assert.Equal(t, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "1245", s.Head(lines))

	_, ok = s.ContentDate([]string{"STEERS"})
	assert.False(t, ok)
	assert.Empty(t, s.Head([]string{"STEERS"}))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		layouts []string
		want    time.Time
		ok      bool
	}{
		{"March 7, 2016", nil, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{"Monday, March 7th, 2016", nil, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{"3/7/16", nil, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{"03.07.2016", nil, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{"07 Mar 16", []string{"02 Jan 06"}, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{"", nil, time.Time{}, false},
		{"no date here", nil, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in, tt.layouts)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSiteHelpers(t *testing.T) {
	s := compileHilltop(t)

	assert.Equal(t, "hilltop", s.PrefixOr("market63"))
	assert.True(t, s.DateFromContent())
	assert.Equal(t, model.SaleRecord{model.SaleName: "Hilltop Livestock", model.SaleState: "MT"},
		s.BaseDefaults(model.SaleRecord{model.SaleName: "HILLTOP", model.SaleState: "MT"}))
	assert.Empty(t, s.Title(Link{Text: "Feeder Special"}))

	s.TitleFromLink = true
	assert.Equal(t, "Feeder Special", s.Title(Link{Text: " Feeder\n Special "}))

	bare, err := (&Profile{SiteID: 2}).Compile()
	require.NoError(t, err)
	assert.Equal(t, "market2", bare.PrefixOr("market2"))
}
