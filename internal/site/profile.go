// Package site loads the declarative per-site profiles that drive listing,
// format handling, date extraction and the line rules of each market.
package site

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-report-cli/internal/extract"
	"github.com/sells-group/market-report-cli/internal/model"
	"github.com/sells-group/market-report-cli/internal/source"
)

// Profile is one site's YAML configuration.
type Profile struct {
	SiteID        int               `yaml:"site_id"`
	Prefix        string            `yaml:"prefix"`
	IndexURL      string            `yaml:"index_url"`
	Format        source.Format     `yaml:"format"`
	LinkSelector  string            `yaml:"link_selector"`
	LinkPattern   string            `yaml:"link_pattern"`
	MaxReports    int               `yaml:"max_reports"`
	Date          DateRule          `yaml:"date"`
	HeadPattern   string            `yaml:"head_pattern"`
	TitleFromLink bool              `yaml:"title_from_link"`
	HTMLSelector  string            `yaml:"html_selector"`
	JSONFields    []string          `yaml:"json_fields"`
	Sheet         int               `yaml:"sheet"`
	Defaults      map[string]string `yaml:"defaults"`
	Rules         RulesConfig       `yaml:"rules"`

	// Path is the file the profile was loaded from.
	Path string `yaml:"-"`
}

// DateRule locates the sale date of a report.
type DateRule struct {
	// From is "link" (anchor text or href) or "content" (report lines).
	From    string   `yaml:"from"`
	Pattern string   `yaml:"pattern"`
	Layouts []string `yaml:"layouts"`
}

// RulesConfig is the YAML form of extract.Rules. Word lists extend the
// built-in vocabularies.
type RulesConfig struct {
	ColumnSplit      string          `yaml:"column_split"`
	MaxHeadingTokens int             `yaml:"max_heading_tokens"`
	MinSaleTokens    int             `yaml:"min_sale_tokens"`
	HeadingWords     []string        `yaml:"heading_words"`
	DenyWords        []string        `yaml:"deny_words"`
	SummaryWords     []string        `yaml:"summary_words"`
	StopMarkers      []string        `yaml:"stop_markers"`
	FuzzyHeadings    bool            `yaml:"fuzzy_headings"`
	Patterns         []PatternConfig `yaml:"patterns"`
}

// PatternConfig is one entry of the ordered pattern table.
type PatternConfig struct {
	Match  string            `yaml:"match"`
	When   string            `yaml:"when"`
	Repeat bool              `yaml:"repeat"`
	Const  map[string]string `yaml:"const"`
}

// Load reads one profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "site: read %s", path)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "site: parse %s", path)
	}
	p.Path = path
	if err := p.validate(); err != nil {
		return nil, eris.Wrapf(err, "site: %s", path)
	}
	return &p, nil
}

// LoadDir reads every *.yaml and *.yml profile in dir, ordered by site id.
func LoadDir(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "site: list %s", dir)
	}
	var out []*Profile
	seen := make(map[int]string)
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		p, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[p.SiteID]; dup {
			return nil, eris.Errorf("site: site_id %d defined in %s and %s", p.SiteID, prev, p.Path)
		}
		seen[p.SiteID] = p.Path
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out, nil
}

// Find returns the profile for siteID.
func Find(profiles []*Profile, siteID int) (*Profile, bool) {
	for _, p := range profiles {
		if p.SiteID == siteID {
			return p, true
		}
	}
	return nil, false
}

func (p *Profile) validate() error {
	if p.SiteID <= 0 {
		return eris.New("site_id must be > 0")
	}
	if p.Format == "" {
		p.Format = source.FormatHTML
	}
	if !p.Format.Valid() {
		return eris.Errorf("unknown format %q", p.Format)
	}
	switch p.Date.From {
	case "", "link", "content":
	default:
		return eris.Errorf("date.from %q must be link or content", p.Date.From)
	}
	for name := range p.Defaults {
		if !model.IsField(name) {
			return eris.Errorf("defaults: unknown field %q", name)
		}
	}
	return nil
}

// Compile builds the runnable form of a profile.
func (p *Profile) Compile() (*Site, error) {
	s := &Site{Profile: p}

	var err error
	if s.linkPattern, err = compileOptional(p.LinkPattern, "link_pattern"); err != nil {
		return nil, err
	}
	if s.datePattern, err = compileOptional(p.Date.Pattern, "date.pattern"); err != nil {
		return nil, err
	}
	if s.headPattern, err = compileOptional(p.HeadPattern, "head_pattern"); err != nil {
		return nil, err
	}
	if s.Rules, err = p.Rules.compile(); err != nil {
		return nil, eris.Wrapf(err, "site %d", p.SiteID)
	}
	return s, nil
}

func (rc RulesConfig) compile() (extract.Rules, error) {
	rules := extract.DefaultRules()
	rules.MaxHeadingTokens = rc.MaxHeadingTokens
	rules.MinSaleTokens = rc.MinSaleTokens
	rules.FuzzyHeadings = rc.FuzzyHeadings
	rules.CattleWords = extend(extract.DefaultCattleWords, rc.HeadingWords)
	rules.DenyWords = extend(extract.DefaultDenyWords, rc.DenyWords)
	rules.SummaryWords = extend(extract.DefaultSummaryWords, rc.SummaryWords)

	var err error
	if rules.ColumnSplit, err = compileOptional(rc.ColumnSplit, "column_split"); err != nil {
		return rules, err
	}
	for _, m := range rc.StopMarkers {
		re, err := regexp.Compile(m)
		if err != nil {
			return rules, eris.Wrapf(err, "site: stop marker %q", m)
		}
		rules.StopMarkers = append(rules.StopMarkers, re)
	}
	for i, pc := range rc.Patterns {
		lp, err := pc.compile()
		if err != nil {
			return rules, eris.Wrapf(err, "site: pattern %d", i)
		}
		rules.Patterns = append(rules.Patterns, lp)
	}
	return rules, nil
}

func (pc PatternConfig) compile() (extract.LinePattern, error) {
	var lp extract.LinePattern
	if pc.Match == "" {
		return lp, eris.New("match is required")
	}
	var err error
	if lp.Match, err = regexp.Compile(pc.Match); err != nil {
		return lp, eris.Wrap(err, "match")
	}
	if lp.When, err = compileOptional(pc.When, "when"); err != nil {
		return lp, err
	}
	lp.Repeat = pc.Repeat
	if len(pc.Const) > 0 {
		lp.Const = model.SaleRecord{}
		for name, v := range pc.Const {
			if !model.IsField(name) {
				return lp, eris.Errorf("const: unknown field %q", name)
			}
			lp.Const.Set(model.Field(name), v)
		}
	}
	return lp, nil
}

func compileOptional(expr, name string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, eris.Wrapf(err, "site: compile %s", name)
	}
	return re, nil
}

func extend(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	for _, w := range extra {
		out = append(out, strings.ToLower(strings.TrimSpace(w)))
	}
	return out
}
