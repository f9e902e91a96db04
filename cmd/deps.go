package main

import (
	"context"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-report-cli/internal/market"
	"github.com/sells-group/market-report-cli/internal/site"
)

// initMarketStore opens and migrates the market metadata store.
func initMarketStore(ctx context.Context) (market.Store, error) {
	st, err := market.Open(ctx, cfg.Market)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate market store")
	}
	return st, nil
}

// loadSites compiles the profiles in the configured sites directory. With
// ids, only those sites are returned, in the order given.
func loadSites(ids []string) ([]*site.Site, error) {
	profiles, err := site.LoadDir(cfg.Sites.Dir)
	if err != nil {
		return nil, err
	}

	selected := profiles
	if len(ids) > 0 {
		selected = nil
		for _, arg := range ids {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return nil, eris.Errorf("invalid site id %q", arg)
			}
			p, ok := site.Find(profiles, id)
			if !ok {
				return nil, eris.Errorf("no profile for site %d in %s", id, cfg.Sites.Dir)
			}
			selected = append(selected, p)
		}
	}

	sites := make([]*site.Site, 0, len(selected))
	for _, p := range selected {
		s, err := p.Compile()
		if err != nil {
			return nil, eris.Wrapf(err, "compile %s", p.Path)
		}
		sites = append(sites, s)
	}
	return sites, nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}
