// Package market resolves auction-site metadata (website, archive prefix and
// sale barn addresses) and keeps an audit log of processed reports.
package market

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-report-cli/internal/config"
	"github.com/sells-group/market-report-cli/internal/model"
)

// ErrUnknownSite is returned when a site id has no roundup_website row.
var ErrUnknownSite = eris.New("market: unknown site")

// Report is one entry of the processed_report audit log.
type Report struct {
	ID          string
	Prefix      string
	SaleDate    time.Time
	Path        string
	Records     int
	Unmatched   int
	ProcessedAt time.Time
}

// Store defines the persistence interface for market metadata.
type Store interface {
	// Market returns the metadata of a site, its locations ordered by city.
	Market(ctx context.Context, siteID int) (model.Market, error)
	// PutMarket inserts or replaces a site and its locations.
	PutMarket(ctx context.Context, m model.Market) error

	// RecordReport appends to the audit log and returns the entry id.
	RecordReport(ctx context.Context, r Report) (string, error)
	// Reports lists audit entries for prefix, newest sale first. An empty
	// prefix lists every site.
	Reports(ctx context.Context, prefix string, limit int) ([]Report, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.MarketConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("market: unknown driver %q", cfg.Driver)
	}
}

// address is one row of the address table.
type address struct {
	Name, Address, PO, City, State, Zip string
}

func (a address) location() model.SaleRecord {
	rec := model.SaleRecord{}
	rec.Set(model.SaleName, a.Name)
	rec.Set(model.SaleAddress, a.Address)
	rec.Set(model.SalePO, a.PO)
	rec.Set(model.SaleCity, a.City)
	rec.Set(model.SaleState, a.State)
	rec.Set(model.SaleZip, a.Zip)
	return rec
}

func addressOf(loc model.SaleRecord) address {
	return address{
		Name:    loc[model.SaleName],
		Address: loc[model.SaleAddress],
		PO:      loc[model.SalePO],
		City:    loc[model.SaleCity],
		State:   loc[model.SaleState],
		Zip:     loc[model.SaleZip],
	}
}

func validateMarket(m model.Market) error {
	if m.SiteID <= 0 {
		return eris.Errorf("market: invalid site id %d", m.SiteID)
	}
	if m.Prefix == "" {
		return eris.Errorf("market: site %d has no prefix", m.SiteID)
	}
	return nil
}

// saleDay truncates t to its UTC calendar date.
func saleDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
