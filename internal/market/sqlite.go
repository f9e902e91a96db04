package market

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-report-cli/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS roundup_website (
	roundup_website_id INTEGER PRIMARY KEY,
	website            TEXT NOT NULL,
	script             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS address (
	address_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT,
	address    TEXT,
	po         TEXT,
	city       TEXT,
	state      TEXT,
	zip        TEXT
);

CREATE TABLE IF NOT EXISTS roundup_market (
	roundup_website_id INTEGER NOT NULL REFERENCES roundup_website(roundup_website_id),
	address_id         INTEGER NOT NULL REFERENCES address(address_id),
	PRIMARY KEY (roundup_website_id, address_id)
);

CREATE TABLE IF NOT EXISTS processed_report (
	id           TEXT PRIMARY KEY,
	prefix       TEXT NOT NULL,
	sale_date    TEXT NOT NULL,
	path         TEXT NOT NULL,
	records      INTEGER NOT NULL DEFAULT 0,
	unmatched    INTEGER NOT NULL DEFAULT 0,
	processed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_report_prefix ON processed_report(prefix, sale_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Market(ctx context.Context, siteID int) (model.Market, error) {
	m := model.Market{SiteID: siteID}
	err := s.db.QueryRowContext(ctx,
		`SELECT website, script FROM roundup_website WHERE roundup_website_id = ?`, siteID,
	).Scan(&m.Website, &m.Prefix)
	if err == sql.ErrNoRows {
		return m, eris.Wrapf(ErrUnknownSite, "sqlite: site %d", siteID)
	}
	if err != nil {
		return m, eris.Wrapf(err, "sqlite: get website %d", siteID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(a.name, ''), COALESCE(a.address, ''), COALESCE(a.po, ''),
		        COALESCE(a.city, ''), COALESCE(a.state, ''), COALESCE(a.zip, '')
		 FROM roundup_market rm JOIN address a USING (address_id)
		 WHERE rm.roundup_website_id = ?
		 ORDER BY a.city`, siteID,
	)
	if err != nil {
		return m, eris.Wrapf(err, "sqlite: list markets %d", siteID)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var a address
		if err := rows.Scan(&a.Name, &a.Address, &a.PO, &a.City, &a.State, &a.Zip); err != nil {
			return m, eris.Wrap(err, "sqlite: scan address")
		}
		m.Locations = append(m.Locations, a.location())
	}
	return m, eris.Wrap(rows.Err(), "sqlite: iterate addresses")
}

func (s *SQLiteStore) PutMarket(ctx context.Context, m model.Market) error {
	if err := validateMarket(m); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO roundup_website (roundup_website_id, website, script) VALUES (?, ?, ?)
		 ON CONFLICT (roundup_website_id) DO UPDATE SET website = excluded.website, script = excluded.script`,
		m.SiteID, m.Website, m.Prefix,
	); err != nil {
		return eris.Wrapf(err, "sqlite: upsert website %d", m.SiteID)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM roundup_market WHERE roundup_website_id = ?`, m.SiteID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear markets %d", m.SiteID)
	}

	for _, loc := range m.Locations {
		a := addressOf(loc)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO address (name, address, po, city, state, zip) VALUES (?, ?, ?, ?, ?, ?)`,
			a.Name, a.Address, a.PO, a.City, a.State, a.Zip,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert address")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return eris.Wrap(err, "sqlite: address id")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO roundup_market (roundup_website_id, address_id) VALUES (?, ?)`, m.SiteID, id,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert market")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) RecordReport(ctx context.Context, r Report) (string, error) {
	id := uuid.New().String()
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_report (id, prefix, sale_date, path, records, unmatched, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, r.Prefix, saleDay(r.SaleDate).Format(dateLayout), r.Path, r.Records, r.Unmatched,
		r.ProcessedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert processed report")
	}
	return id, nil
}

func (s *SQLiteStore) Reports(ctx context.Context, prefix string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prefix, sale_date, path, records, unmatched, processed_at
		 FROM processed_report
		 WHERE (? = '' OR prefix = ?)
		 ORDER BY sale_date DESC, processed_at DESC
		 LIMIT ?`, prefix, prefix, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list processed reports")
	}
	defer rows.Close() //nolint:errcheck

	var out []Report
	for rows.Next() {
		var (
			r                   Report
			saleDate, processed string
		)
		if err := rows.Scan(&r.ID, &r.Prefix, &saleDate, &r.Path, &r.Records, &r.Unmatched, &processed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan processed report")
		}
		if r.SaleDate, err = time.Parse(dateLayout, saleDate); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse sale date %q", saleDate)
		}
		if r.ProcessedAt, err = time.Parse(time.RFC3339, processed); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse processed_at %q", processed)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate processed reports")
}
