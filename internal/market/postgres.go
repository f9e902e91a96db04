package market

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-report-cli/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore; pgxmock pools
// satisfy it too.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS roundup_website (
	roundup_website_id INTEGER PRIMARY KEY,
	website            TEXT NOT NULL,
	script             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS address (
	address_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name       TEXT,
	address    TEXT,
	po         TEXT,
	city       TEXT,
	state      TEXT,
	zip        TEXT
);

CREATE TABLE IF NOT EXISTS roundup_market (
	roundup_website_id INTEGER NOT NULL REFERENCES roundup_website(roundup_website_id),
	address_id         BIGINT NOT NULL REFERENCES address(address_id),
	PRIMARY KEY (roundup_website_id, address_id)
);

CREATE TABLE IF NOT EXISTS processed_report (
	id           UUID PRIMARY KEY,
	prefix       TEXT NOT NULL,
	sale_date    DATE NOT NULL,
	path         TEXT NOT NULL,
	records      INTEGER NOT NULL DEFAULT 0,
	unmatched    INTEGER NOT NULL DEFAULT 0,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_processed_report_prefix ON processed_report(prefix, sale_date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Market(ctx context.Context, siteID int) (model.Market, error) {
	m := model.Market{SiteID: siteID}
	err := s.pool.QueryRow(ctx,
		`SELECT website, script FROM roundup_website WHERE roundup_website_id = $1`, siteID,
	).Scan(&m.Website, &m.Prefix)
	if errors.Is(err, pgx.ErrNoRows) {
		return m, eris.Wrapf(ErrUnknownSite, "postgres: site %d", siteID)
	}
	if err != nil {
		return m, eris.Wrapf(err, "postgres: get website %d", siteID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(a.name, ''), COALESCE(a.address, ''), COALESCE(a.po, ''),
		        COALESCE(a.city, ''), COALESCE(a.state, ''), COALESCE(a.zip, '')
		 FROM roundup_market rm JOIN address a USING (address_id)
		 WHERE rm.roundup_website_id = $1
		 ORDER BY a.city`, siteID,
	)
	if err != nil {
		return m, eris.Wrapf(err, "postgres: list markets %d", siteID)
	}
	defer rows.Close()

	for rows.Next() {
		var a address
		if err := rows.Scan(&a.Name, &a.Address, &a.PO, &a.City, &a.State, &a.Zip); err != nil {
			return m, eris.Wrap(err, "postgres: scan address")
		}
		m.Locations = append(m.Locations, a.location())
	}
	return m, eris.Wrap(rows.Err(), "postgres: iterate addresses")
}

func (s *PostgresStore) PutMarket(ctx context.Context, m model.Market) error {
	if err := validateMarket(m); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO roundup_website (roundup_website_id, website, script) VALUES ($1, $2, $3)
		 ON CONFLICT (roundup_website_id) DO UPDATE SET website = EXCLUDED.website, script = EXCLUDED.script`,
		m.SiteID, m.Website, m.Prefix,
	); err != nil {
		return eris.Wrapf(err, "postgres: upsert website %d", m.SiteID)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM roundup_market WHERE roundup_website_id = $1`, m.SiteID,
	); err != nil {
		return eris.Wrapf(err, "postgres: clear markets %d", m.SiteID)
	}

	for _, loc := range m.Locations {
		a := addressOf(loc)
		var id int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO address (name, address, po, city, state, zip) VALUES ($1, $2, $3, $4, $5, $6) RETURNING address_id`,
			a.Name, a.Address, a.PO, a.City, a.State, a.Zip,
		).Scan(&id); err != nil {
			return eris.Wrap(err, "postgres: insert address")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO roundup_market (roundup_website_id, address_id) VALUES ($1, $2)`, m.SiteID, id,
		); err != nil {
			return eris.Wrap(err, "postgres: insert market")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (s *PostgresStore) RecordReport(ctx context.Context, r Report) (string, error) {
	id := uuid.New().String()
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed_report (id, prefix, sale_date, path, records, unmatched, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, r.Prefix, saleDay(r.SaleDate), r.Path, r.Records, r.Unmatched, r.ProcessedAt,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert processed report")
	}
	return id, nil
}

func (s *PostgresStore) Reports(ctx context.Context, prefix string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, prefix, sale_date, path, records, unmatched, processed_at
		 FROM processed_report
		 WHERE ($1 = '' OR prefix = $1)
		 ORDER BY sale_date DESC, processed_at DESC
		 LIMIT $2`, prefix, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list processed reports")
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.Prefix, &r.SaleDate, &r.Path, &r.Records, &r.Unmatched, &r.ProcessedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan processed report")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate processed reports")
}
