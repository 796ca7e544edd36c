package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/zipdata-cli/internal/db"
	"github.com/sells-group/zipdata-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
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

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS zip_codes (
	id         INTEGER PRIMARY KEY,
	zip        TEXT NOT NULL UNIQUE,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	population BIGINT,
	city       TEXT,
	state      TEXT,
	type       TEXT
);

CREATE INDEX IF NOT EXISTS idx_zip_codes_zip ON zip_codes(zip);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

// ReplaceAll truncates the table and bulk-loads the record set via COPY.
func (s *PostgresStore) ReplaceAll(ctx context.Context, records []model.ZipRecord) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE zip_codes`); err != nil {
		return eris.Wrap(err, "postgres: truncate zip_codes")
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var pop any
		if r.HasPopulation() {
			pop = *r.Population
		}
		rows = append(rows, []any{r.ID, r.Zip, r.Lat, r.Lng, pop})
	}

	n, err := db.CopyFrom(ctx, s.pool, "zip_codes",
		[]string{"id", "zip", "lat", "lng", "population"}, rows)
	if err != nil {
		return err
	}
	if n != int64(len(records)) {
		return eris.Errorf("postgres: copied %d of %d records", n, len(records))
	}
	return nil
}

func (s *PostgresStore) UpdatePlaces(ctx context.Context, places []model.Place) (int, error) {
	updated := 0
	for _, p := range places {
		tag, err := s.pool.Exec(ctx,
			`UPDATE zip_codes SET city = $1, state = $2, type = $3 WHERE zip = $4`,
			p.City, p.State, p.PlaceType, p.Zip)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: update place %s", p.Zip)
		}
		updated += int(tag.RowsAffected())
	}
	return updated, nil
}

const postgresSelect = `SELECT id, zip, lat, lng, population, city, state, type FROM zip_codes`

func (s *PostgresStore) GetByZip(ctx context.Context, zip string) (*model.ZipDetail, error) {
	return scanDetail(s.pool.QueryRow(ctx, postgresSelect+` WHERE zip = $1`, zip))
}

func (s *PostgresStore) Random(ctx context.Context) (*model.ZipDetail, error) {
	return scanDetail(s.pool.QueryRow(ctx, postgresSelect+` ORDER BY random() LIMIT 1`))
}

func (s *PostgresStore) All(ctx context.Context) ([]model.ZipDetail, error) {
	rows, err := s.pool.Query(ctx, postgresSelect+` ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query all")
	}
	defer rows.Close()

	var details []model.ZipDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, eris.Wrap(rows.Err(), "postgres: iterate all")
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM zip_codes`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count")
}
