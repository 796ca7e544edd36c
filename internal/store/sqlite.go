package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/zipdata-cli/internal/model"
)

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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS zip_codes (
	id         INTEGER PRIMARY KEY,
	zip        TEXT NOT NULL UNIQUE,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	population INTEGER,
	city       TEXT,
	state      TEXT,
	type       TEXT
);

CREATE INDEX IF NOT EXISTS idx_zip_codes_zip ON zip_codes(zip);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, records []model.ZipRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM zip_codes`); err != nil {
		return eris.Wrap(err, "sqlite: clear zip_codes")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO zip_codes (id, zip, lat, lng, population) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		var pop any
		if r.HasPopulation() {
			pop = *r.Population
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Zip, r.Lat, r.Lng, pop); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", r.Zip)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) UpdatePlaces(ctx context.Context, places []model.Place) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE zip_codes SET city = ?, state = ?, type = ? WHERE zip = ?`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare update")
	}
	defer stmt.Close() //nolint:errcheck

	updated := 0
	for _, p := range places {
		res, err := stmt.ExecContext(ctx, p.City, p.State, p.PlaceType, p.Zip)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: update place %s", p.Zip)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return updated, nil
}

const sqliteSelect = `SELECT id, zip, lat, lng, population, city, state, type FROM zip_codes`

func (s *SQLiteStore) GetByZip(ctx context.Context, zip string) (*model.ZipDetail, error) {
	return scanDetail(s.db.QueryRowContext(ctx, sqliteSelect+` WHERE zip = ?`, zip))
}

func (s *SQLiteStore) Random(ctx context.Context) (*model.ZipDetail, error) {
	return scanDetail(s.db.QueryRowContext(ctx, sqliteSelect+` ORDER BY RANDOM() LIMIT 1`))
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.ZipDetail, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelect+` ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query all")
	}
	defer rows.Close() //nolint:errcheck

	var details []model.ZipDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, eris.Wrap(rows.Err(), "sqlite: iterate all")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM zip_codes`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count")
}

