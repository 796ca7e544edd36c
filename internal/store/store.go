// Package store persists the canonical dataset for the read-only query
// service. Loads are full rebuilds: the dataset is replaced in entirety,
// never patched.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/zipdata-cli/internal/config"
	"github.com/sells-group/zipdata-cli/internal/model"
)

// ErrNotFound is returned when a ZIP is not in the dataset.
var ErrNotFound = eris.New("store: zip not found")

// Store is the persistence interface consumed by the load command and the
// query API.
type Store interface {
	// ReplaceAll replaces the whole dataset with the given records in one
	// transaction. Prior contents are discarded.
	ReplaceAll(ctx context.Context, records []model.ZipRecord) error

	// UpdatePlaces attaches city/state enrichment to existing records by ZIP.
	// Places without a matching record are ignored. Returns rows updated.
	UpdatePlaces(ctx context.Context, places []model.Place) (int, error)

	GetByZip(ctx context.Context, zip string) (*model.ZipDetail, error)
	Random(ctx context.Context) (*model.ZipDetail, error)
	All(ctx context.Context) ([]model.ZipDetail, error)
	Count(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store from config, dispatching on the configured driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

type scannable interface {
	Scan(dest ...any) error
}

// scanDetail reads one zip_codes row. Both backends select the same column
// order: id, zip, lat, lng, population, city, state, type.
func scanDetail(row scannable) (*model.ZipDetail, error) {
	var d model.ZipDetail
	var pop sql.NullInt64
	var city, state, placeType sql.NullString

	err := row.Scan(&d.ID, &d.Zip, &d.Lat, &d.Lng, &pop, &city, &state, &placeType)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan record")
	}

	if pop.Valid {
		v := pop.Int64
		d.Population = &v
	}
	if city.Valid {
		d.City = &city.String
	}
	if state.Valid {
		d.State = &state.String
	}
	if placeType.Valid {
		d.PlaceType = &placeType.String
	}
	return &d, nil
}
