package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads airports from the airports table through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// Ping checks connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const selectAirportColumns = `ident, COALESCE(iata_code, ''), name, COALESCE(municipality, ''),
	latitude, longitude, iso_country, active`

// QueryAirports implements airports.Store. The latitude/longitude index
// serves the range predicate.
func (p *PostgresStore) QueryAirports(ctx context.Context, box geo.BoundingBox, filter airports.Filter) ([]airports.Airport, error) {
	var (
		where = []string{
			"latitude BETWEEN $1 AND $2",
			"longitude BETWEEN $3 AND $4",
		}
		args = []any{box.MinLat, box.MaxLat, box.MinLon, box.MaxLon}
	)
	if !filter.IncludeInactive {
		where = append(where, "active")
	}
	if filter.ISOCountry != "" {
		args = append(args, strings.ToUpper(filter.ISOCountry))
		where = append(where, fmt.Sprintf("iso_country = $%d", len(args)))
	}

	query := `SELECT ` + selectAirportColumns + ` FROM airports WHERE ` + strings.Join(where, " AND ")
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query airports: %w", err)
	}
	defer rows.Close()

	var out []airports.Airport
	for rows.Next() {
		a, err := scanAirport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate airports: %w", err)
	}
	return out, nil
}

// AirportByIATA implements airports.Lookup.
func (p *PostgresStore) AirportByIATA(ctx context.Context, iata string) (airports.Airport, bool, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+selectAirportColumns+` FROM airports WHERE iata_code = $1 AND active ORDER BY ident LIMIT 1`,
		strings.ToUpper(iata))
	a, err := scanAirport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return airports.Airport{}, false, nil
	}
	if err != nil {
		return airports.Airport{}, false, err
	}
	return a, true, nil
}

func scanAirport(row pgx.Row) (airports.Airport, error) {
	var a airports.Airport
	err := row.Scan(&a.Ident, &a.IATA, &a.Name, &a.Municipality,
		&a.Location.Lat, &a.Location.Lon, &a.ISOCountry, &a.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan airport: %w", err)
	}
	return a, nil
}

// SeedIfEmpty loads rows when the airports table has none. It returns the
// number of rows inserted.
func (p *PostgresStore) SeedIfEmpty(ctx context.Context, rows []airports.Airport) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM airports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count airports: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range rows {
		batch.Queue(`INSERT INTO airports (ident, iata_code, name, municipality, latitude, longitude, iso_country, active)
			VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7, $8)
			ON CONFLICT (ident) DO NOTHING`,
			a.Ident, a.IATA, a.Name, a.Municipality, a.Location.Lat, a.Location.Lon, a.ISOCountry, a.Active)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range rows {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("seed airports: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

var (
	_ airports.Store  = (*PostgresStore)(nil)
	_ airports.Lookup = (*PostgresStore)(nil)
)
