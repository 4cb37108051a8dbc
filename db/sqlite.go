package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/gilby125/fly-or-drive/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS airports (
		ident        TEXT PRIMARY KEY,
		iata_code    TEXT,
		name         TEXT NOT NULL,
		municipality TEXT,
		latitude     REAL NOT NULL,
		longitude    REAL NOT NULL,
		iso_country  TEXT NOT NULL,
		active       INTEGER NOT NULL DEFAULT 1
	)`,

	// R-Tree over point boxes, keyed by the airports rowid.
	`CREATE VIRTUAL TABLE IF NOT EXISTS airports_rtree USING rtree(
		id,
		min_lat, max_lat,
		min_lon, max_lon
	)`,

	`CREATE INDEX IF NOT EXISTS idx_airports_iata ON airports(iata_code)`,
}

// SQLiteStore is a file-backed airport store with an R-Tree spatial index.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenSQLite opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string, log *logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.Default()
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	if path == ":memory:" {
		dsn = "file::memory:"
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every new connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := sqlDB.Exec(stmt); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	log.Info("SQLite airport store opened", "path", path)
	return &SQLiteStore{db: sqlDB, log: log}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load replaces every airport with rows and rebuilds the spatial index in a
// single transaction.
func (s *SQLiteStore) Load(ctx context.Context, rows []airports.Airport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM airports`); err != nil {
		return fmt.Errorf("clear airports: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO airports
		(ident, iata_code, name, municipality, latitude, longitude, iso_country, active)
		VALUES (?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range rows {
		if _, err := stmt.ExecContext(ctx, a.Ident, a.IATA, a.Name, a.Municipality,
			a.Location.Lat, a.Location.Lon, strings.ToUpper(a.ISOCountry), a.Active); err != nil {
			return fmt.Errorf("insert airport %s: %w", a.Ident, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM airports_rtree`); err != nil {
		return fmt.Errorf("clear rtree: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO airports_rtree(id, min_lat, max_lat, min_lon, max_lon)
		 SELECT rowid, latitude, latitude, longitude, longitude FROM airports`); err != nil {
		return fmt.Errorf("populate rtree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	s.log.Info("Loaded airports into SQLite", "count", len(rows))
	return nil
}

// Count returns the number of stored airports.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM airports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count airports: %w", err)
	}
	return n, nil
}

// QueryAirports implements airports.Store. The R-Tree stores 32-bit
// coordinates rounded outward, so the exact box is re-checked on the base
// table.
func (s *SQLiteStore) QueryAirports(ctx context.Context, box geo.BoundingBox, filter airports.Filter) ([]airports.Airport, error) {
	query := `SELECT a.ident, COALESCE(a.iata_code, ''), a.name, COALESCE(a.municipality, ''),
			a.latitude, a.longitude, a.iso_country, a.active
		FROM airports_rtree AS r
		JOIN airports AS a ON a.rowid = r.id
		WHERE r.max_lat >= ? AND r.min_lat <= ?
		  AND r.max_lon >= ? AND r.min_lon <= ?
		  AND a.latitude BETWEEN ? AND ?
		  AND a.longitude BETWEEN ? AND ?`
	args := []any{
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
	}
	if !filter.IncludeInactive {
		query += ` AND a.active = 1`
	}
	if filter.ISOCountry != "" {
		query += ` AND a.iso_country = ?`
		args = append(args, strings.ToUpper(filter.ISOCountry))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("nearby airports query: %w", err)
	}
	defer rows.Close()

	var out []airports.Airport
	for rows.Next() {
		a, err := scanSQLiteAirport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AirportByIATA implements airports.Lookup.
func (s *SQLiteStore) AirportByIATA(ctx context.Context, iata string) (airports.Airport, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT ident, COALESCE(iata_code, ''), name, COALESCE(municipality, ''),
			latitude, longitude, iso_country, active
		FROM airports WHERE iata_code = ? AND active = 1 ORDER BY ident LIMIT 1`, strings.ToUpper(iata))
	a, err := scanSQLiteAirport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return airports.Airport{}, false, nil
	}
	if err != nil {
		return airports.Airport{}, false, err
	}
	return a, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAirport(row rowScanner) (airports.Airport, error) {
	var a airports.Airport
	err := row.Scan(&a.Ident, &a.IATA, &a.Name, &a.Municipality,
		&a.Location.Lat, &a.Location.Lon, &a.ISOCountry, &a.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan airport: %w", err)
	}
	return a, nil
}

var (
	_ airports.Store  = (*SQLiteStore)(nil)
	_ airports.Lookup = (*SQLiteStore)(nil)
)
