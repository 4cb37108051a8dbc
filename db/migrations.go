package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gilby125/fly-or-drive/pkg/logger"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Stable advisory lock key so two instances never migrate at once.
const migrationsAdvisoryLockID int64 = 7311920455130284417

// Migration is one embedded schema file.
type Migration struct {
	Version  string
	Checksum string
	SQL      string
}

// Migrations lists the embedded migrations in apply order.
func Migrations() ([]Migration, error) {
	paths, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(paths)

	out := make([]Migration, 0, len(paths))
	for _, p := range paths {
		body, err := fs.ReadFile(migrationsFS, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		sum := sha256.Sum256(body)
		out = append(out, Migration{
			Version:  path.Base(p),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(body),
		})
	}
	return out, nil
}

// RunMigrations applies pending migrations over a lib/pq connection and
// records them in schema_migrations. connString may be a keyword/value DSN
// or a postgres:// URL.
func RunMigrations(ctx context.Context, connString string, log *logger.Logger) error {
	if log == nil {
		log = logger.Default()
	}
	conn, err := sql.Open("postgres", connString)
	if err != nil {
		return fmt.Errorf("open postgres connection for migrations: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres for migrations: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationsAdvisoryLockID); err != nil {
		return fmt.Errorf("acquire migrations advisory lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationsAdvisoryLockID)
	}()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	migrations, err := Migrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		applied, ok, err := appliedChecksum(ctx, conn, m.Version)
		if err != nil {
			return err
		}
		if ok {
			if !strings.EqualFold(applied, m.Checksum) {
				return fmt.Errorf("migration %s checksum mismatch (db=%s file=%s)", m.Version, applied, m.Checksum)
			}
			continue
		}
		if err := applyMigration(ctx, conn, m); err != nil {
			return err
		}
		log.Info("Applied migration", "version", m.Version)
	}
	return nil
}

func appliedChecksum(ctx context.Context, conn *sql.DB, version string) (string, bool, error) {
	var checksum string
	err := conn.QueryRowContext(ctx, `SELECT checksum FROM schema_migrations WHERE version = $1`, version).Scan(&checksum)
	switch {
	case err == nil:
		return checksum, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("check schema_migrations for %s: %w", version, err)
	}
}

func applyMigration(ctx context.Context, conn *sql.DB, m Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx for %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("execute migration %s: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, checksum, applied_at) VALUES ($1, $2, NOW())`,
		m.Version, m.Checksum,
	); err != nil {
		return fmt.Errorf("record schema_migrations row for %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}
