// Package db opens the product catalog database. Postgres URLs use a pgx
// connection pool; sqlite URLs and bare paths use the pure-Go modernc
// driver.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Parse reports which driver serves databaseURL and, for SQLite, the file
// path. SQLite URLs follow the SQLAlchemy form: "sqlite:///x.db" is
// relative, "sqlite:////abs/x.db" absolute. "sqlite://x.db", "sqlite:x.db"
// and plain paths are accepted too.
func Parse(databaseURL string) (Driver, string, error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return "", "", fmt.Errorf("empty database url")
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return Postgres, u, nil
	case strings.HasPrefix(u, "sqlite:"):
		p := strings.TrimPrefix(u, "sqlite:")
		p = strings.TrimPrefix(p, "//")
		p = strings.TrimPrefix(p, "/")
		if p == "" {
			return "", "", fmt.Errorf("sqlite url %q has no path", databaseURL)
		}
		return SQLite, p, nil
	case strings.Contains(u, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme in %q", Redact(u))
	default:
		return SQLite, u, nil
	}
}

// NewPool connects to Postgres and ensures the catalog schema exists.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return pool, nil
}

// OpenSQLite opens the SQLite file at path and ensures the catalog schema
// exists.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Redact hides the password of a database URL.
func Redact(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.User == nil {
		return databaseURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
