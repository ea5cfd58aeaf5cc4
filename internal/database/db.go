package database

import (
	"context"
	"database/sql"
)

// DB is the subset of a pooled Postgres connection the repositories use.
type DB interface {
	Ping(ctx context.Context) error
	Close() error

	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Row

	// SQLDB exposes a database/sql handle over the same pool, used by migrations.
	SQLDB() *sql.DB
}

type Row interface {
	Scan(dest ...any) error
}
