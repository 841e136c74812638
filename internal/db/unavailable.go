package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/research-service/internal/apperr"
)

// ErrNotConfigured is returned by every call on Unavailable().
var ErrNotConfigured = apperr.Unavailable("Database not configured")

// Unavailable returns a DBTX that fails every call with ErrNotConfigured.
// It stands in for the pool when DATABASE_URL is unset or unreachable, so
// handlers answer 503 instead of the process refusing to boot.
func Unavailable() DBTX { return unavailable{} }

type unavailable struct{}

func (unavailable) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrNotConfigured
}

func (unavailable) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrNotConfigured
}

func (unavailable) QueryRow(context.Context, string, ...any) pgx.Row { return errRow{} }

type errRow struct{}

func (errRow) Scan(...any) error { return ErrNotConfigured }
