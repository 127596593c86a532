package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoRows is returned when a query expected to return a row returns none.
var ErrNoRows = errors.New("no rows in result set")

// Postgres error codes used for structured classification.
const (
	pgUndefinedColumn = "42703"
	pgUndefinedTable  = "42P01"
	pgUniqueViolation = "23505"
)

// IsNoRows returns true if the error indicates no rows were found.
// This handles both pgx.ErrNoRows and sql.ErrNoRows.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrNoRows)
}

// IsSchemaMismatch reports whether the error means the statement referenced a
// column or table the store does not have yet. Structured driver codes are
// checked first; the vendor text signals ("schema cache", "does not exist")
// are a fallback for drivers without structured errors.
func IsSchemaMismatch(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedColumn || pgErr.Code == pgUndefinedTable
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column named") ||
		strings.Contains(msg, "schema cache") ||
		strings.Contains(msg, "does not exist")
}

// IsUniqueViolation reports whether the error is a uniqueness-constraint
// rejection. An insert racing another import on the same source_id lands
// here and must be treated as "already imported", not as a failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// MissingColumn extracts the column name a schema-mismatch error refers to,
// or "" when the error does not name one (e.g. a missing table).
func MissingColumn(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedColumn {
		// `column "urgency" of relation "tasks" does not exist`
		return between(pgErr.Message, `column "`, `"`)
	}

	msg := err.Error()
	// modernc/sqlite: `table tasks has no column named urgency`
	if _, after, ok := strings.Cut(msg, "has no column named "); ok {
		return firstWord(after)
	}
	// sqlite: `no such column: urgency`
	if _, after, ok := strings.Cut(msg, "no such column: "); ok {
		return firstWord(after)
	}
	// supabase-style: `Could not find the 'urgency' column of 'tasks' in the schema cache`
	if col := between(msg, "the '", "' column"); col != "" {
		return col
	}
	return ""
}

func between(s, start, end string) string {
	_, after, ok := strings.Cut(s, start)
	if !ok {
		return ""
	}
	col, _, ok := strings.Cut(after, end)
	if !ok {
		return ""
	}
	return col
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\n("); i >= 0 {
		return s[:i]
	}
	return s
}
