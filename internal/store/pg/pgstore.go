// Package pg implements the registry store contracts on PostgreSQL.
// Uniqueness and referential integrity are enforced by the schema's unique
// indexes and foreign keys; this package translates the resulting constraint
// violations into domain errors.
package pg

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store holds the shared connection pool behind the per-entity stores.
type Store struct {
	db *sql.DB
}

// UserStore serves the login flow's account lookups.
type UserStore struct {
	db *sql.DB
}

// DepartmentStore implements department.Store.
type DepartmentStore struct {
	db *sql.DB
}

// ProcessStore implements process.Store.
type ProcessStore struct {
	db *sql.DB
}

func (s *Store) Users() *UserStore             { return &UserStore{db: s.db} }
func (s *Store) Departments() *DepartmentStore { return &DepartmentStore{db: s.db} }
func (s *Store) Processes() *ProcessStore      { return &ProcessStore{db: s.db} }

// Open connects to PostgreSQL with pool defaults tuned for the API workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection, used by tests.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullIfEmpty(*s)
}

func ptrFromNull(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	v := ns.String
	return &v
}
