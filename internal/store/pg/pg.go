// Package pg implements registry.Store on PostgreSQL via database/sql and
// the pgx stdlib driver. Uniqueness and referential rules live in the
// schema; constraint violations are mapped to the registry sentinel errors.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"obser.dev/internal/registry"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

var _ registry.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Users() registry.UserStore                       { return (*userStore)(s) }
func (s *Store) Projects() registry.ProjectStore                 { return (*projectStore)(s) }
func (s *Store) Memberships() registry.MembershipStore           { return (*membershipStore)(s) }
func (s *Store) Environments() registry.EnvironmentStore         { return (*environmentStore)(s) }
func (s *Store) ServiceTypes() registry.ServiceTypeStore         { return (*serviceTypeStore)(s) }
func (s *Store) ServiceInstances() registry.ServiceInstanceStore { return (*instanceStore)(s) }
func (s *Store) Credentials() registry.CredentialStore           { return (*credentialStore)(s) }

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapConstraintError translates constraint violations to registry sentinels:
// a unique violation is ErrConflict, a foreign-key violation ErrNotFound
// (the referenced row is gone).
func mapConstraintError(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return registry.ErrConflict
		case pgErrForeignKeyViolation:
			return registry.ErrNotFound
		}
	}
	return err
}
