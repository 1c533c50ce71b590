// Package store is the PostgreSQL persistence layer. All stores share one
// *sql.DB; queries use positional placeholders and lib/pq for driver-level
// error inspection. Uniqueness violations surface as apierror.Conflict so
// handlers never parse driver errors themselves.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
)

// ErrNotFound is returned when a row does not exist at all. Soft-deleted
// rows are a separate concern handled by the access layer.
var ErrNotFound = errors.New("store: not found")

// uniqueViolation is the PostgreSQL class 23 code for duplicate keys.
const uniqueViolation = "23505"

// Stores bundles the per-entity stores over one shared connection pool.
type Stores struct {
	Users       *UserStore
	Connections *ConnectionStore
	Notifs      *NotifStore
}

// New creates the store bundle.
func New(db *sql.DB) *Stores {
	return &Stores{
		Users:       &UserStore{db: db},
		Connections: &ConnectionStore{db: db},
		Notifs:      &NotifStore{db: db},
	}
}

// EnsureSchema creates the extensions and tables the API needs. Idempotent;
// run at startup before serving.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	ddl := `
	CREATE EXTENSION IF NOT EXISTS citext;

	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username CITEXT NOT NULL,
		password_hash TEXT,
		firstname TEXT,
		lastname TEXT,
		email CITEXT NOT NULL,
		phone TEXT,
		jobtitle TEXT,
		department TEXT,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users(username) WHERE deleted_at IS NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users(email) WHERE deleted_at IS NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS users_phone_key ON users(phone) WHERE deleted_at IS NULL AND phone IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC);

	CREATE TABLE IF NOT EXISTS connections (
		id UUID PRIMARY KEY,
		key TEXT,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		user_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_connections_user_id ON connections(user_id);

	CREATE TABLE IF NOT EXISTS notifs (
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL DEFAULT 'personal',
		arg TEXT NOT NULL DEFAULT 'news',
		used BOOLEAN NOT NULL DEFAULT FALSE,
		user_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_notifs_user_id ON notifs(user_id);
	`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// translateError maps driver errors to the API taxonomy. Unique violations
// become 409s named after the offending column, derived from the constraint
// name (users_email_key reports email).
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return apierror.Conflict(constraintField(pqErr.Constraint)).WithCause(err)
	}
	return err
}

// constraintField extracts the column name from a <table>_<column>_key
// constraint name.
func constraintField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[i+1:]
	}
	return name
}
