package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meshwork-app/meshwork-api/pkg/model"
)

// ConnectionStore persists realtime connection records.
type ConnectionStore struct {
	db *sql.DB
}

const connectionColumns = `id, key, used, user_id, created_at, updated_at, deleted_at`

func scanConnection(row rowScanner) (*model.Connection, error) {
	var c model.Connection
	err := row.Scan(&c.ID, &c.Key, &c.Used, &c.UserID,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create opens a connection record for the user.
func (s *ConnectionStore) Create(ctx context.Context, userID, key string) (*model.Connection, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO connections (id, key, user_id) VALUES ($1, $2, $3)
		 RETURNING `+connectionColumns,
		uuid.New().String(), key, userID)
	c, err := scanConnection(row)
	if err != nil {
		return nil, translateError(err)
	}
	return c, nil
}

// ListLiveByUser returns the user's open connections.
func (s *ConnectionStore) ListLiveByUser(ctx context.Context, userID string) ([]*model.Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	var conns []*model.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// MarkUsed flags a connection as consumed.
func (s *ConnectionStore) MarkUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE connections SET used = TRUE, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneStale soft-deletes connections that are used or older than maxAge.
// Returns the number of rows pruned.
func (s *ConnectionStore) PruneStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res, err := s.db.ExecContext(ctx,
		`UPDATE connections SET deleted_at = NOW(), updated_at = NOW()
		 WHERE deleted_at IS NULL AND (used = TRUE OR created_at < $1)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning connections: %w", err)
	}
	return res.RowsAffected()
}
