package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/meshwork-app/meshwork-api/pkg/model"
)

// NotifStore persists notifications.
type NotifStore struct {
	db *sql.DB
}

const notifColumns = `id, kind, arg, used, user_id, created_at, updated_at, deleted_at`

func scanNotif(row rowScanner) (*model.Notif, error) {
	var n model.Notif
	err := row.Scan(&n.ID, &n.Kind, &n.Arg, &n.Used, &n.UserID,
		&n.CreatedAt, &n.UpdatedAt, &n.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create records a notification for the user.
func (s *NotifStore) Create(ctx context.Context, userID, kind, arg string) (*model.Notif, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO notifs (id, kind, arg, user_id) VALUES ($1, $2, $3, $4)
		 RETURNING `+notifColumns,
		uuid.New().String(), kind, arg, userID)
	n, err := scanNotif(row)
	if err != nil {
		return nil, translateError(err)
	}
	return n, nil
}

// ListLiveByUser returns the user's notifications, newest first.
func (s *NotifStore) ListLiveByUser(ctx context.Context, userID string) ([]*model.Notif, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notifColumns+` FROM notifs
		 WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifs: %w", err)
	}
	defer rows.Close()

	var notifs []*model.Notif
	for rows.Next() {
		n, err := scanNotif(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notif: %w", err)
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkUsed flags a notification as read.
func (s *NotifStore) MarkUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifs SET used = TRUE, updated_at = NOW()
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
