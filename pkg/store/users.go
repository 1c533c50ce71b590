package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/model"
	"github.com/meshwork-app/meshwork-api/pkg/schema"
)

// UserStore persists the users table.
type UserStore struct {
	db *sql.DB
}

const userColumns = `id, username, password_hash, firstname, lastname, email, phone,
		jobtitle, department, is_admin, is_confirmed, created_at, updated_at, deleted_at`

// DefaultPageSize bounds list responses when the client supplies no limit.
const DefaultPageSize = 20

// MaxPageSize caps client-supplied limits.
const MaxPageSize = 100

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var passwordHash sql.NullString
	err := row.Scan(
		&u.ID, &u.Username, &passwordHash, &u.Firstname, &u.Lastname,
		&u.Email, &u.Phone, &u.Jobtitle, &u.Department,
		&u.IsAdmin, &u.IsConfirmed, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = passwordHash.String
	return &u, nil
}

// Create inserts a new user. The change set must already be derived: the
// virtual password attribute is gone and password_hash is present. Returns
// the stored row including database-assigned defaults and timestamps.
func (s *UserStore) Create(ctx context.Context, changes model.Changes) (*model.User, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO users (id, username, password_hash, firstname, lastname, email, phone, jobtitle, department)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query,
		id,
		changes["username"],
		changes["password_hash"],
		changes["firstname"],
		changes["lastname"],
		changes["email"],
		changes["phone"],
		changes["jobtitle"],
		changes["department"],
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

// GetByID loads a user regardless of deletion state. Handlers rely on seeing
// the soft-deleted row so a repeated delete can answer 404 instead of
// claiming success.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

// GetLiveByID loads a user that has not been soft-deleted.
func (s *UserStore) GetLiveByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

// FindLiveByUsernameOrEmail resolves a login handle. Both columns are citext
// so the match is case-insensitive.
func (s *UserStore) FindLiveByUsernameOrEmail(ctx context.Context, handle string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE (username = $1 OR email = $1) AND deleted_at IS NULL`, handle)
	u, err := scanUser(row)
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

// FindLiveByEmail resolves a recovery address.
func (s *UserStore) FindLiveByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

// Update applies a derived change set to a live user and bumps updated_at.
// Keys are persisted column names; they are applied in sorted order so the
// generated SQL is stable.
func (s *UserStore) Update(ctx context.Context, id string, changes model.Changes) (*model.User, error) {
	if len(changes) == 0 {
		return s.GetLiveByID(ctx, id)
	}

	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]interface{}, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, changes[k])
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d AND deleted_at IS NULL RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

// SoftDelete marks a live user as deleted. Deleting an already-deleted or
// absent user returns ErrNotFound.
func (s *UserStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = NOW(), updated_at = NOW()
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

// ListOptions narrow a user listing.
type ListOptions struct {
	// Filter is attribute equality, restricted to searchable attributes.
	Filter map[string]string
	// Sort names schema fields, "-" prefix for descending.
	Sort []string
	// Cursor is the id of the last row of the previous page; the boundary
	// is exclusive and must name an existing row. The keyset is always the
	// (created_at, id) tuple, independent of Sort, so a custom sort order
	// does not change which rows a cursor excludes.
	Cursor string
	// Snapshot caps updated_at so pages remain stable while paginating.
	Snapshot *time.Time
	// Limit defaults to DefaultPageSize and is capped at MaxPageSize.
	Limit int
}

// List returns live users matching the options, ordered newest first unless
// a sort is supplied. Filter keys outside the searchable projection and sort
// fields outside the schema are rejected with a 400.
func (s *UserStore) List(ctx context.Context, opts ListOptions) ([]*model.User, error) {
	searchable := make(map[string]bool)
	for _, name := range model.Users.MustProjection(schema.Searchable) {
		searchable[name] = true
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	filterKeys := make([]string, 0, len(opts.Filter))
	for k := range opts.Filter {
		filterKeys = append(filterKeys, k)
	}
	sort.Strings(filterKeys)
	for _, k := range filterKeys {
		if !searchable[k] {
			return nil, apierror.BadRequest("invalid_filter",
				fmt.Sprintf("%s is not a searchable attribute", k),
				"Only searchable attributes may be used in filters.")
		}
		query += fmt.Sprintf(" AND %s = $%d", k, argCount)
		args = append(args, opts.Filter[k])
		argCount++
	}

	if opts.Snapshot != nil {
		query += fmt.Sprintf(" AND updated_at <= $%d", argCount)
		args = append(args, *opts.Snapshot)
		argCount++
	}

	if opts.Cursor != "" {
		// Resolve the cursor row up front; a cursor naming no row would
		// otherwise turn the tuple comparison into NULL and silently empty
		// the page.
		var cursorCreated time.Time
		err := s.db.QueryRowContext(ctx,
			`SELECT created_at FROM users WHERE id = $1`, opts.Cursor).Scan(&cursorCreated)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apierror.BadRequest("invalid_parameter",
					"page[after] does not name a known row",
					"The pagination cursor must be the id of a previously returned user.")
			}
			return nil, fmt.Errorf("resolving cursor: %w", err)
		}
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argCount, argCount+1)
		args = append(args, cursorCreated, opts.Cursor)
		argCount += 2
	}

	orderBy := make([]string, 0, len(opts.Sort)+1)
	for _, field := range opts.Sort {
		dir := "ASC"
		name := field
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			name = field[1:]
		}
		if !model.Users.Has(name) {
			return nil, apierror.BadRequest("invalid_sort",
				fmt.Sprintf("%s is not a sortable attribute", name),
				"Only schema attributes may be used for sorting.")
		}
		orderBy = append(orderBy, name+" "+dir)
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "created_at DESC")
	}
	orderBy = append(orderBy, "id DESC")
	query += " ORDER BY " + strings.Join(orderBy, ", ")

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}
