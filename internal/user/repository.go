package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
)

// Repository defines user account persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	CountOwnedDevices(ctx context.Context, id int64) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	q database.Querier
}

// NewSQLiteRepository creates a user repository over a DB or transaction.
func NewSQLiteRepository(q database.Querier) *SQLiteRepository {
	return &SQLiteRepository{q: q}
}

const userColumns = `SELECT id, username, email, hashed_password, is_active, created_at FROM users`

// Create inserts u and fills in ID and CreatedAt.
// Returns ErrUserExists when the username or email is taken.
func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	u.CreatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO users (username, email, hashed_password, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.HashedPassword, boolToInt(u.IsActive),
		u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	if u.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	return nil
}

// GetByID retrieves a user by primary key.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.q.QueryRowContext(ctx, userColumns+` WHERE id = ?`, id))
}

// GetByUsername retrieves a user by username.
func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.q.QueryRowContext(ctx, userColumns+` WHERE username = ?`, username))
}

// List returns all users ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.q.QueryContext(ctx, userColumns+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// CountOwnedDevices returns how many device records reference the user.
func (r *SQLiteRepository) CountOwnedDevices(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM devices WHERE owner_id = ?", id,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting owned devices: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		active    int
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.IsActive = active != 0

	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("user %d: parsing created_at: %w", u.ID, err)
	}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
