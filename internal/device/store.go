package device

import (
	"context"
	"database/sql"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
)

// Store hands out transaction-scoped repositories.
type Store struct {
	db *database.DB
}

// NewStore creates a Store over an open, migrated database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// WithSession runs fn with a repository bound to a new transaction.
//
// The transaction commits if fn returns nil and rolls back if fn returns an
// error or panics, so every exit path releases the session. The repository
// must not be retained after fn returns.
func (s *Store) WithSession(ctx context.Context, fn func(repo Repository) error) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(NewSQLiteRepository(tx))
	})
}

// HealthCheck verifies the underlying database answers queries.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}
