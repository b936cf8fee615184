package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
)

// Repository defines device persistence operations.
// Records are never updated or deleted.
type Repository interface {
	// List returns every record ordered by primary key, oldest first.
	// An empty table yields an empty, non-nil slice.
	List(ctx context.Context) ([]Record, error)

	// GetByDeviceID returns the record with the given device_id.
	// Returns ErrDeviceNotFound if there is none.
	GetByDeviceID(ctx context.Context, deviceID string) (*Record, error)

	// Insert stores a new record built with NewRecord.
	// Returns ErrDeviceExists if the device_id is already stored.
	Insert(ctx context.Context, reg Registration) (*Record, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	q database.Querier
}

// NewSQLiteRepository creates a repository issuing its statements through q.
// Inside a transaction q must be the *sql.Tx.
func NewSQLiteRepository(q database.Querier) *SQLiteRepository {
	return &SQLiteRepository{q: q}
}

const selectColumns = `
	SELECT id, device_id, name, device_type, status, properties, owner_id, created_at
	FROM devices`

// List returns every record ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.q.QueryContext(ctx, selectColumns+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

// GetByDeviceID looks a record up through the unique device_id index.
func (r *SQLiteRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Record, error) {
	row := r.q.QueryRowContext(ctx, selectColumns+` WHERE device_id = ?`, deviceID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Insert stores a new offline record with empty properties.
func (r *SQLiteRepository) Insert(ctx context.Context, reg Registration) (*Record, error) {
	rec := NewRecord(reg)
	rec.CreatedAt = time.Now().UTC().Truncate(time.Second)

	props, err := json.Marshal(rec.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshalling properties: %w", err)
	}

	result, err := r.q.ExecContext(ctx, `
		INSERT INTO devices (device_id, name, device_type, status, properties, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.DeviceID,
		rec.Name,
		rec.DeviceType,
		rec.Status.String(),
		string(props),
		nullableInt64(rec.OwnerID),
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceExists, rec.DeviceID)
		}
		return nil, fmt.Errorf("inserting device: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted id: %w", err)
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		status    string
		props     sql.NullString
		ownerID   sql.NullInt64
		createdAt string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.DeviceID,
		&rec.Name,
		&rec.DeviceType,
		&status,
		&props,
		&ownerID,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning device row: %w", err)
	}

	var err error
	if rec.Status, err = ParseStatus(status); err != nil {
		return nil, fmt.Errorf("device %s: %w", rec.DeviceID, err)
	}

	rec.Properties = map[string]any{}
	if props.Valid && props.String != "" {
		if err := json.Unmarshal([]byte(props.String), &rec.Properties); err != nil {
			return nil, fmt.Errorf("device %s: decoding properties: %w", rec.DeviceID, err)
		}
		if rec.Properties == nil {
			rec.Properties = map[string]any{}
		}
	}

	if ownerID.Valid {
		id := ownerID.Int64
		rec.OwnerID = &id
	}

	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("device %s: parsing created_at: %w", rec.DeviceID, err)
	}

	return &rec, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
