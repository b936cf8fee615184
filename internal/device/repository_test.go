package device

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	_ "github.com/nerrad567/smarthome-core/migrations"
)

// openTestDB opens a migrated database in a temp directory.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "devices.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestSQLiteRepository_ListEmpty(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))

	records, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", records)
	}
}

func TestSQLiteRepository_InsertAndGet(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	rec, err := repo.Insert(ctx, Registration{DeviceID: "lamp-1", Name: "Lamp", DeviceType: "light"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if rec.ID == 0 {
		t.Error("Insert() did not assign a primary key")
	}
	if rec.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want >= %v", rec.CreatedAt, before)
	}

	got, err := repo.GetByDeviceID(ctx, "lamp-1")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.ID != rec.ID || got.Name != "Lamp" || got.DeviceType != "light" {
		t.Errorf("GetByDeviceID() = %+v, want %+v", got, rec)
	}
	if got.Status != StatusOffline {
		t.Errorf("Status = %v, want offline", got.Status)
	}
	if got.Properties == nil || len(got.Properties) != 0 {
		t.Errorf("Properties = %v, want empty", got.Properties)
	}
	if got.OwnerID != nil {
		t.Errorf("OwnerID = %v, want nil", *got.OwnerID)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))

	_, err := repo.GetByDeviceID(context.Background(), "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByDeviceID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_DuplicateDeviceID(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	if _, err := repo.Insert(ctx, Registration{DeviceID: "dup", Name: "First", DeviceType: "switch"}); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	_, err := repo.Insert(ctx, Registration{DeviceID: "dup", Name: "Second", DeviceType: "switch"})
	if !errors.Is(err, ErrDeviceExists) {
		t.Fatalf("second Insert() error = %v, want ErrDeviceExists", err)
	}

	got, err := repo.GetByDeviceID(ctx, "dup")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.Name != "First" {
		t.Errorf("Name = %q, want first insert to win", got.Name)
	}
}

func TestSQLiteRepository_ListOrder(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	ids := []string{"zeta", "alpha", "mid"}
	for _, id := range ids {
		if _, err := repo.Insert(ctx, Registration{DeviceID: id, Name: id, DeviceType: "sensor"}); err != nil {
			t.Fatalf("Insert(%s) error = %v", id, err)
		}
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != len(ids) {
		t.Fatalf("List() returned %d records, want %d", len(records), len(ids))
	}
	for i, id := range ids {
		if records[i].DeviceID != id {
			t.Errorf("records[%d].DeviceID = %q, want %q (insertion order)", i, records[i].DeviceID, id)
		}
	}
}

func TestSQLiteRepository_ReadsStoredStatusAndProperties(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `
		INSERT INTO devices (device_id, name, device_type, status, properties, created_at)
		VALUES ('legacy', 'Legacy', 'switch', 'online', '{"on":true}', '2026-03-01T09:00:00Z')`,
	); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	got, err := NewSQLiteRepository(db).GetByDeviceID(ctx, "legacy")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.Status != StatusOnline {
		t.Errorf("Status = %v, want online", got.Status)
	}
	if got.Properties["on"] != true {
		t.Errorf("Properties = %v, want on=true", got.Properties)
	}
}

func TestSQLiteRepository_RejectsUnknownStoredStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `
		INSERT INTO devices (device_id, name, device_type, status)
		VALUES ('bad', 'Bad', 'switch', 'exploded')`,
	); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	_, err := NewSQLiteRepository(db).GetByDeviceID(ctx, "bad")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("GetByDeviceID() error = %v, want ErrInvalidStatus", err)
	}
}
