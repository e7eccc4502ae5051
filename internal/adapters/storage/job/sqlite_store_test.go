package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/asaneep/send-mail-ses/internal/adapters/storage"
	domain "github.com/asaneep/send-mail-ses/internal/domain/job"
)

// newTestStore opens an in-memory database with the schema applied.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// A pooled second connection would see an empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return NewSQLiteStore(db)
}

func testJob(created time.Time) domain.SendJob {
	return domain.SendJob{
		CreatedAt:  created,
		Sender:     "sender@example.com",
		Subject:    "Hello",
		Recipients: "a@example.com, b@example.com",
		Message:    "Body text",
		Status:     domain.StatusPending,
	}
}

// TestCreateAndGetByID verifies a job roundtrips including details.
func TestCreateAndGetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	j := testJob(created)
	j.Details = []domain.RecipientResult{
		{Email: "a@example.com", Status: domain.StatusSuccess, Message: "Email sent successfully", MessageID: "msg-1"},
		{Email: "b@example.com", Status: domain.StatusError, Message: "AWS Error: throttled"},
	}

	id, err := store.Create(ctx, j)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero id")
	}

	loaded, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !loaded.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, created)
	}
	if loaded.Sender != j.Sender || loaded.Subject != j.Subject || loaded.Message != j.Message {
		t.Errorf("loaded job fields mismatch: %+v", loaded)
	}
	if len(loaded.Details) != 2 {
		t.Fatalf("expected 2 detail entries, got %d", len(loaded.Details))
	}
	if loaded.Details[0].MessageID != "msg-1" {
		t.Errorf("detail message id = %q, want %q", loaded.Details[0].MessageID, "msg-1")
	}
	if loaded.Details[1].Status != domain.StatusError {
		t.Errorf("detail status = %q, want %q", loaded.Details[1].Status, domain.StatusError)
	}
}

// TestGetByIDNotFound verifies unknown ids map to ErrNotFound.
func TestGetByIDNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetByID(context.Background(), 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestUpdateResult verifies status and details are replaced.
func TestUpdateResult(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, testJob(time.Now()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	details := []domain.RecipientResult{
		{Email: "a@example.com", Status: domain.StatusSuccess, Message: "Email sent successfully", MessageID: "msg-9"},
	}
	if err := store.UpdateResult(ctx, id, domain.StatusSuccess, details); err != nil {
		t.Fatalf("UpdateResult failed: %v", err)
	}

	loaded, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded.Status != domain.StatusSuccess {
		t.Errorf("status = %q, want %q", loaded.Status, domain.StatusSuccess)
	}
	if len(loaded.Details) != 1 || loaded.Details[0].MessageID != "msg-9" {
		t.Errorf("details not updated: %+v", loaded.Details)
	}
}

// TestUpdateResultNotFound verifies updating an unknown id fails.
func TestUpdateResultNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateResult(context.Background(), 999, domain.StatusSuccess, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestListPagination verifies page size, ordering and page math.
func TestListPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		j := testJob(base.Add(time.Duration(i) * time.Minute))
		j.Subject = fmt.Sprintf("Subject %d", i)
		if _, err := store.Create(ctx, j); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	first, info, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List page 1 failed: %v", err)
	}
	if len(first) != 10 {
		t.Errorf("page 1 length = %d, want 10", len(first))
	}
	if info.Total != 15 || info.TotalPages != 2 {
		t.Errorf("page info = %+v, want total 15 over 2 pages", info)
	}
	if first[0].Subject != "Subject 14" {
		t.Errorf("expected newest job first, got %q", first[0].Subject)
	}

	second, _, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List page 2 failed: %v", err)
	}
	if len(second) != 5 {
		t.Errorf("page 2 length = %d, want 5", len(second))
	}

	empty, _, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List page 3 failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("page 3 length = %d, want 0", len(empty))
	}
}
