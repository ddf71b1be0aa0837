package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/medibook-dev/medibook/pkg/schema"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return fs, dir
}

func TestFileStore_AppendAssignsIdentity(t *testing.T) {
	fs, _ := newTestStore(t)

	rec, err := fs.Append(Appointments, schema.NewRecord(map[string]any{
		"name": "Asha",
		"fee":  float64(500),
	}))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Expected an assigned id")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Expected a creation timestamp")
	}
	if rec.Fields["name"] != "Asha" || rec.Fields["fee"] != float64(500) {
		t.Errorf("Fields not preserved: %v", rec.Fields)
	}
}

func TestFileStore_AppendKeepsExistingIdentity(t *testing.T) {
	fs, _ := newTestStore(t)

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec, err := fs.Append(Appointments, schema.Record{
		ID:        "fixed-id",
		CreatedAt: ts,
		Fields:    map[string]any{"name": "Ravi"},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if rec.ID != "fixed-id" {
		t.Errorf("Expected fixed-id, got %s", rec.ID)
	}
	if !rec.CreatedAt.Equal(ts) {
		t.Errorf("Expected original timestamp, got %v", rec.CreatedAt)
	}
}

func TestFileStore_ListSortsNewestFirst(t *testing.T) {
	fs, _ := newTestStore(t)

	older := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	fs.Append(Feedbacks, schema.Record{CreatedAt: older, Fields: map[string]any{"message": "first"}})
	fs.Append(Feedbacks, schema.Record{CreatedAt: newer, Fields: map[string]any{"message": "second"}})

	recs, err := fs.List(Feedbacks)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].Fields["message"] != "second" || recs[1].Fields["message"] != "first" {
		t.Errorf("Wrong order: %v then %v", recs[0].Fields["message"], recs[1].Fields["message"])
	}
}

func TestFileStore_ListEmptyCollection(t *testing.T) {
	fs, _ := newTestStore(t)

	recs, err := fs.List("payments")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected empty slice, got %d records", len(recs))
	}
}

func TestFileStore_UpdateField(t *testing.T) {
	fs, _ := newTestStore(t)

	rec, _ := fs.Append(Appointments, schema.NewRecord(map[string]any{
		"name":   "Asha",
		"fee":    float64(500),
		"status": "pending",
	}))

	updated, err := fs.UpdateField(Appointments, rec.ID, map[string]any{"status": "done"})
	if err != nil {
		t.Fatalf("UpdateField failed: %v", err)
	}
	if updated.Fields["status"] != "done" {
		t.Errorf("Expected status done, got %v", updated.Fields["status"])
	}
	if updated.Fields["name"] != "Asha" || updated.Fields["fee"] != float64(500) {
		t.Errorf("Unrelated fields changed: %v", updated.Fields)
	}
	if !updated.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("Creation timestamp changed: %v vs %v", updated.CreatedAt, rec.CreatedAt)
	}
	if updated.ID != rec.ID {
		t.Errorf("Identity changed: %s vs %s", updated.ID, rec.ID)
	}
}

func TestFileStore_UpdateFieldIgnoresIdentityPatch(t *testing.T) {
	fs, _ := newTestStore(t)

	rec, _ := fs.Append(Appointments, schema.NewRecord(map[string]any{"name": "Asha"}))
	updated, err := fs.UpdateField(Appointments, rec.ID, map[string]any{"id": "hijacked"})
	if err != nil {
		t.Fatalf("UpdateField failed: %v", err)
	}
	if updated.ID != rec.ID {
		t.Errorf("Identity should not be patchable, got %s", updated.ID)
	}
}

func TestFileStore_UpdateFieldNotFound(t *testing.T) {
	fs, _ := newTestStore(t)

	_, err := fs.UpdateField(Appointments, "missing", map[string]any{"status": "done"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_ReplaceAll(t *testing.T) {
	fs, _ := newTestStore(t)

	fs.Append(Appointments, schema.NewRecord(map[string]any{"name": "old"}))
	replacement := []schema.Record{
		{ID: "r1", CreatedAt: time.Now().UTC(), Fields: map[string]any{"name": "new"}},
	}
	if err := fs.ReplaceAll(Appointments, replacement); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	recs, _ := fs.List(Appointments)
	if len(recs) != 1 || recs[0].ID != "r1" {
		t.Errorf("Expected only replacement record, got %v", recs)
	}
}

func TestFileStore_RemoveAll(t *testing.T) {
	fs, _ := newTestStore(t)

	fs.Append(Feedbacks, schema.NewRecord(map[string]any{"message": "hi"}))
	if err := fs.RemoveAll(Feedbacks); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	recs, _ := fs.List(Feedbacks)
	if len(recs) != 0 {
		t.Errorf("Expected empty collection, got %d records", len(recs))
	}
}

func TestFileStore_SurvivesRestart(t *testing.T) {
	fs, dir := newTestStore(t)

	rec, err := fs.Append(Appointments, schema.NewRecord(map[string]any{"name": "Asha", "fee": float64(500)}))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	recs, _ := reopened.List(Appointments)
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record after reopen, got %d", len(recs))
	}
	if recs[0].ID != rec.ID || recs[0].Fields["name"] != "Asha" || recs[0].Fields["fee"] != float64(500) {
		t.Errorf("Record did not survive restart intact: %+v", recs[0])
	}
}

func TestFileStore_AppendFailureLeavesOldContents(t *testing.T) {
	fs, dir := newTestStore(t)

	fs.Append(Appointments, schema.NewRecord(map[string]any{"name": "keep"}))

	// Pull the data directory out from under the store so the next durable
	// write fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("Could not remove data dir: %v", err)
	}

	_, err := fs.Append(Appointments, schema.NewRecord(map[string]any{"name": "lost"}))
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}

	recs, _ := fs.List(Appointments)
	if len(recs) != 1 || recs[0].Fields["name"] != "keep" {
		t.Errorf("Old contents should still be readable, got %v", recs)
	}
}

func TestMigrate(t *testing.T) {
	src, _ := newTestStore(t)
	dst, _ := newTestStore(t)

	src.Append(Appointments, schema.NewRecord(map[string]any{"name": "Asha"}))
	src.Append(Feedbacks, schema.NewRecord(map[string]any{"message": "great"}))
	dst.Append(Appointments, schema.NewRecord(map[string]any{"name": "stale"}))

	if err := Migrate(src, dst, []string{Appointments, Feedbacks}); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	appts, _ := dst.List(Appointments)
	if len(appts) != 1 || appts[0].Fields["name"] != "Asha" {
		t.Errorf("Appointments not migrated: %v", appts)
	}
	fbs, _ := dst.List(Feedbacks)
	if len(fbs) != 1 {
		t.Errorf("Feedbacks not migrated: %v", fbs)
	}
}

func TestFileStore_IgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "appointments.json"), []byte("not json"), 0644); err != nil {
		t.Fatalf("Could not write corrupt file: %v", err)
	}

	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	recs, _ := fs.List(Appointments)
	if len(recs) != 0 {
		t.Errorf("Expected corrupt collection to load empty, got %d", len(recs))
	}
}
