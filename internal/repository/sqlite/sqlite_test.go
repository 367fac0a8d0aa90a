package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"potholewatch/internal/model"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertSession(t *testing.T, db *DB, id string) {
	t.Helper()
	if err := NewSessionRepository(db).Insert(&model.Session{ID: id, StartedAt: time.Now()}); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	insertSession(t, db, "session-1")

	got, err := repo.GetByID("session-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil || got.StoppedAt != nil {
		t.Fatalf("Expected running session, got %+v", got)
	}

	if err := repo.MarkStopped("session-1", time.Now()); err != nil {
		t.Fatalf("MarkStopped failed: %v", err)
	}
	got, _ = repo.GetByID("session-1")
	if got.StoppedAt == nil {
		t.Error("Expected stopped_at to be set")
	}

	missing, err := repo.GetByID("nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for missing session, got %+v, %v", missing, err)
	}
}

func TestDetectionRepository_InsertAndQuery(t *testing.T) {
	db := setupTestDB(t)
	insertSession(t, db, "s1")
	insertSession(t, db, "s2")
	repo := NewDetectionRepository(db)

	records := []model.DetectionRecord{
		{SessionID: "s1", Image: "data:image/jpeg;base64,AA==", Timestamp: "t1", CapturedAt: time.Now(), PotholeCount: 0, Location: model.LocationNotFetched},
		{SessionID: "s1", Image: "data:image/jpeg;base64,AA==", Timestamp: "t2", CapturedAt: time.Now(), PotholeCount: 2, Location: "Adyar"},
		{SessionID: "s2", Image: "data:image/jpeg;base64,AA==", Timestamp: "t3", CapturedAt: time.Now(), PotholeCount: 1, Location: model.LocationUnknown},
	}
	for i := range records {
		id, err := repo.Insert(&records[i])
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if id <= 0 {
			t.Errorf("Expected positive ID, got %d", id)
		}
	}

	bySession, err := repo.GetBySession("s1")
	if err != nil {
		t.Fatalf("GetBySession failed: %v", err)
	}
	if len(bySession) != 2 || bySession[0].Timestamp != "t1" || bySession[1].Timestamp != "t2" {
		t.Errorf("Expected s1 records in capture order, got %+v", bySession)
	}

	findings, err := repo.GetAll(&model.DetectionFilter{FindingsOnly: true})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(findings) != 2 {
		t.Errorf("Expected 2 findings, got %d", len(findings))
	}
	if findings[0].Timestamp != "t3" {
		t.Errorf("Expected newest first, got %s", findings[0].Timestamp)
	}

	count, err := repo.GetTotalCount(&model.DetectionFilter{SessionID: "s1"})
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 records for s1, got %d", count)
	}

	page, _ := repo.GetAll(&model.DetectionFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].Timestamp != "t2" {
		t.Errorf("Expected second newest on page 2, got %+v", page)
	}
}

func TestReportRepository_Latest(t *testing.T) {
	db := setupTestDB(t)
	insertSession(t, db, "s1")
	repo := NewReportRepository(db)

	latest, err := repo.GetLatest()
	if err != nil || latest != nil {
		t.Fatalf("Expected no report yet, got %+v, %v", latest, err)
	}

	for i, msg := range []string{"first", "second"} {
		_, err := repo.Insert(&model.Report{
			SessionID:  "s1",
			Filename:   "pothole_report.pdf",
			FilePath:   "/tmp/pothole_report.pdf",
			FileSize:   int64(100 + i),
			Pages:      1,
			Sections:   1,
			Location:   "Adyar",
			Dispatched: i == 1,
			Message:    msg,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	latest, err = repo.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.Message != "second" || !latest.Dispatched {
		t.Errorf("Unexpected latest report %+v", latest)
	}

	all, _ := repo.GetAll(0)
	if len(all) != 2 {
		t.Errorf("Expected 2 reports, got %d", len(all))
	}
}
