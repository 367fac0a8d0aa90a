package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
)

type fakeDetectionRepo struct {
	inserted []model.DetectionRecord
	err      error
}

func (f *fakeDetectionRepo) Insert(rec *model.DetectionRecord) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, *rec)
	return int64(len(f.inserted)), nil
}

func (f *fakeDetectionRepo) GetBySession(string) ([]model.DetectionRecord, error) { return nil, nil }

func (f *fakeDetectionRepo) GetAll(*model.DetectionFilter) ([]model.DetectionRecord, error) {
	return nil, nil
}

func (f *fakeDetectionRepo) GetTotalCount(*model.DetectionFilter) (int, error) { return 0, nil }

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard)
}

func TestDetectionLog_AppendOrderAndFindings(t *testing.T) {
	repo := &fakeDetectionRepo{}
	log := NewDetectionLog(quietLogger(), repo)

	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	for i, count := range []int{0, 2, 0} {
		log.Append(model.DetectionRecord{
			PotholeCount: count,
			CapturedAt:   base.Add(time.Duration(i) * time.Second),
		})
	}

	if log.Len() != 3 {
		t.Fatalf("Expected 3 records, got %d", log.Len())
	}
	if !log.HasFindings() {
		t.Error("Expected findings")
	}
	findings := log.Findings()
	if len(findings) != 1 || findings[0].PotholeCount != 2 {
		t.Errorf("Unexpected findings %+v", findings)
	}

	records := log.Records()
	if records[0].Timestamp != "3/14/2026, 9:26:53 AM" {
		t.Errorf("Unexpected timestamp %q", records[0].Timestamp)
	}
	if records[1].ID != 2 {
		t.Errorf("Expected archived ID 2, got %d", records[1].ID)
	}
	if len(repo.inserted) != 3 {
		t.Errorf("Expected 3 archived records, got %d", len(repo.inserted))
	}
}

func TestDetectionLog_TimestampsNeverGoBackwards(t *testing.T) {
	log := NewDetectionLog(quietLogger(), nil)

	later := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	log.Append(model.DetectionRecord{CapturedAt: later})
	stored := log.Append(model.DetectionRecord{CapturedAt: later.Add(-time.Minute)})

	if !stored.CapturedAt.Equal(later) {
		t.Errorf("Expected clamped capture time %v, got %v", later, stored.CapturedAt)
	}
}

func TestDetectionLog_ArchiveFailureKeepsRecord(t *testing.T) {
	log := NewDetectionLog(quietLogger(), &fakeDetectionRepo{err: errors.New("disk full")})

	log.Append(model.DetectionRecord{PotholeCount: 1})
	if log.Len() != 1 {
		t.Errorf("Expected record kept in memory, got %d", log.Len())
	}
}

func TestDetectionLog_RecordsIsSnapshot(t *testing.T) {
	log := NewDetectionLog(quietLogger(), nil)
	log.Append(model.DetectionRecord{PotholeCount: 1, Location: "Adyar"})

	records := log.Records()
	records[0].Location = "changed"

	latest, ok := log.Latest()
	if !ok || latest.Location != "Adyar" {
		t.Errorf("Expected log to be unaffected, got %+v", latest)
	}
}

func TestExporter_SaveStatRevoke(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	exporter := NewExporter(dir, quietLogger())

	if _, err := exporter.Stat(); !errors.Is(err, ErrNoExport) {
		t.Fatalf("Expected ErrNoExport, got %v", err)
	}

	path, err := exporter.Save([]byte("%PDF-1.3 first"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Base(path) != ReportFilename {
		t.Errorf("Expected %s, got %s", ReportFilename, path)
	}

	if _, err := exporter.Save([]byte("%PDF-1.3 second")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "%PDF-1.3 second" {
		t.Errorf("Expected latest export to replace previous, got %q", data)
	}

	size, err := exporter.Stat()
	if err != nil || size != int64(len("%PDF-1.3 second")) {
		t.Errorf("Unexpected stat %d, %v", size, err)
	}

	if err := exporter.Revoke(); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := exporter.Revoke(); err != nil {
		t.Errorf("Second revoke should be a no-op, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected export to be removed")
	}
}
