package storage

import (
	"sync"
	"time"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
)

// DetectionLog is the ordered, append-only record of detector responses.
// It lives for the whole process so it survives stop and restart.
type DetectionLog struct {
	records []model.DetectionRecord
	mu      sync.RWMutex
	logger  *logger.Logger
	repo    repository.DetectionRepository
}

// NewDetectionLog creates an empty log. repo may be nil, in which case
// records are kept in memory only.
func NewDetectionLog(logger *logger.Logger, repo repository.DetectionRepository) *DetectionLog {
	return &DetectionLog{
		records: make([]model.DetectionRecord, 0),
		logger:  logger,
		repo:    repo,
	}
}

// Append adds a record at the end of the log and returns it as stored.
// CapturedAt never goes backwards; Timestamp is derived from it.
func (l *DetectionLog) Append(rec model.DetectionRecord) model.DetectionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = time.Now()
	}
	if n := len(l.records); n > 0 && rec.CapturedAt.Before(l.records[n-1].CapturedAt) {
		rec.CapturedAt = l.records[n-1].CapturedAt
	}
	rec.Timestamp = rec.CapturedAt.Format(model.TimestampLayout)

	if l.repo != nil {
		id, err := l.repo.Insert(&rec)
		if err != nil {
			l.logger.Error("Error archiving detection: %v", err)
		} else {
			rec.ID = id
		}
	}

	l.records = append(l.records, rec)
	l.logger.Info("Log size: %d (potholes in latest frame: %d)", len(l.records), rec.PotholeCount)
	return rec
}

// Records returns a snapshot of the log in append order.
func (l *DetectionLog) Records() []model.DetectionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.DetectionRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Findings returns the records with at least one pothole, in append order.
func (l *DetectionLog) Findings() []model.DetectionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.DetectionRecord, 0)
	for _, rec := range l.records {
		if rec.HasFinding() {
			out = append(out, rec)
		}
	}
	return out
}

// HasFindings reports whether any record has a finding.
func (l *DetectionLog) HasFindings() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, rec := range l.records {
		if rec.HasFinding() {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (l *DetectionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Latest returns the most recent record.
func (l *DetectionLog) Latest() (model.DetectionRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.records) == 0 {
		return model.DetectionRecord{}, false
	}
	return l.records[len(l.records)-1], true
}
