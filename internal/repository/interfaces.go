package repository

import (
	"time"

	"potholewatch/internal/model"
)

// SessionRepository defines the interface for session archive operations.
type SessionRepository interface {
	// Create operations
	Insert(session *model.Session) error

	// Update operations
	MarkStopped(id string, stoppedAt time.Time) error

	// Read operations
	GetByID(id string) (*model.Session, error)
	GetAll() ([]model.Session, error)
}

// DetectionRepository defines the interface for detection archive operations.
type DetectionRepository interface {
	// Create operations
	Insert(rec *model.DetectionRecord) (int64, error)

	// Read operations
	GetBySession(sessionID string) ([]model.DetectionRecord, error)
	GetAll(filter *model.DetectionFilter) ([]model.DetectionRecord, error)
	GetTotalCount(filter *model.DetectionFilter) (int, error)
}

// ReportRepository defines the interface for report archive operations.
type ReportRepository interface {
	// Create operations
	Insert(report *model.Report) (int64, error)

	// Read operations
	GetLatest() (*model.Report, error)
	GetAll(limit int) ([]model.Report, error)
}
