package sqlite

import (
	"fmt"

	"potholewatch/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert archives a detection record.
func (r *DetectionRepository) Insert(rec *model.DetectionRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO detections (session_id, captured_at, timestamp, pothole_count, location, image)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.CapturedAt, rec.Timestamp, rec.PotholeCount, rec.Location, rec.Image)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	return result.LastInsertId()
}

// GetBySession retrieves all detections of a session in capture order.
func (r *DetectionRepository) GetBySession(sessionID string) ([]model.DetectionRecord, error) {
	return r.query(`
		SELECT id, session_id, captured_at, timestamp, pothole_count, location, image
		FROM detections WHERE session_id = ? ORDER BY id
	`, sessionID)
}

// GetAll retrieves detections matching the filter, newest first.
func (r *DetectionRepository) GetAll(filter *model.DetectionFilter) ([]model.DetectionRecord, error) {
	where, args := detectionWhere(filter)
	query := `
		SELECT id, session_id, captured_at, timestamp, pothole_count, location, image
		FROM detections` + where + " ORDER BY id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return r.query(query, args...)
}

// GetTotalCount returns the number of detections matching the filter.
func (r *DetectionRepository) GetTotalCount(filter *model.DetectionFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := detectionWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}

func (r *DetectionRepository) query(query string, args ...interface{}) ([]model.DetectionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var records []model.DetectionRecord
	for rows.Next() {
		var rec model.DetectionRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.CapturedAt, &rec.Timestamp, &rec.PotholeCount, &rec.Location, &rec.Image); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func detectionWhere(filter *model.DetectionFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return where, args
	}
	if filter.SessionID != "" {
		where += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.FindingsOnly {
		where += " AND pothole_count > 0"
	}
	return where, args
}
