package sqlite

import (
	"database/sql"
	"fmt"

	"potholewatch/internal/model"
)

// ReportRepository implements repository.ReportRepository for SQLite.
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new SQLite report repository.
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Insert archives a compiled report and its dispatch outcome.
func (r *ReportRepository) Insert(report *model.Report) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO reports (session_id, filename, filepath, filesize, pages, sections, location, dispatched, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.SessionID, report.Filename, report.FilePath, report.FileSize, report.Pages, report.Sections,
		report.Location, report.Dispatched, report.Message, report.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	return result.LastInsertId()
}

// GetLatest returns the most recent report, or nil when none exists.
func (r *ReportRepository) GetLatest() (*model.Report, error) {
	reports, err := r.GetAll(1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

// GetAll returns reports newest first; limit <= 0 returns all.
func (r *ReportRepository) GetAll(limit int) ([]model.Report, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, session_id, filename, filepath, filesize, pages, sections, location, dispatched, message, created_at
		FROM reports ORDER BY id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var (
			rep     model.Report
			created sql.NullTime
		)
		if err := rows.Scan(&rep.ID, &rep.SessionID, &rep.Filename, &rep.FilePath, &rep.FileSize, &rep.Pages,
			&rep.Sections, &rep.Location, &rep.Dispatched, &rep.Message, &created); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if created.Valid {
			rep.CreatedAt = created.Time
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
