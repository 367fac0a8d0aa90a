package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"potholewatch/internal/model"
)

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert records the start of a session.
func (r *SessionRepository) Insert(session *model.Session) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`
		INSERT INTO sessions (id, started_at) VALUES (?, ?)
	`, session.ID, session.StartedAt); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// MarkStopped records the end of a session.
func (r *SessionRepository) MarkStopped(id string, stoppedAt time.Time) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE sessions SET stopped_at = ? WHERE id = ?`, stoppedAt, id); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// GetByID retrieves a session, or nil when it does not exist.
func (r *SessionRepository) GetByID(id string) (*model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var (
		s       model.Session
		stopped sql.NullTime
	)
	err := r.db.Conn().QueryRow(`SELECT id, started_at, stopped_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.StartedAt, &stopped)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if stopped.Valid {
		s.StoppedAt = &stopped.Time
	}
	return &s, nil
}

// GetAll returns every session, newest first.
func (r *SessionRepository) GetAll() ([]model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT id, started_at, stopped_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var (
			s       model.Session
			stopped sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.StartedAt, &stopped); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if stopped.Valid {
			t := stopped.Time
			s.StoppedAt = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
