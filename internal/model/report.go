package model

import "time"

// Report is the archived outcome of one compiled and dispatched report.
type Report struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filepath"`
	FileSize   int64     `json:"filesize"`
	Pages      int       `json:"pages"`
	Sections   int       `json:"sections"`
	Location   string    `json:"location"`
	Dispatched bool      `json:"dispatched"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
