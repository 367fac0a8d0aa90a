package dto

import "potholewatch/internal/model"

// SessionStatus is the response of GET /api/session/status.
type SessionStatus struct {
	State     string `json:"state"`
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Records   int    `json:"records"`
	Findings  int    `json:"findings"`
	Dropped   int64  `json:"dropped_ticks"`
	InFlight  bool   `json:"capture_in_flight"`
}

// DetectionList is the current in-memory detection log.
type DetectionList struct {
	Detections []model.DetectionRecord `json:"detections"`
	Length     int                     `json:"length"`
}
