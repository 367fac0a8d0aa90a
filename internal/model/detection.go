package model

import "time"

const (
	// LocationNotFetched marks a record whose count was 0, so resolution was skipped.
	LocationNotFetched = "Not fetched"
	// LocationUnknown marks a record whose resolution was attempted and failed.
	LocationUnknown = "Unknown"
)

// TimestampLayout renders capture times the way the operator's locale shows them.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// DetectionRecord is one successful detector response. Immutable once appended.
type DetectionRecord struct {
	ID           int64     `json:"id,omitempty"`
	SessionID    string    `json:"session_id"`
	Image        string    `json:"image"` // data URI, directly displayable
	Timestamp    string    `json:"timestamp"`
	CapturedAt   time.Time `json:"captured_at"`
	PotholeCount int       `json:"pothole_count"`
	Location     string    `json:"location"`
}

// HasFinding reports whether the record counts towards a report.
func (r DetectionRecord) HasFinding() bool {
	return r.PotholeCount > 0
}

// DetectionFilter narrows archived detections.
type DetectionFilter struct {
	SessionID    string
	FindingsOnly bool
	Limit        int
	Offset       int
}
