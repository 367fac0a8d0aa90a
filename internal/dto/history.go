package dto

import "potholewatch/internal/model"

// HistoryPage is one page of archived detections.
type HistoryPage struct {
	Detections  []model.DetectionRecord `json:"detections"`
	Length      int                     `json:"length"`
	TotalPages  int                     `json:"totalPages"`
	CurrentPage int                     `json:"currentPage"`
	Limit       int                     `json:"limit"`
}

// ReportList holds archived reports, newest first.
type ReportList struct {
	Reports []model.Report `json:"reports"`
}
