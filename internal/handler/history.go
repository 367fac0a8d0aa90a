package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"potholewatch/internal/dto"
	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
	"potholewatch/internal/service/storage"
)

const (
	defaultHistoryLimit = 24
	defaultReportLimit  = 50
)

// HistoryHandler returns a page of archived detections.
// Query: page, limit, session, findings=true.
func HistoryHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultHistoryLimit)

		findingsOnly, _ := strconv.ParseBool(q.Get("findings"))
		filter := &model.DetectionFilter{
			SessionID:    q.Get("session"),
			FindingsOnly: findingsOnly,
			Limit:        limit,
			Offset:       (page - 1) * limit,
		}

		detections, err := detectionRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying detections from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := detectionRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting detections: %v", err)
			totalCount = len(detections)
		}

		writeJSON(w, http.StatusOK, dto.HistoryPage{
			Detections:  detections,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// ReportsHandler lists archived reports, newest first.
func ReportsHandler(reportRepo repository.ReportRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := atoiDefault(r.URL.Query().Get("limit"), defaultReportLimit)

		reports, err := reportRepo.GetAll(limit)
		if err != nil {
			logger.Error("Error querying reports from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, dto.ReportList{Reports: reports}, logger)
	}
}

// DownloadReportHandler serves the exported report as an attachment.
func DownloadReportHandler(exporter *storage.Exporter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := exporter.Stat(); err != nil {
			logger.Warning("Report download requested but unavailable: %v", err)
			http.Error(w, "No report available", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, storage.ReportFilename))
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, exporter.Path())
	}
}

// RevokeReportHandler removes the exported report.
func RevokeReportHandler(exporter *storage.Exporter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := exporter.Revoke(); err != nil {
			logger.Error("Error revoking report: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
