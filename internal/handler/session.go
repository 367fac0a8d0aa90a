package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"potholewatch/internal/dto"
	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/service/session"
	"potholewatch/internal/service/video"
)

// SessionController is the part of the session controller the operator drives.
type SessionController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	CheckAPI(ctx context.Context) bool
	Status() string
	Snapshot() session.Snapshot
	Records() []model.DetectionRecord
}

// StartSessionHandler handles POST /api/session/start.
func StartSessionHandler(controller SessionController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := controller.Start(r.Context())
		response := dto.StatusResponse{Status: controller.Status()}

		if err != nil {
			logger.Error("Start session failed: %v", err)
			response.Error = err.Error()
			code := http.StatusInternalServerError
			if errors.Is(err, video.ErrCameraAccess) {
				code = http.StatusServiceUnavailable
			}
			writeJSON(w, code, response, logger)
			return
		}
		writeJSON(w, http.StatusOK, response, logger)
	}
}

// StopSessionHandler handles POST /api/session/stop. It returns once the
// report, if any, has been compiled and dispatched.
func StopSessionHandler(controller SessionController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The report runs to completion even if the operator disconnects.
		err := controller.Stop(context.WithoutCancel(r.Context()))
		response := dto.StatusResponse{Status: controller.Status()}

		if err != nil {
			logger.Error("Stop session reported an error: %v", err)
			response.Error = err.Error()
			writeJSON(w, http.StatusBadGateway, response, logger)
			return
		}
		writeJSON(w, http.StatusOK, response, logger)
	}
}

// SessionStatusHandler handles GET /api/session/status.
func SessionStatusHandler(controller SessionController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := controller.Snapshot()
		writeJSON(w, http.StatusOK, dto.SessionStatus{
			State:     snap.State.String(),
			Status:    snap.Status,
			SessionID: snap.SessionID,
			Records:   snap.Records,
			Findings:  snap.Findings,
			Dropped:   snap.Dropped,
			InFlight:  snap.InFlight,
		}, logger)
	}
}

// SessionDetectionsHandler handles GET /api/session/detections.
func SessionDetectionsHandler(controller SessionController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := controller.Records()
		writeJSON(w, http.StatusOK, dto.DetectionList{Detections: records, Length: len(records)}, logger)
	}
}

// PingHandler handles GET /api/ping.
func PingHandler(controller SessionController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := controller.CheckAPI(r.Context())
		writeJSON(w, http.StatusOK, dto.PingResponse{Connected: connected, Status: controller.Status()}, logger)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
