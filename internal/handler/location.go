package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"potholewatch/internal/dto"
	"potholewatch/internal/logger"
	"potholewatch/internal/service/location"
)

// LocationResolver names the current location, "Unknown" on failure.
type LocationResolver interface {
	Resolve(ctx context.Context) string
}

// LocationHandler handles GET /api/location. It never touches the detection log.
func LocationHandler(resolver LocationResolver, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.LocationResponse{Location: resolver.Resolve(r.Context())}, logger)
	}
}

// PositionHandler handles POST /api/position, where the operator's browser
// pushes the device coordinates or reports that access was denied.
func PositionHandler(position *location.DevicePosition, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.PositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid position payload", http.StatusBadRequest)
			return
		}

		if req.Denied {
			position.Deny()
			logger.Warning("Operator denied location access")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if req.Latitude == nil || req.Longitude == nil {
			http.Error(w, "latitude and longitude are required", http.StatusBadRequest)
			return
		}
		lat, lng := *req.Latitude, *req.Longitude
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			http.Error(w, "Coordinates out of range", http.StatusBadRequest)
			return
		}

		position.Set(lat, lng)
		logger.Info("Device position updated: %.6f,%.6f", lat, lng)
		w.WriteHeader(http.StatusNoContent)
	}
}
