package route

import (
	"net/http"
	"os"
	"path/filepath"

	"potholewatch/internal/config"
	"potholewatch/internal/handler"
	"potholewatch/internal/logger"
	"potholewatch/internal/middleware"
	"potholewatch/internal/repository"
	"potholewatch/internal/service/location"
	"potholewatch/internal/service/storage"
	"potholewatch/internal/service/websocket"
)

// Dependencies are the services the operator surface drives.
type Dependencies struct {
	Controller    handler.SessionController
	Resolver      handler.LocationResolver
	Position      *location.DevicePosition
	Hub           *websocket.HubService
	Exporter      *storage.Exporter
	DetectionRepo repository.DetectionRepository
	ReportRepo    repository.ReportRepository
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean(path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Session endpoints
	mux.HandleFunc("POST /api/session/start", handler.StartSessionHandler(deps.Controller, logger))
	mux.HandleFunc("POST /api/session/stop", handler.StopSessionHandler(deps.Controller, logger))
	mux.HandleFunc("GET /api/session/status", handler.SessionStatusHandler(deps.Controller, logger))
	mux.HandleFunc("GET /api/session/detections", handler.SessionDetectionsHandler(deps.Controller, logger))
	mux.HandleFunc("GET /api/ping", handler.PingHandler(deps.Controller, logger))

	// Location endpoints
	mux.HandleFunc("GET /api/location", handler.LocationHandler(deps.Resolver, logger))
	mux.HandleFunc("POST /api/position", handler.PositionHandler(deps.Position, logger))

	// Archive and report endpoints
	mux.HandleFunc("GET /api/history", handler.HistoryHandler(deps.DetectionRepo, logger))
	mux.HandleFunc("GET /api/reports", handler.ReportsHandler(deps.ReportRepo, logger))
	mux.HandleFunc("GET /api/report/download", handler.DownloadReportHandler(deps.Exporter, logger))
	mux.HandleFunc("DELETE /api/report/download", handler.RevokeReportHandler(deps.Exporter, logger))

	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Hub, logger))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("POST /auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
