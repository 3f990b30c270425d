package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/handlers"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/middleware"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/services/storage"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(manager *services.Manager, fetcher *storage.Fetcher, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	mux.HandleFunc(storage.URLPrefix, handlers.ServeUploadHandler(manager.GetUploadStore()))

	// Detection endpoints
	mux.HandleFunc("/api/detect-upload", handlers.DetectUploadHandler(manager, fetcher, cfg, logger))
	mux.HandleFunc("/api/detect-multi", handlers.DetectMultiHandler(manager, cfg, logger))
	mux.HandleFunc("/api/live", handlers.LiveWebsocketHandler(manager, logger))

	// History endpoints
	mux.HandleFunc("/api/detections", handlers.ListDetectionsHandler(manager, logger))
	mux.HandleFunc("/api/detections/stats", handlers.DetectionStatsHandler(manager, logger))
	mux.HandleFunc("/api/detections/delete", handlers.DeleteDetectionHandler(manager, logger))
	mux.HandleFunc("/api/detections/clear", handlers.ClearDetectionsHandler(manager, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning", handlers.ShowWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error", handlers.ShowErrorLogsHandler(logger))

	mux.HandleFunc("/logs/info/clear", handlers.ClearLogsHandler(logger, "info.log"))
	mux.HandleFunc("/logs/warning/clear", handlers.ClearLogsHandler(logger, "warning.log"))
	mux.HandleFunc("/logs/error/clear", handlers.ClearLogsHandler(logger, "error.log"))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)

	mux.HandleFunc("/healthz", handlers.HealthHandler(cfg))

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware([]byte(cfg.SessionSecret), mux)
}
