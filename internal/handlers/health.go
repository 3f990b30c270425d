package handlers

import (
	"net/http"
	"path/filepath"

	"deepfake-detector/internal/config"
)

// HealthHandler reports that the server is up and which model it serves.
func HealthHandler(cfg *config.Config) http.HandlerFunc {
	model := filepath.Base(cfg.ModelPath)
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": model}, nil)
	}
}
