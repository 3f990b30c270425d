package handlers

import (
	"net/http"
	"os"
	"strings"

	"deepfake-detector/internal/services/storage"
)

// ServeUploadHandler serves stored uploads under storage.URLPrefix.
func ServeUploadHandler(store *storage.UploadStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath, err := store.Resolve(strings.TrimPrefix(r.URL.Path, storage.URLPrefix))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		info, err := os.Stat(filePath)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}
