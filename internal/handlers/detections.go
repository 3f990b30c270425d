package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"deepfake-detector/internal/dto"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/models"
	"deepfake-detector/internal/repository"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/services/storage"
)

// ListDetectionsHandler returns recorded detections, newest first, with
// filtering and pagination. Response is JSON of type dto.DetectionsPage.
func ListDetectionsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		origin := q.Get("origin")
		if origin == "" {
			origin = q.Get("source")
		}
		filters := dto.DetectionFilters{
			Label:      q.Get("label"),
			Origin:     origin,
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
		}

		filter := &models.DetectionFilter{
			Label:     filters.Label,
			Origin:    filters.Origin,
			StartDate: filters.DateAfter,
			EndDate:   filters.DateBefore,
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		repo := manager.GetRepository()
		detections, err := repo.GetAll(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying detections from database: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error", logger)
			return
		}

		totalCount, err := repo.GetTotalCount(r.Context(), filter)
		if err != nil {
			logger.Error("Error counting detections: %v", err)
			totalCount = len(detections)
		}

		infos := make([]dto.DetectionInfo, 0, len(detections))
		for _, det := range detections {
			infos = append(infos, dto.DetectionInfo{Detection: det, URL: storage.URLPrefix + det.Filename})
		}

		writeJSON(w, http.StatusOK, dto.DetectionsPage{
			Detections:  infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// DetectionStatsHandler returns totals per label and origin.
func DetectionStatsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := manager.GetRepository().GetStats(r.Context())
		if err != nil {
			logger.Error("Failed to get stats: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to retrieve stats", logger)
			return
		}
		writeJSON(w, http.StatusOK, stats, logger)
	}
}

// DeleteDetectionHandler removes a detection and its file.
func DeleteDetectionHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "id required", logger)
			return
		}

		det, err := manager.Delete(r.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "detection not found", logger)
			return
		}
		if err != nil {
			logger.Error("Failed to delete detection %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to delete detection", logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "deleted", "id": det.ID, "filename": det.Filename}, logger)
	}
}

// ClearDetectionsHandler deletes every record and stored upload.
func ClearDetectionsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}
		if err := manager.Clear(r.Context()); err != nil {
			logger.Error("Error clearing detections: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to clear detections", logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
