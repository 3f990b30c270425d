package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"deepfake-detector/internal/dto"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/services/ai"
)

// Result texts shown next to a label.
const (
	noFaceText = "face could not be detected"
	errorText  = "image analysis failed"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, logger *logger.Logger) {
	writeJSON(w, status, dto.ErrorResponse{OK: false, Error: message}, logger)
}

// resultText is the human readable line for one outcome. withScore adds the
// score for Real, Fake and Uncertain.
func resultText(label ai.Label, score float64, withScore bool) string {
	switch label {
	case ai.LabelNoFace:
		return noFaceText
	case ai.LabelError:
		return errorText
	}
	if withScore {
		return fmt.Sprintf("%s (score: %.4f)", label, score)
	}
	return string(label)
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
