package dto

import (
	"time"

	"deepfake-detector/internal/models"
)

// DetectionFilters describe user-provided filters for the history list.
type DetectionFilters struct {
	Label      string
	Origin     string
	DateAfter  time.Time
	DateBefore time.Time
}

// DetectionInfo is a stored detection as shown to clients.
type DetectionInfo struct {
	models.Detection
	URL string `json:"url"`
}

// DetectionsPage is a paginated response payload for the detection history.
type DetectionsPage struct {
	Detections  []DetectionInfo `json:"detections"`
	Length      int             `json:"length"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Limit       int             `json:"pageSize"`
}
