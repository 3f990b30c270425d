package models

import "time"

// Detection is one classified image kept for the history view.
type Detection struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`      // stored name, e.g. 2024-05-01/3f2a....jpg
	OriginalName string    `json:"original_name"` // name or URL supplied by the client
	Origin       string    `json:"origin"`        // upload, url, multi, telegram, cli
	Label        string    `json:"label"`
	Score        float64   `json:"score"`
	FilePath     string    `json:"filepath"`
	FileSize     int64     `json:"filesize"`
	CreatedAt    time.Time `json:"created_at"`
}

// DetectionFilter contains filtering options for querying detections.
type DetectionFilter struct {
	Label     string
	Origin    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// DetectionStats summarizes stored detections.
type DetectionStats struct {
	Total          int            `json:"total"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerLabel       map[string]int `json:"per_label"`
	PerOrigin      map[string]int `json:"per_origin"`
}
