package dto

// DetectResponse is the body of POST /api/detect-upload.
type DetectResponse struct {
	OK         bool    `json:"ok"`
	Label      string  `json:"label,omitempty"`
	Result     string  `json:"result,omitempty"`
	Score      float64 `json:"score"`
	PreviewURL string  `json:"preview_url,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// MultiResult is one entry of a POST /api/detect-multi response.
type MultiResult struct {
	Filename string  `json:"filename"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
	Result   string  `json:"result"`
	URL      *string `json:"url"` // null when files were cleaned up
}

// MultiSummary counts results per label.
type MultiSummary struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// MultiResponse is the body of POST /api/detect-multi.
type MultiResponse struct {
	Summary MultiSummary  `json:"summary"`
	Results []MultiResult `json:"results"`
}

// ErrorResponse is returned for request-level failures.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
