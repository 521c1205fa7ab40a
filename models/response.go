package models

// CaptureResponse is the response for POST /api/v1/capture.
type CaptureResponse struct {
	// Success indicates whether the snapshot was written.
	Success bool `json:"success"`

	// CaptureID identifies this capture in logs and webhook events.
	CaptureID string `json:"capture_id,omitempty"`

	// Path is where the snapshot was written.
	Path string `json:"path,omitempty"`

	// Bytes is the size of the written snapshot.
	Bytes int `json:"bytes,omitempty"`

	// SHA256 is the hex digest of the written snapshot.
	SHA256 string `json:"sha256,omitempty"`

	// StatusCode is the HTTP status of the main document, 0 if unknown.
	StatusCode int `json:"status_code,omitempty"`

	// FinalURL is the document URL after redirects.
	FinalURL string `json:"final_url,omitempty"`

	// Title is the rendered document title.
	Title string `json:"title,omitempty"`

	// FixedPath is where the fixed snapshot was written, if one was requested.
	FixedPath string `json:"fixed_path,omitempty"`

	// Findings lists the accessibility fixes applied to the fixed snapshot.
	Findings []Finding `json:"findings,omitempty"`

	// Content is the written snapshot, present only when requested.
	Content string `json:"content,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each stage.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	LaunchMs     int64 `json:"launch_ms"`
	NavigationMs int64 `json:"navigation_ms"`
	ExtractionMs int64 `json:"extraction_ms"`
	WriteMs      int64 `json:"write_ms"`
}

// DiffResponse is the response for POST /api/v1/diff.
type DiffResponse struct {
	Success            bool         `json:"success"`
	Insertions         int          `json:"insertions"`
	Deletions          int          `json:"deletions"`
	ContentDistance    int          `json:"content_distance"`
	StructuralDistance int          `json:"structural_distance"`
	Markup             string       `json:"markup,omitempty"`
	Error              *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"` // "healthy" or "busy"
	Uptime         string `json:"uptime"`
	ActiveCaptures int    `json:"active_captures"`
	MaxCaptures    int    `json:"max_captures"`
	Version        string `json:"version"`
}

// ErrorResponse is the body of requests rejected before reaching a handler.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
