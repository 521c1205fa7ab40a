package capture

import (
	"time"

	"github.com/use-agent/pagesnap/models"
)

// Result describes a written snapshot.
type Result struct {
	// Path is where the snapshot was written.
	Path string

	// Bytes is the size of the written snapshot.
	Bytes int

	// SHA256 is the hex digest of the written snapshot.
	SHA256 string

	// Content is the written snapshot.
	Content string

	// Format is the output format that was written.
	Format string

	// FixedPath is where the fixed snapshot was written. Empty unless
	// the request asked for one.
	FixedPath string

	// Findings lists the fixes applied to the fixed snapshot.
	Findings []models.Finding

	// StatusCode is the HTTP status of the main document, 0 if unknown.
	StatusCode int

	// FinalURL is the document URL after redirects.
	FinalURL string

	// Title is the rendered document title.
	Title string

	// CapturedAt is when extraction completed.
	CapturedAt time.Time

	// Stage durations.
	Launch     time.Duration
	Navigation time.Duration
	Extraction time.Duration
	Write      time.Duration
	Total      time.Duration
}
