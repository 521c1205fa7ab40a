package models

// Wait strategies accepted by CaptureRequest.Wait.
const (
	WaitLoad        = "load"
	WaitDOMStable   = "dom-stable"
	WaitRequestIdle = "request-idle"
)

// Output formats accepted by CaptureRequest.Format.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// CaptureRequest describes one capture invocation. The CLI builds it from
// arguments and flags; the service binds it from POST /api/v1/capture.
type CaptureRequest struct {
	// URL is the target page to render. Required.
	URL string `json:"url" binding:"required"`

	// OutputDir is the directory the snapshot is written under. Empty means
	// the working directory. Ignored by the service, which uses its own.
	OutputDir string `json:"-"`

	// Name overrides the snapshot file name. Default: "output.html".
	Name string `json:"name,omitempty"`

	// Format controls what is written: "html" (default), "markdown", "text".
	Format string `json:"format,omitempty" binding:"omitempty,oneof=html markdown text"`

	// Selector keeps only the outer HTML of matching elements.
	Selector string `json:"selector,omitempty"`

	// Exclude removes elements matching any of these selectors before writing.
	Exclude []string `json:"exclude,omitempty"`

	// Wait selects the load-completion strategy: "load" (default),
	// "dom-stable" or "request-idle".
	Wait string `json:"wait,omitempty" binding:"omitempty,oneof=load dom-stable request-idle"`

	// WaitFor is a CSS selector that must match before the DOM is
	// extracted. Waiting for it counts against the navigation timeout.
	WaitFor string `json:"wait_for,omitempty"`

	// Timeout is the navigation deadline in seconds. Zero uses the configured default.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=300"`

	// Stealth masks navigator.webdriver and similar automation markers.
	Stealth bool `json:"stealth,omitempty"`

	// Headers are extra request headers sent with every page request.
	Headers map[string]string `json:"headers,omitempty"`

	// BlockAds drops requests to well-known ad and tracking domains.
	BlockAds bool `json:"block_ads,omitempty"`

	// ReturnContent includes the written content in the API response.
	ReturnContent bool `json:"return_content,omitempty"`

	// Fix writes a second snapshot with deterministic accessibility fixes
	// applied, next to the first as "<name>.fixed.html". HTML format only.
	Fix bool `json:"fix,omitempty"`

	// Lang is set on a fixed snapshot whose <html lang> is missing or
	// invalid. Default: "en".
	Lang string `json:"lang,omitempty"`

	// WebhookURL receives a snapshot.saved or snapshot.failed event.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// Defaults applies default values to unset fields.
func (r *CaptureRequest) Defaults() {
	if r.Format == "" {
		r.Format = FormatHTML
	}
	if r.Wait == "" {
		r.Wait = WaitLoad
	}
}

// DiffRequest is the payload for POST /api/v1/diff.
type DiffRequest struct {
	Before string `json:"before"`
	After  string `json:"after"`
}
