package models

// Finding records one accessibility fix applied to a snapshot.
type Finding struct {
	// Rule names the check that fired, e.g. "image-alt".
	Rule string `json:"rule"`

	// Element is a short CSS-like description of the element that was fixed.
	Element string `json:"element"`

	// Action describes the change that was made.
	Action string `json:"action"`
}

// AuditRequest is the payload for POST /api/v1/audit.
type AuditRequest struct {
	// HTML is the snapshot markup to fix. Required.
	HTML string `json:"html" binding:"required"`

	// Lang is the document language set when <html lang> is missing or
	// invalid. Default: "en".
	Lang string `json:"lang,omitempty"`

	// Rules restricts the fixes to these rule names. Empty runs every rule.
	Rules []string `json:"rules,omitempty"`
}

// AuditResponse is the response for POST /api/v1/audit.
type AuditResponse struct {
	Success  bool         `json:"success"`
	Findings []Finding    `json:"findings"`
	Markup   string       `json:"markup,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
}
