package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/pagesnap/models"
	"github.com/ysmood/gson"
)

// Navigation describes the document a page settled on.
type Navigation struct {
	// StatusCode is the HTTP status of the main document, 0 if unknown
	// (e.g. file:// or data: URLs).
	StatusCode int

	// FinalURL is window.location.href after redirects.
	FinalURL string

	// Title is document.title.
	Title string
}

// BrowserPage is the rod-backed PageContext.
type BrowserPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

// statusJS reads the main document status from the Navigation Timing entry.
// It needs no CDP network events, which would conflict with the Fetch
// domain used by the hijack router.
const statusJS = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch(e) {}
	return 0;
}`

// contentJS serialises the doctype followed by the root element.
const contentJS = `() => {
	let out = '';
	if (document.doctype) out = new XMLSerializer().serializeToString(document.doctype);
	if (document.documentElement) out += document.documentElement.outerHTML;
	return out;
}`

// Navigate loads address and waits for the document to finish loading.
//
// Lifecycle:
//
//  1. Idle listener   – request-idle only, MUST be registered before Navigate
//  2. Navigate        – fails fast on net:: errors (DNS, refused, ...)
//  3. WaitLoad        – document.readyState == "complete" (load event)
//  4. Extra wait      – request idle or DOM stable, per strategy
//  5. Status check    – non-2xx main document is a navigation failure
//
// ctx bounds the whole sequence; its deadline surfaces as NAVIGATION_TIMEOUT.
func (bp *BrowserPage) Navigate(ctx context.Context, address string, wait string) (*Navigation, error) {
	p := bp.page.Context(ctx)

	// ── 1. Idle listener ──────────────────────────────────────────────
	// WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests, so fall back to DOM stability when hijacking.
	var waitIdle func()
	if wait == models.WaitRequestIdle {
		if bp.router != nil {
			slog.Debug("request-idle unavailable while blocking resources, using dom-stable")
			wait = models.WaitDOMStable
		} else {
			waitIdle = p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
		}
	}

	// ── 2. Navigate ───────────────────────────────────────────────────
	if err := p.Navigate(address); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}

	// ── 3. Load event ─────────────────────────────────────────────────
	if err := p.WaitLoad(); err != nil {
		return nil, categorizeError(err, "page did not finish loading")
	}

	// ── 4. Strategy-specific settling ─────────────────────────────────
	switch {
	case waitIdle != nil:
		waitIdle()
		if err := ctx.Err(); err != nil {
			return nil, categorizeError(err, "page did not reach network idle")
		}
	case wait == models.WaitDOMStable:
		if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, categorizeError(ctxErr, "page DOM did not stabilise")
			}
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
				"error", err,
			)
		}
	}

	// ── 5. Status check ───────────────────────────────────────────────
	nav := &Navigation{
		StatusCode: evalIntOrZero(p, statusJS),
		FinalURL:   evalStringOrEmpty(p, `() => window.location.href`),
		Title:      evalStringOrEmpty(p, `() => document.title`),
	}
	if nav.FinalURL == "" {
		nav.FinalURL = address
	}
	if err := checkStatus(nav.StatusCode); err != nil {
		return nil, err
	}
	return nav, nil
}

// WaitFor blocks until at least one element matches selector.
func (bp *BrowserPage) WaitFor(ctx context.Context, selector string) error {
	if err := bp.page.Context(ctx).WaitElementsMoreThan(selector, 0); err != nil {
		return categorizeError(err, fmt.Sprintf("element %q did not appear", selector))
	}
	return nil
}

// Extract returns the current serialised state of the document.
func (bp *BrowserPage) Extract(ctx context.Context) (string, error) {
	res, err := bp.page.Context(ctx).Eval(contentJS)
	if err != nil {
		return "", models.NewCaptureError(
			models.ErrCodeExtraction,
			"failed to serialise document",
			err,
		)
	}
	markup := res.Value.Str()
	if markup == "" {
		return "", models.NewCaptureError(
			models.ErrCodeExtraction,
			"document has no root element",
			nil,
		)
	}
	return markup, nil
}

// Close stops the hijack router and closes the page target.
func (bp *BrowserPage) Close() error {
	if bp.router != nil {
		_ = bp.router.Stop()
		bp.router = nil
	}
	return bp.page.Close()
}

// checkStatus rejects non-2xx main documents. Zero means the status is
// unknown and is accepted.
func checkStatus(status int) error {
	if status == 0 || (status >= 200 && status < 300) {
		return nil
	}
	return models.NewCaptureError(
		models.ErrCodeNavigation,
		fmt.Sprintf("target responded with HTTP %d", status),
		nil,
	)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func evalIntOrZero(page *rod.Page, js string) int {
	res, err := page.Eval(js)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw navigation errors into typed CaptureErrors so
// callers can tell timeouts from other failures.
func categorizeError(err error, msg string) *models.CaptureError {
	var ce *models.CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCaptureError(models.ErrCodeNavigationTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCaptureError(models.ErrCodeNavigation, "navigation canceled", err)
	default:
		return models.NewCaptureError(models.ErrCodeNavigation, msg, err)
	}
}
