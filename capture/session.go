package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pagesnap/config"
	"github.com/use-agent/pagesnap/models"
)

// Session is a running, isolated browser owned by one capture invocation.
type Session interface {
	// Open creates the single page context used by the invocation.
	Open(ctx context.Context, opts PageOptions) (PageContext, error)

	// Close tears the browser down. It is safe to call more than once.
	Close() error
}

// PageContext is one navigable document inside a Session.
type PageContext interface {
	// Navigate loads address and blocks until the document has finished
	// loading according to wait.
	Navigate(ctx context.Context, address string, wait string) (*Navigation, error)

	// WaitFor blocks until an element matching the CSS selector exists.
	WaitFor(ctx context.Context, selector string) error

	// Extract serialises the live document tree.
	Extract(ctx context.Context) (string, error)

	// Close discards the page.
	Close() error
}

// Launcher starts a Session. LaunchBrowser is the production implementation.
type Launcher func(ctx context.Context, cfg config.BrowserConfig) (Session, error)

// PageOptions configures a page before its first navigation.
type PageOptions struct {
	// Stealth injects evasions for automation markers on every new document.
	Stealth bool

	// Headers are sent with every request the page makes.
	Headers map[string]string

	// BlockedResourceTypes are resource types failed by the request hijacker.
	BlockedResourceTypes []string

	// BlockAds fails requests to known ad and tracking domains.
	BlockAds bool
}

// BrowserSession owns a launched Chromium process and its CDP connection.
type BrowserSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser

	closeOnce sync.Once
	closeErr  error
}

// LaunchBrowser starts a headless browser suitable for restricted hosts.
//
// With cfg.NoSandbox the browser runs with both --no-sandbox and
// --disable-setuid-sandbox, so it never needs OS sandboxing privileges.
func LaunchBrowser(ctx context.Context, cfg config.BrowserConfig) (Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.NoSandbox {
		l.Set(flags.Flag("disable-setuid-sandbox"))
	}
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCaptureError(
			models.ErrCodeLaunch,
			"failed to launch browser",
			err,
		)
	}
	slog.Debug("browser launched", "controlURL", controlURL, "pid", l.PID())

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, models.NewCaptureError(
			models.ErrCodeLaunch,
			"failed to connect to browser",
			err,
		)
	}

	return &BrowserSession{launcher: l, browser: browser}, nil
}

// Open creates a blank page and prepares it for navigation. Stealth
// scripts, extra headers and the request hijacker must all be installed
// here, before the first Navigate, to apply to the target document.
func (s *BrowserSession) Open(ctx context.Context, opts PageOptions) (PageContext, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewCaptureError(
			models.ErrCodeLaunch,
			"failed to create page",
			err,
		)
	}
	// Drop the open-time context so later stages can bind their own.
	page = page.Context(context.Background())

	if opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if len(opts.Headers) > 0 {
		if err := (proto.NetworkEnable{}).Call(page); err != nil {
			slog.Warn("failed to enable network domain", "error", err)
		}
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(opts.Headers),
		}).Call(page); err != nil {
			slog.Warn("failed to set extra headers", "error", err)
		}
	}

	router, err := setupHijack(page, opts.BlockedResourceTypes, opts.BlockAds)
	if err != nil {
		slog.Warn("request blocking unavailable, proceeding without it", "error", err)
	}
	return &BrowserPage{page: page, router: router}, nil
}

// Close closes the CDP connection, kills the browser process group and
// removes its temporary profile directory.
func (s *BrowserSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
		slog.Debug("browser closed")
	})
	return s.closeErr
}
