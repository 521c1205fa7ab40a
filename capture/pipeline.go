// Package capture renders a page in an isolated headless browser and
// persists the rendered document.
//
// A capture runs four stages in a fixed order, each blocking on the one
// before it: launch a browser session, open a page and navigate it, extract
// the serialised DOM, write the snapshot. A capture may also write a second,
// accessibility-fixed snapshot after the first. The session and page are released
// on every exit path.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/pagesnap/audit"
	"github.com/use-agent/pagesnap/cleaner"
	"github.com/use-agent/pagesnap/config"
	"github.com/use-agent/pagesnap/models"
	"github.com/use-agent/pagesnap/snapshot"
)

// Pipeline runs captures. It holds no per-capture state, so one Pipeline
// may serve many sequential or concurrent invocations, each with its own
// browser session.
type Pipeline struct {
	browserCfg config.BrowserConfig
	captureCfg config.CaptureConfig
	writer     *snapshot.Writer
	launch     Launcher
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLauncher replaces the browser launcher.
func WithLauncher(l Launcher) PipelineOption {
	return func(p *Pipeline) { p.launch = l }
}

// WithLogger sets the logger used for stage progress.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline that launches browsers with browserCfg
// and writes through writer.
func NewPipeline(browserCfg config.BrowserConfig, captureCfg config.CaptureConfig, writer *snapshot.Writer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		browserCfg: browserCfg,
		captureCfg: captureCfg,
		writer:     writer,
		launch:     LaunchBrowser,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		p.writer = snapshot.NewWriter(nil, snapshot.WithCreateDirs(captureCfg.CreateDirs))
	}
	return p
}

// Capture renders req.URL and writes the snapshot.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Validate   – everything checkable without a browser
//  2. Launch     – one browser session, closed on return
//  3. Open       – one page, closed before the session
//  4. Navigate   – bounded by the navigation timeout, includes WaitFor
//  5. Extract    – live DOM serialisation
//  6. Render     – selector, exclude and format
//  7. Write      – atomic replace of the target file
//  8. Fix        – optional accessibility fixes, written beside the snapshot
//
// Any failure ends the capture; later stages do not run. A failed Fix
// leaves the stage 7 snapshot in place.
func (p *Pipeline) Capture(ctx context.Context, req *models.CaptureRequest) (*Result, error) {
	start := time.Now()
	if req.Wait == "" {
		req.Wait = p.captureCfg.WaitStrategy
	}
	req.Defaults()

	// ── 1. Validate ───────────────────────────────────────────────────
	if strings.TrimSpace(req.URL) == "" {
		return nil, models.NewCaptureError(models.ErrCodeInvalidInput, "target address is required", nil)
	}
	switch req.Wait {
	case models.WaitLoad, models.WaitDOMStable, models.WaitRequestIdle:
	default:
		return nil, models.NewCaptureError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown wait strategy %q", req.Wait),
			nil,
		)
	}
	if req.WaitFor != "" {
		if err := cleaner.ValidSelector(req.WaitFor); err != nil {
			return nil, err
		}
	}
	renderOpts := cleaner.Options{
		Format:   req.Format,
		Selector: req.Selector,
		Exclude:  req.Exclude,
	}
	if err := cleaner.Validate(renderOpts); err != nil {
		return nil, err
	}
	auditOpts := audit.Options{Lang: req.Lang}
	if req.Fix {
		if req.Format != models.FormatHTML {
			return nil, models.NewCaptureError(
				models.ErrCodeInvalidInput,
				fmt.Sprintf("fix needs html output, got format %q", req.Format),
				nil,
			)
		}
		if err := audit.Validate(auditOpts); err != nil {
			return nil, err
		}
	}
	name := req.Name
	if name == "" {
		name = p.captureCfg.FileName
	}
	path, err := snapshot.Path(req.OutputDir, name)
	if err != nil {
		return nil, err
	}
	var fixedPath string
	if req.Fix {
		if fixedPath, err = snapshot.Path(req.OutputDir, audit.FixedName(name)); err != nil {
			return nil, err
		}
	}

	log := p.logger.With("url", req.URL, "path", path)
	res := &Result{Path: path, Format: req.Format}

	// ── 2. Launch ─────────────────────────────────────────────────────
	stageStart := time.Now()
	session, err := p.launch(ctx, p.browserCfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Debug("browser close reported an error", "error", closeErr)
		}
	}()
	res.Launch = time.Since(stageStart)
	log.Debug("browser session ready", "ms", res.Launch.Milliseconds())

	// ── 3. Open ───────────────────────────────────────────────────────
	page, err := session.Open(ctx, PageOptions{
		Stealth:              req.Stealth,
		Headers:              req.Headers,
		BlockedResourceTypes: p.captureCfg.BlockedResourceTypes,
		BlockAds:             req.BlockAds,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.Debug("page close reported an error", "error", closeErr)
		}
	}()

	// ── 4. Navigate ───────────────────────────────────────────────────
	timeout := p.captureCfg.NavigationTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}
	stageStart = time.Now()
	nav, err := p.navigate(ctx, page, req, timeout)
	if err != nil {
		return nil, err
	}
	res.Navigation = time.Since(stageStart)
	res.StatusCode = nav.StatusCode
	res.FinalURL = nav.FinalURL
	res.Title = nav.Title
	log.Debug("navigation complete",
		"status", nav.StatusCode,
		"finalURL", nav.FinalURL,
		"ms", res.Navigation.Milliseconds(),
	)

	// ── 5. Extract ────────────────────────────────────────────────────
	stageStart = time.Now()
	markup, err := page.Extract(ctx)
	if err != nil {
		return nil, err
	}
	res.Extraction = time.Since(stageStart)
	res.CapturedAt = time.Now()
	if res.Title == "" {
		res.Title = cleaner.Title(markup)
	}

	// ── 6. Render ─────────────────────────────────────────────────────
	content, err := cleaner.Render(markup, res.FinalURL, renderOpts)
	if err != nil {
		return nil, err
	}

	// ── 7. Write ──────────────────────────────────────────────────────
	stageStart = time.Now()
	if err := p.writer.Write(path, content); err != nil {
		return nil, err
	}
	res.Write = time.Since(stageStart)
	res.Content = content
	res.Bytes = len(content)
	res.SHA256 = snapshot.Digest(content)

	// ── 8. Fix ────────────────────────────────────────────────────────
	if req.Fix {
		fixed, err := audit.Fix(content, auditOpts)
		if err != nil {
			return nil, err
		}
		if err := p.writer.Write(fixedPath, fixed.Markup); err != nil {
			return nil, err
		}
		res.FixedPath = fixedPath
		res.Findings = fixed.Findings
		log.Debug("fixed snapshot written", "fixedPath", fixedPath, "findings", len(fixed.Findings))
	}
	res.Total = time.Since(start)

	log.Info("snapshot written",
		"bytes", res.Bytes,
		"sha256", res.SHA256,
		"ms", res.Total.Milliseconds(),
	)
	return res, nil
}

// navigate loads the page and, when asked, waits for the WaitFor element,
// all under one deadline.
func (p *Pipeline) navigate(ctx context.Context, page PageContext, req *models.CaptureRequest, timeout time.Duration) (*Navigation, error) {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	nav, err := page.Navigate(navCtx, req.URL, req.Wait)
	if err != nil {
		return nil, err
	}
	if req.WaitFor != "" {
		if err := page.WaitFor(navCtx, req.WaitFor); err != nil {
			return nil, err
		}
	}
	return nav, nil
}
