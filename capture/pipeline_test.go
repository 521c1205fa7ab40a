package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/use-agent/pagesnap/config"
	"github.com/use-agent/pagesnap/models"
	"github.com/use-agent/pagesnap/snapshot"
)

// recorder collects stage events in call order.
type recorder struct {
	events []string
}

func (r *recorder) add(e string) { r.events = append(r.events, e) }

type fakeSession struct {
	rec  *recorder
	page *fakePage
	err  error // returned by Open
	opts PageOptions
}

func (s *fakeSession) Open(_ context.Context, opts PageOptions) (PageContext, error) {
	s.rec.add("open")
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func (s *fakeSession) Close() error {
	s.rec.add("session.close")
	return nil
}

type fakePage struct {
	rec        *recorder
	markup     string
	navErr     error
	extractErr error
	blockNav   bool
	waitErr    error
	wait       string
}

func (p *fakePage) Navigate(ctx context.Context, address, wait string) (*Navigation, error) {
	p.rec.add("navigate")
	p.wait = wait
	if p.blockNav {
		<-ctx.Done()
		return nil, categorizeError(ctx.Err(), "navigation to target URL failed")
	}
	if p.navErr != nil {
		return nil, p.navErr
	}
	return &Navigation{StatusCode: 200, FinalURL: address}, nil
}

func (p *fakePage) WaitFor(ctx context.Context, selector string) error {
	p.rec.add("waitfor " + selector)
	if p.waitErr != nil {
		return p.waitErr
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("WaitFor must run under the navigation deadline")
	}
	return nil
}

func (p *fakePage) Extract(context.Context) (string, error) {
	p.rec.add("extract")
	if p.extractErr != nil {
		return "", p.extractErr
	}
	return p.markup, nil
}

func (p *fakePage) Close() error {
	p.rec.add("page.close")
	return nil
}

func newTestPipeline(t *testing.T, fs afero.Fs, session *fakeSession, launchErr error) *Pipeline {
	t.Helper()
	return newConfiguredPipeline(t, fs, session, launchErr, config.CaptureConfig{
		NavigationTimeout: 50 * time.Millisecond,
		WaitStrategy:      models.WaitLoad,
		FileName:          snapshot.DefaultFileName,
	})
}

func newConfiguredPipeline(t *testing.T, fs afero.Fs, session *fakeSession, launchErr error, captureCfg config.CaptureConfig) *Pipeline {
	t.Helper()
	launcher := func(context.Context, config.BrowserConfig) (Session, error) {
		session.rec.add("launch")
		if launchErr != nil {
			return nil, launchErr
		}
		return session, nil
	}
	return NewPipeline(config.BrowserConfig{}, captureCfg, snapshot.NewWriter(fs, snapshot.WithCreateDirs(true)),
		WithLauncher(launcher),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func newFakes(markup string) (*recorder, *fakeSession, *fakePage) {
	rec := &recorder{}
	page := &fakePage{rec: rec, markup: markup}
	return rec, &fakeSession{rec: rec, page: page}, page
}

func TestCapture_WritesRenderedMarkup(t *testing.T) {
	fs := afero.NewMemMapFs()
	markup := "<!DOCTYPE html><html><head><title>Rendered</title></head><body>done</body></html>"
	rec, session, _ := newFakes(markup)
	p := newTestPipeline(t, fs, session, nil)

	res, err := p.Capture(context.Background(), &models.CaptureRequest{
		URL:       "https://example.test/static-page",
		OutputDir: "/out/",
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if res.Path != "/out/output.html" {
		t.Errorf("Path = %q", res.Path)
	}
	got, _ := afero.ReadFile(fs, "/out/output.html")
	if string(got) != markup {
		t.Errorf("file = %q, want %q", got, markup)
	}
	if res.Bytes != len(markup) || res.SHA256 != snapshot.Digest(markup) {
		t.Errorf("unexpected size/digest: %d %s", res.Bytes, res.SHA256)
	}
	if res.Title != "Rendered" {
		t.Errorf("Title = %q", res.Title)
	}

	want := []string{"launch", "open", "navigate", "extract", "page.close", "session.close"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
}

func TestCapture_SecondCaptureReplacesFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	req := func() *models.CaptureRequest {
		return &models.CaptureRequest{URL: "https://example.test/", OutputDir: "/snap"}
	}

	_, first, _ := newFakes("<html><body>" + "first version with a much longer body" + "</body></html>")
	if _, err := newTestPipeline(t, fs, first, nil).Capture(context.Background(), req()); err != nil {
		t.Fatal(err)
	}
	second := "<html><body>second</body></html>"
	_, next, _ := newFakes(second)
	if _, err := newTestPipeline(t, fs, next, nil).Capture(context.Background(), req()); err != nil {
		t.Fatal(err)
	}

	got, _ := afero.ReadFile(fs, "/snap/output.html")
	if string(got) != second {
		t.Errorf("file = %q, want only the second capture", got)
	}
}

func TestCapture_EmptyDirWritesRelativeName(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, session, _ := newFakes("<html></html>")
	res, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{URL: "https://example.test/"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "output.html" {
		t.Errorf("Path = %q, want output.html", res.Path)
	}
}

func TestCapture_NavigationFailureWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	rec, session, page := newFakes("<html></html>")
	page.navErr = categorizeError(errors.New("navigation failed: net::ERR_NAME_NOT_RESOLVED"), "navigation to target URL failed")

	_, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{
		URL:       "https://unreachable.invalid/",
		OutputDir: "/out",
	})
	if !models.IsNavigation(err) {
		t.Fatalf("want navigation error, got %v", err)
	}
	if ok, _ := afero.Exists(fs, "/out/output.html"); ok {
		t.Error("no snapshot may be written after a navigation failure")
	}
	want := []string{"launch", "open", "navigate", "page.close", "session.close"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
}

func TestCapture_NavigationTimeout(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, session, page := newFakes("<html></html>")
	page.blockNav = true

	_, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{URL: "https://slow.test/"})
	if models.CodeOf(err) != models.ErrCodeNavigationTimeout {
		t.Fatalf("want NAVIGATION_TIMEOUT, got %v", err)
	}
}

func TestCapture_LaunchFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	rec, session, _ := newFakes("<html></html>")
	launchErr := models.NewCaptureError(models.ErrCodeLaunch, "failed to launch browser", errors.New("exec: not found"))

	_, err := newTestPipeline(t, fs, session, launchErr).Capture(context.Background(), &models.CaptureRequest{URL: "https://example.test/"})
	if !models.IsLaunch(err) {
		t.Fatalf("want launch error, got %v", err)
	}
	if diff := cmp.Diff([]string{"launch"}, rec.events); diff != "" {
		t.Errorf("no stage may run after launch failure (-want +got):\n%s", diff)
	}
}

func TestCapture_OpenFailureClosesSession(t *testing.T) {
	fs := afero.NewMemMapFs()
	rec, session, _ := newFakes("<html></html>")
	session.err = models.NewCaptureError(models.ErrCodeLaunch, "failed to create page", errors.New("target crashed"))

	_, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{URL: "https://example.test/"})
	if !models.IsLaunch(err) {
		t.Fatalf("want launch error, got %v", err)
	}
	want := []string{"launch", "open", "session.close"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCapture_ExtractionFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, session, page := newFakes("")
	page.extractErr = models.NewCaptureError(models.ErrCodeExtraction, "failed to serialise document", errors.New("target closed"))

	_, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{URL: "https://example.test/", OutputDir: "/out"})
	if !models.IsExtraction(err) {
		t.Fatalf("want extraction error, got %v", err)
	}
	if ok, _ := afero.Exists(fs, "/out/output.html"); ok {
		t.Error("no snapshot may be written after an extraction failure")
	}
}

func TestCapture_WriteFailure(t *testing.T) {
	rec, session, _ := newFakes("<html></html>")
	launcher := func(context.Context, config.BrowserConfig) (Session, error) { return session, nil }
	p := NewPipeline(config.BrowserConfig{}, config.CaptureConfig{NavigationTimeout: time.Second, FileName: "output.html"},
		snapshot.NewWriter(afero.NewOsFs()),
		WithLauncher(launcher),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	dir := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := p.Capture(context.Background(), &models.CaptureRequest{URL: "https://example.test/", OutputDir: dir})
	if !models.IsWrite(err) {
		t.Fatalf("want write error, got %v", err)
	}
	if rec.events[len(rec.events)-1] != "session.close" {
		t.Errorf("session must be closed after write failure, events: %v", rec.events)
	}
}

func TestCapture_InvalidInputNeverLaunches(t *testing.T) {
	tests := []struct {
		name string
		req  models.CaptureRequest
	}{
		{"empty url", models.CaptureRequest{URL: "  "}},
		{"bad name", models.CaptureRequest{URL: "https://example.test/", Name: "../escape.html"}},
		{"bad wait", models.CaptureRequest{URL: "https://example.test/", Wait: "forever"}},
		{"bad format", models.CaptureRequest{URL: "https://example.test/", Format: "pdf"}},
		{"bad selector", models.CaptureRequest{URL: "https://example.test/", Selector: "[["}},
		{"bad wait_for", models.CaptureRequest{URL: "https://example.test/", WaitFor: "div[["}},
		{"fix needs html", models.CaptureRequest{URL: "https://example.test/", Fix: true, Format: models.FormatText}},
		{"fix bad lang", models.CaptureRequest{URL: "https://example.test/", Fix: true, Lang: "not a lang"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, session, _ := newFakes("<html></html>")
			req := tt.req
			_, err := newTestPipeline(t, afero.NewMemMapFs(), session, nil).Capture(context.Background(), &req)
			if models.CodeOf(err) != models.ErrCodeInvalidInput {
				t.Fatalf("want INVALID_INPUT, got %v", err)
			}
			if len(rec.events) != 0 {
				t.Errorf("browser must not be launched, events: %v", rec.events)
			}
		})
	}
}

func TestCapture_CustomNameAndFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, session, _ := newFakes("<html><body><main><h1>Title</h1></main></body></html>")

	res, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{
		URL:       "https://example.test/",
		OutputDir: "/snap",
		Name:      "after.md",
		Format:    models.FormatMarkdown,
		Selector:  "main",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/snap/after.md" {
		t.Errorf("Path = %q", res.Path)
	}
	got, _ := afero.ReadFile(fs, "/snap/after.md")
	if strings.TrimSpace(string(got)) != "# Title" {
		t.Errorf("content = %q, want %q", got, "# Title")
	}
}

func TestCapture_WaitForRunsBeforeExtract(t *testing.T) {
	rec, session, _ := newFakes("<html><body><div id=\"late\"></div></body></html>")
	_, err := newTestPipeline(t, afero.NewMemMapFs(), session, nil).Capture(context.Background(), &models.CaptureRequest{
		URL:     "https://example.test/",
		WaitFor: "#late",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"launch", "open", "navigate", "waitfor #late", "extract", "page.close", "session.close"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
}

func TestCapture_WaitForFailureWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, session, page := newFakes("<html></html>")
	page.waitErr = categorizeError(context.DeadlineExceeded, `element "#never" did not appear`)

	_, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{
		URL:       "https://example.test/",
		OutputDir: "/out",
		WaitFor:   "#never",
	})
	if models.CodeOf(err) != models.ErrCodeNavigationTimeout {
		t.Fatalf("want NAVIGATION_TIMEOUT, got %v", err)
	}
	if ok, _ := afero.Exists(fs, "/out/output.html"); ok {
		t.Error("no snapshot may be written when the awaited element never appears")
	}
}

func TestCapture_WaitStrategy(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		requested  string
		want       string
	}{
		{"configured default", models.WaitDOMStable, "", models.WaitDOMStable},
		{"request overrides config", models.WaitDOMStable, models.WaitRequestIdle, models.WaitRequestIdle},
		{"nothing configured", "", "", models.WaitLoad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, session, page := newFakes("<html></html>")
			p := newConfiguredPipeline(t, afero.NewMemMapFs(), session, nil, config.CaptureConfig{
				NavigationTimeout: time.Second,
				WaitStrategy:      tt.configured,
				FileName:          snapshot.DefaultFileName,
			})
			_, err := p.Capture(context.Background(), &models.CaptureRequest{URL: "https://example.test/", Wait: tt.requested})
			if err != nil {
				t.Fatal(err)
			}
			if page.wait != tt.want {
				t.Errorf("Navigate wait = %q, want %q", page.wait, tt.want)
			}
		})
	}
}

func TestCapture_PageOptions(t *testing.T) {
	tests := []struct {
		name    string
		blocked []string
		req     models.CaptureRequest
		want    PageOptions
	}{
		{
			name: "plain",
			req:  models.CaptureRequest{URL: "https://example.test/"},
			want: PageOptions{},
		},
		{
			name: "stealth and headers",
			req: models.CaptureRequest{
				URL:     "https://example.test/",
				Stealth: true,
				Headers: map[string]string{"Accept-Language": "de-DE"},
			},
			want: PageOptions{Stealth: true, Headers: map[string]string{"Accept-Language": "de-DE"}},
		},
		{
			name:    "blocking",
			blocked: []string{"Image", "Font"},
			req:     models.CaptureRequest{URL: "https://example.test/", BlockAds: true},
			want:    PageOptions{BlockedResourceTypes: []string{"Image", "Font"}, BlockAds: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, session, _ := newFakes("<html></html>")
			p := newConfiguredPipeline(t, afero.NewMemMapFs(), session, nil, config.CaptureConfig{
				NavigationTimeout:    time.Second,
				FileName:             snapshot.DefaultFileName,
				BlockedResourceTypes: tt.blocked,
			})
			req := tt.req
			if _, err := p.Capture(context.Background(), &req); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, session.opts); diff != "" {
				t.Errorf("page options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCapture_FixWritesSecondSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	markup := `<html><head><title>Shop</title></head><body><img src="/img/red-shoes.jpg"></body></html>`
	_, session, _ := newFakes(markup)

	res, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{
		URL:       "https://example.test/",
		OutputDir: "/snap",
		Fix:       true,
		Lang:      "de",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.FixedPath != "/snap/output.fixed.html" {
		t.Errorf("FixedPath = %q", res.FixedPath)
	}

	original, _ := afero.ReadFile(fs, "/snap/output.html")
	if string(original) != markup {
		t.Errorf("captured snapshot must stay untouched, got %q", original)
	}
	fixed, err := afero.ReadFile(fs, "/snap/output.fixed.html")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`<html lang="de">`, `alt="red shoes"`} {
		if !strings.Contains(string(fixed), want) {
			t.Errorf("fixed snapshot missing %q: %s", want, fixed)
		}
	}

	var rules []string
	for _, f := range res.Findings {
		rules = append(rules, f.Rule)
	}
	if diff := cmp.Diff([]string{"html-lang", "image-alt"}, rules); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestCapture_NoFixWritesOneSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, session, _ := newFakes(`<html><body><img src="/a.png"></body></html>`)
	res, err := newTestPipeline(t, fs, session, nil).Capture(context.Background(), &models.CaptureRequest{
		URL:       "https://example.test/",
		OutputDir: "/snap",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.FixedPath != "" || len(res.Findings) != 0 {
		t.Errorf("unexpected fix output: %q %v", res.FixedPath, res.Findings)
	}
	if ok, _ := afero.Exists(fs, "/snap/output.fixed.html"); ok {
		t.Error("fixed snapshot written without being requested")
	}
}
