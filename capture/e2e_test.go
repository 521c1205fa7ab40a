//go:build e2e

package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/use-agent/pagesnap/config"
	"github.com/use-agent/pagesnap/models"
	"github.com/use-agent/pagesnap/snapshot"
)

const scriptedPage = `<!DOCTYPE html>
<html><head><title>scripted</title></head>
<body><div id="slot">placeholder</div>
<script>
window.addEventListener("load", function () {
  document.getElementById("slot").textContent = "rendered by script";
});
</script></body></html>`

func newE2EPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := config.Load()
	cfg.Capture.NavigationTimeout = 20 * time.Second
	return NewPipeline(cfg.Browser, cfg.Capture, snapshot.NewWriter(afero.NewOsFs(), snapshot.WithCreateDirs(true)))
}

func TestE2E_CapturesRenderedDOM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(scriptedPage))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "out")
	res, err := newE2EPipeline(t).Capture(context.Background(), &models.CaptureRequest{URL: srv.URL, OutputDir: dir})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if res.Path != filepath.Join(dir, "output.html") {
		t.Errorf("Path = %q", res.Path)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "rendered by script") {
		t.Errorf("snapshot should hold the post-script DOM, got:\n%s", got)
	}
	if strings.Contains(got, ">placeholder<") {
		t.Errorf("snapshot still holds the transport markup")
	}
	if !strings.Contains(strings.ToLower(got), "<html") {
		t.Errorf("snapshot has no <html> root")
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", res.StatusCode)
	}
}

func TestE2E_ErrorStatusWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	_, err := newE2EPipeline(t).Capture(context.Background(), &models.CaptureRequest{URL: srv.URL, OutputDir: dir})
	if !models.IsNavigation(err) {
		t.Fatalf("want navigation error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "output.html")); !os.IsNotExist(statErr) {
		t.Errorf("no snapshot may exist after a failed navigation")
	}
}

func TestE2E_UnreachableAddress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	address := srv.URL
	srv.Close()

	dir := t.TempDir()
	_, err := newE2EPipeline(t).Capture(context.Background(), &models.CaptureRequest{URL: address, OutputDir: dir})
	if !models.IsNavigation(err) {
		t.Fatalf("want navigation error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "output.html")); !os.IsNotExist(statErr) {
		t.Errorf("no snapshot may exist after a failed navigation")
	}
}

func TestE2E_WaitForLateElement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><script>
setTimeout(function () {
  var el = document.createElement("section");
  el.id = "late";
  el.textContent = "arrived";
  document.body.appendChild(el);
}, 500);
</script></body></html>`))
	}))
	defer srv.Close()

	res, err := newE2EPipeline(t).Capture(context.Background(), &models.CaptureRequest{
		URL:       srv.URL,
		OutputDir: t.TempDir(),
		WaitFor:   "#late",
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !strings.Contains(res.Content, `<section id="late">arrived</section>`) {
		t.Errorf("late element missing from snapshot:\n%s", res.Content)
	}
}
