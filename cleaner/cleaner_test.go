package cleaner

import (
	"strings"
	"testing"

	"github.com/use-agent/pagesnap/models"
)

const page = `<!DOCTYPE html><html><head><title> Snapshot Page </title><script>boot()</script></head>` +
	`<body><div id="clock">12:00:01</div><main><h1>Hello</h1><p>World</p></main>` +
	`<aside class="ad">buy now</aside></body></html>`

func TestRender_HTMLPassThrough(t *testing.T) {
	got, err := Render(page, "https://example.test/", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != page {
		t.Errorf("html format must not modify markup:\n got %q\nwant %q", got, page)
	}
}

func TestRender_Exclude(t *testing.T) {
	got, err := Render(page, "https://example.test/", Options{Exclude: []string{"#clock", ".ad"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, gone := range []string{"12:00:01", "buy now"} {
		if strings.Contains(got, gone) {
			t.Errorf("excluded content %q still present: %s", gone, got)
		}
	}
	if !strings.Contains(got, "<h1>Hello</h1>") {
		t.Errorf("main content lost: %s", got)
	}
	if !strings.HasPrefix(strings.ToLower(got), "<!doctype html>") {
		t.Errorf("doctype should survive re-serialisation: %s", got)
	}
}

func TestRender_Selector(t *testing.T) {
	got, err := Render(page, "https://example.test/", Options{Selector: "main"})
	if err != nil {
		t.Fatal(err)
	}
	want := "<main><h1>Hello</h1><p>World</p></main>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRender_SelectorNoMatchKeepsDocument(t *testing.T) {
	got, err := Render(page, "https://example.test/", Options{Selector: "article"})
	if err != nil {
		t.Fatal(err)
	}
	if got != page {
		t.Errorf("unmatched selector should keep the whole document")
	}
}

func TestRender_Markdown(t *testing.T) {
	got, err := Render(page, "https://example.test/", Options{Format: models.FormatMarkdown, Selector: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "# Hello") || !strings.Contains(got, "World") {
		t.Errorf("unexpected markdown: %q", got)
	}
}

func TestRender_Text(t *testing.T) {
	got, err := Render(page, "https://example.test/", Options{Format: models.FormatText})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "World") {
		t.Errorf("text should contain body text: %q", got)
	}
	if strings.Contains(got, "boot()") || strings.Contains(got, "<") {
		t.Errorf("text should contain neither scripts nor tags: %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", Options{}, false},
		{"markdown", Options{Format: "markdown"}, false},
		{"unknown format", Options{Format: "pdf"}, true},
		{"bad selector", Options{Selector: "div[["}, true},
		{"bad exclude", Options{Exclude: []string{"#ok", ">>"}}, true},
		{"selector group", Options{Selector: "main, article"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.opts)
			if tt.wantErr && models.CodeOf(err) != models.ErrCodeInvalidInput {
				t.Errorf("want INVALID_INPUT, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	if got := Title(page); got != "Snapshot Page" {
		t.Errorf("Title() = %q", got)
	}
	if got := Title("<p>no title</p>"); got != "" {
		t.Errorf("Title() = %q, want empty", got)
	}
}

func TestRender_SelectorSeparatesFragments(t *testing.T) {
	markup := `<html><body><div class="card"><p>one</p><div class="card">inner</div></div>` +
		`<div class="card">two</div></body></html>`

	got, err := Render(markup, "https://example.test/", Options{Selector: ".card"})
	if err != nil {
		t.Fatal(err)
	}
	want := `<div class="card"><p>one</p><div class="card">inner</div></div>` + "\n" + `<div class="card">two</div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRender_MarkdownKeepsTitle(t *testing.T) {
	got, err := Render(page, "https://example.test/", Options{Format: models.FormatMarkdown, Selector: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "---\ntitle: \"Snapshot Page\"\n---\n\n# Hello") {
		t.Errorf("title front matter missing: %q", got)
	}
}

func TestRender_MarkdownLinks(t *testing.T) {
	markup := `<html><body><p><a href="/docs">Docs</a> and <a href="">bare text</a></p></body></html>`
	got, err := Render(markup, "https://example.test/", Options{Format: models.FormatMarkdown})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "[Docs](https://example.test/docs)") {
		t.Errorf("relative link not resolved: %q", got)
	}
	if !strings.Contains(got, "bare text") || strings.Contains(got, "[bare text]") {
		t.Errorf("link without target should render as text: %q", got)
	}
}
