package fetch

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// extractTitle returns the text of the first <title> element.
func extractTitle(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				if z.Next() == html.TextToken {
					return strings.TrimSpace(string(z.Text()))
				}
				return ""
			}
		}
	}
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// NeedsRendering guesses whether the document is a script shell whose
// content only appears after rendering: little visible body text, an
// empty SPA mount point, or a noscript warning.
func (r *Response) NeedsRendering() bool {
	text := visibleBodyText(r.Body)
	if len(text) < 200 {
		return true
	}

	lower := strings.ToLower(r.Body)
	for _, root := range []string{`<div id="root"></div>`, `<div id="app"></div>`, `<div id="__next"></div>`} {
		if strings.Contains(lower, root) {
			return true
		}
	}
	if reNoscript.MatchString(lower) {
		return true
	}
	return strings.Count(lower, "<script") > 10 && len(text) < 500
}

func visibleBodyText(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var sb strings.Builder
	inBody := false
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if inBody && skip == 0 {
				if text := strings.TrimSpace(string(z.Text())); text != "" {
					sb.WriteString(text)
					sb.WriteByte(' ')
				}
			}
		}
	}
}
