package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum readability TextContent length (in
// characters) accepted before falling back to the whole document's text.
const minContentLength = 50

// ToText returns the readable text of rawHTML.
//
// Mozilla Readability picks the main content. When the source URL does not
// parse, readability fails, or it finds less than minContentLength
// characters, the visible text of the whole document is used instead.
func ToText(rawHTML string, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL, using document text",
			"url", sourceURL, "error", err,
		)
		return stripTags(rawHTML)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed, using document text",
			"url", sourceURL, "error", err,
		)
		return stripTags(rawHTML)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentLength {
		return stripTags(rawHTML)
	}
	return text
}

// stripTags returns the trimmed text of an HTML document, without the
// contents of script, style and noscript elements.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.TrimSpace(doc.Text())
}
