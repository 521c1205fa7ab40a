// Package cleaner turns captured markup into the form written to disk.
//
// The default format passes the rendered document through byte for byte.
// Selector and exclude filters narrow it first; markdown and text formats
// convert it afterwards.
package cleaner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/pagesnap/models"
)

// Options selects what part of the document is kept and in which format.
type Options struct {
	// Format is "html" (default), "markdown" or "text".
	Format string

	// Selector keeps only the outer HTML of matching elements.
	Selector string

	// Exclude removes elements matching any of these selectors.
	Exclude []string
}

// mdConverter is created once and reused; it is goroutine-safe.
var mdConverter = newMarkdownConverter()

// Validate checks the format and selectors without touching any markup,
// so bad input is rejected before a browser is launched.
func Validate(opts Options) error {
	switch opts.Format {
	case "", models.FormatHTML, models.FormatMarkdown, models.FormatText:
	default:
		return models.NewCaptureError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown format %q", opts.Format),
			nil,
		)
	}
	selectors := append([]string{}, opts.Exclude...)
	if opts.Selector != "" {
		selectors = append(selectors, opts.Selector)
	}
	for _, sel := range selectors {
		if err := ValidSelector(sel); err != nil {
			return err
		}
	}
	return nil
}

// ValidSelector reports INVALID_INPUT when sel is not a CSS selector group.
func ValidSelector(sel string) error {
	if _, err := cascadia.ParseGroup(sel); err != nil {
		return models.NewCaptureError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid selector %q", sel),
			err,
		)
	}
	return nil
}

// Render applies opts to markup. sourceURL resolves relative links in
// markdown output.
func Render(markup, sourceURL string, opts Options) (string, error) {
	if err := Validate(opts); err != nil {
		return "", err
	}

	title := Title(markup)
	out := markup
	if len(opts.Exclude) > 0 {
		out = ExcludeElements(out, opts.Exclude)
	}
	if opts.Selector != "" {
		group, _ := cascadia.ParseGroup(opts.Selector)
		selected, ok, err := SelectFragments(out, group)
		if err != nil {
			return "", models.NewCaptureError(models.ErrCodeExtraction, "selector filtering failed", err)
		}
		if ok {
			out = selected
		}
	}

	switch opts.Format {
	case models.FormatMarkdown:
		md, err := ToMarkdown(mdConverter, out, title, sourceURL)
		if err != nil {
			return "", models.NewCaptureError(models.ErrCodeExtraction, "markdown conversion failed", err)
		}
		return md, nil
	case models.FormatText:
		return ToText(out, sourceURL), nil
	default:
		return out, nil
	}
}

// Title returns the document title, or "" when there is none.
func Title(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
