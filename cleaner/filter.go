package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExcludeElements removes every element matching any of the selectors and
// returns the re-serialised document. Typical use is stripping regions
// that change on every load (clocks, ads, session tokens) before diffing.
//
// If the markup cannot be parsed it is returned unchanged.
func ExcludeElements(html string, selectors []string) string {
	if len(selectors) == 0 {
		return html
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	for _, selector := range selectors {
		doc.Find(selector).Remove()
	}

	result, err := doc.Html()
	if err != nil {
		return html
	}
	return result
}
