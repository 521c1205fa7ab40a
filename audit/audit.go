// Package audit applies deterministic accessibility fixes to a captured
// document.
//
// The fixed document is written as a second snapshot, so diffing it against
// the capture shows every change that was made. Each rule inspects the
// parsed document, repairs what it can without outside services and
// reports one Finding per repaired element. A document no rule touches is
// returned byte for byte.
package audit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pagesnap/models"
	"golang.org/x/text/language"
)

// DefaultLang is set on documents that declare no usable language.
const DefaultLang = "en"

// Options configures Fix.
type Options struct {
	// Lang replaces a missing or invalid <html lang>. Default: DefaultLang.
	Lang string

	// Rules restricts Fix to the named rules. Empty runs all of them.
	Rules []string
}

// Result is a fixed document and what was changed in it.
type Result struct {
	Markup   string
	Findings []models.Finding
}

// Changed reports whether any rule modified the document.
func (r *Result) Changed() bool { return len(r.Findings) > 0 }

type rule struct {
	name string
	fix  func(doc *goquery.Document, opts Options) []models.Finding
}

// rules run in this order. Document-level fixes come first so later rules
// see the repaired head.
var rules = []rule{
	{"meta-refresh", fixMetaRefresh},
	{"meta-viewport", fixMetaViewport},
	{"html-lang", fixHTMLLang},
	{"html-lang-valid", fixHTMLLangValid},
	{"document-title", fixDocumentTitle},
	{"duplicate-id", fixDuplicateID},
	{"accesskeys", fixAccessKeys},
	{"tab-index", fixTabIndex},
	{"image-alt", fixImageAlt},
	{"input-image-alt", fixInputImageAlt},
	{"frame-title", fixFrameTitle},
	{"link-name", fixLinkName},
	{"button-name", fixButtonName},
	{"label", fixLabel},
	{"dlitem", fixDLItem},
	{"listitem", fixListItem},
}

// Rules returns the rule names in the order they run.
func Rules() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

// Validate rejects unknown rule names and a Lang that is not a BCP 47 tag.
func Validate(opts Options) error {
	if opts.Lang != "" {
		if _, err := language.Parse(opts.Lang); err != nil {
			return models.NewCaptureError(
				models.ErrCodeInvalidInput,
				fmt.Sprintf("invalid language tag %q", opts.Lang),
				err,
			)
		}
	}
	for _, name := range opts.Rules {
		if !knownRule(name) {
			return models.NewCaptureError(
				models.ErrCodeInvalidInput,
				fmt.Sprintf("unknown audit rule %q", name),
				nil,
			)
		}
	}
	return nil
}

// Fix runs the selected rules over markup.
func Fix(markup string, opts Options) (*Result, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	if opts.Lang == "" {
		opts.Lang = DefaultLang
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, models.NewCaptureError(models.ErrCodeInvalidInput, "cannot parse snapshot markup", err)
	}

	res := &Result{Markup: markup, Findings: []models.Finding{}}
	for _, r := range rules {
		if !selected(r.name, opts.Rules) {
			continue
		}
		res.Findings = append(res.Findings, r.fix(doc, opts)...)
	}
	if !res.Changed() {
		return res, nil
	}

	out, err := doc.Html()
	if err != nil {
		return nil, models.NewCaptureError(models.ErrCodeExtraction, "cannot serialise fixed document", err)
	}
	res.Markup = out
	return res, nil
}

// FixedName derives the name of the fixed snapshot from the captured one:
// "output.html" becomes "output.fixed.html".
func FixedName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".fixed" + ext
}

func knownRule(name string) bool {
	for _, r := range rules {
		if r.name == name {
			return true
		}
	}
	return false
}

func selected(name string, only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, n := range only {
		if n == name {
			return true
		}
	}
	return false
}
