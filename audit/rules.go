package audit

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pagesnap/models"
	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

// maxTitleLen bounds a derived document title, in runes.
const maxTitleLen = 60

func fixMetaRefresh(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "refresh") {
			return
		}
		out = append(out, finding("meta-refresh", `meta[http-equiv="refresh"]`,
			fmt.Sprintf("removed refresh %q", s.AttrOr("content", ""))))
		s.Remove()
	})
	return out
}

func fixMetaViewport(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find(`meta[name="viewport"]`).Each(func(_ int, s *goquery.Selection) {
		content := s.AttrOr("content", "")
		fixed, changed := scalableViewport(content)
		if !changed {
			return
		}
		s.SetAttr("content", fixed)
		out = append(out, finding("meta-viewport", `meta[name="viewport"]`,
			fmt.Sprintf("content %q changed to %q", content, fixed)))
	})
	return out
}

// scalableViewport drops user-scalable=no and raises maximum-scale to 2.
func scalableViewport(content string) (string, bool) {
	parts := strings.FieldsFunc(content, func(r rune) bool { return r == ',' || r == ';' })
	kept := make([]string, 0, len(parts))
	changed := false
	for _, p := range parts {
		key, val, _ := strings.Cut(p, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "":
			continue
		case "user-scalable":
			if v := strings.ToLower(val); v == "no" || v == "0" {
				changed = true
				continue
			}
		case "maximum-scale":
			if f, err := strconv.ParseFloat(val, 64); err == nil && f < 2 {
				val = "2"
				changed = true
			}
		}
		if val == "" {
			kept = append(kept, key)
		} else {
			kept = append(kept, key+"="+val)
		}
	}
	return strings.Join(kept, ", "), changed
}

func fixHTMLLang(doc *goquery.Document, opts Options) []models.Finding {
	root := doc.Find("html").First()
	if strings.TrimSpace(root.AttrOr("lang", "")) != "" {
		return nil
	}
	root.SetAttr("lang", opts.Lang)
	return []models.Finding{finding("html-lang", "html", fmt.Sprintf("set lang=%q", opts.Lang))}
}

func fixHTMLLangValid(doc *goquery.Document, opts Options) []models.Finding {
	root := doc.Find("html").First()
	lang := strings.TrimSpace(root.AttrOr("lang", ""))
	if lang == "" {
		return nil
	}
	if _, err := language.Parse(lang); err == nil {
		return nil
	}
	root.SetAttr("lang", opts.Lang)
	return []models.Finding{finding("html-lang-valid", "html",
		fmt.Sprintf("replaced invalid lang %q with %q", lang, opts.Lang))}
}

func fixDocumentTitle(doc *goquery.Document, _ Options) []models.Finding {
	title := doc.Find("head title").First()
	if title.Length() > 0 && normalizeSpace(title.Text()) != "" {
		return nil
	}
	text := deriveTitle(doc)
	if title.Length() == 0 {
		doc.Find("head").First().AppendHtml("<title></title>")
		title = doc.Find("head title").First()
	}
	title.SetText(text)
	return []models.Finding{finding("document-title", "title", fmt.Sprintf("set title %q", text))}
}

// deriveTitle takes the first heading, else the first paragraph.
func deriveTitle(doc *goquery.Document) string {
	for _, sel := range []string{"h1", "h2", "h3", "h4", "h5", "h6", "p"} {
		if t := normalizeSpace(doc.Find("body " + sel).First().Text()); t != "" {
			return truncate(t, maxTitleLen)
		}
	}
	return "Untitled document"
}

func fixDuplicateID(doc *goquery.Document, _ Options) []models.Finding {
	used := map[string]bool{}
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		used[s.AttrOr("id", "")] = true
	})

	var out []models.Finding
	seen := map[string]bool{}
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		if id == "" {
			return
		}
		if !seen[id] {
			seen[id] = true
			return
		}
		n := 2
		for used[fmt.Sprintf("%s-%d", id, n)] {
			n++
		}
		renamed := fmt.Sprintf("%s-%d", id, n)
		used[renamed] = true
		s.SetAttr("id", renamed)
		out = append(out, finding("duplicate-id", fmt.Sprintf("%s[id=%q]", goquery.NodeName(s), id),
			fmt.Sprintf("renamed to %q", renamed)))
	})
	return out
}

func fixAccessKeys(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	seen := map[string]bool{}
	doc.Find("[accesskey]").Each(func(_ int, s *goquery.Selection) {
		key := strings.ToLower(strings.TrimSpace(s.AttrOr("accesskey", "")))
		if key == "" {
			return
		}
		if !seen[key] {
			seen[key] = true
			return
		}
		out = append(out, finding("accesskeys", describe(s), fmt.Sprintf("removed duplicate accesskey %q", key)))
		s.RemoveAttr("accesskey")
	})
	return out
}

func fixTabIndex(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find("[tabindex]").Each(func(_ int, s *goquery.Selection) {
		v := strings.TrimSpace(s.AttrOr("tabindex", ""))
		if n, err := strconv.Atoi(v); err != nil || n <= 0 {
			return
		}
		s.SetAttr("tabindex", "0")
		out = append(out, finding("tab-index", describe(s), fmt.Sprintf("tabindex %s changed to 0", v)))
	})
	return out
}

func fixImageAlt(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find("img:not([alt])").Each(func(_ int, s *goquery.Selection) {
		if hasARIALabel(s) {
			return
		}
		alt := normalizeSpace(s.AttrOr("title", ""))
		if alt == "" {
			alt = wordsFromURL(s.AttrOr("src", ""))
		}
		element := describe(s)
		s.SetAttr("alt", alt)
		if alt == "" {
			out = append(out, finding("image-alt", element, "set empty alt, marking the image decorative"))
			return
		}
		out = append(out, finding("image-alt", element, fmt.Sprintf("set alt=%q", alt)))
	})
	return out
}

func fixInputImageAlt(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find(`input[type="image"]:not([alt])`).Each(func(_ int, s *goquery.Selection) {
		if hasLabelAttr(s) {
			return
		}
		alt := firstNonEmpty(
			normalizeSpace(s.AttrOr("value", "")),
			humanize(s.AttrOr("name", "")),
			wordsFromURL(s.AttrOr("src", "")),
			"submit",
		)
		element := describe(s)
		s.SetAttr("alt", alt)
		out = append(out, finding("input-image-alt", element, fmt.Sprintf("set alt=%q", alt)))
	})
	return out
}

func fixFrameTitle(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find("iframe, frame").Each(func(_ int, s *goquery.Selection) {
		if hasLabelAttr(s) {
			return
		}
		title := "Embedded content"
		if u, err := url.Parse(s.AttrOr("src", "")); err == nil && u.Hostname() != "" {
			title += " from " + u.Hostname()
		}
		element := describe(s)
		s.SetAttr("title", title)
		out = append(out, finding("frame-title", element, fmt.Sprintf("set title=%q", title)))
	})
	return out
}

func fixLinkName(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if hasName(s) {
			return
		}
		href := s.AttrOr("href", "")
		label := wordsFromURL(href)
		if label == "" {
			if u, err := url.Parse(href); err == nil {
				label = u.Hostname()
			}
		}
		if label == "" {
			return
		}
		s.SetAttr("aria-label", label)
		out = append(out, finding("link-name", describe(s), fmt.Sprintf("set aria-label=%q", label)))
	})
	return out
}

func fixButtonName(doc *goquery.Document, _ Options) []models.Finding {
	var out []models.Finding
	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		if hasName(s) {
			return
		}
		label := firstNonEmpty(normalizeSpace(s.AttrOr("value", "")), humanize(s.AttrOr("name", "")), humanize(s.AttrOr("id", "")))
		if label == "" {
			return
		}
		s.SetAttr("aria-label", label)
		out = append(out, finding("button-name", describe(s), fmt.Sprintf("set aria-label=%q", label)))
	})
	return out
}

func fixLabel(doc *goquery.Document, _ Options) []models.Finding {
	labelled := map[string]bool{}
	doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		labelled[s.AttrOr("for", "")] = true
	})

	var out []models.Finding
	doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		switch strings.ToLower(s.AttrOr("type", "")) {
		case "hidden", "submit", "reset", "button", "image":
			return
		}
		if hasLabelAttr(s) || s.Closest("label").Length() > 0 {
			return
		}
		if id := s.AttrOr("id", ""); id != "" && labelled[id] {
			return
		}
		label := firstNonEmpty(
			normalizeSpace(s.AttrOr("placeholder", "")),
			humanize(s.AttrOr("name", "")),
			humanize(s.AttrOr("id", "")),
		)
		if label == "" {
			return
		}
		s.SetAttr("aria-label", label)
		out = append(out, finding("label", describe(s), fmt.Sprintf("set aria-label=%q", label)))
	})
	return out
}

func fixDLItem(doc *goquery.Document, _ Options) []models.Finding {
	return wrapOrphans(doc, "dlitem", "dt, dd", "dl", func(parent *goquery.Selection) bool {
		return parent.Is("dl") || (parent.Is("div") && parent.Parent().Is("dl"))
	})
}

func fixListItem(doc *goquery.Document, _ Options) []models.Finding {
	return wrapOrphans(doc, "listitem", "li", "ul", func(parent *goquery.Selection) bool {
		return parent.Is("ul, ol, menu")
	})
}

// wrapOrphans wraps items whose parent is not an allowed container in a new
// wrapper element, one wrapper per parent.
func wrapOrphans(doc *goquery.Document, rule, items, wrapper string, allowed func(*goquery.Selection) bool) []models.Finding {
	var parents []*html.Node
	groups := map[*html.Node][]*html.Node{}
	doc.Find(items).Each(func(_ int, s *goquery.Selection) {
		parent := s.Parent()
		if parent.Length() == 0 || allowed(parent) {
			return
		}
		p := parent.Get(0)
		if _, ok := groups[p]; !ok {
			parents = append(parents, p)
		}
		groups[p] = append(groups[p], s.Get(0))
	})

	out := make([]models.Finding, 0, len(parents))
	for _, p := range parents {
		element := describe(doc.FindNodes(p))
		doc.FindNodes(groups[p]...).WrapAllHtml("<" + wrapper + "></" + wrapper + ">")
		out = append(out, finding(rule, element,
			fmt.Sprintf("wrapped %d orphaned item(s) in <%s>", len(groups[p]), wrapper)))
	}
	return out
}

func finding(rule, element, action string) models.Finding {
	return models.Finding{Rule: rule, Element: element, Action: action}
}

// describe renders a short selector-like label such as img[src="a.png"].
func describe(s *goquery.Selection) string {
	name := goquery.NodeName(s)
	for _, attr := range []string{"id", "name", "src", "href"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return fmt.Sprintf("%s[%s=%q]", name, attr, truncate(v, 80))
		}
	}
	return name
}

// hasLabelAttr reports an author-supplied accessible name.
func hasLabelAttr(s *goquery.Selection) bool {
	return hasARIALabel(s) || strings.TrimSpace(s.AttrOr("title", "")) != ""
}

func hasARIALabel(s *goquery.Selection) bool {
	return strings.TrimSpace(s.AttrOr("aria-label", "")) != "" ||
		strings.TrimSpace(s.AttrOr("aria-labelledby", "")) != ""
}

// hasName reports whether s has visible text, a label attribute or an
// image with alt text inside it.
func hasName(s *goquery.Selection) bool {
	if normalizeSpace(s.Text()) != "" || hasLabelAttr(s) {
		return true
	}
	named := s.Find("img[alt]").FilterFunction(func(_ int, img *goquery.Selection) bool {
		return strings.TrimSpace(img.AttrOr("alt", "")) != ""
	})
	return named.Length() > 0
}

// wordsFromURL turns the last path segment of ref into words:
// "/img/hero-banner_2x.png" becomes "hero banner 2x". Hash-like segments
// yield nothing.
func wordsFromURL(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return humanize(strings.TrimSuffix(base, path.Ext(base)))
}

// humanize splits an identifier on separators and keeps the words that
// are not hex hashes.
func humanize(ident string) string {
	words := strings.FieldsFunc(ident, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '+' || unicode.IsSpace(r)
	})
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if isHexHash(w) || !strings.ContainsFunc(w, unicode.IsLetter) {
			continue
		}
		kept = append(kept, strings.ToLower(w))
	}
	return strings.Join(kept, " ")
}

func isHexHash(w string) bool {
	if len(w) < 12 {
		return false
	}
	for _, r := range w {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes, at a word boundary when there is one.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
