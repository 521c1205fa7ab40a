package diff

import (
	"html/template"
	"io"
	"time"
)

// Report is the comparison of two snapshots.
type Report struct {
	// Markup is the annotated, escaped source of both snapshots.
	Markup string

	// Deletions and Insertions count changed runs, not characters.
	Deletions  int
	Insertions int

	// ContentDistance and StructuralDistance are SimHash Hamming
	// distances in 0..64.
	ContentDistance    int
	StructuralDistance int
}

// Changed reports whether any run differs.
func (r *Report) Changed() bool {
	return r.Deletions > 0 || r.Insertions > 0
}

// Compare escapes both snapshots, annotates their differences and
// measures how far apart their text and structure are.
func Compare(before, after string) *Report {
	markup, deletions, insertions := annotate(Escape(before), Escape(after))
	return &Report{
		Markup:             markup,
		Deletions:          deletions,
		Insertions:         insertions,
		ContentDistance:    ContentDistance(before, after),
		StructuralDistance: StructuralDistance(before, after),
	}
}

var pageTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Before}} vs {{.After}}</title>
<style>
body { font-family: monospace; margin: 2em; }
ins { text-decoration: none; }
del.diffdel, del.diffmod { background: #fdd; color: #900; }
ins.diffins, ins.diffmod { background: #dfd; color: #060; }
#summary { margin-bottom: 1.5em; font-family: sans-serif; }
</style>
</head>
<body>
<div id="summary">
<strong>{{.Before}}</strong> &rarr; <strong>{{.After}}</strong><br>
{{.Report.Deletions}} deletions, {{.Report.Insertions}} insertions,
content distance {{.Report.ContentDistance}}/64,
structural distance {{.Report.StructuralDistance}}/64.
Generated {{.Generated}}.
</div>
<div id="output">{{.Markup}}</div>
</body>
</html>
`))

// WritePage renders r as a standalone HTML page. beforeName and afterName
// label the two snapshots.
func WritePage(w io.Writer, r *Report, beforeName, afterName string) error {
	return pageTmpl.Execute(w, struct {
		Before, After string
		Report        *Report
		Markup        template.HTML
		Generated     string
	}{
		Before: beforeName,
		After:  afterName,
		Report: r,
		// Markup is already escaped by Compare; only annotation tags are live.
		Markup:    template.HTML(r.Markup),
		Generated: time.Now().UTC().Format(time.RFC3339),
	})
}
