// Package diff compares two snapshots of the same page.
//
// Snapshots are escaped into display text, tokenised into tags, words and
// whitespace, and aligned with a SequenceMatcher. The annotated result marks
// removed runs with <del> and added runs with <ins>, ready to be embedded in
// the report page written by WritePage.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// CSS classes on the annotation elements.
const (
	ClassDeleted  = "diffdel"
	ClassInserted = "diffins"
	ClassModified = "diffmod"
)

// Diff annotates the differences between a and b. Unchanged runs are copied
// through, deletions are wrapped in <del class="diffdel">, insertions in
// <ins class="diffins">, and replaced runs are emitted as a del/ins pair
// with class "diffmod".
func Diff(a, b string) string {
	out, _, _ := annotate(a, b)
	return out
}

// annotate returns the annotated markup and the number of deleted and
// inserted runs. A replaced run counts as one of each.
func annotate(a, b string) (out string, deletions, insertions int) {
	at, bt := tokenize(a), tokenize(b)
	m := difflib.NewMatcherWithJunk(at, bt, false, nil)

	var sb strings.Builder
	sb.Grow(len(a) + len(b))
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			writeTokens(&sb, at[op.I1:op.I2])
		case 'd':
			wrap(&sb, "del", ClassDeleted, at[op.I1:op.I2])
			deletions++
		case 'i':
			wrap(&sb, "ins", ClassInserted, bt[op.J1:op.J2])
			insertions++
		case 'r':
			wrap(&sb, "del", ClassModified, at[op.I1:op.I2])
			wrap(&sb, "ins", ClassModified, bt[op.J1:op.J2])
			deletions++
			insertions++
		}
	}
	return sb.String(), deletions, insertions
}

func wrap(sb *strings.Builder, tag, class string, tokens []string) {
	sb.WriteString("<" + tag + ` class="` + class + `">`)
	writeTokens(sb, tokens)
	sb.WriteString("</" + tag + ">")
}

func writeTokens(sb *strings.Builder, tokens []string) {
	for _, t := range tokens {
		sb.WriteString(t)
	}
}

// tokenize splits s into tags, whitespace runs and words. Concatenating the
// tokens yields s again.
func tokenize(s string) []string {
	var tokens []string
	for i := 0; i < len(s); {
		switch {
		case s[i] == '<':
			end := strings.IndexByte(s[i:], '>')
			if end < 0 {
				return append(tokens, s[i:])
			}
			tokens = append(tokens, s[i:i+end+1])
			i += end + 1
		case isSpace(s[i]):
			j := i
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		default:
			j := i
			for j < len(s) && s[j] != '<' && !isSpace(s[j]) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		}
	}
	return tokens
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
