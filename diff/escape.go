package diff

import "strings"

var escaper = strings.NewReplacer("<", "&lt;", ">", "&gt;<br>")

// Escape turns markup into displayable source text: every '<' becomes
// "&lt;" and every '>' becomes "&gt;<br>", so each tag ends a display line.
// Ampersands are left alone.
func Escape(markup string) string {
	return escaper.Replace(markup)
}
