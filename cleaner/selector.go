package cleaner

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// fragmentSeparator goes between selected fragments, so adjacent matches
// stay separate tokens when two snapshots are diffed.
const fragmentSeparator = "\n"

// SelectFragments keeps the outer HTML of the elements matched by the
// selector group, in document order, one fragment per line. A match nested
// inside another match is dropped because its markup is already part of
// the enclosing fragment.
//
// ok is false when nothing matched; the caller then keeps the document.
func SelectFragments(markup string, group cascadia.SelectorGroup) (fragments string, ok bool, err error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", false, err
	}

	matches := cascadia.QueryAll(doc, group)
	if len(matches) == 0 {
		return "", false, nil
	}

	kept := outermost(matches)
	parts := make([]string, 0, len(kept))
	for _, node := range kept {
		var b strings.Builder
		if err := html.Render(&b, node); err != nil {
			return "", false, err
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, fragmentSeparator), true, nil
}

// outermost filters out nodes that have an ancestor in nodes.
func outermost(nodes []*html.Node) []*html.Node {
	matched := make(map[*html.Node]struct{}, len(nodes))
	for _, n := range nodes {
		matched[n] = struct{}{}
	}

	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		nested := false
		for p := n.Parent; p != nil; p = p.Parent {
			if _, ok := matched[p]; ok {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}
