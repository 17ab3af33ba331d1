// Package sanitize escapes untrusted text before it is placed into markup.
package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

// Text returns s escaped so that, inserted into HTML, it displays verbatim.
// The string is rendered as a detached text node, so the escaping rules are
// exactly the ones the document renderer applies (<, >, &, ', " and \r).
func Text(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	// Rendering a lone text node only fails if the writer fails.
	_ = html.Render(&b, &html.Node{Type: html.TextNode, Data: s})
	return b.String()
}
