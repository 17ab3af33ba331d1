// Package dom is a small mutable HTML document model built on
// golang.org/x/net/html. It exposes the subset of element operations the
// page controller needs: lookup by id, text and markup insertion,
// attributes, class lists and form control values.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sentinel errors for this package.
var (
	ErrParse           = errors.New("dom: parse failed")
	ErrElementNotFound = errors.New("dom: element not found")
)

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// GetElementByID returns the first element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &Element{node: found}
}

// RequireElementByID is GetElementByID returning ErrElementNotFound.
func (d *Document) RequireElementByID(id string) (*Element, error) {
	if el := d.GetElementByID(id); el != nil {
		return el, nil
	}
	return nil, fmt.Errorf("%w: #%s", ErrElementNotFound, id)
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	return &Element{node: &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}}
}

// Body returns the body element.
func (d *Document) Body() *Element {
	els := (&Element{node: d.root}).ElementsByTag("body")
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, mostly for tests and logs.
func (d *Document) String() string {
	var b bytes.Buffer
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
