package dom

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Element wraps a single element node. Wrappers are cheap; two wrappers of
// the same node observe the same state.
type Element struct {
	node *html.Node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// ID returns the id attribute.
func (e *Element) ID() string { return attr(e.node, "id") }

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func (e *Element) SetAttr(key, val string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			e.node.Attr[i].Val = val
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(key string) {
	e.node.Attr = slices.DeleteFunc(e.node.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// ClassName returns the raw class attribute.
func (e *Element) ClassName() string { return attr(e.node, "class") }

// SetClassName replaces the whole class attribute.
func (e *Element) SetClassName(class string) { e.SetAttr("class", class) }

// ClassList returns the individual class tokens.
func (e *Element) ClassList() []string { return strings.Fields(e.ClassName()) }

// HasClass reports whether class is one of the element's classes.
func (e *Element) HasClass(class string) bool {
	return slices.Contains(e.ClassList(), class)
}

// AddClass appends class unless already present.
func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	e.SetClassName(strings.Join(append(e.ClassList(), class), " "))
}

// RemoveClass drops every occurrence of class.
func (e *Element) RemoveClass(class string) {
	list := slices.DeleteFunc(e.ClassList(), func(c string) bool { return c == class })
	e.SetClassName(strings.Join(list, " "))
}

// TextContent returns the concatenated text of all descendants.
func (e *Element) TextContent() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// SetTextContent replaces all children with a single text node.
func (e *Element) SetTextContent(text string) {
	e.removeChildren()
	if text != "" {
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	var b bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return b.String()
		}
	}
	return b.String()
}

// SetInnerHTML parses markup in the context of this element and replaces
// the children with the result.
func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	e.removeChildren()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// AppendChild moves child to the end of this element's children.
func (e *Element) AppendChild(child *Element) {
	if p := child.node.Parent; p != nil {
		p.RemoveChild(child.node)
	}
	e.node.AppendChild(child.node)
}

// Children returns the direct element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{node: c})
		}
	}
	return out
}

// ElementsByClass returns descendants carrying class, in document order.
func (e *Element) ElementsByClass(class string) []*Element {
	return e.collect(func(n *html.Node) bool {
		return slices.Contains(strings.Fields(attr(n, "class")), class)
	})
}

// ElementsByTag returns descendants with the given tag, in document order.
func (e *Element) ElementsByTag(tag string) []*Element {
	tag = strings.ToLower(tag)
	return e.collect(func(n *html.Node) bool { return n.Data == tag })
}

// OuterHTML renders the element itself.
func (e *Element) OuterHTML() string {
	var b bytes.Buffer
	_ = html.Render(&b, e.node)
	return b.String()
}

func (e *Element) collect(match func(*html.Node) bool) []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode && match(n) {
				out = append(out, &Element{node: n})
			}
			return true
		})
	}
	return out
}

func (e *Element) removeChildren() {
	for c := e.node.FirstChild; c != nil; c = e.node.FirstChild {
		e.node.RemoveChild(c)
	}
}
