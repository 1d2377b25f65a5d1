// Package hcard implements the hCard microformat, the HTML representation of
// vCards.
//
// See http://microformats.org/wiki/hcard.
package hcard

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ClassCard is the class of hCard root elements.
const ClassCard = "vcard"

// Element is an HTML element holding a property.
type Element struct {
	Node *html.Node
	// Class is the class the element is read as. An element may hold several
	// properties, e.g. <a class="fn url">. If empty, all of the element's
	// classes are considered.
	Class string
}

// NewElement creates a detached element.
func NewElement(tag atom.Atom, class string) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
	}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return &Element{Node: n}
}

// Tag returns the tag name of the element.
func (el *Element) Tag() string {
	return el.Node.Data
}

// Attr returns the value of an attribute, or an empty string.
func (el *Element) Attr(name string) string {
	for _, a := range el.Node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets an attribute.
func (el *Element) SetAttr(name, val string) {
	for i, a := range el.Node.Attr {
		if strings.EqualFold(a.Key, name) {
			el.Node.Attr[i].Val = val
			return
		}
	}
	el.Node.Attr = append(el.Node.Attr, html.Attribute{Key: name, Val: val})
}

// Classes returns the classes of the element, lower-cased.
func (el *Element) Classes() []string {
	return strings.Fields(strings.ToLower(el.Attr("class")))
}

// HasClass reports whether the element has a class.
func (el *Element) HasClass(class string) bool {
	for _, c := range el.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// Find returns the descendants with a class, in document order. Nested
// hCards are not searched.
func (el *Element) Find(class string) []*Element {
	var l []*Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			child := &Element{Node: c, Class: class}
			if child.HasClass(class) {
				l = append(l, child)
				continue
			}
			if child.HasClass(ClassCard) {
				continue
			}
			walk(c)
		}
	}
	walk(el.Node)
	return l
}

// Values returns the values of the descendants with a class.
func (el *Element) Values(class string) []string {
	var l []string
	for _, child := range el.Find(class) {
		l = append(l, child.Value())
	}
	return l
}

// Types returns the values of the "type" sub-properties, lower-cased.
func (el *Element) Types() []string {
	var l []string
	for _, v := range el.Values("type") {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			l = append(l, v)
		}
	}
	return l
}

var linkClasses = map[string]bool{
	"url":   true,
	"email": true,
	"photo": true,
	"logo":  true,
	"sound": true,
	"key":   true,
	"uid":   true,
	"tel":   true,
}

func (el *Element) isLink() bool {
	if el.Class != "" {
		return linkClasses[el.Class]
	}
	for _, c := range el.Classes() {
		if linkClasses[c] {
			return true
		}
	}
	return false
}

func (el *Element) is(class string) bool {
	if el.Class != "" {
		return el.Class == class
	}
	return el.HasClass(class)
}

// Value returns the value of the property held by the element:
//
//   - the concatenated values of the "value" sub-elements, if any;
//   - the title of an <abbr> element;
//   - the link of <a>, <img>, <object> and <area> elements holding a
//     URL-like property, without "mailto:" and "tel:" schemes for EMAIL and
//     TEL;
//   - the alternative text of an <img>;
//   - the text content otherwise.
func (el *Element) Value() string {
	if values := el.Find("value"); len(values) > 0 {
		var sb strings.Builder
		for _, v := range values {
			sb.WriteString(v.Value())
		}
		return sb.String()
	}

	switch el.Node.DataAtom {
	case atom.Abbr:
		if title := el.Attr("title"); title != "" {
			return title
		}
	case atom.A, atom.Area, atom.Img, atom.Object:
		if el.isLink() {
			if link := el.link(); link != "" {
				return link
			}
		}
		if el.Node.DataAtom == atom.Img {
			return el.Attr("alt")
		}
	}
	return el.Text()
}

func (el *Element) link() string {
	var link string
	switch el.Node.DataAtom {
	case atom.A, atom.Area:
		link = el.Attr("href")
	case atom.Img:
		link = el.Attr("src")
	case atom.Object:
		link = el.Attr("data")
	}

	switch {
	case el.is("email") && hasPrefixFold(link, "mailto:"):
		link = link[len("mailto:"):]
		if i := strings.IndexByte(link, '?'); i >= 0 {
			link = link[:i]
		}
	case el.is("tel") && hasPrefixFold(link, "tel:"):
		link = link[len("tel:"):]
	case el.is("tel"):
		// only tel: links hold a number
		return ""
	}
	return link
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Text returns the text content of the element, with whitespace collapsed.
// <br> elements are turned into newlines. "type" sub-properties are left
// out.
func (el *Element) Text() string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode:
				switch c.DataAtom {
				case atom.Br:
					sb.WriteByte('\n')
				case atom.Script, atom.Style:
					// ignored
				default:
					if (&Element{Node: c}).HasClass("type") {
						continue
					}
					walk(c)
				}
			}
		}
	}
	walk(el.Node)

	lines := strings.Split(sb.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SetText replaces the children of the element with text. Newlines are
// turned into <br> elements.
func (el *Element) SetText(s string) {
	for c := el.Node.FirstChild; c != nil; c = el.Node.FirstChild {
		el.Node.RemoveChild(c)
	}
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			el.Node.AppendChild(&html.Node{Type: html.ElementNode, DataAtom: atom.Br, Data: "br"})
		}
		el.Node.AppendChild(&html.Node{Type: html.TextNode, Data: line})
	}
}

// Prepend inserts a <span> child holding a sub-property before the existing
// children and returns it.
func (el *Element) Prepend(class, text string) *Element {
	child := NewElement(atom.Span, class)
	child.SetText(text)
	first := el.Node.FirstChild
	el.Node.InsertBefore(child.Node, first)
	if first != nil {
		el.Node.InsertBefore(&html.Node{Type: html.TextNode, Data: " "}, first)
	}
	return child
}

// Append adds a <span> child holding a sub-property and returns it.
func (el *Element) Append(class, text string) *Element {
	child := NewElement(atom.Span, class)
	child.SetText(text)
	if el.Node.FirstChild != nil {
		el.Node.AppendChild(&html.Node{Type: html.TextNode, Data: " "})
	}
	el.Node.AppendChild(child.Node)
	return child
}

// AppendChild adds a child element.
func (el *Element) AppendChild(child *Element) {
	el.Node.AppendChild(child.Node)
}

// FindCards returns the hCard root elements of a document, in document order.
// Nested hCards are not returned.
func FindCards(doc *html.Node) []*Element {
	root := &Element{Node: doc}
	if root.Node.Type == html.ElementNode && root.HasClass(ClassCard) {
		return []*Element{root}
	}
	return root.Find(ClassCard)
}

// Properties returns the elements holding properties of an hCard, i.e. the
// descendants having at least one class in names. Descendants of a property
// element aren't searched, except for nested hCards which are returned as
// is.
func Properties(card *Element, names map[string]bool) []*Element {
	var l []*Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			el := &Element{Node: c}
			matched := false
			// TODO: handle the "include" pattern, which references
			// properties held elsewhere in the document

			for _, class := range el.Classes() {
				if names[class] {
					matched = true
					break
				}
			}
			if matched {
				l = append(l, el)
				continue
			}
			if el.HasClass(ClassCard) {
				continue
			}
			walk(c)
		}
	}
	walk(card.Node)
	return l
}
