package vcardio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/emersion/go-vcardio/hcard"
	"github.com/emersion/go-vcardio/value"
)

// hCard is based on vCard 3.0.
const htmlVersion = V30

// htmlClass returns the hCard class of a property.
func htmlClass(name string) string {
	switch name {
	case "CATEGORIES":
		return "category"
	}
	return strings.ToLower(name)
}

// htmlClasses maps hCard classes to property names.
func (r *Registry) htmlClasses() map[string]string {
	classes := make(map[string]string, len(r.byName))
	for name := range r.byName {
		classes[htmlClass(name)] = name
	}
	return classes
}

// ParseHTML reads the hCards of an HTML document, using the built-in
// scribes. Nested hCards are only read as AGENT properties.
func ParseHTML(r io.Reader) ([]*Card, []Warning, error) {
	return defaultRegistry.ParseHTML(r)
}

// ParseHTML reads the hCards of an HTML document.
func (r *Registry) ParseHTML(rd io.Reader) ([]*Card, []Warning, error) {
	doc, err := html.Parse(rd)
	if err != nil {
		return nil, nil, fmt.Errorf("vcardio: failed to parse HTML: %w", err)
	}

	classes := r.htmlClasses()
	var (
		cards    []*Card
		warnings []Warning
	)
	for _, el := range hcard.FindCards(doc) {
		card, w := r.parseHTMLCard(el, classes)
		cards = append(cards, card)
		warnings = append(warnings, w...)
	}
	return cards, warnings, nil
}

func (r *Registry) parseHTMLCard(root *hcard.Element, classes map[string]string) (*Card, []Warning) {
	names := make(map[string]bool, len(classes))
	for class := range classes {
		names[class] = true
	}

	b := newCardBuilder(r, htmlVersion)
	for _, prop := range hcard.Properties(root, names) {
		for _, class := range prop.Classes() {
			name, ok := classes[class]
			if !ok {
				continue
			}
			el := &hcard.Element{Node: prop.Node, Class: class}

			if name == "AGENT" && el.HasClass(hcard.ClassCard) {
				nested, warnings := r.parseHTMLCard(el, classes)
				b.card.Add(&Agent{Card: nested})
				for _, w := range warnings {
					w.Property = name
					b.warnings = append(b.warnings, w)
				}
				continue
			}

			var params Parameters
			for _, t := range el.Types() {
				params.AddType(t)
			}

			s := b.scribeFor(name)
			ctx := &ParseContext{Version: htmlVersion, Name: name}
			res := parseHTML(s, el, &params, ctx)
			b.add(res, "", name, params, value.Escape(el.Value()), "")
		}
	}
	return b.card, b.warnings
}

// WriteHTML renders cards as hCards, using the built-in scribes. Each card
// is a <div class="vcard"> element.
func WriteHTML(w io.Writer, cards ...*Card) error {
	return defaultRegistry.WriteHTML(w, cards...)
}

// WriteHTML renders cards as hCards.
func (r *Registry) WriteHTML(w io.Writer, cards ...*Card) error {
	for _, card := range cards {
		el, err := r.renderHTMLCard(card, hcard.ClassCard)
		if err != nil {
			return err
		}
		if err := html.Render(w, el.Node); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func htmlTag(name string) atom.Atom {
	switch name {
	case "PHOTO", "LOGO":
		return atom.Img
	case "URL", "EMAIL", "SOUND", "KEY":
		return atom.A
	case "BDAY", "REV":
		return atom.Abbr
	}
	return atom.Span
}

func (r *Registry) renderHTMLCard(card *Card, class string) (*hcard.Element, error) {
	root := hcard.NewElement(atom.Div, class)
	for _, p := range card.Properties {
		switch p := p.(type) {
		case *RawProperty, *XML:
			continue
		case *Agent:
			if p.Card != nil && p.URL == "" {
				nested, err := r.renderHTMLCard(p.Card, "agent "+hcard.ClassCard)
				if err != nil {
					return nil, err
				}
				root.AppendChild(nested)
				continue
			}
		}

		s := r.LookupProperty(p)
		if s == nil {
			return nil, fmt.Errorf("vcardio: no scribe registered for %T", p)
		}
		name, err := r.PropertyName(p)
		if err != nil {
			return nil, err
		}

		tag := htmlTag(name)
		el := hcard.NewElement(tag, htmlClass(name))
		err = writeHTML(s, p, el)
		if errors.Is(err, ErrSkipProperty) {
			continue
		} else if err != nil {
			return nil, err
		}

		switch name {
		case "URL":
			el.SetAttr("href", el.Text())
		case "EMAIL":
			el.SetAttr("href", "mailto:"+el.Text())
		case "BDAY", "REV":
			el.SetAttr("title", el.Text())
		}

		if tag != atom.Img {
			types := p.Base().Params.Types()
			for i := len(types) - 1; i >= 0; i-- {
				if strings.EqualFold(types[i], TypePref) {
					continue
				}
				el.Prepend("type", types[i])
			}
		}

		root.Node.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
		root.AppendChild(el)
	}
	root.Node.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
	return root, nil
}
