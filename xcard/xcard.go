// Package xcard implements the XML representation of vCards, xCard, defined
// in RFC 6351.
package xcard

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Namespace is the XML namespace of xCard elements.
const Namespace = "urn:ietf:params:xml:ns:vcard-4.0"

// MIMEType is the MIME type of xCard documents.
const MIMEType = "application/vcard+xml"

// Value is a typed value: an element such as <text> or <uri> and its text.
type Value struct {
	Type string
	Text string
}

// Param is a property parameter.
type Param struct {
	Name   string
	Values []Value
}

// Element is a property element. Values holds the child elements, except
// <parameters>.
type Element struct {
	// Name is the lower-case property name.
	Name   string
	Group  string
	Params []Param
	Values []Value
	// Raw holds elements outside of the xCard namespace as-is.
	Raw *RawXMLValue
}

// Append adds a value element per value. With no values, an empty element is
// added.
func (el *Element) Append(dataType string, values ...string) {
	if len(values) == 0 {
		el.Values = append(el.Values, Value{Type: dataType})
		return
	}
	for _, v := range values {
		el.Values = append(el.Values, Value{Type: dataType, Text: v})
	}
}

// First returns the text of the first value element with one of the provided
// names.
func (el *Element) First(names ...string) (string, bool) {
	for _, v := range el.Values {
		for _, name := range names {
			if strings.EqualFold(v.Type, name) {
				return v.Text, true
			}
		}
	}
	return "", false
}

// All returns the text of all the value elements with the provided name.
// Empty elements are skipped.
func (el *Element) All(name string) []string {
	l := []string{}
	for _, v := range el.Values {
		if strings.EqualFold(v.Type, name) && v.Text != "" {
			l = append(l, v.Text)
		}
	}
	return l
}

type textValue struct {
	Text string `xml:",chardata"`
}

func readValues(d *xml.Decoder) ([]Value, error) {
	var values []Value
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			var v textValue
			if err := d.DecodeElement(&v, &tok); err != nil {
				return nil, err
			}
			values = append(values, Value{Type: strings.ToLower(tok.Name.Local), Text: v.Text})
		case xml.EndElement:
			return values, nil
		}
	}
}

// UnmarshalXML implements xml.Unmarshaler.
func (el *Element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el.Name = strings.ToLower(start.Name.Local)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if tok.Name.Local != "parameters" {
				var v textValue
				if err := d.DecodeElement(&v, &tok); err != nil {
					return err
				}
				el.Values = append(el.Values, Value{Type: strings.ToLower(tok.Name.Local), Text: v.Text})
				continue
			}
			if err := el.readParams(d); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (el *Element) readParams(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			values, err := readValues(d)
			if err != nil {
				return err
			}
			el.Params = append(el.Params, Param{Name: strings.ToLower(tok.Name.Local), Values: values})
		case xml.EndElement:
			return nil
		}
	}
}

func writeText(e *xml.Encoder, name, text string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if text != "" {
		if err := e.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// MarshalXML implements xml.Marshaler.
func (el *Element) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if el.Raw != nil {
		return el.Raw.MarshalXML(e, start)
	}

	start = xml.StartElement{Name: xml.Name{Local: strings.ToLower(el.Name)}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if len(el.Params) > 0 {
		params := xml.StartElement{Name: xml.Name{Local: "parameters"}}
		if err := e.EncodeToken(params); err != nil {
			return err
		}
		for _, p := range el.Params {
			pstart := xml.StartElement{Name: xml.Name{Local: strings.ToLower(p.Name)}}
			if err := e.EncodeToken(pstart); err != nil {
				return err
			}
			for _, v := range p.Values {
				if err := writeText(e, v.Type, v.Text); err != nil {
					return err
				}
			}
			if err := e.EncodeToken(pstart.End()); err != nil {
				return err
			}
		}
		if err := e.EncodeToken(params.End()); err != nil {
			return err
		}
	}

	for _, v := range el.Values {
		if err := writeText(e, v.Type, v.Text); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Card is a <vcard> element.
type Card struct {
	Elements []*Element
}

// UnmarshalXML implements xml.Unmarshaler.
func (card *Card) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return card.readElements(d, "")
}

func (card *Card) readElements(d *xml.Decoder, group string) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if tok.Name.Space != Namespace && tok.Name.Space != "" {
				var raw RawXMLValue
				if err := d.DecodeElement(&raw, &tok); err != nil {
					return err
				}
				card.Elements = append(card.Elements, &Element{
					Name:  strings.ToLower(tok.Name.Local),
					Group: group,
					Raw:   &raw,
				})
				continue
			}

			if tok.Name.Local == "group" {
				name := ""
				for _, attr := range tok.Attr {
					if attr.Name.Local == "name" {
						name = attr.Value
					}
				}
				if err := card.readElements(d, name); err != nil {
					return err
				}
				continue
			}

			el := &Element{Group: group}
			if err := d.DecodeElement(el, &tok); err != nil {
				return err
			}
			card.Elements = append(card.Elements, el)
		case xml.EndElement:
			return nil
		}
	}
}

// MarshalXML implements xml.Marshaler. Elements of the same group are
// wrapped in a <group> element.
func (card *Card) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start = xml.StartElement{Name: xml.Name{Local: "vcard"}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	done := make(map[string]bool)
	for _, el := range card.Elements {
		if el.Group == "" {
			if err := el.MarshalXML(e, xml.StartElement{}); err != nil {
				return err
			}
			continue
		}
		if done[el.Group] {
			continue
		}
		done[el.Group] = true

		group := xml.StartElement{
			Name: xml.Name{Local: "group"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: el.Group}},
		}
		if err := e.EncodeToken(group); err != nil {
			return err
		}
		for _, member := range card.Elements {
			if member.Group != el.Group {
				continue
			}
			if err := member.MarshalXML(e, xml.StartElement{}); err != nil {
				return err
			}
		}
		if err := e.EncodeToken(group.End()); err != nil {
			return err
		}
	}

	return e.EncodeToken(start.End())
}

// Decoder reads <vcard> elements from an xCard document.
type Decoder struct {
	d *xml.Decoder
}

// NewDecoder creates a new Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{d: xml.NewDecoder(r)}
}

// Decode reads the next <vcard> element. It returns io.EOF when there are no
// more.
func (dec *Decoder) Decode() (*Card, error) {
	for {
		tok, err := dec.d.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "vcards":
			if start.Name.Space != Namespace {
				return nil, fmt.Errorf("xcard: unexpected namespace %q", start.Name.Space)
			}
		case "vcard":
			var card Card
			if err := dec.d.DecodeElement(&card, &start); err != nil {
				return nil, err
			}
			return &card, nil
		default:
			if err := dec.d.Skip(); err != nil {
				return nil, err
			}
		}
	}
}

// Encoder writes an xCard document.
type Encoder struct {
	// Indent pretty-prints the document.
	Indent bool

	w       io.Writer
	e       *xml.Encoder
	started bool
}

// NewEncoder creates a new Encoder writing to w. Close must be called to end
// the document.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

var vcardsStart = xml.StartElement{
	Name: xml.Name{Local: "vcards"},
	Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: Namespace}},
}

func (enc *Encoder) start() error {
	if enc.started {
		return nil
	}
	enc.started = true
	if _, err := io.WriteString(enc.w, xml.Header); err != nil {
		return err
	}
	enc.e = xml.NewEncoder(enc.w)
	if enc.Indent {
		enc.e.Indent("", "  ")
	}
	return enc.e.EncodeToken(vcardsStart)
}

// Encode writes a <vcard> element.
func (enc *Encoder) Encode(card *Card) error {
	if err := enc.start(); err != nil {
		return err
	}
	if err := card.MarshalXML(enc.e, xml.StartElement{}); err != nil {
		return err
	}
	return enc.e.Flush()
}

// Close ends the document. It doesn't close the underlying writer.
func (enc *Encoder) Close() error {
	if err := enc.start(); err != nil {
		return err
	}
	if err := enc.e.EncodeToken(vcardsStart.End()); err != nil {
		return err
	}
	return enc.e.Flush()
}
