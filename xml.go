package vcardio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-vcardio/value"
	"github.com/emersion/go-vcardio/xcard"
)

// xmlParamType returns the value element used for a parameter in xCard.
func xmlParamType(name string) string {
	switch strings.ToUpper(name) {
	case ParamPref:
		return string(DataTypeInteger)
	case ParamGeo:
		return string(DataTypeURI)
	case ParamLanguage:
		return string(DataTypeLanguageTag)
	}
	return string(DataTypeText)
}

func paramsFromXML(l []xcard.Param) Parameters {
	params := make(Parameters, 0, len(l))
	for _, p := range l {
		values := make([]string, len(p.Values))
		for i, v := range p.Values {
			values[i] = v.Text
		}
		params = append(params, Param{Name: strings.ToUpper(p.Name), Values: values})
	}
	return params
}

func (params Parameters) xmlParams() []xcard.Param {
	l := make([]xcard.Param, 0, len(params))
	for _, p := range params {
		if strings.EqualFold(p.Name, ParamValue) {
			continue
		}
		typ := xmlParamType(p.Name)
		values := make([]xcard.Value, len(p.Values))
		for i, v := range p.Values {
			values[i] = xcard.Value{Type: typ, Text: v}
		}
		l = append(l, xcard.Param{Name: strings.ToLower(p.Name), Values: values})
	}
	return l
}

// XMLDecoder reads vCards from an xCard document.
type XMLDecoder struct {
	// Registry holds the scribes used to parse properties. If nil, the
	// built-in scribes are used.
	Registry *Registry

	d *xcard.Decoder
}

// NewXMLDecoder creates a new XMLDecoder reading from r.
func NewXMLDecoder(r io.Reader) *XMLDecoder {
	return &XMLDecoder{d: xcard.NewDecoder(r)}
}

// Decode parses the next card. It returns io.EOF when there are no more.
//
// Elements outside of the xCard namespace are returned as XML properties.
func (dec *XMLDecoder) Decode() (*Card, []Warning, error) {
	xc, err := dec.d.Decode()
	if err != nil {
		return nil, nil, err
	}

	b := newCardBuilder(dec.Registry, V40)
	for _, el := range xc.Elements {
		if el.Raw != nil {
			b.card.Add(&XML{PropertyBase: PropertyBase{Group: el.Group}, Value: el.Raw.String()})
			continue
		}

		name := strings.ToUpper(el.Name)
		if name == "VERSION" {
			continue
		}

		var (
			raw string
			dt  DataType
		)
		if len(el.Values) > 0 {
			raw = value.Escape(el.Values[0].Text)
			if dt = ParseDataType(el.Values[0].Type); dt == DataTypeUnknown {
				dt = ""
			}
		}

		params := paramsFromXML(el.Params)
		s := b.scribeFor(name)
		ctx := &ParseContext{Version: V40, Name: name}
		res := parseXML(s, el, &params, ctx)
		b.add(res, el.Group, name, params, raw, dt)
	}
	return b.card, b.warnings, nil
}

// XMLEncoder writes vCards to an xCard document. xCard is based on vCard
// 4.0: properties are converted to vCard 4.0 first.
type XMLEncoder struct {
	// Registry holds the scribes used to write properties. If nil, the
	// built-in scribes are used.
	Registry *Registry
	// Indent pretty-prints the document.
	Indent bool
	// OnWarning is called for each property which can't be written.
	OnWarning func(w Warning)

	e *xcard.Encoder
}

// NewXMLEncoder creates a new XMLEncoder writing to w. Close must be called
// to end the document.
func NewXMLEncoder(w io.Writer) *XMLEncoder {
	return &XMLEncoder{e: xcard.NewEncoder(w)}
}

func (enc *XMLEncoder) registry() *Registry {
	if enc.Registry != nil {
		return enc.Registry
	}
	return defaultRegistry
}

func (enc *XMLEncoder) warn(w Warning) {
	if enc.OnWarning != nil {
		enc.OnWarning(w)
	}
}

// Encode writes a card.
func (enc *XMLEncoder) Encode(card *Card) error {
	enc.e.Indent = enc.Indent
	reg := enc.registry()
	ctx := &WriteContext{Version: V40, Card: card}

	xc := &xcard.Card{}
	for _, p := range card.Properties {
		el, err := enc.encodeProperty(reg, p, ctx)
		if err != nil {
			return err
		}
		if el != nil {
			xc.Elements = append(xc.Elements, el)
		}
	}
	return enc.e.Encode(xc)
}

func (enc *XMLEncoder) encodeProperty(reg *Registry, p Property, ctx *WriteContext) (*xcard.Element, error) {
	if x, ok := p.(*XML); ok {
		raw, err := xcard.ParseRawXML(x.Value)
		if err != nil {
			enc.warn(Warning{Property: "XML", Code: WarnSkipped, Message: fmt.Sprintf("invalid XML value: %v", err)})
			return nil, nil
		}
		return &xcard.Element{Name: raw.Name().Local, Group: x.Group, Raw: raw}, nil
	}
	if raw, ok := p.(*RawProperty); ok && strings.EqualFold(raw.Name, "VERSION") {
		return nil, nil
	}

	s := reg.LookupProperty(p)
	if s == nil {
		return nil, fmt.Errorf("vcardio: no scribe registered for %T", p)
	}
	name, err := reg.PropertyName(p)
	if err != nil {
		return nil, err
	}
	if !supportsVersion(s, V40) {
		enc.warn(Warning{
			Property: name,
			Code:     WarnVersion,
			Message:  name + " isn't supported by vCard 4.0",
		})
		return nil, nil
	}

	el := &xcard.Element{
		Name:   strings.ToLower(name),
		Group:  p.Base().Group,
		Params: PrepareParams(s, p, ctx).xmlParams(),
	}
	err = writeXML(s, p, el)
	if errors.Is(err, ErrSkipProperty) {
		enc.warn(Warning{Property: name, Code: WarnSkipped, Message: err.Error()})
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return el, nil
}

// Close ends the document. It doesn't close the underlying writer.
func (enc *XMLEncoder) Close() error {
	enc.e.Indent = enc.Indent
	return enc.e.Close()
}
