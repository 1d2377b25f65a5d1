package vcardio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-vcardio/jcard"
)

// JSONDecoder reads vCards from a jCard document.
type JSONDecoder struct {
	// Registry holds the scribes used to parse properties. If nil, the
	// built-in scribes are used.
	Registry *Registry

	r *jcard.Reader
}

// NewJSONDecoder creates a new JSONDecoder reading from r.
func NewJSONDecoder(r io.Reader) *JSONDecoder {
	return &JSONDecoder{r: jcard.NewReader(r)}
}

// Decode parses the next card. It returns io.EOF when there are no more.
func (dec *JSONDecoder) Decode() (*Card, []Warning, error) {
	jc, err := dec.r.ReadCard()
	if err != nil {
		return nil, nil, err
	}

	b := newCardBuilder(dec.Registry, V40)
	for i := range jc.Properties {
		prop := &jc.Properties[i]
		name := strings.ToUpper(prop.Name)
		if name == "VERSION" {
			if v := prop.Value.AsSingle(); v != V40.String() {
				b.warn(name, WarnVersion, fmt.Sprintf("jCard requires vCard 4.0, got %q", v))
			}
			continue
		}

		var group string
		params := make(Parameters, 0, len(prop.Params))
		for _, p := range prop.Params {
			if strings.EqualFold(p.Name, jcard.ParamGroup) {
				group = strings.Join(p.Values, "")
				continue
			}
			params = append(params, Param{Name: strings.ToUpper(p.Name), Values: p.Values})
		}

		dt := ParseDataType(prop.Type)
		if dt == DataTypeUnknown {
			dt = ""
		}

		s := b.scribeFor(name)
		ctx := &ParseContext{Version: V40, Name: name}
		res := parseJSON(s, prop.Value, dt, &params, ctx)
		b.add(res, group, name, params, jsonToText(prop.Value), dt)
	}
	return b.card, b.warnings, nil
}

// JSONEncoder writes vCards to a jCard document. jCard is based on vCard 4.0:
// properties are converted to vCard 4.0 first.
type JSONEncoder struct {
	// Registry holds the scribes used to write properties. If nil, the
	// built-in scribes are used.
	Registry *Registry
	// Indent pretty-prints the document.
	Indent bool
	// OnWarning is called for each property which can't be written.
	OnWarning func(w Warning)

	w *jcard.Writer
}

// NewJSONEncoder creates a new JSONEncoder writing to w. Close must be called
// to write the document.
func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: jcard.NewWriter(w)}
}

func (enc *JSONEncoder) registry() *Registry {
	if enc.Registry != nil {
		return enc.Registry
	}
	return defaultRegistry
}

func (enc *JSONEncoder) warn(w Warning) {
	if enc.OnWarning != nil {
		enc.OnWarning(w)
	}
}

// Encode adds a card to the document.
func (enc *JSONEncoder) Encode(card *Card) error {
	reg := enc.registry()
	ctx := &WriteContext{Version: V40, Card: card}

	jc := &jcard.Card{Properties: []jcard.Property{{
		Name:  "version",
		Type:  string(DataTypeText),
		Value: jcard.Single(V40.String()),
	}}}
	for _, p := range card.Properties {
		prop, err := enc.encodeProperty(reg, p, ctx)
		if err != nil {
			return err
		}
		if prop != nil {
			jc.Properties = append(jc.Properties, *prop)
		}
	}
	return enc.w.WriteCard(jc)
}

func (enc *JSONEncoder) encodeProperty(reg *Registry, p Property, ctx *WriteContext) (*jcard.Property, error) {
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

	val, err := writeJSON(s, p)
	if errors.Is(err, ErrSkipProperty) {
		enc.warn(Warning{Property: name, Code: WarnSkipped, Message: err.Error()})
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	prop := &jcard.Property{
		Name:  strings.ToLower(name),
		Type:  jsonDataType(dataTypeOf(s, p, V40)),
		Value: val,
	}
	if group := p.Base().Group; group != "" {
		prop.Params = append(prop.Params, jcard.Param{Name: jcard.ParamGroup, Values: []string{group}})
	}
	for _, param := range PrepareParams(s, p, ctx) {
		if strings.EqualFold(param.Name, ParamValue) {
			continue
		}
		prop.Params = append(prop.Params, jcard.Param{Name: strings.ToLower(param.Name), Values: param.Values})
	}
	return prop, nil
}

// Close writes the document. It doesn't close the underlying writer.
func (enc *JSONEncoder) Close() error {
	enc.w.Indent = enc.Indent
	return enc.w.Close()
}
