package vcardio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-vcardio/contentline"
	"github.com/emersion/go-vcardio/value"
)

// Encoder writes vCards to a plain-text stream.
type Encoder struct {
	// Registry holds the scribes used to write properties. If nil, the
	// built-in scribes are used.
	Registry *Registry
	// Version is the version to write. If zero, each card is written with
	// its own version, or vCard 4.0 if it has none.
	Version Version
	// CaretEncoding enables RFC 6868 encoding of parameter values, for
	// vCard 3.0 and 4.0.
	CaretEncoding bool
	// FoldLength is the maximum line length. Zero means 75, a negative
	// value disables folding.
	FoldLength int
	// IncludeTrailingSemicolons keeps the empty trailing components of
	// structured values such as ADR and N. If nil, they're only kept for
	// vCard 4.0, where N has five components and ADR seven.
	IncludeTrailingSemicolons *bool
	// OnWarning is called for each property which can't be written as-is.
	OnWarning func(w Warning)

	w io.Writer
}

// NewEncoder creates a new Encoder writing vCards to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (enc *Encoder) registry() *Registry {
	if enc.Registry != nil {
		return enc.Registry
	}
	return defaultRegistry
}

func (enc *Encoder) warn(w Warning) {
	if enc.OnWarning != nil {
		enc.OnWarning(w)
	}
}

func (enc *Encoder) version(card *Card) Version {
	switch {
	case enc.Version != 0:
		return enc.Version
	case card.Version != 0:
		return card.Version
	default:
		return V40
	}
}

func (enc *Encoder) newLineWriter(w io.Writer, v Version) *contentline.Writer {
	cw := contentline.NewWriter(w, v.Syntax())
	cw.CaretEncoding = enc.CaretEncoding
	if enc.FoldLength != 0 {
		cw.FoldLength = enc.FoldLength
	}
	if v == V40 {
		cw.ParamNewline = `\n`
	}
	cw.OnSanitize = func(ev contentline.SanitizeEvent) {
		enc.warn(Warning{
			Property: ev.Property,
			Code:     WarnParamSanitized,
			Message:  fmt.Sprintf("%v parameter value %q written as %q", ev.Param, ev.Value, ev.Sanitized),
		})
	}
	return cw
}

// Encode writes a card. Properties which can't be represented in the target
// version are left out and reported to OnWarning. An error is only returned
// for I/O failures and invalid property or group names.
func (enc *Encoder) Encode(card *Card) error {
	v := enc.version(card)
	if v < V21 || v > V40 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, int(v))
	}
	return enc.encodeCard(enc.newLineWriter(enc.w, v), card, v)
}

func (enc *Encoder) encodeCard(cw *contentline.Writer, card *Card, v Version) error {
	if err := cw.WriteLine(&contentline.Line{Name: "BEGIN", Value: "VCARD"}); err != nil {
		return err
	}
	if err := cw.WriteLine(&contentline.Line{Name: "VERSION", Value: v.String()}); err != nil {
		return err
	}

	trailing := v == V40
	if enc.IncludeTrailingSemicolons != nil {
		trailing = *enc.IncludeTrailingSemicolons
	}

	reg := enc.registry()
	ctx := &WriteContext{
		Version:                   v,
		Card:                      card,
		IncludeTrailingSemicolons: trailing,
	}
	for _, p := range card.Properties {
		if err := enc.encodeProperty(cw, reg, p, ctx); err != nil {
			return err
		}
	}

	return cw.WriteLine(&contentline.Line{Name: "END", Value: "VCARD"})
}

func (enc *Encoder) encodeProperty(cw *contentline.Writer, reg *Registry, p Property, ctx *WriteContext) error {
	if raw, ok := p.(*RawProperty); ok {
		switch strings.ToUpper(raw.Name) {
		case "BEGIN", "END", "VERSION":
			return nil
		}
	}

	s := reg.LookupProperty(p)
	if s == nil {
		return fmt.Errorf("vcardio: no scribe registered for %T", p)
	}
	if !supportsVersion(s, ctx.Version) {
		enc.warn(Warning{
			Property: s.PropertyName(),
			Code:     WarnVersion,
			Message:  fmt.Sprintf("%v isn't supported by vCard %v", s.PropertyName(), ctx.Version),
		})
		return nil
	}

	if ew, ok := s.(EmbeddedWriter); ok {
		if nested := ew.EmbeddedCard(p); nested != nil {
			return enc.encodeEmbedded(cw, s, p, nested, ctx)
		}
	}

	l, err := reg.WriteProperty(p, ctx)
	if errors.Is(err, ErrSkipProperty) {
		enc.warn(Warning{Property: s.PropertyName(), Code: WarnSkipped, Message: err.Error()})
		return nil
	} else if err != nil {
		return err
	}
	if err := cw.WriteLine(l); err != nil {
		return err
	}

	if adr, ok := p.(*Address); ok && adr.Label != "" && ctx.Version != V40 {
		return enc.encodeLabel(cw, adr, l)
	}
	return nil
}

// encodeLabel writes the label of an address as a separate LABEL property,
// with the same types as the address.
func (enc *Encoder) encodeLabel(cw *contentline.Writer, adr *Address, adrLine *contentline.Line) error {
	var params []contentline.Param
	if types := adrLine.Param(ParamType); len(types) > 0 {
		params = append(params, contentline.Param{Name: ParamType, Values: types})
	}
	return cw.WriteLine(&contentline.Line{
		Group:  adr.Group,
		Name:   "LABEL",
		Params: params,
		Value:  value.Escape(adr.Label),
	})
}

// encodeEmbedded writes a property holding a nested vCard: vCard 2.1 writes
// the nested vCard right after the property, vCard 3.0 inlines it in the
// property value.
func (enc *Encoder) encodeEmbedded(cw *contentline.Writer, s Scribe, p Property, nested *Card, ctx *WriteContext) error {
	name, err := enc.registry().PropertyName(p)
	if err != nil {
		return err
	}
	params := PrepareParams(s, p, ctx)
	l := &contentline.Line{
		Group:  p.Base().Group,
		Name:   name,
		Params: params.lineParams(),
	}

	if ctx.Version == V21 {
		if err := cw.WriteLine(l); err != nil {
			return err
		}
		return enc.encodeCard(cw, nested, V21)
	}

	var sb strings.Builder
	inline := enc.newLineWriter(&sb, ctx.Version)
	inline.FoldLength = 0
	inline.Newline = "\n"
	if err := enc.encodeCard(inline, nested, ctx.Version); err != nil {
		return err
	}
	l.Value = value.Escape(sb.String())
	return cw.WriteLine(l)
}

// EncodeAll writes cards with the default settings, each in its own version.
func EncodeAll(w io.Writer, cards ...*Card) error {
	enc := NewEncoder(w)
	for _, card := range cards {
		if err := enc.Encode(card); err != nil {
			return err
		}
	}
	return nil
}
