package vcardio

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emersion/go-vcardio/contentline"
)

// Decoder reads vCards from a plain-text stream.
type Decoder struct {
	// Registry holds the scribes used to parse properties. If nil, the
	// built-in scribes are used.
	Registry *Registry
	// DefaultVersion is assumed until a VERSION property is read. Defaults
	// to vCard 2.1, whose syntax is the most permissive.
	DefaultVersion Version
	// Strict is called for each warning. If it returns true, decoding of the
	// current card is aborted with a *WarningError.
	Strict func(w Warning) bool

	r *contentline.Reader

	warnings []Warning
}

// NewDecoder creates a new Decoder reading vCards from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: contentline.NewReader(r)}
}

func (dec *Decoder) registry() *Registry {
	if dec.Registry != nil {
		return dec.Registry
	}
	return defaultRegistry
}

func (dec *Decoder) defaultVersion() Version {
	if dec.DefaultVersion != 0 {
		return dec.DefaultVersion
	}
	return V21
}

func (dec *Decoder) warn(w Warning) error {
	dec.warnings = append(dec.warnings, w)
	if dec.Strict != nil && dec.Strict(w) {
		return &WarningError{Warning: w}
	}
	return nil
}

func isBoundary(l *contentline.Line, name string) bool {
	return strings.EqualFold(l.Name, name) && strings.EqualFold(strings.TrimSpace(l.Value), "VCARD")
}

// Decode parses the next card in the stream. It returns io.EOF when there are
// no more cards. Problems which don't prevent reading the card are returned
// as warnings, in the order they were found.
//
// After an error, the decoder can't be used anymore.
func (dec *Decoder) Decode() (*Card, []Warning, error) {
	dec.warnings = nil

	for {
		l, err := dec.r.ReadLine()
		var perr *contentline.ParseError
		if errors.As(err, &perr) {
			if err := dec.warn(Warning{Line: perr.Line, Code: WarnMalformedLine, Message: perr.Error()}); err != nil {
				return nil, dec.warnings, err
			}
			continue
		} else if err != nil {
			return nil, dec.warnings, err
		}

		if isBoundary(l, "BEGIN") {
			card, err := dec.decodeCard(l.Num)
			return card, dec.warnings, err
		}

		err = dec.warn(Warning{
			Line:     l.Num,
			Property: l.Name,
			Code:     WarnStructure,
			Message:  "ignoring property outside of a vCard",
		})
		if err != nil {
			return nil, dec.warnings, err
		}
	}
}

// pendingEmbed is an embedded property waiting for its nested vCard.
type pendingEmbed struct {
	line   int
	name   string
	inject func(*Card)
}

// decodeCard reads the properties of a card up to its END line. The BEGIN
// line has already been consumed.
func (dec *Decoder) decodeCard(begin int) (*Card, error) {
	card := &Card{Version: dec.defaultVersion()}
	syntax := dec.r.Syntax
	dec.r.Syntax = card.Version.Syntax()
	defer func() {
		dec.r.Syntax = syntax
	}()

	var pending []pendingEmbed
	for {
		l, err := dec.r.ReadLine()
		var perr *contentline.ParseError
		if errors.As(err, &perr) {
			if err := dec.warn(Warning{Line: perr.Line, Code: WarnMalformedLine, Message: perr.Error()}); err != nil {
				return nil, err
			}
			continue
		} else if err == io.EOF {
			err := dec.warn(Warning{
				Line:    begin,
				Code:    WarnStructure,
				Message: "missing END:VCARD",
			})
			if err != nil {
				return nil, err
			}
			break
		} else if err != nil {
			return nil, err
		}

		switch {
		case isBoundary(l, "END"):
			return card, dec.finishCard(card, pending)
		case isBoundary(l, "BEGIN"):
			nested, err := dec.decodeCard(l.Num)
			if err != nil {
				return nil, err
			}
			if len(pending) == 0 {
				err := dec.warn(Warning{
					Line:    l.Num,
					Code:    WarnEmbedded,
					Message: "ignoring nested vCard without a property to embed it in",
				})
				if err != nil {
					return nil, err
				}
				continue
			}
			last := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			last.inject(nested)
		case strings.EqualFold(l.Name, "VERSION"):
			v, err := ParseVersion(l.Value)
			if err != nil {
				werr := dec.warn(Warning{
					Line:     l.Num,
					Property: l.Name,
					Code:     WarnVersion,
					Message:  err.Error(),
				})
				if werr != nil {
					return nil, werr
				}
				continue
			}
			card.Version = v
			dec.r.Syntax = v.Syntax()
		default:
			p, err := dec.decodeProperty(card, l)
			if err != nil {
				return nil, err
			}
			if p != nil {
				pending = append(pending, *p)
			}
		}
	}

	return card, dec.finishCard(card, pending)
}

// decodeProperty parses a property and adds it to the card. It returns a
// non-nil pendingEmbed if the property expects a nested vCard on the
// following lines.
func (dec *Decoder) decodeProperty(card *Card, l *contentline.Line) (*pendingEmbed, error) {
	reg := dec.registry()
	params := paramsFromLine(l.Params)
	val := l.Value

	warn := func(code WarningCode, msg string) error {
		return dec.warn(Warning{Line: l.Num, Property: l.Name, Code: code, Message: msg})
	}

	if params.HasValue(ParamEncoding, "QUOTED-PRINTABLE") {
		decoded, err := contentline.DecodeQuotedPrintable(val, params.Get(ParamCharset))
		if err != nil {
			if err := warn(WarnEncoding, err.Error()); err != nil {
				return nil, err
			}
		}
		val = decoded
		params.Del(ParamEncoding)
		params.Del(ParamCharset)
	}

	s := reg.Lookup(l.Name)
	if s != nil && !supportsVersion(s, card.Version) {
		msg := fmt.Sprintf("%v isn't defined in vCard %v", s.PropertyName(), card.Version)
		if err := warn(WarnVersion, msg); err != nil {
			return nil, err
		}
	}

	ctx := &ParseContext{Version: card.Version, Line: l.Num, Name: l.Name}
	res := reg.ParseProperty(l.Group, params, val, ctx)

	switch res := res.(type) {
	case *Parsed:
		card.Add(res.Property)
		code := WarnValue
		if _, raw := res.Property.(*RawProperty); raw && s != nil {
			code = WarnFallback
		}
		for _, msg := range res.Warnings {
			if err := warn(code, msg); err != nil {
				return nil, err
			}
		}
	case *Skipped:
		if err := warn(WarnSkipped, res.Reason); err != nil {
			return nil, err
		}
	case *Embedded:
		card.Add(res.Property)
		for _, msg := range res.Warnings {
			if err := warn(WarnValue, msg); err != nil {
				return nil, err
			}
		}
		if res.Text == "" {
			return &pendingEmbed{line: l.Num, name: l.Name, inject: res.Inject}, nil
		}
		nested, err := dec.decodeInline(res.Text, l)
		if err != nil {
			return nil, err
		}
		res.Inject(nested)
	}
	return nil, nil
}

// decodeInline parses a vCard embedded in a property value, with a separate
// decoder. Its warnings are merged into ours.
func (dec *Decoder) decodeInline(text string, l *contentline.Line) (*Card, error) {
	inline := NewDecoder(strings.NewReader(text))
	inline.Registry = dec.Registry
	inline.DefaultVersion = dec.DefaultVersion
	inline.Strict = dec.Strict

	nested, warnings, err := inline.Decode()
	for _, w := range warnings {
		w.Line = l.Num
		if w.Property == "" {
			w.Property = l.Name
		}
		dec.warnings = append(dec.warnings, w)
	}
	var werr *WarningError
	if errors.As(err, &werr) {
		return nil, err
	} else if err != nil {
		werr := dec.warn(Warning{
			Line:     l.Num,
			Property: l.Name,
			Code:     WarnEmbedded,
			Message:  fmt.Sprintf("invalid nested vCard: %v", err),
		})
		return nil, werr
	}
	return nested, nil
}

// finishCard resolves what can only be resolved once the whole card is read.
func (dec *Decoder) finishCard(card *Card, pending []pendingEmbed) error {
	for _, p := range pending {
		p.inject(nil)
		err := dec.warn(Warning{
			Line:     p.line,
			Property: p.name,
			Code:     WarnEmbedded,
			Message:  "missing nested vCard",
		})
		if err != nil {
			return err
		}
	}

	if card.Version != V40 {
		assignLabels(card)
	}
	return nil
}

func typeSet(params Parameters) string {
	types := params.Types()
	l := make([]string, 0, len(types))
	for _, t := range types {
		if !strings.EqualFold(t, TypePref) {
			l = append(l, strings.ToLower(t))
		}
	}
	sort.Strings(l)
	return strings.Join(l, ",")
}

// assignLabels moves LABEL properties into the first address with the same
// types and without a label.
func assignLabels(card *Card) {
	for _, label := range All[*Label](card) {
		types := typeSet(label.Params)
		for _, adr := range All[*Address](card) {
			if adr.Label == "" && typeSet(adr.Params) == types {
				adr.Label = label.Value
				card.Remove(label)
				break
			}
		}
	}
}

// DecodeAll reads all the cards of a stream. Warnings of all cards are
// concatenated.
func DecodeAll(r io.Reader) ([]*Card, []Warning, error) {
	dec := NewDecoder(r)
	var (
		cards    []*Card
		warnings []Warning
	)
	for {
		card, w, err := dec.Decode()
		warnings = append(warnings, w...)
		if err == io.EOF {
			return cards, warnings, nil
		} else if err != nil {
			return cards, warnings, err
		}
		cards = append(cards, card)
	}
}
