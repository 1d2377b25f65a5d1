package vcardio

import (
	"strings"
)

// cardBuilder collects the properties parsed from the jCard, xCard and hCard
// representations.
type cardBuilder struct {
	reg      *Registry
	card     *Card
	warnings []Warning
}

func newCardBuilder(reg *Registry, v Version) *cardBuilder {
	if reg == nil {
		reg = defaultRegistry
	}
	return &cardBuilder{reg: reg, card: &Card{Version: v}}
}

func (b *cardBuilder) warn(name string, code WarningCode, msg string) {
	b.warnings = append(b.warnings, Warning{Property: name, Code: code, Message: msg})
}

// add handles the outcome of a scribe's parse function. raw is the value used
// if the scribe falls back to a RawProperty.
func (b *cardBuilder) add(res ParseResult, group, name string, params Parameters, raw string, dt DataType) {
	res = b.reg.finishParse(res, group, name, params, raw, dt)
	known := b.reg.Lookup(name) != nil

	switch res := res.(type) {
	case *Parsed:
		b.card.Add(res.Property)
		code := WarnValue
		if _, ok := res.Property.(*RawProperty); ok && known {
			code = WarnFallback
		}
		for _, msg := range res.Warnings {
			b.warn(name, code, msg)
		}
	case *Skipped:
		b.warn(name, WarnSkipped, res.Reason)
	case *Embedded:
		b.card.Add(res.Property)
		for _, msg := range res.Warnings {
			b.warn(name, WarnValue, msg)
		}
		if res.Text == "" {
			res.Inject(nil)
			b.warn(name, WarnEmbedded, "missing nested vCard")
			return
		}
		dec := NewDecoder(strings.NewReader(res.Text))
		dec.Registry = b.reg
		nested, warnings, err := dec.Decode()
		for _, w := range warnings {
			w.Property = name
			b.warnings = append(b.warnings, w)
		}
		if err != nil {
			b.warn(name, WarnEmbedded, "invalid nested vCard: "+err.Error())
		}
		res.Inject(nested)
	}
}

// scribeFor returns the scribe to parse a property, and whether the version
// supports it.
func (b *cardBuilder) scribeFor(name string) Scribe {
	s := b.reg.forName(name)
	if v := b.card.Version; !supportsVersion(s, v) {
		b.warn(name, WarnVersion, s.PropertyName()+" isn't defined in vCard "+v.String())
	}
	return s
}
