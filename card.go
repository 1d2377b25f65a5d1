package vcardio

import (
	"fmt"
)

// Property is a vCard property. Concrete property types embed PropertyBase.
type Property interface {
	Base() *PropertyBase
}

// PropertyBase holds the fields common to all properties.
type PropertyBase struct {
	Group  string
	Params Parameters
}

// Base implements Property.
func (b *PropertyBase) Base() *PropertyBase {
	return b
}

// Card is a vCard document.
type Card struct {
	// Version is the version the card was read from. Encoders use it when
	// they aren't configured with a target version.
	Version    Version
	Properties []Property
}

// Add appends properties to the card.
func (c *Card) Add(props ...Property) {
	c.Properties = append(c.Properties, props...)
}

// Remove removes a property from the card.
func (c *Card) Remove(prop Property) {
	l := c.Properties[:0]
	for _, p := range c.Properties {
		if p != prop {
			l = append(l, p)
		}
	}
	c.Properties = l
}

// All returns all the properties of type T.
func All[T Property](c *Card) []T {
	var l []T
	for _, p := range c.Properties {
		if t, ok := p.(T); ok {
			l = append(l, t)
		}
	}
	return l
}

// First returns the first property of type T.
func First[T Property](c *Card) (T, bool) {
	for _, p := range c.Properties {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// WarningCode classifies warnings.
type WarningCode int

const (
	// WarnMalformedLine: a line couldn't be tokenized and was skipped.
	WarnMalformedLine WarningCode = iota + 1
	// WarnSkipped: a property value was meaningless, the property was
	// dropped.
	WarnSkipped
	// WarnFallback: a property value couldn't be interpreted, it was kept as
	// a raw property.
	WarnFallback
	// WarnValue: part of a property value couldn't be interpreted.
	WarnValue
	// WarnVersion: a property or parameter isn't supported by the version.
	WarnVersion
	// WarnEmbedded: a nested vCard was expected but missing, or unexpected.
	WarnEmbedded
	// WarnEncoding: a quoted-printable or charset decoding failure.
	WarnEncoding
	// WarnStructure: the document structure is broken (e.g. missing END).
	WarnStructure
	// WarnParamSanitized: a parameter value was altered to be written.
	WarnParamSanitized
)

func (code WarningCode) String() string {
	switch code {
	case WarnMalformedLine:
		return "malformed-line"
	case WarnSkipped:
		return "skipped"
	case WarnFallback:
		return "fallback"
	case WarnValue:
		return "value"
	case WarnVersion:
		return "version"
	case WarnEmbedded:
		return "embedded"
	case WarnEncoding:
		return "encoding"
	case WarnStructure:
		return "structure"
	case WarnParamSanitized:
		return "param-sanitized"
	}
	return fmt.Sprintf("WarningCode(%d)", int(code))
}

// Warning is a non-fatal problem found while reading or writing a card.
type Warning struct {
	// Line is the line number, zero when unknown.
	Line     int
	Property string
	Code     WarningCode
	Message  string
}

func (w Warning) String() string {
	s := ""
	if w.Line > 0 {
		s += fmt.Sprintf("line %v: ", w.Line)
	}
	if w.Property != "" {
		s += w.Property + ": "
	}
	return s + w.Message
}

// WarningError is returned when a warning is upgraded to an error in strict
// mode.
type WarningError struct {
	Warning Warning
}

func (err *WarningError) Error() string {
	return "vcardio: " + err.Warning.String()
}
