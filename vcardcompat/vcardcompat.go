// Package vcardcompat converts cards to and from github.com/emersion/go-vcard.
//
// Conversions go through the vCard 4.0 text representation, so properties
// are normalized the same way as when written to a file.
package vcardcompat

import (
	"bytes"
	"fmt"

	"github.com/emersion/go-vcard"

	"github.com/emersion/go-vcardio"
)

// ToCard converts a card to a go-vcard Card. If reg is nil, the built-in
// scribes are used. Properties which can't be represented in vCard 4.0 are
// left out and reported as warnings.
func ToCard(card *vcardio.Card, reg *vcardio.Registry) (vcard.Card, []vcardio.Warning, error) {
	var (
		buf      bytes.Buffer
		warnings []vcardio.Warning
	)
	enc := vcardio.NewEncoder(&buf)
	enc.Registry = reg
	enc.Version = vcardio.V40
	enc.OnWarning = func(w vcardio.Warning) {
		warnings = append(warnings, w)
	}
	if err := enc.Encode(card); err != nil {
		return nil, warnings, err
	}

	c, err := vcard.NewDecoder(&buf).Decode()
	if err != nil {
		return nil, warnings, fmt.Errorf("vcardcompat: failed to decode card: %w", err)
	}
	return c, warnings, nil
}

// FromCard converts a go-vcard Card. If reg is nil, the built-in scribes are
// used. A card without a VERSION field is read as vCard 4.0.
func FromCard(c vcard.Card, reg *vcardio.Registry) (*vcardio.Card, []vcardio.Warning, error) {
	if c.Value(vcard.FieldVersion) == "" {
		cc := make(vcard.Card, len(c)+1)
		for k, fields := range c {
			cc[k] = fields
		}
		cc.SetValue(vcard.FieldVersion, "4.0")
		c = cc
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(c); err != nil {
		return nil, nil, fmt.Errorf("vcardcompat: failed to encode card: %w", err)
	}

	dec := vcardio.NewDecoder(&buf)
	dec.Registry = reg
	return dec.Decode()
}
