package vcardcompat

import (
	"testing"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-vcardio"
)

func TestToCard(t *testing.T) {
	card := &vcardio.Card{Properties: []vcardio.Property{
		&vcardio.FormattedName{Value: "John Doe"},
		&vcardio.StructuredName{Family: []string{"Doe"}, Given: []string{"John"}},
		&vcardio.Email{
			PropertyBase: vcardio.PropertyBase{Params: vcardio.Parameters{
				{Name: vcardio.ParamType, Values: []string{"work"}},
				{Name: vcardio.ParamPref, Values: []string{"1"}},
			}},
			Value: "j@example.org",
		},
		&vcardio.Label{Value: "not in vCard 4.0"},
	}}

	c, warnings, err := ToCard(card, nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, vcardio.WarnVersion, warnings[0].Code)

	assert.Equal(t, "4.0", c.Value(vcard.FieldVersion))
	assert.Equal(t, "John Doe", c.Value(vcard.FieldFormattedName))

	n := c.Name()
	require.NotNil(t, n)
	assert.Equal(t, "Doe", n.FamilyName)
	assert.Equal(t, "John", n.GivenName)

	email := c.Get(vcard.FieldEmail)
	require.NotNil(t, email)
	assert.Equal(t, "j@example.org", email.Value)
	assert.True(t, email.Params.HasType("work"))
	assert.Equal(t, "1", email.Params.Get(vcard.ParamPreferred))

	assert.Nil(t, c.Get("LABEL"))
}

func TestFromCard(t *testing.T) {
	c := make(vcard.Card)
	c.SetValue(vcard.FieldFormattedName, "Jane Doe")
	c.Add(vcard.FieldEmail, &vcard.Field{
		Value:  "jane@example.org",
		Params: vcard.Params{vcard.ParamType: {"home"}},
	})
	c.SetValue(vcard.FieldBirthday, "19700102")

	card, warnings, err := FromCard(c, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, vcardio.V40, card.Version)

	// the VERSION field is added to a copy
	_, ok := c[vcard.FieldVersion]
	assert.False(t, ok)

	fn, ok := vcardio.First[*vcardio.FormattedName](card)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", fn.Value)

	email, ok := vcardio.First[*vcardio.Email](card)
	require.True(t, ok)
	assert.Equal(t, "jane@example.org", email.Value)
	assert.Equal(t, []string{"home"}, email.Params.Types())

	bday, ok := vcardio.First[*vcardio.Birthday](card)
	require.True(t, ok)
	assert.Equal(t, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), bday.Time)
}

func TestRoundTrip(t *testing.T) {
	card := &vcardio.Card{
		Version: vcardio.V40,
		Properties: []vcardio.Property{
			&vcardio.FormattedName{Value: "John Doe"},
			&vcardio.Organization{Values: []string{"Example, Inc.", "R&D"}},
			&vcardio.Note{Value: "a;b\nc"},
			&vcardio.RawProperty{Name: "X-SHOE-SIZE", Value: "44"},
		},
	}

	c, warnings, err := ToCard(card, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	got, warnings, err := FromCard(c, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	org, ok := vcardio.First[*vcardio.Organization](got)
	require.True(t, ok)
	assert.Equal(t, []string{"Example, Inc.", "R&D"}, org.Values)

	note, ok := vcardio.First[*vcardio.Note](got)
	require.True(t, ok)
	assert.Equal(t, "a;b\nc", note.Value)

	raw, ok := vcardio.First[*vcardio.RawProperty](got)
	require.True(t, ok)
	assert.Equal(t, "X-SHOE-SIZE", raw.Name)
	assert.Equal(t, "44", raw.Value)
}
