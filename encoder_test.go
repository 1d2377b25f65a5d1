package vcardio

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-vcardio/contentline"
)

func encode(t *testing.T, card *Card, v Version) (string, []Warning) {
	t.Helper()
	var (
		sb       strings.Builder
		warnings []Warning
	)
	enc := NewEncoder(&sb)
	enc.Version = v
	enc.OnWarning = func(w Warning) {
		warnings = append(warnings, w)
	}
	require.NoError(t, enc.Encode(card))
	return sb.String(), warnings
}

func exampleCard() *Card {
	offset := -5 * time.Hour
	return &Card{Properties: []Property{
		&FormattedName{Value: "John Doe"},
		&StructuredName{
			Family:   []string{"Doe"},
			Given:    []string{"John"},
			Prefixes: []string{"Dr."},
		},
		&Email{
			PropertyBase: PropertyBase{Params: Parameters{{Name: ParamType, Values: []string{"work"}}}},
			Value:        "jdoe@example.org",
		},
		&Email{
			PropertyBase: PropertyBase{Params: Parameters{{Name: ParamPref, Values: []string{"1"}}}},
			Value:        "john@example.com",
		},
		&Telephone{
			PropertyBase: PropertyBase{Params: Parameters{{Name: ParamType, Values: []string{"home", "voice"}}}},
			Text:         "+1-555-0100",
		},
		&Address{
			PropertyBase: PropertyBase{Params: Parameters{{Name: ParamType, Values: []string{"work"}}}},
			Streets:      []string{"1 Main St"},
			Localities:   []string{"Springfield"},
			Countries:    []string{"USA"},
			Label:        "1 Main St, Springfield",
		},
		&Organization{Values: []string{"Example, Inc.", "R&D"}},
		&Note{Value: "a;b,c\\d\nsecond line"},
		&Geo{Latitude: 37.386013, Longitude: -122.082932},
		&Birthday{Time: time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)},
		&Revision{Time: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		&Timezone{Offset: &offset},
		&Photo{Data: []byte("\x89PNG fake image"), ContentType: "image/png"},
		&URL{Value: "https://example.org/~jdoe"},
		&UID{Value: "urn:uuid:f81d4fae-7dec-11d0-a765-00a0c91e6bf6"},
		&RawProperty{Name: "X-SHOE-SIZE", Value: "44\\,5"},
	}}
}

func TestEncoder_roundTrip(t *testing.T) {
	for _, v := range []Version{V21, V30, V40} {
		t.Run(v.String(), func(t *testing.T) {
			first, warnings := encode(t, exampleCard(), v)
			assert.Empty(t, warnings)

			card, warnings := decodeOne(t, first)
			assert.Empty(t, warnings)
			assert.Equal(t, v, card.Version)

			second, _ := encode(t, card, v)
			assert.Equal(t, first, second)

			note, ok := First[*Note](card)
			require.True(t, ok)
			assert.Equal(t, "a;b,c\\d\nsecond line", note.Value)

			adr, ok := First[*Address](card)
			require.True(t, ok)
			assert.Equal(t, "1 Main St, Springfield", adr.Label)
			assert.Equal(t, []string{"1 Main St"}, adr.Streets)

			org, ok := First[*Organization](card)
			require.True(t, ok)
			assert.Equal(t, []string{"Example, Inc.", "R&D"}, org.Values)

			geo, ok := First[*Geo](card)
			require.True(t, ok)
			assert.Equal(t, 37.386013, geo.Latitude)
			assert.Equal(t, -122.082932, geo.Longitude)

			photo, ok := First[*Photo](card)
			require.True(t, ok)
			assert.Equal(t, []byte("\x89PNG fake image"), photo.Data)
			assert.Equal(t, "image/png", photo.ContentType)

			tz, ok := First[*Timezone](card)
			require.True(t, ok)
			require.NotNil(t, tz.Offset)
			assert.Equal(t, -5*time.Hour, *tz.Offset)

			raw, ok := First[*RawProperty](card)
			require.True(t, ok)
			assert.Equal(t, "44\\,5", raw.Value)
		})
	}
}

func TestEncoder_pref(t *testing.T) {
	emails := func(prefs ...string) *Card {
		card := &Card{}
		for i, pref := range prefs {
			email := &Email{Value: string(rune('a'+i)) + "@example.org"}
			if pref != "" {
				email.Params.Set(ParamPref, pref)
			}
			card.Add(email)
		}
		return card
	}

	got, _ := encode(t, emails("2", "1", "3"), V30)
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"EMAIL:a@example.org\r\n"+
		"EMAIL;TYPE=pref:b@example.org\r\n"+
		"EMAIL:c@example.org\r\n"+
		"END:VCARD\r\n", got)

	got, _ = encode(t, emails("2", "1", "3"), V21)
	assert.Contains(t, got, "\r\nEMAIL;pref:b@example.org\r\n")

	got, _ = encode(t, emails("2", "1", "3"), V40)
	assert.Contains(t, got, "\r\nEMAIL;PREF=2:a@example.org\r\n")
	assert.Contains(t, got, "\r\nEMAIL;PREF=1:b@example.org\r\n")

	card := &Card{Properties: []Property{
		&Telephone{
			PropertyBase: PropertyBase{Params: Parameters{{Name: ParamType, Values: []string{"home", "PREF"}}}},
			Text:         "+1-555-0100",
		},
	}}
	got, _ = encode(t, card, V40)
	assert.Contains(t, got, "\r\nTEL;TYPE=home;PREF=1:+1-555-0100\r\n")
	// the property itself is left untouched
	assert.Equal(t, []string{"home", "PREF"}, card.Properties[0].Base().Params.Types())

	got, _ = encode(t, card, V30)
	assert.Contains(t, got, "\r\nTEL;TYPE=home,PREF:+1-555-0100\r\n")
}

func TestEncoder_dataType(t *testing.T) {
	card := &Card{Properties: []Property{
		&Telephone{URI: "tel:+1-555-0100"},
		&Birthday{Time: time.Date(1970, 1, 2, 10, 0, 0, 0, time.UTC), HasTime: true},
		&Related{Text: "Jane"},
		&Related{URI: "urn:uuid:03a0e51f-d1aa-4385-8a53-e29025acd8af"},
		&Photo{URL: "http://example.org/me.png", ContentType: "image/png"},
	}}

	got, _ := encode(t, card, V40)
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:4.0\r\n"+
		"TEL;VALUE=uri:tel:+1-555-0100\r\n"+
		"BDAY:19700102T100000Z\r\n"+
		"RELATED;VALUE=text:Jane\r\n"+
		"RELATED:urn:uuid:03a0e51f-d1aa-4385-8a53-e29025acd8af\r\n"+
		"PHOTO;MEDIATYPE=image/png:http://example.org/me.png\r\n"+
		"END:VCARD\r\n", got)

	got, warnings := encode(t, card, V30)
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"TEL:+1-555-0100\r\n"+
		"BDAY;VALUE=date-time:1970-01-02T10:00:00Z\r\n"+
		"PHOTO;TYPE=PNG;VALUE=uri:http://example.org/me.png\r\n"+
		"END:VCARD\r\n", got)
	assert.Equal(t, []WarningCode{WarnVersion, WarnVersion}, warningCodes(warnings))

	got, _ = encode(t, &Card{Properties: []Property{&URL{Value: "http://example.org"}, card.Properties[4]}}, V21)
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:2.1\r\n"+
		"URL:http://example.org\r\n"+
		"PHOTO;PNG;VALUE=url:http://example.org/me.png\r\n"+
		"END:VCARD\r\n", got)
}

func TestEncoder_textDate(t *testing.T) {
	card := &Card{Properties: []Property{&Birthday{Text: "circa 1800"}}}

	got, _ := encode(t, card, V40)
	assert.Contains(t, got, "\r\nBDAY;VALUE=text:circa 1800\r\n")

	got, warnings := encode(t, card, V30)
	assert.NotContains(t, got, "BDAY")
	assert.Equal(t, []WarningCode{WarnSkipped}, warningCodes(warnings))
}

func TestEncoder_agent(t *testing.T) {
	assistant := &Card{Properties: []Property{&FormattedName{Value: "Assistant"}}}
	card := &Card{Properties: []Property{
		&FormattedName{Value: "Boss"},
		&Agent{Card: assistant},
	}}

	got, _ := encode(t, card, V21)
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:2.1\r\n"+
		"FN:Boss\r\n"+
		"AGENT:\r\n"+
		"BEGIN:VCARD\r\n"+
		"VERSION:2.1\r\n"+
		"FN:Assistant\r\n"+
		"END:VCARD\r\n"+
		"END:VCARD\r\n", got)

	got, _ = encode(t, card, V30)
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"FN:Boss\r\n"+
		`AGENT:BEGIN:VCARD\nVERSION:3.0\nFN:Assistant\nEND:VCARD\n`+"\r\n"+
		"END:VCARD\r\n", got)

	got, warnings := encode(t, card, V40)
	assert.NotContains(t, got, "AGENT")
	assert.Equal(t, []WarningCode{WarnVersion}, warningCodes(warnings))
}

func TestEncoder_label(t *testing.T) {
	card := &Card{Properties: []Property{
		&Address{
			PropertyBase: PropertyBase{Params: Parameters{{Name: ParamType, Values: []string{"work"}}}},
			Streets:      []string{"1 Main St"},
			Localities:   []string{"Town"},
			Label:        "1 Main St\nTown",
		},
	}}

	got, _ := encode(t, card, V30)
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"ADR;TYPE=work:;;1 Main St;Town\r\n"+
		"LABEL;TYPE=work:1 Main St\\nTown\r\n"+
		"END:VCARD\r\n", got)

	card.Properties[0].(*Address).Label = "1 Main St, Town"
	got, _ = encode(t, card, V40)
	assert.Contains(t, got, "\r\nADR;TYPE=work;LABEL=\"1 Main St, Town\":;;1 Main St;Town;;;\r\n")
}

func TestEncoder_options(t *testing.T) {
	card := &Card{Properties: []Property{
		&Note{Value: strings.Repeat("x", 100)},
		&Address{
			PropertyBase: PropertyBase{Params: Parameters{{Name: ParamLabel, Values: []string{"say \"hi\""}}}},
			Streets:      []string{"1 Main St"},
		},
	}}

	var sb strings.Builder
	enc := NewEncoder(&sb)
	enc.Version = V40
	enc.FoldLength = -1
	enc.CaretEncoding = true
	trailing := false
	enc.IncludeTrailingSemicolons = &trailing
	require.NoError(t, enc.Encode(card))
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:4.0\r\n"+
		"NOTE:"+strings.Repeat("x", 100)+"\r\n"+
		"ADR;LABEL=say ^'hi^':;;1 Main St\r\n"+
		"END:VCARD\r\n", sb.String())

	sb.Reset()
	var warnings []Warning
	enc = NewEncoder(&sb)
	enc.Version = V40
	enc.OnWarning = func(w Warning) {
		warnings = append(warnings, w)
	}
	require.NoError(t, enc.Encode(card))
	assert.Contains(t, sb.String(), "\r\n "+strings.Repeat("x", 30)+"\r\n")
	assert.Contains(t, sb.String(), "\r\nADR;LABEL=say 'hi':;;1 Main St;;;;\r\n")
	assert.Equal(t, []WarningCode{WarnParamSanitized}, warningCodes(warnings))
}

func TestEncoder_trailingSemicolons(t *testing.T) {
	card := &Card{Properties: []Property{
		&StructuredName{Family: []string{"Doe"}, Given: []string{"John"}},
		&Address{Streets: []string{"1 Main"}},
	}}

	on, off := true, false
	for _, tc := range []struct {
		name     string
		version  Version
		trailing *bool
		n, adr   string
	}{
		{name: "v4-default", version: V40, n: "N:Doe;John;;;", adr: "ADR:;;1 Main;;;;"},
		{name: "v4-off", version: V40, trailing: &off, n: "N:Doe;John", adr: "ADR:;;1 Main"},
		{name: "v3-default", version: V30, n: "N:Doe;John", adr: "ADR:;;1 Main"},
		{name: "v3-on", version: V30, trailing: &on, n: "N:Doe;John;;;", adr: "ADR:;;1 Main;;;;"},
		{name: "v21-default", version: V21, n: "N:Doe;John", adr: "ADR:;;1 Main"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			enc := NewEncoder(&sb)
			enc.Version = tc.version
			enc.IncludeTrailingSemicolons = tc.trailing
			require.NoError(t, enc.Encode(card))
			assert.Contains(t, sb.String(), "\r\n"+tc.n+"\r\n")
			assert.Contains(t, sb.String(), "\r\n"+tc.adr+"\r\n")
		})
	}
}

func TestEncoder_invalidVersion(t *testing.T) {
	card := &Card{Properties: []Property{&FormattedName{Value: "John Doe"}}}

	for _, tc := range []struct {
		name    string
		encoder Version
		card    Version
	}{
		{name: "encoder", encoder: Version(9)},
		{name: "card", card: Version(-1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			card.Version = tc.card
			var sb strings.Builder
			enc := NewEncoder(&sb)
			enc.Version = tc.encoder
			err := enc.Encode(card)
			assert.ErrorIs(t, err, ErrUnsupportedVersion)
			assert.Empty(t, sb.String())
		})
	}
}

func TestEncoder_quotedPrintable(t *testing.T) {
	card := &Card{Properties: []Property{&Note{Value: "one\ntwo"}}}
	got, _ := encode(t, card, V21)
	assert.Contains(t, got, "\r\nNOTE;ENCODING=QUOTED-PRINTABLE;CHARSET=UTF-8:one=0Atwo\r\n")
}

func TestEncoder_invalidName(t *testing.T) {
	var sb strings.Builder
	err := NewEncoder(&sb).Encode(&Card{Properties: []Property{
		&RawProperty{Name: "X FOO", Value: "bar"},
	}})
	assert.ErrorIs(t, err, contentline.ErrInvalidName)

	err = NewEncoder(&sb).Encode(&Card{Properties: []Property{
		&FormattedName{PropertyBase: PropertyBase{Group: "a.b"}, Value: "John"},
	}})
	assert.ErrorIs(t, err, contentline.ErrInvalidName)
}

func TestEncoder_defaultVersion(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, EncodeAll(&sb,
		&Card{Properties: []Property{&FormattedName{Value: "A"}}},
		&Card{Version: V30, Properties: []Property{&FormattedName{Value: "B"}}},
	))
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:4.0\r\n"+
		"FN:A\r\n"+
		"END:VCARD\r\n"+
		"BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"FN:B\r\n"+
		"END:VCARD\r\n", sb.String())
}
