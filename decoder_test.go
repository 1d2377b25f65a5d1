package vcardio

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, s string) (*Card, []Warning) {
	t.Helper()
	card, warnings, err := NewDecoder(strings.NewReader(s)).Decode()
	require.NoError(t, err)
	return card, warnings
}

func warningCodes(warnings []Warning) []WarningCode {
	var codes []WarningCode
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestDecoder_address(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"ADR;TYPE=home:;;123 Main St;Springfield;IL;62704;\r\n"+
		"END:VCARD\r\n")
	assert.Empty(t, warnings)
	assert.Equal(t, V30, card.Version)

	adr, ok := First[*Address](card)
	require.True(t, ok)
	assert.Equal(t, &Address{
		PropertyBase: PropertyBase{Params: Parameters{{Name: "TYPE", Values: []string{"home"}}}},
		POBoxes:      []string{},
		Extended:     []string{},
		Streets:      []string{"123 Main St"},
		Localities:   []string{"Springfield"},
		Regions:      []string{"IL"},
		PostalCodes:  []string{"62704"},
		Countries:    []string{},
	}, adr)

	var sb strings.Builder
	require.NoError(t, EncodeAll(&sb, card))
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"ADR;TYPE=home:;;123 Main St;Springfield;IL;62704\r\n"+
		"END:VCARD\r\n", sb.String())
}

func TestDecoder_quotedPrintable(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:2.1\r\n"+
		"NOTE;ENCODING=QUOTED-PRINTABLE:This is a long =\r\n"+
		"note that spans =\r\n"+
		"three lines\r\n"+
		"FN;CHARSET=ISO-8859-1;ENCODING=QUOTED-PRINTABLE:Fran=E7ois\r\n"+
		"END:VCARD\r\n")
	assert.Empty(t, warnings)

	note, ok := First[*Note](card)
	require.True(t, ok)
	assert.Equal(t, "This is a long note that spans three lines", note.Value)
	assert.Empty(t, note.Params)

	fn, ok := First[*FormattedName](card)
	require.True(t, ok)
	assert.Equal(t, "François", fn.Value)
	assert.Empty(t, fn.Params)
}

func TestDecoder_unknownProperty(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:4.0\r\n"+
		"item1.X-SHOE-SIZE;X-UNIT=eu:44\\,5\r\n"+
		"X-LINK;VALUE=uri:https://example.org\r\n"+
		"END:VCARD\r\n")
	assert.Empty(t, warnings)

	raws := All[*RawProperty](card)
	require.Len(t, raws, 2)
	assert.Equal(t, &RawProperty{
		PropertyBase: PropertyBase{
			Group:  "item1",
			Params: Parameters{{Name: "X-UNIT", Values: []string{"eu"}}},
		},
		Name:  "X-SHOE-SIZE",
		Value: "44\\,5",
	}, raws[0])
	assert.Equal(t, DataTypeURI, raws[1].DataType)

	var sb strings.Builder
	require.NoError(t, EncodeAll(&sb, card))
	assert.Equal(t, "BEGIN:VCARD\r\n"+
		"VERSION:4.0\r\n"+
		"item1.X-SHOE-SIZE;X-UNIT=eu:44\\,5\r\n"+
		"X-LINK;VALUE=uri:https://example.org\r\n"+
		"END:VCARD\r\n", sb.String())
}

func TestDecoder_agent(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
	}{
		{
			name: "2.1",
			in: "BEGIN:VCARD\r\n" +
				"VERSION:2.1\r\n" +
				"FN:Boss\r\n" +
				"AGENT:\r\n" +
				"BEGIN:VCARD\r\n" +
				"VERSION:2.1\r\n" +
				"FN:Assistant\r\n" +
				"END:VCARD\r\n" +
				"NOTE:after\r\n" +
				"END:VCARD\r\n",
		},
		{
			name: "3.0",
			in: "BEGIN:VCARD\r\n" +
				"VERSION:3.0\r\n" +
				"FN:Boss\r\n" +
				"AGENT:BEGIN:VCARD\\nVERSION:3.0\\nFN:Assistant\\nEND:VCARD\\n\r\n" +
				"NOTE:after\r\n" +
				"END:VCARD\r\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			card, warnings := decodeOne(t, tc.in)
			assert.Empty(t, warnings)
			require.Len(t, card.Properties, 3)

			agent, ok := First[*Agent](card)
			require.True(t, ok)
			require.NotNil(t, agent.Card)
			fn, ok := First[*FormattedName](agent.Card)
			require.True(t, ok)
			assert.Equal(t, "Assistant", fn.Value)

			note, ok := First[*Note](card)
			require.True(t, ok)
			assert.Equal(t, "after", note.Value)
		})
	}
}

func TestDecoder_agentURL(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"AGENT;VALUE=uri:http://example.org/assistant.vcf\r\n"+
		"END:VCARD\r\n")
	assert.Empty(t, warnings)
	agent, ok := First[*Agent](card)
	require.True(t, ok)
	assert.Equal(t, "http://example.org/assistant.vcf", agent.URL)
	assert.Nil(t, agent.Card)
}

func TestDecoder_missingNestedCard(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:2.1\r\n"+
		"AGENT:\r\n"+
		"END:VCARD\r\n")
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnEmbedded, warnings[0].Code)
	assert.Equal(t, 3, warnings[0].Line)
	assert.Equal(t, "AGENT", warnings[0].Property)

	agent, ok := First[*Agent](card)
	require.True(t, ok)
	assert.Nil(t, agent.Card)
}

func TestDecoder_orphanNestedCard(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:2.1\r\n"+
		"BEGIN:VCARD\r\n"+
		"FN:Orphan\r\n"+
		"END:VCARD\r\n"+
		"FN:Parent\r\n"+
		"END:VCARD\r\n")
	assert.Equal(t, []WarningCode{WarnEmbedded}, warningCodes(warnings))
	require.Len(t, card.Properties, 1)
	assert.Equal(t, "Parent", card.Properties[0].(*FormattedName).Value)
}

func TestDecoder_labels(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"ADR;TYPE=home:;;1 Home St;Town\r\n"+
		"ADR;TYPE=work,pref:;;2 Work St;City\r\n"+
		"LABEL;TYPE=WORK:2 Work St\\nCity\r\n"+
		"LABEL;TYPE=other:Nowhere\r\n"+
		"END:VCARD\r\n")
	assert.Empty(t, warnings)

	adrs := All[*Address](card)
	require.Len(t, adrs, 2)
	assert.Equal(t, "", adrs[0].Label)
	assert.Equal(t, "2 Work St\nCity", adrs[1].Label)

	// labels without a matching address are kept
	labels := All[*Label](card)
	require.Len(t, labels, 1)
	assert.Equal(t, "Nowhere", labels[0].Value)
}

func TestDecoder_dates(t *testing.T) {
	card, warnings := decodeOne(t, "BEGIN:VCARD\r\n"+
		"VERSION:4.0\r\n"+
		"BDAY:19700102\r\n"+
		"ANNIVERSARY:20100615T143000\r\n"+
		"REV:20200102T030405Z\r\n"+
		"TZ;VALUE=utc-offset:-0500\r\n"+
		"END:VCARD\r\n")
	assert.Empty(t, warnings)

	bday, ok := First[*Birthday](card)
	require.True(t, ok)
	assert.False(t, bday.HasTime)
	assert.Equal(t, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), bday.Time)

	anniversary, ok := First[*Anniversary](card)
	require.True(t, ok)
	assert.True(t, anniversary.HasTime)
	assert.Equal(t, "2010-06-15 14:30:00", anniversary.Time.Format(time.DateTime))

	rev, ok := First[*Revision](card)
	require.True(t, ok)
	assert.True(t, rev.Time.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)))

	tz, ok := First[*Timezone](card)
	require.True(t, ok)
	require.NotNil(t, tz.Offset)
	assert.Equal(t, -5*time.Hour, *tz.Offset)

	// floating date-times are written back without an offset
	var sb strings.Builder
	require.NoError(t, EncodeAll(&sb, card))
	assert.Contains(t, sb.String(), "\r\nANNIVERSARY:20100615T143000\r\n")
}

func TestDecoder_fallback(t *testing.T) {
	in := "BEGIN:VCARD\r\n" +
		"VERSION:3.0\r\n" +
		"BDAY:not a date\r\n" +
		"GEO:somewhere\r\n" +
		"FN:John\r\n" +
		"END:VCARD\r\n"
	card, warnings := decodeOne(t, in)
	assert.Equal(t, []WarningCode{WarnFallback, WarnFallback}, warningCodes(warnings))
	assert.Equal(t, 3, warnings[0].Line)
	assert.Equal(t, "BDAY", warnings[0].Property)

	raws := All[*RawProperty](card)
	require.Len(t, raws, 2)
	assert.Equal(t, "BDAY", raws[0].Name)
	assert.Equal(t, "not a date", raws[0].Value)

	_, ok := First[*FormattedName](card)
	assert.True(t, ok)
}

func TestDecoder_strict(t *testing.T) {
	dec := NewDecoder(strings.NewReader("BEGIN:VCARD\r\n" +
		"VERSION:3.0\r\n" +
		"KIND:individual\r\n" +
		"BDAY:not a date\r\n" +
		"END:VCARD\r\n"))
	dec.Strict = func(w Warning) bool {
		return w.Code == WarnFallback
	}

	_, warnings, err := dec.Decode()
	var werr *WarningError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, WarnFallback, werr.Warning.Code)
	assert.Equal(t, 4, werr.Warning.Line)
	// the version warning came first and didn't abort decoding
	assert.Equal(t, []WarningCode{WarnVersion, WarnFallback}, warningCodes(warnings))
}

func TestDecoder_warnings(t *testing.T) {
	card, warnings := decodeOne(t, "FN:outside\r\n"+
		"BEGIN:VCARD\r\n"+
		"VERSION:3.0\r\n"+
		"this is garbage\r\n"+
		"KIND:individual\r\n"+
		"VERSION:9.9\r\n"+
		"FN:John\r\n")
	assert.Equal(t, []WarningCode{
		WarnStructure,
		WarnMalformedLine,
		WarnVersion,
		WarnVersion,
		WarnStructure,
	}, warningCodes(warnings))
	assert.Equal(t, V30, card.Version)

	// properties undefined in the version are kept
	kind, ok := First[*Kind](card)
	require.True(t, ok)
	assert.Equal(t, "individual", kind.Value)
	_, ok = First[*FormattedName](card)
	assert.True(t, ok)
}

func TestDecoder_defaultVersion(t *testing.T) {
	dec := NewDecoder(strings.NewReader("BEGIN:VCARD\r\nFN:John\r\nEND:VCARD\r\n"))
	card, _, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, V21, card.Version)

	dec = NewDecoder(strings.NewReader("BEGIN:VCARD\r\nFN:John\r\nEND:VCARD\r\n"))
	dec.DefaultVersion = V40
	card, _, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, V40, card.Version)
}

func TestDecodeAll(t *testing.T) {
	cards, warnings, err := DecodeAll(strings.NewReader("BEGIN:VCARD\r\n" +
		"VERSION:4.0\r\n" +
		"FN:A\r\n" +
		"END:VCARD\r\n" +
		"\r\n" +
		"begin:vcard\r\n" +
		"version:4.0\r\n" +
		"fn:B\r\n" +
		"end:vcard\r\n"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, cards, 2)
	assert.Equal(t, "B", cards[1].Properties[0].(*FormattedName).Value)

	_, _, err = NewDecoder(strings.NewReader("")).Decode()
	assert.Equal(t, io.EOF, err)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion(" 3.0 ")
	require.NoError(t, err)
	assert.Equal(t, V30, v)

	_, err = ParseVersion("5.0")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
