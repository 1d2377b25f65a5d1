package jcard

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleCard = `["vcard",
  [
    ["version", {}, "text", "4.0"],
    ["fn", {}, "text", "Simon Perreault"],
    ["n", {}, "text", ["Perreault", "Simon", "", "", ["ing. jr", "M.Sc."]]],
    ["bday", {}, "date-and-or-time", "--02-03"],
    ["gender", {}, "text", "M"],
    ["lang", {"pref": "1"}, "language-tag", "fr"],
    ["email", {"type": "work", "group": "item1"}, "text", "simon.perreault@viagenie.ca"],
    ["tel", {"type": ["work", "voice"], "pref": "1"}, "uri", "tel:+1-418-656-9254;ext=102"],
    ["geo", {"type": "work"}, "uri", "geo:46.772673,-71.282945"],
    ["categories", {}, "text", "computers", "cameras"],
    ["x-number", {}, "integer", 42]
  ]
]`

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(exampleCard))
	card, err := r.ReadCard()
	require.NoError(t, err)
	require.Len(t, card.Properties, 11)

	fn := card.Properties[1]
	assert.Equal(t, "fn", fn.Name)
	assert.Equal(t, "text", fn.Type)
	assert.Equal(t, "Simon Perreault", fn.Value.AsSingle())

	n := card.Properties[2]
	assert.Equal(t, [][]string{
		{"Perreault"},
		{"Simon"},
		{},
		{},
		{"ing. jr", "M.Sc."},
	}, n.Value.AsStructured())

	email := card.Properties[6]
	assert.ElementsMatch(t, []Param{
		{Name: "type", Values: []string{"work"}},
		{Name: "group", Values: []string{"item1"}},
	}, email.Params)

	tel := card.Properties[7]
	assert.ElementsMatch(t, []Param{
		{Name: "type", Values: []string{"work", "voice"}},
		{Name: "pref", Values: []string{"1"}},
	}, tel.Params)

	categories := card.Properties[9]
	assert.Equal(t, []string{"computers", "cameras"}, categories.Value.AsMulti())

	number := card.Properties[10]
	assert.Equal(t, "42", number.Value.AsSingle())

	_, err = r.ReadCard()
	assert.Equal(t, io.EOF, err)
}

func TestReader_multipleCards(t *testing.T) {
	doc := `[
		["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "A"]]],
		["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "B"]]]
	]`
	r := NewReader(strings.NewReader(doc))

	var names []string
	for {
		card, err := r.ReadCard()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, card.Properties[1].Value.AsSingle())
	}
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestReader_invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{"not-json", `["vcard", [`},
		{"not-an-array", `{"vcard": []}`},
		{"wrong-tag", `["vcalendar", []]`},
		{"short-row", `["vcard", [["fn", {}, "text"]]]`},
		{"params-not-object", `["vcard", [["fn", [], "text", "A"]]]`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tc.doc)).ReadCard()
			assert.Error(t, err)
			assert.NotEqual(t, io.EOF, err)
		})
	}
}

func TestWriter(t *testing.T) {
	var sb strings.Builder
	w := NewWriter(&sb)
	err := w.WriteCard(&Card{Properties: []Property{
		{Name: "VERSION", Type: "text", Value: Single("4.0")},
		{Name: "fn", Type: "text", Value: Single("John")},
		{
			Name:  "n",
			Type:  "text",
			Value: Structured([]string{"Doe"}, []string{"John"}, nil, []string{"Dr.", "Prof."}),
		},
		{
			Name:   "tel",
			Params: []Param{{Name: "TYPE", Values: []string{"home", "voice"}}, {Name: "pref", Values: []string{"1"}}},
			Type:   "uri",
			Value:  Single("tel:+1-555-0100"),
		},
		{Name: "categories", Type: "text", Value: Multi("a", "b")},
		{Name: "x-thing", Type: "", Value: Single("raw")},
		{Name: "geo", Type: "float", Value: Single(1.5)},
	}})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	want := `["vcard",[` +
		`["version",{},"text","4.0"],` +
		`["fn",{},"text","John"],` +
		`["n",{},"text",["Doe","John","",["Dr.","Prof."]]],` +
		`["tel",{"type":["home","voice"],"pref":"1"},"uri","tel:+1-555-0100"],` +
		`["categories",{},"text","a","b"],` +
		`["x-thing",{},"unknown","raw"],` +
		`["geo",{},"float",1.5]` +
		"]]\n"
	assert.Equal(t, want, sb.String())
}

func TestWriter_roundTrip(t *testing.T) {
	var sb strings.Builder
	w := NewWriter(&sb)
	w.Indent = true
	for _, name := range []string{"A", "B"} {
		require.NoError(t, w.WriteCard(&Card{Properties: []Property{
			{Name: "fn", Type: "text", Value: Single(name)},
			{Name: "x-obj", Type: "unknown", Value: Object(map[string]string{"a.b": "c"})},
		}}))
	}
	require.NoError(t, w.Close())

	r := NewReader(strings.NewReader(sb.String()))
	for _, name := range []string{"A", "B"} {
		card, err := r.ReadCard()
		require.NoError(t, err)
		require.Len(t, card.Properties, 2)
		assert.Equal(t, name, card.Properties[0].Value.AsSingle())
		assert.Equal(t, map[string]string{"a.b": "c"}, card.Properties[1].Value.AsObject())
	}
	_, err := r.ReadCard()
	assert.Equal(t, io.EOF, err)
}

func TestWriter_empty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, NewWriter(&sb).Close())
	assert.Equal(t, "[]\n", sb.String())
}

func TestValue(t *testing.T) {
	v := Structured([]string{"a"}, nil, []string{"b", "c"})
	assert.Equal(t, "a", v.AsSingle())
	assert.Equal(t, []string{"a", "", "b", "c"}, v.AsMulti())
	assert.Equal(t, [][]string{{"a"}, {}, {"b", "c"}}, v.AsStructured())

	// a list of scalars is read as a list of components too
	flat := Multi("x", "", "y")
	assert.Equal(t, [][]string{{"x"}, {}, {"y"}}, flat.AsStructured())

	assert.Equal(t, "", (&Value{}).AsSingle())
	assert.Equal(t, map[string]string{}, Single("x").AsObject())
}
