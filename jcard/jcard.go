package jcard

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// MIMEType is the MIME type of jCard documents.
const MIMEType = "application/vcard+json"

// ParamGroup is the parameter holding the property group.
const ParamGroup = "group"

// Param is a property parameter. Names are lower-case.
type Param struct {
	Name   string
	Values []string
}

// Property is a jCard property row: [name, params, type, value...].
type Property struct {
	Name   string
	Params []Param
	Type   string
	Value  *Value
}

// Card is a jCard vCard: ["vcard", [property...]].
type Card struct {
	Properties []Property
}

// Reader reads jCard documents. A document is either a single vCard or an
// array of vCards.
type Reader struct {
	r     io.Reader
	cards []gjson.Result
	read  bool
}

// NewReader creates a new Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) load() error {
	r.read = true
	b, err := io.ReadAll(r.r)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(b) {
		return fmt.Errorf("jcard: invalid JSON")
	}

	root := gjson.ParseBytes(b)
	if !root.IsArray() {
		return fmt.Errorf("jcard: expected an array")
	}
	if first := root.Get("0"); first.Type == gjson.String {
		r.cards = []gjson.Result{root}
	} else {
		r.cards = root.Array()
	}
	return nil
}

// ReadCard reads the next vCard. It returns io.EOF when there are no more.
func (r *Reader) ReadCard() (*Card, error) {
	if !r.read {
		if err := r.load(); err != nil {
			return nil, err
		}
	}
	if len(r.cards) == 0 {
		return nil, io.EOF
	}
	res := r.cards[0]
	r.cards = r.cards[1:]
	return parseCard(res)
}

func parseCard(res gjson.Result) (*Card, error) {
	arr := res.Array()
	if len(arr) != 2 || !strings.EqualFold(arr[0].String(), "vcard") || !arr[1].IsArray() {
		return nil, fmt.Errorf("jcard: expected [\"vcard\", [...]]")
	}

	card := &Card{}
	for i, row := range arr[1].Array() {
		prop, err := parseProperty(row)
		if err != nil {
			return nil, fmt.Errorf("jcard: property %v: %w", i, err)
		}
		card.Properties = append(card.Properties, *prop)
	}
	return card, nil
}

func parseProperty(row gjson.Result) (*Property, error) {
	if !row.IsArray() {
		return nil, fmt.Errorf("expected an array")
	}
	cols := row.Array()
	if len(cols) < 4 {
		return nil, fmt.Errorf("expected at least 4 elements, got %v", len(cols))
	}
	if cols[0].Type != gjson.String || cols[2].Type != gjson.String {
		return nil, fmt.Errorf("name and type must be strings")
	}
	if !cols[1].IsObject() {
		return nil, fmt.Errorf("parameters must be an object")
	}

	prop := &Property{
		Name:  strings.ToLower(cols[0].Str),
		Type:  strings.ToLower(cols[2].Str),
		Value: &Value{},
	}
	cols[1].ForEach(func(key, val gjson.Result) bool {
		p := Param{Name: strings.ToLower(key.String())}
		if val.IsArray() {
			for _, v := range val.Array() {
				p.Values = append(p.Values, v.String())
			}
		} else {
			p.Values = []string{val.String()}
		}
		prop.Params = append(prop.Params, p)
		return true
	})
	for _, col := range cols[3:] {
		prop.Value.Nodes = append(prop.Value.Nodes, parseNode(col))
	}
	return prop, nil
}

func parseNode(res gjson.Result) Node {
	switch {
	case res.IsArray():
		children := make([]Node, 0)
		for _, child := range res.Array() {
			children = append(children, parseNode(child))
		}
		return Node{Array: children}
	case res.IsObject():
		fields := make(map[string]Node)
		res.ForEach(func(key, val gjson.Result) bool {
			fields[key.String()] = parseNode(val)
			return true
		})
		return Node{Object: fields}
	}

	switch res.Type {
	case gjson.String:
		return Node{Value: res.Str}
	case gjson.Number:
		return Node{Value: res.Num}
	case gjson.True, gjson.False:
		return Node{Value: res.Bool()}
	}
	return Node{}
}

// Writer writes jCard documents. Cards are buffered until Close is called:
// a single card is written as is, several cards are wrapped in an array.
type Writer struct {
	// Indent pretty-prints the document.
	Indent bool

	w     io.Writer
	cards []string
}

// NewWriter creates a new Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteCard adds a vCard to the document.
func (w *Writer) WriteCard(card *Card) error {
	rows := "[]"
	for _, prop := range card.Properties {
		row, err := formatProperty(&prop)
		if err != nil {
			return fmt.Errorf("jcard: property %q: %w", prop.Name, err)
		}
		if rows, err = sjson.SetRaw(rows, "-1", row); err != nil {
			return err
		}
	}

	doc, err := sjson.Set("[]", "-1", "vcard")
	if err != nil {
		return err
	}
	if doc, err = sjson.SetRaw(doc, "-1", rows); err != nil {
		return err
	}
	w.cards = append(w.cards, doc)
	return nil
}

// Close writes the document. It doesn't close the underlying writer.
func (w *Writer) Close() error {
	var doc string
	switch len(w.cards) {
	case 0:
		doc = "[]"
	case 1:
		doc = w.cards[0]
	default:
		doc = "[" + strings.Join(w.cards, ",") + "]"
	}
	w.cards = nil

	b := []byte(doc)
	if w.Indent {
		b = pretty.Pretty(b)
	} else {
		b = append(b, '\n')
	}
	_, err := w.w.Write(b)
	return err
}

func formatProperty(prop *Property) (string, error) {
	params := "{}"
	for _, p := range prop.Params {
		var err error
		key := escapeKey(strings.ToLower(p.Name))
		if len(p.Values) == 1 {
			params, err = sjson.Set(params, key, p.Values[0])
		} else {
			params, err = sjson.Set(params, key, p.Values)
		}
		if err != nil {
			return "", err
		}
	}

	row, err := sjson.Set("[]", "-1", strings.ToLower(prop.Name))
	if err != nil {
		return "", err
	}
	if row, err = sjson.SetRaw(row, "-1", params); err != nil {
		return "", err
	}
	typ := prop.Type
	if typ == "" {
		typ = "unknown"
	}
	if row, err = sjson.Set(row, "-1", typ); err != nil {
		return "", err
	}

	nodes := []Node{{Value: ""}}
	if prop.Value != nil && len(prop.Value.Nodes) > 0 {
		nodes = prop.Value.Nodes
	}
	for _, n := range nodes {
		if row, err = appendNode(row, n); err != nil {
			return "", err
		}
	}
	return row, nil
}

// appendNode appends a node to a JSON array.
func appendNode(arr string, n Node) (string, error) {
	raw, err := formatNode(n)
	if err != nil {
		return "", err
	}
	return sjson.SetRaw(arr, "-1", raw)
}

func formatNode(n Node) (string, error) {
	switch {
	case n.Array != nil:
		arr := "[]"
		for _, child := range n.Array {
			var err error
			if arr, err = appendNode(arr, child); err != nil {
				return "", err
			}
		}
		return arr, nil
	case n.Object != nil:
		keys := make([]string, 0, len(n.Object))
		for k := range n.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := "{}"
		for _, k := range keys {
			raw, err := formatNode(n.Object[k])
			if err != nil {
				return "", err
			}
			if obj, err = sjson.SetRaw(obj, escapeKey(k), raw); err != nil {
				return "", err
			}
		}
		return obj, nil
	}

	// sjson only formats values at a path
	wrapped, err := sjson.Set("[]", "-1", n.Value)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimPrefix(wrapped, "["), "]"), nil
}

var keyEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
	":", `\:`,
)

// escapeKey escapes the characters sjson interprets in paths.
func escapeKey(k string) string {
	return keyEscaper.Replace(k)
}
