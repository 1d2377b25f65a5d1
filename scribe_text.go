package vcardio

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/emersion/go-vcardio/jcard"
	"github.com/emersion/go-vcardio/value"
	"github.com/emersion/go-vcardio/xcard"
	"github.com/google/uuid"
)

var allVersions = []Version{V21, V30, V40}

// scribeBase implements the parts of Scribe shared by the built-in scribes.
type scribeBase struct {
	name string
	typ  reflect.Type
	// default data type for vCard 2.1, 3.0 and 4.0
	types    [3]DataType
	versions []Version
}

func newScribeBase[T any](name string, types [3]DataType, versions ...Version) scribeBase {
	if len(versions) == 0 {
		versions = allVersions
	}
	return scribeBase{
		name:     name,
		typ:      reflect.TypeOf((*T)(nil)),
		types:    types,
		versions: versions,
	}
}

func typesOf(dt DataType) [3]DataType {
	return [3]DataType{dt, dt, dt}
}

func (s *scribeBase) PropertyName() string {
	return s.name
}

func (s *scribeBase) PropertyType() reflect.Type {
	return s.typ
}

func (s *scribeBase) DefaultDataType(v Version) DataType {
	if v < V21 || v > V40 {
		return ""
	}
	return s.types[v-V21]
}

func (s *scribeBase) SupportedVersions() []Version {
	return s.versions
}

// dataType returns the data type of a parsed value: the VALUE parameter if
// any, the default one otherwise.
func (s *scribeBase) dataType(dt DataType, v Version) DataType {
	if dt != "" {
		return dt
	}
	return s.DefaultDataType(v)
}

func (s *scribeBase) wrongType(p Property) error {
	return fmt.Errorf("vcardio: %v scribe can't write %T", s.name, p)
}

type textLike interface {
	~struct {
		PropertyBase
		Value string
	}
}

// textScribe handles properties holding a single text or URI value. Text
// values are escaped, URIs are written verbatim. Parsed values are always
// unescaped: some producers escape URIs too.
type textScribe[T textLike, PT interface {
	*T
	Property
}] struct {
	scribeBase
	// check returns warnings about a parsed value
	check func(val string) []string
}

func newTextScribe[T textLike, PT interface {
	*T
	Property
}](name string, types [3]DataType, versions ...Version) *textScribe[T, PT] {
	return &textScribe[T, PT]{scribeBase: newScribeBase[T](name, types, versions...)}
}

func (s *textScribe[T, PT]) WriteText(p Property, ctx *WriteContext) (string, error) {
	t, ok := p.(PT)
	if !ok {
		return "", s.wrongType(p)
	}
	v := TextProperty(*t).Value
	if s.DefaultDataType(ctx.Version) == DataTypeText {
		v = value.Escape(v)
	}
	return v, nil
}

func (s *textScribe[T, PT]) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	v := value.Unescape(val)
	t := T(TextProperty{Value: v})
	res := &Parsed{Property: PT(&t)}
	if s.check != nil {
		res.Warnings = s.check(v)
	}
	return res
}

func (s *textScribe[T, PT]) WriteJSON(p Property) (*jcard.Value, error) {
	t, ok := p.(PT)
	if !ok {
		return nil, s.wrongType(p)
	}
	return jcard.Single(TextProperty(*t).Value), nil
}

func (s *textScribe[T, PT]) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.ParseText(value.Escape(v.AsSingle()), dt, params, ctx)
}

func (s *textScribe[T, PT]) WriteXML(p Property, el *xcard.Element) error {
	t, ok := p.(PT)
	if !ok {
		return s.wrongType(p)
	}
	el.Append(string(s.DefaultDataType(V40)), TextProperty(*t).Value)
	return nil
}

func (s *textScribe[T, PT]) ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	v, ok := el.First(string(s.DefaultDataType(V40)))
	if !ok {
		if len(el.Values) == 0 {
			return &Skipped{Reason: "no value"}
		}
		v = el.Values[0].Text
	}
	return s.ParseText(value.Escape(v), "", params, ctx)
}

func checkUID(v string) []string {
	if len(v) < 9 || !strings.EqualFold(v[:9], "urn:uuid:") {
		return nil
	}
	if _, err := uuid.Parse(v[9:]); err != nil {
		return []string{fmt.Sprintf("invalid UUID %q", v[9:])}
	}
	return nil
}

type listLike interface {
	~struct {
		PropertyBase
		Values []string
	}
}

// listScribe handles properties holding a comma-separated list of text
// values.
type listScribe[T listLike, PT interface {
	*T
	Property
}] struct {
	scribeBase
}

func newListScribe[T listLike, PT interface {
	*T
	Property
}](name string, versions ...Version) *listScribe[T, PT] {
	return &listScribe[T, PT]{scribeBase: newScribeBase[T](name, typesOf(DataTypeText), versions...)}
}

func (s *listScribe[T, PT]) values(p Property) ([]string, error) {
	t, ok := p.(PT)
	if !ok {
		return nil, s.wrongType(p)
	}
	return ListProperty(*t).Values, nil
}

func (s *listScribe[T, PT]) parsed(values []string) ParseResult {
	t := T(ListProperty{Values: values})
	return &Parsed{Property: PT(&t)}
}

func (s *listScribe[T, PT]) WriteText(p Property, ctx *WriteContext) (string, error) {
	values, err := s.values(p)
	if err != nil {
		return "", err
	}
	return value.JoinList(values), nil
}

func (s *listScribe[T, PT]) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parsed(value.SplitList(val))
}

func (s *listScribe[T, PT]) WriteJSON(p Property) (*jcard.Value, error) {
	values, err := s.values(p)
	if err != nil {
		return nil, err
	}
	return jcard.Multi(values...), nil
}

func (s *listScribe[T, PT]) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parsed(v.AsMulti())
}

func (s *listScribe[T, PT]) WriteXML(p Property, el *xcard.Element) error {
	values, err := s.values(p)
	if err != nil {
		return err
	}
	el.Append(string(DataTypeText), values...)
	return nil
}

func (s *listScribe[T, PT]) ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parsed(el.All(string(DataTypeText)))
}

// rawScribe handles RawProperty. The value is kept as-is in all the
// encodings.
type rawScribe struct{}

var rawPropertyType = reflect.TypeOf((*RawProperty)(nil))

func (rawScribe) PropertyName() string {
	return ""
}

func (rawScribe) PropertyType() reflect.Type {
	return rawPropertyType
}

func (rawScribe) DefaultDataType(v Version) DataType {
	return ""
}

func (rawScribe) DataType(p Property, v Version) DataType {
	if raw, ok := p.(*RawProperty); ok {
		return raw.DataType
	}
	return ""
}

func (rawScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	raw, ok := p.(*RawProperty)
	if !ok {
		return "", fmt.Errorf("vcardio: raw scribe can't write %T", p)
	}
	return raw.Value, nil
}

func (rawScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return &Parsed{Property: &RawProperty{Name: ctx.Name, Value: val, DataType: dt}}
}

func (s rawScribe) WriteJSON(p Property) (*jcard.Value, error) {
	val, err := s.WriteText(p, nil)
	if err != nil {
		return nil, err
	}
	return jcard.Single(val), nil
}

func (s rawScribe) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	var val string
	if len(v.Nodes) > 1 {
		val = strings.Join(v.AsMulti(), ",")
	} else {
		val = v.AsSingle()
	}
	return s.ParseText(val, dt, params, ctx)
}

func (s rawScribe) WriteXML(p Property, el *xcard.Element) error {
	val, err := s.WriteText(p, nil)
	if err != nil {
		return err
	}
	el.Append(jsonDataType(s.DataType(p, V40)), val)
	return nil
}

func (s rawScribe) ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	if len(el.Values) == 0 {
		return s.ParseText("", "", params, ctx)
	}
	first := el.Values[0]
	dt := ParseDataType(first.Type)
	if dt == DataTypeUnknown {
		dt = ""
	}
	return s.ParseText(first.Text, dt, params, ctx)
}
