package vcardio

import (
	"errors"
	"reflect"

	"github.com/emersion/go-vcardio/hcard"
	"github.com/emersion/go-vcardio/jcard"
	"github.com/emersion/go-vcardio/value"
	"github.com/emersion/go-vcardio/xcard"
)

// ErrSkipProperty can be returned by Scribe.WriteText when a property can't
// be represented at the target version. The property is left out and a
// warning is reported.
var ErrSkipProperty = errors.New("vcardio: property skipped")

// ParseContext describes the property being parsed.
type ParseContext struct {
	Version Version
	// Line is the line number of the property, zero when unknown.
	Line int
	// Name is the property name as it appears in the input.
	Name string
}

// WriteContext describes the document being written.
type WriteContext struct {
	Version Version
	// Card is the document the property belongs to. It may be nil.
	Card *Card
	// IncludeTrailingSemicolons keeps empty trailing components of
	// structured values.
	IncludeTrailingSemicolons bool
}

// Scribe converts a property type to and from its wire representations.
// Scribes must be stateless: a single scribe is shared by all readers and
// writers using a Registry.
//
// Only the text path is required. The JSON, XML and HTML paths are derived
// from it unless the scribe implements JSONScribe, XMLScribe or HTMLScribe.
type Scribe interface {
	// PropertyName returns the name of the property, e.g. "FN".
	PropertyName() string
	// PropertyType returns the Go type of the property, e.g.
	// reflect.TypeOf((*FormattedName)(nil)).
	PropertyType() reflect.Type
	// DefaultDataType returns the data type assumed when no VALUE parameter
	// is present. It may be empty.
	DefaultDataType(v Version) DataType
	// WriteText formats the property value. The value must be escaped.
	WriteText(p Property, ctx *WriteContext) (string, error)
	// ParseText parses a property value. dt is the value of the VALUE
	// parameter, empty if absent. The scribe may consume parameters by
	// removing them from params.
	ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult
}

// DataTyper is implemented by scribes whose data type depends on the
// property value.
type DataTyper interface {
	DataType(p Property, v Version) DataType
}

// ParamPreparer is implemented by scribes which need to adjust parameters
// before writing. params is a copy owned by the caller.
type ParamPreparer interface {
	PrepareParams(p Property, params *Parameters, ctx *WriteContext)
}

// VersionSupporter is implemented by scribes for properties which only
// exist in some versions.
type VersionSupporter interface {
	SupportedVersions() []Version
}

// EmbeddedWriter is implemented by scribes for properties holding a nested
// vCard.
type EmbeddedWriter interface {
	EmbeddedCard(p Property) *Card
}

// JSONScribe is implemented by scribes with a dedicated jCard encoding.
type JSONScribe interface {
	WriteJSON(p Property) (*jcard.Value, error)
	ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult
}

// XMLScribe is implemented by scribes with a dedicated xCard encoding.
type XMLScribe interface {
	WriteXML(p Property, el *xcard.Element) error
	ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult
}

// HTMLScribe is implemented by scribes with a dedicated hCard encoding.
type HTMLScribe interface {
	WriteHTML(p Property, el *hcard.Element) error
	ParseHTML(el *hcard.Element, params *Parameters, ctx *ParseContext) ParseResult
}

// ValueSink receives typed values. It's implemented by *xcard.Element and
// used by the XML and JSON encodings derived from the text encoding.
type ValueSink interface {
	Append(dataType string, values ...string)
}

// ParseResult is the outcome of parsing a property value. It's one of
// *Parsed, *Skipped, *Fallback or *Embedded.
type ParseResult interface {
	parseResult()
}

// Parsed is a successfully parsed property, possibly with warnings.
type Parsed struct {
	Property Property
	Warnings []string
}

// Skipped means the value is meaningless: the property is dropped.
type Skipped struct {
	Reason string
}

// Fallback means the value couldn't be interpreted: it's kept verbatim as a
// RawProperty.
type Fallback struct {
	Reason string
}

// Embedded means the value is a nested vCard. If Text is non-empty it holds
// the nested vCard, otherwise the nested vCard is expected to follow the
// property in the stream. Inject is called with the parsed vCard, or with
// nil if none could be found.
type Embedded struct {
	Property Property
	Text     string
	Inject   func(card *Card)
	Warnings []string
}

func (*Parsed) parseResult()   {}
func (*Skipped) parseResult()  {}
func (*Fallback) parseResult() {}
func (*Embedded) parseResult() {}

func dataTypeOf(s Scribe, p Property, v Version) DataType {
	if dt, ok := s.(DataTyper); ok {
		return dt.DataType(p, v)
	}
	return s.DefaultDataType(v)
}

func supportsVersion(s Scribe, v Version) bool {
	vs, ok := s.(VersionSupporter)
	if !ok {
		return true
	}
	for _, sv := range vs.SupportedVersions() {
		if sv == v {
			return true
		}
	}
	return false
}

func jsonDataType(dt DataType) string {
	if dt == "" {
		return string(DataTypeUnknown)
	}
	return string(dt)
}

// appendValues derives typed values from the text encoding.
func appendValues(s Scribe, p Property, sink ValueSink) error {
	ctx := &WriteContext{Version: V40}
	text, err := s.WriteText(p, ctx)
	if err != nil {
		return err
	}
	sink.Append(jsonDataType(dataTypeOf(s, p, V40)), value.Unescape(text))
	return nil
}

type jsonSink struct {
	v *jcard.Value
}

func (sink *jsonSink) Append(dataType string, values ...string) {
	for _, v := range values {
		sink.v.Nodes = append(sink.v.Nodes, jcard.Node{Value: v})
	}
}

func writeJSON(s Scribe, p Property) (*jcard.Value, error) {
	if js, ok := s.(JSONScribe); ok {
		return js.WriteJSON(p)
	}
	sink := jsonSink{v: &jcard.Value{}}
	if err := appendValues(s, p, &sink); err != nil {
		return nil, err
	}
	return sink.v, nil
}

func parseJSON(s Scribe, v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	if js, ok := s.(JSONScribe); ok {
		return js.ParseJSON(v, dt, params, ctx)
	}
	return s.ParseText(jsonToText(v), dt, params, ctx)
}

// jsonToText converts a jCard value back to its text encoding.
func jsonToText(v *jcard.Value) string {
	if len(v.Nodes) > 1 {
		return value.JoinList(v.AsMulti())
	}
	if len(v.Nodes) == 1 && v.Nodes[0].Array != nil {
		return value.JoinStructured(v.AsStructured(), true)
	}
	return value.Escape(v.AsSingle())
}

func writeXML(s Scribe, p Property, el *xcard.Element) error {
	if xs, ok := s.(XMLScribe); ok {
		return xs.WriteXML(p, el)
	}
	return appendValues(s, p, el)
}

func parseXML(s Scribe, el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	if xs, ok := s.(XMLScribe); ok {
		return xs.ParseXML(el, params, ctx)
	}
	if len(el.Values) == 0 {
		return &Skipped{Reason: "no value"}
	}
	first := el.Values[0]
	dt := ParseDataType(first.Type)
	if dt == DataTypeUnknown {
		dt = ""
	}
	return s.ParseText(value.Escape(first.Text), dt, params, ctx)
}

func writeHTML(s Scribe, p Property, el *hcard.Element) error {
	if hs, ok := s.(HTMLScribe); ok {
		return hs.WriteHTML(p, el)
	}
	text, err := s.WriteText(p, &WriteContext{Version: V30})
	if err != nil {
		return err
	}
	el.SetText(value.Unescape(text))
	return nil
}

func parseHTML(s Scribe, el *hcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	if hs, ok := s.(HTMLScribe); ok {
		return hs.ParseHTML(el, params, ctx)
	}
	return s.ParseText(value.Escape(el.Value()), "", params, ctx)
}
