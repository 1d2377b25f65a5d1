package vcardio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-vcardio/hcard"
	"github.com/emersion/go-vcardio/jcard"
	"github.com/emersion/go-vcardio/value"
	"github.com/emersion/go-vcardio/xcard"
)

func (n *StructuredName) components() [][]string {
	return [][]string{n.Family, n.Given, n.Additional, n.Prefixes, n.Suffixes}
}

func (n *StructuredName) setComponents(components [][]string) {
	it := value.NewStructuredIterator(components)
	n.Family = it.NextComponent()
	n.Given = it.NextComponent()
	n.Additional = it.NextComponent()
	n.Prefixes = it.NextComponent()
	n.Suffixes = it.NextComponent()
}

func (adr *Address) components() [][]string {
	return [][]string{
		adr.POBoxes,
		adr.Extended,
		adr.Streets,
		adr.Localities,
		adr.Regions,
		adr.PostalCodes,
		adr.Countries,
	}
}

func (adr *Address) setComponents(components [][]string) {
	it := value.NewStructuredIterator(components)
	adr.POBoxes = it.NextComponent()
	adr.Extended = it.NextComponent()
	adr.Streets = it.NextComponent()
	adr.Localities = it.NextComponent()
	adr.Regions = it.NextComponent()
	adr.PostalCodes = it.NextComponent()
	adr.Countries = it.NextComponent()
}

// structuredScribe handles properties whose value is a fixed list of
// components, each holding a list of text values.
type structuredScribe[T any, PT interface {
	*T
	Property
	components() [][]string
	setComponents([][]string)
}] struct {
	scribeBase
	// element names for xCard, class names for hCard
	xmlNames    []string
	htmlClasses []string

	onParse   func(p PT, params *Parameters)
	onPrepare func(p PT, params *Parameters, ctx *WriteContext)
}

func (s *structuredScribe[T, PT]) get(p Property) (PT, error) {
	t, ok := p.(PT)
	if !ok {
		return nil, s.wrongType(p)
	}
	return t, nil
}

func (s *structuredScribe[T, PT]) parsed(components [][]string, params *Parameters) ParseResult {
	var t T
	pt := PT(&t)
	pt.setComponents(components)
	if s.onParse != nil {
		s.onParse(pt, params)
	}
	return &Parsed{Property: pt}
}

func (s *structuredScribe[T, PT]) PrepareParams(p Property, params *Parameters, ctx *WriteContext) {
	if t, err := s.get(p); err == nil && s.onPrepare != nil {
		s.onPrepare(t, params, ctx)
	}
}

func (s *structuredScribe[T, PT]) WriteText(p Property, ctx *WriteContext) (string, error) {
	t, err := s.get(p)
	if err != nil {
		return "", err
	}
	return value.JoinStructured(t.components(), ctx.IncludeTrailingSemicolons), nil
}

func (s *structuredScribe[T, PT]) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parsed(value.ParseStructured(val), params)
}

func (s *structuredScribe[T, PT]) WriteJSON(p Property) (*jcard.Value, error) {
	t, err := s.get(p)
	if err != nil {
		return nil, err
	}
	return jcard.Structured(t.components()...), nil
}

func (s *structuredScribe[T, PT]) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parsed(v.AsStructured(), params)
}

func (s *structuredScribe[T, PT]) WriteXML(p Property, el *xcard.Element) error {
	t, err := s.get(p)
	if err != nil {
		return err
	}
	for i, c := range t.components() {
		el.Append(s.xmlNames[i], c...)
	}
	return nil
}

func (s *structuredScribe[T, PT]) ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	components := make([][]string, len(s.xmlNames))
	for i, name := range s.xmlNames {
		components[i] = nonEmpty(el.All(name))
	}
	return s.parsed(components, params)
}

func (s *structuredScribe[T, PT]) WriteHTML(p Property, el *hcard.Element) error {
	t, err := s.get(p)
	if err != nil {
		return err
	}
	for i, c := range t.components() {
		for _, v := range c {
			el.Append(s.htmlClasses[i], v)
		}
	}
	return nil
}

func (s *structuredScribe[T, PT]) ParseHTML(el *hcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	components := make([][]string, len(s.htmlClasses))
	for i, class := range s.htmlClasses {
		components[i] = nonEmpty(el.Values(class))
	}
	return s.parsed(components, params)
}

func nonEmpty(values []string) []string {
	l := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			l = append(l, v)
		}
	}
	return l
}

func newNameScribe() *structuredScribe[StructuredName, *StructuredName] {
	return &structuredScribe[StructuredName, *StructuredName]{
		scribeBase:  newScribeBase[StructuredName]("N", typesOf(DataTypeText)),
		xmlNames:    []string{"surname", "given", "additional", "prefix", "suffix"},
		htmlClasses: []string{"family-name", "given-name", "additional-name", "honorific-prefix", "honorific-suffix"},
	}
}

func newAddressScribe() *structuredScribe[Address, *Address] {
	return &structuredScribe[Address, *Address]{
		scribeBase:  newScribeBase[Address]("ADR", typesOf(DataTypeText)),
		xmlNames:    []string{"pobox", "ext", "street", "locality", "region", "code", "country"},
		htmlClasses: []string{"post-office-box", "extended-address", "street-address", "locality", "region", "postal-code", "country-name"},
		onParse: func(adr *Address, params *Parameters) {
			if label := params.Get(ParamLabel); label != "" {
				adr.Label = label
				params.Del(ParamLabel)
			}
		},
		onPrepare: func(adr *Address, params *Parameters, ctx *WriteContext) {
			if adr.Label != "" && ctx.Version == V40 {
				params.Set(ParamLabel, adr.Label)
			}
		},
	}
}

// orgScribe handles ORG. Components are single text values.
type orgScribe struct {
	scribeBase
}

func (s *orgScribe) get(p Property) (*Organization, error) {
	org, ok := p.(*Organization)
	if !ok {
		return nil, s.wrongType(p)
	}
	return org, nil
}

func (s *orgScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	org, err := s.get(p)
	if err != nil {
		return "", err
	}
	return value.JoinSemiStructured(org.Values, true), nil
}

func (s *orgScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return &Parsed{Property: &Organization{Values: value.SplitSemiStructured(val, -1)}}
}

func (s *orgScribe) WriteJSON(p Property) (*jcard.Value, error) {
	org, err := s.get(p)
	if err != nil {
		return nil, err
	}
	if len(org.Values) == 1 {
		return jcard.Single(org.Values[0]), nil
	}
	components := make([][]string, len(org.Values))
	for i, v := range org.Values {
		components[i] = []string{v}
	}
	return jcard.Structured(components...), nil
}

func (s *orgScribe) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	var values []string
	for _, c := range v.AsStructured() {
		values = append(values, strings.Join(c, ","))
	}
	return &Parsed{Property: &Organization{Values: values}}
}

func (s *orgScribe) WriteXML(p Property, el *xcard.Element) error {
	org, err := s.get(p)
	if err != nil {
		return err
	}
	el.Append(string(DataTypeText), org.Values...)
	return nil
}

func (s *orgScribe) ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	return &Parsed{Property: &Organization{Values: el.All(string(DataTypeText))}}
}

func (s *orgScribe) WriteHTML(p Property, el *hcard.Element) error {
	org, err := s.get(p)
	if err != nil {
		return err
	}
	for i, v := range org.Values {
		class := "organization-unit"
		if i == 0 {
			class = "organization-name"
		}
		el.Append(class, v)
	}
	return nil
}

func (s *orgScribe) ParseHTML(el *hcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	name := el.Values("organization-name")
	if len(name) == 0 {
		return &Parsed{Property: &Organization{Values: []string{el.Value()}}}
	}
	values := append(name[:1], el.Values("organization-unit")...)
	return &Parsed{Property: &Organization{Values: values}}
}

// genderScribe handles GENDER: a sex component and a free-form identity.
type genderScribe struct {
	scribeBase
}

func (s *genderScribe) get(p Property) (*Gender, error) {
	g, ok := p.(*Gender)
	if !ok {
		return nil, s.wrongType(p)
	}
	return g, nil
}

func (s *genderScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	g, err := s.get(p)
	if err != nil {
		return "", err
	}
	return value.JoinSemiStructured([]string{g.Sex, g.Text}, false), nil
}

func (s *genderScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	it := value.NewStructuredIterator(nil)
	if parts := value.SplitSemiStructured(val, 2); len(parts) > 0 {
		components := make([][]string, len(parts))
		for i, p := range parts {
			components[i] = []string{p}
		}
		it = value.NewStructuredIterator(components)
	}
	return &Parsed{Property: &Gender{Sex: it.NextValue(), Text: it.NextValue()}}
}

func (s *genderScribe) WriteJSON(p Property) (*jcard.Value, error) {
	g, err := s.get(p)
	if err != nil {
		return nil, err
	}
	if g.Text == "" {
		return jcard.Single(g.Sex), nil
	}
	return jcard.Structured([]string{g.Sex}, []string{g.Text}), nil
}

func (s *genderScribe) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	it := value.NewStructuredIterator(v.AsStructured())
	return &Parsed{Property: &Gender{Sex: it.NextValue(), Text: it.NextValue()}}
}

func (s *genderScribe) WriteXML(p Property, el *xcard.Element) error {
	g, err := s.get(p)
	if err != nil {
		return err
	}
	el.Append("sex", g.Sex)
	if g.Text != "" {
		el.Append("identity", g.Text)
	}
	return nil
}

func (s *genderScribe) ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	sex, _ := el.First("sex")
	text, _ := el.First("identity")
	return &Parsed{Property: &Gender{Sex: sex, Text: text}}
}

// clientPIDMapScribe handles CLIENTPIDMAP: a source ID and a URI.
type clientPIDMapScribe struct {
	scribeBase
}

func (s *clientPIDMapScribe) get(p Property) (*ClientPIDMap, error) {
	m, ok := p.(*ClientPIDMap)
	if !ok {
		return nil, s.wrongType(p)
	}
	return m, nil
}

func (s *clientPIDMapScribe) parse(id, uri string) ParseResult {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return &Fallback{Reason: fmt.Sprintf("invalid source ID %q", id)}
	}
	return &Parsed{Property: &ClientPIDMap{ID: n, URI: uri}}
}

func (s *clientPIDMapScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	m, err := s.get(p)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(m.ID) + ";" + m.URI, nil
}

func (s *clientPIDMapScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	parts := value.SplitSemiStructured(val, 2)
	if len(parts) != 2 {
		return &Fallback{Reason: "expected a source ID and a URI"}
	}
	return s.parse(parts[0], parts[1])
}

func (s *clientPIDMapScribe) WriteJSON(p Property) (*jcard.Value, error) {
	m, err := s.get(p)
	if err != nil {
		return nil, err
	}
	return &jcard.Value{Nodes: []jcard.Node{{Array: []jcard.Node{
		{Value: float64(m.ID)},
		{Value: m.URI},
	}}}}, nil
}

func (s *clientPIDMapScribe) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	it := value.NewStructuredIterator(v.AsStructured())
	return s.parse(it.NextValue(), it.NextValue())
}

func (s *clientPIDMapScribe) WriteXML(p Property, el *xcard.Element) error {
	m, err := s.get(p)
	if err != nil {
		return err
	}
	el.Append("sourceid", strconv.Itoa(m.ID))
	el.Append(string(DataTypeURI), m.URI)
	return nil
}

func (s *clientPIDMapScribe) ParseXML(el *xcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	id, _ := el.First("sourceid")
	uri, _ := el.First(string(DataTypeURI))
	return s.parse(id, uri)
}

// geoScribe handles GEO: "lat;lon" in vCard 2.1 and 3.0, a "geo:" URI in
// vCard 4.0.
type geoScribe struct {
	scribeBase
}

func (s *geoScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	geo, ok := p.(*Geo)
	if !ok {
		return "", s.wrongType(p)
	}
	lat, lon := value.FormatFloat(geo.Latitude), value.FormatFloat(geo.Longitude)
	if ctx.Version == V40 {
		return "geo:" + lat + "," + lon, nil
	}
	return lat + ";" + lon, nil
}

func (s *geoScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	val = strings.TrimSpace(value.Unescape(val))

	var parts []string
	if len(val) >= 4 && strings.EqualFold(val[:4], "geo:") {
		coords := val[4:]
		if i := strings.IndexByte(coords, ';'); i >= 0 {
			coords = coords[:i]
		}
		parts = strings.Split(coords, ",")
	} else {
		parts = strings.Split(val, ";")
		if len(parts) != 2 {
			parts = strings.Split(val, ",")
		}
	}
	if len(parts) < 2 {
		return &Fallback{Reason: fmt.Sprintf("invalid coordinates %q", val)}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return &Fallback{Reason: fmt.Sprintf("invalid latitude %q", parts[0])}
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return &Fallback{Reason: fmt.Sprintf("invalid longitude %q", parts[1])}
	}
	return &Parsed{Property: &Geo{Latitude: lat, Longitude: lon}}
}

func (s *geoScribe) WriteHTML(p Property, el *hcard.Element) error {
	geo, ok := p.(*Geo)
	if !ok {
		return s.wrongType(p)
	}
	el.Append("latitude", value.FormatFloat(geo.Latitude))
	el.Append("longitude", value.FormatFloat(geo.Longitude))
	return nil
}

func (s *geoScribe) ParseHTML(el *hcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	lat := el.Values("latitude")
	lon := el.Values("longitude")
	if len(lat) > 0 && len(lon) > 0 {
		return s.ParseText(lat[0]+";"+lon[0], "", params, ctx)
	}
	return s.ParseText(el.Value(), "", params, ctx)
}
