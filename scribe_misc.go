package vcardio

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-vcardio/hcard"
	"github.com/emersion/go-vcardio/jcard"
	"github.com/emersion/go-vcardio/value"
)

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// telScribe handles TEL. vCard 4.0 numbers may be "tel:" URIs.
type telScribe struct {
	scribeBase
}

func (s *telScribe) DataType(p Property, v Version) DataType {
	if tel, ok := p.(*Telephone); ok && v == V40 && tel.Text == "" && tel.URI != "" {
		return DataTypeURI
	}
	return DataTypeText
}

func (s *telScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	tel, ok := p.(*Telephone)
	if !ok {
		return "", s.wrongType(p)
	}
	if s.DataType(p, ctx.Version) == DataTypeURI {
		return tel.URI, nil
	}
	return value.Escape(tel.Number()), nil
}

func (s *telScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	v := value.Unescape(val)
	if dt == DataTypeURI || hasPrefixFold(v, "tel:") {
		return &Parsed{Property: &Telephone{URI: v}}
	}
	return &Parsed{Property: &Telephone{Text: v}}
}

// relatedScribe handles RELATED, a URI or free-form text.
type relatedScribe struct {
	scribeBase
}

func (s *relatedScribe) DataType(p Property, v Version) DataType {
	if rel, ok := p.(*Related); ok && rel.URI == "" && rel.Text != "" {
		return DataTypeText
	}
	return DataTypeURI
}

func (s *relatedScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	rel, ok := p.(*Related)
	if !ok {
		return "", s.wrongType(p)
	}
	if s.DataType(p, ctx.Version) == DataTypeText {
		return value.Escape(rel.Text), nil
	}
	return rel.URI, nil
}

func (s *relatedScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	if dt == DataTypeText {
		return &Parsed{Property: &Related{Text: value.Unescape(val)}}
	}
	return &Parsed{Property: &Related{URI: value.Unescape(val)}}
}

// timezoneScribe handles TZ, a UTC offset or free-form text.
type timezoneScribe struct {
	scribeBase
}

func (s *timezoneScribe) DataType(p Property, v Version) DataType {
	if tz, ok := p.(*Timezone); ok && tz.Offset != nil {
		return DataTypeUTCOffset
	}
	return DataTypeText
}

func (s *timezoneScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	tz, ok := p.(*Timezone)
	if !ok {
		return "", s.wrongType(p)
	}
	if tz.Offset != nil {
		return formatOffset(*tz.Offset, ctx.Version != V40), nil
	}
	return value.Escape(tz.Text), nil
}

func (s *timezoneScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	v := value.Unescape(val)
	if s.dataType(dt, ctx.Version) == DataTypeText {
		return &Parsed{Property: &Timezone{Text: v}}
	}
	offset, err := parseOffset(v)
	if err != nil {
		return &Parsed{
			Property: &Timezone{Text: v},
			Warnings: []string{err.Error()},
		}
	}
	return &Parsed{Property: &Timezone{Offset: &offset}}
}

func formatOffset(d time.Duration, extended bool) string {
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	if extended {
		return fmt.Sprintf("%c%02d:%02d", sign, h, m)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}

func parseOffset(s string) (time.Duration, error) {
	invalid := fmt.Errorf("invalid UTC offset %q", s)
	if len(s) < 3 || (s[0] != '+' && s[0] != '-') {
		return 0, invalid
	}
	digits := strings.Replace(s[1:], ":", "", 1)
	if len(digits) != 2 && len(digits) != 4 {
		return 0, invalid
	}
	var n [4]int
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, invalid
		}
		n[i] = int(c - '0')
	}
	d := time.Duration(n[0]*10+n[1])*time.Hour + time.Duration(n[2]*10+n[3])*time.Minute
	if s[0] == '-' {
		d = -d
	}
	return d, nil
}

// floating is the location of date-times without a UTC offset.
var floating = time.FixedZone("", 0)

var dateTimeLayouts = []string{
	"20060102T150405Z0700",
	"2006-01-02T15:04:05Z07:00",
	"20060102T150405Z07:00",
	"2006-01-02T15:04:05Z0700",
	"20060102T1504Z0700",
	"2006-01-02T15:04Z07:00",
}

var floatingLayouts = []string{
	"20060102T150405",
	"2006-01-02T15:04:05",
	"20060102T1504",
	"2006-01-02T15:04",
}

var dateLayouts = []string{"20060102", "2006-01-02"}

// parseDateTime parses a date or a date-time, in basic or extended format.
func parseDateTime(s string) (t time.Time, hasTime bool, err error) {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "Tt") {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, false, nil
			}
		}
		return time.Time{}, false, fmt.Errorf("invalid date %q", s)
	}

	s = strings.ToUpper(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	for _, layout := range floatingLayouts {
		if t, err := time.ParseInLocation(layout, s, floating); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date-time %q", s)
}

// formatDateTime formats a date or a date-time, in basic format unless
// extended is set.
func formatDateTime(t time.Time, hasTime, extended bool) string {
	var layout string
	switch {
	case !hasTime && extended:
		return t.Format("2006-01-02")
	case !hasTime:
		return t.Format("20060102")
	case extended:
		layout = "2006-01-02T15:04:05"
	default:
		layout = "20060102T150405"
	}
	if t.Location() == floating {
		return t.Format(layout)
	}
	if extended {
		return t.Format(layout + "Z07:00")
	}
	return t.Format(layout + "Z0700")
}

type dateLike interface {
	~struct {
		PropertyBase
		Time    time.Time
		HasTime bool
		Text    string
	}
}

// dateScribe handles date properties. vCard 4.0 uses the basic format and
// allows free-form text, older versions use the extended format.
type dateScribe[T dateLike, PT interface {
	*T
	Property
}] struct {
	scribeBase
}

func newDateScribe[T dateLike, PT interface {
	*T
	Property
}](name string, versions ...Version) *dateScribe[T, PT] {
	types := [3]DataType{DataTypeDate, DataTypeDate, DataTypeDateAndOrTime}
	return &dateScribe[T, PT]{scribeBase: newScribeBase[T](name, types, versions...)}
}

func (s *dateScribe[T, PT]) get(p Property) (DateOrTimeProperty, error) {
	t, ok := p.(PT)
	if !ok {
		return DateOrTimeProperty{}, s.wrongType(p)
	}
	return DateOrTimeProperty(*t), nil
}

func (s *dateScribe[T, PT]) DataType(p Property, v Version) DataType {
	d, err := s.get(p)
	switch {
	case err != nil:
		return ""
	case d.Text != "":
		return DataTypeText
	case d.HasTime:
		return DataTypeDateTime
	}
	return DataTypeDate
}

func (s *dateScribe[T, PT]) WriteText(p Property, ctx *WriteContext) (string, error) {
	d, err := s.get(p)
	if err != nil {
		return "", err
	}
	if d.Text != "" {
		if ctx.Version != V40 {
			return "", fmt.Errorf("%w: text %v requires vCard 4.0", ErrSkipProperty, s.name)
		}
		return value.Escape(d.Text), nil
	}
	return formatDateTime(d.Time, d.HasTime, ctx.Version != V40), nil
}

func (s *dateScribe[T, PT]) parse(v string, dt DataType) ParseResult {
	var d DateOrTimeProperty
	if dt == DataTypeText {
		d.Text = v
	} else {
		t, hasTime, err := parseDateTime(v)
		if err != nil {
			return &Fallback{Reason: err.Error()}
		}
		d.Time, d.HasTime = t, hasTime
	}
	t := T(d)
	return &Parsed{Property: PT(&t)}
}

func (s *dateScribe[T, PT]) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parse(value.Unescape(val), dt)
}

func (s *dateScribe[T, PT]) WriteJSON(p Property) (*jcard.Value, error) {
	d, err := s.get(p)
	if err != nil {
		return nil, err
	}
	if d.Text != "" {
		return jcard.Single(d.Text), nil
	}
	return jcard.Single(formatDateTime(d.Time, d.HasTime, true)), nil
}

func (s *dateScribe[T, PT]) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parse(v.AsSingle(), dt)
}

// revisionScribe handles REV, a UTC timestamp.
type revisionScribe struct {
	scribeBase
}

func (s *revisionScribe) get(p Property) (*Revision, error) {
	rev, ok := p.(*Revision)
	if !ok {
		return nil, s.wrongType(p)
	}
	return rev, nil
}

func (s *revisionScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	rev, err := s.get(p)
	if err != nil {
		return "", err
	}
	return formatDateTime(rev.Time.UTC(), true, ctx.Version != V40), nil
}

func (s *revisionScribe) parse(v string) ParseResult {
	t, _, err := parseDateTime(v)
	if err != nil {
		return &Fallback{Reason: err.Error()}
	}
	return &Parsed{Property: &Revision{Time: t}}
}

func (s *revisionScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parse(value.Unescape(val))
}

func (s *revisionScribe) WriteJSON(p Property) (*jcard.Value, error) {
	rev, err := s.get(p)
	if err != nil {
		return nil, err
	}
	return jcard.Single(formatDateTime(rev.Time.UTC(), true, true)), nil
}

func (s *revisionScribe) ParseJSON(v *jcard.Value, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	return s.parse(v.AsSingle())
}

// mediaFormats maps the TYPE values of vCard 2.1 and 3.0 binary properties
// to MIME types.
var mediaFormats = map[string]string{
	"JPEG": "image/jpeg",
	"JPG":  "image/jpeg",
	"PNG":  "image/png",
	"GIF":  "image/gif",
	"BMP":  "image/bmp",
	"TIFF": "image/tiff",
	"WAV":  "audio/wav",
	"MP3":  "audio/mpeg",
	"OGG":  "audio/ogg",
	"AAC":  "audio/aac",
	"PGP":  "application/pgp-keys",
	"GPG":  "application/pgp-keys",
	"X509": "application/x509-ca-cert",
}

func mediaFormat(contentType string) string {
	for format, t := range mediaFormats {
		if t == contentType && format != "JPG" && format != "GPG" {
			return format
		}
	}
	if _, sub, ok := strings.Cut(contentType, "/"); ok {
		return strings.ToUpper(sub)
	}
	return strings.ToUpper(contentType)
}

func isBase64Encoding(enc string) bool {
	return strings.EqualFold(enc, "b") || strings.EqualFold(enc, "base64")
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}

// parseDataURI parses a "data:" URI.
func parseDataURI(s string) (data []byte, contentType string, err error) {
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI")
	}
	isBase64 := false
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		isBase64 = true
		header = header[:len(header)-len(";base64")]
	}
	contentType, _, _ = strings.Cut(header, ";")
	if isBase64 {
		data, err = decodeBase64(payload)
	} else {
		var unescaped string
		unescaped, err = url.PathUnescape(payload)
		data = []byte(unescaped)
	}
	return data, contentType, err
}

func formatDataURI(data []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

type binaryLike interface {
	~struct {
		PropertyBase
		Data        []byte
		URL         string
		ContentType string
	}
}

// binaryScribe handles properties holding inline data or a URL. vCard 4.0
// inlines data as "data:" URIs, older versions use base64 with an ENCODING
// parameter.
type binaryScribe[T binaryLike, PT interface {
	*T
	Property
}] struct {
	scribeBase
}

func newBinaryScribe[T binaryLike, PT interface {
	*T
	Property
}](name string) *binaryScribe[T, PT] {
	types := [3]DataType{"", DataTypeBinary, DataTypeURI}
	return &binaryScribe[T, PT]{scribeBase: newScribeBase[T](name, types)}
}

func (s *binaryScribe[T, PT]) get(p Property) (BinaryProperty, error) {
	t, ok := p.(PT)
	if !ok {
		return BinaryProperty{}, s.wrongType(p)
	}
	return BinaryProperty(*t), nil
}

func (s *binaryScribe[T, PT]) DataType(p Property, v Version) DataType {
	b, err := s.get(p)
	if err != nil {
		return ""
	}
	if v == V40 || b.URL != "" {
		return DataTypeURI
	}
	return s.DefaultDataType(v)
}

func (s *binaryScribe[T, PT]) PrepareParams(p Property, params *Parameters, ctx *WriteContext) {
	b, err := s.get(p)
	if err != nil {
		return
	}
	params.Del(ParamEncoding)
	params.Del(ParamMediaType)
	if ctx.Version == V40 {
		if b.URL != "" && b.ContentType != "" {
			params.Set(ParamMediaType, b.ContentType)
		}
		return
	}

	if b.ContentType != "" {
		params.AddType(mediaFormat(b.ContentType))
	}
	if b.URL == "" {
		if ctx.Version == V21 {
			params.Set(ParamEncoding, "BASE64")
		} else {
			params.Set(ParamEncoding, "b")
		}
	}
}

func (s *binaryScribe[T, PT]) WriteText(p Property, ctx *WriteContext) (string, error) {
	b, err := s.get(p)
	if err != nil {
		return "", err
	}
	switch {
	case b.URL != "":
		return b.URL, nil
	case ctx.Version == V40:
		return formatDataURI(b.Data, b.ContentType), nil
	default:
		return base64.StdEncoding.EncodeToString(b.Data), nil
	}
}

// contentType extracts the MIME type from the parameters.
func (s *binaryScribe[T, PT]) contentType(params *Parameters) string {
	if t := params.MediaType(); t != "" {
		params.Del(ParamMediaType)
		return t
	}
	for _, t := range params.Types() {
		if strings.Contains(t, "/") {
			params.DelValue(ParamType, t)
			return t
		}
		if ct, ok := mediaFormats[strings.ToUpper(t)]; ok {
			params.DelValue(ParamType, t)
			return ct
		}
	}
	return ""
}

func (s *binaryScribe[T, PT]) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	enc := params.Get(ParamEncoding)
	if isBase64Encoding(enc) {
		params.Del(ParamEncoding)
	}

	b := BinaryProperty{ContentType: s.contentType(params)}
	v := value.Unescape(val)
	switch {
	case hasPrefixFold(v, "data:"):
		data, ct, err := parseDataURI(v)
		if err != nil {
			return &Fallback{Reason: err.Error()}
		}
		b.Data = data
		if ct != "" {
			b.ContentType = ct
		}
	case dt == DataTypeURI:
		b.URL = v
	case isBase64Encoding(enc) || dt == DataTypeBinary:
		data, err := decodeBase64(val)
		if err != nil {
			return &Fallback{Reason: fmt.Sprintf("invalid base64 data: %v", err)}
		}
		b.Data = data
	default:
		b.URL = v
	}

	t := T(b)
	return &Parsed{Property: PT(&t)}
}

func (s *binaryScribe[T, PT]) WriteHTML(p Property, el *hcard.Element) error {
	b, err := s.get(p)
	if err != nil {
		return err
	}
	src := b.URL
	if src == "" {
		src = formatDataURI(b.Data, b.ContentType)
	}
	if el.Tag() == "img" {
		el.SetAttr("src", src)
	} else {
		el.SetAttr("href", src)
		el.SetText(s.name)
	}
	return nil
}

func (s *binaryScribe[T, PT]) ParseHTML(el *hcard.Element, params *Parameters, ctx *ParseContext) ParseResult {
	return s.ParseText(el.Value(), "", params, ctx)
}

// agentScribe handles AGENT, either a URL or a nested vCard. vCard 2.1 nests
// the vCard after the property, vCard 3.0 inlines it in the escaped value.
type agentScribe struct {
	scribeBase
}

func (s *agentScribe) DataType(p Property, v Version) DataType {
	if agent, ok := p.(*Agent); ok && agent.URL != "" {
		return DataTypeURI
	}
	return ""
}

func (s *agentScribe) EmbeddedCard(p Property) *Card {
	if agent, ok := p.(*Agent); ok && agent.URL == "" {
		return agent.Card
	}
	return nil
}

func (s *agentScribe) WriteText(p Property, ctx *WriteContext) (string, error) {
	agent, ok := p.(*Agent)
	if !ok {
		return "", s.wrongType(p)
	}
	if agent.URL == "" {
		return "", fmt.Errorf("%w: AGENT has no URL", ErrSkipProperty)
	}
	return agent.URL, nil
}

func (s *agentScribe) ParseText(val string, dt DataType, params *Parameters, ctx *ParseContext) ParseResult {
	if dt == DataTypeURI {
		return &Parsed{Property: &Agent{URL: value.Unescape(val)}}
	}

	agent := &Agent{}
	inject := func(card *Card) {
		agent.Card = card
	}
	if strings.TrimSpace(val) == "" {
		return &Embedded{Property: agent, Inject: inject}
	}
	v := value.Unescape(val)
	if strings.Contains(strings.ToUpper(v), "BEGIN:VCARD") {
		return &Embedded{Property: agent, Text: v, Inject: inject}
	}
	agent.URL = v
	return &Parsed{
		Property: agent,
		Warnings: []string{"AGENT value is neither a vCard nor marked as a URL, assuming a URL"},
	}
}
