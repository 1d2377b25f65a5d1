package vcardio

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TextProperty is the shape of properties holding a single text or URI
// value.
type TextProperty struct {
	PropertyBase
	Value string
}

// Single-valued text and URI properties.
type (
	FormattedName TextProperty // FN
	Title         TextProperty // TITLE
	Role          TextProperty // ROLE
	Note          TextProperty // NOTE
	ProductID     TextProperty // PRODID
	Email         TextProperty // EMAIL
	Mailer        TextProperty // MAILER, vCard 2.1 and 3.0
	Label         TextProperty // LABEL, vCard 2.1 and 3.0
	Kind          TextProperty // KIND, vCard 4.0
	Language      TextProperty // LANG, vCard 4.0
	XML           TextProperty // XML, vCard 4.0
	URL           TextProperty // URL
	Source        TextProperty // SOURCE
	IMPP          TextProperty // IMPP
	Member        TextProperty // MEMBER, vCard 4.0
	UID           TextProperty // UID
)

// NewUID returns a UID property holding a random "urn:uuid:" URI.
func NewUID() *UID {
	return &UID{Value: "urn:uuid:" + uuid.NewString()}
}

// ListProperty is the shape of properties holding a comma-separated list.
type ListProperty struct {
	PropertyBase
	Values []string
}

// List properties.
type (
	Nickname   ListProperty // NICKNAME
	Categories ListProperty // CATEGORIES
)

// StructuredName is the N property.
type StructuredName struct {
	PropertyBase
	Family     []string
	Given      []string
	Additional []string
	Prefixes   []string
	Suffixes   []string
}

// Address is the ADR property.
type Address struct {
	PropertyBase
	POBoxes     []string
	Extended    []string
	Streets     []string
	Localities  []string
	Regions     []string
	PostalCodes []string
	Countries   []string
	// Label is the formatted address. vCard 4.0 stores it in the LABEL
	// parameter, older versions in a separate LABEL property.
	Label string
}

// Organization is the ORG property: the organization name followed by unit
// names.
type Organization struct {
	PropertyBase
	Values []string
}

// Gender is the GENDER property (vCard 4.0).
type Gender struct {
	PropertyBase
	// Sex is one of "M", "F", "O", "N", "U" or empty.
	Sex  string
	Text string
}

// ClientPIDMap is the CLIENTPIDMAP property (vCard 4.0).
type ClientPIDMap struct {
	PropertyBase
	ID  int
	URI string
}

// NewClientPIDMap returns a CLIENTPIDMAP property with a random "urn:uuid:"
// URI.
func NewClientPIDMap(id int) *ClientPIDMap {
	return &ClientPIDMap{ID: id, URI: "urn:uuid:" + uuid.NewString()}
}

// Geo is the GEO property.
type Geo struct {
	PropertyBase
	Latitude  float64
	Longitude float64
}

// Telephone is the TEL property. vCard 4.0 allows "tel:" URIs.
type Telephone struct {
	PropertyBase
	Text string
	URI  string
}

// Number returns the telephone number, extracted from the URI if needed.
func (tel *Telephone) Number() string {
	if tel.Text != "" || tel.URI == "" {
		return tel.Text
	}
	s := tel.URI
	if len(s) >= 4 && strings.EqualFold(s[:4], "tel:") {
		s = s[4:]
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return s
}

// Related is the RELATED property (vCard 4.0).
type Related struct {
	PropertyBase
	URI  string
	Text string
}

// Timezone is the TZ property.
type Timezone struct {
	PropertyBase
	// Offset is the UTC offset, nil if the time zone is given as text.
	Offset *time.Duration
	Text   string
}

// DateOrTimeProperty is the shape of date properties.
type DateOrTimeProperty struct {
	PropertyBase
	Time time.Time
	// HasTime is false for dates without a time of day.
	HasTime bool
	// Text is a free-form value (vCard 4.0), used instead of Time.
	Text string
}

// Date properties.
type (
	Birthday    DateOrTimeProperty // BDAY
	Anniversary DateOrTimeProperty // ANNIVERSARY, vCard 4.0
)

// Revision is the REV property.
type Revision struct {
	PropertyBase
	Time time.Time
}

// BinaryProperty is the shape of properties holding either inline data or a
// URL.
type BinaryProperty struct {
	PropertyBase
	Data []byte
	URL  string
	// ContentType is the MIME type of the data, e.g. "image/jpeg".
	ContentType string
}

// Binary properties.
type (
	Photo BinaryProperty // PHOTO
	Logo  BinaryProperty // LOGO
	Sound BinaryProperty // SOUND
	Key   BinaryProperty // KEY
)

// Agent is the AGENT property (vCard 2.1 and 3.0): either a URL or a nested
// vCard.
type Agent struct {
	PropertyBase
	URL  string
	Card *Card
}

// RawProperty is a property without a dedicated scribe, e.g. an extended
// "X-" property. Its value is kept verbatim, including escaping.
type RawProperty struct {
	PropertyBase
	Name     string
	Value    string
	DataType DataType
}
