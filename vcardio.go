// Package vcardio reads and writes vCards, in plain text (RFC 2426, RFC 6350
// and vCard 2.1), JSON (jCard, RFC 7095), XML (xCard, RFC 6351) and HTML
// (hCard).
//
// Each property type is handled by a Scribe. Scribes are collected in a
// Registry, which the decoders and encoders use to convert between property
// values and their wire representations.
package vcardio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-vcardio/contentline"
)

// MIMEType is the MIME type of plain-text vCards.
const MIMEType = "text/vcard"

// Version is a vCard version.
type Version int

const (
	V21 Version = iota + 1
	V30
	V40
)

// ErrUnsupportedVersion is returned when a VERSION property has an unknown
// value.
var ErrUnsupportedVersion = errors.New("vcardio: unsupported version")

// ParseVersion parses the value of a VERSION property.
func ParseVersion(s string) (Version, error) {
	switch strings.TrimSpace(s) {
	case "2.1":
		return V21, nil
	case "3.0":
		return V30, nil
	case "4.0":
		return V40, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
}

// String formats the version as it appears in a VERSION property.
func (v Version) String() string {
	switch v {
	case V21:
		return "2.1"
	case V30:
		return "3.0"
	case V40:
		return "4.0"
	}
	panic("vcardio: invalid Version value")
}

// Syntax returns the content line syntax used by the version.
func (v Version) Syntax() contentline.Syntax {
	if v == V21 {
		return contentline.SyntaxOld
	}
	return contentline.SyntaxNew
}

// DataType is the type of a property value, as given by the VALUE
// parameter. The empty DataType means the type is unknown.
type DataType string

const (
	DataTypeText          DataType = "text"
	DataTypeURI           DataType = "uri"
	DataTypeDate          DataType = "date"
	DataTypeTime          DataType = "time"
	DataTypeDateTime      DataType = "date-time"
	DataTypeDateAndOrTime DataType = "date-and-or-time"
	DataTypeTimestamp     DataType = "timestamp"
	DataTypeBoolean       DataType = "boolean"
	DataTypeInteger       DataType = "integer"
	DataTypeFloat         DataType = "float"
	DataTypeUTCOffset     DataType = "utc-offset"
	DataTypeLanguageTag   DataType = "language-tag"
	DataTypeBinary        DataType = "binary"
	DataTypeContentID     DataType = "content-id"
	DataTypeInline        DataType = "inline"
	DataTypeUnknown       DataType = "unknown"
	DataTypeURL           DataType = "url" // vCard 2.1 name of uri
)

// ParseDataType parses the value of a VALUE parameter. The vCard 2.1 "URL"
// type is mapped to DataTypeURI and "CID" to DataTypeContentID.
func ParseDataType(s string) DataType {
	dt := DataType(strings.ToLower(strings.TrimSpace(s)))
	switch dt {
	case DataTypeURL:
		return DataTypeURI
	case "cid":
		return DataTypeContentID
	}
	return dt
}

// Name returns the name of the data type in the provided version.
func (dt DataType) Name(v Version) string {
	if dt == DataTypeURI && v == V21 {
		return string(DataTypeURL)
	}
	return string(dt)
}

// isTemporal reports whether the data type is a finer-grained type of
// date-and-or-time.
func (dt DataType) isTemporal() bool {
	switch dt {
	case DataTypeDate, DataTypeTime, DataTypeDateTime:
		return true
	}
	return false
}
