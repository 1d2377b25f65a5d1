// Package contentline reads and writes vCard content lines.
//
// A content line is a logical line of the form
//
//	[group.]NAME[;PARAM[=VALUE[,VALUE...]]]*:VALUE
//
// possibly folded over several physical lines. The grammar is defined in
// RFC 2425 section 5.8.1, RFC 6350 section 3.3 and, for vCard 2.1, in the
// versit specification. Parameter value caret encoding is defined in
// RFC 6868.
package contentline

import (
	"errors"
	"fmt"
	"strings"
)

// Syntax selects between the vCard 2.1 content line syntax and the one used
// by vCard 3.0 and 4.0.
type Syntax int

const (
	// SyntaxOld is the vCard 2.1 syntax: bare TYPE parameters, backslash
	// escapes in parameter values, no quoting.
	SyntaxOld Syntax = iota
	// SyntaxNew is the vCard 3.0/4.0 syntax: NAME=VALUE parameters, quoted
	// parameter values, caret encoding.
	SyntaxNew
)

func (s Syntax) String() string {
	switch s {
	case SyntaxOld:
		return "old"
	case SyntaxNew:
		return "new"
	}
	panic("contentline: invalid Syntax value")
}

var (
	// ErrMalformedLine is returned when a line can't be split into a name and
	// a value.
	ErrMalformedLine = errors.New("contentline: malformed line")
	// ErrInvalidName is returned when a group or property name contains
	// characters other than letters, digits and hyphens.
	ErrInvalidName = errors.New("contentline: invalid name")
)

// ParseError is a recoverable error: the reader skipped a malformed line and
// can be used to read the following lines.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("contentline: line %v: %v", err.Line, err.Err)
}

func (err *ParseError) Unwrap() error {
	return err.Err
}

// Param is a parameter of a content line.
type Param struct {
	Name   string
	Values []string
}

// Line is a logical content line.
type Line struct {
	// Num is the number of the first physical line, starting at 1.
	Num    int
	Group  string
	Name   string
	Params []Param
	Value  string
}

// Param returns the values of the first parameter with the provided name.
func (l *Line) Param(name string) []string {
	for _, p := range l.Params {
		if strings.EqualFold(p.Name, name) {
			return p.Values
		}
	}
	return nil
}

// HasParamValue reports whether a parameter with the provided name has the
// provided value. Both are compared case-insensitively.
func (l *Line) HasParamValue(name, value string) bool {
	for _, p := range l.Params {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		for _, v := range p.Values {
			if strings.EqualFold(v, value) {
				return true
			}
		}
	}
	return false
}

// DelParam removes all parameters with the provided name.
func (l *Line) DelParam(name string) {
	params := l.Params[:0]
	for _, p := range l.Params {
		if !strings.EqualFold(p.Name, name) {
			params = append(params, p)
		}
	}
	l.Params = params
}

func isNameChar(c rune) bool {
	return c == '-' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ValidName reports whether s is a valid group or property name.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isNameChar(c) {
			return false
		}
	}
	return true
}

var dataTypeNames = map[string]bool{
	// vCard 2.1
	"URL":        true,
	"INLINE":     true,
	"CONTENT-ID": true,
	"CID":        true,
	// vCard 3.0 and 4.0
	"TEXT":             true,
	"URI":              true,
	"DATE":             true,
	"TIME":             true,
	"DATE-TIME":        true,
	"DATE-AND-OR-TIME": true,
	"TIMESTAMP":        true,
	"BOOLEAN":          true,
	"INTEGER":          true,
	"FLOAT":            true,
	"UTC-OFFSET":       true,
	"LANGUAGE-TAG":     true,
	"BINARY":           true,
}

var encodingNames = map[string]bool{
	"QUOTED-PRINTABLE": true,
	"BASE64":           true,
	"B":                true,
	"7BIT":             true,
	"8BIT":             true,
}

// BareParamName returns the name of a parameter written without a name, as
// allowed by vCard 2.1: data type names are VALUE parameters, encoding names
// are ENCODING parameters, anything else is a TYPE parameter.
func BareParamName(token string) string {
	upper := strings.ToUpper(token)
	switch {
	case dataTypeNames[upper]:
		return "VALUE"
	case encodingNames[upper]:
		return "ENCODING"
	default:
		return "TYPE"
	}
}
