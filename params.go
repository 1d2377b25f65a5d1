package vcardio

import (
	"strconv"
	"strings"

	"github.com/emersion/go-vcardio/contentline"
)

// Parameter names.
const (
	ParamAltID     = "ALTID"
	ParamCalScale  = "CALSCALE"
	ParamCharset   = "CHARSET"
	ParamEncoding  = "ENCODING"
	ParamGeo       = "GEO"
	ParamLabel     = "LABEL"
	ParamLanguage  = "LANGUAGE"
	ParamMediaType = "MEDIATYPE"
	ParamPID       = "PID"
	ParamPref      = "PREF"
	ParamSortAs    = "SORT-AS"
	ParamType      = "TYPE"
	ParamTZ        = "TZ"
	ParamValue     = "VALUE"
)

// TypePref is the TYPE value marking the preferred property in vCard 2.1 and
// 3.0.
const TypePref = "pref"

// Param is a named parameter with one or more values.
type Param struct {
	Name   string
	Values []string
}

// Parameters is an ordered list of parameters. Names are case-insensitive.
// The order is kept when writing.
type Parameters []Param

func (params Parameters) index(name string) int {
	for i, p := range params {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// Get returns the first value of the named parameter, or an empty string.
func (params Parameters) Get(name string) string {
	values := params.Values(name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Values returns all the values of the named parameter.
func (params Parameters) Values(name string) []string {
	var values []string
	for _, p := range params {
		if strings.EqualFold(p.Name, name) {
			values = append(values, p.Values...)
		}
	}
	return values
}

// Has reports whether the named parameter is present.
func (params Parameters) Has(name string) bool {
	return params.index(name) >= 0
}

// HasValue reports whether the named parameter has the provided value,
// compared case-insensitively.
func (params Parameters) HasValue(name, value string) bool {
	for _, v := range params.Values(name) {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// Set replaces the values of the named parameter. The parameter keeps its
// position if it already exists. Setting no value deletes the parameter.
func (params *Parameters) Set(name string, values ...string) {
	if len(values) == 0 {
		params.Del(name)
		return
	}

	i := params.index(name)
	if i < 0 {
		*params = append(*params, Param{Name: name, Values: values})
		return
	}
	(*params)[i].Values = values

	// drop duplicates of the same parameter
	l := (*params)[:i+1]
	for _, p := range (*params)[i+1:] {
		if !strings.EqualFold(p.Name, name) {
			l = append(l, p)
		}
	}
	*params = l
}

// Add appends a value to the named parameter.
func (params *Parameters) Add(name, value string) {
	i := params.index(name)
	if i < 0 {
		*params = append(*params, Param{Name: name, Values: []string{value}})
		return
	}
	(*params)[i].Values = append((*params)[i].Values, value)
}

// Del removes the named parameter.
func (params *Parameters) Del(name string) {
	l := (*params)[:0]
	for _, p := range *params {
		if !strings.EqualFold(p.Name, name) {
			l = append(l, p)
		}
	}
	*params = l
}

// DelValue removes a value of the named parameter, compared
// case-insensitively. The parameter is removed once it has no values left.
func (params *Parameters) DelValue(name, value string) {
	l := (*params)[:0]
	for _, p := range *params {
		if strings.EqualFold(p.Name, name) {
			values := make([]string, 0, len(p.Values))
			for _, v := range p.Values {
				if !strings.EqualFold(v, value) {
					values = append(values, v)
				}
			}
			if len(values) == 0 {
				continue
			}
			p.Values = values
		}
		l = append(l, p)
	}
	*params = l
}

// Clone returns a deep copy of the parameters.
func (params Parameters) Clone() Parameters {
	if params == nil {
		return nil
	}
	l := make(Parameters, len(params))
	for i, p := range params {
		l[i] = Param{Name: p.Name, Values: append([]string(nil), p.Values...)}
	}
	return l
}

// Types returns the values of the TYPE parameter.
func (params Parameters) Types() []string {
	return params.Values(ParamType)
}

// HasType reports whether the TYPE parameter has the provided value.
func (params Parameters) HasType(t string) bool {
	return params.HasValue(ParamType, t)
}

// AddType adds a TYPE value, unless it's already present.
func (params *Parameters) AddType(t string) {
	if !params.HasType(t) {
		params.Add(ParamType, t)
	}
}

// Pref returns the value of the PREF parameter. ok is false if the
// parameter is missing or isn't an integer.
func (params Parameters) Pref() (pref int, ok bool) {
	s := params.Get(ParamPref)
	if s == "" {
		return 0, false
	}
	pref, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return pref, true
}

// SetPref sets the PREF parameter.
func (params *Parameters) SetPref(pref int) {
	params.Set(ParamPref, strconv.Itoa(pref))
}

// MediaType returns the MEDIATYPE parameter.
func (params Parameters) MediaType() string {
	return params.Get(ParamMediaType)
}

func paramsFromLine(l []contentline.Param) Parameters {
	params := make(Parameters, 0, len(l))
	for _, p := range l {
		params = append(params, Param(p))
	}
	return params
}

func (params Parameters) lineParams() []contentline.Param {
	l := make([]contentline.Param, 0, len(params))
	for _, p := range params {
		l = append(l, contentline.Param(p))
	}
	return l
}
