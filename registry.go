package vcardio

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/emersion/go-vcardio/contentline"
)

// Registry maps property names and property types to scribes.
//
// A Registry must not be modified once it's used by decoders or encoders.
// It's then safe to share between goroutines.
type Registry struct {
	byName map[string]Scribe
	byType map[reflect.Type]Scribe
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry used when none is configured. It
// must not be modified.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry returns a registry populated with the built-in scribes.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, s := range builtinScribes() {
		r.Register(s)
	}
	return r
}

// NewEmptyRegistry returns a registry without any scribe. Unknown
// properties are still handled as RawProperty.
func NewEmptyRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]Scribe),
		byType: make(map[reflect.Type]Scribe),
	}
	r.byType[rawPropertyType] = rawScribe{}
	return r
}

// Register adds a scribe, replacing any scribe previously registered for
// the same name or type.
func (r *Registry) Register(s Scribe) {
	if old, ok := r.byName[strings.ToUpper(s.PropertyName())]; ok {
		delete(r.byType, old.PropertyType())
	}
	r.byName[strings.ToUpper(s.PropertyName())] = s
	r.byType[s.PropertyType()] = s
}

// Unregister removes the scribe registered for a property name.
func (r *Registry) Unregister(name string) {
	name = strings.ToUpper(name)
	if s, ok := r.byName[name]; ok {
		delete(r.byType, s.PropertyType())
		delete(r.byName, name)
	}
}

// Lookup returns the scribe registered for a property name, or nil.
func (r *Registry) Lookup(name string) Scribe {
	return r.byName[strings.ToUpper(name)]
}

// LookupProperty returns the scribe handling a property, or nil.
func (r *Registry) LookupProperty(p Property) Scribe {
	return r.byType[reflect.TypeOf(p)]
}

// forName returns the scribe for a property name, falling back to the raw
// property scribe.
func (r *Registry) forName(name string) Scribe {
	if s := r.Lookup(name); s != nil {
		return s
	}
	return rawScribe{}
}

// PropertyName returns the name a property is written with.
func (r *Registry) PropertyName(p Property) (string, error) {
	switch p := p.(type) {
	case *RawProperty:
		return strings.ToUpper(p.Name), nil
	}
	s := r.LookupProperty(p)
	if s == nil {
		return "", fmt.Errorf("vcardio: no scribe registered for %T", p)
	}
	return s.PropertyName(), nil
}

// ParseProperty parses a single property. ctx.Name selects the scribe;
// unknown names are parsed as RawProperty. Values which can't be interpreted
// are returned as a *Parsed RawProperty with a warning.
//
// The VALUE parameter is consumed, it's reflected by the data type of the
// property instead. params isn't modified.
func (r *Registry) ParseProperty(group string, params Parameters, val string, ctx *ParseContext) ParseResult {
	params = params.Clone()
	dt := DataType("")
	if s := params.Get(ParamValue); s != "" {
		dt = ParseDataType(s)
		params.Del(ParamValue)
	}

	s := r.forName(ctx.Name)
	res := s.ParseText(val, dt, &params, ctx)
	return r.finishParse(res, group, ctx.Name, params, val, dt)
}

// finishParse attaches the group and parameters to the parsed property, and
// turns fallbacks into raw properties.
func (r *Registry) finishParse(res ParseResult, group, name string, params Parameters, val string, dt DataType) ParseResult {
	switch res := res.(type) {
	case *Parsed:
		base := res.Property.Base()
		base.Group = group
		base.Params = params
	case *Embedded:
		base := res.Property.Base()
		base.Group = group
		base.Params = params
	case *Fallback:
		return &Parsed{
			Property: &RawProperty{
				PropertyBase: PropertyBase{Group: group, Params: params},
				Name:         name,
				Value:        val,
				DataType:     dt,
			},
			Warnings: []string{res.Reason},
		}
	}
	return res
}

// WriteProperty formats a single property for the provided version. It
// returns a content line with prepared parameters and escaped value.
func (r *Registry) WriteProperty(p Property, ctx *WriteContext) (*contentline.Line, error) {
	s := r.LookupProperty(p)
	if s == nil {
		return nil, fmt.Errorf("vcardio: no scribe registered for %T", p)
	}
	if !supportsVersion(s, ctx.Version) {
		return nil, fmt.Errorf("%w: %v isn't supported by vCard %v", ErrSkipProperty, s.PropertyName(), ctx.Version)
	}

	name, err := r.PropertyName(p)
	if err != nil {
		return nil, err
	}

	params := PrepareParams(s, p, ctx)
	val, err := s.WriteText(p, ctx)
	if err != nil {
		return nil, err
	}

	return &contentline.Line{
		Group:  p.Base().Group,
		Name:   name,
		Params: params.lineParams(),
		Value:  val,
	}, nil
}
