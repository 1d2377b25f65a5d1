package vcardio

import (
	"reflect"
	"strings"
)

// PrepareParams returns the parameters to write for a property at the
// context's version. It always returns a new value: the property's own
// parameters are never modified.
//
// Version-specific rules are applied to the copy:
//
//   - vCard 2.1 and 3.0 have no PREF parameter: the property with the lowest
//     PREF among properties of the same kind gets a TYPE=pref marker
//     instead. With vCard 4.0, a TYPE=pref marker becomes PREF=1.
//   - The VALUE parameter is only written when the data type differs from
//     the property's default one.
//   - The LABEL parameter only exists in vCard 4.0.
func PrepareParams(s Scribe, p Property, ctx *WriteContext) Parameters {
	params := p.Base().Params.Clone()
	params.Del(ParamValue)

	if pp, ok := s.(ParamPreparer); ok {
		pp.PrepareParams(p, &params, ctx)
	}

	preparePref(p, &params, ctx)
	prepareDataType(s, p, &params, ctx.Version)
	if ctx.Version != V40 {
		params.Del(ParamLabel)
	}
	return params
}

func sameKind(a, b Property) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if ra, ok := a.(*RawProperty); ok {
		return strings.EqualFold(ra.Name, b.(*RawProperty).Name)
	}
	return true
}

// mostPreferred returns the property of the same kind as p with the lowest
// PREF parameter, or nil if none has a PREF parameter.
func mostPreferred(p Property, card *Card) Property {
	if card == nil {
		return nil
	}

	var best Property
	lowest := 0
	for _, other := range card.Properties {
		if !sameKind(p, other) {
			continue
		}
		pref, ok := other.Base().Params.Pref()
		if !ok {
			continue
		}
		if best == nil || pref < lowest {
			best = other
			lowest = pref
		}
	}
	return best
}

func preparePref(p Property, params *Parameters, ctx *WriteContext) {
	switch ctx.Version {
	case V21, V30:
		params.Del(ParamPref)
		best := mostPreferred(p, ctx.Card)
		if best == nil {
			// no ranking to convert, keep existing markers as-is
			if _, ok := p.Base().Params.Pref(); !ok {
				return
			}
			best = p
		}
		params.DelValue(ParamType, TypePref)
		if best == p {
			params.AddType(TypePref)
		}
	case V40:
		if params.HasType(TypePref) {
			params.DelValue(ParamType, TypePref)
			if !params.Has(ParamPref) {
				params.SetPref(1)
			}
		}
	}
}

func prepareDataType(s Scribe, p Property, params *Parameters, v Version) {
	dt := dataTypeOf(s, p, v)
	def := s.DefaultDataType(v)
	if dt == "" || dt == def {
		return
	}
	if def == DataTypeDateAndOrTime && dt.isTemporal() {
		return
	}
	params.Set(ParamValue, dt.Name(v))
}
