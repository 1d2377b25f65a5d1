// Package filter implements CardDAV-style queries over vCards, as defined in
// RFC 6352 section 10.5.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-vcardio"
	"github.com/emersion/go-vcardio/value"
)

// Test combines the results of several filters.
type Test string

const (
	AnyOf Test = "anyof"
	AllOf Test = "allof"
)

// MatchType is the kind of comparison performed by a TextMatch.
type MatchType string

const (
	MatchEquals     MatchType = "equals"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts-with"
	MatchEndsWith   MatchType = "ends-with"
)

// Query selects cards.
type Query struct {
	// Registry is used to format property values. If nil, the built-in
	// scribes are used.
	Registry *vcardio.Registry

	PropFilters []PropFilter
	Test        Test
	// Limit is the maximum number of cards returned by Filter. Zero means no
	// limit.
	Limit int
}

// PropFilter matches a property.
type PropFilter struct {
	Name string
	Test Test

	// IsNotDefined matches cards without the property.
	IsNotDefined bool

	TextMatches []TextMatch
	Params      []ParamFilter
}

// ParamFilter matches a parameter of a property.
type ParamFilter struct {
	Name string

	// IsNotDefined matches properties without the parameter.
	IsNotDefined bool
	TextMatch    *TextMatch
}

// TextMatch matches a text value. Comparisons are case-insensitive.
type TextMatch struct {
	Text            string
	NegateCondition bool
	MatchType       MatchType
}

// Filter returns the cards matching the provided query. A nil query will
// return the full list of cards.
func Filter(query *Query, cards []*vcardio.Card) ([]*vcardio.Card, error) {
	if query == nil {
		return cards, nil
	}

	n := query.Limit
	if n <= 0 {
		n = len(cards)
	}
	out := make([]*vcardio.Card, 0, n)
	for _, card := range cards {
		ok, err := Match(query, card)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, card)
		if len(out) >= n {
			break
		}
	}
	return out, nil
}

// Match reports whether the provided card matches the query.
func Match(query *Query, card *vcardio.Card) (bool, error) {
	if query == nil {
		return true, nil
	}

	reg := query.Registry
	if reg == nil {
		reg = vcardio.DefaultRegistry()
	}
	return combine(query.Test, len(query.PropFilters), func(i int) (bool, error) {
		return matchPropFilter(reg, &query.PropFilters[i], card)
	})
}

// combine evaluates n tests with f.
func combine(test Test, n int, f func(i int) (bool, error)) (bool, error) {
	switch test {
	case AnyOf, "":
		for i := 0; i < n; i++ {
			ok, err := f(i)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case AllOf:
		for i := 0; i < n; i++ {
			ok, err := f(i)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("filter: unknown test %q", test)
	}
}

// property is a property formatted for comparison.
type property struct {
	params vcardio.Parameters
	value  string
}

func properties(reg *vcardio.Registry, card *vcardio.Card, name string) ([]property, error) {
	ctx := &vcardio.WriteContext{Version: vcardio.V40, Card: card}
	var l []property
	for _, p := range card.Properties {
		pname, err := reg.PropertyName(p)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(pname, name) {
			continue
		}

		line, err := reg.WriteProperty(p, ctx)
		if errors.Is(err, vcardio.ErrSkipProperty) {
			// not representable in vCard 4.0, compare the raw parameters
			l = append(l, property{params: p.Base().Params})
			continue
		} else if err != nil {
			return nil, err
		}
		l = append(l, property{params: p.Base().Params, value: value.Unescape(line.Value)})
	}
	return l, nil
}

func matchPropFilter(reg *vcardio.Registry, filter *PropFilter, card *vcardio.Card) (bool, error) {
	props, err := properties(reg, card, filter.Name)
	if err != nil {
		return false, err
	}
	if filter.IsNotDefined {
		return len(props) == 0, nil
	}
	if len(props) == 0 {
		return false, nil
	}

	n := len(filter.TextMatches) + len(filter.Params)
	if n == 0 {
		return true, nil
	}

	for _, prop := range props {
		ok, err := combine(filter.Test, n, func(i int) (bool, error) {
			if i < len(filter.TextMatches) {
				return matchTextMatch(&filter.TextMatches[i], prop.value)
			}
			return matchParamFilter(&filter.Params[i-len(filter.TextMatches)], prop.params)
		})
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchParamFilter(filter *ParamFilter, params vcardio.Parameters) (bool, error) {
	if !params.Has(filter.Name) {
		return filter.IsNotDefined, nil
	}
	if filter.IsNotDefined {
		return false, nil
	}
	if filter.TextMatch == nil {
		return true, nil
	}
	for _, v := range params.Values(filter.Name) {
		ok, err := matchTextMatch(filter.TextMatch, v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchTextMatch(txt *TextMatch, s string) (bool, error) {
	text := strings.ToLower(txt.Text)
	s = strings.ToLower(s)

	var ok bool
	switch txt.MatchType {
	default:
		return false, fmt.Errorf("filter: unknown text match type %q", txt.MatchType)
	case MatchEquals:
		ok = text == s
	case MatchContains, "":
		ok = strings.Contains(s, text)
	case MatchStartsWith:
		ok = strings.HasPrefix(s, text)
	case MatchEndsWith:
		ok = strings.HasSuffix(s, text)
	}

	if txt.NegateCondition {
		ok = !ok
	}
	return ok, nil
}
