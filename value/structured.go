package value

import (
	"strconv"
)

// StructuredIterator walks the components of a structured value. Reading past
// the last component yields empty values, callers rely on this to fill
// optional trailing fields.
type StructuredIterator struct {
	components [][]string
	pos        int
}

// NewStructuredIterator creates an iterator over already parsed components.
func NewStructuredIterator(components [][]string) *StructuredIterator {
	return &StructuredIterator{components: components}
}

// IterateStructured parses s and returns an iterator over its components.
func IterateStructured(s string) *StructuredIterator {
	return NewStructuredIterator(ParseStructured(s))
}

// IterateSemiStructured parses s as a semi-structured value: each component
// is a single value, commas are not list separators.
func IterateSemiStructured(s string) *StructuredIterator {
	parts := SplitSemiStructured(s, -1)
	components := make([][]string, len(parts))
	for i, p := range parts {
		if p == "" {
			components[i] = []string{}
		} else {
			components[i] = []string{p}
		}
	}
	return NewStructuredIterator(components)
}

// HasNext reports whether there are components left.
func (it *StructuredIterator) HasNext() bool {
	return it.pos < len(it.components)
}

// NextValue returns the first value of the next component. An empty string
// means the component is absent.
func (it *StructuredIterator) NextValue() string {
	c := it.NextComponent()
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// NextComponent returns all the values of the next component. The returned
// slice is never nil.
func (it *StructuredIterator) NextComponent() []string {
	if it.pos >= len(it.components) {
		return []string{}
	}

	c := it.components[it.pos]
	it.pos++
	if len(c) == 1 && c[0] == "" {
		return []string{}
	}
	if c == nil {
		return []string{}
	}
	return c
}

// NextInt returns the next component as an integer. Absent or invalid
// components yield ok == false.
func (it *StructuredIterator) NextInt() (n int, ok bool) {
	s := it.NextValue()
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StructuredBuilder accumulates the components of a structured value.
type StructuredBuilder struct {
	components [][]string
}

// Append adds a component holding the provided values. Empty strings are
// dropped, so Append("") adds an empty component.
func (b *StructuredBuilder) Append(values ...string) *StructuredBuilder {
	c := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			c = append(c, v)
		}
	}
	b.components = append(b.components, c)
	return b
}

// AppendInt adds an integer component. A nil pointer adds an empty component.
func (b *StructuredBuilder) AppendInt(n *int) *StructuredBuilder {
	if n == nil {
		return b.Append()
	}
	return b.Append(strconv.Itoa(*n))
}

// Components returns the accumulated components.
func (b *StructuredBuilder) Components() [][]string {
	return b.components
}

// Build formats the structured value. If trailing is false, empty trailing
// components are dropped.
func (b *StructuredBuilder) Build(trailing bool) string {
	return JoinStructured(b.components, trailing)
}

// BuildSemiStructured formats the components as a semi-structured value:
// only the first value of each component is kept.
func (b *StructuredBuilder) BuildSemiStructured(trailing bool) string {
	values := make([]string, len(b.components))
	for i, c := range b.components {
		if len(c) > 0 {
			values[i] = c[0]
		}
	}
	return JoinSemiStructured(values, trailing)
}
