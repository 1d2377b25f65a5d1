// Package jcard implements the JSON representation of vCards, jCard, defined
// in RFC 7095.
package jcard

import (
	"strconv"
)

// Node is a JSON value found in a property value. Exactly one of Array,
// Object or Value is used. Value holds a string, a float64, a bool or nil.
type Node struct {
	Value  any
	Array  []Node
	Object map[string]Node
}

// IsArray reports whether the node is a JSON array.
func (n Node) IsArray() bool {
	return n.Array != nil
}

// IsObject reports whether the node is a JSON object.
func (n Node) IsObject() bool {
	return n.Object != nil
}

// String formats a scalar node. Arrays and objects yield their first scalar,
// null yields an empty string.
func (n Node) String() string {
	switch {
	case n.Array != nil:
		if len(n.Array) == 0 {
			return ""
		}
		return n.Array[0].String()
	case n.Object != nil:
		return ""
	}

	switch v := n.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// strings returns the scalars of the node, flattening arrays.
func (n Node) strings() []string {
	if n.Array == nil {
		return []string{n.String()}
	}
	var l []string
	for _, child := range n.Array {
		l = append(l, child.strings()...)
	}
	return l
}

// Value is a property value: the elements following the data type in a
// jCard property row.
type Value struct {
	Nodes []Node
}

// Single creates a value holding a single scalar.
func Single(v any) *Value {
	return &Value{Nodes: []Node{{Value: v}}}
}

// Multi creates a multi-valued value, e.g. for CATEGORIES.
func Multi(values ...string) *Value {
	nodes := make([]Node, len(values))
	for i, v := range values {
		nodes[i] = Node{Value: v}
	}
	return &Value{Nodes: nodes}
}

// Structured creates a structured value, e.g. for N or ADR. Components with
// a single value are collapsed to a scalar, empty components become empty
// strings.
func Structured(components ...[]string) *Value {
	nodes := make([]Node, len(components))
	for i, c := range components {
		switch len(c) {
		case 0:
			nodes[i] = Node{Value: ""}
		case 1:
			nodes[i] = Node{Value: c[0]}
		default:
			nodes[i] = Node{Array: Multi(c...).Nodes}
		}
	}
	return &Value{Nodes: []Node{{Array: nodes}}}
}

// Object creates a value holding a JSON object.
func Object(fields map[string]string) *Value {
	obj := make(map[string]Node, len(fields))
	for k, v := range fields {
		obj[k] = Node{Value: v}
	}
	return &Value{Nodes: []Node{{Object: obj}}}
}

// AsSingle returns the first scalar of the value, or an empty string.
func (v *Value) AsSingle() string {
	if len(v.Nodes) == 0 {
		return ""
	}
	return v.Nodes[0].String()
}

// AsMulti returns all the scalars of the value.
func (v *Value) AsMulti() []string {
	l := []string{}
	for _, n := range v.Nodes {
		l = append(l, n.strings()...)
	}
	return l
}

// AsStructured returns the components of a structured value. A value which
// isn't a single array is interpreted as a list of components. Empty strings
// yield empty components.
func (v *Value) AsStructured() [][]string {
	nodes := v.Nodes
	if len(nodes) == 1 && nodes[0].Array != nil {
		nodes = nodes[0].Array
	}

	components := make([][]string, len(nodes))
	for i, n := range nodes {
		c := []string{}
		for _, s := range n.strings() {
			if s != "" {
				c = append(c, s)
			}
		}
		components[i] = c
	}
	return components
}

// AsObject returns the fields of an object value, formatted as strings.
func (v *Value) AsObject() map[string]string {
	m := make(map[string]string)
	if len(v.Nodes) == 0 || v.Nodes[0].Object == nil {
		return m
	}
	for k, n := range v.Nodes[0].Object {
		m[k] = n.String()
	}
	return m
}
