// config.go: hierarchical configuration resolver over typed value trees
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// Reserved case-file key consumed by the data hub wiring; it never reaches
// plugin configuration.
const dataSourcesKey = "data_sources"

// NodeKind tags the three shapes a configuration value can take.
type NodeKind int

const (
	KindScalar NodeKind = iota
	KindSequence
	KindMap
)

// Node is one value in a configuration tree. Exactly one of Scalar, Items
// or Fields is meaningful, selected by Kind. Trees are treated as immutable
// once built: Merge always allocates its result.
type Node struct {
	Kind   NodeKind
	Scalar any
	Items  []*Node
	Fields map[string]*Node
}

// ScalarNode wraps a plain value as a scalar tree node.
func ScalarNode(v any) *Node { return &Node{Kind: KindScalar, Scalar: v} }

// MapNode creates an empty map node.
func MapNode() *Node { return &Node{Kind: KindMap, Fields: map[string]*Node{}} }

// FromAny normalizes a decoded YAML/JSON value (or any plain Go value)
// into a Node tree. Maps with non-string keys and values the tree cannot
// structurally represent are wrapped as opaque scalars.
func FromAny(v any) *Node {
	switch t := v.(type) {
	case nil:
		return ScalarNode(nil)
	case map[string]any:
		n := &Node{Kind: KindMap, Fields: make(map[string]*Node, len(t))}
		for k, val := range t {
			n.Fields[k] = FromAny(val)
		}
		return n
	case []any:
		n := &Node{Kind: KindSequence, Items: make([]*Node, len(t))}
		for i, val := range t {
			n.Items[i] = FromAny(val)
		}
		return n
	default:
		return ScalarNode(v)
	}
}

// ToAny converts the tree back to plain maps, slices and scalars.
func (n *Node) ToAny() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindMap:
		out := make(map[string]any, len(n.Fields))
		for k, v := range n.Fields {
			out[k] = v.ToAny()
		}
		return out
	case KindSequence:
		out := make([]any, len(n.Items))
		for i, v := range n.Items {
			out[i] = v.ToAny()
		}
		return out
	default:
		return n.Scalar
	}
}

// Clone returns a deep copy of the tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Scalar: n.Scalar}
	if n.Items != nil {
		out.Items = make([]*Node, len(n.Items))
		for i, v := range n.Items {
			out.Items[i] = v.Clone()
		}
	}
	if n.Fields != nil {
		out.Fields = make(map[string]*Node, len(n.Fields))
		for k, v := range n.Fields {
			out.Fields[k] = v.Clone()
		}
	}
	return out
}

// Field returns the named child of a map node, or nil.
func (n *Node) Field(name string) *Node {
	if n == nil || n.Kind != KindMap {
		return nil
	}
	return n.Fields[name]
}

// FieldNames returns the sorted field names of a map node.
func (n *Node) FieldNames() []string {
	if n == nil || n.Kind != KindMap {
		return nil
	}
	names := make([]string, 0, len(n.Fields))
	for k := range n.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Merge combines two trees, with higher taking precedence. When both sides
// are maps the merge recurses field by field; in every other combination
// the higher value replaces the lower one entirely. Sequences are never
// concatenated. Neither input is mutated.
func Merge(lower, higher *Node) *Node {
	if higher == nil {
		return lower.Clone()
	}
	if lower == nil {
		return higher.Clone()
	}
	if lower.Kind != KindMap || higher.Kind != KindMap {
		return higher.Clone()
	}
	out := &Node{Kind: KindMap, Fields: make(map[string]*Node, len(lower.Fields)+len(higher.Fields))}
	for k, v := range lower.Fields {
		out.Fields[k] = v.Clone()
	}
	for k, v := range higher.Fields {
		if existing, ok := out.Fields[k]; ok {
			out.Fields[k] = Merge(existing, v)
		} else {
			out.Fields[k] = v.Clone()
		}
	}
	return out
}

// Layer is one ordered source of configuration values. Layers are listed
// in ascending precedence: a later layer wins over an earlier one.
type Layer struct {
	Name string
	Root *Node
}

// NewLayer builds a layer from a plain map.
func NewLayer(name string, values map[string]any) Layer {
	return Layer{Name: name, Root: FromAny(values)}
}

// Resolve folds the ordered layer list into a single merged tree.
// The fold is deterministic and not commutative: swapping layers changes
// the result, re-running with identical layers does not.
func Resolve(layers []Layer) *Node {
	merged := MapNode()
	for _, layer := range layers {
		if layer.Root == nil {
			continue
		}
		merged = Merge(merged, layer.Root)
	}
	return merged
}

// ResolvePluginConfig resolves the layer list for one plugin step and strips
// the keys plugin code must never see as plain values: the reserved
// data_sources key and every field the plugin declares as an input or
// output. Those fields are hydrated from the data hub instead.
func ResolvePluginConfig(layers []Layer, declarations []IODeclaration) *Node {
	merged := Resolve(layers)
	if merged.Kind != KindMap {
		return merged
	}
	delete(merged.Fields, dataSourcesKey)
	for _, decl := range declarations {
		if decl.Field != "" {
			delete(merged.Fields, decl.Field)
		}
	}
	return merged
}

// DecodeConfig decodes a merged tree into a plugin's typed configuration
// object via a YAML round trip, so plugin schemas use ordinary yaml tags.
func DecodeConfig(n *Node, out any) error {
	raw, err := yaml.Marshal(n.ToAny())
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}
