package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Node is a node in a document tree.
type Node struct {
	Type    *NodeType
	Attrs   map[string]any
	Content Fragment
	Marks   []*Mark
	// Text is set on text nodes only.
	Text string
}

// Fragment is an ordered run of sibling nodes.
type Fragment []*Node

// Mark is an inline annotation attached to a node.
type Mark struct {
	Type  *MarkType
	Attrs map[string]any
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.Type.IsText() }

// TextContent concatenates the text of n and its descendants.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	return n.Content.TextContent()
}

// TextContent concatenates the text of every node in f.
func (f Fragment) TextContent() string {
	var b strings.Builder
	for _, n := range f {
		b.WriteString(n.TextContent())
	}
	return b.String()
}

// Kinds reported by SchemaError.
const (
	KindNode = "node"
	KindMark = "mark"
)

// SchemaError reports a node or mark type that the schema does not know.
// An empty Name means the JSON object had no type at all.
type SchemaError struct {
	Kind string
	Name string
}

func (e *SchemaError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("model: %s without a type", e.Kind)
	}
	return fmt.Sprintf("model: unknown %s type %q", e.Kind, e.Name)
}

// ErrNotObject is returned by FromJSON for values that are not JSON objects.
var ErrNotObject = errors.New("model: node JSON must be an object")

// FromJSON builds a node from its JSON form (as decoded into map[string]any).
// Unknown node and mark types fail with *SchemaError.
func FromJSON(s *Schema, v any) (*Node, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	name, _ := obj["type"].(string)
	if name == "" {
		return nil, &SchemaError{Kind: KindNode}
	}
	nt := s.Node(name)
	if nt == nil {
		return nil, &SchemaError{Kind: KindNode, Name: name}
	}

	var marks []*Mark
	if raw, ok := obj["marks"].([]any); ok {
		for _, mr := range raw {
			m, err := markFromJSON(s, mr)
			if err != nil {
				return nil, err
			}
			marks = append(marks, m)
		}
	}

	if nt.IsText() {
		text, ok := obj["text"].(string)
		if !ok {
			return nil, errors.New("model: text node without text")
		}
		return s.Text(text, marks), nil
	}

	var content Fragment
	if raw, ok := obj["content"].([]any); ok {
		f, err := FragmentFromJSON(s, raw)
		if err != nil {
			return nil, err
		}
		content = f
	}
	attrs, _ := obj["attrs"].(map[string]any)
	return nt.Create(attrs, content, marks)
}

// FragmentFromJSON builds a fragment from a JSON array of nodes.
func FragmentFromJSON(s *Schema, arr []any) (Fragment, error) {
	out := make(Fragment, 0, len(arr))
	for _, item := range arr {
		n, err := FromJSON(s, item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func markFromJSON(s *Schema, v any) (*Mark, error) {
	var name string
	var attrs map[string]any
	switch m := v.(type) {
	case string:
		name = m
	case map[string]any:
		name, _ = m["type"].(string)
		attrs, _ = m["attrs"].(map[string]any)
	}
	if name == "" {
		return nil, &SchemaError{Kind: KindMark}
	}
	mt := s.Mark(name)
	if mt == nil {
		return nil, &SchemaError{Kind: KindMark, Name: name}
	}
	return mt.Create(attrs)
}

// ToJSON returns the JSON form of n.
func (n *Node) ToJSON() map[string]any {
	out := map[string]any{"type": n.Type.Name}
	if len(n.Attrs) > 0 {
		out["attrs"] = copyAttrs(n.Attrs)
	}
	if n.IsText() {
		out["text"] = n.Text
	}
	if len(n.Content) > 0 {
		out["content"] = n.Content.ToJSON()
	}
	if len(n.Marks) > 0 {
		marks := make([]any, 0, len(n.Marks))
		for _, m := range n.Marks {
			marks = append(marks, m.ToJSON())
		}
		out["marks"] = marks
	}
	return out
}

// ToJSON returns the JSON form of f.
func (f Fragment) ToJSON() []any {
	out := make([]any, 0, len(f))
	for _, n := range f {
		out = append(out, n.ToJSON())
	}
	return out
}

// Eq reports whether m and other have the same type and attributes.
func (m *Mark) Eq(other *Mark) bool {
	return m.Type == other.Type && reflect.DeepEqual(m.Attrs, other.Attrs)
}

// ToJSON returns the JSON form of m.
func (m *Mark) ToJSON() map[string]any {
	out := map[string]any{"type": m.Type.Name}
	if len(m.Attrs) > 0 {
		out["attrs"] = copyAttrs(m.Attrs)
	}
	return out
}

func copyAttrs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
