package model

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOMSerializer renders document nodes back to HTML using the render rules
// of a schema. Types without a render rule render as an element named after
// the type with their attributes and content.
type DOMSerializer struct {
	schema *Schema
}

// NewDOMSerializer returns a serializer for s.
func NewDOMSerializer(s *Schema) *DOMSerializer { return &DOMSerializer{schema: s} }

// Serialize renders a fragment to an HTML string.
func (s *DOMSerializer) Serialize(f Fragment) (string, error) {
	var b strings.Builder
	for _, n := range s.RenderFragment(f) {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("model: render: %w", err)
		}
	}
	return b.String(), nil
}

// SerializeNode renders n to HTML. The top node renders as its content only.
func (s *DOMSerializer) SerializeNode(n *Node) (string, error) {
	if n.Type == s.schema.topNode {
		return s.Serialize(n.Content)
	}
	return s.Serialize(Fragment{n})
}

// RenderFragment renders f into detached HTML nodes. Adjacent nodes that
// share leading marks are rendered inside the same mark elements.
func (s *DOMSerializer) RenderFragment(f Fragment) []*html.Node {
	type openMark struct {
		mark *Mark
		el   *html.Node // nil when the mark renders no element
	}
	var (
		out    []*html.Node
		active []openMark
	)
	appendTo := func(nodes []*html.Node) {
		for i := len(active) - 1; i >= 0; i-- {
			if el := active[i].el; el != nil {
				for _, c := range nodes {
					el.AppendChild(c)
				}
				return
			}
		}
		out = append(out, nodes...)
	}
	for _, n := range f {
		keep := 0
		for keep < len(active) && keep < len(n.Marks) && active[keep].mark.Eq(n.Marks[keep]) {
			keep++
		}
		active = active[:keep]
		// Marks[0] is the outermost mark.
		for _, m := range n.Marks[keep:] {
			var el *html.Node
			if wrapped := wrap(s.markSpec(m), nil); len(wrapped) == 1 {
				el = wrapped[0]
				appendTo(wrapped)
			}
			active = append(active, openMark{mark: m, el: el})
		}
		appendTo(s.renderNode(n))
	}
	return out
}

// renderNode renders n without its marks.
func (s *DOMSerializer) renderNode(n *Node) []*html.Node {
	if n.IsText() {
		return []*html.Node{{Type: html.TextNode, Data: n.Text}}
	}
	in := RenderInput{Node: n, HTMLAttributes: HTMLAttributes(n.Type.Spec.Attrs, n.Attrs)}
	spec := DOMSpec{Tag: n.Type.Name, Attrs: in.HTMLAttributes, Hole: !n.Type.IsLeaf()}
	if n.Type.Spec.ToDOM != nil {
		spec = n.Type.Spec.ToDOM(in)
	}
	var children []*html.Node
	if spec.Hole {
		children = s.RenderFragment(n.Content)
	}
	return wrap(spec, children)
}

func (s *DOMSerializer) markSpec(m *Mark) DOMSpec {
	in := RenderInput{Mark: m, HTMLAttributes: HTMLAttributes(m.Type.Spec.Attrs, m.Attrs)}
	if m.Type.Spec.ToDOM != nil {
		spec := m.Type.Spec.ToDOM(in)
		spec.Hole = true
		return spec
	}
	return DOMSpec{Tag: m.Type.Name, Attrs: in.HTMLAttributes, Hole: true}
}

func wrap(spec DOMSpec, children []*html.Node) []*html.Node {
	if spec.Tag == "" {
		return children
	}
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     spec.Tag,
		DataAtom: atom.Lookup([]byte(spec.Tag)),
		Attr:     append([]html.Attribute(nil), spec.Attrs...),
	}
	if isVoid(el.DataAtom) {
		return []*html.Node{el}
	}
	for _, c := range children {
		el.AppendChild(c)
	}
	return []*html.Node{el}
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

// HTMLAttributes renders attrs in declaration order, skipping nil values.
func HTMLAttributes(specs []AttributeSpec, attrs map[string]any) []html.Attribute {
	var out []html.Attribute
	for _, sp := range specs {
		v, ok := attrs[sp.Name]
		if !ok || v == nil {
			continue
		}
		out = append(out, html.Attribute{Key: sp.Name, Val: fmt.Sprint(v)})
	}
	return out
}
