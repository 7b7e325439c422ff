// Package model is the document model the salvage engine works against: a
// schema of named node and mark types, the tree built from it, and the
// HTML parser and serializer derived from the types' parse and render rules.
//
// Type identity is the type name. Two schemas that declare a type with the
// same name are considered to agree on it.
package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Parse rule priorities. A zero Priority on a ParseRule means PriorityDefault.
const (
	PriorityDefault = 50
	PriorityLowest  = math.MinInt32
)

// AttributeSpec declares one attribute of a node or mark type.
type AttributeSpec struct {
	Name string
	// Default is used when the attribute is absent. Attributes with
	// HasDefault unset are required.
	Default    any
	HasDefault bool
}

// ParseRule maps an HTML element to a node or mark type.
type ParseRule struct {
	// Tag is a CSS selector matched against the element. "*" matches any element.
	Tag      string
	Priority int
	// GetAttrs extracts attributes from the element. Returning false rejects
	// the match so the next rule is tried.
	GetAttrs func(el *html.Node) (map[string]any, bool)
}

func (r ParseRule) priority() int {
	if r.Priority == 0 {
		return PriorityDefault
	}
	return r.Priority
}

// DOMSpec is the element a node or mark renders to. When Hole is set the
// node's content (or the marked content) is rendered inside the element.
// An empty Tag renders the content without a wrapper.
type DOMSpec struct {
	Tag   string
	Attrs []html.Attribute
	Hole  bool
}

// RenderInput is what a RenderFunc receives. Exactly one of Node and Mark is set.
type RenderInput struct {
	Node           *Node
	Mark           *Mark
	HTMLAttributes []html.Attribute
}

// RenderFunc renders a node or mark to its DOMSpec.
type RenderFunc func(in RenderInput) DOMSpec

// NodeSpec describes a node type.
type NodeSpec struct {
	// Content is the content expression, for example "block+" or "inline*".
	// Empty means the node is a leaf.
	Content  string
	Group    string
	Inline   bool
	Atom     bool
	Attrs    []AttributeSpec
	ParseDOM []ParseRule
	ToDOM    RenderFunc
}

// MarkSpec describes a mark type.
type MarkSpec struct {
	Attrs    []AttributeSpec
	ParseDOM []ParseRule
	ToDOM    RenderFunc
}

// NamedNodeSpec pairs a node type name with its spec.
type NamedNodeSpec struct {
	Name string
	Spec NodeSpec
}

// NamedMarkSpec pairs a mark type name with its spec.
type NamedMarkSpec struct {
	Name string
	Spec MarkSpec
}

// SchemaSpec is the ordered input to NewSchema. Order matters: it breaks
// ties between parse rules of equal priority and picks defaults such as the
// default textblock.
type SchemaSpec struct {
	Nodes []NamedNodeSpec
	Marks []NamedMarkSpec
	// TopNode names the root node type; "doc" when empty.
	TopNode string
}

// Schema is a resolved set of node and mark types.
type Schema struct {
	nodes     map[string]*NodeType
	marks     map[string]*MarkType
	nodeOrder []*NodeType
	markOrder []*MarkType
	topNode   *NodeType
}

var (
	// ErrNoTopNode is returned when the schema lacks its top node type.
	ErrNoTopNode = errors.New("model: schema has no top node type")
	// ErrNoTextNode is returned when the schema lacks the "text" node type.
	ErrNoTextNode = errors.New("model: schema has no text node type")
)

// NewSchema builds a Schema from spec.
func NewSchema(spec SchemaSpec) (*Schema, error) {
	s := &Schema{
		nodes: make(map[string]*NodeType, len(spec.Nodes)),
		marks: make(map[string]*MarkType, len(spec.Marks)),
	}
	for _, ns := range spec.Nodes {
		if ns.Name == "" {
			return nil, errors.New("model: node type without a name")
		}
		if _, dup := s.nodes[ns.Name]; dup {
			return nil, fmt.Errorf("model: duplicate node type %q", ns.Name)
		}
		nt := &NodeType{Name: ns.Name, Spec: ns.Spec, schema: s, groups: strings.Fields(ns.Spec.Group)}
		s.nodes[ns.Name] = nt
		s.nodeOrder = append(s.nodeOrder, nt)
	}
	for _, ms := range spec.Marks {
		if ms.Name == "" {
			return nil, errors.New("model: mark type without a name")
		}
		if _, dup := s.marks[ms.Name]; dup {
			return nil, fmt.Errorf("model: duplicate mark type %q", ms.Name)
		}
		mt := &MarkType{Name: ms.Name, Spec: ms.Spec, schema: s}
		s.marks[ms.Name] = mt
		s.markOrder = append(s.markOrder, mt)
	}
	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	s.topNode = s.nodes[top]
	if s.topNode == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoTopNode, top)
	}
	if s.nodes["text"] == nil {
		return nil, ErrNoTextNode
	}
	for _, nt := range s.nodeOrder {
		nt.content = parseContentExpr(nt.Spec.Content)
	}
	return s, nil
}

// Node returns the node type with the given name, or nil.
func (s *Schema) Node(name string) *NodeType { return s.nodes[name] }

// Mark returns the mark type with the given name, or nil.
func (s *Schema) Mark(name string) *MarkType { return s.marks[name] }

// TopNodeType returns the root node type.
func (s *Schema) TopNodeType() *NodeType { return s.topNode }

// NodeTypes returns the node types in declaration order.
func (s *Schema) NodeTypes() []*NodeType { return append([]*NodeType(nil), s.nodeOrder...) }

// MarkTypes returns the mark types in declaration order.
func (s *Schema) MarkTypes() []*MarkType { return append([]*MarkType(nil), s.markOrder...) }

// NodeNames returns the set of valid node type names.
func (s *Schema) NodeNames() map[string]struct{} {
	out := make(map[string]struct{}, len(s.nodes))
	for name := range s.nodes {
		out[name] = struct{}{}
	}
	return out
}

// MarkNames returns the set of valid mark type names.
func (s *Schema) MarkNames() map[string]struct{} {
	out := make(map[string]struct{}, len(s.marks))
	for name := range s.marks {
		out[name] = struct{}{}
	}
	return out
}

// HasNode reports whether name is a node type of s.
func (s *Schema) HasNode(name string) bool {
	_, ok := s.nodes[name]
	return ok
}

// HasMark reports whether name is a mark type of s.
func (s *Schema) HasMark(name string) bool {
	_, ok := s.marks[name]
	return ok
}

// Text creates a text node.
func (s *Schema) Text(text string, marks []*Mark) *Node {
	return &Node{Type: s.nodes["text"], Text: text, Marks: marks}
}

// typesFor resolves a content expression name: a node type name or a group.
func (s *Schema) typesFor(name string) []*NodeType {
	if nt, ok := s.nodes[name]; ok {
		return []*NodeType{nt}
	}
	var out []*NodeType
	for _, nt := range s.nodeOrder {
		if nt.InGroup(name) {
			out = append(out, nt)
		}
	}
	return out
}

// defaultTextblock is the first block type that takes inline content.
func (s *Schema) defaultTextblock() *NodeType {
	for _, nt := range s.nodeOrder {
		if nt.IsBlock() && nt.InlineContent() {
			return nt
		}
	}
	return nil
}

// NodeType is a named node type within a Schema.
type NodeType struct {
	Name    string
	Spec    NodeSpec
	schema  *Schema
	groups  []string
	content []contentTerm
}

// Schema returns the schema the type belongs to.
func (t *NodeType) Schema() *Schema { return t.schema }

// IsText reports whether t is the text node type.
func (t *NodeType) IsText() bool { return t.Name == "text" }

// IsInline reports whether nodes of t are inline.
func (t *NodeType) IsInline() bool { return t.Spec.Inline || t.IsText() }

// IsBlock reports whether nodes of t are block level.
func (t *NodeType) IsBlock() bool { return !t.IsInline() }

// IsLeaf reports whether t has no content expression.
func (t *NodeType) IsLeaf() bool { return len(t.content) == 0 }

// InGroup reports whether t belongs to group g.
func (t *NodeType) InGroup(g string) bool {
	for _, have := range t.groups {
		if have == g {
			return true
		}
	}
	return false
}

// InlineContent reports whether t's content expression admits inline nodes.
func (t *NodeType) InlineContent() bool {
	for _, term := range t.content {
		for _, name := range term.names {
			for _, nt := range t.schema.typesFor(name) {
				if nt.IsInline() {
					return true
				}
			}
		}
	}
	return false
}

// Create builds a node of type t, filling attribute defaults.
func (t *NodeType) Create(attrs map[string]any, content Fragment, marks []*Mark) (*Node, error) {
	computed, err := computeAttrs(t.Name, t.Spec.Attrs, attrs)
	if err != nil {
		return nil, err
	}
	return &Node{Type: t, Attrs: computed, Content: content, Marks: marks}, nil
}

// CreateAndFill builds a node of type t with the minimal content its
// content expression requires.
func (t *NodeType) CreateAndFill() (*Node, error) {
	return t.createAndFill(0)
}

const maxFillDepth = 16

func (t *NodeType) createAndFill(depth int) (*Node, error) {
	if depth > maxFillDepth {
		return nil, fmt.Errorf("model: cannot fill %q: content expression recurses", t.Name)
	}
	var content Fragment
	for _, term := range t.content {
		if term.min == 0 {
			continue
		}
		child, err := t.schema.fillFor(term, depth+1)
		if err != nil {
			return nil, err
		}
		content = append(content, child)
	}
	return t.Create(nil, content, nil)
}

func (s *Schema) fillFor(term contentTerm, depth int) (*Node, error) {
	for _, name := range term.names {
		for _, nt := range s.typesFor(name) {
			if nt.IsText() {
				continue
			}
			if n, err := nt.createAndFill(depth); err == nil {
				return n, nil
			}
		}
	}
	return nil, fmt.Errorf("model: no fillable type for %q", strings.Join(term.names, " | "))
}

// MarkType is a named mark type within a Schema.
type MarkType struct {
	Name   string
	Spec   MarkSpec
	schema *Schema
}

// Create builds a mark of type t, filling attribute defaults.
func (t *MarkType) Create(attrs map[string]any) (*Mark, error) {
	computed, err := computeAttrs(t.Name, t.Spec.Attrs, attrs)
	if err != nil {
		return nil, err
	}
	return &Mark{Type: t, Attrs: computed}, nil
}

// AttrError reports a required attribute that was not supplied.
type AttrError struct {
	Type string
	Attr string
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("model: no value supplied for attribute %q of %q", e.Attr, e.Type)
}

func computeAttrs(typeName string, specs []AttributeSpec, given map[string]any) (map[string]any, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(specs))
	for _, sp := range specs {
		v, ok := given[sp.Name]
		switch {
		case ok && v != nil:
			out[sp.Name] = v
		case sp.HasDefault:
			out[sp.Name] = sp.Default
		case ok:
			out[sp.Name] = nil
		default:
			return nil, &AttrError{Type: typeName, Attr: sp.Name}
		}
	}
	return out, nil
}

// contentTerm is one element of a content expression: a set of
// alternative names with a minimum occurrence count.
type contentTerm struct {
	names []string
	min   int
}

var contentExprRe = regexp.MustCompile(`\(([^)]*)\)([*+?]|\{[^}]*\})?|([A-Za-z0-9_-]+)([*+?]|\{[^}]*\})?`)

func parseContentExpr(expr string) []contentTerm {
	var out []contentTerm
	for _, m := range contentExprRe.FindAllStringSubmatch(expr, -1) {
		var names []string
		var suffix string
		if m[3] != "" {
			names = []string{m[3]}
			suffix = m[4]
		} else {
			for _, alt := range strings.Split(m[1], "|") {
				if alt = strings.TrimSpace(alt); alt != "" {
					names = append(names, alt)
				}
			}
			suffix = m[2]
		}
		if len(names) == 0 {
			continue
		}
		out = append(out, contentTerm{names: names, min: minOccurs(suffix)})
	}
	return out
}

func minOccurs(suffix string) int {
	switch {
	case suffix == "*" || suffix == "?":
		return 0
	case strings.HasPrefix(suffix, "{"):
		var n int
		if _, err := fmt.Sscanf(suffix, "{%d", &n); err == nil {
			return n
		}
		return 0
	default:
		return 1
	}
}
