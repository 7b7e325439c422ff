// Package extension describes schema extensions: named node, mark, and
// plain extensions carrying the attributes, parse rules, and render rule of
// one type. A list of extensions is resolved into priority order and then
// derived into a model.Schema.
package extension

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/net/html"

	"github.com/reoring/salvage/model"
)

// Kind distinguishes what an extension contributes to the schema.
type Kind int

const (
	KindExtension Kind = iota // Contributes no type.
	KindNode
	KindMark
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindMark:
		return "mark"
	default:
		return "extension"
	}
}

// Extension priorities. A zero Priority means DefaultPriority.
const (
	DefaultPriority = 100
	Lowest          = math.MinInt32
)

// CollaborationName is the name of the real-time collaboration extension.
const CollaborationName = "collaboration"

// Attribute declares one attribute of a node or mark extension.
type Attribute struct {
	Name    string
	Default any
	// Required attributes have no default and must be supplied.
	Required bool
	// ParseHTML reads the attribute from an element. When nil the element
	// attribute of the same name is used.
	ParseHTML func(el *html.Node) any
	// RenderHTML renders the attribute. When nil the value is rendered under
	// the attribute name; nil values are skipped.
	RenderHTML func(attrs map[string]any) []html.Attribute
}

// Extension describes one schema extension.
type Extension struct {
	Name     string
	Kind     Kind
	Priority int
	// TopNode marks the node extension that roots documents.
	TopNode bool
	Group   string
	Content string
	Inline  bool
	Atom    bool
	// Collaborative marks extensions that synchronize the document between
	// writers.
	Collaborative bool
	Attributes    []Attribute
	ParseHTML     []model.ParseRule
	RenderHTML    model.RenderFunc
	// Extensions are nested extensions resolved alongside this one.
	Extensions []Extension
}

// EffectivePriority returns Priority, or DefaultPriority when unset.
func (e Extension) EffectivePriority() int {
	if e.Priority == 0 {
		return DefaultPriority
	}
	return e.Priority
}

// IsCollaboration reports whether e synchronizes the document between writers.
func (e Extension) IsCollaboration() bool {
	return e.Collaborative || e.Name == CollaborationName
}

// Resolved is a flattened extension list in descending priority order.
type Resolved []Extension

// Resolve flattens nested extensions and orders the result by descending
// priority. Equal priorities keep their input order. When two extensions
// of the same kind share a name the first one after ordering wins.
func Resolve(exts []Extension) Resolved {
	flat := flatten(exts)
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].EffectivePriority() > flat[j].EffectivePriority()
	})
	return lo.UniqBy(flat, func(e Extension) string { return e.Kind.String() + ":" + e.Name })
}

func flatten(exts []Extension) []Extension {
	var out []Extension
	for _, e := range exts {
		nested := e.Extensions
		e.Extensions = nil
		out = append(out, e)
		out = append(out, flatten(nested)...)
	}
	return out
}

// Names returns the extension names in resolved order.
func (r Resolved) Names() []string {
	return lo.Map(r, func(e Extension, _ int) string { return e.Name })
}

// Without returns exts minus every extension for which drop returns true,
// looking into nested extensions as well.
func Without(exts []Extension, drop func(Extension) bool) []Extension {
	var out []Extension
	for _, e := range exts {
		if drop(e) {
			continue
		}
		if len(e.Extensions) > 0 {
			e.Extensions = Without(e.Extensions, drop)
		}
		out = append(out, e)
	}
	return out
}

// DeriveSchema builds the schema described by r.
func DeriveSchema(r Resolved) (*model.Schema, error) {
	spec := model.SchemaSpec{}
	for _, e := range r {
		switch e.Kind {
		case KindNode:
			if e.TopNode {
				spec.TopNode = e.Name
			}
			spec.Nodes = append(spec.Nodes, model.NamedNodeSpec{Name: e.Name, Spec: model.NodeSpec{
				Content:  e.Content,
				Group:    e.Group,
				Inline:   e.Inline,
				Atom:     e.Atom,
				Attrs:    attributeSpecs(e.Attributes),
				ParseDOM: parseRules(e),
				ToDOM:    renderFunc(e),
			}})
		case KindMark:
			spec.Marks = append(spec.Marks, model.NamedMarkSpec{Name: e.Name, Spec: model.MarkSpec{
				Attrs:    attributeSpecs(e.Attributes),
				ParseDOM: parseRules(e),
				ToDOM:    renderFunc(e),
			}})
		}
	}
	s, err := model.NewSchema(spec)
	if err != nil {
		return nil, fmt.Errorf("extension: derive schema: %w", err)
	}
	return s, nil
}

// SchemaFor resolves exts and derives their schema.
func SchemaFor(exts []Extension) (*model.Schema, error) {
	return DeriveSchema(Resolve(exts))
}

func attributeSpecs(attrs []Attribute) []model.AttributeSpec {
	return lo.Map(attrs, func(a Attribute, _ int) model.AttributeSpec {
		return model.AttributeSpec{Name: a.Name, Default: a.Default, HasDefault: !a.Required}
	})
}

// parseRules layers the extension's attribute parsing on top of each rule.
func parseRules(e Extension) []model.ParseRule {
	if len(e.ParseHTML) == 0 {
		return nil
	}
	rules := make([]model.ParseRule, 0, len(e.ParseHTML))
	for _, r := range e.ParseHTML {
		base := r.GetAttrs
		attrs := e.Attributes
		r.GetAttrs = func(el *html.Node) (map[string]any, bool) {
			out := map[string]any{}
			if base != nil {
				got, ok := base(el)
				if !ok {
					return nil, false
				}
				for k, v := range got {
					out[k] = v
				}
			}
			for _, a := range attrs {
				var v any
				if a.ParseHTML != nil {
					v = a.ParseHTML(el)
				} else if s, ok := ElementAttr(el, a.Name); ok {
					v = s
				}
				if v != nil {
					out[a.Name] = v
				}
			}
			return out, true
		}
		rules = append(rules, r)
	}
	return rules
}

func renderFunc(e Extension) model.RenderFunc {
	attrs := e.Attributes
	render := e.RenderHTML
	name := e.Name
	hole := e.Kind == KindMark || e.Content != ""
	return func(in model.RenderInput) model.DOMSpec {
		values := map[string]any(nil)
		if in.Node != nil {
			values = in.Node.Attrs
		} else if in.Mark != nil {
			values = in.Mark.Attrs
		}
		in.HTMLAttributes = RenderAttributes(attrs, values)
		if render != nil {
			return render(in)
		}
		return model.DOMSpec{Tag: name, Attrs: in.HTMLAttributes, Hole: hole}
	}
}

// RenderAttributes renders attribute values in declaration order.
func RenderAttributes(attrs []Attribute, values map[string]any) []html.Attribute {
	var out []html.Attribute
	for _, a := range attrs {
		if a.RenderHTML != nil {
			out = append(out, a.RenderHTML(values)...)
			continue
		}
		v, ok := values[a.Name]
		if !ok || v == nil {
			continue
		}
		out = append(out, html.Attribute{Key: a.Name, Val: fmt.Sprint(v)})
	}
	return out
}

// ElementAttr returns the value of the named attribute of el.
func ElementAttr(el *html.Node, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
