package salvage

import (
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/net/html"

	"github.com/reoring/salvage/extension"
	"github.com/reoring/salvage/model"
)

// Observation is one sighting of an unknown type.
type Observation struct {
	Kind           Kind
	TagName        string
	AttributeNames []string
}

// PlaceholderOptions configures placeholder synthesis.
type PlaceholderOptions struct {
	// FallbackRenderer replaces the default render rule of every placeholder.
	// It receives the same input real render rules get.
	FallbackRenderer model.RenderFunc
}

// ObservationsFromBlocks turns an invalid-content report into observations.
func ObservationsFromBlocks(blocks []InvalidContentBlock) []Observation {
	return lo.Map(blocks, func(b InvalidContentBlock, _ int) Observation {
		return Observation{Kind: b.Kind, TagName: b.Name, AttributeNames: b.AttributeNames}
	})
}

// ObservationsFromElements turns probe results into node observations.
func ObservationsFromElements(elements []UnknownElement) []Observation {
	return lo.Map(elements, func(e UnknownElement, _ int) Observation {
		return Observation{Kind: KindNode, TagName: e.TagName, AttributeNames: e.AttributeNames}
	})
}

type placeholderKey struct {
	kind Kind
	tag  string
}

// Synthesize returns one placeholder extension per distinct (kind, tag) in
// obs, in first-seen order. Each placeholder declares the union of the
// attribute names observed for its tag, has the lowest priority so real
// extensions for the same tag always win, and re-renders the tag with its
// attributes around its content unless opts supplies a renderer.
func Synthesize(obs []Observation, opts PlaceholderOptions) []extension.Extension {
	var order []placeholderKey
	attrs := map[placeholderKey][]string{}
	for _, o := range obs {
		if o.TagName == "" {
			continue
		}
		k := placeholderKey{kind: o.Kind, tag: o.TagName}
		have, seen := attrs[k]
		if !seen {
			order = append(order, k)
		}
		attrs[k] = lo.Union(have, o.AttributeNames)
	}
	out := make([]extension.Extension, 0, len(order))
	for _, k := range order {
		out = append(out, placeholder(k.kind, k.tag, attrs[k], opts))
	}
	return out
}

func placeholder(kind Kind, tag string, attrNames []string, opts PlaceholderOptions) extension.Extension {
	e := extension.Extension{
		Name:      tag,
		Kind:      kind.extensionKind(),
		Priority:  extension.Lowest,
		ParseHTML: []model.ParseRule{elementRule(tag)},
	}
	if kind == KindNode {
		e.Group = "block"
		e.Content = "inline*"
	}
	for _, name := range attrNames {
		name := name
		e.Attributes = append(e.Attributes, extension.Attribute{
			Name: name,
			ParseHTML: func(el *html.Node) any {
				if v, ok := extension.ElementAttr(el, name); ok {
					return v
				}
				return nil
			},
		})
	}
	e.RenderHTML = opts.FallbackRenderer
	if e.RenderHTML == nil {
		e.RenderHTML = func(in model.RenderInput) model.DOMSpec {
			return model.DOMSpec{Tag: tag, Attrs: in.HTMLAttributes, Hole: true}
		}
	}
	return e
}

// elementRule matches elements named tag. Tag names are compared directly
// rather than as a selector, so names such as "o:p" or "x.y" still match.
func elementRule(tag string) model.ParseRule {
	return model.ParseRule{
		Tag:      "*",
		Priority: model.PriorityLowest,
		GetAttrs: func(el *html.Node) (map[string]any, bool) {
			if el.Data != tag {
				return nil, false
			}
			return map[string]any{}, true
		},
	}
}

// CreatePlaceholderExtensions returns exts extended with placeholders for
// every unknown type in content. content is an HTML string, JSON bytes, or a
// JSON tree. When placeholders are added for HTML content, collaboration
// extensions are removed: ad hoc schema rules cannot be merged safely
// between writers.
func CreatePlaceholderExtensions(content any, exts []extension.Extension, opts PlaceholderOptions) ([]extension.Extension, error) {
	var obs []Observation
	isHTML := false
	switch c := content.(type) {
	case string:
		isHTML = true
		elements, err := FindUnknownElements(c, exts)
		if err != nil {
			return nil, err
		}
		obs = ObservationsFromElements(elements)
	default:
		tree, err := normalizeJSON(content)
		if err != nil {
			return nil, err
		}
		schema, err := extension.SchemaFor(exts)
		if err != nil {
			return nil, fmt.Errorf("salvage: placeholder schema: %w", err)
		}
		obs = ObservationsFromBlocks(Validate(tree, schema))
	}
	placeholders := Synthesize(obs, opts)
	if len(placeholders) == 0 {
		return exts, nil
	}
	base := append([]extension.Extension(nil), exts...)
	if isHTML {
		base = extension.Without(base, extension.Extension.IsCollaboration)
	}
	return append(base, placeholders...), nil
}

// IsContentInvalid reports whether content holds types exts cannot parse.
// Content whose schema cannot be derived counts as invalid.
func IsContentInvalid(content any, exts []extension.Extension) bool {
	if s, ok := content.(string); ok {
		elements, err := FindUnknownElements(s, exts)
		return err != nil || len(elements) > 0
	}
	tree, err := normalizeJSON(content)
	if err != nil {
		return true
	}
	schema, err := extension.SchemaFor(exts)
	if err != nil {
		return true
	}
	return len(Validate(tree, schema)) > 0
}
