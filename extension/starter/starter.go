// Package starter provides a small set of author-defined extensions covering
// the common rich-text types.
package starter

import (
	"fmt"
	"strconv"

	"golang.org/x/net/html"

	"github.com/reoring/salvage/extension"
	"github.com/reoring/salvage/model"
)

// Kit returns a single extension bundling every starter extension.
func Kit() extension.Extension {
	return extension.Extension{Name: "starterKit", Extensions: Extensions()}
}

// Extensions returns the starter extensions.
func Extensions() []extension.Extension {
	return []extension.Extension{
		Document(), Paragraph(), Text(), Heading(), Blockquote(),
		BulletList(), OrderedList(), ListItem(), HardBreak(),
		Bold(), Italic(), Code(), Link(),
	}
}

func tagSpec(tag string) model.RenderFunc {
	return func(in model.RenderInput) model.DOMSpec {
		return model.DOMSpec{Tag: tag, Attrs: in.HTMLAttributes, Hole: true}
	}
}

func rules(tags ...string) []model.ParseRule {
	out := make([]model.ParseRule, 0, len(tags))
	for _, t := range tags {
		out = append(out, model.ParseRule{Tag: t})
	}
	return out
}

func Document() extension.Extension {
	return extension.Extension{Name: "doc", Kind: extension.KindNode, TopNode: true, Content: "block+"}
}

func Paragraph() extension.Extension {
	return extension.Extension{
		Name:       "paragraph",
		Kind:       extension.KindNode,
		Priority:   1000,
		Group:      "block",
		Content:    "inline*",
		ParseHTML:  rules("p"),
		RenderHTML: tagSpec("p"),
	}
}

func Text() extension.Extension {
	return extension.Extension{Name: "text", Kind: extension.KindNode, Group: "inline"}
}

// Heading levels 1 to 6 parse from h1..h6.
func Heading() extension.Extension {
	var parse []model.ParseRule
	for level := 1; level <= 6; level++ {
		level := level
		parse = append(parse, model.ParseRule{
			Tag:      fmt.Sprintf("h%d", level),
			GetAttrs: func(*html.Node) (map[string]any, bool) { return map[string]any{"level": level}, true },
		})
	}
	return extension.Extension{
		Name:    "heading",
		Kind:    extension.KindNode,
		Group:   "block",
		Content: "inline*",
		Attributes: []extension.Attribute{{
			Name:       "level",
			Default:    1,
			ParseHTML:  func(*html.Node) any { return nil },
			RenderHTML: func(map[string]any) []html.Attribute { return nil },
		}},
		ParseHTML: parse,
		RenderHTML: func(in model.RenderInput) model.DOMSpec {
			return model.DOMSpec{Tag: fmt.Sprintf("h%v", in.Node.Attrs["level"]), Attrs: in.HTMLAttributes, Hole: true}
		},
	}
}

func Blockquote() extension.Extension {
	return extension.Extension{
		Name:       "blockquote",
		Kind:       extension.KindNode,
		Group:      "block",
		Content:    "block+",
		ParseHTML:  rules("blockquote"),
		RenderHTML: tagSpec("blockquote"),
	}
}

func BulletList() extension.Extension {
	return extension.Extension{
		Name:       "bulletList",
		Kind:       extension.KindNode,
		Group:      "block list",
		Content:    "listItem+",
		ParseHTML:  rules("ul"),
		RenderHTML: tagSpec("ul"),
	}
}

func OrderedList() extension.Extension {
	return extension.Extension{
		Name:    "orderedList",
		Kind:    extension.KindNode,
		Group:   "block list",
		Content: "listItem+",
		Attributes: []extension.Attribute{{
			Name:    "start",
			Default: 1,
			ParseHTML: func(el *html.Node) any {
				if v, ok := extension.ElementAttr(el, "start"); ok {
					if n, err := strconv.Atoi(v); err == nil {
						return n
					}
				}
				return nil
			},
			RenderHTML: func(attrs map[string]any) []html.Attribute {
				if n, ok := attrs["start"].(int); ok && n == 1 {
					return nil
				}
				if v := attrs["start"]; v != nil {
					return []html.Attribute{{Key: "start", Val: fmt.Sprint(v)}}
				}
				return nil
			},
		}},
		ParseHTML:  rules("ol"),
		RenderHTML: tagSpec("ol"),
	}
}

func ListItem() extension.Extension {
	return extension.Extension{
		Name:       "listItem",
		Kind:       extension.KindNode,
		Content:    "paragraph block*",
		ParseHTML:  rules("li"),
		RenderHTML: tagSpec("li"),
	}
}

func HardBreak() extension.Extension {
	return extension.Extension{
		Name:      "hardBreak",
		Kind:      extension.KindNode,
		Group:     "inline",
		Inline:    true,
		ParseHTML: rules("br"),
		RenderHTML: func(model.RenderInput) model.DOMSpec {
			return model.DOMSpec{Tag: "br"}
		},
	}
}

func Bold() extension.Extension {
	return extension.Extension{
		Name:       "bold",
		Kind:       extension.KindMark,
		ParseHTML:  rules("strong", "b"),
		RenderHTML: tagSpec("strong"),
	}
}

func Italic() extension.Extension {
	return extension.Extension{
		Name:       "italic",
		Kind:       extension.KindMark,
		ParseHTML:  rules("em", "i"),
		RenderHTML: tagSpec("em"),
	}
}

func Code() extension.Extension {
	return extension.Extension{
		Name:       "code",
		Kind:       extension.KindMark,
		ParseHTML:  rules("code"),
		RenderHTML: tagSpec("code"),
	}
}

func Link() extension.Extension {
	return extension.Extension{
		Name:     "link",
		Kind:     extension.KindMark,
		Priority: 1000,
		Attributes: []extension.Attribute{
			{Name: "href", Required: true},
			{Name: "target"},
		},
		ParseHTML:  rules("a[href]"),
		RenderHTML: tagSpec("a"),
	}
}

// Collaboration is the marker extension for real-time collaborative editing.
// It contributes no types.
func Collaboration() extension.Extension {
	return extension.Extension{Name: extension.CollaborationName, Collaborative: true}
}
