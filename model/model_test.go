package model_test

import (
	"errors"
	"testing"

	"golang.org/x/net/html"

	"github.com/reoring/salvage/model"
)

func testSchema(t *testing.T) *model.Schema {
	t.Helper()
	s, err := model.NewSchema(model.SchemaSpec{
		Nodes: []model.NamedNodeSpec{
			{Name: "doc", Spec: model.NodeSpec{Content: "block+"}},
			{Name: "paragraph", Spec: model.NodeSpec{
				Content:  "inline*",
				Group:    "block",
				ParseDOM: []model.ParseRule{{Tag: "p"}},
				ToDOM:    func(model.RenderInput) model.DOMSpec { return model.DOMSpec{Tag: "p", Hole: true} },
			}},
			{Name: "image", Spec: model.NodeSpec{
				Group:  "inline",
				Inline: true,
				Attrs:  []model.AttributeSpec{{Name: "src"}},
				ParseDOM: []model.ParseRule{{Tag: "img[src]", GetAttrs: func(el *html.Node) (map[string]any, bool) {
					for _, a := range el.Attr {
						if a.Key == "src" {
							return map[string]any{"src": a.Val}, true
						}
					}
					return nil, false
				}}},
				ToDOM: func(in model.RenderInput) model.DOMSpec {
					return model.DOMSpec{Tag: "img", Attrs: in.HTMLAttributes}
				},
			}},
			{Name: "text", Spec: model.NodeSpec{Group: "inline"}},
		},
		Marks: []model.NamedMarkSpec{
			{Name: "bold", Spec: model.MarkSpec{
				ParseDOM: []model.ParseRule{{Tag: "strong"}, {Tag: "b"}},
				ToDOM:    func(model.RenderInput) model.DOMSpec { return model.DOMSpec{Tag: "strong"} },
			}},
		},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func TestNewSchema_RequiresTopAndText(t *testing.T) {
	_, err := model.NewSchema(model.SchemaSpec{Nodes: []model.NamedNodeSpec{{Name: "text"}}})
	if !errors.Is(err, model.ErrNoTopNode) {
		t.Fatalf("expected ErrNoTopNode, got %v", err)
	}
	_, err = model.NewSchema(model.SchemaSpec{Nodes: []model.NamedNodeSpec{{Name: "doc"}}})
	if !errors.Is(err, model.ErrNoTextNode) {
		t.Fatalf("expected ErrNoTextNode, got %v", err)
	}
	_, err = model.NewSchema(model.SchemaSpec{Nodes: []model.NamedNodeSpec{{Name: "doc"}, {Name: "text"}, {Name: "doc"}}})
	if err == nil {
		t.Fatalf("expected duplicate node type error")
	}
}

func TestFromJSON_UnknownTypes(t *testing.T) {
	s := testSchema(t)
	cases := []struct {
		name string
		in   any
		kind string
		typ  string
	}{
		{"unknown node", map[string]any{"type": "doc", "content": []any{map[string]any{"type": "callout"}}}, model.KindNode, "callout"},
		{"unknown mark", map[string]any{"type": "paragraph", "content": []any{
			map[string]any{"type": "text", "text": "x", "marks": []any{"highlight"}},
		}}, model.KindMark, "highlight"},
		{"missing type", map[string]any{"content": []any{}}, model.KindNode, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.FromJSON(s, tc.in)
			var se *model.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if se.Kind != tc.kind || se.Name != tc.typ {
				t.Fatalf("got %s %q, want %s %q", se.Kind, se.Name, tc.kind, tc.typ)
			}
		})
	}
	if _, err := model.FromJSON(s, "doc"); !errors.Is(err, model.ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestFromJSON_RoundTrip(t *testing.T) {
	s := testSchema(t)
	in := map[string]any{"type": "doc", "content": []any{
		map[string]any{"type": "paragraph", "content": []any{
			map[string]any{"type": "text", "text": "hi", "marks": []any{map[string]any{"type": "bold"}}},
			map[string]any{"type": "image", "attrs": map[string]any{"src": "a.png"}},
		}},
	}}
	n, err := model.FromJSON(s, in)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got := n.TextContent(); got != "hi" {
		t.Fatalf("text content: %q", got)
	}
	out := n.ToJSON()
	p := out["content"].([]any)[0].(map[string]any)
	img := p["content"].([]any)[1].(map[string]any)
	if img["attrs"].(map[string]any)["src"] != "a.png" {
		t.Fatalf("attrs not preserved: %v", img)
	}
}

func TestFromJSON_RequiredAttr(t *testing.T) {
	s := testSchema(t)
	_, err := model.FromJSON(s, map[string]any{"type": "image"})
	var ae *model.AttrError
	if !errors.As(err, &ae) || ae.Attr != "src" {
		t.Fatalf("expected AttrError for src, got %v", err)
	}
}

func TestCreateAndFill(t *testing.T) {
	s := testSchema(t)
	doc, err := s.TopNodeType().CreateAndFill()
	if err != nil {
		t.Fatalf("CreateAndFill: %v", err)
	}
	if len(doc.Content) != 1 || doc.Content[0].Type.Name != "paragraph" {
		t.Fatalf("expected a single empty paragraph, got %v", doc.ToJSON())
	}
}

func TestDOMParser_ParseAndSerialize(t *testing.T) {
	s := testSchema(t)
	p := model.NewDOMParser(s)
	doc, err := p.ParseHTML("<p>Hello <b>world</b></p>\n<p><img src=\"x.png\"></p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Content) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(doc.Content))
	}
	first := doc.Content[0]
	if len(first.Content) != 2 || first.Content[1].Marks[0].Type.Name != "bold" {
		t.Fatalf("unexpected first paragraph: %v", first.ToJSON())
	}
	out, err := model.NewDOMSerializer(s).SerializeNode(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := `<p>Hello <strong>world</strong></p><p><img src="x.png"/></p>`
	if out != want {
		t.Fatalf("got %s\nwant %s", out, want)
	}
}

func TestDOMParser_UnknownElementsAreTransparent(t *testing.T) {
	s := testSchema(t)
	doc, err := model.NewDOMParser(s).ParseHTML("<section><p>a</p></section>loose")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %v", doc.ToJSON())
	}
	if got := doc.Content[1].TextContent(); got != "loose" {
		t.Fatalf("loose text not wrapped: %q", got)
	}
}

func TestDOMParser_SliceKeepsInlineTopLevel(t *testing.T) {
	s := testSchema(t)
	f, err := model.NewDOMParser(s).ParseSliceHTML("just <b>text</b>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f) != 2 || !f[0].IsText() || !f[1].IsText() {
		t.Fatalf("expected two text nodes, got %v", f.ToJSON())
	}
}

func TestDOMParser_EmptyDocumentIsFilled(t *testing.T) {
	s := testSchema(t)
	doc, err := model.NewDOMParser(s).ParseHTML("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Content) != 1 {
		t.Fatalf("expected filled document, got %v", doc.ToJSON())
	}
}

func TestDOMSerializer_AdjacentMarksShareElement(t *testing.T) {
	s := testSchema(t)
	doc, err := model.NewDOMParser(s).ParseHTML("<p><b>a</b><strong>b</strong>c<b>d</b></p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := model.NewDOMSerializer(s).SerializeNode(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if want := "<p><strong>ab</strong>c<strong>d</strong></p>"; out != want {
		t.Fatalf("got %s\nwant %s", out, want)
	}

	n, err := model.FromJSON(s, map[string]any{"type": "paragraph", "content": []any{
		map[string]any{"type": "text", "text": "x", "marks": []any{"bold"}},
		map[string]any{"type": "text", "text": "y", "marks": []any{map[string]any{"type": "bold"}}},
	}})
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	out, err = model.NewDOMSerializer(s).SerializeNode(n)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if want := "<p><strong>xy</strong></p>"; out != want {
		t.Fatalf("got %s\nwant %s", out, want)
	}
}
