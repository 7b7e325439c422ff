package salvage_test

import (
	"reflect"
	"testing"

	salvage "github.com/reoring/salvage"
	"github.com/reoring/salvage/extension"
	"github.com/reoring/salvage/extension/starter"
	"github.com/reoring/salvage/model"
)

func attributeNames(e extension.Extension) []string {
	var out []string
	for _, a := range e.Attributes {
		out = append(out, a.Name)
	}
	return out
}

func TestSynthesize_UnionsAttributes(t *testing.T) {
	obs := []salvage.Observation{
		{Kind: salvage.KindNode, TagName: "widget", AttributeNames: []string{"a"}},
		{Kind: salvage.KindNode, TagName: "widget", AttributeNames: []string{"b", "a"}},
		{Kind: salvage.KindMark, TagName: "widget", AttributeNames: []string{"c"}},
		{Kind: salvage.KindNode, TagName: "widget"},
		{Kind: salvage.KindNode, TagName: ""},
	}
	exts := salvage.Synthesize(obs, salvage.PlaceholderOptions{})
	if len(exts) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(exts))
	}
	node, mark := exts[0], exts[1]
	if node.Kind != extension.KindNode || node.Name != "widget" || node.Group != "block" || node.Content != "inline*" {
		t.Fatalf("unexpected node placeholder: %+v", node)
	}
	if node.Priority != extension.Lowest {
		t.Fatalf("priority: %d", node.Priority)
	}
	if got := attributeNames(node); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("node attributes: %v", got)
	}
	if mark.Kind != extension.KindMark || mark.Content != "" {
		t.Fatalf("unexpected mark placeholder: %+v", mark)
	}
	if got := attributeNames(mark); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("mark attributes: %v", got)
	}
	for _, a := range node.Attributes {
		if a.Default != nil || a.Required {
			t.Fatalf("attribute %s should default to absent", a.Name)
		}
	}
}

func TestPlaceholder_HTMLRoundTrip(t *testing.T) {
	const src = `<custom-widget data-id="5">hello</custom-widget>`
	base := starter.Extensions()
	exts, err := salvage.CreatePlaceholderExtensions(src, base, salvage.PlaceholderOptions{})
	if err != nil {
		t.Fatalf("CreatePlaceholderExtensions: %v", err)
	}
	if len(exts) != len(base)+1 {
		t.Fatalf("expected one added extension, got %d", len(exts)-len(base))
	}
	added := exts[len(exts)-1]
	if added.Name != "custom-widget" || !reflect.DeepEqual(attributeNames(added), []string{"data-id"}) {
		t.Fatalf("unexpected placeholder: %+v", added)
	}
	schema, err := extension.SchemaFor(exts)
	if err != nil {
		t.Fatalf("SchemaFor: %v", err)
	}
	frag, err := model.NewDOMParser(schema).ParseSliceHTML(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := model.NewDOMSerializer(schema).Serialize(frag)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if got != src {
		t.Fatalf("got %s\nwant %s", got, src)
	}
	if still, _ := salvage.FindUnknownElements(src, exts); len(still) != 0 {
		t.Fatalf("placeholder did not claim the element: %+v", still)
	}
}

func TestPlaceholder_RoundTripTagNames(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"namespaced", `<o:p class="z">word</o:p>`, `<o:p class="z">word</o:p>`},
		{"dotted", `<x.y data-k="1">v</x.y>`, `<x.y data-k="1">v</x.y>`},
		{"nested", `<x-a><x-b id="b">t</x-b></x-a>`, `<x-a><x-b id="b">t</x-b></x-a>`},
		// Valueless attributes come back with an empty value.
		{"bare attribute", `<x-a hidden>t</x-a>`, `<x-a hidden="">t</x-a>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exts, err := salvage.CreatePlaceholderExtensions(tc.src, starter.Extensions(), salvage.PlaceholderOptions{})
			if err != nil {
				t.Fatalf("CreatePlaceholderExtensions: %v", err)
			}
			if salvage.IsContentInvalid(tc.src, exts) {
				still, _ := salvage.FindUnknownElements(tc.src, exts)
				t.Fatalf("still unknown after placeholders: %+v", still)
			}
			schema, err := extension.SchemaFor(exts)
			if err != nil {
				t.Fatalf("SchemaFor: %v", err)
			}
			frag, err := model.NewDOMParser(schema).ParseSliceHTML(tc.src)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, err := model.NewDOMSerializer(schema).Serialize(frag)
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestPlaceholder_RealExtensionWins(t *testing.T) {
	exts := append(starter.Extensions(), salvage.Synthesize([]salvage.Observation{
		{Kind: salvage.KindNode, TagName: "p", AttributeNames: []string{"class"}},
	}, salvage.PlaceholderOptions{})...)
	schema, err := extension.SchemaFor(exts)
	if err != nil {
		t.Fatalf("SchemaFor: %v", err)
	}
	doc, err := model.NewDOMParser(schema).ParseHTML(`<p class="x">hi</p>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if name := doc.Content[0].Type.Name; name != "paragraph" {
		t.Fatalf("placeholder won over paragraph: %s", name)
	}
}

func TestPlaceholder_FallbackRenderer(t *testing.T) {
	var seen []string
	opts := salvage.PlaceholderOptions{FallbackRenderer: func(in model.RenderInput) model.DOMSpec {
		seen = append(seen, in.Node.Type.Name)
		return model.DOMSpec{Tag: "div", Attrs: in.HTMLAttributes, Hole: true}
	}}
	const src = `<x-card data-id="1">a</x-card>`
	exts, err := salvage.CreatePlaceholderExtensions(src, starter.Extensions(), opts)
	if err != nil {
		t.Fatalf("CreatePlaceholderExtensions: %v", err)
	}
	schema, err := extension.SchemaFor(exts)
	if err != nil {
		t.Fatalf("SchemaFor: %v", err)
	}
	frag, err := model.NewDOMParser(schema).ParseSliceHTML(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := model.NewDOMSerializer(schema).Serialize(frag)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if want := `<div data-id="1">a</div>`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if !reflect.DeepEqual(seen, []string{"x-card"}) {
		t.Fatalf("renderer calls: %v", seen)
	}
}

func TestPlaceholder_CollaborationRemoval(t *testing.T) {
	base := append(starter.Extensions(), starter.Collaboration())

	exts, err := salvage.CreatePlaceholderExtensions(`<x-chip></x-chip>`, base, salvage.PlaceholderOptions{})
	if err != nil {
		t.Fatalf("CreatePlaceholderExtensions: %v", err)
	}
	for _, e := range exts {
		if e.IsCollaboration() {
			t.Fatal("collaboration kept alongside HTML placeholders")
		}
	}

	exts, err = salvage.CreatePlaceholderExtensions(`<p>known</p>`, base, salvage.PlaceholderOptions{})
	if err != nil {
		t.Fatalf("CreatePlaceholderExtensions: %v", err)
	}
	if len(exts) != len(base) {
		t.Fatal("extensions changed for known content")
	}

	tree := map[string]any{"type": "doc", "content": []any{map[string]any{"type": "x-chip"}}}
	exts, err = salvage.CreatePlaceholderExtensions(tree, base, salvage.PlaceholderOptions{})
	if err != nil {
		t.Fatalf("CreatePlaceholderExtensions: %v", err)
	}
	if len(exts) != len(base)+1 || !exts[len(base)-1].IsCollaboration() {
		t.Fatal("collaboration should stay for JSON content")
	}
}

func TestPlaceholder_JSONThenBuild(t *testing.T) {
	data := []byte(`{"type":"doc","content":[
		{"type":"callout","attrs":{"tone":"warn"},"content":[
			{"type":"text","text":"careful","marks":[{"type":"highlight","attrs":{"color":"red"}}]}
		]},
		{"type":"callout","attrs":{"icon":"!"}}
	]}`)
	schema, err := extension.SchemaFor(starter.Extensions())
	if err != nil {
		t.Fatalf("SchemaFor: %v", err)
	}
	if !salvage.IsContentInvalid(data, starter.Extensions()) {
		t.Fatal("content should be invalid")
	}
	if out := salvage.Build(data, schema, salvage.BuildOptions{}); !out.Recovered || len(out.Invalid) != 3 {
		t.Fatalf("unexpected build before placeholders: %s %+v", out.Describe(), out.Invalid)
	}

	exts, err := salvage.CreatePlaceholderExtensions(data, starter.Extensions(), salvage.PlaceholderOptions{})
	if err != nil {
		t.Fatalf("CreatePlaceholderExtensions: %v", err)
	}
	added := exts[len(starter.Extensions()):]
	if len(added) != 2 || added[0].Name != "callout" || added[1].Name != "highlight" {
		t.Fatalf("unexpected placeholders: %v", extension.Resolve(added).Names())
	}
	if got := attributeNames(added[0]); !reflect.DeepEqual(got, []string{"icon", "tone"}) {
		t.Fatalf("callout attributes: %v", got)
	}

	schema, err = extension.SchemaFor(exts)
	if err != nil {
		t.Fatalf("SchemaFor: %v", err)
	}
	out, err := salvage.BuildStrict(data, schema, salvage.BuildOptions{})
	if err != nil {
		t.Fatalf("BuildStrict: %v", err)
	}
	first := out.Node.Content[0]
	if first.Type.Name != "callout" || first.Attrs["tone"] != "warn" || first.Attrs["icon"] != nil {
		t.Fatalf("unexpected callout: %v", first.ToJSON())
	}
	if mark := first.Content[0].Marks[0]; mark.Type.Name != "highlight" || mark.Attrs["color"] != "red" {
		t.Fatalf("unexpected mark: %v", mark.ToJSON())
	}
}
