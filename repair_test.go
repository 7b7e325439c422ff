package salvage_test

import (
	"reflect"
	"testing"

	salvage "github.com/reoring/salvage"
)

func para(text string) map[string]any {
	return map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": text}}}
}

func TestRemoveInvalidBlocks_Siblings(t *testing.T) {
	tree := map[string]any{
		"type": "doc",
		"content": []any{
			para("one"),
			map[string]any{"type": "widget"},
			para("two"),
			map[string]any{"type": "chip", "content": []any{map[string]any{"type": "x"}}},
		},
	}
	blocks := salvage.Validate(tree, minimal)
	got := salvage.RemoveInvalidBlocks(tree, blocks)
	want := map[string]any{"type": "doc", "content": []any{para("one"), para("two")}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v\nwant %#v", got, want)
	}
	if len(tree["content"].([]any)) != 4 {
		t.Fatal("input was modified")
	}
	if left := salvage.Validate(got, minimal); len(left) != 0 {
		t.Fatalf("still invalid: %+v", left)
	}
}

func TestRemoveInvalidBlocks_Marks(t *testing.T) {
	tree := salvage.JSONContent{Type: "paragraph", Content: []salvage.JSONContent{
		{Type: "text", Text: "x", Marks: []salvage.MarkRef{
			{Type: "zap", Bare: true}, {Type: "bold", Bare: true}, {Type: "zip", Bare: true},
		}},
	}}
	got := salvage.RemoveInvalidBlocks(tree, salvage.Validate(tree, minimal))
	want := map[string]any{"type": "paragraph", "content": []any{
		map[string]any{"type": "text", "text": "x", "marks": []any{"bold"}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v\nwant %#v", got, want)
	}
}

func TestRemoveInvalidBlocks_SequenceAndRoot(t *testing.T) {
	seq := []any{map[string]any{"type": "widget"}, para("keep"), map[string]any{"type": "widget"}}
	got := salvage.RemoveInvalidBlocks(seq, salvage.Validate(seq, minimal))
	if !reflect.DeepEqual(got, []any{para("keep")}) {
		t.Fatalf("got %#v", got)
	}

	root := map[string]any{"type": "widget", "content": []any{para("lost")}}
	if got := salvage.RemoveInvalidBlocks(root, salvage.Validate(root, minimal)); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}
