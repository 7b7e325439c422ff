package salvage

import (
	"sort"

	"github.com/samber/lo"

	"github.com/reoring/salvage/model"
)

// Validate walks tree and reports every node and mark whose type is not in
// schema. tree is a JSONContent, a []JSONContent, or the equivalent generic
// JSON (map[string]any / []any). For sequences each path starts with the
// element index.
//
// The report is ordered deepest content first: for every node, its children
// come first in reverse sibling order, then the node's invalid marks in
// reverse declaration order, then the node itself. Top-level sequences are
// reported in reverse order too. The front of the list is therefore the
// most specific offender.
//
// A nil schema yields no entries.
func Validate(tree any, schema SchemaNames) []InvalidContentBlock {
	if isNilSchema(schema) {
		return nil
	}
	nodes, multi := asContent(tree)
	v := &validator{nodes: schema.NodeNames(), marks: schema.MarkNames()}
	if !multi {
		if len(nodes) == 0 {
			return nil
		}
		return v.walk(nodes[0], Path{}, false, false)
	}
	var out []InvalidContentBlock
	for i := len(nodes) - 1; i >= 0; i-- {
		out = append(out, v.walk(nodes[i], Path{i}, false, false)...)
	}
	return out
}

// GetUnknownContent returns the invalid-content report for json against schema.
func GetUnknownContent(json any, schema SchemaNames) []InvalidContentBlock {
	return Validate(json, schema)
}

func isNilSchema(schema SchemaNames) bool {
	if schema == nil {
		return true
	}
	s, ok := schema.(*model.Schema)
	return ok && s == nil
}

type validator struct {
	nodes map[string]struct{}
	marks map[string]struct{}
}

func (v *validator) walk(n JSONContent, path Path, parentNode, parentMark bool) []InvalidContentBlock {
	_, known := v.nodes[n.Type]
	invalid := !known

	var marks []InvalidContentBlock
	markSeen := parentMark
	for i, m := range n.Marks {
		if _, ok := v.marks[m.Type]; ok {
			continue
		}
		marks = append(marks, InvalidContentBlock{
			Kind:              KindMark,
			Name:              m.Type,
			AttributeNames:    attributeNames(m.Attrs),
			Path:              path.Field("marks").Index(i),
			InvalidParentNode: parentNode || invalid,
			InvalidParentMark: markSeen,
		})
		markSeen = true
	}

	var out []InvalidContentBlock
	for i := len(n.Content) - 1; i >= 0; i-- {
		out = append(out, v.walk(n.Content[i], path.Field("content").Index(i), parentNode || invalid, markSeen)...)
	}
	for i := len(marks) - 1; i >= 0; i-- {
		out = append(out, marks[i])
	}
	if invalid {
		out = append(out, InvalidContentBlock{
			Kind:              KindNode,
			Name:              n.Type,
			AttributeNames:    attributeNames(n.Attrs),
			Path:              path,
			InvalidParentNode: parentNode,
			InvalidParentMark: markSeen,
		})
	}
	return out
}

func attributeNames(attrs map[string]any) []string {
	if len(attrs) == 0 {
		return nil
	}
	names := lo.Keys(attrs)
	sort.Strings(names)
	return names
}
