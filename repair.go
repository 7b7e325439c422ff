package salvage

import (
	"sort"

	"github.com/samber/lo"
)

// Transformer rewrites a JSON tree given its invalid-content report.
type Transformer func(tree any, blocks []InvalidContentBlock) any

// RemoveInvalidBlocks returns a copy of tree with every reported block that
// has no reported ancestor node removed: nodes are cut from their parent's
// content, marks from their node's marks. Valid siblings stay in place.
// Removing the root yields nil. tree is not modified.
func RemoveInvalidBlocks(tree any, blocks []InvalidContentBlock) any {
	root := deepCopy(generic(tree))
	outermost := lo.Filter(blocks, func(b InvalidContentBlock, _ int) bool { return !b.InvalidParentNode })
	paths := lo.Map(outermost, func(b InvalidContentBlock, _ int) Path { return b.Path })
	// Later siblings and deeper paths first, so earlier indices stay valid.
	sort.SliceStable(paths, func(i, j int) bool { return paths[i].compare(paths[j]) > 0 })
	for _, p := range paths {
		root = removeAt(root, p)
	}
	return root
}

func removeAt(root any, p Path) any {
	if len(p) == 0 {
		return nil
	}
	idx, ok := p[len(p)-1].(int)
	if !ok {
		return root
	}
	if len(p) == 1 {
		if arr, ok := root.([]any); ok {
			return cut(arr, idx)
		}
		return root
	}
	holder, ok := lookup(root, p[:len(p)-2]).(map[string]any)
	if !ok {
		return root
	}
	key, ok := p[len(p)-2].(string)
	if !ok {
		return root
	}
	if arr, ok := holder[key].([]any); ok {
		holder[key] = cut(arr, idx)
	}
	return root
}

func cut(arr []any, i int) []any {
	if i < 0 || i >= len(arr) {
		return arr
	}
	return append(arr[:i:i], arr[i+1:]...)
}

func lookup(v any, p Path) any {
	for _, seg := range p {
		switch s := seg.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[s]
		case int:
			arr, ok := v.([]any)
			if !ok || s < 0 || s >= len(arr) {
				return nil
			}
			v = arr[s]
		}
	}
	return v
}

// generic converts typed content into map[string]any / []any form.
func generic(tree any) any {
	switch v := tree.(type) {
	case JSONContent:
		return v.Map()
	case *JSONContent:
		if v == nil {
			return nil
		}
		return v.Map()
	case []JSONContent:
		return lo.Map(v, func(c JSONContent, _ int) any { return c.Map() })
	}
	return tree
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = deepCopy(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = deepCopy(x)
		}
		return out
	}
	return v
}
