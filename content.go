package salvage

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// JSONContent is the JSON form of a document node.
type JSONContent struct {
	Type    string         `json:"type,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []MarkRef      `json:"marks,omitempty"`
	Content []JSONContent  `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// MarkRef references a mark either by bare type name or as an object with
// a type and attributes.
type MarkRef struct {
	Type  string
	Attrs map[string]any
	// Bare records that the mark was written as a plain string.
	Bare bool
}

type markObject struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// UnmarshalJSON accepts both "bold" and {"type":"bold"}.
func (m *MarkRef) UnmarshalJSON(b []byte) error {
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '"' {
		var name string
		if err := json.Unmarshal(t, &name); err != nil {
			return err
		}
		*m = MarkRef{Type: name, Bare: true}
		return nil
	}
	var obj markObject
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*m = MarkRef{Type: obj.Type, Attrs: obj.Attrs}
	return nil
}

// MarshalJSON writes bare marks back as strings.
func (m MarkRef) MarshalJSON() ([]byte, error) {
	if m.Bare && len(m.Attrs) == 0 {
		return json.Marshal(m.Type)
	}
	return json.Marshal(markObject{Type: m.Type, Attrs: m.Attrs})
}

// Map returns the generic JSON form of c, as model.FromJSON consumes it.
func (c JSONContent) Map() map[string]any {
	out := map[string]any{}
	if c.Type != "" {
		out["type"] = c.Type
	}
	if c.Attrs != nil {
		out["attrs"] = c.Attrs
	}
	if c.Text != "" {
		out["text"] = c.Text
	}
	if len(c.Marks) > 0 {
		marks := make([]any, 0, len(c.Marks))
		for _, m := range c.Marks {
			if m.Bare && len(m.Attrs) == 0 {
				marks = append(marks, m.Type)
				continue
			}
			mo := map[string]any{"type": m.Type}
			if m.Attrs != nil {
				mo["attrs"] = m.Attrs
			}
			marks = append(marks, mo)
		}
		out["marks"] = marks
	}
	if len(c.Content) > 0 {
		content := make([]any, 0, len(c.Content))
		for _, child := range c.Content {
			content = append(content, child.Map())
		}
		out["content"] = content
	}
	return out
}

// contentFromAny converts generic JSON (map[string]any) into JSONContent.
// Values that are not objects become nodes without a type.
func contentFromAny(v any) JSONContent {
	obj, ok := v.(map[string]any)
	if !ok {
		return JSONContent{}
	}
	c := JSONContent{}
	c.Type, _ = obj["type"].(string)
	c.Attrs, _ = obj["attrs"].(map[string]any)
	c.Text, _ = obj["text"].(string)
	if marks, ok := obj["marks"].([]any); ok {
		for _, raw := range marks {
			switch m := raw.(type) {
			case string:
				c.Marks = append(c.Marks, MarkRef{Type: m, Bare: true})
			case map[string]any:
				ref := MarkRef{}
				ref.Type, _ = m["type"].(string)
				ref.Attrs, _ = m["attrs"].(map[string]any)
				c.Marks = append(c.Marks, ref)
			default:
				c.Marks = append(c.Marks, MarkRef{})
			}
		}
	}
	if content, ok := obj["content"].([]any); ok {
		c.Content = make([]JSONContent, 0, len(content))
		for _, child := range content {
			c.Content = append(c.Content, contentFromAny(child))
		}
	}
	return c
}

// asContent normalizes the tree shapes Validate accepts. multi reports
// whether the input was a sequence of top-level nodes.
func asContent(tree any) (nodes []JSONContent, multi bool) {
	switch v := tree.(type) {
	case JSONContent:
		return []JSONContent{v}, false
	case *JSONContent:
		if v == nil {
			return nil, false
		}
		return []JSONContent{*v}, false
	case []JSONContent:
		return v, true
	case map[string]any:
		return []JSONContent{contentFromAny(v)}, false
	case []any:
		out := make([]JSONContent, 0, len(v))
		for _, item := range v {
			out = append(out, contentFromAny(item))
		}
		return out, true
	}
	return nil, false
}
