package salvage

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/reoring/salvage/extension"
	"github.com/reoring/salvage/model"
)

// UnknownElement is an HTML element no extension's parse rule matched.
type UnknownElement struct {
	TagName string
	// AttributeNames lists the element's attributes in source order.
	AttributeNames []string
}

// captureName names the catch-all extension added while probing.
const captureName = "__salvageCapture"

// captureContext collects the elements seen by the catch-all rule during
// one probe. It is owned by a single FindUnknownElements call.
type captureContext struct {
	elements []UnknownElement
}

func (c *captureContext) record(el *html.Node) {
	names := make([]string, 0, len(el.Attr))
	for _, a := range el.Attr {
		names = append(names, attrKey(a))
	}
	c.elements = append(c.elements, UnknownElement{TagName: el.Data, AttributeNames: names})
}

func attrKey(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}

// extension returns the catch-all node extension. Its rule matches any
// element, but it sorts after every real rule, so it only fires for
// elements nothing else claimed. It records the element and matches with
// no attributes.
func (c *captureContext) extension() extension.Extension {
	return extension.Extension{
		Name:     captureName,
		Kind:     extension.KindNode,
		Priority: extension.Lowest,
		Group:    "block",
		Content:  "inline*",
		ParseHTML: []model.ParseRule{{
			Tag:      "*",
			Priority: model.PriorityLowest,
			GetAttrs: func(el *html.Node) (map[string]any, bool) {
				c.record(el)
				return map[string]any{}, true
			},
		}},
	}
}

// FindUnknownElements reports every element in content that no extension
// in exts parses, one entry per element instance in document order. The
// check runs the regular parser against the resolved extensions, so
// "unknown" means exactly what the parser would drop.
func FindUnknownElements(content string, exts []extension.Extension) ([]UnknownElement, error) {
	capture := &captureContext{}
	probe := append(append([]extension.Extension(nil), exts...), capture.extension())
	schema, err := extension.SchemaFor(probe)
	if err != nil {
		return nil, fmt.Errorf("salvage: probe schema: %w", err)
	}
	root, err := model.ParseHTMLRoot(content)
	if err != nil {
		return nil, fmt.Errorf("salvage: probe parse: %w", err)
	}
	if _, err := model.NewDOMParser(schema).Parse(root); err != nil {
		return nil, fmt.Errorf("salvage: probe parse: %w", err)
	}
	return capture.elements, nil
}
