package model

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOMParser turns HTML into document nodes using the parse rules of a schema.
type DOMParser struct {
	schema *Schema
	rules  []domRule
}

type domRule struct {
	ParseRule
	node *NodeType
	mark *MarkType
}

// NewDOMParser collects the parse rules of s. Mark rules come before node
// rules, then the whole list is stably sorted by descending priority, so for
// equal priorities declaration order decides.
func NewDOMParser(s *Schema) *DOMParser {
	p := &DOMParser{schema: s}
	for _, mt := range s.markOrder {
		for _, r := range mt.Spec.ParseDOM {
			p.rules = append(p.rules, domRule{ParseRule: r, mark: mt})
		}
	}
	for _, nt := range s.nodeOrder {
		for _, r := range nt.Spec.ParseDOM {
			p.rules = append(p.rules, domRule{ParseRule: r, node: nt})
		}
	}
	sort.SliceStable(p.rules, func(i, j int) bool {
		return p.rules[i].priority() > p.rules[j].priority()
	})
	return p
}

// Schema returns the schema the parser was built for.
func (p *DOMParser) Schema() *Schema { return p.schema }

// ParseHTML parses an HTML string into a document rooted at the schema's top node.
func (p *DOMParser) ParseHTML(src string) (*Node, error) {
	root, err := ParseHTMLRoot(src)
	if err != nil {
		return nil, err
	}
	return p.Parse(root)
}

// ParseSliceHTML parses an HTML string into an open fragment.
func (p *DOMParser) ParseSliceHTML(src string) (Fragment, error) {
	root, err := ParseHTMLRoot(src)
	if err != nil {
		return nil, err
	}
	return p.ParseSlice(root), nil
}

// ParseHTMLRoot parses src as body content and returns a detached wrapper
// element holding the result.
func ParseHTMLRoot(src string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// Parse reads the children of root into a node of the schema's top type.
func (p *DOMParser) Parse(root *html.Node) (*Node, error) {
	top := p.schema.topNode
	b := &builder{schema: p.schema, typ: top}
	p.walk(root, b, nil)
	content := b.finish()
	if len(content) == 0 {
		return top.CreateAndFill()
	}
	return top.Create(nil, content, nil)
}

// ParseSlice reads the children of root into an open fragment. No wrapping
// textblocks are inserted around top-level inline content.
func (p *DOMParser) ParseSlice(root *html.Node) Fragment {
	b := &builder{schema: p.schema}
	p.walk(root, b, nil)
	return b.finish()
}

var spaceRun = regexp.MustCompile(`[ \t\r\n\f]+`)

func (p *DOMParser) walk(parent *html.Node, b *builder, marks []*Mark) {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			p.addText(c.Data, b, marks)
		case html.ElementNode:
			p.addElement(c, b, marks)
		}
	}
}

func (p *DOMParser) addText(text string, b *builder, marks []*Mark) {
	text = spaceRun.ReplaceAllString(text, " ")
	if strings.TrimSpace(text) == "" && !b.takesInline() {
		return
	}
	if text == "" {
		return
	}
	b.add(p.schema.Text(text, marks))
}

func (p *DOMParser) addElement(el *html.Node, b *builder, marks []*Mark) {
	switch el.DataAtom {
	case atom.Script, atom.Style, atom.Template:
		return
	}
	r, attrs, ok := p.match(el)
	if !ok {
		p.walk(el, b, marks)
		return
	}
	if r.mark != nil {
		m, err := r.mark.Create(attrs)
		if err != nil {
			p.walk(el, b, marks)
			return
		}
		p.walk(el, b, addMark(marks, m))
		return
	}
	nt := r.node
	var content Fragment
	if !nt.IsLeaf() {
		inner := &builder{schema: p.schema, typ: nt}
		var innerMarks []*Mark
		if nt.IsInline() {
			innerMarks = marks
		}
		p.walk(el, inner, innerMarks)
		content = inner.finish()
	}
	var nodeMarks []*Mark
	if nt.IsInline() {
		nodeMarks = marks
	}
	n, err := nt.Create(attrs, content, nodeMarks)
	if err != nil {
		p.walk(el, b, marks)
		return
	}
	b.add(n)
}

// match returns the first rule that accepts el together with the attributes
// it extracted.
func (p *DOMParser) match(el *html.Node) (domRule, map[string]any, bool) {
	sel := goquery.NewDocumentFromNode(el).Selection
	for _, r := range p.rules {
		if !matchesTag(sel, r.Tag) {
			continue
		}
		var attrs map[string]any
		if r.GetAttrs != nil {
			a, ok := r.GetAttrs(el)
			if !ok {
				continue
			}
			attrs = a
		}
		return r, attrs, true
	}
	return domRule{}, nil, false
}

func matchesTag(sel *goquery.Selection, tag string) bool {
	switch tag {
	case "":
		return false
	case "*":
		return true
	}
	return sel.Is(tag)
}

func addMark(marks []*Mark, m *Mark) []*Mark {
	out := make([]*Mark, 0, len(marks)+1)
	for _, have := range marks {
		if have.Type == m.Type {
			continue
		}
		out = append(out, have)
	}
	return append(out, m)
}

// builder accumulates the content of one container. When the container
// does not take inline content, runs of inline nodes are wrapped in the
// schema's default textblock.
type builder struct {
	schema  *Schema
	typ     *NodeType // nil for open fragments
	nodes   Fragment
	pending Fragment
}

func (b *builder) takesInline() bool {
	return b.typ == nil || b.typ.InlineContent()
}

func (b *builder) add(n *Node) {
	if n.Type.IsInline() && !b.takesInline() {
		b.pending = append(b.pending, n)
		return
	}
	b.flush()
	b.nodes = append(b.nodes, n)
}

func (b *builder) flush() {
	if len(b.pending) == 0 {
		return
	}
	run := trimInline(b.pending)
	b.pending = nil
	if len(run) == 0 {
		return
	}
	wrap := b.schema.defaultTextblock()
	if wrap == nil {
		return
	}
	if n, err := wrap.Create(nil, run, nil); err == nil {
		b.nodes = append(b.nodes, n)
	}
}

func (b *builder) finish() Fragment {
	b.flush()
	if b.typ != nil && b.typ.InlineContent() {
		return trimInline(b.nodes)
	}
	if b.typ == nil {
		return dropBlankEdges(b.nodes)
	}
	return b.nodes
}

// trimInline strips leading whitespace from the first text node and
// trailing whitespace from the last one.
func trimInline(f Fragment) Fragment {
	out := append(Fragment(nil), f...)
	if len(out) > 0 && out[0].IsText() {
		t := *out[0]
		t.Text = strings.TrimLeft(t.Text, " ")
		out[0] = &t
	}
	if n := len(out); n > 0 && out[n-1].IsText() {
		t := *out[n-1]
		t.Text = strings.TrimRight(t.Text, " ")
		out[n-1] = &t
	}
	return dropEmptyText(out)
}

func dropEmptyText(f Fragment) Fragment {
	out := f[:0:0]
	for _, n := range f {
		if n.IsText() && n.Text == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// dropBlankEdges removes whitespace-only text at the edges of an open
// fragment and next to block nodes.
func dropBlankEdges(f Fragment) Fragment {
	out := f[:0:0]
	for i, n := range f {
		if n.IsText() && strings.TrimSpace(n.Text) == "" {
			first, last := i == 0, i == len(f)-1
			if first || last || f[i-1].Type.IsBlock() || f[i+1].Type.IsBlock() {
				continue
			}
		}
		out = append(out, n)
	}
	return out
}
