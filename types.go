package salvage

import (
	"github.com/reoring/salvage/extension"
	"github.com/reoring/salvage/i18n"
)

// Kind is the content kind of a reported or observed type.
type Kind int

const (
	KindNode Kind = iota
	KindMark
)

func (k Kind) String() string {
	if k == KindMark {
		return "mark"
	}
	return "node"
}

func (k Kind) extensionKind() extension.Kind {
	if k == KindMark {
		return extension.KindMark
	}
	return extension.KindNode
}

// InvalidContentBlock reports one node or mark whose type the schema does
// not know.
type InvalidContentBlock struct {
	Kind Kind
	Name string
	// AttributeNames lists the attribute keys carried by the element, sorted.
	AttributeNames []string
	// Path addresses the element inside the original tree.
	Path Path
	// InvalidParentNode is set when an ancestor node (or, for marks, the
	// owning node) was reported too.
	InvalidParentNode bool
	// InvalidParentMark is set when a mark on an ancestor, or an earlier mark
	// on the same node, was reported too.
	InvalidParentMark bool
}

// Issue converts b into an Issue.
func (b InvalidContentBlock) Issue() Issue {
	code := CodeUnknownNode
	if b.Kind == KindMark {
		code = CodeUnknownMark
	}
	return IssueAt(b.Path, code, i18n.T(code, map[string]string{"name": b.Name}), map[string]any{
		"name":              b.Name,
		"attributes":        b.AttributeNames,
		"invalidParentNode": b.InvalidParentNode,
		"invalidParentMark": b.InvalidParentMark,
	})
}

// Report converts blocks into Issues, preserving their order.
func Report(blocks []InvalidContentBlock) Issues {
	var iss Issues
	for _, b := range blocks {
		iss = AppendIssues(iss, b.Issue())
	}
	return iss
}

// SchemaNames is the view of a schema the validator needs: the sets of
// valid node and mark type names. *model.Schema implements it.
type SchemaNames interface {
	NodeNames() map[string]struct{}
	MarkNames() map[string]struct{}
}

// NameSet is a SchemaNames built from plain name lists.
type NameSet struct {
	Nodes []string
	Marks []string
}

func (s NameSet) NodeNames() map[string]struct{} { return toSet(s.Nodes) }
func (s NameSet) MarkNames() map[string]struct{} { return toSet(s.Marks) }

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}
