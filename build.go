package salvage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/reoring/salvage/model"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Slice parses string content as an open fragment instead of a document.
	Slice bool
	// Repair, when set, rewrites invalid JSON content before Build falls
	// back to empty content. RemoveInvalidBlocks is the stock strategy.
	Repair Transformer
	// Decode configures decoding of []byte content.
	Decode DecodeOpt
	// Logger receives recovery diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (o BuildOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Content is the result of Build. Node is set for JSON objects and document
// parses; Fragment for JSON arrays and slice parses.
type Content struct {
	Node     *model.Node
	Fragment model.Fragment
	// Invalid is the invalid-content report of the original input when the
	// build had to recover.
	Invalid []InvalidContentBlock
	// Recovered reports that the result is not a faithful build of the input.
	Recovered bool
}

// IsEmpty reports whether c holds neither a node nor fragment content.
func (c Content) IsEmpty() bool { return c.Node == nil && len(c.Fragment) == 0 }

// AsFragment returns the content as a fragment: the node's children for a
// top-level node, the node itself for any other node.
func (c Content) AsFragment() model.Fragment {
	if c.Node == nil {
		return c.Fragment
	}
	if c.Node.Type == c.Node.Type.Schema().TopNodeType() {
		return c.Node.Content
	}
	return model.Fragment{c.Node}
}

// Build creates a node or fragment from content against schema. content is
// an HTML string, JSON bytes, a JSONContent tree, or generic JSON. Build
// never fails: content the schema rejects is reported in the result and
// replaced by an empty build.
func Build(content any, schema *model.Schema, opts BuildOptions) Content {
	out, _ := build(content, schema, opts, false)
	return out
}

// BuildStrict is Build without recovery: content the schema rejects fails
// with Issues describing every invalid block.
func BuildStrict(content any, schema *model.Schema, opts BuildOptions) (Content, error) {
	return build(content, schema, opts, true)
}

func build(content any, schema *model.Schema, opts BuildOptions, strict bool) (out Content, err error) {
	log := opts.logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error("salvage: build panicked", "panic", r)
			out = buildEmpty(schema, opts)
			out.Recovered = true
			if strict {
				err = singleIssue(CodeInvalidNode, fmt.Sprint(r))
			}
		}
	}()

	literal := content
	if data, ok := content.([]byte); ok {
		decoded, derr := DecodeJSON(data, opts.Decode)
		if derr != nil {
			log.Warn("salvage: undecodable content", "content", string(data), "error", derr)
			out = buildEmpty(schema, opts)
			out.Recovered = true
			if strict {
				return out, derr
			}
			return out, nil
		}
		content = decoded
	}
	content = generic(content)

	switch c := content.(type) {
	case nil:
		return buildEmpty(schema, opts), nil
	case string:
		built, herr := buildHTML(c, schema, opts)
		if herr != nil && !strict {
			log.Warn("salvage: unparsable content", "content", c, "error", herr)
			built = buildEmpty(schema, opts)
			built.Recovered = true
			return built, nil
		}
		return built, herr
	case map[string]any:
		node, ferr := model.FromJSON(schema, c)
		if ferr != nil {
			return recoverFrom(literal, c, ferr, schema, opts, strict)
		}
		return Content{Node: node}, nil
	case []any:
		frag, ferr := model.FragmentFromJSON(schema, c)
		if ferr != nil {
			return recoverFrom(literal, c, ferr, schema, opts, strict)
		}
		return Content{Fragment: frag}, nil
	}
	log.Warn("salvage: unsupported content", "type", fmt.Sprintf("%T", content))
	out = buildEmpty(schema, opts)
	out.Recovered = true
	return out, nil
}

func buildHTML(src string, schema *model.Schema, opts BuildOptions) (Content, error) {
	root, err := model.ParseHTMLRoot(src)
	if err != nil {
		return buildEmpty(schema, opts), singleIssue(CodeParseError, err.Error())
	}
	p := model.NewDOMParser(schema)
	if opts.Slice {
		return Content{Fragment: p.ParseSlice(root)}, nil
	}
	doc, err := p.Parse(root)
	if err != nil {
		return Content{}, AppendIssues(nil, Issue{Code: CodeInvalidNode, Message: err.Error(), Cause: err})
	}
	return Content{Node: doc}, nil
}

// buildEmpty is the terminal fallback: an empty fragment for slices, the
// minimal document otherwise.
func buildEmpty(schema *model.Schema, opts BuildOptions) Content {
	if schema == nil || opts.Slice {
		return Content{}
	}
	out, _ := buildHTML("", schema, opts)
	return out
}

func recoverFrom(literal, tree any, cause error, schema *model.Schema, opts BuildOptions, strict bool) (Content, error) {
	blocks := Validate(tree, schema)
	log := opts.logger()
	log.Warn("salvage: invalid content",
		"content", literal,
		"invalid", Report(blocks),
		"error", cause,
	)
	if strict {
		iss := Report(blocks)
		if len(iss) == 0 {
			iss = AppendIssues(nil, Issue{Code: CodeInvalidNode, Message: cause.Error(), Cause: cause})
		}
		return Content{Invalid: blocks}, iss
	}

	if opts.Repair != nil && len(blocks) > 0 {
		retry := opts
		retry.Repair = nil
		repaired, err := build(opts.Repair(tree, blocks), schema, retry, true)
		if err == nil && !repaired.IsEmpty() {
			repaired.Invalid = blocks
			repaired.Recovered = true
			return repaired, nil
		}
		log.Warn("salvage: repair failed, falling back to empty content", "error", err)
	}

	out := Build("", schema, opts)
	out.Invalid = blocks
	out.Recovered = true
	return out, nil
}

// Describe renders a short human summary of c for logs and the CLI.
func (c Content) Describe() string {
	var b strings.Builder
	switch {
	case c.Node != nil:
		fmt.Fprintf(&b, "node %s", c.Node.Type.Name)
	default:
		fmt.Fprintf(&b, "fragment of %d", len(c.Fragment))
	}
	if c.Recovered {
		fmt.Fprintf(&b, " (recovered, %d invalid)", len(c.Invalid))
	}
	return b.String()
}
