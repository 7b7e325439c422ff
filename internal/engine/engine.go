// Package engine decodes streamed JSON tokens into generic values while
// enforcing duplicate-key and nesting limits.
package engine

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token is one streamed JSON token.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
}

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by the decoder.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// Limits controls enforcement while decoding.
type Limits struct {
	OnDuplicate DuplicateStrictness
	// MaxDepth bounds object/array nesting; 0 disables the check.
	MaxDepth int
	// IssueSink receives non-fatal issues such as duplicate-key warnings.
	IssueSink func(SimpleIssue)
	// FailFast turns every issue into an error.
	FailFast bool
}

// Decode builds an "any" value (map[string]any, []any, string, json.Number,
// bool, nil) from src.
func Decode(src TokenSource, lim Limits) (any, error) {
	d := &decoder{src: src, lim: lim}
	tok, err := src.NextToken()
	if err != nil {
		return nil, err
	}
	return d.value(tok)
}

type decoder struct {
	src   TokenSource
	lim   Limits
	path  []string
	depth int
}

func (d *decoder) pointer() string {
	if len(d.path) == 0 {
		return "/"
	}
	return "/" + strings.Join(d.path, "/")
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func (d *decoder) report(code, msg string, fatal bool) error {
	si := SimpleIssue{Code: code, Path: d.pointer(), Message: msg}
	if d.lim.IssueSink != nil {
		d.lim.IssueSink(si)
	}
	if fatal || d.lim.FailFast {
		return IssueError{si}
	}
	return nil
}

func (d *decoder) value(tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		d.depth++
		defer func() { d.depth-- }()
		if d.lim.MaxDepth > 0 && d.depth > d.lim.MaxDepth {
			return nil, d.report("parse_error", "max depth exceeded", true)
		}
		if tok.Kind == KindBeginObject {
			return d.object()
		}
		return d.array()
	case KindString:
		return tok.String, nil
	case KindNumber:
		return json.Number(tok.Number), nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

func (d *decoder) object() (any, error) {
	m := make(map[string]any)
	for {
		tok, err := d.src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, io.ErrUnexpectedEOF
		}
		d.path = append(d.path, pointerEscaper.Replace(tok.String))
		if _, dup := m[tok.String]; dup && d.lim.OnDuplicate != DupIgnore {
			if err := d.report("duplicate_key", "key '"+tok.String+"' duplicated", d.lim.OnDuplicate == DupError); err != nil {
				return nil, err
			}
		}
		vt, err := d.src.NextToken()
		if err != nil {
			return nil, err
		}
		v, err := d.value(vt)
		if err != nil {
			return nil, err
		}
		m[tok.String] = v
		d.path = d.path[:len(d.path)-1]
	}
}

func (d *decoder) array() (any, error) {
	arr := []any{}
	for i := 0; ; i++ {
		tok, err := d.src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		d.path = append(d.path, strconv.Itoa(i))
		v, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
		d.path = d.path[:len(d.path)-1]
	}
}
