package salvage

import (
	"errors"
	"io"

	json "github.com/goccy/go-json"

	eng "github.com/reoring/salvage/internal/engine"
	"github.com/reoring/salvage/internal/gojson"
)

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Warn or Error (duplicate JSON keys).
}

// DecodeOpt bundles JSON decoding options.
type DecodeOpt struct {
	Strictness Strictness
	MaxDepth   int
	MaxBytes   int64
	FailFast   bool
	// IssueSink receives non-fatal issues such as duplicate-key warnings.
	IssueSink func(Issue)
}

// DecodeJSON decodes a JSON document into generic values (map[string]any,
// []any, string, json.Number, bool, nil) using the go-json token stream.
// Errors are returned as Issues.
func DecodeJSON(data []byte, opts ...DecodeOpt) (any, error) {
	var opt DecodeOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return nil, singleIssue(CodeTruncated, "max bytes exceeded")
	}
	return decodeFrom(gojson.NewBytes(data), opt)
}

// DecodeJSONReader is DecodeJSON over an io.Reader.
func DecodeJSONReader(r io.Reader, opts ...DecodeOpt) (any, error) {
	var opt DecodeOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.MaxBytes > 0 {
		data, err := io.ReadAll(io.LimitReader(r, opt.MaxBytes+1))
		if err != nil {
			return nil, singleIssue(CodeParseError, err.Error())
		}
		return DecodeJSON(data, opt)
	}
	return decodeFrom(gojson.NewReader(r), opt)
}

func decodeFrom(src eng.TokenSource, opt DecodeOpt) (any, error) {
	lim := eng.Limits{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		FailFast:    opt.FailFast,
	}
	if opt.IssueSink != nil {
		lim.IssueSink = func(si eng.SimpleIssue) {
			opt.IssueSink(Issue{Path: si.Path, Code: si.Code, Message: si.Message})
		}
	}
	v, err := eng.Decode(src, lim)
	if err != nil {
		return nil, toIssues(err)
	}
	return v, nil
}

// DecodeContent decodes JSON bytes into a JSONContent tree.
func DecodeContent(data []byte) (JSONContent, error) {
	var c JSONContent
	if err := json.Unmarshal(data, &c); err != nil {
		return JSONContent{}, singleIssue(CodeParseError, err.Error())
	}
	return c, nil
}

// DetectDuplicateKeys reports every duplicated object key in data.
func DetectDuplicateKeys(data []byte) (Issues, error) {
	var iss Issues
	_, err := DecodeJSON(data, DecodeOpt{
		Strictness: Strictness{OnDuplicateKey: Warn},
		IssueSink:  func(i Issue) { iss = AppendIssues(iss, i) },
	})
	if err != nil {
		return nil, err
	}
	return iss, nil
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}

func toIssues(err error) Issues {
	if err == nil {
		return nil
	}
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return AppendIssues(nil, Issue{Code: ie.Code, Path: ie.Path, Message: ie.Message})
	}
	return AppendIssues(nil, Issue{Code: CodeParseError, Message: err.Error(), Cause: err})
}

// normalizeJSON decodes byte input and passes trees through unchanged.
func normalizeJSON(content any) (any, error) {
	switch c := content.(type) {
	case []byte:
		return DecodeJSON(c)
	case json.RawMessage:
		return DecodeJSON(c)
	}
	return content, nil
}
