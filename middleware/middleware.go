// Package middleware builds document content at HTTP boundaries. Request
// bodies are built against a schema and the result is stored in the request
// context for the next handler.
package middleware

import (
	"context"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	salvage "github.com/reoring/salvage"
	"github.com/reoring/salvage/model"
)

type ctxKeyContent struct{}

// ContextWithContent attaches built content to the context.
func ContextWithContent(ctx context.Context, c salvage.Content) context.Context {
	return context.WithValue(ctx, ctxKeyContent{}, c)
}

// ContentFromContext retrieves content stored by ContextWithContent.
func ContentFromContext(ctx context.Context) (salvage.Content, bool) {
	c, ok := ctx.Value(ctxKeyContent{}).(salvage.Content)
	return c, ok
}

// Options configures BuildBody.
type Options struct {
	Build salvage.BuildOptions
	// Strict rejects invalid content with 422 instead of recovering.
	Strict bool
	// MaxBytes bounds the request body; 0 means DefaultMaxBytes.
	MaxBytes int64
}

// DefaultMaxBytes is the body limit used when Options.MaxBytes is zero.
const DefaultMaxBytes = 4 << 20

// DefaultBuildOptions returns a recommended default for HTTP JSON boundaries:
// duplicate keys are errors.
func DefaultBuildOptions() salvage.BuildOptions {
	return salvage.BuildOptions{
		Decode: salvage.DecodeOpt{Strictness: salvage.Strictness{OnDuplicateKey: salvage.Error}},
	}
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues []salvage.Issue) map[string]any {
	out := make([]map[string]any, 0, len(issues))
	for _, i := range issues {
		m := map[string]any{"path": i.Path, "code": i.Code, "message": i.Message}
		if len(i.Params) > 0 {
			m["params"] = i.Params
		}
		out = append(out, m)
	}
	return map[string]any{"issues": out}
}

// BuildBody reads the request body as JSON content when its Content-Type is
// application/json and as HTML otherwise, builds it against schema, and
// stores the result in the request context.
func BuildBody(schema *model.Schema, opts Options) func(http.Handler) http.Handler {
	limit := opts.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			if int64(len(data)) > limit {
				writeJSON(w, http.StatusRequestEntityTooLarge, ErrorPayload(salvage.Issues{{Code: salvage.CodeTruncated, Message: "max bytes exceeded"}}))
				return
			}
			var content any = string(data)
			if isJSON(r) {
				content = data
			}
			var built salvage.Content
			if opts.Strict {
				built, err = salvage.BuildStrict(content, schema, opts.Build)
				if err != nil {
					if iss, ok := salvage.AsIssues(err); ok {
						writeJSON(w, http.StatusUnprocessableEntity, ErrorPayload(iss))
						return
					}
					writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
					return
				}
			} else {
				built = salvage.Build(content, schema, opts.Build)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithContent(r.Context(), built)))
		})
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
