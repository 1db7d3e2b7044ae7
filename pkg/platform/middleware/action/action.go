// Package action tags the handling code path with a human-readable "user
// action" description. The audit pipeline only ships an event when a request
// recorded such a description, so tagging is the explicit opt-in for
// auditing a route.
//
// Descriptions are templates with {{name}} placeholders, bound from an
// explicit lookup table built at the call site:
//
//	action.Record(ctx, "opened project {{projectId}}", map[string]string{
//		"projectId": projectID,
//	})
//
// No expression language is involved; only named-placeholder substitution.
package action

import (
	"context"
	"net/http"
	"regexp"

	"auditrelay/pkg/correlation"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Expand substitutes {{name}} placeholders from params. Placeholders without
// a binding are left verbatim so a missing parameter is visible in the
// recorded text instead of silently disappearing.
func Expand(template string, params map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if v, ok := params[name]; ok {
			return v
		}
		return match
	})
}

// Record expands the template and stores the result as the request's user
// action. A blank result records nothing, which keeps the audit gate closed.
// Reports whether an action was recorded.
func Record(ctx context.Context, template string, params map[string]string) bool {
	return correlation.Put(ctx, correlation.KeyUserAction, Expand(template, params))
}

// Binder resolves template parameters from the request at handling time.
type Binder func(*http.Request) map[string]string

// Tag returns route middleware that records the given action template for
// every request it sees. A nil binder records the template as-is. Mount it
// inside the ingress route stage so binders can read path variables:
//
//	r.With(ingress.RouteParams(keys), action.Tag("viewed dashboard", nil)).
//		Get("/dashboard", h)
func Tag(template string, bind Binder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var params map[string]string
			if bind != nil {
				params = bind(r)
			}
			Record(r.Context(), template, params)
			next.ServeHTTP(w, r)
		})
	}
}
