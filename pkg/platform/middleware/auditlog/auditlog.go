// Package auditlog intercepts completed requests for audit-trail emission.
// It runs inside the ingress middleware so the correlation scope is still
// populated when the emitter reads it, and outside the handlers whose
// actions it records.
package auditlog

import (
	"context"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"auditrelay/internal/platform/metrics"
	"auditrelay/pkg/correlation"
	"auditrelay/pkg/jwtclaims"
)

// Emitter ships an audit event for a completed request when the emission
// preconditions hold.
type Emitter interface {
	Emit(ctx context.Context, r *http.Request, status int)
}

// Middleware returns the audit interception stage. Before the handler runs
// it drops any stale user action left in the scope; afterwards it gates on
// the caller class and hands the request to the emitter. Machine-to-machine
// callers are never audited, and a token whose class cannot be determined is
// treated as a human user so the emitter can apply the identity policy.
func Middleware(emitter Emitter, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			correlation.Remove(ctx, correlation.KeyUserAction)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			if authToken := r.Header.Get("Authorization"); authToken != "" {
				isM2M, err := jwtclaims.IsM2MToken(authToken)
				if err != nil {
					logger.ErrorContext(ctx, "cannot classify token, assuming human caller",
						"url", r.URL.Path, "error", err)
					isM2M = false
				}
				if isM2M {
					logger.DebugContext(ctx, "audit logging skipped for M2M caller", "url", r.URL.Path)
					m.AuditSkipped.WithLabelValues(metrics.SkipM2M).Inc()
					return
				}
			}

			emitter.Emit(ctx, r, status)
		})
	}
}
