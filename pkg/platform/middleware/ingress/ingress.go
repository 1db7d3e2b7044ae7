// Package ingress populates the correlation scope at the start of HTTP
// request processing and tears it down at the end.
//
// Two stages are involved because path variables only exist after routing:
//
//   - Middleware runs first on the router. It installs a clean scope, copies
//     configured business keys from carrier headers, resolves the caller
//     identity from the bearer token, and removes everything it introduced
//     once the request completes.
//   - RouteParams is mounted per route (r.With(...)). It backfills keys that
//     the headers did not supply from path variables and, failing that, from
//     query parameters.
//
// Population never fails a request: a malformed token degrades to "no
// identity" with an error log.
package ingress

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"auditrelay/pkg/correlation"
	"auditrelay/pkg/jwtclaims"
)

// TraceIDHeader is set on responses when the request carries a recorded
// trace, so callers can quote the trace id in support tickets. No span is
// ever created here.
const TraceIDHeader = "X-Trace-Id"

// Middleware returns the outer ingress stage for the given business keys.
func Middleware(keys []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Execution units start from empty: reset a stale scope left by
			// an outer layer, otherwise install a fresh one.
			scope := correlation.FromContext(ctx)
			if scope == nil {
				scope = correlation.NewScope()
				ctx = correlation.WithScope(ctx, scope)
			} else {
				scope.Clear()
			}

			for _, key := range keys {
				scope.Put(key, correlation.FromHeader(r.Header, key))
			}
			resolveIdentity(scope, r.Header.Get("Authorization"), logger)

			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				w.Header().Set(TraceIDHeader, sc.TraceID().String())
			}

			defer func() {
				for _, key := range keys {
					scope.Remove(key)
				}
				scope.Remove(correlation.KeyUserID)
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveIdentity stores userId for human-user bearer tokens. M2M callers get
// no identity key, and decode failures leave the key absent.
func resolveIdentity(scope *correlation.Scope, authHeader string, logger *slog.Logger) {
	if !jwtclaims.HasBearer(authHeader) {
		return
	}
	claims, err := jwtclaims.Read(authHeader)
	if err != nil {
		logger.Error("failed to decode bearer token during ingress population", "error", err)
		return
	}
	if claims.IsM2M() {
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		logger.Error("failed to resolve user id from token", "error", err)
		return
	}
	scope.PutUUID(correlation.KeyUserID, userID)
}

// RouteParams returns the route-level ingress stage. For each configured key
// still absent from the scope it consults the matched path variables, then
// the query parameters; multi-valued query parameters are joined with a
// comma. Header values always win over both.
func RouteParams(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope := correlation.FromContext(ctx)
			if scope == nil {
				next.ServeHTTP(w, r)
				return
			}
			for _, key := range keys {
				if scope.Has(key) {
					continue
				}
				if v := chi.URLParam(r, key); v != "" {
					scope.Put(key, v)
					continue
				}
				if vs, ok := r.URL.Query()[key]; ok {
					scope.Put(key, strings.Join(vs, ","))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UUIDHeader reads a UUID-valued request header. A missing value yields
// uuid.Nil unless required, in which case the absence is an error the caller
// must surface.
func UUIDHeader(r *http.Request, name string, required bool) (uuid.UUID, error) {
	value := r.Header.Get(name)
	if value == "" {
		if required {
			return uuid.Nil, fmt.Errorf("required header %q is empty", name)
		}
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("header %q is not a UUID: %w", name, err)
	}
	return id, nil
}
