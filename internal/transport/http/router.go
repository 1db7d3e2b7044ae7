// Package httptransport is the thin HTTP layer. Handlers delegate to the
// correlation and audit packages so transport concerns remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auditrelay/internal/platform/metrics"
	"auditrelay/pkg/platform/middleware/action"
	"auditrelay/pkg/platform/middleware/auditlog"
	"auditrelay/pkg/platform/middleware/ingress"
	"auditrelay/pkg/platform/outbound"
	"auditrelay/pkg/platform/ws"
)

// Handler serves the service's public endpoints.
type Handler struct {
	logger      *slog.Logger
	keys        []string
	interceptor *ws.ChannelInterceptor
	forwardURL  string
	forward     *http.Client
}

// NewHandler builds the handler set. forwardURL is the optional downstream
// that /relay forwards to; the forwarding client propagates the correlation
// scope on every hop.
func NewHandler(logger *slog.Logger, keys []string, forwardURL string) *Handler {
	return &Handler{
		logger:      logger,
		keys:        keys,
		interceptor: ws.NewChannelInterceptor(keys, logger),
		forwardURL:  forwardURL,
		forward:     outbound.NewClient(keys),
	}
}

// NewRouter wires all endpoints. Operational endpoints stay outside the
// correlation and audit chain.
func NewRouter(h *Handler, emitter auditlog.Emitter, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ingress.Middleware(h.keys, h.logger))
		r.Use(auditlog.Middleware(emitter, h.logger, m))

		r.With(ingress.RouteParams(h.keys),
			action.Tag("Viewed dashboard of project {{projectId}}", bindPath("projectId"))).
			Get("/projects/{projectId}/dashboard", h.handleDashboard)

		r.With(ingress.RouteParams(h.keys),
			action.Tag("Started run in project {{projectId}}", bindPath("projectId"))).
			Post("/projects/{projectId}/runs", h.handleStartRun)

		if h.forwardURL != "" {
			r.With(ingress.RouteParams(h.keys)).Post("/relay", h.handleRelay)
		}

		r.Get("/ws", h.handleWebsocket)
	})
	return r
}

// bindPath resolves one action-template parameter from the matched route.
func bindPath(name string) action.Binder {
	return func(r *http.Request) map[string]string {
		return map[string]string{name: chi.URLParam(r, name)}
	}
}
