package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"auditrelay/internal/platform/metrics"
	"auditrelay/pkg/correlation"
	"auditrelay/pkg/jwtclaims"
	"auditrelay/pkg/platform/middleware/ingress"
)

// ProjectIDHeader carries the audited project for event assembly.
const ProjectIDHeader = "X-Project-Id"

// IdentityPolicy decides what happens when the token parses but the required
// identity claims (userId, sessionId) cannot be resolved.
type IdentityPolicy string

const (
	// FailClosed skips emission on identity-resolution failure. Default.
	FailClosed IdentityPolicy = "fail-closed"
	// FailOpen still ships the event with degraded identity fields.
	FailOpen IdentityPolicy = "fail-open"
)

// Transport delivers an assembled event to the durable audit sink.
type Transport interface {
	Send(ctx context.Context, event Event) error
}

// NopTransport drops every event. It keeps the pipeline evaluable in
// deployments without an audit sink.
type NopTransport struct{}

func (NopTransport) Send(context.Context, Event) error { return nil }

// Emitter decides whether a completed request produces an audit event,
// assembles the event, and hands it to the transport. Every failure mode is
// recovered here: audit is an auxiliary concern and must never fail the
// user-facing request.
type Emitter struct {
	service   string
	policy    IdentityPolicy
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewEmitter constructs an emitter for the named service.
func NewEmitter(service string, policy IdentityPolicy, transport Transport, logger *slog.Logger, m *metrics.Metrics) *Emitter {
	if policy != FailOpen {
		policy = FailClosed
	}
	return &Emitter{
		service:   service,
		policy:    policy,
		transport: transport,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

type identity struct {
	sessionID uuid.UUID
	userID    uuid.UUID
	username  string
}

// Emit evaluates the emission preconditions for a completed request and
// ships the event when they hold. It must run while the request's
// correlation scope is still populated, i.e. before ingress cleanup.
func (e *Emitter) Emit(ctx context.Context, r *http.Request, status int) {
	authHeader := r.Header.Get("Authorization")
	if strings.TrimSpace(authHeader) == "" {
		e.skip(ctx, r, metrics.SkipNoToken, "empty Authorization token")
		return
	}

	userAction := correlation.Get(ctx, correlation.KeyUserAction)
	if strings.TrimSpace(userAction) == "" {
		e.skip(ctx, r, metrics.SkipNoAction, "no user action recorded")
		return
	}

	ident, err := e.resolveIdentity(authHeader)
	if err != nil {
		if e.policy == FailClosed {
			e.logger.ErrorContext(ctx, "skipping audit event, cannot resolve identity",
				"url", r.URL.Path, "error", err)
			e.metrics.AuditSkipped.WithLabelValues(metrics.SkipIdentity).Inc()
			return
		}
		e.logger.WarnContext(ctx, "emitting audit event with degraded identity",
			"url", r.URL.Path, "error", err)
		ident = identity{}
	}

	event := e.buildEvent(r, ident, userAction, status)
	if err := e.transport.Send(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to deliver audit event",
			"url", r.URL.Path, "error", err)
		e.metrics.AuditFailures.Inc()
		return
	}
	e.metrics.AuditEmitted.Inc()
	e.logger.DebugContext(ctx, "audit event shipped", "url", r.URL.Path, "action", userAction)
}

func (e *Emitter) skip(ctx context.Context, r *http.Request, reason, detail string) {
	e.logger.DebugContext(ctx, "audit logging skipped", "url", r.URL.Path, "reason", detail)
	e.metrics.AuditSkipped.WithLabelValues(reason).Inc()
}

// resolveIdentity decodes the token once and derives every identity field
// from the same claims map. Both userId and sessionId must resolve.
func (e *Emitter) resolveIdentity(authHeader string) (identity, error) {
	claims, err := jwtclaims.Read(authHeader)
	if err != nil {
		return identity{}, err
	}
	if claims.IsM2M() {
		return identity{}, fmt.Errorf("%w: machine-to-machine principal", jwtclaims.ErrIdentity)
	}
	userID, err := claims.UserID()
	if err != nil {
		return identity{}, err
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return identity{}, err
	}
	if userID == uuid.Nil || sessionID == uuid.Nil {
		return identity{}, fmt.Errorf("%w: userId and/or sessionId claims absent", jwtclaims.ErrIdentity)
	}
	return identity{sessionID: sessionID, userID: userID, username: claims.Username()}, nil
}

func (e *Emitter) buildEvent(r *http.Request, ident identity, userAction string, status int) Event {
	projectID := ""
	if id, err := ingress.UUIDHeader(r, ProjectIDHeader, false); err != nil {
		e.logger.Debug("ignoring malformed project id header", "error", err)
	} else if id != uuid.Nil {
		projectID = id.String()
	}

	return Event{
		ID:             uuid.NewString(),
		SessionID:      orNull(uuidString(ident.sessionID)),
		ProjectID:      orNull(projectID),
		Service:        orNull(e.service),
		Username:       orNull(ident.username),
		UserID:         orNull(uuidString(ident.userID)),
		URL:            orNull(r.URL.Path),
		StartDate:      e.now().UnixMilli(),
		HTTPMethod:     orNull(r.Method),
		ReferPage:      orNull(r.Referer()),
		IPAddress:      orNull(clientIP(r)),
		UserAgent:      BrowserFamily(r.UserAgent()),
		UserAction:     userAction,
		HTTPStatusCode: status,
	}
}

// clientIP resolves the original caller address, preferring proxy headers
// over the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return ""
}

func uuidString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// orNull keeps the wire schema fixed: absent string fields ship as "null".
func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
