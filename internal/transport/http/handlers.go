package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"auditrelay/pkg/correlation"
	"auditrelay/pkg/platform/ws"
)

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDashboard echoes the resolved correlation scope so callers and tests
// can observe what the service would propagate downstream.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"projectId": correlation.Get(r.Context(), "projectId"),
		"userId":    correlation.Get(r.Context(), correlation.KeyUserID),
		"context":   correlation.Snapshot(r.Context()),
	})
}

// handleStartRun accepts a run and finishes it in the background. The spawned
// goroutine carries the request's correlation snapshot.
func (h *Handler) handleStartRun(w http.ResponseWriter, r *http.Request) {
	runID := uuid.NewString()

	correlation.Go(r.Context(), func(ctx context.Context) {
		h.logger.InfoContext(ctx, "run accepted",
			"run_id", runID,
			"project_id", correlation.Get(ctx, "projectId"),
			"user_id", correlation.Get(ctx, correlation.KeyUserID))
	})

	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

// handleRelay forwards the request body to the configured downstream. The
// forwarding client injects the correlation scope as carrier headers.
func (h *Handler) handleRelay(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.forwardURL, r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "downstream request failed"})
		return
	}
	req.Header.Set("Content-Type", r.Header.Get("Content-Type"))

	resp, err := h.forward.Do(req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "relay to downstream failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "downstream request failed"})
		return
	}
	defer resp.Body.Close()

	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// handleWebsocket upgrades the connection and echoes each frame back with the
// correlation scope the channel interceptor resolved for it.
func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	session, err := ws.Accept(w, r, h.interceptor, nil, h.logger)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	echo := func(ctx context.Context, frame *ws.Frame) error {
		reply := &ws.Frame{Command: "RECEIPT", Body: frame.Body}
		header := http.Header{}
		correlation.Inject(header, h.keys, correlation.Snapshot(ctx))
		for name, values := range header {
			reply.SetHeader(name, values...)
		}
		return session.Reply(ctx, reply)
	}
	if err := session.RunWith(r.Context(), echo); err != nil {
		h.logger.Debug("websocket session ended", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
