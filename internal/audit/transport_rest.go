package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// RESTTransport ships audit events to the audit service as a single
// synchronous POST per event. Transient failures are retried by the client
// itself; the emitter never re-drives a delivery.
type RESTTransport struct {
	client   *retryablehttp.Client
	endpoint string
}

// NewRESTTransport builds the transport for the given audit-service
// endpoint, e.g. "http://audit-service/api/v1/audit".
func NewRESTTransport(endpoint string) *RESTTransport {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &RESTTransport{client: client, endpoint: endpoint}
}

// Send posts the event as a JSON body. A non-2xx response is a delivery
// error.
func (t *RESTTransport) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return fmt.Errorf("build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post audit event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("audit service returned status %d", resp.StatusCode)
	}
	return nil
}
