package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"auditrelay/internal/platform/metrics"
)

// KafkaTransport produces audit events to a pre-provisioned topic. Records
// are keyed by sessionId so one user session always lands on one partition.
// Delivery is fire-and-forget: the produce promise only logs and counts,
// producer-level retries are kgo's concern.
type KafkaTransport struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewKafkaTransport wraps the process-wide producer client.
func NewKafkaTransport(client *kgo.Client, topic string, logger *slog.Logger, m *metrics.Metrics) *KafkaTransport {
	return &KafkaTransport{client: client, topic: topic, logger: logger, metrics: m}
}

// Send enqueues the event and returns immediately. The only synchronous
// failure is serialization.
func (t *KafkaTransport) Send(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: t.topic,
		Key:   []byte(event.SessionID),
		Value: value,
	}
	t.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			t.logger.Error("audit event produce failed",
				"topic", t.topic, "event_id", event.ID, "error", err)
			t.metrics.AuditFailures.Inc()
		}
	})
	return nil
}
