package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const provisionTimeout = 10 * time.Second

// Provisioner reconciles the audit topic's declarative shape against the
// broker before the producer first uses it. Ensure is idempotent and safe to
// race across process instances provisioning concurrently at startup; the
// worst case is a harmless duplicate create or partition-increase call.
type Provisioner struct {
	admin  *kadm.Client
	logger *slog.Logger
}

// NewProvisioner builds a provisioner on top of the process-wide client.
func NewProvisioner(client *kgo.Client, logger *slog.Logger) *Provisioner {
	return &Provisioner{admin: kadm.NewClient(client), logger: logger}
}

// Ensure creates the topic with the given shape when absent. For an existing
// topic only the partition count is reconciled, and only upward: partitions
// can never decrease and the replication factor of an existing topic is not
// altered. The returned error is informational; callers proceed
// optimistically and let the first produce surface a genuinely missing
// topic.
func (p *Provisioner) Ensure(ctx context.Context, topic string, partitions int, replicas int) error {
	p.logger.Info("ensuring audit topic",
		"topic", topic, "partitions", partitions, "replicas", replicas)

	ctx, cancel := context.WithTimeout(ctx, provisionTimeout)
	defer cancel()

	existing, err := p.admin.ListTopics(ctx)
	if err != nil {
		p.logger.Error("cannot list topics", "topic", topic, "error", err)
		return fmt.Errorf("list topics: %w", err)
	}

	if !existing.Has(topic) {
		if _, err := p.admin.CreateTopic(ctx, int32(partitions), int16(replicas), nil, topic); err != nil {
			p.logger.Error("cannot create topic",
				"topic", topic, "partitions", partitions, "replicas", replicas, "error", err)
			return fmt.Errorf("create topic %q: %w", topic, err)
		}
		p.logger.Debug("audit topic created", "topic", topic)
		return nil
	}

	current := len(existing[topic].Partitions)
	if current >= partitions {
		p.logger.Debug("audit topic already satisfies desired shape",
			"topic", topic, "partitions", current)
		return nil
	}

	resps, err := p.admin.UpdatePartitions(ctx, partitions, topic)
	if err != nil {
		p.logger.Error("cannot increase partitions", "topic", topic, "error", err)
		return fmt.Errorf("update partitions for %q: %w", topic, err)
	}
	if resp, ok := resps[topic]; ok && resp.Err != nil {
		p.logger.Error("cannot increase partitions", "topic", topic, "error", resp.Err)
		return fmt.Errorf("update partitions for %q: %w", topic, resp.Err)
	}
	p.logger.Debug("audit topic partitions increased",
		"topic", topic, "from", current, "to", partitions)
	return nil
}
