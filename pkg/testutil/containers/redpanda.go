//go:build integration

package containers

import (
	"context"
	"testing"

	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"
)

// RedpandaContainer wraps a testcontainers Redpanda instance exposing a
// Kafka-compatible broker.
type RedpandaContainer struct {
	Container *tcredpanda.Container
	Broker    string
	Client    *kgo.Client
}

// NewRedpandaContainer starts a new Redpanda container and connects a client
// to it.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.io/redpandadata/redpanda:v24.1.7")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redpanda seed broker: %v", err)
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(broker))
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to build kafka client: %v", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping redpanda: %v", err)
	}

	return &RedpandaContainer{
		Container: container,
		Broker:    broker,
		Client:    client,
	}
}

// Close releases the client and terminates the container.
func (r *RedpandaContainer) Close(ctx context.Context) {
	r.Client.Close()
	_ = r.Container.Terminate(ctx)
}
