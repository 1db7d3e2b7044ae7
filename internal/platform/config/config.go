package config

import (
	"os"
	"strconv"
	"strings"

	"auditrelay/internal/audit"
	"auditrelay/pkg/correlation"
)

// Transport selects how assembled audit events leave the process.
type Transport string

const (
	// TransportKafka produces events to the audit topic.
	TransportKafka Transport = "kafka"
	// TransportREST posts events to the audit service directly.
	TransportREST Transport = "rest"
	// TransportDisabled evaluates the pipeline but ships nothing. Useful in
	// local development without a broker.
	TransportDisabled Transport = "disabled"
)

// Config captures everything main needs to wire the service.
type Config struct {
	ServiceName string
	Addr        string

	ContextKeys []string

	Transport      Transport
	IdentityPolicy audit.IdentityPolicy

	KafkaBrokers    []string
	AuditTopic      string
	AuditPartitions int
	AuditReplicas   int

	AuditEndpoint string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		ServiceName:     envOr("AUDITRELAY_SERVICE_NAME", "auditrelay"),
		Addr:            envOr("AUDITRELAY_ADDR", ":8080"),
		ContextKeys:     correlation.ParseKeys(envOr("AUDITRELAY_CONTEXT_KEYS", "userId,projectId,executionRequestId")),
		Transport:       Transport(envOr("AUDITRELAY_TRANSPORT", string(TransportKafka))),
		IdentityPolicy:  audit.FailClosed,
		KafkaBrokers:    splitList(envOr("AUDITRELAY_KAFKA_BROKERS", "localhost:9092")),
		AuditTopic:      envOr("AUDITRELAY_TOPIC", "audit-events"),
		AuditPartitions: envIntOr("AUDITRELAY_TOPIC_PARTITIONS", 1),
		AuditReplicas:   envIntOr("AUDITRELAY_TOPIC_REPLICAS", 1),
		AuditEndpoint:   os.Getenv("AUDITRELAY_REST_ENDPOINT"),
	}
	if os.Getenv("AUDITRELAY_IDENTITY_FAIL_OPEN") == "true" {
		cfg.IdentityPolicy = audit.FailOpen
	}
	switch cfg.Transport {
	case TransportKafka, TransportREST, TransportDisabled:
	default:
		cfg.Transport = TransportKafka
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(name string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil && v > 0 {
		return v
	}
	return fallback
}
