package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"auditrelay/internal/audit"
	"auditrelay/internal/platform/config"
	"auditrelay/internal/platform/httpserver"
	"auditrelay/internal/platform/kafka"
	"auditrelay/internal/platform/logger"
	"auditrelay/internal/platform/metrics"
	httptransport "auditrelay/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Pipeline logic lives in the audit and correlation
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, cleanup, err := buildTransport(ctx, cfg, log, m)
	if err != nil {
		log.Error("cannot initialize audit transport", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	emitter := audit.NewEmitter(cfg.ServiceName, cfg.IdentityPolicy, transport, log, m)
	handler := httptransport.NewHandler(log, cfg.ContextKeys, os.Getenv("AUDITRELAY_FORWARD_URL"))
	router := httptransport.NewRouter(handler, emitter, m)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting auditrelay", "addr", cfg.Addr, "transport", string(cfg.Transport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		return httpserver.Shutdown(srv)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildTransport selects the configured audit sink. The Kafka path also
// reconciles the topic shape; a provisioning failure is logged and tolerated,
// the first produce will surface a genuinely missing topic.
func buildTransport(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (audit.Transport, func(), error) {
	switch cfg.Transport {
	case config.TransportREST:
		if cfg.AuditEndpoint == "" {
			return nil, nil, errors.New("rest transport requires AUDITRELAY_REST_ENDPOINT")
		}
		return audit.NewRESTTransport(cfg.AuditEndpoint), func() {}, nil

	case config.TransportDisabled:
		return audit.NopTransport{}, func() {}, nil

	default:
		client, err := kafka.New(ctx, cfg.KafkaBrokers)
		if err != nil {
			return nil, nil, err
		}
		provisioner := audit.NewProvisioner(client, log)
		if err := provisioner.Ensure(ctx, cfg.AuditTopic, cfg.AuditPartitions, cfg.AuditReplicas); err != nil {
			log.Warn("audit topic provisioning failed, continuing", "error", err)
		}
		return audit.NewKafkaTransport(client, cfg.AuditTopic, log, m), client.Close, nil
	}
}
