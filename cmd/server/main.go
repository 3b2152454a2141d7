package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"cashless/internal/cache"
	catalogservice "cashless/internal/catalog/service"
	catalogstore "cashless/internal/catalog/store"
	"cashless/internal/coherence"
	"cashless/internal/coherence/redisbus"
	jwttoken "cashless/internal/jwt_token"
	ledgerservice "cashless/internal/ledger/service"
	ledgerstore "cashless/internal/ledger/store"
	"cashless/internal/outbox"
	"cashless/internal/platform/config"
	"cashless/internal/platform/httpserver"
	"cashless/internal/platform/logger"
	"cashless/internal/platform/metrics"
	"cashless/internal/platform/postgres"
	platformredis "cashless/internal/platform/redis"
	"cashless/internal/supervisor"
	httptransport "cashless/internal/transport/http"
)

// main wires high-level dependencies and runs every long-lived component under one
// errgroup; the first failure or a signal stops them all.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("cashless stopped", "error", err)
		os.Exit(1)
	}
	log.Info("cashless stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.Migrate {
		if err := postgres.Migrate(db); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	g, gctx := errgroup.WithContext(ctx)

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var transport coherence.Transport
	if rdb != nil {
		defer rdb.Close()
		bus := redisbus.New(rdb.Client, cfg.Coherence.StreamPrefix,
			redisbus.WithLogger(log),
			redisbus.WithMaxLen(cfg.Coherence.StreamMaxLen),
		)
		transport = bus
		if cfg.Coherence.RelayEnabled {
			host, _ := os.Hostname()
			g.Go(func() error { return bus.RunRelay(gctx, host) })
		}
	} else {
		hub := coherence.NewHub(coherence.WithHubLogger(log))
		transport = hub
		g.Go(func() error { return hub.Run(gctx) })
	}

	catalogStore := catalogstore.NewPostgres(db)
	sup, err := supervisor.New(cfg.Coherence.Workers,
		func(slot int) (*coherence.Worker, error) {
			c, err := cache.New(catalogStore, cache.WithLogger(log.With("worker", slot)), cache.WithMetrics(m))
			if err != nil {
				return nil, err
			}
			return coherence.NewWorker(slot, c, transport, coherence.WithLogger(log), coherence.WithMetrics(m)), nil
		},
		supervisor.WithLogger(log),
		supervisor.WithMetrics(m),
		supervisor.WithRestartBackoff(cfg.Coherence.RestartMinGap, cfg.Coherence.RestartMaxGap),
	)
	if err != nil {
		return err
	}
	g.Go(func() error { return sup.Run(gctx) })

	emitter := coherence.NewEmitter(transport, sup,
		coherence.WithEmitterLogger(log),
		coherence.WithEmitterMetrics(m),
	)
	catalog, err := catalogservice.New(catalogStore, emitter, catalogservice.WithLogger(log))
	if err != nil {
		return err
	}

	outboxStore := outbox.NewPostgres(db)
	ledger, err := ledgerservice.New(
		ledgerstore.NewPostgres(db, ledgerstore.WithTxTimeout(cfg.Database.TxTimeout)),
		sup,
		outboxStore,
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := outbox.NewKafkaClient(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := outbox.EnsureTopic(ctx, producer, cfg.Kafka.Topic); err != nil {
			return err
		}
		pub, err := outbox.NewPublisher(outboxStore, producer, cfg.Kafka.Topic,
			outbox.WithLogger(log),
			outbox.WithMetrics(m),
			outbox.WithPolling(cfg.Kafka.PollInterval, cfg.Kafka.BatchSize),
		)
		if err != nil {
			return err
		}
		g.Go(func() error { return pub.Run(gctx) })
	} else {
		log.Warn("no kafka brokers configured, ledger outbox is not published")
	}

	ready := map[string]httptransport.ReadinessCheck{
		"postgres": db.PingContext,
		"workers": func(context.Context) error {
			if !sup.Ready() {
				return errors.New("worker caches are not synced")
			}
			return nil
		},
	}
	if rdb != nil {
		ready["redis"] = rdb.Health
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Handler:       httptransport.NewHandler(ledger, catalog, log),
		Authenticator: jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer),
		Gatherer:      reg,
		Ready:         ready,
		Logger:        log,
	})
	srv := httpserver.New(cfg.Server, router, log)

	g.Go(func() error {
		log.Info("starting cashless", "addr", cfg.Server.Addr, "workers", cfg.Coherence.Workers)
		return httpserver.Serve(gctx, srv, cfg.Server.ShutdownTimeout)
	})

	return g.Wait()
}
