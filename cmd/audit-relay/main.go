package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/event"
	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/tabletop/internal/adapter/repository/redis"
	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/pkg/config"
	"github.com/V4T54L/tabletop/internal/pkg/logger"
	"github.com/V4T54L/tabletop/internal/usecase"
)

const (
	processingInterval = 1 * time.Second
	retryCount         = 3
	retryBackoff       = 2 * time.Second
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:          "audit-relay",
		Short:        "Move buffered audit events from Redis to the configured sink",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file applied over the environment")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(parent context.Context, cfg *config.Config) error {
	log := logger.New(cfg.LogLevel, cfg.LogFile)
	defer log.Sync()
	log.Info("starting audit relay", zap.String("sink", cfg.AuditSink))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("connected to redis")

	sink, closeSink, err := openSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", zap.Error(err))
		consumerName = "audit-relay-default"
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewAPIMetrics(reg)
	metricsServer := &http.Server{Addr: cfg.AdminAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		log.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer metricsServer.Close()

	stream := redisrepo.NewAuditStream(redisClient, log, cfg.AuditGroup, nil, m)
	relay := usecase.NewAuditRelayUseCase(stream, sink, log, m, cfg.AuditGroup, consumerName, retryCount, retryBackoff)

	log.Info("audit relay started", zap.String("group", cfg.AuditGroup), zap.String("consumer", consumerName))
	relay.Run(ctx, processingInterval)
	log.Info("audit relay shut down gracefully")
	return nil
}

func openSink(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.AuditSink, func(), error) {
	if cfg.AuditSink == config.SinkPostgres {
		store, err := postgres.Open(ctx, cfg.PostgresURL, log)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close(context.Background())
			return nil, nil, err
		}
		return postgres.NewAuditRepository(store.DB(), log), func() { store.Close(context.Background()) }, nil
	}

	sink := event.NewKafkaSink(event.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaAuditTopic), log)
	return sink, func() {
		if err := sink.Close(); err != nil {
			log.Error("failed to close kafka writer", zap.Error(err))
		}
	}, nil
}
