package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/api"
	"github.com/V4T54L/tabletop/internal/adapter/api/middleware"
	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/adapter/pii"
	redisrepo "github.com/V4T54L/tabletop/internal/adapter/repository/redis"
	"github.com/V4T54L/tabletop/internal/adapter/repository/wal"
	"github.com/V4T54L/tabletop/internal/pkg/config"
	"github.com/V4T54L/tabletop/internal/pkg/logger"
	"github.com/V4T54L/tabletop/internal/pkg/token"
	"github.com/V4T54L/tabletop/internal/usecase"
)

const (
	redisHealthInterval = 5 * time.Second
	limiterSweep        = 10 * time.Minute
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the public API and the admin listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create shared tables and indexes on startup")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, migrate bool) error {
	log := logger.New(cfg.LogLevel, cfg.LogFile)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewAPIMetrics(reg)

	// --- Store ---
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	if migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	// --- Audit buffer ---
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis, audit events go to the WAL", zap.Error(err))
	}

	walRepo, err := wal.NewWALRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
	if err != nil {
		return err
	}
	defer walRepo.Close()

	stream := redisrepo.NewAuditStream(redisClient, log, cfg.AuditGroup, walRepo, m)
	go stream.StartHealthCheck(ctx, redisHealthInterval)

	audit := usecase.NewAuditUseCase(stream, pii.NewRedactor(cfg.RedactionFields(), log), log, m)

	// --- Services ---
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	resolver := usecase.NewTenantResolver(store.Tenants(), log, cfg.TenantCacheTTL, m)
	limiter := middleware.NewIPRateLimiter(cfg.LoginRatePerMin, cfg.LoginBurst)
	go limiter.Run(ctx, limiterSweep)

	admin := usecase.NewAdminUseCase(store, stream, resolver, cfg.AuditGroup, log)
	svc := api.Services{
		Provisioner:  usecase.NewProvisioner(store, audit, log, m),
		Login:        usecase.NewLoginService(store, issuer, audit, log, m),
		Menu:         usecase.NewMenuService(store.Menu(), usecase.NewCodeGenerator(store.Counters(), store.Menu()), audit, log),
		Users:        usecase.NewUserService(store.Users(), store.Directory(), audit, log),
		Settings:     usecase.NewSettingsService(store.Settings(), audit, log),
		Admin:        admin,
		Resolver:     resolver,
		Issuer:       issuer,
		LoginLimiter: limiter,
	}

	// --- Servers ---
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(cfg, log, m, svc),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(admin, reg, log),
	}

	for name, srv := range map[string]*http.Server{"api": apiServer, "admin": adminServer} {
		go func(name string, srv *http.Server) {
			log.Info("starting server", zap.String("server", name), zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("server failed", zap.String("server", name), zap.Error(err))
				stop()
			}
		}(name, srv)
	}

	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", zap.Error(err))
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", zap.Error(err))
	}
	log.Info("servers shut down gracefully")
	return nil
}
