package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/adapters/events"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/adapters/heuristics"
	httpadapter "github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/application"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	var closers []io.Closer
	closeAll := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
		_ = sqlDB.Close()
	}

	cacheStore := ports.Cache(cache.NewMemoryCache(nil))
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			_ = sqlDB.Close()
			return nil, redisErr
		}
		cacheStore = cache.NewRedisCache(redisClient)
		closers = append(closers, redisClient)
	} else {
		logger.WarnContext(ctx, "REDIS_URL not set, domain block guard is process-local",
			"module", "bootstrap", "layer", "bootstrap", "operation", "new_runtime", "outcome", "degraded")
	}

	var tokens ports.TokenVerifier
	if cfg.AdminJWTSecret != "" {
		verifier, jwtErr := security.NewHMACTokenVerifier(cfg.AdminJWTSecret)
		if jwtErr != nil {
			closeAll()
			return nil, jwtErr
		}
		tokens = verifier
	} else {
		logger.WarnContext(ctx, "ADMIN_JWT_SECRET not set, admin routes will reject every request",
			"module", "bootstrap", "layer", "bootstrap", "operation", "new_runtime", "outcome", "degraded")
	}

	engine, err := heuristics.NewTermMatcher(heuristics.Config{
		Terms:                 cfg.SpamTriggerTerms,
		ScoreThreshold:        cfg.SpamScoreThreshold,
		UserConsideredNewDays: cfg.UserConsideredNewDays,
	}, nil)
	if err != nil {
		closeAll()
		return nil, err
	}

	repos := postgres.NewRepositories(db)
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			SystemAccountID:      cfg.SystemAccountID,
			SpamSuspendThreshold: cfg.SpamSuspendThreshold,
			FeatureMoreRigorousUserProfileSpamChecking: cfg.FeatureMoreRigorousUserProfileSpamChecking,
			RingMinReactions:        cfg.RingMinReactions,
			RingMinSize:             cfg.RingMinSize,
			RingConcentration:       cfg.RingConcentration,
			RingSelfReactionCeiling: cfg.RingSelfReactionCeiling,
			DomainBlockGuardTTL:     cfg.DomainBlockGuardTTL,
			EventDedupTTL:           cfg.EventDedupTTL,
		},
		Users:      repos.Users,
		Content:    repos.Content,
		Reactions:  repos.Reactions,
		Graph:      repos.Graph,
		Moderation: repos.Moderation,
		Outbox:     repos.Outbox,
		EventDedup: repos.EventDedup,
		Heuristics: engine,
		Cache:      cacheStore,
		Tokens:     tokens,
	})

	handler := httpadapter.NewHandler(service, sqlDB.PingContext)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		closeAll()
		return nil, err
	}

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, nil)
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, domain.InboundEventTypes)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	outbox := eventadapter.NewOutboxWorker(logger, repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, service, cfg.ConsumerPollInterval, cfg.ConsumerBatchSize)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		consumer:   consumer,
		cleanupFn: func(context.Context) {
			closeAll()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	r.logger.InfoContext(ctx, "api listening", "http_port", r.cfg.HTTPPort, "grpc_port", r.cfg.GRPCPort)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", runErr)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

// RunWorker drives event intake and outbox publishing. The gRPC listener
// opened by NewRuntime is released since only the API serves it.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	_ = r.grpcLis.Close()
	errCh := make(chan error, 2)

	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}
