package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	v1 "chat-relay/cmd/api/router/v1"
	"chat-relay/internal/config"
	cacheAdapter "chat-relay/internal/infrastructure/cache/adapter"
	cport "chat-relay/internal/infrastructure/cache/port"
	"chat-relay/internal/infrastructure/database"
	identityAdapter "chat-relay/internal/infrastructure/identity/adapter"
	identity "chat-relay/internal/infrastructure/identity/port"
	"chat-relay/internal/infrastructure/logging"
	queueAdapter "chat-relay/internal/infrastructure/queue/adapter"
	qport "chat-relay/internal/infrastructure/queue/port"
	"chat-relay/internal/infrastructure/realtime"
	"chat-relay/internal/infrastructure/telemetry"
	"chat-relay/internal/pkg/auth"
	"chat-relay/internal/pkg/chat/application/task"
	"chat-relay/internal/pkg/chat/application/usecase"
	repoAdapter "chat-relay/internal/pkg/chat/persistence/repository/adapter"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
	httpHandler "chat-relay/internal/pkg/chat/presentation/http"
	"chat-relay/internal/pkg/chat/presentation/controller"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("chat-relay stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.OTEL.Endpoint,
		ServiceName: cfg.OTEL.ServiceName,
		SampleRatio: cfg.OTEL.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	metrics := telemetry.NewMetrics()
	checks := map[string]controller.HealthCheck{}

	repo, closeStore, err := openStore(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	cache, err := openCache(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer cache.Close()

	client, server, err := openBroker(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	verifier, err := identityAdapter.NewJWTVerifier(identityAdapter.JWTConfig{
		Secret:       cfg.Auth.JWTSecret,
		PublicKeyPEM: cfg.Auth.JWTPublicKey,
		Issuer:       cfg.Auth.Issuer,
		Audience:     cfg.Auth.Audience,
		Leeway:       5 * time.Second,
	})
	if err != nil {
		return err
	}
	directory, err := openDirectory(cfg, logger)
	if err != nil {
		return err
	}

	router := realtime.NewRouter()
	defer router.Close()

	relay := task.NewMessageRelay(client, logger.Named("relay"), metrics)
	relay.Queue = cfg.Broker.Queue
	relay.MaxRetry = cfg.Broker.MaxRetry
	relay.Window = cfg.Broker.ProcessingWindow

	deliver := task.NewDeliverMessageTask(usecase.NewMembershipAuthority(repo), router, cache, logger.Named("delivery"), metrics)
	deliver.DedupeTTL = cfg.Cache.DedupeTTL
	deliver.Window = cfg.Broker.ProcessingWindow
	deliver.Register(server)

	guard := auth.NewGuard(verifier, cfg.Auth.CookieName, logger.Named("guard"))
	engine := v1.NewEngine(logger)
	v1.RegisterRoutes(engine, guard, httpHandler.Dependencies{
		Repo:      repo,
		Directory: directory,
		Publisher: relay,
		Router:    router,
		Log:       logger,
		Metrics:   metrics,
	}, checks, metrics)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           telemetry.WrapHandler(engine, "chat-relay"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("delivery consumer started", zap.String("broker", cfg.Broker.Driver))
		if err := server.Run(ctx); err != nil {
			errCh <- fmt.Errorf("delivery consumer: %w", err)
		}
	}()
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("consumer shutdown", zap.Error(err))
	}
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]controller.HealthCheck) (repository.ChatRepository, func(), error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return repoAdapter.NewMemoryChatRepository(), func() {}, nil
	}

	if cfg.Store.AutoMigrate {
		if err := database.Migrate(cfg.DBURL, logger); err != nil {
			return nil, nil, err
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var opts []func(*pgxpool.Config)
	if cfg.Store.MaxConns > 0 {
		opts = append(opts, database.WithMaxConns(cfg.Store.MaxConns))
	}
	pool, err := database.Connect(connectCtx, cfg.DBURL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	checks["postgres"] = pool.Ping
	return repoAdapter.NewPgChatRepository(pool), pool.Close, nil
}

func openCache(ctx context.Context, cfg *config.Config, checks map[string]controller.HealthCheck) (cport.Cache, error) {
	var c cport.Cache
	if cfg.Cache.Driver == "memory" {
		c = cacheAdapter.NewMemoryCache()
	} else {
		rc, err := cacheAdapter.NewRedisAdapter(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c = rc
	}
	checks["cache"] = c.Ping
	return c, nil
}

func openBroker(cfg *config.Config, logger *zap.Logger) (qport.Client, qport.Server, error) {
	switch cfg.Broker.Driver {
	case "memory":
		b := queueAdapter.NewMemoryBroker(logger.Named("broker"))
		if cfg.Broker.MaxRetry > 0 {
			b.DefaultMaxRetry = cfg.Broker.MaxRetry
		}
		return b, b, nil
	case "kafka":
		kc := queueAdapter.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			GroupID:  cfg.Kafka.GroupID,
			MaxRetry: cfg.Broker.MaxRetry,
			Backoff:  500 * time.Millisecond,
		}
		client, err := queueAdapter.NewKafkaClient(kc)
		if err != nil {
			return nil, nil, err
		}
		server, err := queueAdapter.NewKafkaServer(kc, logger.Named("broker"))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return client, server, nil
	default:
		ac := queueAdapter.AsynqConfig{
			RedisURL:     cfg.RedisURL,
			Concurrency:  cfg.Asynq.Concurrency,
			Queues:       cfg.Asynq.Queues,
			DefaultQueue: cfg.Broker.Queue,
		}
		client, err := queueAdapter.NewAsynqClient(ac)
		if err != nil {
			return nil, nil, err
		}
		server, err := queueAdapter.NewAsynqServer(ac, logger.Named("broker"))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return client, server, nil
	}
}

func openDirectory(cfg *config.Config, logger *zap.Logger) (identity.Directory, error) {
	if strings.TrimSpace(cfg.Directory.URL) == "" {
		logger.Info("no directory url configured; serving bare user profiles")
		return identityAdapter.NewStaticDirectory(), nil
	}
	return identityAdapter.NewHTTPDirectory(cfg.Directory.URL, cfg.Directory.APIKey, cfg.Directory.Timeout)
}
