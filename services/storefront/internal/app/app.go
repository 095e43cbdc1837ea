package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/services/storefront/internal/auth"
	"github.com/utafrali/storefront/services/storefront/internal/client"
	"github.com/utafrali/storefront/services/storefront/internal/config"
	"github.com/utafrali/storefront/services/storefront/internal/event"
	handler "github.com/utafrali/storefront/services/storefront/internal/handler/http"
	"github.com/utafrali/storefront/services/storefront/internal/notify"
	redisrepo "github.com/utafrali/storefront/services/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/services/storefront/internal/service"
	"github.com/utafrali/storefront/services/storefront/internal/state"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redis          *redis.Client
	producer       *pkgkafka.Producer
	sessions       *service.SessionService
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize Redis for session tokens.
	redisCfg := database.DefaultRedisConfig()
	redisCfg.Host = cfg.RedisHost
	redisCfg.Port = cfg.RedisPort
	redisCfg.Password = cfg.RedisPass
	redisCfg.DB = cfg.RedisDB
	redisCfg.PoolSize = cfg.RedisPool
	redisClient, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)
	database.RegisterPoolMetrics(redisClient, "storefront")
	database.SetSlowCommandLogging(cfg.RedisSlowThreshold, logger)

	// Toasts always go to the log; Kafka is optional.
	var (
		producer *pkgkafka.Producer
		notifier notify.Notifier = notify.NewLogger(logger)
		events   service.SessionEvents
	)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		kafkaCfg.Async = true
		producer = pkgkafka.NewProducer(kafkaCfg, logger)
		eventProducer := event.NewProducer(producer, logger)
		notifier = notify.Fanout{notifier, eventProducer}
		events = eventProducer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Upstream clients, one breaker per dependency.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.UpstreamTimeout
	httpCfg.MaxRetries = cfg.UpstreamRetries
	cartHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg), httpclient.DefaultCircuitBreakerConfig("cart-api"), logger)
	catalogHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg), httpclient.DefaultCircuitBreakerConfig("catalog-api"), logger)

	cartAPI := func(tokens client.TokenSource) state.CartAPI {
		return client.NewCartClient(cartHTTP, cfg.CartAPIURL, tokens)
	}
	catalog := client.NewCatalogClient(catalogHTTP, cfg.CatalogAPIURL, logger)
	validate := auth.NewJWTValidator(cfg.JWTSecret)

	// Build the dependency graph.
	sessionRepo := redisrepo.NewSessionRepository(redisClient, cfg.SessionTTL)
	sessions := service.NewSessionService(sessionRepo, cartAPI, validate, notifier, events, logger, service.SessionConfig{
		IdleTimeout: cfg.SessionIdleTimeout,
		QueueSize:   cfg.ToastQueueSize,
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
		Key:   middleware.ClientIPKey(cfg.TrustedProxyCIDRs, logger),
	}, logger)

	// Health checks.
	healthHandler := health.NewHandler(health.WithTimeout(3 * time.Second))
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}
	healthHandler.RegisterNonCritical("cart-api", breakerCheck(cartHTTP))
	healthHandler.RegisterNonCritical("catalog-api", breakerCheck(catalogHTTP))

	// HTTP router.
	router := handler.NewRouter(sessions, catalog, limiter, validate, healthHandler, logger, handler.RouterConfig{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		redis:          redisClient,
		producer:       producer,
		sessions:       sessions,
		limiter:        limiter,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// breakerCheck reports an upstream as unhealthy while its breaker is open.
func breakerCheck(cb *httpclient.CircuitBreakerClient) health.Checker {
	return func(context.Context) error {
		if cb.State() == gobreaker.StateOpen {
			return fmt.Errorf("%s: %w", cb.Name(), httpclient.ErrCircuitOpen)
		}
		return nil
	}
}

// Run starts the HTTP server and the background sweepers, and blocks until
// the context is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.sessions.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer (flush queued toasts and session events)
// 4. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Redis.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete",
		slog.Int("open_sessions", a.sessions.Len()),
	)
	return errors.Join(errs...)
}
