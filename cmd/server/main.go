package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	syncapp "github.com/engagesync/backend/internal/application/sync"
	tenantapp "github.com/engagesync/backend/internal/application/tenant"
	syncdomain "github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/infrastructure/analytics"
	"github.com/engagesync/backend/internal/infrastructure/cache"
	"github.com/engagesync/backend/internal/infrastructure/config"
	"github.com/engagesync/backend/internal/infrastructure/gateway"
	"github.com/engagesync/backend/internal/infrastructure/idempotency"
	"github.com/engagesync/backend/internal/infrastructure/logger"
	"github.com/engagesync/backend/internal/infrastructure/persistence"
	"github.com/engagesync/backend/internal/infrastructure/scheduler"
	"github.com/engagesync/backend/internal/infrastructure/sequencing"
	"github.com/engagesync/backend/internal/infrastructure/telemetry"
	"github.com/engagesync/backend/internal/interfaces/http/handler"
	"github.com/engagesync/backend/internal/interfaces/http/middleware"
	"github.com/engagesync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting EngageSync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Distributed tracing
	tracer, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Connect to database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	// Repositories
	eventStore := persistence.NewGormEngagementEventStore(db.DB)
	checkpointStore := persistence.NewGormCheckpointStore(db.DB)
	namespaceRepo := persistence.NewGormNamespaceRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)

	// Analytics mirroring via Redis stream, with a dedup store so retried
	// upserts do not publish the same event twice
	var sink syncdomain.AnalyticsSink
	if cfg.Analytics.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts := []analytics.Option{analytics.WithStream(cfg.Analytics.Stream)}
		dedup, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(true),
		).CreateStore()
		if err != nil {
			log.Warn("Mirror dedup store unavailable, publishing without dedup", zap.Error(err))
		} else {
			opts = append(opts, analytics.WithDedup(dedup, cfg.Cache.MirrorDedupTTL))
		}
		sink = analytics.NewRedisStreamSink(rdb, log, opts...)
		log.Info("Analytics mirroring enabled", zap.String("stream", cfg.Analytics.Stream))
	}

	// Platform adapters and their rate-limiting gateways
	gateways := gateway.NewSet()
	var adapters []syncdomain.SequencingPlatform

	if cfg.Sync.Lemlist.Enabled {
		lc := sequencing.NewLemlistConfig(cfg.Sync.Lemlist.APIKey)
		if cfg.Sync.Lemlist.APIBaseURL != "" {
			lc.APIBaseURL = cfg.Sync.Lemlist.APIBaseURL
		}
		adapter, err := sequencing.NewLemlistAdapter(lc)
		if err != nil {
			log.Fatal("Failed to configure lemlist adapter", zap.Error(err))
		}
		adapters = append(adapters, adapter)
		gateways.Add(gateway.New(gatewayConfig(syncdomain.PlatformCodeLemlist, cfg.Sync.Lemlist), log))
	}
	if cfg.Sync.Smartlead.Enabled {
		sc := sequencing.NewSmartleadConfig(cfg.Sync.Smartlead.APIKey)
		if cfg.Sync.Smartlead.APIBaseURL != "" {
			sc.APIBaseURL = cfg.Sync.Smartlead.APIBaseURL
		}
		adapter, err := sequencing.NewSmartleadAdapter(sc)
		if err != nil {
			log.Fatal("Failed to configure smartlead adapter", zap.Error(err))
		}
		adapters = append(adapters, adapter)
		gateways.Add(gateway.New(gatewayConfig(syncdomain.PlatformCodeSmartlead, cfg.Sync.Smartlead), log))
	}
	if cfg.Sync.Woodpecker.Enabled {
		wc := sequencing.NewWoodpeckerConfig(cfg.Sync.Woodpecker.APIKey)
		if cfg.Sync.Woodpecker.APIBaseURL != "" {
			wc.APIBaseURL = cfg.Sync.Woodpecker.APIBaseURL
		}
		adapter, err := sequencing.NewWoodpeckerAdapter(wc)
		if err != nil {
			log.Fatal("Failed to configure woodpecker adapter", zap.Error(err))
		}
		adapters = append(adapters, adapter)
		gateways.Add(gateway.New(gatewayConfig(syncdomain.PlatformCodeWoodpecker, cfg.Sync.Woodpecker), log))
	}
	if len(adapters) == 0 {
		log.Warn("No sequencing platforms enabled; sync requests will be rejected")
	}
	registry := sequencing.NewRegistry(adapters...)

	// Application services
	keygen := idempotency.NewKeyGenerator(cfg.Cache.CollisionCapacity, log)
	resolver := tenantapp.NewNamespaceResolver(namespaceRepo, cfg.Cache.NamespaceTTL, log)
	namespaceService := tenantapp.NewNamespaceService(namespaceRepo, resolver)
	batch := syncapp.NewBatchProcessor(eventStore, keygen, sink, cfg.Sync.BatchPause, log)
	orchestrator := syncapp.NewOrchestrator(registry, gateways, resolver, batch, checkpointStore,
		syncapp.OrchestratorConfig{
			DefaultBatchSize: cfg.Sync.DefaultBatchSize,
			DefaultLookback:  cfg.Sync.DefaultLookback,
		}, log)
	jobs := syncapp.NewJobManager(orchestrator, jobRepo, cfg.Sync.JobTimeout, log)

	// Periodic delta syncs
	var delta *scheduler.DeltaScheduler
	if cfg.Scheduler.Enabled {
		platforms := schedulerPlatforms(cfg, log)
		if len(platforms) == 0 {
			log.Warn("Delta scheduler enabled but no platforms available; scheduler disabled")
		} else {
			delta, err = scheduler.NewDeltaScheduler(scheduler.DeltaSchedulerConfig{
				Enabled:   true,
				Interval:  cfg.Scheduler.DeltaInterval,
				Platforms: platforms,
			}, jobs, log)
			if err != nil {
				log.Fatal("Failed to configure delta scheduler", zap.Error(err))
			}
			if err := delta.Start(context.Background()); err != nil {
				log.Fatal("Failed to start delta scheduler", zap.Error(err))
			}
			log.Info("Delta scheduler started",
				zap.Duration("interval", cfg.Scheduler.DeltaInterval),
				zap.Int("platforms", len(platforms)),
			)
		}
	}

	// HTTP handlers
	syncHandler := handler.NewSyncHandler(jobs, gateways, keygen)
	namespaceHandler := handler.NewNamespaceHandler(namespaceService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. Tracing - Record request spans (if enabled)
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.App.Name,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Register API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(syncHandler).
		Register(namespaceHandler).
		Register(systemHandler)
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if delta != nil {
		if err := delta.Stop(ctx); err != nil {
			log.Error("Failed to stop delta scheduler", zap.Error(err))
		}
	}

	// Let in-flight sync runs finish persisting before the process exits
	jobs.Wait()

	if err := tracer.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down tracing", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// gatewayConfig builds a gateway configuration from platform settings,
// falling back to conservative defaults for anything unset
func gatewayConfig(code syncdomain.PlatformCode, p config.PlatformConfig) gateway.Config {
	c := gateway.DefaultConfig(code)
	if p.RequestsPerSecond > 0 {
		c.RequestsPerSecond = p.RequestsPerSecond
	}
	if p.MaxRetries > 0 {
		c.MaxRetries = p.MaxRetries
	}
	if p.RetryCooldown > 0 {
		c.RetryCooldown = p.RetryCooldown
	}
	if p.MaxInFlight > 0 {
		c.MaxInFlight = p.MaxInFlight
	}
	if p.BatchSize > 0 {
		c.BatchSize = p.BatchSize
	}
	if p.BatchPause > 0 {
		c.BatchPause = p.BatchPause
	}
	return c
}

// schedulerPlatforms resolves the platforms the delta scheduler covers.
// Explicit configuration wins; otherwise every enabled platform is covered.
func schedulerPlatforms(cfg *config.Config, log *zap.Logger) []syncdomain.PlatformCode {
	if len(cfg.Scheduler.Platforms) > 0 {
		out := make([]syncdomain.PlatformCode, 0, len(cfg.Scheduler.Platforms))
		for _, name := range cfg.Scheduler.Platforms {
			code := syncdomain.PlatformCode(name)
			if !code.IsValid() {
				log.Warn("Ignoring unknown scheduler platform", zap.String("platform", name))
				continue
			}
			out = append(out, code)
		}
		return out
	}
	out := make([]syncdomain.PlatformCode, 0, 3)
	for name := range cfg.Sync.EnabledPlatforms() {
		out = append(out, syncdomain.PlatformCode(name))
	}
	return out
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
