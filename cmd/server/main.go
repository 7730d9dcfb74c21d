package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	financingapp "github.com/realestate/backend/internal/application/financing"
	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/auth"
	"github.com/realestate/backend/internal/infrastructure/cache"
	"github.com/realestate/backend/internal/infrastructure/config"
	"github.com/realestate/backend/internal/infrastructure/event"
	"github.com/realestate/backend/internal/infrastructure/logger"
	"github.com/realestate/backend/internal/infrastructure/persistence"
	"github.com/realestate/backend/internal/infrastructure/scheduler"
	"github.com/realestate/backend/internal/infrastructure/telemetry"
	"github.com/realestate/backend/internal/interfaces/http/handler"
	"github.com/realestate/backend/internal/interfaces/http/middleware"
	"github.com/realestate/backend/internal/interfaces/http/router"
)

//	@title			Real Estate Financing API
//	@version		1.0
//	@description	Installment schedules, payment allocation and amendments for real estate sales
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const version = "1.0.0"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log export tees into the application logger when enabled
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	var extraCores []zapcore.Core
	if loggerProvider.IsEnabled() {
		extraCores = append(extraCores, telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider, logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := logger.New(logCfg, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting financing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.NewDBTracingPlugin(cfg.Telemetry, log).Register(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := telemetry.RegisterDBPoolMetrics(meterProvider.Meter(), sqlDB); err != nil {
			log.Warn("Failed to register database pool metrics", zap.Error(err))
		}
	}
	log.Info("Database connected")

	// Financing lock and idempotency keys share one Redis client when available
	cacheFactory := cache.NewFactory(cfg.Redis, cfg.Lock, cache.WithLogger(log))
	locker, redisClient, err := cacheFactory.CreateLocker()
	if err != nil {
		log.Fatal("Failed to create financing lock", zap.Error(err))
	}
	idempotencyStore := cacheFactory.IdempotencyStore(redisClient)

	financingMetrics, err := telemetry.NewFinancingMetrics(meterProvider.Meter())
	if err != nil {
		log.Fatal("Failed to create financing metrics", zap.Error(err))
	}

	// Domain events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLogHandler(log))
	eventBus.Subscribe(financingMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	uow := persistence.NewGormUnitOfWork(db.DB)
	financingService := financingapp.NewFinancingService(uow, uow.Repositories(), locker, cfg.Financing)
	financingService.SetEventPublisher(eventBus)
	financingService.SetMetrics(financingMetrics)
	financingService.SetLogger(log)

	// Overdue snapshot job (read only)
	jobs := scheduler.New(cfg.Scheduler, log)
	if cfg.Scheduler.Enabled {
		job := scheduler.NewOverdueSnapshotJob(persistence.NewGormFinancingRepository(db.DB), financingMetrics, shared.SystemClock{}, log, 0)
		if err := jobs.Register(cfg.Scheduler.OverdueSchedule, job); err != nil {
			log.Fatal("Failed to schedule overdue snapshot", zap.Error(err))
		}
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = tracerProvider.IsEnabled()

	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()

	jwtCfg := middleware.DefaultJWTConfig(auth.NewJWTValidator(cfg.JWT))
	jwtCfg.Required = cfg.JWT.Required
	jwtCfg.Logger = log

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.DefaultTenantID = cfg.Financing.DefaultTenantID
	tenantCfg.Logger = log

	// Middleware order: request id first so every later log line carries it;
	// tracing before the error marker so the marker sees the server span;
	// tenant after JWT so the token's tenant wins; idempotency last so the
	// key is scoped to the resolved tenant.
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.TracingWithConfig(tracingCfg),
		middleware.SpanErrorMarker(),
		middleware.CORS(),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	router.RegisterHealth(engine, systemHandler)

	r := router.NewRouter(engine, router.WithMiddleware(
		middleware.Timeout(cfg.HTTP.WriteTimeout),
		middleware.HTTPMetrics(meterProvider.Meter(), log),
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TenantMiddlewareWithConfig(tenantCfg),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(profilingCfg),
		middleware.Idempotency(idempotencyStore, cfg.HTTP.IdempotencyTTL, log),
	))
	for _, reg := range router.FinancingRoutes(handler.NewFinancingHandler(financingService)) {
		r.Register(reg)
	}
	r.Register(router.SystemRoutes(systemHandler))
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	shutdown(shutdownCtx, log, "scheduler", func(ctx context.Context) error { return jobs.Stop(ctx) })
	shutdown(shutdownCtx, log, "event bus", eventBus.Stop)
	shutdown(shutdownCtx, log, "idempotency store", func(context.Context) error { return idempotencyStore.Close() })
	if redisClient != nil {
		shutdown(shutdownCtx, log, "redis", func(context.Context) error { return redisClient.Close() })
	}
	shutdown(shutdownCtx, log, "database", func(context.Context) error { return db.Close() })
	shutdown(shutdownCtx, log, "profiler", func(context.Context) error { return profiler.Stop() })
	shutdown(shutdownCtx, log, "meter provider", meterProvider.Shutdown)
	shutdown(shutdownCtx, log, "tracer provider", tracerProvider.Shutdown)
	shutdown(shutdownCtx, log, "logger provider", loggerProvider.Shutdown)

	log.Info("Server exited gracefully")
}

func shutdown(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Error("Error stopping "+name, zap.Error(err))
	}
}
