package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingapp "github.com/propfolio/backend/internal/application/billing"
	leasingapp "github.com/propfolio/backend/internal/application/leasing"
	listingapp "github.com/propfolio/backend/internal/application/listing"
	paymentapp "github.com/propfolio/backend/internal/application/payment"
	"github.com/propfolio/backend/internal/domain/fraud"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/infrastructure/auth"
	"github.com/propfolio/backend/internal/infrastructure/config"
	"github.com/propfolio/backend/internal/infrastructure/event"
	"github.com/propfolio/backend/internal/infrastructure/gateway"
	"github.com/propfolio/backend/internal/infrastructure/logger"
	"github.com/propfolio/backend/internal/infrastructure/persistence"
	"github.com/propfolio/backend/internal/infrastructure/ratelimit"
	"github.com/propfolio/backend/internal/infrastructure/scheduler"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/propfolio/backend/internal/interfaces/http/handler"
	"github.com/propfolio/backend/internal/interfaces/http/middleware"
	"github.com/propfolio/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Propfolio Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database connection with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	entityRepo := persistence.NewGormFinancialEntityRepository(db.DB)
	journalRepo := persistence.NewGormJournalEntryRepository(db.DB)
	billRepo := persistence.NewGormUtilityBillRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	unitRepo := persistence.NewGormUnitRepository(db.DB)
	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	listingRepo := persistence.NewGormListingRepository(db.DB)
	auditRepo := persistence.NewGormListingAuditRepository(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)

	auditService := listingapp.NewAuditService(auditRepo, log)
	relistPromptHandler := listingapp.NewRelistPromptHandler(auditService, log)
	eventBus.Subscribe(relistPromptHandler, relistPromptHandler.EventTypes()...)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	postingService := ledger.NewPostingService(entityRepo, journalRepo, log)
	billService := billingapp.NewUtilityBillService(
		billRepo, invoiceRepo, leaseRepo, unitRepo, postingService, eventBus, log)
	listingService := listingapp.NewListingService(
		listingRepo, leaseRepo, unitRepo, auditService, eventBus, log)
	bulkService := listingapp.NewBulkService(listingService, listingRepo, log)
	sweepService := listingapp.NewSweepService(listingRepo, leaseRepo, log)
	leaseService := leasingapp.NewLeaseService(leaseRepo, unitRepo, listingRepo, eventBus, log)

	// Payment pipeline: velocity tracking backed by Redis when available,
	// in-process otherwise
	var attempts paymentapp.AttemptTracker
	if cfg.Redis.Host != "" {
		redisTracker, err := ratelimit.NewRedisAttemptTracker(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis for attempt tracking", zap.Error(err))
		}
		defer func() {
			if err := redisTracker.Close(); err != nil {
				log.Error("Error closing Redis attempt tracker", zap.Error(err))
			}
		}()
		attempts = redisTracker
		log.Info("Redis attempt tracker enabled",
			zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	} else {
		attempts = ratelimit.NewInMemoryAttemptTracker()
		log.Info("In-memory attempt tracker enabled")
	}

	fraudRules := []fraud.Rule{
		&fraud.AmountThresholdRule{Threshold: decimal.NewFromInt(cfg.Fraud.AmountThreshold)},
		&fraud.VelocityRule{MaxAttempts: cfg.Fraud.VelocityMaxAttempts},
		&fraud.UnusualTimeRule{},
		&fraud.DisposableEmailRule{},
		&fraud.RegionMismatchRule{},
		fraud.NewAVSCheckRule(),
		fraud.NewDeviceFingerprintRule(),
	}
	scorer := fraud.NewScorer(fraudRules, log)
	paymentGateway := gateway.NewSimulatedGateway(log)
	paymentService := paymentapp.NewPaymentService(invoiceRepo, paymentGateway, scorer, attempts, log)

	// Listing sweep scheduler
	sweepScheduler := scheduler.NewListingSweepScheduler(sweepService, log, scheduler.ListingSweepSchedulerConfig{
		Enabled:       cfg.ListingSweep.Enabled,
		CheckInterval: cfg.ListingSweep.CheckInterval,
	})
	if err := sweepScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start listing sweep scheduler", zap.Error(err))
	}
	defer func() {
		if err := sweepScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping listing sweep scheduler", zap.Error(err))
		}
	}()

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	billHandler := handler.NewUtilityBillHandler(billService)
	listingHandler := handler.NewListingHandler(listingService, bulkService, sweepScheduler)
	leaseHandler := handler.NewLeaseHandler(leaseService)
	paymentHandler := handler.NewPaymentHandler(paymentService)

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

	// Middleware stack: request ID first so recovery and logging carry it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning and auth)
	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		Logger:     log,
	}))
	r.Register(billHandler).
		Register(listingHandler).
		Register(leaseHandler).
		Register(paymentHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

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
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports process and database liveness
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
