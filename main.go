// Package main provides the entry point for the flash-call phone verification service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/flashcall-auth/app/handlers"
	"github.com/amirphl/flashcall-auth/app/middleware"
	"github.com/amirphl/flashcall-auth/app/router"
	"github.com/amirphl/flashcall-auth/app/scheduler"
	"github.com/amirphl/flashcall-auth/app/services"
	businessflow "github.com/amirphl/flashcall-auth/business_flow"
	"github.com/amirphl/flashcall-auth/config"
	"github.com/amirphl/flashcall-auth/migrations"
	"github.com/amirphl/flashcall-auth/models"
	"github.com/amirphl/flashcall-auth/repository"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
	closers   []io.Closer
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCloser := initializeLogging(cfg.Logging)
	log.Println("Starting flashcall-auth...")
	for _, warning := range config.ConfigWarnings(cfg) {
		log.Printf("Configuration warning: %s", warning)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			log.Printf("Error closing resource: %v", err)
		}
	}

	log.Println("Server stopped")
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

// initializeLogging routes the standard logger to stdout, a rotating file, or both
func initializeLogging(cfg config.LoggingConfig) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
	if cfg.Output == "stdout" || cfg.Output == "" {
		log.SetOutput(os.Stdout)
		return nil
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  false,
	}
	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	} else {
		log.SetOutput(rotating)
	}
	return rotating
}

// initializeDatabase applies migrations and opens the pooled gorm connection
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := migrations.Apply(ctx, cfg.DSN()); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SlowQueryLog {
		gormLogger = logger.New(log.Default(), logger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues.
// The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows, handlers and background jobs
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()
	var closers []io.Closer

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval))
		closers = append(closers, rc)
	}

	// Repositories
	sourceRepo := repository.NewSourceNumberRepository(db)
	sessionRepo := repository.NewVerificationSessionRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	transactor := repository.NewTransactor(db)

	if err := ensureBootstrapAdmin(adminRepo, cfg); err != nil {
		return nil, err
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewHTTPMetrics(registry)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	var challengeStore services.ChallengeStore = services.NewMemoryChallengeStore()
	if rc != nil {
		challengeStore = services.NewRedisChallengeStore(rc, cfg.Cache.RedisPrefix+utils.CaptchaKeyPrefix)
	}
	captchaSvc, err := services.NewCaptchaServiceRotate(challengeStore, cfg.Admin.CaptchaTTL, cfg.Admin.CaptchaPadding, cfg.Admin.CaptchaImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize captcha service: %w", err)
	}

	callTrigger := services.NewCallTrigger(cfg.MissedCall.Provider, &cfg.Twilio)
	log.Printf("Call trigger provider: %s", cfg.MissedCall.Provider)

	// Observers
	eventLogger := log.New(log.Writer(), "missed-call ", log.Flags())
	events := businessflow.NewEventBus(
		businessflow.NewLogObserver(eventLogger),
		businessflow.NewMetricsObserver(registry),
		businessflow.NewAuditObserver(auditRepo),
	)

	var senderCache businessflow.LastSenderCache
	if rc != nil {
		senderCache = businessflow.NewRedisLastSenderCache(rc, cfg.Cache)
	}

	clk := clock.New()

	// Flows
	verificationFlow := businessflow.NewVerificationFlow(
		sessionRepo,
		businessflow.NewSourcePool(sourceRepo),
		businessflow.NewSignatureValidator(cfg.MissedCall.RequireSignature, cfg.MissedCall.AllowedSignatures, cfg.MissedCall.MinSignatureLength),
		callTrigger,
		transactor,
		senderCache,
		events,
		tokenService,
		clk,
		businessflow.NewVerificationSettings(cfg.MissedCall),
	)
	adminAuthFlow := businessflow.NewAdminAuthFlow(adminRepo, auditRepo, tokenService, captchaSvc)
	adminSourceNumberFlow := businessflow.NewAdminSourceNumberFlow(sourceRepo, sessionRepo, auditRepo, clk, cfg.MissedCall.MaxAttempts)

	appRouter := router.NewFiberRouter(router.Dependencies{
		Config:              cfg,
		VerificationHandler: handlers.NewVerificationHandler(verificationFlow),
		AdminHandler:        handlers.NewAdminHandler(adminAuthFlow),
		SourceNumberHandler: handlers.NewSourceNumberAdminHandler(adminSourceNumberFlow),
		AuthMiddleware:      middleware.NewAuthMiddleware(tokenService),
		SessionAuth:         verificationFlow,
		HTTPMetrics:         httpMetrics,
		Gatherer:            registry,
	})

	if cfg.Cleanup.Enabled {
		var locker scheduler.SweepLocker
		if rc != nil {
			locker = scheduler.NewRedisSweepLock(rc, cfg.Cache.RedisPrefix, cfg.Cleanup.LockTTL)
		}
		schedulerLogger := log.New(log.Writer(), "scheduler ", log.Flags())
		sweeper := scheduler.NewCleanupScheduler(sessionRepo, locker, clk, schedulerLogger, cfg.Cleanup.Interval, cfg.MissedCall.CleanupRetentionDays)
		stopFuncs = append(stopFuncs, sweeper.Start(context.Background()))
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		stopFuncs: stopFuncs,
		closers:   closers,
	}, nil
}

// ensureBootstrapAdmin creates the first operator account when configured and missing
func ensureBootstrapAdmin(adminRepo repository.AdminRepository, cfg *config.ProductionConfig) error {
	username := cfg.Admin.BootstrapUsername
	if username == "" || cfg.Admin.BootstrapPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := adminRepo.ByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to lookup bootstrap admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.BootstrapPassword), cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}

	now := utils.UTCNow()
	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := adminRepo.Save(ctx, admin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	log.Printf("Bootstrap admin %q created", username)
	return nil
}
