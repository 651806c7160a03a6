// @title           Visitor Management API
// @version         1.0.0
// @description     Multi-tenant visitor check-in backend for kiosk devices and company admins.
// @BasePath        /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/geoyang/Visitor/internal/analytics"
	"github.com/geoyang/Visitor/internal/caching"
	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/config"
	"github.com/geoyang/Visitor/internal/handlers"
	"github.com/geoyang/Visitor/internal/jobs"
	"github.com/geoyang/Visitor/internal/jobs/background"
	"github.com/geoyang/Visitor/internal/metrics"
	"github.com/geoyang/Visitor/internal/middleware"
	"github.com/geoyang/Visitor/internal/repositories"
	"github.com/geoyang/Visitor/internal/services"
	"github.com/geoyang/Visitor/pkg/database"
	"github.com/geoyang/Visitor/pkg/logger"

	_ "github.com/geoyang/Visitor/docs"

	"github.com/hibiken/asynq"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

const (
	shutdownTimeout    = 15 * time.Second
	outboundTimeout    = 10 * time.Second
	assetURLExpiry     = 7 * 24 * time.Hour
	workflowQueue      = "workflows"
	assetBucketTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		log = logger.Default()
		log.Warn("falling back to default logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GeneratedSecret {
		log.Warn("SECRET_KEY not set; using a generated signing key, tokens will not survive a restart")
	}

	// Database connection
	pool, err := database.NewPool(ctx, database.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, log); err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	m := metrics.New(cfg.Metrics.Prefix)
	httpClient := &http.Client{Timeout: outboundTimeout}

	// Redis backs the analytics cache, active theme cache and login throttle
	redisClient := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheService(redisClient, m)

	// Theme assets are optional; uploads fail until storage is configured
	var assetStore services.AssetStore
	if cfg.Storage.Endpoint != "" {
		assetStore, err = newAssetStore(ctx, cfg.Storage)
		if err != nil {
			log.Warn("object storage unavailable, theme asset uploads disabled",
				zap.String("endpoint", cfg.Storage.Endpoint),
				zap.Error(err),
			)
			assetStore = nil
		}
	}

	// Create repositories
	userRepo := repositories.NewUserRepo(pool)
	companyRepo := repositories.NewCompanyRepo(pool)
	locationRepo := repositories.NewLocationRepo(pool)
	deviceRepo := repositories.NewDeviceRepo(pool)
	visitorRepo := repositories.NewVisitorRepo(pool)
	formRepo := repositories.NewFormRepo(pool)
	workflowRepo := repositories.NewWorkflowRepo(pool)
	themeRepo := repositories.NewThemeRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)

	// Access control
	tokenSvc := services.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.TokenTTL, userRepo, clock, m, log)
	resolver := services.NewTenantResolver(tokenSvc, userRepo, companyRepo, deviceRepo, clock, log)
	guard := services.NewAccessGuard(locationRepo)
	gate := services.NewSubscriptionGate(guard, subscriptionRepo, clock, m, log)
	quota := services.NewDeviceQuota(deviceRepo, m, log)

	// Workflow actions run inline unless a queue worker is configured
	executor := services.NewActionExecutor(services.NewNotificationService(httpClient, log), m, log)
	var dispatcher services.ActionDispatcher = executor
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	if cfg.Jobs.AsyncWorkflows {
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()
		dispatcher = jobs.NewQueueDispatcher(queueClient, workflowQueue, log.Named("queue"))

		worker := asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: cfg.Jobs.WorkerConcurrency,
			Queues:      map[string]int{workflowQueue: 1},
			Logger:      log.Named("worker").Sugar(),
		})
		if err := worker.Start(jobs.NewServeMux(jobs.NewWorkflowActionHandler(executor, log.Named("worker")))); err != nil {
			return fmt.Errorf("failed to start workflow worker: %w", err)
		}
		defer worker.Shutdown()
	}
	trigger := services.NewWorkflowTrigger(workflowRepo, dispatcher, m, log)

	// Create services
	stripeSvc := services.NewStripeService(cfg.Stripe.SecretKey, cfg.Stripe.APIBase, cfg.Stripe.DevMode, httpClient, clock, log)
	authSvc := services.NewAuthService(userRepo, companyRepo, tokenSvc, cacheSvc,
		services.LoginThrottle{Limit: cfg.Auth.LoginRateLimit, Window: cfg.Auth.LoginRateWindow}, clock, log)
	companySvc := services.NewCompanyService(companyRepo, subscriptionRepo, clock, log)
	locationSvc := services.NewLocationService(locationRepo, companyRepo, subscriptionRepo, deviceRepo, guard, gate, quota, clock, log)
	deviceSvc := services.NewDeviceService(deviceRepo, locationRepo, companyRepo, gate, quota, clock, log)
	visitorSvc := services.NewVisitorService(visitorRepo, locationRepo, formRepo, gate, trigger, clock, log)
	formSvc := services.NewFormService(formRepo, visitorRepo, clock, log)
	workflowSvc := services.NewWorkflowService(workflowRepo, clock, log)
	userSvc := services.NewUserService(userRepo, companyRepo, tokenSvc, clock, log)
	themeSvc := services.NewThemeService(themeRepo, cacheSvc, assetStore, clock, log)
	subscriptionSvc := services.NewSubscriptionService(subscriptionRepo, companyRepo, locationRepo, userRepo, stripeSvc, clock, log)
	webhookSvc := services.NewWebhookService(subscriptionRepo, cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance, clock, m, log)
	analyticsSvc := analytics.NewAnalyticsService(visitorRepo, locationRepo, deviceRepo, cacheSvc, clock, log)

	if cfg.Database.SeedDefaults {
		if err := formSvc.SeedDefaultForm(ctx); err != nil {
			log.Warn("failed to seed default form", zap.Error(err))
		}
	}

	router := &handlers.Router{
		Auth:          handlers.NewAuthHandlers(authSvc),
		Companies:     handlers.NewCompanyHandlers(companySvc, locationSvc),
		Locations:     handlers.NewLocationHandlers(locationSvc),
		Devices:       handlers.NewDeviceHandlers(deviceSvc),
		Visitors:      handlers.NewVisitorHandlers(visitorSvc),
		Forms:         handlers.NewFormHandlers(formSvc),
		Workflows:     handlers.NewWorkflowHandlers(workflowSvc),
		Users:         handlers.NewUserHandlers(userSvc),
		Themes:        handlers.NewThemeHandlers(themeSvc),
		Subscriptions: handlers.NewSubscriptionHandlers(subscriptionSvc),
		Webhooks:      handlers.NewWebhookHandlers(webhookSvc, cfg.Stripe.PublishableKey),
		Analytics:     handlers.NewAnalyticsHandlers(analyticsSvc),
		Health:        handlers.NewHealthHandlers(pool, cacheSvc, cfg.Server.Version, clock),
	}

	// Background jobs
	if cfg.Jobs.Enabled {
		scheduler, err := background.NewJobScheduler(background.Intervals{
			TrialSweep:    cfg.Jobs.TrialSweepInterval,
			PresenceSweep: cfg.Jobs.PresenceSweepInterval,
		}, subscriptionRepo, deviceRepo, clock, m, log.Named("jobs"))
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Warn("failed to stop job scheduler", zap.Error(err))
			}
		}()
		router.Jobs = handlers.NewJobHandlers(scheduler)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.Server.Debug
	e.HTTPErrorHandler = common.HTTPErrorHandler(log)

	// Global middleware
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware(log))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.DeviceTokenHeader, logger.RequestIDHeader},
	}))
	e.Use(echoMiddleware.BodyLimit(cfg.Server.BodyLimit))
	e.Use(middleware.NewVersionMiddleware(cfg.Server.Version).VersionHeader())
	e.Use(middleware.NewAuditMiddleware(log).AuditRequest())
	e.Use(m.Middleware())

	e.GET("/metrics", m.Handler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	router.Register(e, middleware.NewAuthenticator(resolver))

	// Start server
	addr := ":" + cfg.Server.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("visitor management server starting",
			zap.String("addr", addr),
			zap.String("version", cfg.Server.Version),
			zap.String("env", cfg.Server.Env),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newAssetStore(ctx context.Context, cfg config.StorageConfig) (services.AssetStore, error) {
	store, err := services.NewMinioAssetStore(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL, assetURLExpiry)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, assetBucketTimeout)
	defer cancel()
	if err := store.EnsureBucketExists(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
