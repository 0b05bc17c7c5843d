package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bp3mi/presensi-api/api/swagger"
	"github.com/bp3mi/presensi-api/internal/handler"
	"github.com/bp3mi/presensi-api/internal/middleware"
	"github.com/bp3mi/presensi-api/internal/punch"
	"github.com/bp3mi/presensi-api/internal/repository"
	"github.com/bp3mi/presensi-api/internal/service"
	"github.com/bp3mi/presensi-api/pkg/cache"
	"github.com/bp3mi/presensi-api/pkg/config"
	"github.com/bp3mi/presensi-api/pkg/database"
	"github.com/bp3mi/presensi-api/pkg/jobs"
	"github.com/bp3mi/presensi-api/pkg/logger"
	corsmiddleware "github.com/bp3mi/presensi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bp3mi/presensi-api/pkg/middleware/requestid"
	"github.com/bp3mi/presensi-api/pkg/storage"
)

// @title Presensi BP3MI API
// @version 1.0.0
// @description Biometric punch-log reconciliation and attendance reporting
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	// Redis is optional: without it the dashboard simply reads the store
	// on every request.
	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	attendanceRepo := repository.NewAttendanceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logr)

	authSvc := service.NewAuthService(userRepo, auditSvc, nil, logr, service.AuthConfig{
		Secret:      cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})

	reconcileSvc := service.NewReconciliationService(attendanceRepo, auditSvc, cacheSvc, metricsSvc, nil, logr, service.ReconciliationConfig{
		Policy: punch.Policy{
			AmbiguousStart:  cfg.Reconcile.AmbiguousStart,
			NightStart:      cfg.Reconcile.NightStart,
			NightSameDayGap: cfg.Reconcile.NightSameDayGap,
		},
		Workers: cfg.Reconcile.Workers,
	})

	dashboardSvc := service.NewDashboardService(attendanceRepo, cacheSvc, logr, cfg.Dashboard.CacheTTL)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	reportSvc := service.NewReportService(reportJobRepo, attendanceRepo, reportStore, signer, auditSvc, nil, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: time.Hour,
	})

	reportQueue := jobs.NewQueue("monthly-report", reportSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc.SetQueue(reportQueue)

	archiveStore, err := storage.NewLocalStorage(cfg.Archives.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init archive storage", "error", err)
	}
	archiveSvc := service.NewArchiveService(archiveStore, reconcileSvc, auditSvc, logr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	uploadHandler := handler.NewUploadHandler(reconcileSvc, archiveSvc, cfg.Reconcile.MaxUploadBytes)
	recordHandler := handler.NewRecordHandler(reconcileSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	archiveHandler := handler.NewArchiveHandler(archiveSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/uploads", uploadHandler.Upload)
	protected.GET("/records", recordHandler.List)

	if cfg.Audit.Enabled {
		protected.GET("/audits", auditHandler.List)
	}

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard/summary", dashboardHandler.Summary)
		protected.GET("/dashboard/performance", dashboardHandler.Performance)
		protected.GET("/dashboard/latest", dashboardHandler.Latest)
	}
	if cfg.Reports.Enabled {
		api.GET("/reports/download/:token", reportHandler.Download)
		protected.POST("/reports", reportHandler.Create)
		protected.GET("/reports/:id", reportHandler.Status)
	}
	if cfg.Archives.Enabled {
		protected.GET("/archives", archiveHandler.List)
		protected.DELETE("/archives/:name", archiveHandler.Delete)
		protected.POST("/archives/:name/reprocess", archiveHandler.Reprocess)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
