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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/shortcourse-api/api/swagger"
	"github.com/noah-isme/shortcourse-api/internal/handler"
	internalmiddleware "github.com/noah-isme/shortcourse-api/internal/middleware"
	"github.com/noah-isme/shortcourse-api/internal/models"
	"github.com/noah-isme/shortcourse-api/internal/repository"
	"github.com/noah-isme/shortcourse-api/internal/service"
	"github.com/noah-isme/shortcourse-api/pkg/cache"
	"github.com/noah-isme/shortcourse-api/pkg/config"
	"github.com/noah-isme/shortcourse-api/pkg/database"
	"github.com/noah-isme/shortcourse-api/pkg/export"
	"github.com/noah-isme/shortcourse-api/pkg/jobs"
	"github.com/noah-isme/shortcourse-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shortcourse-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/shortcourse-api/pkg/middleware/requestid"
	"github.com/noah-isme/shortcourse-api/pkg/storage"
)

// @title Short Course Registration API
// @version 1.0.0
// @description Staff dashboard over short-course registration form submissions
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := validator.New()
	staff := service.DefaultStaffDirectory()

	var (
		db           *sqlx.DB
		snapshotRepo *repository.SnapshotRepository
	)
	if cfg.Snapshot.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			logr.Fatal("failed to open snapshot database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		snapshotRepo = repository.NewSnapshotRepository(db)
		if err := snapshotRepo.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare snapshot schema", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, view cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)

	appsScript := repository.NewAppsScriptSource(cfg.Source.ScriptURL, cfg.Source.Timeout)
	sources := []service.SubmissionSource{appsScript}
	sheetsSource, err := repository.NewSheetsSource(ctx, repository.SheetsConfig{
		SpreadsheetID:     cfg.Source.SheetsID,
		Range:             cfg.Source.SheetsRange,
		APIKey:            cfg.Source.SheetsAPIKey,
		OAuthClientID:     cfg.Source.OAuthClientID,
		OAuthClientSecret: cfg.Source.OAuthClientSecret,
		OAuthRefreshToken: cfg.Source.OAuthRefreshToken,
	})
	if err != nil {
		logr.Warn("sheets source disabled", zap.Error(err))
	} else {
		sources = append(sources, sheetsSource)
	}
	if snapshotRepo != nil {
		sources = append(sources, repository.NewSnapshotSource(snapshotRepo))
	}
	if cfg.Source.UseBundledSamples {
		sources = append(sources, repository.NewSampleSource())
	}

	normalizer := service.NewSubmissionNormalizer(staff)
	loader := service.NewSubmissionLoader(normalizer, metrics, logr, sources...)

	params := service.SubmissionServiceParams{
		Loader:  loader,
		Staff:   staff,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config: service.SubmissionServiceConfig{
			CacheTTL:  cfg.Dashboard.CacheTTL,
			WriteBack: cfg.Source.WriteBack && appsScript.Configured(),
		},
	}
	if snapshotRepo != nil {
		params.Snapshot = snapshotRepo
	}
	if appsScript.Configured() {
		params.WriteBack = appsScript
	}
	submissionSvc := service.NewSubmissionService(params)

	authSvc, err := service.NewAuthService(staff, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.AppName,
		StaffPassword:     cfg.Auth.StaffPassword,
	})
	if err != nil {
		logr.Fatal("failed to init auth service", zap.Error(err))
	}

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.String("dir", cfg.Exports.StorageDir), zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportStore, signer, staff, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewXLSXExporter("Submissions"), export.NewPDFExporter())

	refresher := service.NewRefreshWorker(submissionSvc, service.RefreshWorkerConfig{Buffer: cfg.Refresh.QueueBuffer}, logr)
	refresher.Start(ctx)
	defer refresher.Stop()

	logr.Info("submission sources configured", zap.Strings("chain", loader.Sources()))
	if cfg.Refresh.OnStartup {
		if _, err := refresher.Trigger("startup"); err != nil {
			logr.Warn("startup load not queued", zap.Error(err))
		}
	}
	jobs.Every(ctx, cfg.Refresh.Interval, func(context.Context) {
		if _, err := refresher.Trigger("interval"); err != nil {
			logr.Debug("interval refresh skipped", zap.Error(err))
		}
	})
	jobs.Every(ctx, cfg.Exports.CleanupInterval, func(context.Context) {
		if _, err := exportSvc.Cleanup(0); err != nil {
			logr.Warn("export cleanup failed", zap.Error(err))
		}
	})

	authHandler := handler.NewAuthHandler(authSvc, staff)
	staffHandler := handler.NewStaffHandler(staff)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc, exportSvc, refresher, validate)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, submissionSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(apiPrefix(cfg.APIPrefix))
	api.POST("/auth/login", authHandler.Login)
	api.GET("/exports/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)
	secured.GET("/staff", staffHandler.List)

	submissions := secured.Group("/submissions")
	submissions.GET("", submissionHandler.List)
	submissions.GET("/stats", submissionHandler.Stats)
	submissions.GET("/source", submissionHandler.Source)
	submissions.GET("/export", submissionHandler.Export)
	submissions.POST("/exports", submissionHandler.StoreExport)
	submissions.GET("/:id", submissionHandler.Get)
	submissions.PATCH("/:id/status", submissionHandler.UpdateStatus)
	submissions.PATCH("/:id/remark", submissionHandler.UpdateRemark)

	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)
	submissions.PATCH("/:id/assignment", adminOnly, submissionHandler.UpdateAssignment)
	submissions.POST("/refresh", adminOnly, submissionHandler.Refresh)
	secured.GET("/metrics/summary", adminOnly, metricsHandler.Summary)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logr.Fatal("server failed", zap.Error(err))
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
}

func apiPrefix(prefix string) string {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return "/api/v1"
	}
	return prefix
}
