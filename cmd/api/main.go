package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/webgis-caps/rocksample-api/api/swagger"
	"github.com/webgis-caps/rocksample-api/internal/handler"
	"github.com/webgis-caps/rocksample-api/internal/repository"
	"github.com/webgis-caps/rocksample-api/internal/service"
	"github.com/webgis-caps/rocksample-api/pkg/cache"
	"github.com/webgis-caps/rocksample-api/pkg/config"
	"github.com/webgis-caps/rocksample-api/pkg/database"
	"github.com/webgis-caps/rocksample-api/pkg/logger"
	"github.com/webgis-caps/rocksample-api/pkg/storage"
)

// @title Rock Sample API
// @version 1.0.0
// @description Role-based geological specimen record management
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, derived views will not be cached", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	imageRepo := repository.NewImageRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	uploadPolicy := service.UploadPolicy{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	}

	authSvc := service.NewAuthService(userRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "rocksample-api",
		Audience:           []string{"rocksample-clients"},
	})
	sampleSvc := service.NewSampleService(sampleRepo, imageRepo, approvalRepo, archiveRepo, metricsSvc, validate, logr, uploadPolicy)
	verificationSvc := service.NewVerificationService(sampleRepo, metricsSvc, cacheRepo, validate, logr)
	archiveSvc := service.NewArchiveService(archiveRepo, sampleRepo, metricsSvc, cacheRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(statsRepo, activityRepo, cacheRepo, cfg.Cache.DashboardTTL, logr)
	mapSvc := service.NewMapService(statsRepo, cacheRepo, cfg.Cache.MapTTL, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	imageSvc := service.NewImageService(imageRepo, sampleRepo, logr, uploadPolicy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Samples:      handler.NewSampleHandler(sampleSvc),
		Verification: handler.NewVerificationHandler(verificationSvc),
		Archives:     handler.NewArchiveHandler(archiveSvc),
		Map:          handler.NewMapHandler(mapSvc),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc),
		Users:        handler.NewUserHandler(userSvc),
		Images:       handler.NewImageHandler(imageSvc),
	}

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(sampleRepo, store, signer, metricsSvc, logr,
			cfg.Exports.WorkerConcurrency, cfg.Exports.WorkerRetries)
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
		go exportSvc.CleanupLoop(ctx, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL)

		handlers.Exports = handler.NewExportHandler(exportSvc)
	}

	r := handler.NewRouter(cfg, logr, authSvc, metricsSvc, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
