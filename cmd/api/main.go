package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/coursetrack-api/api/swagger"
	"github.com/noah-isme/coursetrack-api/internal/handler"
	"github.com/noah-isme/coursetrack-api/internal/repository"
	"github.com/noah-isme/coursetrack-api/internal/service"
	"github.com/noah-isme/coursetrack-api/pkg/cache"
	"github.com/noah-isme/coursetrack-api/pkg/config"
	"github.com/noah-isme/coursetrack-api/pkg/database"
	"github.com/noah-isme/coursetrack-api/pkg/logger"
)

// @title Course Tracking API
// @version 1.0.0
// @description Admin bulk import of students, faculty and courses.
// @BasePath /api
// @schemes http https
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

	isolation, err := database.ParseIsolationLevel(cfg.Import.IsolationLevel)
	if err != nil {
		logr.Fatal("invalid import isolation level", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, import reports disabled", zap.Error(err))
		redisClient = nil
	}
	reportRepo := repository.NewImportReportRepository(redisClient)
	defer reportRepo.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	stores := service.ImportStores{
		Users:      userRepo,
		Students:   repository.NewStudentRepository(db),
		Faculty:    repository.NewFacultyRepository(db),
		Courses:    repository.NewCourseRepository(db),
		Savepoints: repository.NewSavepoints(),
		Audit:      userRepo,
	}
	if cfg.Import.ReportsEnabled && redisClient != nil {
		stores.Reports = reportRepo
	}

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	importSvc := service.NewImportService(db, stores, service.NewBcryptHasher(cfg.Import.BcryptCost), metricsSvc, nil, logr, service.ImportConfig{
		IsolationLevel: isolation,
		ReportTTL:      cfg.Import.ReportTTL,
	})

	deps := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := newRouter(cfg, logr, routerDeps{
		auth:      authSvc,
		metrics:   metricsSvc,
		audit:     userRepo,
		imports:   handler.NewImportHandler(importSvc, cfg.Import.MaxUploadBytes, logr),
		reports:   handler.NewImportReportHandler(service.NewImportReportService(reportRepo, metricsSvc, logr), service.NewImportTemplateService()),
		readiness: handler.NewMetricsHandler(metricsSvc, deps),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
