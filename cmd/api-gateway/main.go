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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-records-api/api/swagger"
	"github.com/noah-isme/sma-records-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-records-api/internal/middleware"
	"github.com/noah-isme/sma-records-api/internal/repository"
	"github.com/noah-isme/sma-records-api/internal/service"
	"github.com/noah-isme/sma-records-api/pkg/cache"
	"github.com/noah-isme/sma-records-api/pkg/config"
	"github.com/noah-isme/sma-records-api/pkg/database"
	"github.com/noah-isme/sma-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-records-api/pkg/textdiff"
)

const shutdownTimeout = 10 * time.Second

// @title SMA Records API
// @version 1.0.0
// @description Shared student records with revision history and per-viewer unseen tracking
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, collection cache disabled", zap.Error(err))
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()

	collectionRepo := repository.NewCollectionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	seenRepo := repository.NewRecordSeenRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	collectionSvc := service.NewCollectionService(service.CollectionServiceParams{
		Repo:              collectionRepo,
		Students:          studentRepo,
		Teachers:          teacherRepo,
		Cache:             cacheSvc,
		CacheTTL:          cfg.Cache.TTL,
		DefaultSubjects:   cfg.Records.DefaultSubjects,
		BcryptCost:        cfg.Records.BcryptCost,
		StrictTeacherJoin: cfg.Records.StrictTeacherJoin,
		Validator:         validate,
		Logger:            logr,
	})
	studentSvc := service.NewStudentService(studentRepo, recordRepo, metricsSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	visibilitySvc := service.NewVisibilityService(seenRepo, metricsSvc, logr, nil)
	recordSvc := service.NewRecordService(service.RecordServiceParams{
		Records:     recordRepo,
		Students:    studentRepo,
		Collections: collectionSvc,
		Visibility:  visibilitySvc,
		Differ:      textdiff.New(cfg.Records.DiffContext),
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})
	exportSvc := service.NewExportService(recordSvc, studentSvc, cfg.Exports.Enabled, logr, nil, nil)
	adminSvc := service.NewAdminService(collectionSvc, studentSvc, teacherSvc, exportSvc, logr)

	collectionHandler := handler.NewCollectionHandler(collectionSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	adminHandler := handler.NewAdminHandler(adminSvc, cfg.Records.MaxRosterBytes)
	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	collections := api.Group("/collections")
	collections.POST("", collectionHandler.Create)
	collections.GET("/:code", collectionHandler.Get)
	collections.POST("/:code/join/student", collectionHandler.JoinStudent)
	collections.POST("/:code/join/teacher", collectionHandler.JoinTeacher)
	collections.GET("/:code/records", recordHandler.List)
	collections.POST("/:code/records", recordHandler.Create)

	records := api.Group("/records")
	records.GET("/:id", recordHandler.Get)
	records.PUT("/:id", recordHandler.Update)
	records.GET("/:id/revisions", recordHandler.History)

	admin := api.Group("/admin/collections/:code")
	admin.GET("/students", internalmiddleware.AdminAudit(logr, "students.list"), adminHandler.ListStudents)
	admin.POST("/students", internalmiddleware.AdminAudit(logr, "students.add"), adminHandler.AddStudent)
	admin.POST("/students/upload", internalmiddleware.AdminAudit(logr, "students.import"), adminHandler.UploadRoster)
	admin.DELETE("/students/:id", internalmiddleware.AdminAudit(logr, "students.delete"), adminHandler.DeleteStudent)
	admin.GET("/teachers", internalmiddleware.AdminAudit(logr, "teachers.list"), adminHandler.ListTeachers)
	admin.POST("/teachers", internalmiddleware.AdminAudit(logr, "teachers.add"), adminHandler.AddTeacher)
	admin.DELETE("/teachers/:id", internalmiddleware.AdminAudit(logr, "teachers.delete"), adminHandler.DeleteTeacher)
	admin.POST("/subjects", internalmiddleware.AdminAudit(logr, "subjects.add"), adminHandler.AddSubject)
	admin.DELETE("/subjects", internalmiddleware.AdminAudit(logr, "subjects.remove"), adminHandler.RemoveSubject)
	admin.GET("/export/records.csv", internalmiddleware.AdminAudit(logr, "export.records_csv"), adminHandler.ExportRecordsCSV)
	admin.GET("/records/:id/export.pdf", internalmiddleware.AdminAudit(logr, "export.record_pdf"), adminHandler.ExportRecordPDF)

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
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
