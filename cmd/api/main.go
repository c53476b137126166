package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/escolalink/disciplina-api/api/swagger"
	"github.com/escolalink/disciplina-api/internal/handler"
	"github.com/escolalink/disciplina-api/internal/middleware"
	"github.com/escolalink/disciplina-api/internal/models"
	"github.com/escolalink/disciplina-api/internal/repository"
	"github.com/escolalink/disciplina-api/internal/service"
	"github.com/escolalink/disciplina-api/pkg/cache"
	"github.com/escolalink/disciplina-api/pkg/config"
	"github.com/escolalink/disciplina-api/pkg/database"
	"github.com/escolalink/disciplina-api/pkg/jobs"
	"github.com/escolalink/disciplina-api/pkg/logger"
	corsmiddleware "github.com/escolalink/disciplina-api/pkg/middleware/cors"
	reqidmiddleware "github.com/escolalink/disciplina-api/pkg/middleware/requestid"
	"github.com/escolalink/disciplina-api/pkg/storage"
)

// @title Disciplina API
// @version 1.0.0
// @description Disciplinary record and score tracking for schools
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, grade summary cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	commendationRepo := repository.NewCommendationRepository(db)
	sanctionRepo := repository.NewSanctionRepository(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	if redisClient != nil {
		defer cacheRepo.Close()
	}

	// Services.
	metricsService := service.NewMetricsService()
	rules := service.DefaultRules().WithThresholds(cfg.Discipline.MinorThreshold, cfg.Discipline.ModerateThreshold)
	ledger := service.NewScoreLedger(studentRepo, cacheRepo, metricsService, logr)
	disciplineService := service.NewDisciplineService(
		noteRepo, commendationRepo, sanctionRepo, absenceRepo,
		studentRepo, classRepo, ledger, cacheRepo, metricsService,
		rules, cfg.Discipline.SummaryCacheTTL, validate, logr,
	)
	studentService := service.NewStudentService(studentRepo, cfg.Discipline.SeedScore, validate, logr)
	classService := service.NewClassService(classRepo, studentRepo, logr)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	// Asynchronous report exports.
	var reportService *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewExportService(disciplineService, classService, localStorage, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewReportWorker(reportRepo, exporter, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportService = service.NewReportService(reportRepo, reportQueue, exporter, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportService.RecoverPendingJobs(ctx)
		reportService.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	classHandler := handler.NewClassHandler(classService)
	disciplineHandler := handler.NewDisciplineHandler(disciplineService)
	gradeHandler := handler.NewGradeHandler(disciplineService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(middleware.JWT(authService))
		{
			authed.GET("/auth/me", authHandler.Me)
			authed.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

			students := authed.Group("/students")
			{
				students.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleMonitor), studentHandler.List)
				students.GET("/:id", middleware.RequireRolesOrSelf(models.RoleAdmin, models.RoleMonitor), studentHandler.Get)
				students.POST("", middleware.RequireRoles(models.RoleAdmin),
					middleware.Audit(userRepo, models.AuditActionStudentCreate, "students"), studentHandler.Create)
				students.PUT("/:id", middleware.RequireRoles(models.RoleAdmin),
					middleware.Audit(userRepo, models.AuditActionStudentUpdate, "students"), studentHandler.Update)
				students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin),
					middleware.Audit(userRepo, models.AuditActionStudentArchive, "students"), studentHandler.Archive)
				students.GET("/:id/history", middleware.RequireRolesOrSelf(models.RoleAdmin, models.RoleMonitor), disciplineHandler.ListHistory)
				students.GET("/:id/grade", middleware.RequireRolesOrSelf(models.RoleAdmin, models.RoleMonitor), gradeHandler.Summary)
			}

			classes := authed.Group("/classes")
			classes.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleMonitor))
			{
				classes.GET("", classHandler.List)
				classes.GET("/:id", classHandler.Get)
				classes.GET("/:id/students", classHandler.Roster)
				classes.POST("/:id/discipline/bulk",
					middleware.Audit(userRepo, models.AuditActionBulkApply, "discipline"),
					disciplineHandler.BulkApply)
			}

			discipline := authed.Group("/discipline")
			discipline.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleMonitor))
			{
				discipline.POST("/notes",
					middleware.Audit(userRepo, models.AuditActionNoteCreate, "discipline"), disciplineHandler.CreateNote)
				discipline.POST("/commendations",
					middleware.Audit(userRepo, models.AuditActionCommendationCreate, "discipline"), disciplineHandler.CreateCommendation)
				discipline.POST("/absences",
					middleware.Audit(userRepo, models.AuditActionAbsenceCreate, "discipline"), disciplineHandler.CreateAbsence)
				discipline.DELETE("/:category/:id",
					middleware.Audit(userRepo, models.AuditActionHistoryDelete, "discipline"), disciplineHandler.DeleteHistoryItem)
			}

			if reportService != nil {
				reportHandler := handler.NewReportHandler(reportService)
				reports := authed.Group("/reports")
				reports.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleMonitor))
				{
					reports.POST("/generate",
						middleware.Audit(userRepo, models.AuditActionReportCreate, "reports"), reportHandler.GenerateReport)
					reports.GET("/status/:id", reportHandler.ReportStatus)
				}
				api.GET("/export/:token", reportHandler.DownloadReport)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
