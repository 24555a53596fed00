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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/haksa-io/student-records-api/api/swagger"
	"github.com/haksa-io/student-records-api/internal/handler"
	"github.com/haksa-io/student-records-api/internal/middleware"
	"github.com/haksa-io/student-records-api/internal/models"
	"github.com/haksa-io/student-records-api/internal/repository"
	"github.com/haksa-io/student-records-api/internal/service"
	"github.com/haksa-io/student-records-api/pkg/cache"
	"github.com/haksa-io/student-records-api/pkg/config"
	"github.com/haksa-io/student-records-api/pkg/crypto"
	"github.com/haksa-io/student-records-api/pkg/database"
	"github.com/haksa-io/student-records-api/pkg/jobs"
	"github.com/haksa-io/student-records-api/pkg/logger"
	corsmiddleware "github.com/haksa-io/student-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/haksa-io/student-records-api/pkg/middleware/requestid"
	"github.com/haksa-io/student-records-api/pkg/pdfrender"
	"github.com/haksa-io/student-records-api/pkg/storage"
)

// @title Student Records API
// @version 1.0.0
// @description Dynamic student attributes and template-driven report generation
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, template cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	artifactStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	sealer, err := crypto.NewSealer(cfg.Attributes.EncryptionKey)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attribute sealer", "error", err)
	}

	var renderer pdfrender.Renderer
	if cfg.Renderer.ServiceURL != "" {
		renderer = pdfrender.NewHTTPRenderer(cfg.Renderer.ServiceURL, cfg.Renderer.Timeout)
	} else {
		logr.Sugar().Warnw("no renderer service configured, using local fallback")
		renderer = pdfrender.NewLocalRenderer()
	}
	renderPool := pdfrender.NewPool(renderer, cfg.Renderer.PoolSize)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	definitionRepo := repository.NewAttributeDefinitionRepository(db)
	valueRepo := repository.NewStudentAttributeRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	reportRepo := repository.NewGeneratedReportRepository(db)

	validate := validator.New()
	metrics := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	catalogSvc := service.NewCatalogService(definitionRepo, logr)
	attributeSvc := service.NewAttributeService(valueRepo, catalogSvc, sealer, logr)
	aggregateSvc := service.NewAggregateService(studentRepo, recordRepo, attributeSvc, service.DefaultFieldAliases(), logr)
	binderSvc := service.NewBinderService(aggregateSvc, logr)
	templateSvc := service.NewTemplateService(templateRepo, redisClient, metrics, cfg.Templates.CacheTTL, logr)

	var worker *service.ReportWorker
	queue := jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
		return worker.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})

	reportSvc := service.NewReportService(
		reportRepo,
		templateSvc,
		aggregateSvc,
		binderSvc,
		renderPool,
		artifactStore,
		signer,
		queue,
		metrics,
		logr,
		service.ReportServiceConfig{
			ArtifactTTL:     cfg.Reports.ArtifactTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			PageOptions: pdfrender.PageOptions{
				Format:          cfg.Renderer.PageFormat,
				MarginTop:       cfg.Renderer.MarginTop,
				MarginBottom:    cfg.Renderer.MarginBottom,
				MarginLeft:      cfg.Renderer.MarginLeft,
				MarginRight:     cfg.Renderer.MarginRight,
				PrintBackground: cfg.Renderer.PrintBackground,
			},
		},
	)
	worker = service.NewReportWorker(reportSvc, templateSvc, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(rootCtx)
	defer queue.Stop()
	reportSvc.StartCleanup(rootCtx)

	authHandler := handler.NewAuthHandler(authSvc)
	attributeHandler := handler.NewAttributeHandler(catalogSvc, attributeSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/attributes", attributeHandler.ListAttributes)
		authed.GET("/attributes/export", attributeHandler.ExportCatalog)
		authed.POST("/attributes", middleware.RequireRoles(models.RoleAdmin), attributeHandler.DefineAttribute)
		authed.DELETE("/attributes/:key", middleware.RequireRoles(models.RoleAdmin), attributeHandler.DeactivateAttribute)

		authed.GET("/students/:id/attributes", attributeHandler.ReadStudentAttributes)
		authed.PUT("/students/:id/attributes/:key", attributeHandler.WriteStudentAttribute)

		authed.GET("/templates", templateHandler.ListTemplates)
		authed.GET("/templates/:code", templateHandler.GetTemplate)
		authed.POST("/templates", middleware.RequireRoles(models.RoleAdmin), templateHandler.Publish)

		authed.POST("/reports", reportHandler.Generate)
		authed.GET("/reports/:id", reportHandler.GetReport)
		authed.GET("/downloads/:token", reportHandler.Download)
		authed.POST("/reports/:id/share", reportHandler.Share)
		authed.POST("/reports/:id/archive", middleware.RequireRoles(models.RoleAdmin), reportHandler.Archive)
		authed.GET("/students/:id/reports", reportHandler.ListStudentReports)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
