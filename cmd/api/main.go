package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadsys/teaching-load-api/api/swagger"
	"github.com/acadsys/teaching-load-api/internal/handler"
	"github.com/acadsys/teaching-load-api/internal/middleware"
	"github.com/acadsys/teaching-load-api/internal/models"
	"github.com/acadsys/teaching-load-api/internal/repository"
	"github.com/acadsys/teaching-load-api/internal/service"
	"github.com/acadsys/teaching-load-api/pkg/cache"
	"github.com/acadsys/teaching-load-api/pkg/config"
	"github.com/acadsys/teaching-load-api/pkg/database"
	"github.com/acadsys/teaching-load-api/pkg/jobs"
	"github.com/acadsys/teaching-load-api/pkg/logger"
	corsmiddleware "github.com/acadsys/teaching-load-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadsys/teaching-load-api/pkg/middleware/requestid"
)

// @title Teaching Load API
// @version 1.0.0
// @description Teaching load assignment, approval workflow and version ledger
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
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	careerRepo := repository.NewCareerRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	authRepo := struct {
		*repository.UserRepository
		*repository.AuditRepository
	}{userRepo, auditRepo}
	authSvc := service.NewAuthService(authRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "teaching-load-api",
	})
	metricsSvc := service.NewMetricsService()
	identitySvc := service.NewIdentityService(userRepo, cfg.Identity.CacheTTL, logr)
	workflowSvc := service.NewWorkflowService(assignmentRepo, versionRepo, auditRepo, identitySvc, groupRepo, courseRepo, teacherRepo, cacheRepo, metricsSvc, validate, logr)
	versionSvc := service.NewVersionService(versionRepo, assignmentRepo, auditRepo, identitySvc, cacheRepo, logr)
	bulkSvc := service.NewBulkService(assignmentRepo, groupRepo, courseRepo, teacherRepo, identitySvc, auditRepo, cacheRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, auditRepo, metricsSvc, logr)
	pool := jobs.NewPool(cfg.Grouping.BackfillWorkers, logr)
	groupingSvc := service.NewGroupingService(assignmentRepo, groupRepo, cacheRepo, pool, cfg.Grouping.CacheTTL, metricsSvc, logr)
	catalogSvc := service.NewCatalogService(departmentRepo, careerRepo, teacherRepo, courseRepo, groupRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, workflowSvc)
	versionHandler := handler.NewVersionHandler(versionSvc)
	bulkHandler := handler.NewBulkHandler(bulkSvc)
	groupHandler := handler.NewGroupHandler(catalogSvc, groupingSvc, bulkSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Config{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
	}))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := v1.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		assignments := protected.Group("/assignments")
		{
			assignments.POST("", assignmentHandler.Create)
			assignments.GET("", assignmentHandler.List)
			assignments.GET("/grouped", groupHandler.Grouped)
			assignments.POST("/bulk",
				middleware.RequireRoles(models.RoleCoordinator),
				middleware.Audit(auditRepo, models.AuditActionBulkCreate, "assignments"),
				bulkHandler.Create)
			assignments.GET("/:id", assignmentHandler.Get)
			assignments.PUT("/:id", assignmentHandler.Update)
			assignments.POST("/:id/submit", assignmentHandler.Submit)
			assignments.POST("/:id/review", assignmentHandler.Review)
			assignments.POST("/:id/approve", assignmentHandler.Approve)
			assignments.POST("/:id/reject", assignmentHandler.Reject)
			assignments.GET("/:id/actions", assignmentHandler.Actions)
			assignments.GET("/:id/audit", assignmentHandler.AuditTrail)
			assignments.GET("/:id/versions", versionHandler.List)
			assignments.GET("/:id/versions/compare", versionHandler.Compare)
			assignments.POST("/:id/versions/:versionId/restore", versionHandler.Restore)
		}

		groups := protected.Group("/groups")
		{
			groups.GET("/:id", groupHandler.Get)
			groups.GET("/:id/courses", groupHandler.Courses)
		}

		protected.GET("/departments", catalogHandler.Departments)
		protected.GET("/careers", catalogHandler.Careers)
		protected.GET("/courses", catalogHandler.Courses)
		protected.GET("/teachers", catalogHandler.Teachers)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
