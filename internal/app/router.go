package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-merit-api/api/swagger"
	"github.com/noah-isme/sma-merit-api/internal/handler"
	"github.com/noah-isme/sma-merit-api/internal/middleware"
	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/internal/repository"
	"github.com/noah-isme/sma-merit-api/pkg/config"
	"github.com/noah-isme/sma-merit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-merit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-merit-api/pkg/middleware/requestid"
)

// NewRouter mounts every HTTP endpoint on a fresh gin engine.
func NewRouter(c *Container) *gin.Engine {
	cfg := c.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(c.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(c.Metrics))

	health := handler.NewHealthHandler(c.Metrics, c.readinessChecks(), 2*time.Second, c.Logger)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(c.Auth)
	catalogHandler := handler.NewCatalogHandler(c.Catalog)
	eventHandler := handler.NewEventHandler(c.Ledger)
	planHandler := handler.NewPlanHandler(c.Plans)
	reportHandler := handler.NewReportHandler(c.Aggregation)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.POST("/auth/login", authHandler.Login)
	api.GET("/artifacts/:token", planHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(c.Auth))
	secured.GET("/auth/me", authHandler.Me)

	catalog := secured.Group("/catalog")
	catalog.GET("/students", catalogHandler.Students)
	catalog.GET("/classes", catalogHandler.Classes)
	catalog.GET("/criteria/:catalog", catalogHandler.Criteria)
	catalog.GET("/staff", middleware.RequireRoles(models.RoleAdmin), catalogHandler.Staff)

	events := secured.Group("/events")
	events.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleHomeroom, models.RoleProctor))
	events.POST("/students", eventHandler.RecordStudent)
	events.POST("/staff", middleware.RequireRoles(models.RoleAdmin), eventHandler.RecordStaff)
	events.GET("", eventHandler.List)
	events.GET("/net-score", eventHandler.NetScore)
	events.GET("/export", eventHandler.Export)

	plans := secured.Group("/plans")
	plans.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleHomeroom))
	plans.POST("", middleware.RequireRoles(models.RoleHomeroom), planHandler.Submit)
	plans.POST("/upload", middleware.RequireRoles(models.RoleHomeroom), planHandler.Upload)
	plans.GET("", planHandler.List)
	plans.GET("/:id/link", planHandler.Link)

	reports := secured.Group("/reports")
	reports.GET("/class-ranking", middleware.RequireRoles(models.RoleAdmin, models.RoleHomeroom, models.RoleProctor), reportHandler.ClassRanking)
	reports.GET("/teacher-stats", middleware.RequireRoles(models.RoleAdmin), reportHandler.TeacherStats)
	reports.GET("/meal-count", middleware.RequireRoles(models.RoleAdmin, models.RoleKitchen), reportHandler.MealCount)

	return r
}

func (c *Container) readinessChecks() map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"storage": func(ctx context.Context) error {
			_, err := c.Store.ReadAll(ctx, repository.TableStaff)
			return err
		},
	}
	if c.CacheRepo != nil {
		checks["cache"] = c.CacheRepo.Ping
	}
	return checks
}
