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
	"go.uber.org/zap"

	_ "github.com/bgpnc/members-api/api/swagger"
	"github.com/bgpnc/members-api/internal/handler"
	"github.com/bgpnc/members-api/internal/middleware"
	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/repository"
	"github.com/bgpnc/members-api/internal/service"
	"github.com/bgpnc/members-api/pkg/cache"
	"github.com/bgpnc/members-api/pkg/config"
	"github.com/bgpnc/members-api/pkg/database"
	"github.com/bgpnc/members-api/pkg/jobs"
	"github.com/bgpnc/members-api/pkg/logger"
	"github.com/bgpnc/members-api/pkg/mailer"
	corsmiddleware "github.com/bgpnc/members-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bgpnc/members-api/pkg/middleware/requestid"
)

// @title BGP Members API
// @version 1.0.0
// @description Church membership registration and directory backend
// @BasePath /api/v1
// @schemes http

type welcomePayload struct {
	Email     string
	FirstName string
}

// welcomeDispatcher hands welcome mail to the background queue after the
// registration transaction has committed.
type welcomeDispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

func (d *welcomeDispatcher) SendWelcome(email, firstName string) {
	err := d.queue.Enqueue(jobs.Job{Type: "welcome_email", Payload: welcomePayload{Email: email, FirstName: firstName}})
	if err != nil {
		d.logger.Warn("failed to enqueue welcome email", zap.String("email", email), zap.Error(err))
	}
}

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

	if cfg.Database.MigrationsDir != "" {
		if err := database.Migrate(db, cfg.Database.MigrationsDir); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	mail, err := mailer.New(cfg.SMTP, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init mailer", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	welcomeQueue := jobs.NewQueue("welcome", func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(welcomePayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return mail.SendWelcome(ctx, payload.Email, payload.FirstName)
	}, jobs.QueueConfig{Workers: cfg.SMTP.Workers, Logger: logr})
	welcomeQueue.Start(ctx)
	defer welcomeQueue.Stop()

	validate := validator.New()

	memberRepo := repository.NewMemberRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	notifier := &welcomeDispatcher{queue: welcomeQueue, logger: logr}

	registrationSvc := service.NewRegistrationService(memberRepo, validate, notifier, logr, cfg.Database.QueryTimeout, cfg.Import.MaxRows)
	memberSvc := service.NewMemberService(memberRepo, validate, logr, cfg.Database.QueryTimeout)
	authSvc := service.NewAuthService(userRepo, activityRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, logr, cfg.Dashboard.CacheTTL, cfg.Database.QueryTimeout)
	exportSvc := service.NewExportService(memberRepo, activityRepo, logr, 30*time.Second)
	activitySvc := service.NewActivityService(activityRepo, logr, cfg.Database.QueryTimeout)

	registrationHandler := handler.NewRegistrationHandler(registrationSvc, metricsSvc)
	memberHandler := handler.NewMemberHandler(memberSvc, exportSvc, dashboardSvc)
	importHandler := handler.NewImportHandler(registrationSvc, metricsSvc, cfg.Import.MaxFileSizeBytes)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, activitySvc)
	authHandler := handler.NewAuthHandler(authSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/members/register", registrationHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
	admin.GET("/members", memberHandler.List)
	admin.GET("/members/export", memberHandler.Export)
	admin.POST("/members/bulk-status", memberHandler.BulkUpdateStatus)
	admin.POST("/members/import", importHandler.Import)
	admin.GET("/members/:id", memberHandler.Get)
	admin.PUT("/members/:id", memberHandler.Update)
	admin.DELETE("/members/:id", memberHandler.Delete)
	admin.PATCH("/members/:id/status", memberHandler.UpdateStatus)
	admin.GET("/dashboard", dashboardHandler.Stats)
	admin.GET("/dashboard/analytics", dashboardHandler.Analytics)
	admin.GET("/activity-logs", dashboardHandler.ActivityLogs)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
