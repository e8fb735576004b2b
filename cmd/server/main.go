// Package main runs the analytics API server with the live feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumen-analytics/backend/config"
	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/activeworkspace"
	"github.com/lumen-analytics/backend/internal/analytics"
	"github.com/lumen-analytics/backend/internal/auth"
	"github.com/lumen-analytics/backend/internal/exports"
	"github.com/lumen-analytics/backend/internal/geo"
	"github.com/lumen-analytics/backend/internal/invites"
	"github.com/lumen-analytics/backend/internal/memberships"
	"github.com/lumen-analytics/backend/internal/metrics"
	"github.com/lumen-analytics/backend/internal/middleware"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/internal/ratelimit"
	"github.com/lumen-analytics/backend/internal/realtime"
	"github.com/lumen-analytics/backend/internal/sites"
	"github.com/lumen-analytics/backend/internal/tracking"
	"github.com/lumen-analytics/backend/internal/worker"
	"github.com/lumen-analytics/backend/internal/workspaces"
	"github.com/lumen-analytics/backend/pkg/database"
	"github.com/lumen-analytics/backend/pkg/queue"
	"github.com/lumen-analytics/backend/pkg/redis"
	"github.com/lumen-analytics/backend/pkg/response"
	"github.com/lumen-analytics/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ExportsBucket:        cfg.AWS.ExportsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	locator, closeGeo, err := geo.New(cfg.Geo, logger)
	if err != nil {
		logger.Fatal("geo", zap.Error(err))
	}
	defer closeGeo()
	countries := geo.NewResolver(locator, logger)

	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.Invites.RateLimit, cfg.Invites.RateWindow)
	if cfg.Invites.RateLimitBackend == "redis" {
		limiter = ratelimit.NewRedis(rdb.Client, "lumen:ratelimit:invites:", cfg.Invites.RateLimit, cfg.Invites.RateWindow)
	}

	tx := database.NewTxManager(pool)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	cookies := activeworkspace.Cookies{Secure: cfg.Server.CookieSecure}
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, cfg.Worker.MaxRetries, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, tx, jwtService, cfg.PasswordReset.TTL, logger)
	authHandler := auth.NewHandler(authSvc, cfg.Server.AppBaseURL, cfg.PasswordReset.ExposeLinks, logger)

	// Memberships and the guard every workspace-scoped operation goes through
	memberRepo := memberships.NewRepository(pool)
	guard := access.NewGuard(memberRepo, logger)
	memberHandler := memberships.NewHandler(memberships.NewService(memberRepo, guard, logger))

	// Workspaces and the active-workspace cookie
	workspaceRepo := workspaces.NewRepository(pool)
	workspaceHandler := workspaces.NewHandler(workspaces.NewService(workspaceRepo, memberRepo, tx, logger), cookies)
	activeHandler := activeworkspace.NewHandler(activeworkspace.NewResolver(memberRepo, guard), cookies)

	// Invites
	inviteRepo := invites.NewRepository(pool)
	inviteSvc := invites.NewService(inviteRepo, memberRepo, guard, tx, limiter, cfg.Invites.TTL, logger)
	inviteHandler := invites.NewHandler(inviteSvc, cookies, cfg.Server.AppBaseURL)

	// Sites
	siteRepo := sites.NewRepository(pool)
	siteHandler := sites.NewHandler(sites.NewService(siteRepo, guard, logger))

	// Tracking beacons (public)
	trackingRepo := tracking.NewRepository(pool)
	trackingHandler := tracking.NewHandler(tracking.NewService(siteRepo, trackingRepo, tx, countries, hub, logger))

	// Dashboard summary
	analyticsHandler := analytics.NewHandler(analytics.NewService(analytics.NewRepository(pool)))

	// Exports
	exportRepo := exports.NewRepository(pool)
	exportHandler := exports.NewHandler(exports.NewService(exportRepo, siteRepo, guard, jobQueue, s3Client, logger))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", metrics.Handler())

	// Tracking beacon (public; site domain is checked by the service)
	router.POST("/track", trackingHandler.Track)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
		authGroup.GET("/me", middleware.JWT(jwtService), authHandler.Me)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Workspaces
		api.GET("/workspaces", workspaceHandler.List)
		api.POST("/workspaces", workspaceHandler.Create)
		api.GET("/workspaces/active", activeHandler.Current)
		api.PATCH("/workspaces/:id", middleware.RequireWorkspaceRole(guard, permissions.RoleOwner), workspaceHandler.Update)
		api.DELETE("/workspaces/:id", middleware.RequireWorkspaceRole(guard, permissions.RoleOwner), workspaceHandler.Delete)
		api.POST("/workspaces/:id/switch", activeHandler.Switch)
		api.GET("/workspaces/:id/summary", middleware.RequireWorkspacePermission(guard, permissions.StatsView), analyticsHandler.Summary)

		// Team
		api.GET("/workspaces/:id/members", memberHandler.ListMembers)
		api.PATCH("/members/:memberId", memberHandler.UpdateRole)
		api.DELETE("/members/:memberId", memberHandler.Remove)

		// Invites
		api.POST("/workspaces/:id/invites", inviteHandler.Create)
		api.GET("/workspaces/:id/invites", inviteHandler.List)
		api.POST("/invites/accept", inviteHandler.Accept)
		api.DELETE("/invites/:inviteId", inviteHandler.Revoke)

		// Sites
		api.GET("/sites", siteHandler.List)
		api.POST("/sites", siteHandler.Create)
		api.GET("/sites/:id", siteHandler.Get)
		api.PATCH("/sites/:id", siteHandler.Update)
		api.DELETE("/sites/:id", siteHandler.Delete)

		// Exports
		api.POST("/sites/:id/exports", exportHandler.Create)
		api.GET("/exports/:id", exportHandler.Get)
	}

	// Live feed (token in query; no Authorization header required)
	upgrader := realtime.NewUpgrader(middleware.ParseOrigins(cfg.Server.CORSAllowedOrigins))
	router.GET("/ws/live", middleware.JWTQuery(jwtService), realtime.ServeWs(hub, guard, upgrader, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background export worker, when not run as its own process
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.Embedded {
		processor := worker.NewExportProcessor(exportRepo, s3Client, jobQueue, cfg.Worker.PollTimeout, logger)
		go processor.Run(workerCtx)
		logger.Info("export worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
