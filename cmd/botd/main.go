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

	"github.com/tradegate-bot/tradegate/internal/handler"
	internalmiddleware "github.com/tradegate-bot/tradegate/internal/middleware"
	"github.com/tradegate-bot/tradegate/internal/platform"
	"github.com/tradegate-bot/tradegate/internal/repository"
	"github.com/tradegate-bot/tradegate/internal/service"
	"github.com/tradegate-bot/tradegate/pkg/cache"
	"github.com/tradegate-bot/tradegate/pkg/config"
	"github.com/tradegate-bot/tradegate/pkg/database"
	"github.com/tradegate-bot/tradegate/pkg/logger"
	corsmiddleware "github.com/tradegate-bot/tradegate/pkg/middleware/cors"
	reqidmiddleware "github.com/tradegate-bot/tradegate/pkg/middleware/requestid"
)

func main() {
	cfg, src, err := config.Load()
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database open failed", "error", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		logr.Sugar().Fatalw("database migration failed", "error", err)
	}

	// Redis is optional: without it the dashboard just serves uncached.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	threadRepo := repository.NewThreadRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	tosRepo := repository.NewTosRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()
	messenger := platform.NewLogMessenger(logr)

	notifier := service.NewNotifier(messenger, src, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	tones := service.LoadTonePools(cfg.Bot.TonePoolDir, logr)

	closePolicy := service.NewClosePolicyService(src, threadRepo, reviewRepo, auditRepo, messenger, notifier, metrics, logr)
	reviewSvc := service.NewReviewService(src, reviewRepo, threadRepo, auditRepo, messenger, notifier, cacheRepo, validator.New(), tones, metrics, logr)
	gate := service.NewTosGateService(src, threadRepo, tosRepo, auditRepo, messenger, reviewSvc, metrics, logr)

	// Prompts that were pending when the previous process died resolve now:
	// expired ones time out, live ones are re-armed for the remainder.
	if err := gate.ResolveExpired(ctx); err != nil {
		logr.Sugar().Errorw("resolving stale prompts failed", "error", err)
	}

	sweeper := service.NewSweeper(src, threadRepo, closePolicy, metrics, logr)
	go sweeper.Run(ctx)

	dispatcher := platform.NewDispatcher(logr)
	dispatcher.OnThreadCreate(gate.HandleThreadCreate)
	dispatcher.OnMessage(gate.HandleMessage)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.RegisterHealthRoutes(r, db.Ping)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Dashboard.Enabled {
		dashboardSvc := service.NewDashboardService(reviewRepo, threadRepo, auditRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)
		handler.RegisterDashboardRoutes(r, cfg.APIPrefix, handler.NewDashboardHandler(dashboardSvc))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
