package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameplan-api/core/cache"
	"gameplan-api/core/config"
	"gameplan-api/core/constants"
	"gameplan-api/core/database"
	"gameplan-api/core/logger"
	"gameplan-api/core/middleware"
	"gameplan-api/core/tasks"
	"gameplan-api/modules/availability"
	"gameplan-api/modules/calendar"
	"gameplan-api/modules/notification"
	"gameplan-api/modules/prompt"
	"gameplan-api/modules/suggestion"
	"gameplan-api/modules/token"
	tokenservice "gameplan-api/modules/token/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Run boots the API server and the background worker and blocks until a
// shutdown signal arrives.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Server.LogLevel, cfg.Server.LogJSON)

	db, err := database.InitDB(database.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	cacheClient := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		cancelPing()
		return fmt.Errorf("ping redis: %w", err)
	}
	cancelPing()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	taskClient := tasks.NewClient(redisOpt)
	worker := tasks.NewServer(redisOpt, map[string]int{
		constants.SchedulerQueue: 6,
		constants.AnalyticsQueue: 2,
	})
	mux := asynq.NewServeMux()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		if err := cacheClient.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	mw := middleware.NewMiddleware()

	notifications := notification.Init(api, db, mw)
	calendarSvc := calendar.Init(db)
	tokenServices := token.Init(db, cacheClient, taskClient)
	suggestions := suggestion.Init(api, db, mw, calendarSvc, notifications)
	availability.Init(api, db, tokenServices.Tokens, suggestions.Aggregation, suggestions.Holds)
	prompt.Init(api, db, mw, taskClient, mux, tokenServices.Tokens, notifications, suggestions)

	mux.HandleFunc(tokenservice.TypeArchiveValidationAttempts, tokenServices.Archive.HandleArchiveTask)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	if err := tokenServices.Archive.ScheduleNext(bootCtx, time.Hour); err != nil {
		logger.Error("schedule archive job", err)
	}
	cancelBoot()

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run(mux)
	}()

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("starting server", "addr", addr)
		serverErr <- e.Start(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server stopped", err)
	case err := <-workerErr:
		logger.Error("worker stopped", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", err)
	}
	worker.Shutdown()
	if err := taskClient.Close(); err != nil {
		logger.Error("task client close", err)
	}
	tokenServices.Recorder.Flush()

	logger.Info("shutdown complete")
	return nil
}
