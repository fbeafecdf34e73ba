package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/logging"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
)

func main() {
	cfg := config.Load()

	logger, logFile, err := logging.New(cfg.Env, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		slog.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			slog.Error("migrate schema", "error", err)
			os.Exit(1)
		}
	}

	auth := service.NewAuthService(repository.NewUserRepo(db), repository.NewTokenRepo(db), service.AuthSettings{
		Secret:         cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	})
	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		slog.Error("bootstrap admin", "error", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		slog.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	publisher := queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Queue)
	defer publisher.Close()
	dispatcher := service.NewDispatcher(publisher)

	store := service.NewSQLStore(db)
	events := service.NewEventService(store, cfg.Pagination)
	reservations := service.NewReservationService(store, dispatcher, cfg.Pagination)

	opt := router.Options{
		Prefix:      cfg.APIPrefix,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		Redis:       rdb,
	}
	e := echo.New()
	router.Use(e, opt)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), opt)
	router.RegisterEvents(e, handler.NewEventHandler(events, reservations), opt)
	router.RegisterReservations(e, handler.NewReservationHandler(reservations), opt)

	addr := ":" + cfg.Port
	go func() {
		slog.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	// Notifications queued by the last requests still go out.
	dispatcher.Wait()
}
