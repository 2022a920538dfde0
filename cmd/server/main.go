package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mindcare/backend/internal/auth"
	"mindcare/backend/internal/config"
	"mindcare/backend/internal/db"
	"mindcare/backend/internal/delivery"
	"mindcare/backend/internal/handlers"
	"mindcare/backend/internal/logger"
	"mindcare/backend/internal/middleware"
	"mindcare/backend/internal/realtime"
	"mindcare/backend/internal/resources"
	"mindcare/backend/internal/responder"
	"mindcare/backend/internal/retention"
	"mindcare/backend/internal/router"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Fatal("server_failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config) error {
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := db.Open(openCtx, db.Options{
		Driver:        cfg.StoreDriver,
		DatabaseURL:   cfg.DatabaseURL,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		MasterKey:     cfg.MasterKey,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	}()
	logger.Log.Info("store_opened", zap.String("driver", cfg.StoreDriver), zap.Bool("encrypted", cfg.MasterKey != ""))

	authService, err := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	directory, err := resources.Builtin(cfg.DefaultCountry)
	if err != nil {
		return err
	}

	hub := realtime.NewHub()
	api := handlers.NewAPI(store, authService, hub, responder.New(nil, nil), directory)
	api.Upgrader = realtime.NewUpgrader(cfg.FrontendOrigin)
	api.TypingDelay = cfg.TypingDelay

	sink := delivery.StoreAndBroadcast(store, hub)
	if cfg.RedisURL != "" {
		queue, err := delivery.NewQueue(cfg.RedisURL, sink)
		if err != nil {
			return err
		}
		queue.Start(ctx)
		api.Dispatcher = queue
		logger.Log.Info("reply_queue_started", zap.String("backend", "redis"))
	} else {
		api.Dispatcher = delivery.NewLanes(sink)
	}
	defer api.Dispatcher.Stop()

	if cfg.RetentionDays > 0 {
		job, err := retention.New(store, cfg.RetentionDays, cfg.RetentionCron)
		if err != nil {
			return err
		}
		job.Start()
		defer job.Stop()
		logger.Log.Info("retention_scheduled", zap.Int("days", cfg.RetentionDays), zap.String("schedule", cfg.RetentionCron))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(api, authService, limiter, cfg.FrontendOrigin),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Log.Info("server_listening", zap.String("addr", server.Addr))
	return runServer(ctx, server)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Log.Info("server_stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
