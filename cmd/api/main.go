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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/psico-pay/internal/app"
	"github.com/BruksfildServices01/psico-pay/internal/config"
	dbpkg "github.com/BruksfildServices01/psico-pay/internal/db"
	"github.com/BruksfildServices01/psico-pay/internal/logger"
	"github.com/BruksfildServices01/psico-pay/internal/routes"
)

func main() {

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not read .env: %v", err)
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		zlog.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := dbpkg.NewDB(cfg)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, db, zlog, prometheus.DefaultRegisterer, app.Gateways{})
	if err != nil {
		zlog.Fatal("failed to wire application", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	webhooks := routes.RegisterRoutes(r, db, cfg, a, zlog)

	if err := a.Scheduler.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server running", zap.String("addr", cfg.Addr()), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Scheduler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http shutdown", zap.Error(err))
	}
	if err := webhooks.Wait(shutdownCtx); err != nil {
		zlog.Warn("webhook notifications still processing at shutdown", zap.Error(err))
	}
	if err := a.Scheduler.Wait(shutdownCtx); err != nil {
		zlog.Warn("reconciliation still running at shutdown", zap.Error(err))
	}
	if err := a.Close(); err != nil {
		zlog.Error("close app", zap.Error(err))
	}
}
