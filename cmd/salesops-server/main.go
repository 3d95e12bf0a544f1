package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/salesops-pie/internal/config"
	"github.com/joelkehle/salesops-pie/internal/httpapi"
	"github.com/joelkehle/salesops-pie/internal/obs"
	"github.com/joelkehle/salesops-pie/internal/pie"
	"github.com/joelkehle/salesops-pie/internal/report"
	"github.com/joelkehle/salesops-pie/internal/scope"
)

func main() {
	configFlag := flag.String("config", "", "path to config file (optional, env vars override)")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := obs.SetupTracing(ctx, "salesops-pie", cfg.Tracing.OTLPEndpoint)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	store, err := pie.NewSQLiteStore(cfg.Store.SQLitePath)
	if err != nil {
		logger.Fatal("open store", zap.String("path", cfg.Store.SQLitePath), zap.Error(err))
	}
	defer store.Close()

	caller, err := report.NewAnthropicCallerFromEnv(cfg.Reasoning.Model)
	if err != nil {
		logger.Fatal("init reasoning client", zap.Error(err))
	}

	orchestrator := report.NewOrchestrator(store, caller, cfg.Pricing, cfg.Reasoning.Timeout, logger)
	scopeMgr := scope.NewManager(store, cfg.Pricing, logger)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpapi.NewServer(store, orchestrator, scopeMgr, logger),
	}

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("db", cfg.Store.SQLitePath),
			zap.String("model", cfg.Reasoning.Model))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
