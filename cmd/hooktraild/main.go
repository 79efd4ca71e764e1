package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hooktrail/hooktrail/internal/config"
	"github.com/hooktrail/hooktrail/internal/engine"
	"github.com/hooktrail/hooktrail/internal/ingest"
	"github.com/hooktrail/hooktrail/internal/journal"
	"github.com/hooktrail/hooktrail/internal/shared"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "./hooktrail.config.json", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := shared.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", *configPath),
		zap.String("mode", cfg.Storage.Mode),
		zap.String("base_dir", cfg.Storage.BaseDir),
	)

	var index *journal.Index
	if cfg.Storage.IndexPath != "" {
		index, err = journal.OpenIndex(cfg.Storage.IndexPath, logger)
		if err != nil {
			logger.Error("failed to open index database", zap.Error(err))
			os.Exit(1)
		}
		defer index.Close()
		logger.Info("index database ready", zap.String("path", cfg.Storage.IndexPath))
	}

	eng, err := engine.New(engine.Options{
		BaseDir:      cfg.Storage.BaseDir,
		Mode:         engine.Mode(cfg.Storage.Mode),
		RoundFiles:   cfg.Storage.RoundFiles,
		FlushSignals: cfg.Storage.FlushSignals,
		Index:        index,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to create engine", zap.Error(err))
		os.Exit(1)
	}

	intake, err := ingest.NewServer(eng, ingest.Options{
		AuthToken:      cfg.Server.AuthToken,
		MinHostVersion: cfg.Server.MinHostVersion,
		DedupCacheSize: cfg.Server.DedupCacheSize,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to create intake server", zap.Error(err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/hooks", intake.ServeWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("intake listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
