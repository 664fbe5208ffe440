package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/assetbuyer/params"
	"github.com/uhyunpark/assetbuyer/pkg/api"
	"github.com/uhyunpark/assetbuyer/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Log.File != "" {
		var closeLog func()
		logger, closeLog, err = util.NewLoggerWithFile(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
		defer closeLog()
	} else {
		logger, err = util.NewLogger(cfg.Log.Level)
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
		defer logger.Sync()
	}
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "level", cfg.Log.Level, "log_file", cfg.Log.File)

	p, err := buildProvider(cfg, logger)
	if err != nil {
		sugar.Fatalw("provider_init_failed", "err", err)
	}

	srv := api.NewServer(p, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger.Named("api"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()
	sugar.Infow("node_starting", "api_addr", cfg.Server.Addr, "cors_origins", cfg.Server.CORSOrigins)

	select {
	case <-ctx.Done():
		sugar.Infow("shutdown_requested")
	case err := <-errCh:
		if err != nil {
			sugar.Errorw("api_server_failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_incomplete", "err", err)
	}
	sugar.Infow("node_stopped")
}
