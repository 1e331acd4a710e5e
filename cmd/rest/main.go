package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ai-docguard-be/internal/bootstrap"
	"ai-docguard-be/internal/config"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/internal/server"
	"ai-docguard-be/internal/tracer"
	"ai-docguard-be/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(cfg.Infra, sysLogger)

	// 3. Optional event store
	var gormDB *gorm.DB
	if cfg.Infra.DatabaseDSN != "" {
		db, err := database.NewGormDBFromDSN(cfg.Infra.DatabaseDSN, sysLogger)
		if err != nil {
			sysLogger.Warn("Main", "Database unavailable, lifecycle events will not be persisted", map[string]interface{}{"error": err.Error()})
		} else {
			gormDB = db
		}
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	defer container.Close()

	srv := server.New(cfg, container)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(func() error {
		return container.WebSocketHub.Run(gctx)
	})
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		sysLogger.Info("Main", "Shutting down", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if tErr := shutdownTracer(shutdownCtx); tErr != nil {
			sysLogger.Warn("Main", "Tracer shutdown failed", map[string]interface{}{"error": tErr.Error()})
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server stopped: %v", err)
	}
}
