package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/access"
	"github.com/filedock/filedock/internal/auth"
	"github.com/filedock/filedock/internal/file"
	"github.com/filedock/filedock/internal/folder"
	"github.com/filedock/filedock/internal/httpapi"
	"github.com/filedock/filedock/internal/logging"
	"github.com/filedock/filedock/internal/session"
	"github.com/filedock/filedock/internal/user"
	"github.com/filedock/filedock/pkg/config"
	tableBadger "github.com/filedock/filedock/pkg/table/badger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	initConfig := flag.Bool("init-config", false, "Write a sample config file and exit")
	flag.Parse()

	if *initConfig {
		path := *configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.WriteSampleConfig(path); err != nil {
			log.Fatalf("Failed to write sample config: %v", err)
		}
		fmt.Printf("Sample config written to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tableStore, err := config.CreateTableStore(ctx, &cfg.Table)
	if err != nil {
		return fmt.Errorf("create table store: %w", err)
	}
	defer func() {
		if err := tableStore.Close(); err != nil {
			logger.Warn("failed to close table store", zap.Error(err))
		}
	}()
	logger.Info("table store ready", zap.String("type", cfg.Table.Type))

	// Badger needs periodic value-log GC; the other backends do not.
	if badgerStore, ok := tableStore.(*tableBadger.Store); ok {
		interval, err := config.BadgerGCInterval(&cfg.Table)
		if err != nil {
			return err
		}
		go badgerStore.RunGC(ctx, interval)
	}

	objects, err := config.CreateObjectStore(ctx, &cfg.Objects)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}
	logger.Info("object store ready", zap.String("type", cfg.Objects.Type))

	sessions := session.NewStore(tableStore, logger)
	evaluator := access.NewEvaluator(tableStore, logger)
	folders := folder.NewService(tableStore, objects, logger)
	files := file.NewService(tableStore, evaluator, objects, logger)
	users := user.NewService(tableStore, folders, sessions, logger)
	authService := auth.NewService(tableStore, sessions, logger)

	if cfg.Server.SeedAdmin {
		created, err := authService.SeedAdmin(ctx)
		if err != nil {
			return fmt.Errorf("seed admin account: %w", err)
		}
		if created {
			logger.Warn("default admin account created; change its password immediately")
		}
	}

	handler, err := httpapi.NewHandler(httpapi.Dependencies{
		Sessions: sessions,
		Auth:     authService,
		Users:    users,
		Folders:  folders,
		Files:    files,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build HTTP handler: %w", err)
	}

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: handler,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.ListenAddr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
