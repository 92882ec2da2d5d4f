package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/commission-scheduler/internal/config"
	"github.com/Dan9191/commission-scheduler/internal/handler"
	"github.com/Dan9191/commission-scheduler/internal/integrations/directory"
	"github.com/Dan9191/commission-scheduler/internal/jobs"
	"github.com/Dan9191/commission-scheduler/internal/lock"
	"github.com/Dan9191/commission-scheduler/internal/repository"
	"github.com/Dan9191/commission-scheduler/internal/service"
)

const lockWait = 2 * time.Second

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize schedule store
	var store repository.ScheduleStore
	switch cfg.StoreDriver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		pg := repository.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		store = pg
	default:
		logger.Warn("Using in-memory schedule store; data is lost on restart")
		store = repository.NewMemoryStore()
	}

	// Per-schedule lock across replicas
	var opts []service.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("Failed to ping redis: %v", err)
		}
		opts = append(opts, service.WithLocker(lock.NewRedisLocker(rdb, cfg.LockTTL, lockWait)))
	}

	// Initialize layers
	dir := directory.NewClient(cfg, logger)
	svc := service.NewService(store, dir, logger, cfg, opts...)
	h := handler.NewHandler(svc, service.NewAuthenticator(cfg, logger), logger)

	audit := jobs.NewReminderAudit(svc, logger)
	if err := audit.Start(cfg.ReminderAuditCron); err != nil {
		logger.Fatalf("Failed to start reminder audit: %v", err)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	<-audit.Stop().Done()
}
