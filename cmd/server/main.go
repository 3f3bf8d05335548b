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

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/food-pantry/internal/config"
	"github.com/iliyamo/food-pantry/internal/database"
	"github.com/iliyamo/food-pantry/internal/handler"
	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/memstore"
	"github.com/iliyamo/food-pantry/internal/middleware"
	"github.com/iliyamo/food-pantry/internal/notify"
	"github.com/iliyamo/food-pantry/internal/queue"
	"github.com/iliyamo/food-pantry/internal/repository"
	"github.com/iliyamo/food-pantry/internal/router"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("cannot read .env", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store inventory.Store
		ping  func(context.Context) error
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store = memstore.New()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.Location)
		if err != nil {
			logger.Fatal("cannot connect to db", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("cannot migrate db", zap.Error(err))
		}
		store = repository.NewStore(db)
		ping = db.PingContext
	}

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	notifiers := []inventory.Notifier{}
	if rdb != nil && cacheCfg.Enabled {
		notifiers = append(notifiers, notify.NewCacheInvalidator(rdb, cacheCfg))
	}
	if cfg.AMQPEnabled {
		notifiers = append(notifiers, notify.NewAMQPPublisher(cfg.AMQPURL))
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: cfg.LogDir, Log: logger.Named("activity")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("activity consumer stopped", zap.Error(err))
			}
		}()
	}

	svc := inventory.NewService(store, notify.NewFanout(notifiers...), logger.Named("inventory"), cfg.Location)
	h := handler.NewInventoryHandler(svc, logger.Named("http"), cfg.ImportMax)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger.Named("access")))
	e.Use(echomw.Recover())

	router.RegisterHealth(e, handler.Health(ping))
	router.RegisterInventory(e, h, router.Middlewares{
		Cache: middleware.NewRedisCache(cacheCfg, rdb),
		Limit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Named("ratelimit")),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("storage", cfg.StorageDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
