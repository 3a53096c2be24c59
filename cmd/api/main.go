package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"flipball-backend/internal/config"
	"flipball-backend/internal/handlers"
	"flipball-backend/internal/logging"
	"flipball-backend/internal/monitoring"
	"flipball-backend/internal/services"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config.Load")
	}

	logger := logging.SetupLogging(cfg.LogLevel)
	logger.WithField("store", cfg.StoreDriver).Info("flipball-backend starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to account store")
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	wsHandler := handlers.NewWebSocketHandler(store, logger)
	defer wsHandler.Close()

	svc := services.NewService(store, services.Options{
		Broadcaster: wsHandler,
		Metrics:     metrics,
		Logger:      logger,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Service:   svc,
		WebSocket: wsHandler,
		Logger:    logger,
		Metrics:   metrics,
		Gatherer:  reg,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("HttpServer.Serve.listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HttpServer.Serve.listen error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("HttpServer.Serve.shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HttpServer.Shutdown.Error")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (services.AccountStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if cfg.StoreDriver == config.StoreRedis {
		store, err := services.NewRedisService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := services.NewMongoService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}
