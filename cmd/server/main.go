package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/aviationweather/internal/api"
	"github.com/bobby-s-dev/aviationweather/internal/config"
	"github.com/bobby-s-dev/aviationweather/internal/mqtt"
	"github.com/bobby-s-dev/aviationweather/internal/scheduler"
	"github.com/bobby-s-dev/aviationweather/internal/sensor"
	"github.com/bobby-s-dev/aviationweather/internal/services"
	"github.com/bobby-s-dev/aviationweather/pkg/client"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	zap.ReplaceGlobals(logger)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger = newLogger(cfg.Server.LogLevel)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	logger.Info("Starting aviation weather service",
		zap.String("provider", cfg.Metar.Provider),
		zap.Duration("update_interval", cfg.Coordinator.UpdateInterval))

	metarClient := newMetarClient(cfg, logger)

	topics := sensor.Topics{
		DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		StatePrefix:     cfg.MQTT.StatePrefix,
	}

	// The platform publishes through the client, and the client announces the
	// service through the platform on every connect.
	var platform *services.SensorPlatform
	publisher := mqtt.NewClient(mqtt.Config{
		Broker:      cfg.MQTT.Broker,
		Port:        cfg.MQTT.Port,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		WillTopic:   topics.Bridge(),
		WillPayload: sensor.PayloadOffline,
		OnConnect: func() {
			if err := platform.Announce(); err != nil {
				logger.Warn("Failed to publish service availability", zap.Error(err))
			}
		},
	}, logger.Named("mqtt"))
	platform = services.NewSensorPlatform(topics, publisher, logger.Named("sensor"))

	// Connect to the Home Assistant broker
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	if err := publisher.Connect(connectCtx); err != nil {
		cancelConnect()
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	cancelConnect()

	// Initialize scheduler and config entries
	weatherScheduler := scheduler.NewScheduler(cfg.Coordinator.UpdateInterval, logger.Named("scheduler"))
	manager := services.NewEntryManager(
		metarClient,
		cfg.Coordinator.UpdateInterval,
		platform,
		weatherScheduler,
		logger.Named("entries"),
	)

	importCtx, cancelImport := context.WithTimeout(context.Background(), 60*time.Second)
	manager.ImportStations(importCtx, cfg.Stations)
	cancelImport()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		JSONEncoder:  json.Marshal,
		ErrorHandler: api.ErrorHandler,
	})

	// Setup handlers and routes
	handler := api.NewHandler(manager, weatherScheduler, logger.Named("api"))
	api.SetupRoutes(app, handler, logger)

	// Start scheduler
	weatherScheduler.Start()

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	weatherScheduler.Stop()
	manager.Shutdown()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	if err := platform.Withdraw(); err != nil {
		logger.Warn("Failed to publish service availability", zap.Error(err))
	}
	publisher.Disconnect()
	logger.Info("Server stopped")
}

func newMetarClient(cfg *config.Config, logger *zap.Logger) client.MetarClient {
	clientConfig := client.ClientConfig{
		Timeout:        cfg.Metar.HTTPTimeout,
		Threshold:      cfg.CircuitBreaker.Threshold,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
	}

	if cfg.Metar.Provider == config.ProviderAvwx {
		logger.Info("AVWX client initialized")
		return client.NewAvwxClient(cfg.Metar.AvwxAPIToken, cfg.Metar.AvwxURL, clientConfig, logger.Named("avwx"))
	}

	logger.Info("aviationweather.gov client initialized")
	return client.NewAviationWeatherClient(cfg.Metar.AviationWeatherURL, clientConfig, logger.Named("aviationweather"))
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := zcfg.Build()
	if err != nil {
		return zap.L()
	}
	return logger
}
