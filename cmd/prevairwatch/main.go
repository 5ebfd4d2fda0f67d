// Package main provides the entrypoint for the prevairwatch daemon.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/airquality/prevair"
	"github.com/prevairwatch/prevairwatch/internal/api"
	"github.com/prevairwatch/prevairwatch/internal/api/middleware"
	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/auth"
	"github.com/prevairwatch/prevairwatch/internal/config"
	"github.com/prevairwatch/prevairwatch/internal/database"
	"github.com/prevairwatch/prevairwatch/internal/device"
	"github.com/prevairwatch/prevairwatch/internal/monitor"
	"github.com/prevairwatch/prevairwatch/internal/mqtt"
	"github.com/prevairwatch/prevairwatch/internal/provider/resilience"
	"github.com/prevairwatch/prevairwatch/internal/scheduler"
	"github.com/prevairwatch/prevairwatch/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "prevairwatch"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(cfg.LogLevel)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting prevairwatch")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	pollMetrics, err := telemetry.NewPollMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize poll metrics")
	}

	// PREV'AIR client and reading service
	registry := resilience.NewRegistry()
	client := prevair.NewClient(prevair.ClientConfig{
		BaseURL:    cfg.PrevairBaseURL,
		Timeout:    cfg.PrevairTimeout,
		MaxRetries: cfg.PrevairMaxRetries,
		Registry:   registry,
		Metrics:    providerMetrics,
		Logger:     log,
	})
	readings := airquality.NewService(airquality.ServiceConfig{
		Provider: client,
		Logger:   log,
	})

	// Device store
	var repo device.Repository = device.NewInMemoryRepository()
	if cfg.DBEnabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, device.Schema); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		repo = device.NewPostgresRepository(pool)
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	}

	devices := device.NewService(device.ServiceConfig{
		Repository: repo,
		Logger:     log,
	})

	// Home Assistant publishing
	var publisher *mqtt.Publisher
	if cfg.MQTTEnabled() {
		instanceID, err := mqtt.LoadOrCreateInstanceID(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("failed to load mqtt instance id")
		}
		publisher = mqtt.New(cfg.MQTT, instanceID, Version, devices, log)
		if err := publisher.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start mqtt publisher")
		}
		devices.AddPublisher(publisher)
		log.Info().Str("broker", cfg.MQTT.Broker).Str("instance_id", instanceID).Msg("mqtt publisher started")
	}

	// Polling
	mon := monitor.New(monitor.MonitorConfig{
		Config:   cfg.Monitor,
		Readings: readings,
		Devices:  devices,
		Metrics:  pollMetrics,
		Logger:   log,
	})
	if err := mon.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start monitor")
	}

	sched := scheduler.New(scheduler.Config{
		Interval: cfg.HeartbeatInterval,
		Logger:   log,
	}, mon)
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	var pubsubHandler *monitor.PubSubHandler
	if cfg.PubSubEnabled() {
		pubsubHandler, err = monitor.NewPubSubHandler(ctx, monitor.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Jobs:             mon,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	// Status API
	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		RequireTLS:  cfg.Env == "production",
		UpdateHours: cfg.Monitor.UpdateHours,
		Monitor:     mon,
		Stations:    readings,
		Devices:     devices,
		Registry:    registry,
		Subsystems:  subsystems(cfg, publisher, pubsubHandler != nil),
	}
	if cfg.AdminSigningKey != "" {
		routerCfg.TokenValidator = auth.NewJWTService(auth.JWTConfig{SigningKey: cfg.AdminSigningKey})
	} else {
		log.Warn().Msg("ADMIN_JWT_SIGNING_KEY not set - admin endpoints disabled")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if pubsubHandler != nil {
		if err := pubsubHandler.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub client")
		}
	}
	if publisher != nil {
		if err := publisher.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to stop mqtt publisher")
		}
	}

	log.Info().Msg("prevairwatch stopped")
}

// subsystems reports the optional subsystems on /v1/ops/status.
func subsystems(cfg *config.Config, publisher *mqtt.Publisher, pubsubEnabled bool) func() []models.SubsystemStatus {
	return func() []models.SubsystemStatus {
		out := []models.SubsystemStatus{
			{Name: "device_store", Status: models.HealthStatusOK, Detail: storeName(cfg.DBEnabled)},
		}

		if publisher != nil {
			status := models.SubsystemStatus{Name: "mqtt", Status: models.HealthStatusOK, Detail: cfg.MQTT.Broker}
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			if err := publisher.AwaitConnection(ctx); err != nil {
				status.Status = models.HealthStatusDegraded
				status.Detail = "broker unreachable"
			}
			cancel()
			out = append(out, status)
		}

		if pubsubEnabled {
			out = append(out, models.SubsystemStatus{Name: "pubsub", Status: models.HealthStatusOK, Detail: cfg.PubSubSubscription})
		}
		return out
	}
}

func storeName(dbEnabled bool) string {
	if dbEnabled {
		return "postgres"
	}
	return "memory"
}
