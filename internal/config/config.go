// Package config loads the daemon configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/airquality/prevair"
	"github.com/prevairwatch/prevairwatch/internal/database"
	"github.com/prevairwatch/prevairwatch/internal/monitor"
	"github.com/prevairwatch/prevairwatch/internal/mqtt"
)

// ErrMissingLocation is returned when neither a station code nor a home
// location is configured.
var ErrMissingLocation = errors.New("PREVAIR_LOCATION is required unless PREVAIR_STATION_CODE is set")

// Config is the daemon configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel zerolog.Level

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64

	Monitor           monitor.Config
	HeartbeatInterval time.Duration

	PrevairBaseURL    string
	PrevairTimeout    time.Duration
	PrevairMaxRetries uint64

	DBEnabled bool
	Database  database.Config

	MQTT    mqtt.Config
	DataDir string

	PubSubProjectID    string
	PubSubSubscription string

	// AdminSigningKey enables the admin endpoints when set.
	AdminSigningKey string
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

// PubSubEnabled reports whether a trigger subscription is configured.
func (c *Config) PubSubEnabled() bool {
	return c.PubSubProjectID != "" && c.PubSubSubscription != ""
}

// Load reads the configuration. Values from envFiles (default ".env") never
// override variables already set in the environment; a missing file is not
// an error.
func Load(logger zerolog.Logger, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := &Config{
		Port:               getEnvOrDefault("APP_PORT", "8080"),
		Env:                getEnvOrDefault("APP_ENV", "development"),
		OTelEnabled:        os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PrevairBaseURL:     getEnvOrDefault("PREVAIR_BASE_URL", prevair.DefaultBaseURL),
		DBEnabled:          os.Getenv("DB_ENABLED") == "true",
		DataDir:            getEnvOrDefault("DATA_DIR", "./data"),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
		AdminSigningKey:    os.Getenv("ADMIN_JWT_SIGNING_KEY"),
		MQTT: mqtt.Config{
			Broker:          os.Getenv("MQTT_BROKER"),
			Username:        os.Getenv("MQTT_USERNAME"),
			Password:        os.Getenv("MQTT_PASSWORD"),
			DeviceName:      getEnvOrDefault("MQTT_DEVICE_NAME", "prevair"),
			DiscoveryPrefix: getEnvOrDefault("MQTT_DISCOVERY_PREFIX", mqtt.DefaultDiscoveryPrefix),
		},
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.HeartbeatInterval, err = getDuration("HEARTBEAT_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.PrevairTimeout, err = getDuration("PREVAIR_TIMEOUT", prevair.DefaultTimeout); err != nil {
		return nil, err
	}

	if cfg.OTelSampleRatio, err = strconv.ParseFloat(getEnvOrDefault("OTEL_SAMPLE_RATIO", "1"), 64); err != nil {
		return nil, fmt.Errorf("invalid OTEL_SAMPLE_RATIO: %w", err)
	}

	retries, err := strconv.ParseUint(getEnvOrDefault("PREVAIR_MAX_RETRIES", "0"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid PREVAIR_MAX_RETRIES: %w", err)
	}
	cfg.PrevairMaxRetries = retries

	cfg.Monitor = monitor.Config{
		StationCode: strings.TrimSpace(os.Getenv("PREVAIR_STATION_CODE")),
		UpdateHours: monitor.ClampUpdateHours(os.Getenv("PREVAIR_UPDATE_HOURS"), logger),
	}

	location := strings.TrimSpace(os.Getenv("PREVAIR_LOCATION"))
	switch {
	case location != "":
		home, err := monitor.ParseLocation(location)
		if err != nil {
			return nil, fmt.Errorf("invalid PREVAIR_LOCATION: %w", err)
		}
		cfg.Monitor.Home = home
	case cfg.Monitor.StationCode == "":
		return nil, ErrMissingLocation
	}

	if cfg.DBEnabled {
		cfg.Database = database.ConfigFromEnv()
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
