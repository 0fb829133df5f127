package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	ProviderAviationWeather = "aviationweather"
	ProviderAvwx            = "avwx"
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		LogLevel     string
	}

	Metar struct {
		Provider           string
		AviationWeatherURL string
		AvwxURL            string
		AvwxAPIToken       string
		HTTPTimeout        time.Duration
	}

	Coordinator struct {
		UpdateInterval time.Duration
	}

	CircuitBreaker struct {
		Threshold int
		Timeout   time.Duration
	}

	MQTT struct {
		Broker          string
		Port            int
		ClientID        string
		Username        string
		Password        string
		DiscoveryPrefix string
		StatePrefix     string
	}

	// Stations are imported as config entries at startup.
	Stations []string
}

// StationsFile is the layout of the optional STATIONS_FILE.
type StationsFile struct {
	Station []struct {
		ICAOID string `toml:"icao_id"`
	} `toml:"station"`
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("FIBER_PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration("FIBER_READ_TIMEOUT", "10s")
	cfg.Server.WriteTimeout = parseDuration("FIBER_WRITE_TIMEOUT", "10s")
	cfg.Server.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))

	// METAR provider configuration
	cfg.Metar.Provider = strings.ToLower(getEnv("METAR_PROVIDER", ProviderAviationWeather))
	cfg.Metar.AviationWeatherURL = getEnv("AVIATIONWEATHER_URL", "https://aviationweather.gov/api/data")
	cfg.Metar.AvwxURL = getEnv("AVWX_URL", "https://avwx.rest/api")
	cfg.Metar.AvwxAPIToken = getEnv("AVWX_API_TOKEN", "")
	cfg.Metar.HTTPTimeout = parseDuration("HTTP_TIMEOUT", "10s")

	// Coordinator configuration
	cfg.Coordinator.UpdateInterval = parseDuration("UPDATE_INTERVAL", "1m")

	// Circuit breaker configuration
	cfg.CircuitBreaker.Threshold = parseInt("CIRCUIT_BREAKER_THRESHOLD", "3")
	cfg.CircuitBreaker.Timeout = parseDuration("CIRCUIT_BREAKER_TIMEOUT", "30s")

	// MQTT configuration
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "localhost")
	cfg.MQTT.Port = parseInt("MQTT_PORT", "1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "aviationweather")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.DiscoveryPrefix = strings.TrimRight(getEnv("DISCOVERY_PREFIX", "homeassistant"), "/")
	cfg.MQTT.StatePrefix = strings.TrimRight(getEnv("STATE_PREFIX", "aviationweather"), "/")

	// Stations
	cfg.Stations = splitList(getEnv("ICAO_IDS", ""))
	if path := getEnv("STATIONS_FILE", ""); path != "" {
		stations, err := LoadStationsFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Stations = append(cfg.Stations, stations...)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadStationsFile reads the ICAO codes listed in a TOML file of [[station]]
// tables.
func LoadStationsFile(path string) ([]string, error) {
	var file StationsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode stations file %s: %w", path, err)
	}

	stations := make([]string, 0, len(file.Station))
	for _, s := range file.Station {
		if id := strings.TrimSpace(s.ICAOID); id != "" {
			stations = append(stations, id)
		}
	}
	return stations, nil
}

func (c *Config) validate() error {
	switch c.Metar.Provider {
	case ProviderAviationWeather:
	case ProviderAvwx:
		if c.Metar.AvwxAPIToken == "" {
			return fmt.Errorf("AVWX_API_TOKEN is required for METAR_PROVIDER %q", ProviderAvwx)
		}
	default:
		return fmt.Errorf("invalid METAR_PROVIDER %q (allowed: %s, %s)",
			c.Metar.Provider, ProviderAviationWeather, ProviderAvwx)
	}

	if c.Coordinator.UpdateInterval < time.Second {
		return fmt.Errorf("UPDATE_INTERVAL must be at least 1s, got %v", c.Coordinator.UpdateInterval)
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("invalid MQTT_PORT %d", c.MQTT.Port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration, using default",
			zap.String("key", key),
			zap.String("value", value),
			zap.Error(err))
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func parseInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int, using default",
			zap.String("key", key),
			zap.String("value", value),
			zap.Error(err))
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
