package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/rdgeo/internal/geocoding"
	"github.com/UnknownOlympus/rdgeo/internal/repository"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the rdgeo service.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The port for the monitoring and conversion HTTP server.
// - ProviderType: The geocoding provider to use (bag, google, nominatim).
// - APIKey: The API key for the provider (required for Google).
// - ProviderURL: Endpoint override for the BAG provider.
// - RateLimit: Provider requests per second.
// - Workers: The number of concurrent workers for processing requests.
// - Interval: The duration between polling rounds.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env          string
	Port         int
	ProviderType string
	APIKey       string
	ProviderURL  string
	RateLimit    int
	Workers      int
	Interval     time.Duration
	Database     repository.PostgresConfig
}

// MustLoad reads the configuration from the environment, after loading an optional
// .env file, and panics when a value cannot be parsed.
func MustLoad() *Config {
	envFile := ".env"
	if path, ok := os.LookupEnv("RDGEO_ENV_FILE"); ok {
		envFile = path
	}
	_ = godotenv.Load(envFile)

	v := newViper()

	interval, err := time.ParseDuration(v.GetString("interval"))
	if err != nil {
		panic("failed to parse interval from configuration")
	}

	healthPort, err := strconv.Atoi(v.GetString("health_port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	workers, err := strconv.Atoi(v.GetString("workers"))
	if err != nil {
		panic("failed to parse workers from configuration, must be an integer types")
	}

	rateLimit, err := strconv.Atoi(v.GetString("rate_limit"))
	if err != nil {
		panic("failed to parse rate limit from configuration, must be an integer types")
	}

	return &Config{
		Env:          v.GetString("env"),
		Port:         healthPort,
		ProviderType: v.GetString("provider_type"),
		APIKey:       v.GetString("provider_key"),
		ProviderURL:  v.GetString("provider_url"),
		RateLimit:    rateLimit,
		Workers:      workers,
		Interval:     interval,
		Database: repository.PostgresConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.username"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
		},
	}
}

// newViper binds RDGEO_* variables and the unprefixed DB_* variables with their defaults.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RDGEO")
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("health_port", "8080")
	v.SetDefault("provider_type", string(geocoding.ProviderTypeBAG))
	v.SetDefault("provider_url", geocoding.BAGBaseURL)
	v.SetDefault("rate_limit", "10")
	v.SetDefault("workers", "4")
	v.SetDefault("interval", "10m")
	v.SetDefault("db.port", "5432")

	for _, key := range []string{"host", "port", "username", "password", "name"} {
		// BindEnv with an explicit name ignores the prefix.
		_ = v.BindEnv("db."+key, "DB_"+strings.ToUpper(key))
	}

	return v
}
