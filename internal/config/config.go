// config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // DASHBOARD_TIMEZONE funciona sin zoneinfo en la imagen

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env         string `validate:"required,oneof=development production"`
	Port        string `validate:"required,numeric"`
	MongoURI    string `validate:"required,uri"`
	MongoDBName string `validate:"required"`
	AuthURL     string `validate:"required,url"`
	RabbitURL   string `validate:"required,uri"`

	// Zona horaria de los buckets de ventas
	TimeZone string `validate:"required"`

	ResolveConcurrency int           `validate:"gte=1"`
	ResolveTimeout     time.Duration `validate:"gt=0"`
	CacheCapacity      int           `validate:"gte=1"`
	CacheTTL           time.Duration `validate:"gt=0"`

	PromoCodeMaxAttempts int `validate:"gte=1"`
	LeaderboardSize      int `validate:"gte=1"`
}

func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://host.docker.internal:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "delivery_dashboard"),
		AuthURL:     getEnv("AUTH_SERVICE_URL", "http://host.docker.internal:3000"),
		RabbitURL:   getEnv("RABBIT_URL", "amqp://host.docker.internal"),
		TimeZone:    getEnv("DASHBOARD_TIMEZONE", "UTC"),

		ResolveConcurrency: getEnvInt("RESOLVE_CONCURRENCY", 8),
		ResolveTimeout:     getEnvDuration("RESOLVE_TIMEOUT", 3*time.Second),
		CacheCapacity:      getEnvInt("CACHE_CAPACITY", 1024),
		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),

		PromoCodeMaxAttempts: getEnvInt("PROMO_CODE_MAX_ATTEMPTS", 10),
		LeaderboardSize:      getEnvInt("LEADERBOARD_SIZE", 3),
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
