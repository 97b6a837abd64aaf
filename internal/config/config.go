package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds bootstrap configuration for the attendance API. Runtime
// tunables (grace period, thresholds, toggles) live in the settings store
// instead, so they can change without a restart.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	QRTokenSecret    string
	EventSubjectBase string
	SettingsCacheTTL time.Duration
	SweepInterval    time.Duration
	WebhookRateMax   int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ATTEND")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Attendance API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject_base", "attendance")
	v.SetDefault("settings.cache_ttl", "1m")
	v.SetDefault("sweep.interval", "1m")
	v.SetDefault("webhook.rate_max", 60)

	cacheTTL, err := time.ParseDuration(v.GetString("settings.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid settings cache ttl: %w", err)
	}

	sweepInterval, err := time.ParseDuration(v.GetString("sweep.interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid sweep interval: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		QRTokenSecret:    v.GetString("qr.token_secret"),
		EventSubjectBase: v.GetString("events.subject_base"),
		SettingsCacheTTL: cacheTTL,
		SweepInterval:    sweepInterval,
		WebhookRateMax:   v.GetInt("webhook.rate_max"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	// A distinct QR secret keeps check-in tokens unusable as auth tokens.
	if cfg.QRTokenSecret == "" {
		cfg.QRTokenSecret = cfg.JWTSecret + ":qr"
	}

	if cfg.WebhookRateMax <= 0 {
		cfg.WebhookRateMax = 60
	}

	return cfg, nil
}
