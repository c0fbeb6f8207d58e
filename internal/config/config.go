package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	AllowedOrigin string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SearchCacheTTLSeconds int
	LookupDebounceMS      int

	AuthSecret            string
	AccessTokenTTLMinutes int

	LogLevel string
}

// Load reads configuration from the environment. Everything has a sane
// default except AUTH_SECRET and DATABASE_URL, which stay empty when unset
// so the caller can decide how to react.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SEARCH_CACHE_TTL_SECONDS", 20)
	v.SetDefault("LOOKUP_DEBOUNCE_MS", 300)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("LOG_LEVEL", "info")

	cfg := Config{
		Port:                  v.GetString("PORT"),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		SearchCacheTTLSeconds: v.GetInt("SEARCH_CACHE_TTL_SECONDS"),
		LookupDebounceMS:      v.GetInt("LOOKUP_DEBOUNCE_MS"),
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: v.GetInt("ACCESS_TOKEN_TTL_MINUTES"),
		LogLevel:              v.GetString("LOG_LEVEL"),
	}

	if cfg.SearchCacheTTLSeconds < 1 {
		cfg.SearchCacheTTLSeconds = 20
	}
	if cfg.LookupDebounceMS < 0 {
		cfg.LookupDebounceMS = 300
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.SearchCacheTTLSeconds) * time.Second
}

func (c Config) LookupDebounce() time.Duration {
	return time.Duration(c.LookupDebounceMS) * time.Millisecond
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}
