// Package config reads ENVIOS_* settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/envios/internal/api"
	"github.com/dukerupert/envios/internal/cache"
	"github.com/dukerupert/envios/internal/export"
	"github.com/dukerupert/envios/internal/kv"
)

type Config struct {
	APIURL         string
	Store          kv.Options
	CacheWindow    time.Duration
	HTTPTimeout    time.Duration
	RetryMax       uint64
	RetryBase      time.Duration
	LogLevel       string
	LogFormat      string
	Addr           string
	OriginPatterns []string
	Export         export.S3Config
}

// Load reads envFile into the environment (missing files are ignored and
// variables already set win) and then parses the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses settings through getenv, applying defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	c := Config{
		APIURL: strings.TrimRight(get("ENVIOS_API_URL", api.DefaultBaseURL), "/"),
		Store: kv.Options{
			Backend:     get("ENVIOS_STORE", kv.BackendSQLite),
			Path:        get("ENVIOS_DB_PATH", "envios.db"),
			RedisURL:    get("ENVIOS_REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix: get("ENVIOS_REDIS_PREFIX", "envios:"),
			Passphrase:  getenv("ENVIOS_STORE_PASSPHRASE"),
		},
		LogLevel:  get("ENVIOS_LOG_LEVEL", "info"),
		LogFormat: get("ENVIOS_LOG_FORMAT", "text"),
		Addr:      get("ENVIOS_ADDR", ":8080"),
		Export: export.S3Config{
			Endpoint:  getenv("ENVIOS_S3_ENDPOINT"),
			Bucket:    getenv("ENVIOS_S3_BUCKET"),
			Region:    get("ENVIOS_S3_REGION", "us-east-1"),
			AccessKey: getenv("ENVIOS_S3_ACCESS_KEY"),
			SecretKey: getenv("ENVIOS_S3_SECRET_KEY"),
			Prefix:    get("ENVIOS_S3_PREFIX", "reportes"),
		},
	}

	switch c.Store.Backend {
	case kv.BackendSQLite, kv.BackendRedis, kv.BackendMemory:
	default:
		return Config{}, fmt.Errorf("ENVIOS_STORE: unknown backend %q", c.Store.Backend)
	}

	var err error
	if c.CacheWindow, err = duration(get("ENVIOS_CACHE_WINDOW", cache.DefaultWindow.String())); err != nil {
		return Config{}, fmt.Errorf("ENVIOS_CACHE_WINDOW: %w", err)
	}
	if c.HTTPTimeout, err = duration(get("ENVIOS_HTTP_TIMEOUT", api.DefaultTimeout.String())); err != nil {
		return Config{}, fmt.Errorf("ENVIOS_HTTP_TIMEOUT: %w", err)
	}
	if c.RetryBase, err = duration(get("ENVIOS_RETRY_BASE", "200ms")); err != nil {
		return Config{}, fmt.Errorf("ENVIOS_RETRY_BASE: %w", err)
	}
	if c.RetryMax, err = strconv.ParseUint(get("ENVIOS_RETRY_MAX", "0"), 10, 32); err != nil {
		return Config{}, fmt.Errorf("ENVIOS_RETRY_MAX: %w", err)
	}

	for _, o := range strings.Split(getenv("ENVIOS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.OriginPatterns = append(c.OriginPatterns, o)
		}
	}
	return c, nil
}

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
