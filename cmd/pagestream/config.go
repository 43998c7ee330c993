package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/pagestream/pkg/cache"
	"github.com/Sternrassler/pagestream/pkg/logging"
)

const defaultUserAgent = "pagestream/0.1.0"

// Config is the CLI configuration, read from the environment.
type Config struct {
	URLs       []string
	RedisURL   string
	RedisLists []string

	Cache     cache.Config
	BatchSize int // 0 groups by page

	UserAgent   string
	MetricsAddr string

	Logging logging.Config
}

// loadConfig reads the configuration through lookup, typically os.LookupEnv.
func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	getEnv := func(key, defaultValue string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return defaultValue
	}

	cfg := Config{
		URLs:        splitList(getEnv("PAGESTREAM_URLS", "")),
		RedisURL:    getEnv("REDIS_URL", ""),
		RedisLists:  splitList(getEnv("REDIS_LISTS", "")),
		UserAgent:   getEnv("USER_AGENT", defaultUserAgent),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}

	if len(cfg.URLs) == 0 && len(cfg.RedisLists) == 0 {
		return cfg, fmt.Errorf("no sources configured: set PAGESTREAM_URLS and/or REDIS_LISTS")
	}
	if len(cfg.RedisLists) > 0 && cfg.RedisURL == "" {
		return cfg, fmt.Errorf("REDIS_LISTS requires REDIS_URL")
	}

	var err error
	if cfg.Cache.PageSize, err = getInt(getEnv, "PAGE_SIZE", cache.DefaultPageSize); err != nil {
		return cfg, err
	}
	if cfg.Cache.Concurrency, err = getInt(getEnv, "CONCURRENCY", 1); err != nil {
		return cfg, err
	}
	defaultWindow := cache.DefaultWindowSize
	if cfg.Cache.Concurrency > 1 {
		defaultWindow = cache.PrefetchConfig(cfg.Cache.PageSize, cfg.Cache.Concurrency).WindowSize
	}
	if cfg.Cache.WindowSize, err = getInt(getEnv, "WINDOW_SIZE", defaultWindow); err != nil {
		return cfg, err
	}
	if err := cfg.Cache.Validate(); err != nil {
		return cfg, err
	}

	if cfg.BatchSize, err = getInt(getEnv, "BATCH_SIZE", 0); err != nil {
		return cfg, err
	}
	if cfg.BatchSize < 0 {
		return cfg, fmt.Errorf("BATCH_SIZE must not be negative (got %d)", cfg.BatchSize)
	}

	if cfg.Logging, err = logging.ConfigFromEnv(lookup); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func getInt(getEnv func(string, string) string, key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
