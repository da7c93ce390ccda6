package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables (prefixed with SCREENER_) take precedence over values
// from config files, which take precedence over defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file: screener.yaml in the working directory.
	v.SetConfigName("screener")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SCREENER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every knob so the server starts with no
// environment at all. Values mirror the tuning the system was designed around.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("provider.base_url", "https://api.vci.example.com")
	v.SetDefault("provider.timeout", "20s")
	v.SetDefault("provider.history_days", 365)

	v.SetDefault("ratelimit.base_delay", "1s")
	v.SetDefault("ratelimit.min_delay", "500ms")
	v.SetDefault("ratelimit.max_delay", "10s")
	v.SetDefault("ratelimit.max_attempts", 3)
	v.SetDefault("ratelimit.backoff_multiplier", 2.0)
	v.SetDefault("ratelimit.decay_factor", 0.8)
	v.SetDefault("ratelimit.retry_base", "5s")

	v.SetDefault("cache.default_ttl", "5m")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.low_water", 800)
	v.SetDefault("cache.evict_batch", 200)

	v.SetDefault("scan.workers", 10)
	v.SetDefault("scan.item_timeout", "30s")
	v.SetDefault("scan.max_total_timeout", "10m")
	v.SetDefault("scan.chunk_size", 20)

	v.SetDefault("task.workers", 3)
	v.SetDefault("task.queue_size", 32)
	v.SetDefault("task.retention", "1h")
	v.SetDefault("task.sweep_interval", "30m")
}
