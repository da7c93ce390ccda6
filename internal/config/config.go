package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Provider  ProviderConfig  `mapstructure:"provider"  validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"     validate:"required"`
	Scan      ScanConfig      `mapstructure:"scan"      validate:"required"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// ProviderConfig describes the upstream market-data API.
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"     validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"required"`
	HistoryDays int           `mapstructure:"history_days" validate:"required,gt=0"`
}

// RateLimitConfig tunes the adaptive limiter guarding upstream calls.
type RateLimitConfig struct {
	BaseDelay         time.Duration `mapstructure:"base_delay"         validate:"required"`
	MinDelay          time.Duration `mapstructure:"min_delay"          validate:"required"`
	MaxDelay          time.Duration `mapstructure:"max_delay"          validate:"required,gtefield=BaseDelay"`
	MaxAttempts       int           `mapstructure:"max_attempts"       validate:"required,gte=1"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" validate:"required,gt=1"`
	DecayFactor       float64       `mapstructure:"decay_factor"       validate:"required,gt=0,lt=1"`
	RetryBase         time.Duration `mapstructure:"retry_base"         validate:"required"`
}

// CacheConfig tunes the in-memory result cache.
type CacheConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl" validate:"required"`
	MaxEntries int           `mapstructure:"max_entries" validate:"required,gt=0"`
	LowWater   int           `mapstructure:"low_water"   validate:"required,gt=0,ltefield=MaxEntries"`
	EvictBatch int           `mapstructure:"evict_batch" validate:"required,gt=0"`
}

// ScanConfig tunes the parallel scan orchestrator.
type ScanConfig struct {
	Workers         int           `mapstructure:"workers"           validate:"required,gt=0"`
	ItemTimeout     time.Duration `mapstructure:"item_timeout"      validate:"required"`
	MaxTotalTimeout time.Duration `mapstructure:"max_total_timeout" validate:"required"`
	ChunkSize       int           `mapstructure:"chunk_size"        validate:"required,gt=0"`
}

// TaskConfig tunes the background task manager.
type TaskConfig struct {
	Workers       int           `mapstructure:"workers"        validate:"required,gt=0"`
	QueueSize     int           `mapstructure:"queue_size"     validate:"required,gt=0"`
	Retention     time.Duration `mapstructure:"retention"      validate:"required"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required"`
}
