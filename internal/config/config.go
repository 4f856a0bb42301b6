package config

import "trendsheet-go/pkg/logger"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Logger   logger.Config  `mapstructure:"logger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// MaxKeywords caps the request width at the API boundary; the
	// engine's width_limit governs the upstream split.
	MaxKeywords int `mapstructure:"max_keywords"`
}

type ProviderConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
	UserAgent  string `mapstructure:"user_agent"`
}

type EngineConfig struct {
	WidthLimit        int `mapstructure:"width_limit"`
	QueryGapSec       int `mapstructure:"query_gap_sec"`
	QueryGapJitterSec int `mapstructure:"query_gap_jitter_sec"`
}

type RetryConfig struct {
	MaxAttempts          int     `mapstructure:"max_attempts"`
	BaseDelaySec         int     `mapstructure:"base_delay_sec"`
	BackoffMultiplier    float64 `mapstructure:"backoff_multiplier"`
	RateLimitCooldownSec int     `mapstructure:"rate_limit_cooldown_sec"`
	CooldownJitterSec    int     `mapstructure:"cooldown_jitter_sec"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
