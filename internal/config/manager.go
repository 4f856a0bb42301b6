package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type manager struct {
	mu     sync.RWMutex
	config *Config
	viper  *viper.Viper
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setupViper(configPath)

	if err := m.viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := m.unmarshal()
	if err != nil {
		return nil, err
	}

	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viper == nil {
		return fmt.Errorf("config not loaded")
	}

	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	config, err := m.unmarshal()
	if err != nil {
		return err
	}

	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) setupViper(configPath string) {
	m.viper.SetConfigFile(configPath)

	m.viper.SetEnvPrefix("TRENDSHEET")
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	m.viper.SetDefault("server.host", "0.0.0.0")
	m.viper.SetDefault("server.port", 8080)
	m.viper.SetDefault("server.max_keywords", 4)
	m.viper.SetDefault("provider.timeout_sec", 30)
	m.viper.SetDefault("engine.width_limit", 5)
	m.viper.SetDefault("engine.query_gap_sec", 20)
	m.viper.SetDefault("engine.query_gap_jitter_sec", 10)
	m.viper.SetDefault("retry.max_attempts", 4)
	m.viper.SetDefault("retry.base_delay_sec", 15)
	m.viper.SetDefault("retry.backoff_multiplier", 2.0)
	m.viper.SetDefault("retry.rate_limit_cooldown_sec", 90)
	m.viper.SetDefault("retry.cooldown_jitter_sec", 30)
	m.viper.SetDefault("logger.level", "info")
	m.viper.SetDefault("logger.format", "json")
}

func (m *manager) unmarshal() (*Config, error) {
	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.MaxKeywords < 1 {
		return fmt.Errorf("max_keywords must be positive")
	}

	if config.Engine.WidthLimit < 2 {
		return fmt.Errorf("width_limit must be at least 2, the split protocol needs a pivot plus one")
	}

	if config.Retry.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}

	if config.Provider.Endpoint == "" {
		return fmt.Errorf("provider endpoint cannot be empty")
	}

	return nil
}
