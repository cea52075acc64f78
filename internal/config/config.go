// Package config handles application configuration loading.
package config

import (
	"fmt"
	"time"

	"github.com/rmeijer/screenrec/internal/constants"
	"github.com/spf13/viper"
)

// Config represents the application configuration. Per-recording parameters
// (duration, fps, region, format) are not part of it; they arrive with each
// start request and are never persisted.
type Config struct {
	RecordingsDir string `mapstructure:"recordings_dir"`
	Port          int    `mapstructure:"port"`
	KeepDays      int    `mapstructure:"keep_days"`
	Timezone      string `mapstructure:"timezone"`
	LogFile       string `mapstructure:"log_file"`
	Debug         bool   `mapstructure:"debug"`
}

// Load reads the configuration from an optional config file and environment
// variables prefixed with SCREENREC_, applying defaults for missing values.
// An empty path skips the file and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("recordings_dir", constants.DefaultRecordingsDir)
	v.SetDefault("port", constants.DefaultPort)
	v.SetDefault("keep_days", constants.DefaultKeepDays)
	v.SetDefault("timezone", constants.DefaultTimezone)
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)

	v.SetEnvPrefix("SCREENREC")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.KeepDays <= 0 {
		return fmt.Errorf("keep_days must be positive, got %d", c.KeepDays)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}
