package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Load reads, decodes and validates a configuration file.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("mac.min_frame_length", 64)
	v.SetDefault("mac.padding_enable", true)
	v.SetDefault("mac.ifg", 12)
	v.SetDefault("mac.period_ns", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pattern", "%time [%level] %field %msg%n")
	v.SetDefault("log.time", "2006-01-02 15:04:05.000")
}
