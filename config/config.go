package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — runtime configuration, loaded from config.yaml and/or
// TIMERHUB_* environment variables (env wins).
type Config struct {
	Server struct {
		Address  string `mapstructure:"address"`
		HTTPPort string `mapstructure:"http_port"`
	} `mapstructure:"server"`

	Discovery struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"discovery"`

	Timers struct {
		// A timer is online while now - last_update stays below this.
		OnlineThreshold time.Duration `mapstructure:"online_threshold"`
	} `mapstructure:"timers"`

	Notify struct {
		// Repeat seat/floorman notifications inside this window are dropped.
		DedupWindow time.Duration `mapstructure:"dedup_window"`
	} `mapstructure:"notify"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   string `mapstructure:"file"`
	} `mapstructure:"logging"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/timerhub")

	v.SetEnvPrefix("TIMERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.http_port", "3000")
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.port", 8888)
	v.SetDefault("timers.online_threshold", "180s")
	v.SetDefault("notify.dedup_window", "2s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults + env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
