// Package config loads Vigil configuration from file and environment and
// builds the application logger.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from the given file (or the default search
// paths when empty) and environment variables.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/vigil.db")

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.api_key_hash", "")
	v.SetDefault("auth.dashboard_key_hash", "")
	v.SetDefault("auth.token_ttl", "1h")

	// Notification pipeline defaults. The grouping window and stagger are
	// configuration constants, not protocol guarantees.
	v.SetDefault("notify.user", "default")
	v.SetDefault("notify.group_window", "500ms")
	v.SetDefault("notify.sound_stagger", "200ms")
	v.SetDefault("notify.native_close_after", "10s")
	v.SetDefault("notify.recurring_close_after", "5s")

	// Probe agent defaults (read by cmd/probe).
	v.SetDefault("probe.server_url", "http://127.0.0.1:8080")
	v.SetDefault("probe.api_key", "")
	v.SetDefault("probe.interval", "30s")
	v.SetDefault("probe.ping_timeout", "5s")
	v.SetDefault("probe.ping_count", 3)
	v.SetDefault("probe.concurrency", 16)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("vigil")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vigil")
	}

	// Environment variable support: VIGIL_SERVER_PORT=9090
	v.SetEnvPrefix("VIGIL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
