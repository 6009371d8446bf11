package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mch-billing/terminal/internal/enum"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	LogLevel        string   `mapstructure:"LOG_LEVEL"`
	LogFile         string   `mapstructure:"LOG_FILE"`
	CatalogSource   string   `mapstructure:"CATALOG_SOURCE"`
	SettingsBackend string   `mapstructure:"SETTINGS_BACKEND"`
	SettingsPath    string   `mapstructure:"SETTINGS_PATH"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LOG_FILE", "CATALOG_SOURCE",
	"SETTINGS_BACKEND", "SETTINGS_PATH", "DATABASE_URL", "CORS_ORIGINS",
}

// Load reads an optional .env file and the environment, environment winning.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8081")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CATALOG_SOURCE", "med.json")
	v.SetDefault("SETTINGS_BACKEND", enum.SettingsBackendBolt)
	v.SetDefault("SETTINGS_PATH", "settings.db")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitOrigins(v.GetString("CORS_ORIGINS"))
	return cfg, nil
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.SettingsBackend {
	case enum.SettingsBackendBolt:
		if c.SettingsPath == "" {
			return fmt.Errorf("SETTINGS_PATH is required when SETTINGS_BACKEND is %q", c.SettingsBackend)
		}
	case enum.SettingsBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SETTINGS_BACKEND is %q", c.SettingsBackend)
		}
	default:
		return fmt.Errorf("SETTINGS_BACKEND must be %q or %q, got %q",
			enum.SettingsBackendBolt, enum.SettingsBackendPostgres, c.SettingsBackend)
	}
	return nil
}
