// Package config loads application configuration from an optional
// config.yaml and SURFATLAS_* environment variables, and initializes
// the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/swellmap/surfatlas/internal/country"
	"github.com/swellmap/surfatlas/internal/reconcile"
	"github.com/swellmap/surfatlas/internal/scrape"
	"github.com/swellmap/surfatlas/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store    store.Config     `yaml:"store" mapstructure:"store"`
	Scrape   scrape.Config    `yaml:"scrape" mapstructure:"scrape"`
	Match    reconcile.Config `yaml:"match" mapstructure:"match"`
	Country  country.Config   `yaml:"country" mapstructure:"country"`
	Pipeline PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig     `yaml:"server" mapstructure:"server"`
	Log      LogConfig        `yaml:"log" mapstructure:"log"`
}

// PipelineConfig holds stage file locations.
type PipelineConfig struct {
	DataDir      string `yaml:"data_dir" mapstructure:"data_dir"`
	SecondSource string `yaml:"second_source" mapstructure:"second_source"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and environment
// variables, applying defaults for every knob.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SURFATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "surfatlas.db")
	v.SetDefault("scrape.base_url", "https://www.surf-forecast.com")
	v.SetDefault("scrape.pages", 27)
	v.SetDefault("scrape.timeout_secs", 15)
	v.SetDefault("scrape.rate_limit", 4)
	v.SetDefault("scrape.detail_concurrency", 8)
	v.SetDefault("match.score_threshold", 0.75)
	v.SetDefault("match.name_weight", 0.7)
	v.SetDefault("match.region_weight", 0.3)
	v.SetDefault("country.fuzzy_threshold", 0.85)
	v.SetDefault("country.fuzzy_margin", 0.05)
	v.SetDefault("pipeline.data_dir", "data")
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
