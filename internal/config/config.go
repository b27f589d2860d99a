// Package config loads application configuration from config.yaml and the
// CROWDSCRAPE_* environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dailylance/crowdscrape/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	OCR     OCRConfig     `yaml:"ocr" mapstructure:"ocr"`
	Render  RenderConfig  `yaml:"render" mapstructure:"render"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Results ResultsConfig `yaml:"results" mapstructure:"results"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// OCRConfig configures the OCR enhancement service client.
type OCRConfig struct {
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	Force              bool   `yaml:"force" mapstructure:"force"`
	MaxImages          int    `yaml:"max_images" mapstructure:"max_images"`
	PacingIntervalSecs int    `yaml:"pacing_interval_secs" mapstructure:"pacing_interval_secs"`
}

// RenderConfig configures page fetching.
type RenderConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScrapeConfig configures adapter batching and limits.
type ScrapeConfig struct {
	BatchSize      int `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelaySecs int `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
	MaxDetails     int `yaml:"max_details" mapstructure:"max_details"`
	FallbackCap    int `yaml:"fallback_cap" mapstructure:"fallback_cap"`
}

// ResultsConfig configures result file output.
type ResultsConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	XLSX bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CROWDSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crowdscrape.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ocr.base_url", "http://localhost:5000")
	v.SetDefault("ocr.max_images", 8)
	v.SetDefault("ocr.pacing_interval_secs", 1)
	v.SetDefault("render.requests_per_second", 1.0)
	v.SetDefault("render.timeout_secs", 40)
	v.SetDefault("scrape.batch_size", 3)
	v.SetDefault("scrape.batch_delay_secs", 1)
	v.SetDefault("scrape.max_details", 50)
	v.SetDefault("scrape.fallback_cap", 10)
	v.SetDefault("results.dir", "results")
	v.SetDefault("results.xlsx", false)

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
