// Package config loads application configuration and wires the global
// logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Harvest HarvestConfig `yaml:"harvest" mapstructure:"harvest"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// HarvestConfig configures a harvesting run.
type HarvestConfig struct {
	Country       string   `yaml:"country" mapstructure:"country"`
	Query         string   `yaml:"query" mapstructure:"query"`
	GridSize      int      `yaml:"grid_size" mapstructure:"grid_size"`
	Mode          string   `yaml:"mode" mapstructure:"mode"`
	ProxyFile     string   `yaml:"proxy_file" mapstructure:"proxy_file"`
	MaxSectors    int      `yaml:"max_sectors" mapstructure:"max_sectors"`
	Sources       []string `yaml:"sources" mapstructure:"sources"`
	CountriesFile string   `yaml:"countries_file" mapstructure:"countries_file"`
}

// ServerConfig configures the status server.
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
	v.SetEnvPrefix("MAPHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/businesses.db")
	v.SetDefault("harvest.country", "Spain")
	v.SetDefault("harvest.query", "negocios")
	v.SetDefault("harvest.grid_size", 165)
	v.SetDefault("harvest.mode", "auto")
	v.SetDefault("harvest.proxy_file", "proxies.txt")
	v.SetDefault("harvest.sources", []string{"gmaps"})
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
