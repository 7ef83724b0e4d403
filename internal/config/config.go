// Package config loads application configuration from file and environment
// and owns global logger setup.
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
	Adapters AdaptersConfig `yaml:"adapters" mapstructure:"adapters"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AdaptersConfig carries per-adapter settings as free-form maps; each
// adapter validates its own section strictly when constructed.
type AdaptersConfig struct {
	OSM       map[string]any `yaml:"osm" mapstructure:"osm"`
	Shapefile map[string]any `yaml:"shapefile" mapstructure:"shapefile"`
	GeoJSON   map[string]any `yaml:"geojson" mapstructure:"geojson"`
	PostGIS   map[string]any `yaml:"postgis" mapstructure:"postgis"`
}

// ScoringConfig tunes the rule engine outputs.
type ScoringConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// ModelConfig configures training and model storage.
type ModelConfig struct {
	Dir          string  `yaml:"dir" mapstructure:"dir"`
	Trees        int     `yaml:"trees" mapstructure:"trees"`
	TestFraction float64 `yaml:"test_fraction" mapstructure:"test_fraction"`
	Seed         int64   `yaml:"seed" mapstructure:"seed"`
}

// OutputConfig configures exported tables.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Disable bool   `yaml:"disable" mapstructure:"disable"`
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
	v.SetEnvPrefix("STREETQUALITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("scoring.threshold", 0.5)
	v.SetDefault("model.dir", "models")
	v.SetDefault("model.trees", 100)
	v.SetDefault("model.test_fraction", 0.3)
	v.SetDefault("model.seed", 42)
	v.SetDefault("output.dir", "output")
	v.SetDefault("store.path", "streetquality.db")

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

// AdapterSection returns the raw config map for a named adapter, or nil.
func (c *Config) AdapterSection(name string) map[string]any {
	switch name {
	case "osm":
		return c.Adapters.OSM
	case "shapefile":
		return c.Adapters.Shapefile
	case "geojson":
		return c.Adapters.GeoJSON
	case "postgis":
		return c.Adapters.PostGIS
	}
	return nil
}
