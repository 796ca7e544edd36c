// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Build  BuildConfig  `yaml:"build" mapstructure:"build"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read-only query API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// FetchConfig configures source file downloads.
type FetchConfig struct {
	GazetteerURL  string `yaml:"gazetteer_url" mapstructure:"gazetteer_url"`
	PopulationURL string `yaml:"population_url" mapstructure:"population_url"`
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BuildConfig configures the dataset build pipeline.
type BuildConfig struct {
	OutDir       string `yaml:"out_dir" mapstructure:"out_dir"`
	ZipColumn    string `yaml:"zip_column" mapstructure:"zip_column"`
	LatColumn    string `yaml:"lat_column" mapstructure:"lat_column"`
	LngColumn    string `yaml:"lng_column" mapstructure:"lng_column"`
	PopZipColumn string `yaml:"pop_zip_column" mapstructure:"pop_zip_column"`
	PopColumn    string `yaml:"pop_column" mapstructure:"pop_column"`
	Encoding     string `yaml:"encoding" mapstructure:"encoding"`
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
	v.SetEnvPrefix("ZIPDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "zip_codes.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.gazetteer_url", "https://www2.census.gov/geo/docs/maps-data/data/gazetteer/2024_Gazetteers/2024_Gaz_zcta_national.zip")
	v.SetDefault("fetch.population_url", "")
	v.SetDefault("fetch.data_dir", "data")
	v.SetDefault("fetch.user_agent", "zipdata-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("build.out_dir", "dist")
	v.SetDefault("build.zip_column", "GEOID")
	v.SetDefault("build.lat_column", "INTPTLAT")
	v.SetDefault("build.lng_column", "INTPTLONG")
	v.SetDefault("build.pop_zip_column", "zip")
	v.SetDefault("build.pop_column", "population")
	v.SetDefault("build.encoding", "utf-8")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
