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
	Collect CollectConfig `yaml:"collect" mapstructure:"collect"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run log backend. Driver is one of "sqlite",
// "postgres" or "none".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CollectConfig holds the default pool bounds and limit for collect runs.
// Unset bounds are open.
type CollectConfig struct {
	SrcMin       *int `yaml:"src_min" mapstructure:"src_min"`
	SrcMax       *int `yaml:"src_max" mapstructure:"src_max"`
	TgtMin       *int `yaml:"tgt_min" mapstructure:"tgt_min"`
	TgtMax       *int `yaml:"tgt_max" mapstructure:"tgt_max"`
	VerifiedOnly bool `yaml:"verified_only" mapstructure:"verified_only"`
	Limit        *int `yaml:"limit" mapstructure:"limit"`
}

// Job is one collect run executed by the batch command. Unset fields fall
// back to the collect section.
type Job struct {
	Name         string   `yaml:"name" mapstructure:"name"`
	Domain       string   `yaml:"domain" mapstructure:"domain"`
	Paths        []string `yaml:"paths" mapstructure:"paths"`
	SrcMin       *int     `yaml:"src_min" mapstructure:"src_min"`
	SrcMax       *int     `yaml:"src_max" mapstructure:"src_max"`
	TgtMin       *int     `yaml:"tgt_min" mapstructure:"tgt_min"`
	TgtMax       *int     `yaml:"tgt_max" mapstructure:"tgt_max"`
	VerifiedOnly *bool    `yaml:"verified_only" mapstructure:"verified_only"`
	Limit        *int     `yaml:"limit" mapstructure:"limit"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int   `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Jobs          []Job `yaml:"jobs" mapstructure:"jobs"`
}

// ServerConfig configures the run log HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// optionalKeys have no default but may still be set from the environment.
var optionalKeys = []string{
	"store.database_url",
	"collect.src_min",
	"collect.src_max",
	"collect.tgt_min",
	"collect.tgt_max",
	"collect.limit",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REVCOLLECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range optionalKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "revcollect.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("collect.verified_only", false)

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
