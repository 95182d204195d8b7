package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/admitguard/admitguard/internal/pipeline"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig   `yaml:"store" mapstructure:"store"`
	Tabs   pipeline.Tabs `yaml:"tabs" mapstructure:"tabs"`
	Server ServerConfig  `yaml:"server" mapstructure:"server"`
	Log    LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the tabular store backend.
type StoreConfig struct {
	// Driver selects the backend: memory, sqlite, postgres or xlsx.
	Driver string `yaml:"driver" mapstructure:"driver"`
	// DSN is the connection string for sqlite and postgres, or the
	// workbook path for xlsx.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
	// Throttle caps store calls per second; zero disables throttling.
	Throttle float64 `yaml:"throttle" mapstructure:"throttle"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("ADMITGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "admitguard.db")
	v.SetDefault("store.throttle", 0)
	v.SetDefault("tabs.raw", "Raw_Data")
	v.SetDefault("tabs.accepted", "Clean_Data")
	v.SetDefault("tabs.rejected", "Rejected_Records")
	v.SetDefault("tabs.exception", "Exception")
	v.SetDefault("tabs.scores", "Test_Scores")
	v.SetDefault("tabs.shortlist", "Interview")
	v.SetDefault("tabs.config", "Config")
	v.SetDefault("tabs.run_log", "Run Log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
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
