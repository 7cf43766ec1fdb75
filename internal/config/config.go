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
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Mining  MiningConfig  `yaml:"mining" mapstructure:"mining"`
	Stats   StatsConfig   `yaml:"stats" mapstructure:"stats"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CatalogConfig configures the PNCP catalog client.
type CatalogConfig struct {
	SearchBaseURL     string  `yaml:"search_base_url" mapstructure:"search_base_url"`
	APIBaseURL        string  `yaml:"api_base_url" mapstructure:"api_base_url"`
	AppBaseURL        string  `yaml:"app_base_url" mapstructure:"app_base_url"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	ListTimeoutSecs   int     `yaml:"list_timeout_secs" mapstructure:"list_timeout_secs"`
	ResultTimeoutSecs int     `yaml:"result_timeout_secs" mapstructure:"result_timeout_secs"`
	RateLimitRPS      float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst    int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// SearchConfig configures the search cascade.
type SearchConfig struct {
	PageBudget int `yaml:"page_budget" mapstructure:"page_budget"`
}

// MiningConfig configures the concurrent tender miner.
type MiningConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// StatsConfig configures statistics computation.
type StatsConfig struct {
	LookbackMonths   int  `yaml:"lookback_months" mapstructure:"lookback_months"`
	IncludeEstimated bool `yaml:"include_estimated" mapstructure:"include_estimated"`
}

// ServerConfig configures serve mode.
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
	v.SetEnvPrefix("PRICEMINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.search_base_url", "https://pncp.gov.br/api/search/")
	v.SetDefault("catalog.api_base_url", "https://pncp.gov.br/api/pncp/v1")
	v.SetDefault("catalog.app_base_url", "https://pncp.gov.br")
	v.SetDefault("catalog.user_agent", "pricemine/1.0 (+market price research)")
	v.SetDefault("catalog.list_timeout_secs", 10)
	v.SetDefault("catalog.result_timeout_secs", 4)
	v.SetDefault("catalog.rate_limit_rps", 10)
	v.SetDefault("catalog.rate_limit_burst", 10)
	v.SetDefault("search.page_budget", 3)
	v.SetDefault("mining.workers", 20)
	v.SetDefault("stats.lookback_months", 36)
	v.SetDefault("stats.include_estimated", false)
	v.SetDefault("server.port", 8080)
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
