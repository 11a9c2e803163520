package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Server struct {
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

type Catalog struct {
	Path string `mapstructure:"path"`
}

type Fetch struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSec     int    `mapstructure:"timeout_sec"`
	Retries        int    `mapstructure:"retries"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	Debug          bool   `mapstructure:"debug"`
}

type Config struct {
	Server          Server  `mapstructure:"server"`
	DefaultExchange string  `mapstructure:"default_exchange"`
	Catalog         Catalog `mapstructure:"catalog"`
	Fetch           Fetch   `mapstructure:"fetch"`
}

// Load reads config.yaml (path overrides the working-directory lookup) and
// applies environment overrides with the STOCKQUOTE_ prefix, e.g.
// STOCKQUOTE_SERVER_PORT or STOCKQUOTE_FETCH_MAX_CONCURRENCY. A missing
// config file is fine; defaults apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout_sec", 15)
	v.SetDefault("default_exchange", "NSE")
	v.SetDefault("catalog.path", "nse_tickers_search.json")
	v.SetDefault("fetch.base_url", "https://www.google.com/finance/quote")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("fetch.timeout_sec", 10)
	v.SetDefault("fetch.retries", 1)
	v.SetDefault("fetch.max_concurrency", 8)
	v.SetDefault("fetch.debug", false)

	v.SetEnvPrefix("STOCKQUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
