// Package config loads service configuration from environment variables and
// an optional config file. Environment variables take precedence; API keys
// are optional and simply disable the corresponding provider when absent.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the market-data service.
type Config struct {
	// Server
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
	LogLevel          string `mapstructure:"log_level"`

	// Backing stores
	RedisURL string `mapstructure:"redis_url"`
	DBPath   string `mapstructure:"db_path"`

	// API keys; empty disables the provider
	AlphaVantageAPIKey string `mapstructure:"alphavantage_api_key"`
	FinnhubAPIKey      string `mapstructure:"finnhub_api_key"`
	ExchangeRateAPIKey string `mapstructure:"exchangerate_api_key"`

	// Base URLs for upstream endpoints (configurable for testing)
	YahooBaseURL        string `mapstructure:"yahoo_base_url"`
	AlphaVantageBaseURL string `mapstructure:"alphavantage_base_url"`
	FinnhubBaseURL      string `mapstructure:"finnhub_base_url"`
	ExchangeRateBaseURL string `mapstructure:"exchangerate_base_url"`

	// Per-provider request pacing, requests per second; zero disables
	YahooRPS        float64 `mapstructure:"yahoo_rps"`
	AlphaVantageRPS float64 `mapstructure:"alphavantage_rps"`
	FinnhubRPS      float64 `mapstructure:"finnhub_rps"`
}

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory or $HOME/.marketdata.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("request_timeout_sec", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "marketdata.db")

	v.SetDefault("yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("finnhub_base_url", "https://finnhub.io/api/v1")
	v.SetDefault("exchangerate_base_url", "https://v6.exchangerate-api.com/v6")

	// Conservative defaults for the free tiers: Alpha Vantage allows 5
	// requests per minute, the others tolerate a couple per second.
	v.SetDefault("yahoo_rps", 2.0)
	v.SetDefault("alphavantage_rps", 1.0/12.0)
	v.SetDefault("finnhub_rps", 1.0)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.marketdata")
	_ = v.ReadInConfig() // config file is optional

	v.BindEnv("port", "PORT")
	v.BindEnv("request_timeout_sec", "REQUEST_TIMEOUT_SEC")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("redis_url", "REDIS_URL")
	v.BindEnv("db_path", "DB_PATH")
	v.BindEnv("alphavantage_api_key", "ALPHAVANTAGE_API_KEY")
	v.BindEnv("finnhub_api_key", "FINNHUB_API_KEY")
	v.BindEnv("exchangerate_api_key", "EXCHANGERATE_API_KEY")
	v.BindEnv("yahoo_base_url", "YAHOO_BASE_URL")
	v.BindEnv("alphavantage_base_url", "ALPHAVANTAGE_BASE_URL")
	v.BindEnv("finnhub_base_url", "FINNHUB_BASE_URL")
	v.BindEnv("exchangerate_base_url", "EXCHANGERATE_BASE_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.RequestTimeoutSec <= 0 {
		return nil, fmt.Errorf("request_timeout_sec must be positive, got %d", cfg.RequestTimeoutSec)
	}
	return cfg, nil
}

// RequestTimeout returns the hard timeout applied to every upstream attempt.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// RateLimits returns the per-provider pacing table keyed by provider name.
func (c *Config) RateLimits() map[string]float64 {
	return map[string]float64{
		"yahoo":        c.YahooRPS,
		"alphavantage": c.AlphaVantageRPS,
		"finnhub":      c.FinnhubRPS,
	}
}
