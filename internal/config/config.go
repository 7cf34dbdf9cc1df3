package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Entropy EntropyConfig `mapstructure:"entropy"`
	History HistoryConfig `mapstructure:"history"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Mines   MinesConfig   `mapstructure:"mines"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

type LedgerConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ExplorerBaseURL string        `mapstructure:"explorer_base_url"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	ConfirmPoll     time.Duration `mapstructure:"confirm_poll"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
}

type EntropyConfig struct {
	URL        string        `mapstructure:"url"`
	BackoffMin time.Duration `mapstructure:"backoff_min"`
	BackoffMax time.Duration `mapstructure:"backoff_max"`
}

type HistoryConfig struct {
	RefreshSchedule string `mapstructure:"refresh_schedule"`
	MaxRecords      int    `mapstructure:"max_records"`
	PageLimit       int    `mapstructure:"page_limit"`
}

type ChainConfig struct {
	CoinDecimals     int `mapstructure:"coin_decimals"`
	DisplayPrecision int `mapstructure:"display_precision"`
}

type MinesConfig struct {
	HouseEdge       float64 `mapstructure:"house_edge"`
	DefaultGridSize int     `mapstructure:"default_grid_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("ledger.rpc_url", "http://localhost:9545")
	v.SetDefault("ledger.timeout", "15s")
	v.SetDefault("ledger.explorer_base_url", "https://explorer.example.com")
	v.SetDefault("ledger.retry_attempts", 3)
	v.SetDefault("ledger.retry_base_delay", "1s")
	v.SetDefault("ledger.confirm_poll", "1s")
	v.SetDefault("ledger.confirm_timeout", "30s")
	v.SetDefault("entropy.url", "wss://beacon.example.com/feed")
	v.SetDefault("entropy.backoff_min", "1s")
	v.SetDefault("entropy.backoff_max", "30s")
	v.SetDefault("history.refresh_schedule", "@every 10s")
	v.SetDefault("history.max_records", 50)
	v.SetDefault("history.page_limit", 100)
	v.SetDefault("chain.coin_decimals", 9)
	v.SetDefault("chain.display_precision", 4)
	v.SetDefault("mines.house_edge", 0.03)
	v.SetDefault("mines.default_grid_size", 5)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
