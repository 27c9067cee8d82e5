package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port string
	// Provider
	Provider        string
	ExchangeAPIBase string
	ExchangeAPIKey  string
	RequestTimeout  time.Duration
	RetryMaxElapsed time.Duration
	// Local files
	DataDir       string
	SymbolsFile   string
	SnapshotFile  string
	PairCacheFile string
	CatalogRetry  time.Duration
	// Cache backend for pair rates: "file" or "redis"
	CacheBackend   string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	// Rate context / refresher
	StartMode    string
	RefreshEvery time.Duration
	RefreshBase  string
	// History
	HistoryMaxSpan time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", DefaultHTTPPort)
	v.SetDefault("provider", "fake")
	v.SetDefault("exchange_api_base", "https://api.exchangeratesapi.io")
	v.SetDefault("exchange_api_key", "")
	v.SetDefault("request_timeout_ms", 4000)
	v.SetDefault("http_retry_max_ms", 3000)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("symbols_file", "")
	v.SetDefault("snapshot_file", "")
	v.SetDefault("pair_cache_file", "")
	v.SetDefault("catalog_retry_ms", int(DefaultCatalogRetry/time.Millisecond))
	v.SetDefault("cache_backend", "file")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", "fxrates")
	v.SetDefault("start_mode", "online")
	v.SetDefault("refresh_every_ms", int(DefaultRefreshEvery/time.Millisecond))
	v.SetDefault("refresh_base", "EUR")
	v.SetDefault("history_max_days", DefaultHistoryMaxDays)
}

func msDef(v *viper.Viper, key string, def int) time.Duration {
	ms := v.GetInt(key)
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

func historyDays(days int) time.Duration {
	if days <= 0 {
		days = DefaultHistoryMaxDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func fileIn(dir, explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(dir, name)
}

// Load reads environment variables (and an optional fxrates.yaml) and applies defaults.
// CONFIG_FILE points at an explicit config file.
func Load() Config {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fxrates")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Unreadable config file: continue with env + defaults.
			v = viper.New()
			setDefaults(v)
			v.AutomaticEnv()
		}
	}

	dataDir := v.GetString("data_dir")
	return Config{
		Env:             v.GetString("env"),
		LogLevel:        v.GetString("log_level"),
		Port:            v.GetString("port"),
		Provider:        v.GetString("provider"),
		ExchangeAPIBase: v.GetString("exchange_api_base"),
		ExchangeAPIKey:  v.GetString("exchange_api_key"),
		RequestTimeout:  msDef(v, "request_timeout_ms", 4000),
		RetryMaxElapsed: msDef(v, "http_retry_max_ms", 3000),
		DataDir:         dataDir,
		SymbolsFile:     fileIn(dataDir, v.GetString("symbols_file"), "symbols.txt"),
		SnapshotFile:    fileIn(dataDir, v.GetString("snapshot_file"), "rates_snapshot.txt"),
		PairCacheFile:   fileIn(dataDir, v.GetString("pair_cache_file"), "pair_rates.txt"),
		CatalogRetry:    msDef(v, "catalog_retry_ms", int(DefaultCatalogRetry/time.Millisecond)),
		CacheBackend:    strings.ToLower(v.GetString("cache_backend")),
		RedisAddr:       v.GetString("redis_addr"),
		RedisPassword:   v.GetString("redis_password"),
		RedisDB:         v.GetInt("redis_db"),
		RedisKeyPrefix:  v.GetString("redis_key_prefix"),
		StartMode:       strings.ToLower(v.GetString("start_mode")),
		RefreshEvery:    msDef(v, "refresh_every_ms", int(DefaultRefreshEvery/time.Millisecond)),
		RefreshBase:     strings.ToUpper(v.GetString("refresh_base")),
		HistoryMaxSpan:  historyDays(v.GetInt("history_max_days")),
	}
}
