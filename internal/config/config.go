package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"InvestLogic/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Lab        LabConfig        `yaml:"lab"`
	Proxy      string           `yaml:"proxy"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release, test
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `yaml:"level"`
	Encoding          string `yaml:"encoding"` // json or console
	Development       bool   `yaml:"development"`
	DisableCaller     bool   `yaml:"disable_caller"`
	DisableStacktrace bool   `yaml:"disable_stacktrace"`
	Sampling          bool   `yaml:"sampling"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // sqlite or memory
	SQLitePath string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type CacheConfig struct {
	Backend   string        `yaml:"backend"` // memory or redis
	Redis     RedisConfig   `yaml:"redis"`
	QuoteTTL  time.Duration `yaml:"quote_ttl"`
	SeriesTTL time.Duration `yaml:"series_ttl"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	Issuer         string        `yaml:"issuer"`
	BootstrapAdmin string        `yaml:"bootstrap_admin"`
}

type DataSourceConfig struct {
	Quotes       string        `yaml:"quotes"` // yahoo or mock
	Series       string        `yaml:"series"` // stooq, yahoo or mock
	MainSymbol   string        `yaml:"main_symbol"`
	SeriesSymbol string        `yaml:"series_symbol"`
	Timeout      time.Duration `yaml:"timeout"`
	MockPrice    float64       `yaml:"mock_price"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Polling  bool   `yaml:"polling"`
}

// Enabled reports whether Telegram delivery is configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type ScheduleConfig struct {
	QuoteCron string `yaml:"quote_cron"`
	AlertCron string `yaml:"alert_cron"`
}

type AllocationConfig struct {
	Percent   float64 `yaml:"percent"`
	BasePrice float64 `yaml:"base_price"`
}

type DefaultsConfig struct {
	TotalCapital float64                     `yaml:"total_capital"`
	Allocations  map[string]AllocationConfig `yaml:"allocations"`
}

type StrategyConfig struct {
	Templates []model.StrategyTemplate `yaml:"templates"`
}

type LabConfig struct {
	StocksURL string `yaml:"stocks_url"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := map[string]*string{
		"SERVER_ADDR":        &cfg.Server.Addr,
		"GIN_MODE":           &cfg.Server.Mode,
		"LOG_LEVEL":          &cfg.Log.Level,
		"LOG_ENCODING":       &cfg.Log.Encoding,
		"DB_DRIVER":          &cfg.Database.Driver,
		"SQLITE_PATH":        &cfg.Database.SQLitePath,
		"CACHE_BACKEND":      &cfg.Cache.Backend,
		"REDIS_ADDR":         &cfg.Cache.Redis.Addr,
		"REDIS_PASSWORD":     &cfg.Cache.Redis.Password,
		"JWT_SECRET":         &cfg.Auth.JWTSecret,
		"BOOTSTRAP_ADMIN":    &cfg.Auth.BootstrapAdmin,
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &cfg.Telegram.ChatID,
		"HTTPS_PROXY":        &cfg.Proxy,
		"CRON_QUOTES":        &cfg.Schedule.QuoteCron,
		"CRON_ALERTS":        &cfg.Schedule.AlertCron,
		"LAB_STOCKS_URL":     &cfg.Lab.StocksURL,
		"QUOTE_PROVIDER":     &cfg.DataSource.Quotes,
		"SERIES_PROVIDER":    &cfg.DataSource.Series,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("DEFAULT_CAPITAL"); v != "" {
		var capital float64
		if _, err := fmt.Sscanf(v, "%f", &capital); err == nil {
			cfg.Defaults.TotalCapital = capital
		}
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "json"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/investlogic.db"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "investlogic:"
	}
	if cfg.Cache.QuoteTTL <= 0 {
		cfg.Cache.QuoteTTL = time.Minute
	}
	if cfg.Cache.SeriesTTL <= 0 {
		cfg.Cache.SeriesTTL = 30 * time.Minute
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "investlogic"
	}
	if cfg.DataSource.Quotes == "" {
		cfg.DataSource.Quotes = "yahoo"
	}
	if cfg.DataSource.Series == "" {
		cfg.DataSource.Series = "stooq"
	}
	if cfg.DataSource.MainSymbol == "" {
		cfg.DataSource.MainSymbol = "NQ=F"
	}
	if cfg.DataSource.SeriesSymbol == "" {
		cfg.DataSource.SeriesSymbol = "^NDX"
	}
	if cfg.DataSource.Timeout <= 0 {
		cfg.DataSource.Timeout = 30 * time.Second
	}
	if cfg.DataSource.MockPrice <= 0 {
		cfg.DataSource.MockPrice = 20000
	}
	if cfg.Schedule.QuoteCron == "" {
		cfg.Schedule.QuoteCron = "0 */5 * * * *"
	}
	if cfg.Schedule.AlertCron == "" {
		cfg.Schedule.AlertCron = "0 */15 * * * 1-5"
	}
	if cfg.Defaults.TotalCapital == 0 {
		cfg.Defaults.TotalCapital = 100_000_000
	}
	if len(cfg.Defaults.Allocations) == 0 {
		cfg.Defaults.Allocations = map[string]AllocationConfig{
			"SOXL": {Percent: 100, BasePrice: 30},
			"TQQQ": {Percent: 100, BasePrice: 55},
		}
	}
}

// DefaultAllocations converts the configured allocations to model values
// keyed by upper-case symbol.
func (c *Config) DefaultAllocations() map[string]model.AllocationSetting {
	out := make(map[string]model.AllocationSetting, len(c.Defaults.Allocations))
	for sym, a := range c.Defaults.Allocations {
		out[strings.ToUpper(strings.TrimSpace(sym))] = model.AllocationSetting{Percent: a.Percent, BasePrice: a.BasePrice}
	}
	return out
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	switch c.Database.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be sqlite or memory, got %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	switch c.DataSource.Quotes {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.quotes must be yahoo or mock, got %q", c.DataSource.Quotes)
	}
	switch c.DataSource.Series {
	case "stooq", "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.series must be stooq, yahoo or mock, got %q", c.DataSource.Series)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Defaults.TotalCapital < 0 {
		return fmt.Errorf("defaults.total_capital must not be negative")
	}
	for sym, a := range c.Defaults.Allocations {
		if a.Percent < 0 || a.BasePrice < 0 {
			return fmt.Errorf("defaults.allocations.%s must not be negative", sym)
		}
	}
	return nil
}
