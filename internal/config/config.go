// Package config defines the top-level configuration for the skin arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SKINARB_* environment
// variables.
type Config struct {
	LisSkins LisSkinsConfig `toml:"lisskins"`
	Skinport SkinportConfig `toml:"skinport"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Strategy StrategyConfig `toml:"strategy"`
	Risk     RiskConfig     `toml:"risk"`
	Deals    DealsConfig    `toml:"deals"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Export    ExportConfig    `toml:"export"`
	Retention RetentionConfig `toml:"retention"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// LisSkinsConfig holds the Lis-Skins API endpoint and rate limit.
type LisSkinsConfig struct {
	BaseURL  string   `toml:"base_url"`
	MinDelay duration `toml:"min_delay"`
}

// SkinportConfig holds the Skinport API endpoint, request parameters, and
// rate limit.
type SkinportConfig struct {
	BaseURL  string   `toml:"base_url"`
	AppID    int      `toml:"app_id"`
	Currency string   `toml:"currency"`
	Tradable bool     `toml:"tradable"`
	MinDelay duration `toml:"min_delay"`
	// CommissionRate is the fraction of the gross sale price Skinport keeps.
	CommissionRate float64 `toml:"commission_rate"`
}

// ScannerConfig controls the fetch-merge-analyze cycle.
type ScannerConfig struct {
	Interval       duration `toml:"interval"`
	PerCallTimeout duration `toml:"per_call_timeout"`
	// RescaleProfit recomputes profit figures proportionally when the
	// investment budget cap scales positions down. Off by default: the
	// emitted profit then describes a full-size position even when the
	// recommended investment is partial.
	RescaleProfit bool `toml:"rescale_profit"`
}

// StrategyConfig holds the opportunity qualification thresholds.
type StrategyConfig struct {
	MinProfitPct float64 `toml:"min_profit_pct"`
	MaxProfitPct float64 `toml:"max_profit_pct"`
	MinQuantity  int     `toml:"min_quantity"`
}

// RiskConfig holds the per-cycle capital limits.
type RiskConfig struct {
	MaxInvestmentPerItem float64 `toml:"max_investment_per_item"`
	MaxTotalInvestment   float64 `toml:"max_total_investment"`
	MaxItemsPerDay       int     `toml:"max_items_per_day"`
}

// DealsConfig holds the discount deal finder thresholds.
type DealsConfig struct {
	// DiscountThreshold is negative: a row qualifies when its discount
	// percentage is at or below this value.
	DiscountThreshold float64 `toml:"discount_threshold"`
	MinVolume         float64 `toml:"min_volume"`
	MinPrice          float64 `toml:"min_price"`
	MaxPrice          float64 `toml:"max_price"`
	// FeedPath is a CSV feed to scan in deals mode. Empty means the finder
	// reads the latest feed from Redis instead.
	FeedPath string   `toml:"feed_path"`
	Interval duration `toml:"interval"`
	// MaxFeedAge rejects cached feeds older than this in deals mode.
	MaxFeedAge duration `toml:"max_feed_age"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for raw payload
// snapshots.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ExportConfig controls CSV export of opportunities and deals.
type ExportConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// RetentionConfig controls archival and pruning of stored scan history.
// Requires Postgres; rows older than MaxAge are archived to S3 first when S3
// is enabled, then deleted.
type RetentionConfig struct {
	Enabled  bool     `toml:"enabled"`
	MaxAge   duration `toml:"max_age"`
	Interval duration `toml:"interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "10m" or "38s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml.
func Defaults() Config {
	return Config{
		LisSkins: LisSkinsConfig{
			BaseURL:  "https://lis-skins.com/market_export_json/api_csgo_full.json",
			MinDelay: duration{30 * time.Second},
		},
		Skinport: SkinportConfig{
			BaseURL:        "https://api.skinport.com/v1",
			AppID:          730,
			Currency:       "EUR",
			Tradable:       false,
			MinDelay:       duration{38 * time.Second},
			CommissionRate: 0.12,
		},
		Scanner: ScannerConfig{
			Interval:       duration{10 * time.Minute},
			PerCallTimeout: duration{60 * time.Second},
			RescaleProfit:  false,
		},
		Strategy: StrategyConfig{
			MinProfitPct: 10,
			MaxProfitPct: 200,
			MinQuantity:  5,
		},
		Risk: RiskConfig{
			MaxInvestmentPerItem: 50,
			MaxTotalInvestment:   500,
			MaxItemsPerDay:       20,
		},
		Deals: DealsConfig{
			DiscountThreshold: -15,
			MinVolume:         5,
			MinPrice:          0,
			MaxPrice:          10,
			Interval:          duration{10 * time.Minute},
			MaxFeedAge:        duration{1 * time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "skinarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "skinarb-snapshots",
			ForcePathStyle: true,
		},
		Export: ExportConfig{
			Enabled: true,
			Dir:     "exports",
		},
		Retention: RetentionConfig{
			Enabled:  false,
			MaxAge:   duration{30 * 24 * time.Hour},
			Interval: duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunities_found", "deals_found", "cycle_failed"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"deals":  true,
	"once":   true,
	"full":   true,
	"report": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found. A non-nil error is fatal at startup;
// no cycle runs with a half-valid config.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, deals, once, full, report)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Sources
	if c.LisSkins.BaseURL == "" {
		errs = append(errs, "lisskins: base_url must not be empty")
	}
	if c.LisSkins.MinDelay.Duration < 0 {
		errs = append(errs, "lisskins: min_delay must not be negative")
	}
	if c.Skinport.BaseURL == "" {
		errs = append(errs, "skinport: base_url must not be empty")
	}
	if c.Skinport.AppID <= 0 {
		errs = append(errs, fmt.Sprintf("skinport: app_id must be positive, got %d", c.Skinport.AppID))
	}
	if c.Skinport.Currency == "" {
		errs = append(errs, "skinport: currency must not be empty")
	}
	if c.Skinport.MinDelay.Duration < 0 {
		errs = append(errs, "skinport: min_delay must not be negative")
	}
	if c.Skinport.CommissionRate < 0 || c.Skinport.CommissionRate >= 1 {
		errs = append(errs, fmt.Sprintf("skinport: commission_rate must be in [0, 1), got %v", c.Skinport.CommissionRate))
	}

	// Scanner
	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be positive")
	}
	if c.Scanner.PerCallTimeout.Duration <= 0 {
		errs = append(errs, "scanner: per_call_timeout must be positive")
	}

	// Strategy
	if c.Strategy.MinProfitPct > c.Strategy.MaxProfitPct {
		errs = append(errs, fmt.Sprintf("strategy: min_profit_pct (%v) must not exceed max_profit_pct (%v)",
			c.Strategy.MinProfitPct, c.Strategy.MaxProfitPct))
	}
	if c.Strategy.MinQuantity < 0 {
		errs = append(errs, "strategy: min_quantity must not be negative")
	}

	// Risk
	if c.Risk.MaxInvestmentPerItem <= 0 {
		errs = append(errs, "risk: max_investment_per_item must be positive")
	}
	if c.Risk.MaxTotalInvestment <= 0 {
		errs = append(errs, "risk: max_total_investment must be positive")
	}
	if c.Risk.MaxItemsPerDay < 1 {
		errs = append(errs, "risk: max_items_per_day must be >= 1")
	}

	// Deals
	if c.Deals.DiscountThreshold >= 0 {
		errs = append(errs, fmt.Sprintf("deals: discount_threshold must be negative, got %v", c.Deals.DiscountThreshold))
	}
	if c.Deals.MinVolume < 0 {
		errs = append(errs, "deals: min_volume must not be negative")
	}
	if c.Deals.MinPrice < 0 {
		errs = append(errs, "deals: min_price must not be negative")
	}
	if c.Deals.MaxPrice < c.Deals.MinPrice {
		errs = append(errs, fmt.Sprintf("deals: max_price (%v) must not be below min_price (%v)",
			c.Deals.MaxPrice, c.Deals.MinPrice))
	}
	mode := strings.ToLower(c.Mode)
	if (mode == "deals" || mode == "full") && c.Deals.FeedPath == "" && !c.Redis.Enabled {
		errs = append(errs, "deals: either feed_path or redis must be configured for mode "+mode)
	}
	if mode == "report" && !c.Postgres.Enabled {
		errs = append(errs, "report mode requires postgres to be enabled")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Export
	if c.Export.Enabled && c.Export.Dir == "" {
		errs = append(errs, "export: dir must not be empty when export is enabled")
	}

	// Retention
	if c.Retention.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "retention: requires postgres to be enabled")
		}
		if c.Retention.MaxAge.Duration <= 0 {
			errs = append(errs, "retention: max_age must be positive")
		}
		if c.Retention.Interval.Duration <= 0 {
			errs = append(errs, "retention: interval must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
