package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SKINARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SKINARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Sources ──
	setStr(&cfg.LisSkins.BaseURL, "SKINARB_LISSKINS_BASE_URL")
	setDuration(&cfg.LisSkins.MinDelay, "SKINARB_LISSKINS_MIN_DELAY")
	setStr(&cfg.Skinport.BaseURL, "SKINARB_SKINPORT_BASE_URL")
	setInt(&cfg.Skinport.AppID, "SKINARB_SKINPORT_APP_ID")
	setStr(&cfg.Skinport.Currency, "SKINARB_SKINPORT_CURRENCY")
	setBool(&cfg.Skinport.Tradable, "SKINARB_SKINPORT_TRADABLE")
	setDuration(&cfg.Skinport.MinDelay, "SKINARB_SKINPORT_MIN_DELAY")
	setFloat64(&cfg.Skinport.CommissionRate, "SKINARB_SKINPORT_COMMISSION_RATE")

	// ── Scanner ──
	setDuration(&cfg.Scanner.Interval, "SKINARB_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.PerCallTimeout, "SKINARB_SCANNER_PER_CALL_TIMEOUT")
	setBool(&cfg.Scanner.RescaleProfit, "SKINARB_SCANNER_RESCALE_PROFIT")

	// ── Strategy ──
	setFloat64(&cfg.Strategy.MinProfitPct, "SKINARB_STRATEGY_MIN_PROFIT_PCT")
	setFloat64(&cfg.Strategy.MaxProfitPct, "SKINARB_STRATEGY_MAX_PROFIT_PCT")
	setInt(&cfg.Strategy.MinQuantity, "SKINARB_STRATEGY_MIN_QUANTITY")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxInvestmentPerItem, "SKINARB_RISK_MAX_INVESTMENT_PER_ITEM")
	setFloat64(&cfg.Risk.MaxTotalInvestment, "SKINARB_RISK_MAX_TOTAL_INVESTMENT")
	setInt(&cfg.Risk.MaxItemsPerDay, "SKINARB_RISK_MAX_ITEMS_PER_DAY")

	// ── Deals ──
	setFloat64(&cfg.Deals.DiscountThreshold, "SKINARB_DEALS_DISCOUNT_THRESHOLD")
	setFloat64(&cfg.Deals.MinVolume, "SKINARB_DEALS_MIN_VOLUME")
	setFloat64(&cfg.Deals.MinPrice, "SKINARB_DEALS_MIN_PRICE")
	setFloat64(&cfg.Deals.MaxPrice, "SKINARB_DEALS_MAX_PRICE")
	setStr(&cfg.Deals.FeedPath, "SKINARB_DEALS_FEED_PATH")
	setDuration(&cfg.Deals.Interval, "SKINARB_DEALS_INTERVAL")
	setDuration(&cfg.Deals.MaxFeedAge, "SKINARB_DEALS_MAX_FEED_AGE")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SKINARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SKINARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SKINARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SKINARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SKINARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SKINARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SKINARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SKINARB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SKINARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SKINARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SKINARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SKINARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SKINARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SKINARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SKINARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SKINARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SKINARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SKINARB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SKINARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SKINARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SKINARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "SKINARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SKINARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SKINARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SKINARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SKINARB_S3_FORCE_PATH_STYLE")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "SKINARB_EXPORT_ENABLED")
	setStr(&cfg.Export.Dir, "SKINARB_EXPORT_DIR")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SKINARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SKINARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SKINARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SKINARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SKINARB_MODE")
	setStr(&cfg.LogLevel, "SKINARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
