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
// built-in defaults, applies CURVEFLEET_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CURVEFLEET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Fleet ──
	setDuration(&cfg.Fleet.CycleInterval, "CURVEFLEET_FLEET_CYCLE_INTERVAL")
	setInt(&cfg.Fleet.ScanLimit, "CURVEFLEET_FLEET_SCAN_LIMIT")
	setInt(&cfg.Fleet.EnrichTopK, "CURVEFLEET_FLEET_ENRICH_TOP_K")
	setDuration(&cfg.Fleet.ClaimTTL, "CURVEFLEET_FLEET_CLAIM_TTL")
	setDuration(&cfg.Fleet.SnapshotTTL, "CURVEFLEET_FLEET_SNAPSHOT_TTL")
	setFloat64(&cfg.Fleet.MinTradeMon, "CURVEFLEET_FLEET_MIN_TRADE_MON")
	setFloat64(&cfg.Fleet.MaxCapitalPct, "CURVEFLEET_FLEET_MAX_CAPITAL_PCT")

	// ── Launchpad ──
	setStr(&cfg.Launchpad.BaseURL, "CURVEFLEET_LAUNCHPAD_BASE_URL")
	setStr(&cfg.Launchpad.WsURL, "CURVEFLEET_LAUNCHPAD_WS_URL")
	setStr(&cfg.Launchpad.APIKey, "CURVEFLEET_LAUNCHPAD_API_KEY")
	setDuration(&cfg.Launchpad.CallTimeout, "CURVEFLEET_LAUNCHPAD_CALL_TIMEOUT")

	// ── Settlement ──
	setStr(&cfg.Settlement.RPCEndpoint, "CURVEFLEET_SETTLEMENT_RPC_ENDPOINT")
	setInt64(&cfg.Settlement.ChainID, "CURVEFLEET_SETTLEMENT_CHAIN_ID")
	setStr(&cfg.Settlement.VaultAddress, "CURVEFLEET_SETTLEMENT_VAULT_ADDRESS")
	setStr(&cfg.Settlement.RouterAddress, "CURVEFLEET_SETTLEMENT_ROUTER_ADDRESS")
	setStr(&cfg.Settlement.OperatorKey, "CURVEFLEET_SETTLEMENT_OPERATOR_KEY")
	setStr(&cfg.Settlement.EncryptedKeyPath, "CURVEFLEET_SETTLEMENT_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Settlement.KeyPassword, "CURVEFLEET_SETTLEMENT_KEY_PASSWORD")
	setInt(&cfg.Settlement.SlippageBps, "CURVEFLEET_SETTLEMENT_SLIPPAGE_BPS")

	// ── Advisor ──
	setBool(&cfg.Advisor.Enabled, "CURVEFLEET_ADVISOR_ENABLED")
	setStr(&cfg.Advisor.APIKey, "CURVEFLEET_ADVISOR_API_KEY")
	setStr(&cfg.Advisor.APIKey, "OPENAI_API_KEY") // compatibility alias
	setStr(&cfg.Advisor.BaseURL, "CURVEFLEET_ADVISOR_BASE_URL")
	setStr(&cfg.Advisor.Model, "CURVEFLEET_ADVISOR_MODEL")
	setFloat64(&cfg.Advisor.FallbackScoreBar, "CURVEFLEET_ADVISOR_FALLBACK_SCORE_BAR")

	// ── Quality ──
	setFloat64(&cfg.Quality.MinReserveMon, "CURVEFLEET_QUALITY_MIN_RESERVE_MON")
	setInt(&cfg.Quality.MinHolders, "CURVEFLEET_QUALITY_MIN_HOLDERS")
	setDuration(&cfg.Quality.MinAge, "CURVEFLEET_QUALITY_MIN_AGE")
	setFloat64(&cfg.Quality.MinQualityScore, "CURVEFLEET_QUALITY_MIN_QUALITY_SCORE")

	// ── Database ──
	setStr(&cfg.Database.DSN, "CURVEFLEET_DATABASE_DSN")
	setStr(&cfg.Database.Host, "CURVEFLEET_DATABASE_HOST")
	setInt(&cfg.Database.Port, "CURVEFLEET_DATABASE_PORT")
	setStr(&cfg.Database.Database, "CURVEFLEET_DATABASE_NAME")
	setStr(&cfg.Database.User, "CURVEFLEET_DATABASE_USER")
	setStr(&cfg.Database.Password, "CURVEFLEET_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "CURVEFLEET_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "CURVEFLEET_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "CURVEFLEET_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "CURVEFLEET_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CURVEFLEET_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CURVEFLEET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CURVEFLEET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CURVEFLEET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CURVEFLEET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CURVEFLEET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CURVEFLEET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CURVEFLEET_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CURVEFLEET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CURVEFLEET_S3_REGION")
	setStr(&cfg.S3.Bucket, "CURVEFLEET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CURVEFLEET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CURVEFLEET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CURVEFLEET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CURVEFLEET_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "CURVEFLEET_S3_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CURVEFLEET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CURVEFLEET_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "CURVEFLEET_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "CURVEFLEET_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CURVEFLEET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CURVEFLEET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CURVEFLEET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CURVEFLEET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CURVEFLEET_MODE")
	setStr(&cfg.LogLevel, "CURVEFLEET_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
