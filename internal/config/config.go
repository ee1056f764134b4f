// Package config defines the top-level configuration for curvefleet and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CURVEFLEET_* environment
// variables.
type Config struct {
	Fleet      FleetConfig      `toml:"fleet"`
	Launchpad  LaunchpadConfig  `toml:"launchpad"`
	Settlement SettlementConfig `toml:"settlement"`
	Advisor    AdvisorConfig    `toml:"advisor"`
	Quality    QualityConfig    `toml:"quality"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Agents     []AgentSeed      `toml:"agents"`
	// Strategies carries the hand-tuned exit and sizing numbers per
	// strategy. Kept as data so the values can be revisited without
	// touching control flow.
	Strategies map[string]StrategyTuning `toml:"strategies"`
	Mode       string                    `toml:"mode"`
	LogLevel   string                    `toml:"log_level"`
}

// FleetConfig holds the fleet runner's scheduling and sizing parameters.
type FleetConfig struct {
	CycleInterval      duration `toml:"cycle_interval"`
	InterAgentDelayMin duration `toml:"inter_agent_delay_min"`
	InterAgentDelayMax duration `toml:"inter_agent_delay_max"`
	ScanLimit          int      `toml:"scan_limit"`
	// EnrichTopK caps chart/holder enrichment per cycle to respect
	// upstream rate limits; exceeding it degrades provider access for
	// every agent.
	EnrichTopK   int      `toml:"enrich_top_k"`
	EnrichDelay  duration `toml:"enrich_delay"`
	ClaimTTL     duration `toml:"claim_ttl"`
	SnapshotTTL  duration `toml:"snapshot_ttl"`
	MinTradeMon  float64  `toml:"min_trade_mon"`
	MaxCapitalPct float64 `toml:"max_capital_pct"`
}

// LaunchpadConfig holds the market data provider endpoints.
type LaunchpadConfig struct {
	BaseURL     string   `toml:"base_url"`
	WsURL       string   `toml:"ws_url"`
	APIKey      string   `toml:"api_key"`
	CallTimeout duration `toml:"call_timeout"`
}

// SettlementConfig holds the on-chain vault/router parameters.
type SettlementConfig struct {
	RPCEndpoint      string   `toml:"rpc_endpoint"`
	ChainID          int64    `toml:"chain_id"`
	VaultAddress     string   `toml:"vault_address"`
	RouterAddress    string   `toml:"router_address"`
	OperatorKey      string   `toml:"operator_key"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	CallTimeout      duration `toml:"call_timeout"`
	SlippageBps      int      `toml:"slippage_bps"`
	TxDeadline       duration `toml:"tx_deadline"`
}

// AdvisorConfig holds LLM advisory parameters.
type AdvisorConfig struct {
	Enabled     bool     `toml:"enabled"`
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url"`
	Model       string   `toml:"model"`
	CallTimeout duration `toml:"call_timeout"`
	// FallbackScoreBar is the raw-signal score required to approve a buy
	// when the advisory call fails. Deliberately high so outages bias
	// toward inaction.
	FallbackScoreBar float64 `toml:"fallback_score_bar"`
}

// QualityConfig holds the pre-scoring hard gate thresholds.
type QualityConfig struct {
	MinReserveMon   float64  `toml:"min_reserve_mon"`
	MinHolders      int      `toml:"min_holders"`
	MinAge          duration `toml:"min_age"`
	MinQualityScore float64  `toml:"min_quality_score"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// S3Config holds object storage parameters for trade archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// ServerConfig holds HTTP control-surface parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
	// APIKey guards every route except the health check; empty disables
	// authentication.
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// AgentSeed describes one agent to create at startup.
type AgentSeed struct {
	Name         string `toml:"name"`
	Strategy     string `toml:"strategy"`
	VaultIndex   int64  `toml:"vault_index"`
	RiskProfile  string `toml:"risk_profile"`
	MaxPositions int    `toml:"max_positions"`
	Personality  string `toml:"personality"`
}

// duration wraps time.Duration for TOML string decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Fleet: FleetConfig{
			CycleInterval:      duration{3 * time.Minute},
			InterAgentDelayMin: duration{2 * time.Second},
			InterAgentDelayMax: duration{8 * time.Second},
			ScanLimit:          50,
			EnrichTopK:         10,
			EnrichDelay:        duration{300 * time.Millisecond},
			ClaimTTL:           duration{5 * time.Minute},
			SnapshotTTL:        duration{90 * time.Second},
			MinTradeMon:        0.25,
			MaxCapitalPct:      20,
		},
		Launchpad: LaunchpadConfig{
			BaseURL:     "https://api.curvelaunch.example",
			WsURL:       "wss://ws.curvelaunch.example/tokens",
			CallTimeout: duration{8 * time.Second},
		},
		Settlement: SettlementConfig{
			RPCEndpoint: "http://localhost:8545",
			ChainID:     10143,
			CallTimeout: duration{15 * time.Second},
			SlippageBps: 200,
			TxDeadline:  duration{2 * time.Minute},
		},
		Advisor: AdvisorConfig{
			Enabled:          true,
			Model:            "gpt-4o-mini",
			CallTimeout:      duration{12 * time.Second},
			FallbackScoreBar: 85,
		},
		Quality: QualityConfig{
			MinReserveMon:   5,
			MinHolders:      30,
			MinAge:          duration{10 * time.Minute},
			MinQualityScore: 40,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "curvefleet",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "curvefleet-archive",
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "position_closed", "cycle_error"},
		},
		Agents:     DefaultAgentSeeds(),
		Strategies: DefaultTuning(),
		Mode:       "run",
		LogLevel:   "info",
	}
}

// DefaultAgentSeeds returns one agent per strategy personality.
func DefaultAgentSeeds() []AgentSeed {
	return []AgentSeed{
		{Name: "Blitz", Strategy: "momentum_sniper", VaultIndex: 0, RiskProfile: "aggressive", MaxPositions: 3,
			Personality: "Fast-twitch sniper. Buys strength, hates bags, brags about entries."},
		{Name: "Cassandra", Strategy: "contrarian", VaultIndex: 1, RiskProfile: "balanced", MaxPositions: 3,
			Personality: "Buys fear, sells euphoria. Quotes dead philosophers."},
		{Name: "Ahab", Strategy: "whale_hunter", VaultIndex: 2, RiskProfile: "balanced", MaxPositions: 3,
			Personality: "Follows big wallets wherever they surface. Obsessive."},
		{Name: "Hodlen", Strategy: "diamond_hands", VaultIndex: 3, RiskProfile: "conservative", MaxPositions: 2,
			Personality: "Buys community, holds through noise, sells almost never."},
		{Name: "Tick", Strategy: "scalper", VaultIndex: 4, RiskProfile: "balanced", MaxPositions: 4,
			Personality: "In and out in minutes. Range is life."},
		{Name: "Mango", Strategy: "degen_ape", VaultIndex: 5, RiskProfile: "aggressive", MaxPositions: 4,
			Personality: "Fresh launches only. No chart, no fear."},
		{Name: "Ledger", Strategy: "technical_analyst", VaultIndex: 6, RiskProfile: "conservative", MaxPositions: 3,
			Personality: "The chart is the territory. Never trades against structure."},
		{Name: "Cap", Strategy: "graduate_hunter", VaultIndex: 7, RiskProfile: "balanced", MaxPositions: 3,
			Personality: "Camps the graduation runway. Patience, then commitment."},
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":     true,
	"once":    true,
	"server":  true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, once, server, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Fleet
	if c.Fleet.ScanLimit < 1 {
		errs = append(errs, "fleet: scan_limit must be >= 1")
	}
	if c.Fleet.EnrichTopK < 1 {
		errs = append(errs, "fleet: enrich_top_k must be >= 1")
	}
	if c.Fleet.InterAgentDelayMax.Duration < c.Fleet.InterAgentDelayMin.Duration {
		errs = append(errs, "fleet: inter_agent_delay_max must be >= inter_agent_delay_min")
	}
	if c.Fleet.MaxCapitalPct <= 0 || c.Fleet.MaxCapitalPct > 100 {
		errs = append(errs, fmt.Sprintf("fleet: max_capital_pct must be in (0,100], got %.1f", c.Fleet.MaxCapitalPct))
	}
	if c.Fleet.MinTradeMon <= 0 {
		errs = append(errs, "fleet: min_trade_mon must be > 0")
	}

	// Launchpad
	if c.Launchpad.BaseURL == "" {
		errs = append(errs, "launchpad: base_url must not be empty")
	}

	// Settlement is required for trading modes.
	needsSettlement := c.Mode == "run" || c.Mode == "once"
	if needsSettlement {
		if c.Settlement.RPCEndpoint == "" {
			errs = append(errs, "settlement: rpc_endpoint must not be empty for mode "+c.Mode)
		}
		if c.Settlement.VaultAddress == "" {
			errs = append(errs, "settlement: vault_address must not be empty for mode "+c.Mode)
		}
		if c.Settlement.RouterAddress == "" {
			errs = append(errs, "settlement: router_address must not be empty for mode "+c.Mode)
		}
		if c.Settlement.OperatorKey == "" && c.Settlement.EncryptedKeyPath == "" {
			errs = append(errs, "settlement: either operator_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Settlement.EncryptedKeyPath != "" && c.Settlement.KeyPassword == "" {
			errs = append(errs, "settlement: key_password is required when encrypted_key_path is set")
		}
	}
	if c.Settlement.SlippageBps < 0 || c.Settlement.SlippageBps > 5000 {
		errs = append(errs, fmt.Sprintf("settlement: slippage_bps must be 0-5000, got %d", c.Settlement.SlippageBps))
	}

	// Advisor
	if c.Advisor.Enabled && c.Advisor.APIKey == "" && needsSettlement {
		errs = append(errs, "advisor: api_key is required when the advisor is enabled")
	}
	if c.Advisor.FallbackScoreBar < 0 || c.Advisor.FallbackScoreBar > 100 {
		errs = append(errs, fmt.Sprintf("advisor: fallback_score_bar must be 0-100, got %.0f", c.Advisor.FallbackScoreBar))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 || c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must be 0..pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	// Agents
	if len(c.Agents) == 0 {
		errs = append(errs, "agents: at least one agent must be configured")
	}
	seenVault := map[int64]string{}
	for _, seed := range c.Agents {
		if seed.Name == "" {
			errs = append(errs, "agents: every agent needs a name")
			continue
		}
		kind, err := domain.ParseStrategyKind(seed.Strategy)
		if err != nil {
			errs = append(errs, fmt.Sprintf("agents: %s: %v", seed.Name, err))
			continue
		}
		if _, ok := c.Strategies[kind.String()]; !ok {
			errs = append(errs, fmt.Sprintf("agents: %s: no tuning for strategy %s", seed.Name, kind))
		}
		if other, dup := seenVault[seed.VaultIndex]; dup {
			errs = append(errs, fmt.Sprintf("agents: %s and %s share vault_index %d", other, seed.Name, seed.VaultIndex))
		}
		seenVault[seed.VaultIndex] = seed.Name
		if seed.MaxPositions < 1 {
			errs = append(errs, fmt.Sprintf("agents: %s: max_positions must be >= 1", seed.Name))
		}
	}

	// Tuning
	for name, tuning := range c.Strategies {
		if err := tuning.validate(); err != nil {
			errs = append(errs, fmt.Sprintf("strategies.%s: %v", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
