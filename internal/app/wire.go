package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/curvefleet/internal/advisor"
	s3blob "github.com/alanyoungcy/curvefleet/internal/blob/s3"
	"github.com/alanyoungcy/curvefleet/internal/cache/redis"
	"github.com/alanyoungcy/curvefleet/internal/config"
	"github.com/alanyoungcy/curvefleet/internal/coordinator"
	"github.com/alanyoungcy/curvefleet/internal/crypto"
	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/fleet"
	"github.com/alanyoungcy/curvefleet/internal/learning"
	"github.com/alanyoungcy/curvefleet/internal/lifecycle"
	"github.com/alanyoungcy/curvefleet/internal/market"
	"github.com/alanyoungcy/curvefleet/internal/momentum"
	"github.com/alanyoungcy/curvefleet/internal/notify"
	"github.com/alanyoungcy/curvefleet/internal/quality"
	"github.com/alanyoungcy/curvefleet/internal/regime"
	"github.com/alanyoungcy/curvefleet/internal/settlement"
	"github.com/alanyoungcy/curvefleet/internal/signal"
	"github.com/alanyoungcy/curvefleet/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	Agents   domain.AgentStore
	Holdings domain.HoldingStore
	Trades   domain.TradeStore
	PnL      domain.PnLStore

	// Market data. Launches is the feed-seeded decorator at the top of the
	// provider stack; run mode pushes launch announcements into it.
	Provider domain.MarketDataProvider
	Launches *market.LaunchBuffer

	// Settlement. Nil in monitor mode and in server mode when no operator
	// key is configured; consumers must treat nil as trading disabled.
	Settlement domain.SettlementLayer

	// Decision stack
	Engine   *signal.Engine
	Filter   *quality.Filter
	Detector *regime.Detector
	Monitor  *momentum.Monitor
	Learner  *learning.Controller
	Claims   *coordinator.ClaimRegistry
	Dead     domain.DeadTokenRegistry

	// Blob storage. Nil unless S3 is enabled.
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Orchestration. Manager is nil whenever Settlement is nil; Runner is
	// always built so read-only modes can reuse the cycle view.
	Manager *lifecycle.Manager
	Runner  *fleet.Runner
}

// needsSettlement returns true for modes that cannot run without a wired
// settlement layer.
func needsSettlement(mode string) bool {
	return mode == "run" || mode == "once"
}

// settlementConfigured reports whether the config carries enough settlement
// material to attempt wiring. Server mode uses this to wire trading
// opportunistically.
func settlementConfigured(cfg *config.Config) bool {
	s := cfg.Settlement
	return s.RPCEndpoint != "" && s.VaultAddress != "" && s.RouterAddress != "" &&
		(s.OperatorKey != "" || s.EncryptedKeyPath != "")
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Agents = postgres.NewAgentStore(pool)
	deps.Holdings = postgres.NewHoldingStore(pool)
	tradeStore := postgres.NewTradeStore(pool)
	deps.Trades = tradeStore
	deps.PnL = postgres.NewPnLStore(pool)

	if err := seedAgents(ctx, deps.Agents, cfg.Agents); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: seed agents: %w", err)
	}

	// --- Redis (optional) ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	// --- Market data ---
	client := market.NewClient(cfg.Launchpad.BaseURL, cfg.Launchpad.APIKey,
		cfg.Launchpad.CallTimeout.Duration, logger)
	deps.Provider = client
	if redisClient != nil {
		deps.Provider = market.NewCachedProvider(client,
			redis.NewSnapshotCache(redisClient), cfg.Fleet.SnapshotTTL.Duration, logger)
	}
	deps.Launches = market.NewLaunchBuffer(deps.Provider, logger)
	deps.Provider = deps.Launches

	// Dead-token marks survive restarts only when Redis is wired; the
	// in-memory registry is the single-process fallback.
	if redisClient != nil {
		deps.Dead = redis.NewDeadTokenRegistry(redisClient)
	} else {
		deps.Dead = coordinator.NewDeadTokenRegistry(logger)
	}

	// --- Settlement ---
	if needsSettlement(cfg.Mode) || (cfg.Mode == "server" && settlementConfigured(cfg)) {
		keyHex, err := crypto.LoadOperatorKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Settlement.OperatorKey,
			EncryptedKeyPath: cfg.Settlement.EncryptedKeyPath,
			KeyPassword:      cfg.Settlement.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: operator key: %w", err)
		}
		layer, err := settlement.New(ctx, settlement.Config{
			RPCEndpoint:    cfg.Settlement.RPCEndpoint,
			ChainID:        cfg.Settlement.ChainID,
			VaultAddress:   cfg.Settlement.VaultAddress,
			RouterAddress:  cfg.Settlement.RouterAddress,
			OperatorKeyHex: keyHex,
			CallTimeout:    cfg.Settlement.CallTimeout.Duration,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: settlement: %w", err)
		}
		closers = append(closers, layer.Close)
		deps.Settlement = layer
	}

	// --- Decision stack ---
	deps.Engine, err = signal.NewEngine(logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signal engine: %w", err)
	}
	deps.Filter = quality.NewFilter(quality.Thresholds{
		MinReserveMon:   cfg.Quality.MinReserveMon,
		MinHolders:      cfg.Quality.MinHolders,
		MinAge:          cfg.Quality.MinAge.Duration,
		MinQualityScore: cfg.Quality.MinQualityScore,
	})
	deps.Detector = regime.NewDetector()
	deps.Monitor = momentum.NewMonitor(logger)
	deps.Learner = learning.NewController()
	deps.Claims = coordinator.NewClaimRegistry(logger)

	// --- Advisor ---
	var primary domain.Advisor
	if cfg.Advisor.Enabled && cfg.Advisor.APIKey != "" {
		primary = advisor.NewOpenAI(cfg.Advisor.APIKey, cfg.Advisor.BaseURL,
			cfg.Advisor.Model, cfg.Advisor.CallTimeout.Duration, logger)
	}
	fallback := advisor.NewFallback(cfg.Advisor.FallbackScoreBar)

	// --- S3 blob storage (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			tradeStore,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Orchestration ---
	if deps.Settlement != nil {
		deps.Manager = lifecycle.NewManager(lifecycle.Deps{
			Logger:     logger,
			Settlement: deps.Settlement,
			Provider:   deps.Provider,
			Holdings:   deps.Holdings,
			Trades:     deps.Trades,
			PnL:        deps.PnL,
			Engine:     deps.Engine,
			Advisor:    primary,
			Fallback:   fallback,
			Claims:     deps.Claims,
			Dead:       deps.Dead,
			Monitor:    deps.Monitor,
			Learner:    deps.Learner,
			Notifier:   deps.Notifier,
			Tuning:     cfg.Strategies,
			Settings: lifecycle.Settings{
				MinTradeUnits: int64(cfg.Fleet.MinTradeMon * domain.UnitsPerMon),
				MaxCapitalPct: cfg.Fleet.MaxCapitalPct,
				ClaimTTL:      cfg.Fleet.ClaimTTL.Duration,
				SlippageBps:   cfg.Settlement.SlippageBps,
				TxDeadline:    cfg.Settlement.TxDeadline.Duration,
			},
		})
	}

	deps.Runner = fleet.NewRunner(logger, deps.Agents, deps.Provider, deps.Filter,
		deps.Detector, deps.Manager, deps.Notifier, fleet.Settings{
			ScanLimit:          cfg.Fleet.ScanLimit,
			EnrichTopK:         cfg.Fleet.EnrichTopK,
			EnrichDelay:        cfg.Fleet.EnrichDelay.Duration,
			InterAgentDelayMin: cfg.Fleet.InterAgentDelayMin.Duration,
			InterAgentDelayMax: cfg.Fleet.InterAgentDelayMax.Duration,
		})

	return deps, cleanup, nil
}

// seedAgents upserts the configured agents. IDs are derived from the agent
// name so reseeding after a restart or a config edit targets the same rows.
func seedAgents(ctx context.Context, store domain.AgentStore, seeds []config.AgentSeed) error {
	for _, seed := range seeds {
		kind, err := domain.ParseStrategyKind(seed.Strategy)
		if err != nil {
			return fmt.Errorf("agent %s: %w", seed.Name, err)
		}
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("curvefleet:agent:"+seed.Name))
		agent := domain.Agent{
			ID:           id.String(),
			Kind:         kind,
			DisplayName:  seed.Name,
			VaultIndex:   seed.VaultIndex,
			RiskProfile:  seed.RiskProfile,
			MaxPositions: seed.MaxPositions,
			Personality:  seed.Personality,
			CreatedAt:    time.Now().UTC(),
		}
		if err := store.Upsert(ctx, agent); err != nil {
			return fmt.Errorf("agent %s: %w", seed.Name, err)
		}
	}
	return nil
}
