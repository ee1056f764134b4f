package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/curvefleet/internal/domain"
	"github.com/alanyoungcy/curvefleet/internal/market"
	"github.com/alanyoungcy/curvefleet/internal/server"
	"github.com/alanyoungcy/curvefleet/internal/server/handler"
)

// RunMode is the normal operating mode: the fleet cycles on a timer, the
// launch feed streams new tokens, trades are archived on schedule, and the
// HTTP control surface is served if enabled.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode",
		slog.Duration("cycle_interval", a.cfg.Fleet.CycleInterval.Duration))

	g, ctx := errgroup.WithContext(ctx)

	// Fleet cycle loop. The first cycle runs immediately so a restart does
	// not leave positions unmanaged for a full interval.
	g.Go(func() error {
		a.runFleetCycle(ctx, deps)
		ticker := time.NewTicker(a.cfg.Fleet.CycleInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.runFleetCycle(ctx, deps)
			}
		}
	})

	// Launch feed: seeds the scan's recent-token list the moment a token
	// appears on the curve. Discovery still goes through the polled scan, so
	// a feed outage never blinds the fleet.
	if a.cfg.Launchpad.WsURL != "" {
		feed := market.NewTokenFeed(a.cfg.Launchpad.WsURL, a.logger)
		feed.OnTokenCreated(func(t domain.TokenSummary) {
			deps.Launches.Note(t)
			a.logger.InfoContext(ctx, "token launched",
				slog.String("token", t.Address),
				slog.String("symbol", t.Symbol),
				slog.String("name", t.Name))
		})
		if err := feed.Connect(ctx); err != nil {
			a.logger.WarnContext(ctx, "launch feed unavailable",
				slog.String("error", err.Error()))
		} else {
			g.Go(func() error {
				<-ctx.Done()
				return feed.Close()
			})
		}
	}

	// Trade archival: move rows past the retention window into object
	// storage once a day.
	if deps.Archiver != nil && a.cfg.S3.RetentionDays > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.S3.RetentionDays)
					n, err := deps.Archiver.ArchiveTrades(ctx, cutoff)
					if err != nil {
						a.logger.ErrorContext(ctx, "trade archival failed",
							slog.String("error", err.Error()))
						continue
					}
					if n > 0 {
						a.logger.InfoContext(ctx, "trades archived",
							slog.Int64("count", n),
							slog.Time("cutoff", cutoff))
					}
				}
			}
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, true)
	}

	return g.Wait()
}

// OnceMode runs a single fleet cycle and exits. Useful for cron-style
// operation and smoke testing a config against production services.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")

	results, err := deps.Runner.RunFleetCycle(ctx)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}
	for _, res := range results {
		a.logger.InfoContext(ctx, "agent result",
			slog.String("agent", res.AgentName),
			slog.String("status", res.Status),
			slog.String("error", res.Error))
	}
	return nil
}

// ServerMode serves the HTTP control surface without a cycle timer. Cycles
// run only when triggered through the API, and only if settlement is wired.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode",
		slog.Bool("trading", deps.Manager != nil))

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, deps.Manager != nil)
	return g.Wait()
}

// MonitorMode scores the market on the fleet cadence without ever touching
// settlement: every interval it builds the shared cycle view and logs each
// agent's top-ranked candidates. The HTTP surface is served read-only.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.monitorOnce(ctx, deps)
		ticker := time.NewTicker(a.cfg.Fleet.CycleInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.monitorOnce(ctx, deps)
			}
		}
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, false)
	}

	return g.Wait()
}

// runFleetCycle executes one fleet cycle and logs the outcome. Cycle errors
// are logged rather than propagated so one bad cycle never stops the loop.
func (a *App) runFleetCycle(ctx context.Context, deps *Dependencies) {
	if ctx.Err() != nil {
		return
	}
	results, err := deps.Runner.RunFleetCycle(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "fleet cycle failed", slog.String("error", err.Error()))
		return
	}
	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	a.logger.InfoContext(ctx, "fleet cycle complete",
		slog.Int("agents", len(results)),
		slog.Int("failed", failed))
}

// monitorOnce scores the current candidate set through every agent's strategy
// and logs the leaders.
func (a *App) monitorOnce(ctx context.Context, deps *Dependencies) {
	agents, err := deps.Agents.List(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "monitor: list agents failed", slog.String("error", err.Error()))
		return
	}

	in := deps.Runner.BuildCycleInput(ctx)
	a.logger.InfoContext(ctx, "monitor sweep",
		slog.Int("candidates", len(in.Candidates)),
		slog.String("regime", in.Regime.Regime.String()),
		slog.Float64("regime_confidence", in.Regime.Confidence))

	now := time.Now()
	for _, agent := range agents {
		ranked := deps.Engine.Rank(agent.Kind, in.Candidates, now)
		for i, sig := range ranked {
			if i >= 3 {
				break
			}
			a.logger.InfoContext(ctx, "monitor signal",
				slog.String("agent", agent.DisplayName),
				slog.String("strategy", agent.Kind.String()),
				slog.String("token", sig.Token),
				slog.String("symbol", sig.Symbol),
				slog.Float64("score", sig.Score))
		}
	}
}

// startHTTPServer adds the control-surface goroutines to the errgroup. When
// trading is false the cycle-trigger endpoints answer 503 instead of running
// against a nil manager.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, trading bool) {
	var runner handler.FleetRunner
	if trading {
		runner = deps.Runner
	}
	var archives handler.ArchiveLister
	if deps.Archiver != nil {
		archives = deps.Archiver
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Status:   handler.NewStatusHandler(a.cfg.Mode, time.Now().UTC(), deps.Agents, deps.Holdings, a.logger),
		Fleet:    handler.NewFleetHandler(runner, a.logger),
		Claims:   handler.NewClaimsHandler(deps.Claims),
		PnL:      handler.NewPnLHandler(deps.PnL, a.logger),
		Archives: handler.NewArchivesHandler(archives, a.logger),
	}, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
