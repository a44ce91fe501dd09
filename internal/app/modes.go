package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayushsaklani-min/Prediction-market/internal/amm"
	"github.com/ayushsaklani-min/Prediction-market/internal/crypto"
	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
	"github.com/ayushsaklani-min/Prediction-market/internal/oracle"
	"github.com/ayushsaklani-min/Prediction-market/internal/server"
	"github.com/ayushsaklani-min/Prediction-market/internal/server/handler"
	"github.com/ayushsaklani-min/Prediction-market/internal/server/ws"
	"github.com/ayushsaklani-min/Prediction-market/internal/service"
	"github.com/ayushsaklani-min/Prediction-market/internal/verifier"
)

// core bundles the settlement engine and its service facades.
type core struct {
	trades     *service.TradeService
	settlement *service.SettlementService
}

// buildCore constructs the AMM engine, proof verifier, and oracle protocol,
// then restores their in-memory state from the stores.
func (a *App) buildCore(ctx context.Context, deps *Dependencies) (*core, error) {
	callers := func(addrs []string) []domain.Caller {
		out := make([]domain.Caller, 0, len(addrs))
		for _, s := range addrs {
			out = append(out, domain.NormalizeCaller(s))
		}
		return out
	}

	// The protocol settles the engine under the oracle's identity, so the
	// oracle address must be an engine operator.
	identity := domain.NormalizeCaller(a.cfg.Oracle.Oracle)
	operators := append(callers(a.cfg.Engine.Operators), identity)

	engine := amm.New(amm.Config{
		FeeBps:    a.cfg.Engine.FeeBps,
		Admin:     domain.NormalizeCaller(a.cfg.Engine.Admin),
		Operators: operators,
	}, deps.Registry, a.clock, a.logger)

	signers := callers(a.cfg.Verifier.Signers)
	if a.cfg.Oracle.PrivateKey != "" || a.cfg.Oracle.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    a.cfg.Oracle.PrivateKey,
			EncryptedKeyPath: a.cfg.Oracle.EncryptedKeyPath,
			KeyPassword:      a.cfg.Oracle.KeyPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("app: load oracle key: %w", err)
		}
		signer, err := crypto.NewOutcomeSigner(keyHex)
		if err != nil {
			return nil, fmt.Errorf("app: oracle signer: %w", err)
		}
		signers = append(signers, signer.Address())
		a.logger.InfoContext(ctx, "oracle signing key loaded",
			slog.String("address", string(signer.Address())),
		)
	}

	proofVerifier := verifier.New(verifier.Config{
		Submitters: callers(a.cfg.Verifier.Submitters),
		Signers:    signers,
	}, a.clock, a.logger)

	protocol := oracle.New(oracle.Config{
		Oracle:             domain.NormalizeCaller(a.cfg.Oracle.Oracle),
		Resolver:           domain.NormalizeCaller(a.cfg.Oracle.Resolver),
		Admin:              domain.NormalizeCaller(a.cfg.Oracle.Admin),
		Treasury:           domain.NormalizeCaller(a.cfg.Oracle.Treasury),
		Identity:           identity,
		DisputeStake:       a.cfg.Oracle.DisputeStake,
		ChallengeWindowSec: a.cfg.Oracle.ChallengeWindowSec,
	}, proofVerifier, engine, deps.Registry, a.clock, a.logger)

	trades := service.NewTradeService(
		engine,
		deps.MarketStore, deps.PositionStore, deps.LpShareStore, deps.TradeStore,
		deps.PriceCache, deps.SignalBus, deps.LockManager,
		a.clock, a.logger,
	)
	settlement := service.NewSettlementService(
		protocol, proofVerifier, trades,
		deps.OutcomeStore, deps.CommitmentStore,
		deps.SignalBus, deps.AuditStore, deps.Notifier, deps.Archiver,
		a.clock, a.logger,
	)

	if err := a.restoreState(ctx, deps, engine, protocol, proofVerifier); err != nil {
		return nil, err
	}

	return &core{trades: trades, settlement: settlement}, nil
}

// restoreState rehydrates the in-memory engine, protocol, and verifier from
// the persistent stores so a restart carries on where the last process left
// off.
func (a *App) restoreState(
	ctx context.Context,
	deps *Dependencies,
	engine *amm.Engine,
	protocol *oracle.Protocol,
	proofVerifier *verifier.Verifier,
) error {
	markets, err := deps.MarketStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("app: restore markets: %w", err)
	}
	positions, err := deps.PositionStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("app: restore positions: %w", err)
	}
	lps, err := deps.LpShareStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("app: restore lp shares: %w", err)
	}
	engine.Restore(markets, positions, lps)

	outcomes, err := deps.OutcomeStore.ListOutcomes(ctx)
	if err != nil {
		return fmt.Errorf("app: restore outcomes: %w", err)
	}
	disputes, err := deps.OutcomeStore.ListDisputes(ctx)
	if err != nil {
		return fmt.Errorf("app: restore disputes: %w", err)
	}
	protocol.Restore(outcomes, disputes)

	commitments, err := deps.CommitmentStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("app: restore commitments: %w", err)
	}
	proofVerifier.Restore(commitments)

	a.logger.InfoContext(ctx, "state restored",
		slog.Int("markets", len(markets)),
		slog.Int("positions", len(positions)),
		slog.Int("lp_shares", len(lps)),
		slog.Int("outcomes", len(outcomes)),
		slog.Int("disputes", len(disputes)),
		slog.Int("commitments", len(commitments)),
	)
	return nil
}

// ServeMode runs the HTTP + WebSocket API on top of the settlement core.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, c)
	return g.Wait()
}

// ArchiveMode runs only the periodic trade archival sweep. The settlement
// core stays cold; another replica serves traffic.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires archive.enabled and s3 configuration")
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startArchiveLoop(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API server and, when enabled, the archival sweep in one
// process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, c)
	}
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		a.startArchiveLoop(ctx, g, deps)
	}
	return g.Wait()
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *core) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Health, a.logger),
		Markets: handler.NewMarketHandler(c.trades, a.logger),
		Trades:  handler.NewTradeHandler(c.trades, a.logger),
		Oracle:  handler.NewOracleHandler(c.settlement, a.logger),
	}
	if deps.BlobReader != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiveLoop adds the periodic trade archival goroutine to the given
// errgroup. Each cycle sweeps trades older than the retention window into
// object storage.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := int64(a.cfg.Archive.RetentionDays) * 86400

	g.Go(func() error {
		a.logger.InfoContext(ctx, "archive loop started",
			slog.Duration("interval", interval),
			slog.Int("retention_days", a.cfg.Archive.RetentionDays),
		)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				cutoff := a.clock.Now() - retention
				archived, err := deps.Archiver.ArchiveTradesBefore(ctx, cutoff)
				if err != nil {
					a.logger.ErrorContext(ctx, "archive sweep failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				if archived > 0 {
					a.logger.InfoContext(ctx, "archive sweep complete",
						slog.Int64("trades", archived),
						slog.Int64("cutoff", cutoff),
					)
				}
			}
		}
	})
}
