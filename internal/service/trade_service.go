// Package service orchestrates the settlement core: it drives the AMM engine
// and oracle protocol, persists resulting state, keeps the price cache warm,
// and fans events out over the signal bus.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ayushsaklani-min/Prediction-market/internal/amm"
	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// settlementLockKey guards cross-replica writes; the engine serializes
// in-process and this lock extends the guarantee across deployments sharing
// one database.
const settlementLockKey = "settlement:write"

// lockTTL bounds how long a crashed replica can wedge the write lock.
const lockTTL = 30 * time.Second

// TradeService exposes the AMM operations with persistence and event fan-out.
type TradeService struct {
	engine    *amm.Engine
	markets   domain.MarketStore
	positions domain.PositionStore
	lpShares  domain.LpShareStore
	trades    domain.TradeStore
	prices    domain.PriceCache
	bus       domain.SignalBus
	locks     domain.LockManager
	clock     domain.Clock
	logger    *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	engine *amm.Engine,
	markets domain.MarketStore,
	positions domain.PositionStore,
	lpShares domain.LpShareStore,
	trades domain.TradeStore,
	prices domain.PriceCache,
	bus domain.SignalBus,
	locks domain.LockManager,
	clock domain.Clock,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		engine:    engine,
		markets:   markets,
		positions: positions,
		lpShares:  lpShares,
		trades:    trades,
		prices:    prices,
		bus:       bus,
		locks:     locks,
		clock:     clock,
		logger:    logger.With(slog.String("component", "trade_service")),
	}
}

// withWriteLock runs fn under the cross-replica write lock.
func (s *TradeService) withWriteLock(ctx context.Context, fn func() error) error {
	unlock, err := s.locks.Acquire(ctx, settlementLockKey, lockTTL)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// persistMarket snapshots a market plus its per-market balances to the store
// and refreshes the price cache. Persistence errors are fatal; cache errors
// are logged and swallowed, the cache repopulates on the next write.
func (s *TradeService) persistMarket(ctx context.Context, id domain.MarketID) error {
	m, err := s.engine.Market(id)
	if err != nil {
		return fmt.Errorf("trade_service: snapshot market %s: %w", id, err)
	}
	if err := s.markets.Upsert(ctx, m); err != nil {
		return fmt.Errorf("trade_service: persist market %s: %w", id, err)
	}

	for _, p := range s.engine.Positions(id) {
		if err := s.positions.Upsert(ctx, p); err != nil {
			return fmt.Errorf("trade_service: persist position: %w", err)
		}
	}
	for _, ls := range s.engine.LpSharesByMarket(id) {
		if err := s.lpShares.Upsert(ctx, ls); err != nil {
			return fmt.Errorf("trade_service: persist lp share: %w", err)
		}
	}

	s.refreshPrices(ctx, id, &m)
	return nil
}

func (s *TradeService) refreshPrices(ctx context.Context, id domain.MarketID, m *domain.Market) {
	if m.Settled {
		if err := s.prices.Invalidate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "price cache invalidate failed",
				slog.String("market_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	yesBps, err := s.engine.GetPrice(id, domain.SideYes)
	if err != nil {
		return
	}
	noBps := domain.BpsDenominator - yesBps
	if err := s.prices.SetPrices(ctx, id, yesBps, noBps, s.clock.Now()); err != nil {
		s.logger.WarnContext(ctx, "price cache set failed",
			slog.String("market_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}

// publish wraps a payload in an event envelope and sends it over both the
// ephemeral channel and the durable stream. Bus errors are logged, never
// returned: the ledger is already committed by the time events go out.
func (s *TradeService) publish(ctx context.Context, channel, eventType string, id domain.MarketID, payload any) {
	env := domain.EventEnvelope{
		Type:      eventType,
		MarketID:  id,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, channel, raw); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamEvents, raw); err != nil {
		s.logger.WarnContext(ctx, "stream append failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// PersistMarket snapshots a market to the store and refreshes the price
// cache. Exposed for the settlement service, which mutates engine state
// through the oracle protocol.
func (s *TradeService) PersistMarket(ctx context.Context, id domain.MarketID) error {
	return s.persistMarket(ctx, id)
}

// CreateMarket seeds a new market and persists the initial snapshot.
func (s *TradeService) CreateMarket(ctx context.Context, caller domain.Caller, id domain.MarketID, initialYes, initialNo uint64) error {
	return s.withWriteLock(ctx, func() error {
		if err := s.engine.CreateMarket(ctx, caller, id, initialYes, initialNo); err != nil {
			return err
		}
		if err := s.persistMarket(ctx, id); err != nil {
			return err
		}
		s.publish(ctx, domain.ChannelMarkets, domain.EventMarketCreated, id, nil)
		return nil
	})
}

// Buy executes a buy, journals the trade, and persists the new state.
func (s *TradeService) Buy(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, amountIn, minSharesOut uint64) (domain.Trade, error) {
	var trade domain.Trade
	err := s.withWriteLock(ctx, func() error {
		t, err := s.engine.Buy(ctx, caller, id, side, amountIn, minSharesOut)
		if err != nil {
			return err
		}
		t.ID = uuid.New().String()
		trade = t

		if err := s.trades.Insert(ctx, t); err != nil {
			return fmt.Errorf("trade_service: journal trade: %w", err)
		}
		if err := s.persistMarket(ctx, id); err != nil {
			return err
		}
		s.publish(ctx, domain.ChannelTrades, domain.EventTrade, id, t)
		return nil
	})
	return trade, err
}

// Sell executes a sell, journals the trade, and persists the new state.
func (s *TradeService) Sell(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, sharesIn, minAmountOut uint64) (domain.Trade, error) {
	var trade domain.Trade
	err := s.withWriteLock(ctx, func() error {
		t, err := s.engine.Sell(ctx, caller, id, side, sharesIn, minAmountOut)
		if err != nil {
			return err
		}
		t.ID = uuid.New().String()
		trade = t

		if err := s.trades.Insert(ctx, t); err != nil {
			return fmt.Errorf("trade_service: journal trade: %w", err)
		}
		if err := s.persistMarket(ctx, id); err != nil {
			return err
		}
		s.publish(ctx, domain.ChannelTrades, domain.EventTrade, id, t)
		return nil
	})
	return trade, err
}

// AddLiquidity deposits collateral into an unsettled market.
func (s *TradeService) AddLiquidity(ctx context.Context, caller domain.Caller, id domain.MarketID, amount uint64) (uint64, error) {
	var minted uint64
	err := s.withWriteLock(ctx, func() error {
		lp, err := s.engine.AddLiquidity(ctx, caller, id, amount)
		if err != nil {
			return err
		}
		minted = lp
		if err := s.persistMarket(ctx, id); err != nil {
			return err
		}
		s.publish(ctx, domain.ChannelMarkets, domain.EventLiquidityAdded, id, domain.LiquidityEvent{
			Provider: caller,
			Amount:   amount,
			LpShares: lp,
		})
		return nil
	})
	return minted, err
}

// RemoveLiquidity withdraws an LP's share of the post-settlement collateral.
func (s *TradeService) RemoveLiquidity(ctx context.Context, caller domain.Caller, id domain.MarketID, lpSharesIn uint64) (uint64, error) {
	var payout uint64
	err := s.withWriteLock(ctx, func() error {
		out, err := s.engine.RemoveLiquidity(ctx, caller, id, lpSharesIn)
		if err != nil {
			return err
		}
		payout = out
		if err := s.persistMarket(ctx, id); err != nil {
			return err
		}
		s.publish(ctx, domain.ChannelMarkets, domain.EventLiquidityRemoved, id, domain.LiquidityEvent{
			Provider: caller,
			Amount:   out,
			LpShares: lpSharesIn,
		})
		return nil
	})
	return payout, err
}

// Redeem pays out winning shares on a settled market.
func (s *TradeService) Redeem(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, shares uint64) (uint64, error) {
	var payout uint64
	err := s.withWriteLock(ctx, func() error {
		out, err := s.engine.Redeem(ctx, caller, id, side, shares)
		if err != nil {
			return err
		}
		payout = out
		if err := s.persistMarket(ctx, id); err != nil {
			return err
		}
		s.publish(ctx, domain.ChannelMarkets, domain.EventRedeem, id, domain.RedeemEvent{
			Redeemer: caller,
			Side:     side,
			Shares:   shares,
			Payout:   out,
		})
		return nil
	})
	return payout, err
}

// CollectFees drains accrued trading fees of a settled market to the admin.
func (s *TradeService) CollectFees(ctx context.Context, caller domain.Caller, id domain.MarketID) (uint64, error) {
	var collected uint64
	err := s.withWriteLock(ctx, func() error {
		out, err := s.engine.CollectFees(ctx, caller, id)
		if err != nil {
			return err
		}
		collected = out
		return s.persistMarket(ctx, id)
	})
	return collected, err
}

// GetPrice returns the current bps price of a side, cache-first.
func (s *TradeService) GetPrice(ctx context.Context, id domain.MarketID, side domain.Side) (uint64, error) {
	if !side.Valid() {
		return 0, domain.ErrInvalidSide
	}
	yesBps, noBps, err := s.prices.GetPrices(ctx, id)
	if err == nil {
		if side == domain.SideYes {
			return yesBps, nil
		}
		return noBps, nil
	}

	// Cache miss or error, fall through to the engine.
	return s.engine.GetPrice(id, side)
}

// GetMarket returns a market snapshot from the engine.
func (s *TradeService) GetMarket(id domain.MarketID) (domain.Market, error) {
	return s.engine.Market(id)
}

// GetView returns the external read model of a market.
func (s *TradeService) GetView(id domain.MarketID) (domain.MarketView, error) {
	return s.engine.View(id)
}

// ListMarkets returns snapshots of every market in the engine.
func (s *TradeService) ListMarkets() []domain.Market {
	return s.engine.Markets()
}

// Positions returns every live position in a market.
func (s *TradeService) Positions(id domain.MarketID) []domain.Position {
	return s.engine.Positions(id)
}

// BalanceOf returns the share balance of one owner.
func (s *TradeService) BalanceOf(id domain.MarketID, side domain.Side, owner domain.Caller) uint64 {
	return s.engine.BalanceOf(id, side, owner)
}

// LpBalanceOf returns the LP share balance of one owner.
func (s *TradeService) LpBalanceOf(id domain.MarketID, owner domain.Caller) uint64 {
	return s.engine.LpBalanceOf(id, owner)
}

// ListTrades returns the journalled trades of a market, newest first.
func (s *TradeService) ListTrades(ctx context.Context, id domain.MarketID, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.trades.ListByMarket(ctx, id, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list trades %s: %w", id, err)
	}
	return trades, nil
}
