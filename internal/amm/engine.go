// Package amm implements the constant-product market engine for binary
// outcome markets: pooled collateral, bps pricing, trading, settlement, and
// redemption. All state-mutating operations run strictly one at a time and
// follow check-then-effect discipline: every precondition is validated before
// the first write, so a failed operation leaves no observable change.
package amm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
	"github.com/ayushsaklani-min/Prediction-market/internal/ledger"
)

// Config holds the engine's economic parameters and authorization roles.
type Config struct {
	// FeeBps is the trading fee in basis points, taken on the collateral leg.
	FeeBps uint64

	// Admin may collect accrued fees and is implicitly an operator.
	Admin domain.Caller

	// Operators are the identities allowed to create and settle markets:
	// the market registry and the oracle settlement protocol.
	Operators []domain.Caller
}

// Engine is the AMM market engine. It owns per-market collateral pools and is
// the sole mutator of the outcome-share ledger.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	registry domain.MarketRegistry
	clock    domain.Clock
	shares   *ledger.ShareLedger
	logger   *slog.Logger

	markets   map[domain.MarketID]*domain.Market
	lpShares  map[domain.MarketID]map[domain.Caller]uint64
	feeVault  map[domain.MarketID]uint64 // accrued, uncollected fees
	operators map[domain.Caller]bool
}

// New creates an Engine with empty state.
func New(cfg Config, registry domain.MarketRegistry, clock domain.Clock, logger *slog.Logger) *Engine {
	ops := make(map[domain.Caller]bool, len(cfg.Operators)+1)
	for _, o := range cfg.Operators {
		ops[o] = true
	}
	if cfg.Admin != "" {
		ops[cfg.Admin] = true
	}
	return &Engine{
		cfg:       cfg,
		registry:  registry,
		clock:     clock,
		shares:    ledger.NewShareLedger(),
		logger:    logger.With(slog.String("component", "amm")),
		markets:   make(map[domain.MarketID]*domain.Market),
		lpShares:  make(map[domain.MarketID]map[domain.Caller]uint64),
		feeVault:  make(map[domain.MarketID]uint64),
		operators: ops,
	}
}

func (e *Engine) isOperator(c domain.Caller) bool {
	return e.operators[c]
}

// CreateMarket seeds a new market with initial YES/NO collateral reserves and
// fixes k = initialYes * initialNo. The creator receives LP shares equal to
// the total seeded collateral. Only operators may create markets, and the
// market must already be known to the registry.
func (e *Engine) CreateMarket(ctx context.Context, caller domain.Caller, id domain.MarketID, initialYes, initialNo uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isOperator(caller) {
		return domain.ErrUnauthorized
	}
	if initialYes == 0 || initialNo == 0 {
		return domain.ErrInvalidAmount
	}
	if _, ok := e.markets[id]; ok {
		return domain.ErrMarketExists
	}
	if _, err := e.registry.GetMarket(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnknownMarket
		}
		return fmt.Errorf("amm: registry lookup %s: %w", id, err)
	}

	totalLiquidity, err := addChecked(initialYes, initialNo)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	m := &domain.Market{
		ID:            id,
		YesPool:       initialYes,
		NoPool:        initialNo,
		K:             product(initialYes, initialNo),
		Active:        true,
		WinningSide:   domain.SideNone,
		TotalLpShares: totalLiquidity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e.markets[id] = m
	e.lpShares[id] = map[domain.Caller]uint64{caller: totalLiquidity}

	e.logger.InfoContext(ctx, "market created",
		slog.String("market_id", id.String()),
		slog.Uint64("yes_pool", initialYes),
		slog.Uint64("no_pool", initialNo),
	)
	return nil
}

// GetPrice returns the instantaneous price of a side in basis points. The two
// sides always sum to exactly 10000: the YES price is computed by division
// and the NO price as its complement.
func (e *Engine) GetPrice(id domain.MarketID, side domain.Side) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !side.Valid() {
		return 0, domain.ErrInvalidSide
	}
	m, ok := e.markets[id]
	if !ok {
		return 0, domain.ErrUnknownMarket
	}

	total, err := addChecked(m.YesPool, m.NoPool)
	if err != nil || total == 0 {
		return 0, domain.ErrInvalidAmount
	}
	yesBps := mulDiv(m.NoPool, domain.BpsDenominator, total)
	if side == domain.SideYes {
		return yesBps, nil
	}
	return domain.BpsDenominator - yesBps, nil
}

// Buy swaps collateral for outcome shares of one side. The collateral (net of
// fee) enters the opposite pool; the traded-side pool is recomputed from k
// and the difference is minted to the buyer. Fails with ErrSlippageExceeded
// when fewer than max(minSharesOut, 1) shares would result.
func (e *Engine) Buy(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, amountIn, minSharesOut uint64) (domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero domain.Trade
	if !side.Valid() {
		return zero, domain.ErrInvalidSide
	}
	if amountIn == 0 {
		return zero, domain.ErrInvalidAmount
	}
	m, ok := e.markets[id]
	if !ok {
		return zero, domain.ErrUnknownMarket
	}
	if m.Settled || !m.Active {
		return zero, domain.ErrAlreadySettled
	}

	fee := mulDiv(amountIn, e.cfg.FeeBps, domain.BpsDenominator)
	amountAfterFee := amountIn - fee

	oldSame, oldOpp := m.YesPool, m.NoPool
	if side == domain.SideNo {
		oldSame, oldOpp = m.NoPool, m.YesPool
	}

	newOpp, err := addChecked(oldOpp, amountAfterFee)
	if err != nil {
		return zero, err
	}
	newSame, err := ceilDiv(m.K, newOpp)
	if err != nil {
		return zero, err
	}
	if newSame >= oldSame {
		return zero, domain.ErrSlippageExceeded
	}
	sharesOut := oldSame - newSame

	if minSharesOut < 1 {
		minSharesOut = 1
	}
	if sharesOut < minSharesOut {
		return zero, domain.ErrSlippageExceeded
	}

	// Effects.
	if side == domain.SideYes {
		m.YesPool, m.NoPool = newSame, newOpp
	} else {
		m.NoPool, m.YesPool = newSame, newOpp
	}
	m.TotalVolume += amountIn
	m.TotalFees += fee
	e.feeVault[id] += fee
	e.shares.Mint(id, side, caller, sharesOut)
	m.UpdatedAt = e.clock.Now()

	return domain.Trade{
		MarketID:  id,
		Trader:    caller,
		Side:      side,
		IsBuy:     true,
		AmountIn:  amountIn,
		AmountOut: sharesOut,
		Fee:       fee,
		Timestamp: m.UpdatedAt,
	}, nil
}

// Sell is the inverse of Buy: shares re-enter their own pool, the opposite
// pool is recomputed from k, and the released collateral (net of fee) is paid
// out. The seller's shares are burned.
func (e *Engine) Sell(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, sharesIn, minAmountOut uint64) (domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero domain.Trade
	if !side.Valid() {
		return zero, domain.ErrInvalidSide
	}
	if sharesIn == 0 {
		return zero, domain.ErrInvalidAmount
	}
	m, ok := e.markets[id]
	if !ok {
		return zero, domain.ErrUnknownMarket
	}
	if m.Settled || !m.Active {
		return zero, domain.ErrAlreadySettled
	}
	if e.shares.BalanceOf(id, side, caller) < sharesIn {
		return zero, domain.ErrInsufficientShares
	}

	oldSame, oldOpp := m.YesPool, m.NoPool
	if side == domain.SideNo {
		oldSame, oldOpp = m.NoPool, m.YesPool
	}

	newSame, err := addChecked(oldSame, sharesIn)
	if err != nil {
		return zero, err
	}
	newOpp, err := ceilDiv(m.K, newSame)
	if err != nil {
		return zero, err
	}
	if newOpp >= oldOpp {
		return zero, domain.ErrSlippageExceeded
	}
	gross := oldOpp - newOpp
	fee := mulDiv(gross, e.cfg.FeeBps, domain.BpsDenominator)
	amountOut := gross - fee

	if amountOut < 1 || amountOut < minAmountOut {
		return zero, domain.ErrSlippageExceeded
	}

	// Effects. The burn cannot fail: the balance was checked above and
	// nothing has mutated since.
	if err := e.shares.Burn(id, side, caller, sharesIn); err != nil {
		return zero, err
	}
	if side == domain.SideYes {
		m.YesPool, m.NoPool = newSame, newOpp
	} else {
		m.NoPool, m.YesPool = newSame, newOpp
	}
	m.TotalVolume += gross
	m.TotalFees += fee
	e.feeVault[id] += fee
	m.UpdatedAt = e.clock.Now()

	return domain.Trade{
		MarketID:  id,
		Trader:    caller,
		Side:      side,
		IsBuy:     false,
		AmountIn:  sharesIn,
		AmountOut: amountOut,
		Fee:       fee,
		Timestamp: m.UpdatedAt,
	}, nil
}

// SettleMarket freezes a market on its winning side and splits the pooled
// collateral C = yesPool + noPool into the winner payout pool and the LP
// collateral pool, conserving C exactly. Gated to operators, to markets past
// their registry close and resolution timestamps, and to a single invocation.
func (e *Engine) SettleMarket(ctx context.Context, caller domain.Caller, id domain.MarketID, winningSide domain.Side) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isOperator(caller) {
		return domain.ErrUnauthorized
	}
	if !winningSide.Valid() {
		return domain.ErrInvalidSide
	}
	m, ok := e.markets[id]
	if !ok {
		return domain.ErrUnknownMarket
	}
	if m.Settled {
		return domain.ErrAlreadySettled
	}

	reg, err := e.registry.GetMarket(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnknownMarket
		}
		return fmt.Errorf("amm: registry lookup %s: %w", id, err)
	}
	now := e.clock.Now()
	if now < reg.CloseTimestamp || now < reg.ResolutionTimestamp {
		return domain.ErrWindowNotElapsed
	}

	collateral, err := addChecked(m.YesPool, m.NoPool)
	if err != nil {
		return err
	}
	winningShares := e.shares.TotalSupply(id, winningSide)

	// Each winning share is worth one collateral unit at par; when the pot
	// cannot cover par the winners share it pro rata and LPs get nothing
	// beyond the remainder.
	winnerPool := winningShares
	if winnerPool > collateral {
		winnerPool = collateral
	}

	// Effects.
	m.Settled = true
	m.Active = false
	m.WinningSide = winningSide
	m.WinnerPayoutPool = winnerPool
	m.LpCollateralPool = collateral - winnerPool
	m.WinningSharesRemaining = winningShares
	m.UpdatedAt = now

	e.logger.InfoContext(ctx, "market settled",
		slog.String("market_id", id.String()),
		slog.String("winning_side", winningSide.String()),
		slog.Uint64("winner_payout_pool", m.WinnerPayoutPool),
		slog.Uint64("lp_collateral_pool", m.LpCollateralPool),
	)
	return nil
}

// Redeem burns winning-side shares after settlement and pays out pro rata
// against the remaining winner pool. The payout uses floor division with
// dust retained in the pool; the final redemption drains the pool exactly.
func (e *Engine) Redeem(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, shares uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !side.Valid() {
		return 0, domain.ErrInvalidSide
	}
	if shares == 0 {
		return 0, domain.ErrInvalidAmount
	}
	m, ok := e.markets[id]
	if !ok {
		return 0, domain.ErrUnknownMarket
	}
	if !m.Settled {
		return 0, domain.ErrSettleFirst
	}
	if side != m.WinningSide {
		return 0, domain.ErrNotWinningSide
	}
	// Claimable is checked before the caller's balance so a drained pool
	// always reports ErrExceedsClaimable, whatever the caller still holds.
	if shares > m.WinningSharesRemaining {
		return 0, domain.ErrExceedsClaimable
	}
	if e.shares.BalanceOf(id, side, caller) < shares {
		return 0, domain.ErrInsufficientShares
	}

	var payout uint64
	if shares == m.WinningSharesRemaining {
		payout = m.WinnerPayoutPool
	} else {
		payout = mulDiv(shares, m.WinnerPayoutPool, m.WinningSharesRemaining)
	}
	if payout > m.WinnerPayoutPool {
		return 0, domain.ErrExceedsClaimable
	}

	// Effects.
	if err := e.shares.Burn(id, side, caller, shares); err != nil {
		return 0, err
	}
	m.WinnerPayoutPool -= payout
	m.WinningSharesRemaining -= shares
	m.UpdatedAt = e.clock.Now()

	return payout, nil
}

// View returns a consistent snapshot of the market's read model.
func (e *Engine) View(id domain.MarketID) (domain.MarketView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return domain.MarketView{}, domain.ErrUnknownMarket
	}
	return m.View(), nil
}

// Markets returns snapshots of every market, for listing and persistence.
func (e *Engine) Markets() []domain.Market {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Market, 0, len(e.markets))
	for _, m := range e.markets {
		out = append(out, m.Clone())
	}
	return out
}

// Market returns a snapshot of one market's full state.
func (e *Engine) Market(id domain.MarketID) (domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrUnknownMarket
	}
	return m.Clone(), nil
}

// BalanceOf returns the caller's outcome-share balance.
func (e *Engine) BalanceOf(id domain.MarketID, side domain.Side, owner domain.Caller) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shares.BalanceOf(id, side, owner)
}

// TotalSupply returns outstanding shares for (market, side).
func (e *Engine) TotalSupply(id domain.MarketID, side domain.Side) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shares.TotalSupply(id, side)
}

// Positions returns the share snapshot of one market for persistence.
func (e *Engine) Positions(id domain.MarketID) []domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shares.PositionsByMarket(id)
}

// Restore rebuilds engine state from persisted snapshots. Called once at
// startup before the engine serves any operation.
func (e *Engine) Restore(markets []domain.Market, positions []domain.Position, lps []domain.LpShare) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.markets = make(map[domain.MarketID]*domain.Market, len(markets))
	e.lpShares = make(map[domain.MarketID]map[domain.Caller]uint64)
	for i := range markets {
		m := markets[i].Clone()
		if m.K == nil {
			m.K = product(m.YesPool, m.NoPool)
		}
		e.markets[m.ID] = &m
	}
	e.shares.Restore(positions)
	for _, lp := range lps {
		book := e.lpShares[lp.MarketID]
		if book == nil {
			book = make(map[domain.Caller]uint64)
			e.lpShares[lp.MarketID] = book
		}
		book[lp.Owner] += lp.Shares
	}
}
