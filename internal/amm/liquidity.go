package amm

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// AddLiquidity deposits collateral into an unsettled market, split across the
// two reserves in their current ratio, and mints LP shares proportional to
// the contribution. The invariant k is re-fixed from the enlarged reserves.
func (e *Engine) AddLiquidity(ctx context.Context, caller domain.Caller, id domain.MarketID, amount uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == 0 {
		return 0, domain.ErrInvalidAmount
	}
	m, ok := e.markets[id]
	if !ok {
		return 0, domain.ErrUnknownMarket
	}
	if m.Settled {
		return 0, domain.ErrAlreadySettled
	}

	total, err := addChecked(m.YesPool, m.NoPool)
	if err != nil || total == 0 {
		return 0, domain.ErrInvalidAmount
	}

	yesAdd := mulDiv(amount, m.YesPool, total)
	noAdd := amount - yesAdd
	minted := mulDiv(amount, m.TotalLpShares, total)
	if minted == 0 {
		return 0, domain.ErrInvalidAmount
	}

	newYes, err := addChecked(m.YesPool, yesAdd)
	if err != nil {
		return 0, err
	}
	newNo, err := addChecked(m.NoPool, noAdd)
	if err != nil {
		return 0, err
	}
	newTotalLp, err := addChecked(m.TotalLpShares, minted)
	if err != nil {
		return 0, err
	}

	// Effects.
	m.YesPool, m.NoPool = newYes, newNo
	m.K = product(newYes, newNo)
	m.TotalLpShares = newTotalLp
	book := e.lpShares[id]
	if book == nil {
		book = make(map[domain.Caller]uint64)
		e.lpShares[id] = book
	}
	book[caller] += minted
	m.UpdatedAt = e.clock.Now()

	e.logger.InfoContext(ctx, "liquidity added",
		slog.String("market_id", id.String()),
		slog.Uint64("amount", amount),
		slog.Uint64("lp_shares", minted),
	)
	return minted, nil
}

// RemoveLiquidity withdraws an LP's pro-rata claim on the LP collateral pool.
// Withdrawal is blocked until the market settles: LPs carry outcome risk and
// cannot exit ahead of it.
func (e *Engine) RemoveLiquidity(ctx context.Context, caller domain.Caller, id domain.MarketID, lpShares uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lpShares == 0 {
		return 0, domain.ErrInvalidAmount
	}
	m, ok := e.markets[id]
	if !ok {
		return 0, domain.ErrUnknownMarket
	}
	if !m.Settled {
		return 0, domain.ErrSettleFirst
	}
	book := e.lpShares[id]
	if book == nil || book[caller] < lpShares {
		return 0, domain.ErrInsufficientShares
	}

	var payout uint64
	if lpShares == m.TotalLpShares {
		payout = m.LpCollateralPool
	} else {
		payout = mulDiv(lpShares, m.LpCollateralPool, m.TotalLpShares)
	}

	// Effects.
	book[caller] -= lpShares
	if book[caller] == 0 {
		delete(book, caller)
	}
	m.TotalLpShares -= lpShares
	m.LpCollateralPool -= payout
	m.UpdatedAt = e.clock.Now()

	e.logger.InfoContext(ctx, "liquidity removed",
		slog.String("market_id", id.String()),
		slog.Uint64("lp_shares", lpShares),
		slog.Uint64("payout", payout),
	)
	return payout, nil
}

// CollectFees drains the accrued trading fees of a settled market to the
// admin. Fees accrue outside the reserves, so collection never touches the
// payout pools.
func (e *Engine) CollectFees(ctx context.Context, caller domain.Caller, id domain.MarketID) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Admin {
		return 0, domain.ErrUnauthorized
	}
	m, ok := e.markets[id]
	if !ok {
		return 0, domain.ErrUnknownMarket
	}
	if !m.Settled {
		return 0, domain.ErrSettleFirst
	}

	collected := e.feeVault[id]
	e.feeVault[id] = 0
	return collected, nil
}

// LpBalanceOf returns the caller's LP share balance for a market.
func (e *Engine) LpBalanceOf(id domain.MarketID, owner domain.Caller) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lpShares[id][owner]
}

// LpSharesByMarket returns the LP share snapshot of one market, ordered by
// owner, for persistence.
func (e *Engine) LpSharesByMarket(id domain.MarketID) []domain.LpShare {
	e.mu.Lock()
	defer e.mu.Unlock()

	book := e.lpShares[id]
	out := make([]domain.LpShare, 0, len(book))
	for owner, shares := range book {
		out = append(out, domain.LpShare{MarketID: id, Owner: owner, Shares: shares})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}
