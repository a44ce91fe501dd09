// Package ledger holds the balance books of the settlement core: outcome
// share positions per (market, side, owner) and the stake escrow backing
// oracle disputes. Both are plain in-memory books with no locking of their
// own; the owning component serializes access.
package ledger

import (
	"sort"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

type shareKey struct {
	market domain.MarketID
	side   domain.Side
}

// ShareLedger tracks outcome-share balances. The AMM engine is the only
// mutator: shares are minted on buy, burned on sell and redeem. There is no
// transfer path.
type ShareLedger struct {
	balances map[shareKey]map[domain.Caller]uint64
	supply   map[shareKey]uint64
}

// NewShareLedger creates an empty ledger.
func NewShareLedger() *ShareLedger {
	return &ShareLedger{
		balances: make(map[shareKey]map[domain.Caller]uint64),
		supply:   make(map[shareKey]uint64),
	}
}

// Mint credits n shares of (market, side) to owner.
func (l *ShareLedger) Mint(market domain.MarketID, side domain.Side, owner domain.Caller, n uint64) {
	if n == 0 {
		return
	}
	k := shareKey{market, side}
	book := l.balances[k]
	if book == nil {
		book = make(map[domain.Caller]uint64)
		l.balances[k] = book
	}
	book[owner] += n
	l.supply[k] += n
}

// Burn debits n shares of (market, side) from owner. It fails with
// ErrInsufficientShares before touching any state.
func (l *ShareLedger) Burn(market domain.MarketID, side domain.Side, owner domain.Caller, n uint64) error {
	if n == 0 {
		return nil
	}
	k := shareKey{market, side}
	book := l.balances[k]
	if book == nil || book[owner] < n {
		return domain.ErrInsufficientShares
	}
	book[owner] -= n
	if book[owner] == 0 {
		delete(book, owner)
	}
	l.supply[k] -= n
	return nil
}

// BalanceOf returns owner's share balance for (market, side).
func (l *ShareLedger) BalanceOf(market domain.MarketID, side domain.Side, owner domain.Caller) uint64 {
	return l.balances[shareKey{market, side}][owner]
}

// TotalSupply returns the outstanding shares of (market, side).
func (l *ShareLedger) TotalSupply(market domain.MarketID, side domain.Side) uint64 {
	return l.supply[shareKey{market, side}]
}

// Positions returns every non-zero balance, ordered deterministically, for
// snapshot persistence.
func (l *ShareLedger) Positions() []domain.Position {
	var out []domain.Position
	for k, book := range l.balances {
		for owner, bal := range book {
			if bal == 0 {
				continue
			}
			out = append(out, domain.Position{
				MarketID: k.market,
				Side:     k.side,
				Owner:    owner,
				Balance:  bal,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MarketID != b.MarketID {
			return a.MarketID.String() < b.MarketID.String()
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.Owner < b.Owner
	})
	return out
}

// PositionsByMarket returns the non-zero balances of one market.
func (l *ShareLedger) PositionsByMarket(market domain.MarketID) []domain.Position {
	var out []domain.Position
	for _, p := range l.Positions() {
		if p.MarketID == market {
			out = append(out, p)
		}
	}
	return out
}

// Restore replaces the ledger contents with the given snapshot.
func (l *ShareLedger) Restore(positions []domain.Position) {
	l.balances = make(map[shareKey]map[domain.Caller]uint64)
	l.supply = make(map[shareKey]uint64)
	for _, p := range positions {
		l.Mint(p.MarketID, p.Side, p.Owner, p.Balance)
	}
}
