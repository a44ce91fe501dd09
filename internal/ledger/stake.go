package ledger

import "github.com/ayushsaklani-min/Prediction-market/internal/domain"

type stake struct {
	holder domain.Caller
	amount uint64
}

// StakeVault escrows exactly one dispute stake per challenged market until
// the dispute is resolved.
type StakeVault struct {
	stakes map[domain.MarketID]stake
}

// NewStakeVault creates an empty vault.
func NewStakeVault() *StakeVault {
	return &StakeVault{stakes: make(map[domain.MarketID]stake)}
}

// Deposit escrows a stake for the given market. A market can hold at most one
// stake at a time.
func (v *StakeVault) Deposit(market domain.MarketID, holder domain.Caller, amount uint64) error {
	if _, ok := v.stakes[market]; ok {
		return domain.ErrAlreadyChallenged
	}
	v.stakes[market] = stake{holder: holder, amount: amount}
	return nil
}

// Release removes and returns the escrowed stake for the market.
func (v *StakeVault) Release(market domain.MarketID) (domain.Caller, uint64, error) {
	s, ok := v.stakes[market]
	if !ok {
		return "", 0, domain.ErrNotChallenged
	}
	delete(v.stakes, market)
	return s.holder, s.amount, nil
}

// Held returns the escrowed amount for the market, zero if none.
func (v *StakeVault) Held(market domain.MarketID) uint64 {
	return v.stakes[market].amount
}
