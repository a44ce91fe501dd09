package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

const (
	alice = domain.Caller("0x00000000000000000000000000000000000000aa")
	bob   = domain.Caller("0x00000000000000000000000000000000000000bb")
)

func mid(b byte) domain.MarketID {
	var id domain.MarketID
	id[31] = b
	return id
}

func TestShareLedger_MintBurn(t *testing.T) {
	l := NewShareLedger()
	m := mid(1)

	l.Mint(m, domain.SideYes, alice, 100)
	l.Mint(m, domain.SideYes, alice, 50)
	l.Mint(m, domain.SideYes, bob, 25)

	assert.Equal(t, uint64(150), l.BalanceOf(m, domain.SideYes, alice))
	assert.Equal(t, uint64(175), l.TotalSupply(m, domain.SideYes))
	assert.Zero(t, l.TotalSupply(m, domain.SideNo))

	require.NoError(t, l.Burn(m, domain.SideYes, alice, 150))
	assert.Zero(t, l.BalanceOf(m, domain.SideYes, alice))
	assert.Equal(t, uint64(25), l.TotalSupply(m, domain.SideYes))
}

func TestShareLedger_BurnInsufficient(t *testing.T) {
	l := NewShareLedger()
	m := mid(1)
	l.Mint(m, domain.SideYes, alice, 10)

	err := l.Burn(m, domain.SideYes, alice, 11)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
	assert.Equal(t, uint64(10), l.BalanceOf(m, domain.SideYes, alice))

	err = l.Burn(m, domain.SideNo, alice, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestShareLedger_SidesAreIndependent(t *testing.T) {
	l := NewShareLedger()
	m := mid(1)

	l.Mint(m, domain.SideYes, alice, 100)
	l.Mint(m, domain.SideNo, alice, 40)

	assert.Equal(t, uint64(100), l.BalanceOf(m, domain.SideYes, alice))
	assert.Equal(t, uint64(40), l.BalanceOf(m, domain.SideNo, alice))
}

func TestShareLedger_PositionsOrdering(t *testing.T) {
	l := NewShareLedger()
	a, b := mid(1), mid(2)

	l.Mint(b, domain.SideYes, bob, 1)
	l.Mint(a, domain.SideNo, bob, 2)
	l.Mint(a, domain.SideNo, alice, 3)
	l.Mint(a, domain.SideYes, alice, 4)

	got := l.Positions()
	require.Len(t, got, 4)
	assert.Equal(t, domain.Position{MarketID: a, Side: domain.SideNo, Owner: alice, Balance: 3}, got[0])
	assert.Equal(t, domain.Position{MarketID: a, Side: domain.SideNo, Owner: bob, Balance: 2}, got[1])
	assert.Equal(t, domain.Position{MarketID: a, Side: domain.SideYes, Owner: alice, Balance: 4}, got[2])
	assert.Equal(t, domain.Position{MarketID: b, Side: domain.SideYes, Owner: bob, Balance: 1}, got[3])

	byMarket := l.PositionsByMarket(b)
	require.Len(t, byMarket, 1)
	assert.Equal(t, bob, byMarket[0].Owner)
}

func TestShareLedger_Restore(t *testing.T) {
	l := NewShareLedger()
	l.Mint(mid(9), domain.SideYes, alice, 999)

	l.Restore([]domain.Position{
		{MarketID: mid(1), Side: domain.SideYes, Owner: alice, Balance: 10},
		{MarketID: mid(1), Side: domain.SideNo, Owner: bob, Balance: 20},
	})

	assert.Zero(t, l.BalanceOf(mid(9), domain.SideYes, alice))
	assert.Equal(t, uint64(10), l.BalanceOf(mid(1), domain.SideYes, alice))
	assert.Equal(t, uint64(20), l.TotalSupply(mid(1), domain.SideNo))
}

func TestStakeVault_DepositRelease(t *testing.T) {
	v := NewStakeVault()
	m := mid(1)

	require.NoError(t, v.Deposit(m, alice, 1_000_000))
	assert.Equal(t, uint64(1_000_000), v.Held(m))

	// One stake per market.
	err := v.Deposit(m, bob, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrAlreadyChallenged)

	holder, amount, err := v.Release(m)
	require.NoError(t, err)
	assert.Equal(t, alice, holder)
	assert.Equal(t, uint64(1_000_000), amount)
	assert.Zero(t, v.Held(m))

	_, _, err = v.Release(m)
	assert.ErrorIs(t, err, domain.ErrNotChallenged)
}
