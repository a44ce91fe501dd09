package amm

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
	"github.com/ayushsaklani-min/Prediction-market/internal/registry"
)

const (
	testAdmin    = domain.Caller("0x00000000000000000000000000000000000000a1")
	testOperator = domain.Caller("0x00000000000000000000000000000000000000b1")
	alice        = domain.Caller("0x00000000000000000000000000000000000000aa")
	bob          = domain.Caller("0x00000000000000000000000000000000000000bb")
)

type testClock struct{ now int64 }

func (c *testClock) Now() int64 { return c.now }

func testMarketID(b byte) domain.MarketID {
	var id domain.MarketID
	id[31] = b
	return id
}

func newTestEngine(t *testing.T, feeBps uint64) (*Engine, *registry.StaticRegistry, *testClock) {
	t.Helper()
	reg := registry.NewStatic()
	clock := &testClock{now: 1_700_000_000}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(Config{
		FeeBps:    feeBps,
		Admin:     testAdmin,
		Operators: []domain.Caller{testOperator},
	}, reg, clock, logger)
	return e, reg, clock
}

// seedMarket registers the market with the registry and creates it with equal
// 1,000,000 reserves, so k = 10^12.
func seedMarket(t *testing.T, e *Engine, reg *registry.StaticRegistry, clock *testClock, id domain.MarketID) {
	t.Helper()
	reg.Set(domain.RegistryMarket{
		MarketID:            id,
		CloseTimestamp:      clock.now + 3600,
		ResolutionTimestamp: clock.now + 3600,
		Active:              true,
	})
	require.NoError(t, e.CreateMarket(context.Background(), testOperator, id, 1_000_000, 1_000_000))
}

func settleAs(t *testing.T, e *Engine, clock *testClock, id domain.MarketID, side domain.Side) {
	t.Helper()
	clock.now += 7200 // past close and resolution
	require.NoError(t, e.SettleMarket(context.Background(), testOperator, id, side))
}

func TestCreateMarket_Success(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	view, err := e.View(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), view.YesPool)
	assert.Equal(t, uint64(1_000_000), view.NoPool)
	assert.Equal(t, "1000000000000", view.K)
	assert.True(t, view.Active)
	assert.False(t, view.Settled)
	assert.Equal(t, domain.SideNone, view.WinningSide)
	assert.Equal(t, uint64(2_000_000), view.TotalLpShares)

	// The creator holds all initial LP shares.
	assert.Equal(t, uint64(2_000_000), e.LpBalanceOf(id, testOperator))
}

func TestCreateMarket_Unauthorized(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	reg.Set(domain.RegistryMarket{MarketID: id, CloseTimestamp: clock.now, ResolutionTimestamp: clock.now, Active: true})

	err := e.CreateMarket(context.Background(), alice, id, 1_000_000, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCreateMarket_NotInRegistry(t *testing.T) {
	e, _, _ := newTestEngine(t, 0)

	err := e.CreateMarket(context.Background(), testOperator, testMarketID(9), 1_000_000, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrUnknownMarket)
}

func TestCreateMarket_ZeroReserves(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	reg.Set(domain.RegistryMarket{MarketID: id, CloseTimestamp: clock.now, ResolutionTimestamp: clock.now, Active: true})

	err := e.CreateMarket(context.Background(), testOperator, id, 0, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateMarket_Duplicate(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	err := e.CreateMarket(context.Background(), testOperator, id, 500, 500)
	assert.ErrorIs(t, err, domain.ErrMarketExists)
}

func TestGetPrice_SumsToOneInBps(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	yes, err := e.GetPrice(id, domain.SideYes)
	require.NoError(t, err)
	no, err := e.GetPrice(id, domain.SideNo)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), yes)
	assert.Equal(t, uint64(5000), no)

	// Skew the pool and the complement must still hold exactly.
	_, err = e.Buy(context.Background(), alice, id, domain.SideYes, 333_337, 1)
	require.NoError(t, err)

	yes, err = e.GetPrice(id, domain.SideYes)
	require.NoError(t, err)
	no, err = e.GetPrice(id, domain.SideNo)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), yes+no)
	assert.Greater(t, yes, uint64(5000))
}

func TestGetPrice_InvalidSide(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	_, err := e.GetPrice(id, domain.SideNone)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)
}

func TestBuy_MintsSharesAndMovesPrice(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	trade, err := e.Buy(context.Background(), alice, id, domain.SideYes, 300_000, 1)
	require.NoError(t, err)

	// newNo = 1,300,000; newYes = ceil(10^12 / 1,300,000) = 769,231.
	assert.Equal(t, uint64(230_769), trade.AmountOut)
	assert.Equal(t, uint64(300_000), trade.AmountIn)
	assert.True(t, trade.IsBuy)
	assert.Equal(t, uint64(0), trade.Fee)
	assert.Equal(t, uint64(230_769), e.BalanceOf(id, domain.SideYes, alice))

	view, err := e.View(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(769_231), view.YesPool)
	assert.Equal(t, uint64(1_300_000), view.NoPool)
	assert.Equal(t, uint64(300_000), view.TotalVolume)
}

func TestBuy_ChargesFee(t *testing.T) {
	e, reg, clock := newTestEngine(t, 30)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	trade, err := e.Buy(context.Background(), alice, id, domain.SideYes, 1_000_000, 1)
	require.NoError(t, err)

	// 30 bps of 1,000,000 is 3,000; only the net enters the pool.
	assert.Equal(t, uint64(3_000), trade.Fee)
	view, err := e.View(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_997_000), view.NoPool)
	assert.Equal(t, uint64(3_000), view.TotalFees)
}

func TestBuy_SlippageProtection(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	_, err := e.Buy(context.Background(), alice, id, domain.SideYes, 300_000, 300_000)
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

	// Nothing changed on failure.
	assert.Zero(t, e.BalanceOf(id, domain.SideYes, alice))
	view, err := e.View(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), view.YesPool)
}

func TestBuy_DustAmountYieldsNoShares(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	// A 1-unit buy rounds to zero shares after the pool-favoring ceil.
	_, err := e.Buy(context.Background(), alice, id, domain.SideYes, 1, 0)
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
}

func TestBuy_Validation(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	_, err := e.Buy(context.Background(), alice, id, domain.SideNone, 100, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)

	_, err = e.Buy(context.Background(), alice, id, domain.SideYes, 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = e.Buy(context.Background(), alice, testMarketID(9), domain.SideYes, 100, 1)
	assert.ErrorIs(t, err, domain.ErrUnknownMarket)
}

func TestSell_RoundTripNeverProfitable(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	buy, err := e.Buy(context.Background(), alice, id, domain.SideYes, 300_000, 1)
	require.NoError(t, err)

	sell, err := e.Sell(context.Background(), alice, id, domain.SideYes, buy.AmountOut, 1)
	require.NoError(t, err)

	// Rounding favors the pool, so the round trip returns at most the input.
	assert.LessOrEqual(t, sell.AmountOut, buy.AmountIn)
	assert.Zero(t, e.BalanceOf(id, domain.SideYes, alice))
}

func TestSell_InsufficientShares(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	_, err := e.Sell(context.Background(), alice, id, domain.SideYes, 100, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestSettleMarket_WindowGating(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	err := e.SettleMarket(context.Background(), testOperator, id, domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrWindowNotElapsed)

	clock.now += 7200
	require.NoError(t, e.SettleMarket(context.Background(), testOperator, id, domain.SideYes))

	err = e.SettleMarket(context.Background(), testOperator, id, domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestSettleMarket_Unauthorized(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)
	clock.now += 7200

	err := e.SettleMarket(context.Background(), alice, id, domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSettleMarket_SplitsCollateralExactly(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	ctx := context.Background()
	_, err := e.Buy(ctx, alice, id, domain.SideYes, 300_000, 1)
	require.NoError(t, err)
	_, err = e.Buy(ctx, bob, id, domain.SideYes, 200_000, 1)
	require.NoError(t, err)

	pre, err := e.View(id)
	require.NoError(t, err)
	collateral := pre.YesPool + pre.NoPool
	winningShares := e.TotalSupply(id, domain.SideYes)

	settleAs(t, e, clock, id, domain.SideYes)

	view, err := e.View(id)
	require.NoError(t, err)
	assert.True(t, view.Settled)
	assert.Equal(t, domain.SideYes, view.WinningSide)
	assert.Equal(t, winningShares, view.WinnerPayoutPool)
	assert.Equal(t, collateral, view.WinnerPayoutPool+view.LpCollateralPool)
	assert.Equal(t, winningShares, view.WinningSharesRemaining)
}

func TestTradingFrozenAfterSettlement(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)
	settleAs(t, e, clock, id, domain.SideYes)

	_, err := e.Buy(context.Background(), alice, id, domain.SideYes, 100, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	_, err = e.Sell(context.Background(), alice, id, domain.SideYes, 100, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestRedeem_ParPayoutAndDrain(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	ctx := context.Background()
	aliceBuy, err := e.Buy(ctx, alice, id, domain.SideYes, 300_000, 1)
	require.NoError(t, err)
	bobBuy, err := e.Buy(ctx, bob, id, domain.SideYes, 200_000, 1)
	require.NoError(t, err)

	settleAs(t, e, clock, id, domain.SideYes)

	// Pool covers par, so every winning share redeems one-for-one.
	payout, err := e.Redeem(ctx, alice, id, domain.SideYes, aliceBuy.AmountOut)
	require.NoError(t, err)
	assert.Equal(t, aliceBuy.AmountOut, payout)

	// Final redemption drains the pool exactly.
	payout, err = e.Redeem(ctx, bob, id, domain.SideYes, bobBuy.AmountOut)
	require.NoError(t, err)
	assert.Equal(t, bobBuy.AmountOut, payout)

	view, err := e.View(id)
	require.NoError(t, err)
	assert.Zero(t, view.WinnerPayoutPool)
	assert.Zero(t, view.WinningSharesRemaining)

	// A drained pool reports exceeds-claimable, regardless of holdings.
	_, err = e.Redeem(ctx, alice, id, domain.SideYes, 1)
	assert.ErrorIs(t, err, domain.ErrExceedsClaimable)
}

func TestRedeem_OverClaimWithLiveBalance(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	ctx := context.Background()
	aliceBuy, err := e.Buy(ctx, alice, id, domain.SideYes, 300_000, 1)
	require.NoError(t, err)
	bobBuy, err := e.Buy(ctx, bob, id, domain.SideYes, 200_000, 1)
	require.NoError(t, err)

	settleAs(t, e, clock, id, domain.SideYes)

	// Bob drains his claim; alice then asks for more than remains. Her
	// balance covers it, but the claimable window does not.
	_, err = e.Redeem(ctx, bob, id, domain.SideYes, bobBuy.AmountOut)
	require.NoError(t, err)

	_, err = e.Redeem(ctx, alice, id, domain.SideYes, aliceBuy.AmountOut+bobBuy.AmountOut)
	assert.ErrorIs(t, err, domain.ErrExceedsClaimable)
}

func TestRedeem_Validation(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	ctx := context.Background()
	buy, err := e.Buy(ctx, alice, id, domain.SideYes, 300_000, 1)
	require.NoError(t, err)

	_, err = e.Redeem(ctx, alice, id, domain.SideYes, buy.AmountOut)
	assert.ErrorIs(t, err, domain.ErrSettleFirst)

	settleAs(t, e, clock, id, domain.SideNo)

	_, err = e.Redeem(ctx, alice, id, domain.SideYes, buy.AmountOut)
	assert.ErrorIs(t, err, domain.ErrNotWinningSide)

	_, err = e.Redeem(ctx, alice, id, domain.SideNo, 100)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestConservation_PoolTracksNetFlows(t *testing.T) {
	e, reg, clock := newTestEngine(t, 0)
	id := testMarketID(1)
	seedMarket(t, e, reg, clock, id)

	ctx := context.Background()
	var in, out uint64
	in += 2_000_000 // initial reserves

	buy, err := e.Buy(ctx, alice, id, domain.SideYes, 400_000, 1)
	require.NoError(t, err)
	in += buy.AmountIn

	buy2, err := e.Buy(ctx, bob, id, domain.SideNo, 150_000, 1)
	require.NoError(t, err)
	in += buy2.AmountIn

	sell, err := e.Sell(ctx, alice, id, domain.SideYes, buy.AmountOut/2, 1)
	require.NoError(t, err)
	out += sell.AmountOut

	// Reserves plus outstanding share claims never fall below net deposits;
	// the pool-favoring rounding can only leave dust on top.
	view, err := e.View(id)
	require.NoError(t, err)
	held := view.YesPool + view.NoPool +
		e.TotalSupply(id, domain.SideYes) + e.TotalSupply(id, domain.SideNo)
	assert.GreaterOrEqual(t, held, in-out)
}
