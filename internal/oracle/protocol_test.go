package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
	"github.com/ayushsaklani-min/Prediction-market/internal/registry"
)

const (
	oracleAddr   = domain.Caller("0x00000000000000000000000000000000000000c1")
	resolverAddr = domain.Caller("0x00000000000000000000000000000000000000d1")
	adminAddr    = domain.Caller("0x00000000000000000000000000000000000000a1")
	treasuryAddr = domain.Caller("0x00000000000000000000000000000000000000e1")
	challenger   = domain.Caller("0x00000000000000000000000000000000000000cc")

	testStake  = uint64(1_000_000)
	testWindow = int64(86_400)
)

type testClock struct{ now int64 }

func (c *testClock) Now() int64 { return c.now }

// stubSettler records settle calls and fails on demand.
type stubSettler struct {
	err   error
	calls int
	last  domain.Side
}

func (s *stubSettler) SettleMarket(_ context.Context, _ domain.Caller, _ domain.MarketID, side domain.Side) error {
	if s.err != nil {
		return s.err
	}
	s.calls++
	s.last = side
	return nil
}

// stubVerifier answers a fixed verdict for every proof.
type stubVerifier struct {
	valid     bool
	proofType domain.ProofType
	committed bool
}

func (v *stubVerifier) VerifyOutcome(context.Context, domain.MarketID, domain.Side, []byte) bool {
	return v.valid
}

func (v *stubVerifier) ProofTypeFor(domain.MarketID) (domain.ProofType, bool) {
	return v.proofType, v.committed
}

func testMarketID(b byte) domain.MarketID {
	var id domain.MarketID
	id[31] = b
	return id
}

type fixture struct {
	protocol *Protocol
	settler  *stubSettler
	verifier *stubVerifier
	clock    *testClock
	market   domain.MarketID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: 1_700_000_000}
	settler := &stubSettler{}
	verifier := &stubVerifier{valid: true, proofType: domain.ProofTypeHash, committed: true}

	reg := registry.NewStatic()
	market := testMarketID(1)
	reg.Set(domain.RegistryMarket{
		MarketID:            market,
		CloseTimestamp:      clock.now - 100,
		ResolutionTimestamp: clock.now - 100,
		Active:              true,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(Config{
		Oracle:             oracleAddr,
		Resolver:           resolverAddr,
		Admin:              adminAddr,
		Treasury:           treasuryAddr,
		Identity:           oracleAddr,
		DisputeStake:       testStake,
		ChallengeWindowSec: testWindow,
	}, verifier, settler, reg, clock, logger)

	return &fixture{protocol: p, settler: settler, verifier: verifier, clock: clock, market: market}
}

func (f *fixture) propose(t *testing.T) {
	t.Helper()
	err := f.protocol.ProposeOutcome(context.Background(), oracleAddr, f.market, domain.SideYes, []byte("proof"))
	require.NoError(t, err)
}

func (f *fixture) challenge(t *testing.T) {
	t.Helper()
	err := f.protocol.ChallengeOutcome(context.Background(), challenger, f.market, domain.SideNo, testStake)
	require.NoError(t, err)
}

func TestProposeOutcome_Success(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	o, err := f.protocol.GetOutcome(f.market)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProposed, o.Status)
	assert.Equal(t, domain.SideYes, o.Result)
	assert.Equal(t, oracleAddr, o.Oracle)
	assert.Equal(t, f.clock.now, o.Timestamp)
}

func TestProposeOutcome_Unauthorized(t *testing.T) {
	f := newFixture(t)
	err := f.protocol.ProposeOutcome(context.Background(), challenger, f.market, domain.SideYes, []byte("proof"))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProposeOutcome_BeforeResolutionTime(t *testing.T) {
	f := newFixture(t)
	f.clock.now -= 1_000 // registry resolution timestamp is now in the future

	err := f.protocol.ProposeOutcome(context.Background(), oracleAddr, f.market, domain.SideYes, []byte("proof"))
	assert.ErrorIs(t, err, domain.ErrWindowNotElapsed)
}

func TestProposeOutcome_UnknownMarket(t *testing.T) {
	f := newFixture(t)
	err := f.protocol.ProposeOutcome(context.Background(), oracleAddr, testMarketID(9), domain.SideYes, []byte("proof"))
	assert.ErrorIs(t, err, domain.ErrUnknownMarket)
}

func TestProposeOutcome_ProofRequired(t *testing.T) {
	f := newFixture(t)
	err := f.protocol.ProposeOutcome(context.Background(), oracleAddr, f.market, domain.SideYes, nil)
	assert.ErrorIs(t, err, domain.ErrProofRequired)
}

func TestProposeOutcome_ProofInvalid(t *testing.T) {
	f := newFixture(t)
	f.verifier.valid = false

	err := f.protocol.ProposeOutcome(context.Background(), oracleAddr, f.market, domain.SideYes, []byte("bad"))
	assert.ErrorIs(t, err, domain.ErrProofInvalid)
}

func TestProposeOutcome_PolicyRejectsScheme(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Only signature proofs allowed; the commitment is hash-based.
	err := f.protocol.SetMarketProofPolicy(ctx, adminAddr, f.market, domain.NewProofPolicy(domain.ProofTypeSignature))
	require.NoError(t, err)

	err = f.protocol.ProposeOutcome(ctx, oracleAddr, f.market, domain.SideYes, []byte("proof"))
	assert.ErrorIs(t, err, domain.ErrProofTypeNotAllowed)
}

func TestProposeOutcome_Twice(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	err := f.protocol.ProposeOutcome(context.Background(), oracleAddr, f.market, domain.SideNo, []byte("proof"))
	assert.ErrorIs(t, err, domain.ErrAlreadyProposed)
}

func TestChallengeOutcome_Success(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)

	o, err := f.protocol.GetOutcome(f.market)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeChallenged, o.Status)

	d, err := f.protocol.GetDispute(f.market)
	require.NoError(t, err)
	assert.Equal(t, challenger, d.Disputer)
	assert.Equal(t, domain.SideNo, d.ProposedResult)
	assert.Equal(t, testStake, d.Stake)
	assert.False(t, d.Resolved)

	assert.Equal(t, testStake, f.protocol.StakeHeld(f.market))
}

func TestChallengeOutcome_NotProposed(t *testing.T) {
	f := newFixture(t)
	err := f.protocol.ChallengeOutcome(context.Background(), challenger, f.market, domain.SideNo, testStake)
	assert.ErrorIs(t, err, domain.ErrNotProposed)
}

func TestChallengeOutcome_WrongStake(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	err := f.protocol.ChallengeOutcome(context.Background(), challenger, f.market, domain.SideNo, testStake-1)
	assert.ErrorIs(t, err, domain.ErrInvalidStake)

	err = f.protocol.ChallengeOutcome(context.Background(), challenger, f.market, domain.SideNo, testStake+1)
	assert.ErrorIs(t, err, domain.ErrInvalidStake)
}

func TestChallengeOutcome_SameSide(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	// The challenger must back the opposite result.
	err := f.protocol.ChallengeOutcome(context.Background(), challenger, f.market, domain.SideYes, testStake)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)
}

func TestChallengeOutcome_WindowExpired(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.clock.now += testWindow

	err := f.protocol.ChallengeOutcome(context.Background(), challenger, f.market, domain.SideNo, testStake)
	assert.ErrorIs(t, err, domain.ErrWindowExpired)
}

func TestChallengeOutcome_Twice(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)

	err := f.protocol.ChallengeOutcome(context.Background(), challenger, f.market, domain.SideNo, testStake)
	assert.ErrorIs(t, err, domain.ErrAlreadyChallenged)
}

func TestResolveDispute_DisputerWins(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)

	refundTo, refund, err := f.protocol.ResolveDispute(context.Background(), resolverAddr, f.market, true, domain.SideNo)
	require.NoError(t, err)
	assert.Equal(t, challenger, refundTo)
	assert.Equal(t, testStake, refund)

	// The market settled to the resolver's stated result.
	assert.Equal(t, 1, f.settler.calls)
	assert.Equal(t, domain.SideNo, f.settler.last)

	o, err := f.protocol.GetOutcome(f.market)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFinalized, o.Status)
	assert.Equal(t, domain.SideNo, o.Result)

	d, err := f.protocol.GetDispute(f.market)
	require.NoError(t, err)
	assert.True(t, d.Resolved)
	assert.True(t, d.Valid)

	assert.Zero(t, f.protocol.StakeHeld(f.market))
	assert.Zero(t, f.protocol.TreasuryBalance())
}

func TestResolveDispute_DisputerLoses(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)

	refundTo, refund, err := f.protocol.ResolveDispute(context.Background(), resolverAddr, f.market, false, domain.SideYes)
	require.NoError(t, err)
	assert.Equal(t, treasuryAddr, refundTo)
	assert.Zero(t, refund)

	// The original result stands; the stake is forfeited.
	assert.Equal(t, domain.SideYes, f.settler.last)
	assert.Equal(t, testStake, f.protocol.TreasuryBalance())

	d, err := f.protocol.GetDispute(f.market)
	require.NoError(t, err)
	assert.True(t, d.Resolved)
	assert.False(t, d.Valid)
}

func TestResolveDispute_Unauthorized(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)

	_, _, err := f.protocol.ResolveDispute(context.Background(), oracleAddr, f.market, true, domain.SideNo)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResolveDispute_InvalidFinalResult(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)

	_, _, err := f.protocol.ResolveDispute(context.Background(), resolverAddr, f.market, true, domain.Side(7))
	assert.ErrorIs(t, err, domain.ErrInvalidSide)

	// The dispute is untouched and still resolvable.
	assert.Zero(t, f.settler.calls)
	assert.Equal(t, testStake, f.protocol.StakeHeld(f.market))
}

func TestResolveDispute_NotChallenged(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	_, _, err := f.protocol.ResolveDispute(context.Background(), resolverAddr, f.market, true, domain.SideNo)
	assert.ErrorIs(t, err, domain.ErrNotChallenged)
}

func TestResolveDispute_SettlementFailureKeepsDisputeOpen(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)

	f.settler.err = errors.New("engine unavailable")
	_, _, err := f.protocol.ResolveDispute(context.Background(), resolverAddr, f.market, true, domain.SideNo)
	require.Error(t, err)

	// Nothing moved: the stake stays escrowed and the dispute is retryable.
	assert.Equal(t, testStake, f.protocol.StakeHeld(f.market))
	o, err := f.protocol.GetOutcome(f.market)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeChallenged, o.Status)

	f.settler.err = nil
	refundTo, refund, err := f.protocol.ResolveDispute(context.Background(), resolverAddr, f.market, true, domain.SideNo)
	require.NoError(t, err)
	assert.Equal(t, challenger, refundTo)
	assert.Equal(t, testStake, refund)
}

func TestFinalizeOutcome_AfterWindow(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	err := f.protocol.FinalizeOutcome(context.Background(), f.market)
	assert.ErrorIs(t, err, domain.ErrWindowNotElapsed)

	f.clock.now += testWindow
	require.NoError(t, f.protocol.FinalizeOutcome(context.Background(), f.market))

	assert.Equal(t, 1, f.settler.calls)
	assert.Equal(t, domain.SideYes, f.settler.last)

	o, err := f.protocol.GetOutcome(f.market)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFinalized, o.Status)

	err = f.protocol.FinalizeOutcome(context.Background(), f.market)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestFinalizeOutcome_NotProposed(t *testing.T) {
	f := newFixture(t)
	err := f.protocol.FinalizeOutcome(context.Background(), f.market)
	assert.ErrorIs(t, err, domain.ErrNotProposed)
}

func TestFinalizeOutcome_BlockedWhileChallenged(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.challenge(t)
	f.clock.now += testWindow

	err := f.protocol.FinalizeOutcome(context.Background(), f.market)
	assert.ErrorIs(t, err, domain.ErrAlreadyChallenged)
}

func TestProposeAfterFinalize(t *testing.T) {
	f := newFixture(t)
	f.propose(t)
	f.clock.now += testWindow
	require.NoError(t, f.protocol.FinalizeOutcome(context.Background(), f.market))

	err := f.protocol.ProposeOutcome(context.Background(), oracleAddr, f.market, domain.SideNo, []byte("proof"))
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestSetMarketProofPolicy_AdminOnly(t *testing.T) {
	f := newFixture(t)
	err := f.protocol.SetMarketProofPolicy(context.Background(), oracleAddr, f.market, domain.NewProofPolicy(domain.ProofTypeHash))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Unset policy is permissive.
	assert.True(t, f.protocol.PolicyFor(f.market).Allows(domain.ProofTypeZK))
}

func TestRestore_ReEscrowsOpenDisputes(t *testing.T) {
	f := newFixture(t)

	f.protocol.Restore(
		[]domain.Outcome{{
			MarketID:  f.market,
			Result:    domain.SideYes,
			Oracle:    oracleAddr,
			Timestamp: f.clock.now,
			Status:    domain.OutcomeChallenged,
		}},
		[]domain.Dispute{{
			MarketID:       f.market,
			Disputer:       challenger,
			ProposedResult: domain.SideNo,
			Stake:          testStake,
			Timestamp:      f.clock.now,
		}},
	)

	assert.Equal(t, testStake, f.protocol.StakeHeld(f.market))

	refundTo, refund, err := f.protocol.ResolveDispute(context.Background(), resolverAddr, f.market, true, domain.SideNo)
	require.NoError(t, err)
	assert.Equal(t, challenger, refundTo)
	assert.Equal(t, testStake, refund)
}
