package verifier

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushsaklani-min/Prediction-market/internal/crypto"
	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// Throwaway secp256k1 test keys, never used anywhere real.
const (
	signerKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	outsiderKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

const submitter = domain.Caller("0x00000000000000000000000000000000000000f1")

type testClock struct{ now int64 }

func (c *testClock) Now() int64 { return c.now }

func testMarketID(b byte) domain.MarketID {
	var id domain.MarketID
	id[31] = b
	return id
}

func newTestVerifier(t *testing.T, cfg Config) *Verifier {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, &testClock{now: 1_700_000_000}, logger)
}

func TestVerifyOutcome_HashScheme(t *testing.T) {
	v := newTestVerifier(t, Config{})
	ctx := context.Background()
	market := testMarketID(1)
	proof := []byte("resolution evidence")

	hash := crypto.CommitmentHash(domain.SideYes, proof)
	require.NoError(t, v.CommitAI(ctx, submitter, market, hash, domain.ProofTypeHash, proof, "QmTest"))

	c, err := v.GetCommitment(market)
	require.NoError(t, err)
	assert.True(t, c.Verified)

	assert.True(t, v.VerifyOutcome(ctx, market, domain.SideYes, proof))

	// Wrong result or wrong proof bytes fail.
	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideNo, proof))
	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideYes, []byte("other evidence")))
}

func TestVerifyOutcome_SignatureScheme(t *testing.T) {
	signer, err := crypto.NewOutcomeSigner(signerKeyHex)
	require.NoError(t, err)

	v := newTestVerifier(t, Config{Signers: []domain.Caller{signer.Address()}})
	ctx := context.Background()
	market := testMarketID(1)

	require.NoError(t, v.CommitAI(ctx, submitter, market, [32]byte{1}, domain.ProofTypeSignature, []byte{1}, ""))

	sig, err := signer.SignOutcome(market, domain.SideYes)
	require.NoError(t, err)
	assert.True(t, v.VerifyOutcome(ctx, market, domain.SideYes, sig))

	// The signature binds the result: replaying it for the other side fails.
	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideNo, sig))

	// A valid signature from an unlisted signer fails.
	outsider, err := crypto.NewOutcomeSigner(outsiderKeyHex)
	require.NoError(t, err)
	badSig, err := outsider.SignOutcome(market, domain.SideYes)
	require.NoError(t, err)
	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideYes, badSig))

	// Malformed signatures fail closed rather than error.
	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideYes, []byte("short")))
}

func TestVerifyOutcome_ZKFailsClosed(t *testing.T) {
	v := newTestVerifier(t, Config{})
	ctx := context.Background()
	market := testMarketID(1)

	require.NoError(t, v.CommitAI(ctx, submitter, market, [32]byte{1}, domain.ProofTypeZK, []byte{0x12, 0x34}, ""))
	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideYes, []byte("anything")))
}

func TestVerifyOutcome_NoCommitment(t *testing.T) {
	v := newTestVerifier(t, Config{})
	assert.False(t, v.VerifyOutcome(context.Background(), testMarketID(9), domain.SideYes, []byte("proof")))
}

func TestVerifyOutcome_EmptyProof(t *testing.T) {
	v := newTestVerifier(t, Config{})
	ctx := context.Background()
	market := testMarketID(1)

	hash := crypto.CommitmentHash(domain.SideYes, []byte{})
	require.NoError(t, v.CommitAI(ctx, submitter, market, hash, domain.ProofTypeHash, nil, ""))
	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideYes, nil))

	// An empty proof leaves the commitment advisory-unverified.
	c, err := v.GetCommitment(market)
	require.NoError(t, err)
	assert.False(t, c.Verified)
}

func TestCommitAI_SubmitterAllowlist(t *testing.T) {
	v := newTestVerifier(t, Config{Submitters: []domain.Caller{submitter}})
	ctx := context.Background()

	err := v.CommitAI(ctx, domain.Caller("0xsomeoneelse"), testMarketID(1), [32]byte{1}, domain.ProofTypeHash, []byte{1}, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, v.CommitAI(ctx, submitter, testMarketID(1), [32]byte{1}, domain.ProofTypeHash, []byte{1}, ""))
}

func TestCommitAI_InvalidProofType(t *testing.T) {
	v := newTestVerifier(t, Config{})
	err := v.CommitAI(context.Background(), submitter, testMarketID(1), [32]byte{1}, domain.ProofType(9), []byte{1}, "")
	assert.ErrorIs(t, err, domain.ErrProofTypeNotAllowed)
}

func TestCommitAI_LatestCommitmentWins(t *testing.T) {
	v := newTestVerifier(t, Config{})
	ctx := context.Background()
	market := testMarketID(1)

	oldProof := []byte("first run")
	newProof := []byte("second run")

	require.NoError(t, v.CommitAI(ctx, submitter, market, crypto.CommitmentHash(domain.SideYes, oldProof), domain.ProofTypeHash, oldProof, ""))
	require.NoError(t, v.CommitAI(ctx, submitter, market, crypto.CommitmentHash(domain.SideYes, newProof), domain.ProofTypeHash, newProof, ""))

	assert.False(t, v.VerifyOutcome(ctx, market, domain.SideYes, oldProof))
	assert.True(t, v.VerifyOutcome(ctx, market, domain.SideYes, newProof))
}

func TestProofTypeFor(t *testing.T) {
	v := newTestVerifier(t, Config{})
	market := testMarketID(1)

	_, ok := v.ProofTypeFor(market)
	assert.False(t, ok)

	require.NoError(t, v.CommitAI(context.Background(), submitter, market, [32]byte{1}, domain.ProofTypeSignature, []byte{1}, ""))
	pt, ok := v.ProofTypeFor(market)
	require.True(t, ok)
	assert.Equal(t, domain.ProofTypeSignature, pt)
}

func TestRestore_ReplacesCommitments(t *testing.T) {
	v := newTestVerifier(t, Config{})
	ctx := context.Background()
	require.NoError(t, v.CommitAI(ctx, submitter, testMarketID(9), [32]byte{9}, domain.ProofTypeHash, []byte{9}, ""))

	proof := []byte("proof")
	v.Restore([]domain.Commitment{{
		MarketID:       testMarketID(1),
		CommitmentHash: crypto.CommitmentHash(domain.SideNo, proof),
		ProofType:      domain.ProofTypeHash,
		Submitter:      submitter,
	}})

	_, err := v.GetCommitment(testMarketID(9))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, v.VerifyOutcome(ctx, testMarketID(1), domain.SideNo, proof))
}
