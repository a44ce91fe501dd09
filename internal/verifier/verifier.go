// Package verifier checks outcome proofs against previously registered
// commitments. It is deliberately fail-closed: an unknown market, a scheme
// mismatch, or an unimplemented scheme all verify to false rather than error.
package verifier

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sort"
	"sync"

	"github.com/ayushsaklani-min/Prediction-market/internal/crypto"
	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// Config carries the verifier's trust anchors.
type Config struct {
	// Submitters may register commitments. Empty means anyone.
	Submitters []domain.Caller

	// Signers are the addresses accepted under the signature scheme.
	Signers []domain.Caller
}

// Verifier stores AI outcome commitments and verifies proofs against them.
type Verifier struct {
	mu          sync.Mutex
	commitments map[domain.MarketID]domain.Commitment
	submitters  map[domain.Caller]bool
	signers     map[domain.Caller]bool
	clock       domain.Clock
	logger      *slog.Logger
}

// New creates a Verifier with the given trust configuration.
func New(cfg Config, clock domain.Clock, logger *slog.Logger) *Verifier {
	v := &Verifier{
		commitments: make(map[domain.MarketID]domain.Commitment),
		submitters:  make(map[domain.Caller]bool, len(cfg.Submitters)),
		signers:     make(map[domain.Caller]bool, len(cfg.Signers)),
		clock:       clock,
		logger:      logger.With(slog.String("component", "verifier")),
	}
	for _, s := range cfg.Submitters {
		v.submitters[domain.NormalizeCaller(string(s))] = true
	}
	for _, s := range cfg.Signers {
		v.signers[domain.NormalizeCaller(string(s))] = true
	}
	return v
}

// CommitAI registers an outcome commitment for a market ahead of resolution.
// A later commit for the same market replaces the earlier one: the latest
// commitment is the one proofs are checked against. The proof bytes are only
// shape-checked here; verification proper happens when the outcome is
// proposed.
func (v *Verifier) CommitAI(ctx context.Context, caller domain.Caller, market domain.MarketID, hash [32]byte, proofType domain.ProofType, proof []byte, ipfsCid string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.submitters) > 0 && !v.submitters[caller] {
		return domain.ErrUnauthorized
	}
	if !proofType.Valid() {
		return domain.ErrProofTypeNotAllowed
	}

	c := domain.Commitment{
		MarketID:       market,
		CommitmentHash: hash,
		ProofType:      proofType,
		Submitter:      caller,
		Timestamp:      v.clock.Now(),
		IpfsCid:        ipfsCid,
		Verified:       hash != [32]byte{} && len(proof) > 0,
	}
	v.commitments[market] = c

	v.logger.InfoContext(ctx, "commitment registered",
		slog.String("market_id", market.String()),
		slog.String("proof_type", proofType.String()),
		slog.String("submitter", string(caller)),
	)
	return nil
}

// VerifyOutcome checks a proposed (result, proof) pair against the market's
// registered commitment. It never errors on bad proofs; it returns false.
func (v *Verifier) VerifyOutcome(ctx context.Context, market domain.MarketID, result domain.Side, proof []byte) bool {
	v.mu.Lock()
	c, ok := v.commitments[market]
	v.mu.Unlock()

	if !ok || !result.Valid() || len(proof) == 0 {
		return false
	}

	switch c.ProofType {
	case domain.ProofTypeHash:
		want := crypto.CommitmentHash(result, proof)
		return subtle.ConstantTimeCompare(want[:], c.CommitmentHash[:]) == 1

	case domain.ProofTypeSignature:
		signer, err := crypto.RecoverOutcomeSigner(market, result, proof)
		if err != nil {
			v.logger.DebugContext(ctx, "signature recovery failed",
				slog.String("market_id", market.String()),
				slog.String("error", err.Error()),
			)
			return false
		}
		return v.signers[signer]

	case domain.ProofTypeZK:
		// No circuit is wired up yet, so the ZK path fails closed.
		return false

	default:
		return false
	}
}

// ProofTypeFor returns the proof scheme the market's active commitment was
// made under, so policy checks can run before verification.
func (v *Verifier) ProofTypeFor(market domain.MarketID) (domain.ProofType, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.commitments[market]
	if !ok {
		return 0, false
	}
	return c.ProofType, true
}

// GetCommitment returns the active commitment for a market.
func (v *Verifier) GetCommitment(market domain.MarketID) (domain.Commitment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.commitments[market]
	if !ok {
		return domain.Commitment{}, domain.ErrNotFound
	}
	return c, nil
}

// Commitments returns all registered commitments ordered by market for
// persistence.
func (v *Verifier) Commitments() []domain.Commitment {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]domain.Commitment, 0, len(v.commitments))
	for _, c := range v.commitments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MarketID.String() < out[j].MarketID.String()
	})
	return out
}

// Restore replaces the verifier's commitment state, used at startup when
// rehydrating from the store.
func (v *Verifier) Restore(commitments []domain.Commitment) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.commitments = make(map[domain.MarketID]domain.Commitment, len(commitments))
	for _, c := range commitments {
		v.commitments[c.MarketID] = c
	}
}
