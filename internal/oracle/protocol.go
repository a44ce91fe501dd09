// Package oracle implements the optimistic outcome protocol: an authorized
// oracle proposes a proven outcome, anyone may challenge it with a stake
// inside the challenge window, and a resolver (or window expiry) finalizes
// the market through the settlement engine.
package oracle

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
	"github.com/ayushsaklani-min/Prediction-market/internal/ledger"
)

// Settler is the slice of the settlement engine the protocol drives.
type Settler interface {
	SettleMarket(ctx context.Context, caller domain.Caller, id domain.MarketID, winningSide domain.Side) error
}

// ProofVerifier checks proposal proofs against registered commitments.
type ProofVerifier interface {
	VerifyOutcome(ctx context.Context, market domain.MarketID, result domain.Side, proof []byte) bool
	ProofTypeFor(market domain.MarketID) (domain.ProofType, bool)
}

// Config carries the protocol's roles and dispute parameters.
type Config struct {
	Oracle   domain.Caller
	Resolver domain.Caller
	Admin    domain.Caller
	Treasury domain.Caller

	// Identity is the caller the protocol settles the engine as. It must be
	// registered as an engine operator.
	Identity domain.Caller

	// DisputeStake is the exact stake a challenge must post.
	DisputeStake uint64

	// ChallengeWindowSec is how long after a proposal challenges are accepted.
	ChallengeWindowSec int64
}

// Protocol is the oracle state machine. A single mutex serializes all
// transitions; engine settlement happens before any protocol state is
// mutated so a failed settlement leaves the proposal intact.
type Protocol struct {
	mu sync.Mutex

	cfg      Config
	verifier ProofVerifier
	settler  Settler
	registry domain.MarketRegistry
	clock    domain.Clock
	logger   *slog.Logger

	outcomes map[domain.MarketID]*domain.Outcome
	disputes map[domain.MarketID]*domain.Dispute
	policies map[domain.MarketID]domain.ProofPolicy
	vault    *ledger.StakeVault

	treasuryBalance uint64
}

// New creates a Protocol. Role addresses in cfg are normalized.
func New(cfg Config, verifier ProofVerifier, settler Settler, registry domain.MarketRegistry, clock domain.Clock, logger *slog.Logger) *Protocol {
	cfg.Oracle = domain.NormalizeCaller(string(cfg.Oracle))
	cfg.Resolver = domain.NormalizeCaller(string(cfg.Resolver))
	cfg.Admin = domain.NormalizeCaller(string(cfg.Admin))
	cfg.Treasury = domain.NormalizeCaller(string(cfg.Treasury))
	cfg.Identity = domain.NormalizeCaller(string(cfg.Identity))

	return &Protocol{
		cfg:      cfg,
		verifier: verifier,
		settler:  settler,
		registry: registry,
		clock:    clock,
		logger:   logger.With(slog.String("component", "oracle")),
		outcomes: make(map[domain.MarketID]*domain.Outcome),
		disputes: make(map[domain.MarketID]*domain.Dispute),
		policies: make(map[domain.MarketID]domain.ProofPolicy),
		vault:    ledger.NewStakeVault(),
	}
}

// ProposeOutcome records a proven outcome for a market past its resolution
// time. The proof must verify under the market's registered commitment and
// the commitment's scheme must be allowed by the market's proof policy.
func (p *Protocol) ProposeOutcome(ctx context.Context, caller domain.Caller, market domain.MarketID, result domain.Side, proof []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.cfg.Oracle {
		return domain.ErrUnauthorized
	}
	if !result.Valid() {
		return domain.ErrInvalidSide
	}

	rm, err := p.registry.GetMarket(ctx, market)
	if err != nil {
		return domain.ErrUnknownMarket
	}
	now := p.clock.Now()
	if now < rm.ResolutionTimestamp {
		return domain.ErrWindowNotElapsed
	}

	if o, ok := p.outcomes[market]; ok {
		if o.Status == domain.OutcomeFinalized {
			return domain.ErrAlreadyFinalized
		}
		return domain.ErrAlreadyProposed
	}

	if len(proof) == 0 {
		return domain.ErrProofRequired
	}
	if pt, ok := p.verifier.ProofTypeFor(market); ok {
		if !p.policies[market].Allows(pt) {
			return domain.ErrProofTypeNotAllowed
		}
	}
	if !p.verifier.VerifyOutcome(ctx, market, result, proof) {
		return domain.ErrProofInvalid
	}

	p.outcomes[market] = &domain.Outcome{
		MarketID:  market,
		Result:    result,
		Oracle:    caller,
		Timestamp: now,
		Status:    domain.OutcomeProposed,
	}

	p.logger.InfoContext(ctx, "outcome proposed",
		slog.String("market_id", market.String()),
		slog.String("result", result.String()),
		slog.Int64("challenge_deadline", now+p.cfg.ChallengeWindowSec),
	)
	return nil
}

// ChallengeOutcome escrows a stake against a proposed outcome inside the
// challenge window. The challenger must back the opposite result and post
// exactly the configured stake.
func (p *Protocol) ChallengeOutcome(ctx context.Context, caller domain.Caller, market domain.MarketID, proposedResult domain.Side, stake uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.outcomes[market]
	if !ok || o.Status == domain.OutcomeNone {
		return domain.ErrNotProposed
	}
	switch o.Status {
	case domain.OutcomeChallenged:
		return domain.ErrAlreadyChallenged
	case domain.OutcomeFinalized:
		return domain.ErrAlreadyFinalized
	}

	now := p.clock.Now()
	if now >= o.Timestamp+p.cfg.ChallengeWindowSec {
		return domain.ErrWindowExpired
	}
	if !proposedResult.Valid() || proposedResult == o.Result {
		return domain.ErrInvalidSide
	}
	if stake != p.cfg.DisputeStake {
		return domain.ErrInvalidStake
	}

	if err := p.vault.Deposit(market, caller, stake); err != nil {
		return err
	}
	o.Status = domain.OutcomeChallenged
	p.disputes[market] = &domain.Dispute{
		MarketID:       market,
		Disputer:       caller,
		ProposedResult: proposedResult,
		Stake:          stake,
		Timestamp:      now,
	}

	p.logger.InfoContext(ctx, "outcome challenged",
		slog.String("market_id", market.String()),
		slog.String("disputer", string(caller)),
		slog.String("proposed_result", proposedResult.String()),
		slog.Uint64("stake", stake),
	)
	return nil
}

// ResolveDispute rules on a challenged outcome. The resolver states the
// final result explicitly; the market settles to it regardless of who won.
// disputerWins only routes the escrowed stake: refunded to the disputer on a
// win, forfeited to the treasury on a loss. The refund amount and recipient
// are returned so the caller can credit it.
func (p *Protocol) ResolveDispute(ctx context.Context, caller domain.Caller, market domain.MarketID, disputerWins bool, finalResult domain.Side) (domain.Caller, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.cfg.Resolver {
		return "", 0, domain.ErrUnauthorized
	}
	if !finalResult.Valid() {
		return "", 0, domain.ErrInvalidSide
	}
	o, ok := p.outcomes[market]
	if !ok || o.Status != domain.OutcomeChallenged {
		return "", 0, domain.ErrNotChallenged
	}
	d, ok := p.disputes[market]
	if !ok || d.Resolved {
		return "", 0, domain.ErrNotChallenged
	}

	// Settle the engine before touching protocol state: if it fails, the
	// dispute stays open and can be retried.
	if err := p.settler.SettleMarket(ctx, p.cfg.Identity, market, finalResult); err != nil {
		return "", 0, err
	}

	holder, amount, err := p.vault.Release(market)
	if err != nil {
		return "", 0, err
	}

	d.Resolved = true
	d.Valid = disputerWins
	o.Result = finalResult
	o.Status = domain.OutcomeFinalized
	o.Timestamp = p.clock.Now()

	refundTo := holder
	refund := amount
	if !disputerWins {
		p.treasuryBalance += amount
		refundTo = p.cfg.Treasury
		refund = 0
	}

	p.logger.InfoContext(ctx, "dispute resolved",
		slog.String("market_id", market.String()),
		slog.Bool("disputer_wins", disputerWins),
		slog.String("final_result", finalResult.String()),
		slog.Uint64("refund", refund),
	)
	return refundTo, refund, nil
}

// FinalizeOutcome settles an unchallenged proposal once the challenge window
// has fully elapsed. Callable by anyone.
func (p *Protocol) FinalizeOutcome(ctx context.Context, market domain.MarketID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.outcomes[market]
	if !ok || o.Status == domain.OutcomeNone {
		return domain.ErrNotProposed
	}
	switch o.Status {
	case domain.OutcomeChallenged:
		return domain.ErrAlreadyChallenged
	case domain.OutcomeFinalized:
		return domain.ErrAlreadyFinalized
	}

	now := p.clock.Now()
	if now < o.Timestamp+p.cfg.ChallengeWindowSec {
		return domain.ErrWindowNotElapsed
	}

	if err := p.settler.SettleMarket(ctx, p.cfg.Identity, market, o.Result); err != nil {
		return err
	}

	o.Status = domain.OutcomeFinalized
	o.Timestamp = now

	p.logger.InfoContext(ctx, "outcome finalized",
		slog.String("market_id", market.String()),
		slog.String("result", o.Result.String()),
	)
	return nil
}

// SetMarketProofPolicy restricts which proof schemes a market accepts.
// Admin only. Replaces any previous policy for the market.
func (p *Protocol) SetMarketProofPolicy(ctx context.Context, caller domain.Caller, market domain.MarketID, policy domain.ProofPolicy) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.cfg.Admin {
		return domain.ErrUnauthorized
	}
	p.policies[market] = policy

	p.logger.InfoContext(ctx, "proof policy set",
		slog.String("market_id", market.String()),
		slog.Any("allowed", policy.Types()),
	)
	return nil
}

// PolicyFor returns the market's proof policy (the permissive zero value
// when none was set).
func (p *Protocol) PolicyFor(market domain.MarketID) domain.ProofPolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policies[market]
}

// GetOutcome returns the oracle state for a market.
func (p *Protocol) GetOutcome(market domain.MarketID) (domain.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.outcomes[market]
	if !ok {
		return domain.Outcome{}, domain.ErrNotFound
	}
	return *o, nil
}

// GetDispute returns the dispute for a market, if any.
func (p *Protocol) GetDispute(market domain.MarketID) (domain.Dispute, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.disputes[market]
	if !ok {
		return domain.Dispute{}, domain.ErrNotFound
	}
	return *d, nil
}

// StakeHeld returns the escrowed dispute stake for a market.
func (p *Protocol) StakeHeld(market domain.MarketID) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vault.Held(market)
}

// TreasuryBalance returns the total forfeited stake accumulated so far.
func (p *Protocol) TreasuryBalance() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.treasuryBalance
}

// Outcomes returns all outcomes ordered by market for persistence.
func (p *Protocol) Outcomes() []domain.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Outcome, 0, len(p.outcomes))
	for _, o := range p.outcomes {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MarketID.String() < out[j].MarketID.String()
	})
	return out
}

// Disputes returns all disputes ordered by market for persistence.
func (p *Protocol) Disputes() []domain.Dispute {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Dispute, 0, len(p.disputes))
	for _, d := range p.disputes {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MarketID.String() < out[j].MarketID.String()
	})
	return out
}

// Restore replaces protocol state from persisted outcomes and disputes.
// Unresolved dispute stakes are re-escrowed.
func (p *Protocol) Restore(outcomes []domain.Outcome, disputes []domain.Dispute) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.outcomes = make(map[domain.MarketID]*domain.Outcome, len(outcomes))
	for i := range outcomes {
		o := outcomes[i]
		p.outcomes[o.MarketID] = &o
	}
	p.disputes = make(map[domain.MarketID]*domain.Dispute, len(disputes))
	p.vault = ledger.NewStakeVault()
	for i := range disputes {
		d := disputes[i]
		p.disputes[d.MarketID] = &d
		if !d.Resolved {
			_ = p.vault.Deposit(d.MarketID, d.Disputer, d.Stake)
		}
	}
}
