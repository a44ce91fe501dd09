package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
	"github.com/ayushsaklani-min/Prediction-market/internal/notify"
	"github.com/ayushsaklani-min/Prediction-market/internal/oracle"
	"github.com/ayushsaklani-min/Prediction-market/internal/verifier"
)

// SettlementService drives the oracle protocol and proof verifier, persists
// their state transitions, and alerts operators on resolution events.
type SettlementService struct {
	protocol    *oracle.Protocol
	verifier    *verifier.Verifier
	markets     *TradeService
	outcomes    domain.OutcomeStore
	commitments domain.CommitmentStore
	bus         domain.SignalBus
	audit       domain.AuditStore
	notifier    *notify.Notifier
	archiver    domain.Archiver
	clock       domain.Clock
	logger      *slog.Logger
}

// NewSettlementService creates a SettlementService. archiver may be nil when
// archival is disabled.
func NewSettlementService(
	protocol *oracle.Protocol,
	proofVerifier *verifier.Verifier,
	markets *TradeService,
	outcomes domain.OutcomeStore,
	commitments domain.CommitmentStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier *notify.Notifier,
	archiver domain.Archiver,
	clock domain.Clock,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		protocol:    protocol,
		verifier:    proofVerifier,
		markets:     markets,
		outcomes:    outcomes,
		commitments: commitments,
		bus:         bus,
		audit:       audit,
		notifier:    notifier,
		archiver:    archiver,
		clock:       clock,
		logger:      logger.With(slog.String("component", "settlement_service")),
	}
}

func (s *SettlementService) publish(ctx context.Context, eventType string, id domain.MarketID, payload any) {
	env := domain.EventEnvelope{
		Type:      eventType,
		MarketID:  id,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelOracle, raw); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamEvents, raw); err != nil {
		s.logger.WarnContext(ctx, "stream append failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SettlementService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SettlementService) notifyEvent(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// persistOutcome snapshots the protocol's current outcome (and dispute, if
// any) for a market.
func (s *SettlementService) persistOutcome(ctx context.Context, id domain.MarketID) error {
	o, err := s.protocol.GetOutcome(id)
	if err != nil {
		return fmt.Errorf("settlement_service: snapshot outcome %s: %w", id, err)
	}
	if err := s.outcomes.UpsertOutcome(ctx, o); err != nil {
		return fmt.Errorf("settlement_service: persist outcome %s: %w", id, err)
	}
	if d, err := s.protocol.GetDispute(id); err == nil {
		if err := s.outcomes.UpsertDispute(ctx, d); err != nil {
			return fmt.Errorf("settlement_service: persist dispute %s: %w", id, err)
		}
	}
	return nil
}

// archiveSettled exports the settled market's journal to cold storage.
// Best-effort: the settlement itself is already durable.
func (s *SettlementService) archiveSettled(ctx context.Context, id domain.MarketID) {
	if s.archiver == nil {
		return
	}
	if _, err := s.archiver.ArchiveMarket(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "archive settled market failed",
			slog.String("market_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}

// CommitAI registers an outcome commitment and persists it.
func (s *SettlementService) CommitAI(ctx context.Context, caller domain.Caller, id domain.MarketID, hash [32]byte, proofType domain.ProofType, proof []byte, ipfsCid string) error {
	if err := s.verifier.CommitAI(ctx, caller, id, hash, proofType, proof, ipfsCid); err != nil {
		return err
	}
	c, err := s.verifier.GetCommitment(id)
	if err != nil {
		return fmt.Errorf("settlement_service: snapshot commitment %s: %w", id, err)
	}
	if err := s.commitments.Upsert(ctx, c); err != nil {
		return fmt.Errorf("settlement_service: persist commitment %s: %w", id, err)
	}

	s.publish(ctx, domain.EventCommitment, id, map[string]any{
		"proofType": proofType.String(),
		"submitter": caller,
	})
	s.auditLog(ctx, "oracle.commit", map[string]any{
		"market_id":  id.String(),
		"proof_type": proofType.String(),
		"submitter":  string(caller),
	})
	return nil
}

// ProposeOutcome proposes a proven outcome and persists the proposal.
func (s *SettlementService) ProposeOutcome(ctx context.Context, caller domain.Caller, id domain.MarketID, result domain.Side, proof []byte) error {
	if err := s.protocol.ProposeOutcome(ctx, caller, id, result, proof); err != nil {
		return err
	}
	if err := s.persistOutcome(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, domain.EventOutcomeProposed, id, domain.OutcomeEvent{
		Result: result,
		Oracle: caller,
		Status: domain.OutcomeProposed,
	})
	s.auditLog(ctx, "oracle.propose", map[string]any{
		"market_id": id.String(),
		"result":    result.String(),
	})
	s.notifyEvent(ctx, "outcome_proposed", "Outcome proposed",
		fmt.Sprintf("market %s proposed %s", id, result))
	return nil
}

// ChallengeOutcome stakes a challenge against a proposed outcome.
func (s *SettlementService) ChallengeOutcome(ctx context.Context, caller domain.Caller, id domain.MarketID, proposedResult domain.Side, stake uint64) error {
	if err := s.protocol.ChallengeOutcome(ctx, caller, id, proposedResult, stake); err != nil {
		return err
	}
	if err := s.persistOutcome(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, domain.EventOutcomeChallenged, id, domain.DisputeEvent{
		Disputer:       caller,
		ProposedResult: proposedResult,
		Stake:          stake,
	})
	s.auditLog(ctx, "oracle.challenge", map[string]any{
		"market_id": id.String(),
		"disputer":  string(caller),
		"stake":     stake,
	})
	s.notifyEvent(ctx, "outcome_challenged", "Outcome challenged",
		fmt.Sprintf("market %s challenged by %s", id, caller))
	return nil
}

// ResolveDispute rules on a challenged outcome, settles the market, and
// persists both the oracle and engine state.
func (s *SettlementService) ResolveDispute(ctx context.Context, caller domain.Caller, id domain.MarketID, disputerWins bool, finalResult domain.Side) (domain.Caller, uint64, error) {
	refundTo, refund, err := s.protocol.ResolveDispute(ctx, caller, id, disputerWins, finalResult)
	if err != nil {
		return "", 0, err
	}
	if err := s.persistOutcome(ctx, id); err != nil {
		return refundTo, refund, err
	}
	if err := s.markets.PersistMarket(ctx, id); err != nil {
		return refundTo, refund, err
	}

	d, _ := s.protocol.GetDispute(id)
	s.publish(ctx, domain.EventDisputeResolved, id, domain.DisputeEvent{
		Disputer:       d.Disputer,
		ProposedResult: d.ProposedResult,
		Stake:          d.Stake,
		Resolved:       true,
		Valid:          disputerWins,
	})
	s.publishSettled(ctx, id)
	s.auditLog(ctx, "oracle.resolve_dispute", map[string]any{
		"market_id":     id.String(),
		"disputer_wins": disputerWins,
		"final_result":  finalResult.String(),
		"refund":        refund,
	})
	s.notifyEvent(ctx, "dispute_resolved", "Dispute resolved",
		fmt.Sprintf("market %s dispute resolved, disputer wins: %t", id, disputerWins))
	s.archiveSettled(ctx, id)
	return refundTo, refund, nil
}

// FinalizeOutcome settles an unchallenged proposal after the challenge
// window, persisting the oracle and engine state.
func (s *SettlementService) FinalizeOutcome(ctx context.Context, id domain.MarketID) error {
	if err := s.protocol.FinalizeOutcome(ctx, id); err != nil {
		return err
	}
	if err := s.persistOutcome(ctx, id); err != nil {
		return err
	}
	if err := s.markets.PersistMarket(ctx, id); err != nil {
		return err
	}

	o, _ := s.protocol.GetOutcome(id)
	s.publish(ctx, domain.EventOutcomeFinalized, id, domain.OutcomeEvent{
		Result: o.Result,
		Status: domain.OutcomeFinalized,
	})
	s.publishSettled(ctx, id)
	s.auditLog(ctx, "oracle.finalize", map[string]any{
		"market_id": id.String(),
		"result":    o.Result.String(),
	})
	s.notifyEvent(ctx, "market_settled", "Market settled",
		fmt.Sprintf("market %s finalized as %s", id, o.Result))
	s.archiveSettled(ctx, id)
	return nil
}

// publishSettled emits the market_settled event with the settlement split.
func (s *SettlementService) publishSettled(ctx context.Context, id domain.MarketID) {
	m, err := s.markets.GetMarket(id)
	if err != nil || !m.Settled {
		return
	}
	s.publish(ctx, domain.EventMarketSettled, id, domain.SettlementEvent{
		WinningSide:            m.WinningSide,
		WinnerPayoutPool:       m.WinnerPayoutPool,
		LpCollateralPool:       m.LpCollateralPool,
		WinningSharesRemaining: m.WinningSharesRemaining,
	})
}

// SetMarketProofPolicy restricts the proof schemes a market accepts.
func (s *SettlementService) SetMarketProofPolicy(ctx context.Context, caller domain.Caller, id domain.MarketID, policy domain.ProofPolicy) error {
	if err := s.protocol.SetMarketProofPolicy(ctx, caller, id, policy); err != nil {
		return err
	}
	s.auditLog(ctx, "oracle.set_policy", map[string]any{
		"market_id": id.String(),
	})
	return nil
}

// GetOutcome returns the oracle state for a market.
func (s *SettlementService) GetOutcome(id domain.MarketID) (domain.Outcome, error) {
	return s.protocol.GetOutcome(id)
}

// GetDispute returns the dispute for a market.
func (s *SettlementService) GetDispute(id domain.MarketID) (domain.Dispute, error) {
	return s.protocol.GetDispute(id)
}

// GetCommitment returns the active commitment for a market.
func (s *SettlementService) GetCommitment(id domain.MarketID) (domain.Commitment, error) {
	return s.verifier.GetCommitment(id)
}

// PolicyFor returns the proof policy of a market.
func (s *SettlementService) PolicyFor(id domain.MarketID) domain.ProofPolicy {
	return s.protocol.PolicyFor(id)
}

// TreasuryBalance returns the accumulated forfeited stakes.
func (s *SettlementService) TreasuryBalance() uint64 {
	return s.protocol.TreasuryBalance()
}
