package handler

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// OracleService defines the resolution operations the oracle handler needs.
type OracleService interface {
	CommitAI(ctx context.Context, caller domain.Caller, id domain.MarketID, hash [32]byte, proofType domain.ProofType, proof []byte, ipfsCid string) error
	ProposeOutcome(ctx context.Context, caller domain.Caller, id domain.MarketID, result domain.Side, proof []byte) error
	ChallengeOutcome(ctx context.Context, caller domain.Caller, id domain.MarketID, proposedResult domain.Side, stake uint64) error
	ResolveDispute(ctx context.Context, caller domain.Caller, id domain.MarketID, disputerWins bool, finalResult domain.Side) (domain.Caller, uint64, error)
	FinalizeOutcome(ctx context.Context, id domain.MarketID) error
	SetMarketProofPolicy(ctx context.Context, caller domain.Caller, id domain.MarketID, policy domain.ProofPolicy) error
	GetOutcome(id domain.MarketID) (domain.Outcome, error)
	GetDispute(id domain.MarketID) (domain.Dispute, error)
	GetCommitment(id domain.MarketID) (domain.Commitment, error)
	PolicyFor(id domain.MarketID) domain.ProofPolicy
	TreasuryBalance() uint64
}

// OracleHandler serves the optimistic oracle endpoints: commitments,
// proposals, challenges, and finalization.
type OracleHandler struct {
	svc    OracleService
	logger *slog.Logger
}

// NewOracleHandler creates an OracleHandler.
func NewOracleHandler(svc OracleService, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		svc:    svc,
		logger: logHandler(logger, "oracle"),
	}
}

// commitRequest is the body for POST /api/oracle/{id}/commit.
type commitRequest struct {
	CommitmentHash string `json:"commitmentHash"`
	ProofType      string `json:"proofType"`
	Proof          string `json:"proof"`
	IpfsCid        string `json:"ipfsCid"`
}

// Commit registers an AI outcome commitment ahead of resolution.
// POST /api/oracle/{id}/commit
func (h *OracleHandler) Commit(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req commitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := parseHash32(req.CommitmentHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proofType, err := parseProofType(req.ProofType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proof, err := parseHex(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.CommitAI(r.Context(), caller, id, hash, proofType, proof, req.IpfsCid); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"marketId":  id,
		"proofType": proofType.String(),
	})
}

// GetCommitment returns the active commitment for a market.
// GET /api/oracle/{id}/commitment
func (h *OracleHandler) GetCommitment(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.GetCommitment(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitmentResponse(c))
}

// proposeRequest is the body for POST /api/oracle/{id}/propose.
type proposeRequest struct {
	Result string `json:"result"`
	Proof  string `json:"proof"`
}

// Propose submits a proven outcome proposal.
// POST /api/oracle/{id}/propose
func (h *OracleHandler) Propose(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req proposeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := parseSide(req.Result)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proof, err := parseHex(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.ProposeOutcome(r.Context(), caller, id, result, proof); err != nil {
		writeDomainError(w, err)
		return
	}
	outcome, err := h.svc.GetOutcome(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// challengeRequest is the body for POST /api/oracle/{id}/challenge.
type challengeRequest struct {
	Result string `json:"result"`
	Stake  uint64 `json:"stake"`
}

// Challenge stakes a dispute against a proposed outcome. The result is the
// side the challenger backs instead.
// POST /api/oracle/{id}/challenge
func (h *OracleHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req challengeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := parseSide(req.Result)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.ChallengeOutcome(r.Context(), caller, id, result, req.Stake); err != nil {
		writeDomainError(w, err)
		return
	}
	dispute, err := h.svc.GetDispute(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dispute)
}

// resolveRequest is the body for POST /api/oracle/{id}/resolve. finalResult
// is the side the market settles to; disputerWins only routes the stake.
type resolveRequest struct {
	DisputerWins bool   `json:"disputerWins"`
	FinalResult  string `json:"finalResult"`
}

// Resolve rules on a challenged outcome and settles the market.
// POST /api/oracle/{id}/resolve
func (h *OracleHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	finalResult, err := parseSide(req.FinalResult)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	refundTo, refund, err := h.svc.ResolveDispute(r.Context(), caller, id, req.DisputerWins, finalResult)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId":     id,
		"disputerWins": req.DisputerWins,
		"finalResult":  finalResult.String(),
		"refundTo":     refundTo,
		"refund":       refund,
	})
}

// Finalize settles an unchallenged proposal after the challenge window.
// Anyone may call it.
// POST /api/oracle/{id}/finalize
func (h *OracleHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.FinalizeOutcome(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	outcome, err := h.svc.GetOutcome(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// GetOutcome returns the oracle state for a market.
// GET /api/oracle/{id}/outcome
func (h *OracleHandler) GetOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := h.svc.GetOutcome(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// GetDispute returns the dispute for a market.
// GET /api/oracle/{id}/dispute
func (h *OracleHandler) GetDispute(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dispute, err := h.svc.GetDispute(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dispute)
}

// policyRequest is the body for PUT /api/oracle/{id}/policy.
type policyRequest struct {
	ProofTypes []string `json:"proofTypes"`
}

// SetPolicy restricts the proof schemes a market accepts. Admin only.
// PUT /api/oracle/{id}/policy
func (h *OracleHandler) SetPolicy(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req policyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	types := make([]domain.ProofType, 0, len(req.ProofTypes))
	for _, s := range req.ProofTypes {
		t, err := parseProofType(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		types = append(types, t)
	}

	if err := h.svc.SetMarketProofPolicy(r.Context(), caller, id, domain.NewProofPolicy(types...)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyResponse(id, h.svc.PolicyFor(id)))
}

// GetPolicy returns the proof policy of a market.
// GET /api/oracle/{id}/policy
func (h *OracleHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, policyResponse(id, h.svc.PolicyFor(id)))
}

// GetTreasury returns the accumulated forfeited dispute stakes.
// GET /api/oracle/treasury
func (h *OracleHandler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": h.svc.TreasuryBalance(),
	})
}

func (h *OracleHandler) callerAndID(w http.ResponseWriter, r *http.Request) (domain.Caller, domain.MarketID, bool) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", domain.MarketID{}, false
	}
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", domain.MarketID{}, false
	}
	return caller, id, true
}

// commitmentResponse renders a commitment with the hash as 0x-prefixed hex.
func commitmentResponse(c domain.Commitment) map[string]any {
	return map[string]any{
		"marketId":       c.MarketID,
		"commitmentHash": "0x" + hex.EncodeToString(c.CommitmentHash[:]),
		"proofType":      c.ProofType.String(),
		"submitter":      c.Submitter,
		"timestamp":      c.Timestamp,
		"ipfsCid":        c.IpfsCid,
		"verified":       c.Verified,
	}
}

func policyResponse(id domain.MarketID, p domain.ProofPolicy) map[string]any {
	names := make([]string, 0, 3)
	for _, t := range p.Types() {
		names = append(names, t.String())
	}
	return map[string]any{
		"marketId":   id,
		"proofTypes": names,
	}
}
