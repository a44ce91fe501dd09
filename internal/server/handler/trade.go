package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// TradeService defines the mutating AMM operations the trade handler needs.
type TradeService interface {
	Buy(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, amountIn, minSharesOut uint64) (domain.Trade, error)
	Sell(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, sharesIn, minAmountOut uint64) (domain.Trade, error)
	AddLiquidity(ctx context.Context, caller domain.Caller, id domain.MarketID, amount uint64) (uint64, error)
	RemoveLiquidity(ctx context.Context, caller domain.Caller, id domain.MarketID, lpShares uint64) (uint64, error)
	Redeem(ctx context.Context, caller domain.Caller, id domain.MarketID, side domain.Side, shares uint64) (uint64, error)
	CollectFees(ctx context.Context, caller domain.Caller, id domain.MarketID) (uint64, error)
}

// TradeHandler serves trading, liquidity, and redemption endpoints.
type TradeHandler struct {
	svc    TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(svc TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		svc:    svc,
		logger: logHandler(logger, "trade"),
	}
}

// tradeRequest is the body for buy and sell. Min is the slippage floor:
// minimum shares out for buys, minimum collateral out for sells.
type tradeRequest struct {
	Side   string `json:"side"`
	Amount uint64 `json:"amount"`
	Min    uint64 `json:"min"`
}

// Buy swaps collateral for outcome shares.
// POST /api/markets/{id}/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	caller, id, req, ok := h.tradeArgs(w, r)
	if !ok {
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := h.svc.Buy(r.Context(), caller, id, side, req.Amount, req.Min)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// Sell swaps outcome shares back into collateral.
// POST /api/markets/{id}/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	caller, id, req, ok := h.tradeArgs(w, r)
	if !ok {
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := h.svc.Sell(r.Context(), caller, id, side, req.Amount, req.Min)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// liquidityRequest is the body for add/remove liquidity.
type liquidityRequest struct {
	Amount uint64 `json:"amount"`
}

// AddLiquidity deposits collateral into an unsettled market.
// POST /api/markets/{id}/liquidity
func (h *TradeHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req liquidityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minted, err := h.svc.AddLiquidity(r.Context(), caller, id, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId": id,
		"lpShares": minted,
	})
}

// RemoveLiquidity withdraws an LP's share of the post-settlement collateral.
// DELETE /api/markets/{id}/liquidity
func (h *TradeHandler) RemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req liquidityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payout, err := h.svc.RemoveLiquidity(r.Context(), caller, id, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId": id,
		"payout":   payout,
	})
}

// redeemRequest is the body for redeem.
type redeemRequest struct {
	Side   string `json:"side"`
	Shares uint64 `json:"shares"`
}

// Redeem pays out winning shares on a settled market.
// POST /api/markets/{id}/redeem
func (h *TradeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payout, err := h.svc.Redeem(r.Context(), caller, id, side, req.Shares)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId": id,
		"payout":   payout,
	})
}

// CollectFees drains accrued trading fees of a settled market.
// POST /api/markets/{id}/fees/collect
func (h *TradeHandler) CollectFees(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	collected, err := h.svc.CollectFees(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId":  id,
		"collected": collected,
	})
}

// callerAndID resolves the caller header and {id} path parameter, writing an
// error response on failure.
func (h *TradeHandler) callerAndID(w http.ResponseWriter, r *http.Request) (domain.Caller, domain.MarketID, bool) {
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

func (h *TradeHandler) tradeArgs(w http.ResponseWriter, r *http.Request) (domain.Caller, domain.MarketID, tradeRequest, bool) {
	var req tradeRequest
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return "", domain.MarketID{}, req, false
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", domain.MarketID{}, req, false
	}
	return caller, id, req, true
}
