package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ayushsaklani-min/Prediction-market/internal/crypto"
	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	CreateMarket(ctx context.Context, caller domain.Caller, id domain.MarketID, initialYes, initialNo uint64) error
	GetView(id domain.MarketID) (domain.MarketView, error)
	ListMarkets() []domain.Market
	GetPrice(ctx context.Context, id domain.MarketID, side domain.Side) (uint64, error)
	Positions(id domain.MarketID) []domain.Position
	BalanceOf(id domain.MarketID, side domain.Side, owner domain.Caller) uint64
	LpBalanceOf(id domain.MarketID, owner domain.Caller) uint64
	ListTrades(ctx context.Context, id domain.MarketID, opts domain.ListOpts) ([]domain.Trade, error)
}

// MarketHandler serves market lifecycle and read endpoints.
type MarketHandler struct {
	svc    MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(svc MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		svc:    svc,
		logger: logHandler(logger, "market"),
	}
}

// createMarketRequest is the body for POST /api/markets. Either marketId or
// eventKey must be set; when only eventKey is given the identifier is derived
// from it deterministically.
type createMarketRequest struct {
	MarketID   string `json:"marketId"`
	EventKey   string `json:"eventKey"`
	InitialYes uint64 `json:"initialYes"`
	InitialNo  uint64 `json:"initialNo"`
}

// CreateMarket seeds a new market with initial reserves.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var id domain.MarketID
	switch {
	case req.MarketID != "":
		id, err = domain.ParseMarketID(req.MarketID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case req.EventKey != "":
		id = crypto.HashMarketID(req.EventKey)
	default:
		writeError(w, http.StatusBadRequest, "marketId or eventKey required")
		return
	}

	if err := h.svc.CreateMarket(r.Context(), caller, id, req.InitialYes, req.InitialNo); err != nil {
		writeDomainError(w, err)
		return
	}

	view, err := h.svc.GetView(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// ListMarkets returns the read model of every market.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := h.svc.ListMarkets()
	views := make([]domain.MarketView, 0, len(markets))
	for i := range markets {
		views = append(views, markets[i].View())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": views,
		"count":   len(views),
	})
}

// GetMarket returns the read model of one market.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.svc.GetView(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetRecord returns the positional wire encoding of a market view. Consumers
// decode the array by index.
// GET /api/markets/{id}/record
func (h *MarketHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.svc.GetView(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Record())
}

// GetPrice returns the bps price of one side.
// GET /api/markets/{id}/price?side=yes
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	side, err := parseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bps, err := h.svc.GetPrice(r.Context(), id, side)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId": id,
		"side":     side.String(),
		"priceBps": bps,
	})
}

// ListPositions returns every live position in a market.
// GET /api/markets/{id}/positions
func (h *MarketHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	positions := h.svc.Positions(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}

// GetBalance returns one owner's share balance on a side.
// GET /api/markets/{id}/balance?side=yes&owner=0x...
func (h *MarketHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	side, err := parseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := domain.NormalizeCaller(r.URL.Query().Get("owner"))
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing owner parameter")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId": id,
		"side":     side.String(),
		"owner":    owner,
		"balance":  h.svc.BalanceOf(id, side, owner),
	})
}

// GetLpBalance returns one owner's LP share balance.
// GET /api/markets/{id}/lp-balance?owner=0x...
func (h *MarketHandler) GetLpBalance(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := domain.NormalizeCaller(r.URL.Query().Get("owner"))
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing owner parameter")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marketId": id,
		"owner":    owner,
		"lpShares": h.svc.LpBalanceOf(id, owner),
	})
}

// ListTrades returns the journalled trades of a market, newest first.
// GET /api/markets/{id}/trades?limit=50&offset=0
func (h *MarketHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trades, err := h.svc.ListTrades(r.Context(), id, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}
