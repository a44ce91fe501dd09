package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// ArchiveHandler serves the cold-storage exports of settled markets straight
// from object storage.
type ArchiveHandler struct {
	blobs  domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(blobs domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		blobs:  blobs,
		logger: logHandler(logger, "archive"),
	}
}

// GetTrades streams the archived trade journal of a settled market.
// GET /api/markets/{id}/archive/trades
func (h *ArchiveHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, domain.SettlementTradesPath, "application/x-ndjson")
}

// GetResolution streams the archived resolution record of a settled market.
// GET /api/markets/{id}/archive/resolution
func (h *ArchiveHandler) GetResolution(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, domain.SettlementResolutionPath, "application/json")
}

func (h *ArchiveHandler) stream(w http.ResponseWriter, r *http.Request, path func(domain.MarketID) string, contentType string) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := h.blobs.Get(r.Context(), path(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		// The status line is already written; all we can do is log.
		h.logger.WarnContext(r.Context(), "archive stream interrupted",
			slog.String("market_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}
