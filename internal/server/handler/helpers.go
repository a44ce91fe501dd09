package handler

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// callerHeader carries the caller identity resolved by the authenticating
// edge. The core treats it as an opaque address string.
const callerHeader = "X-Caller"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a settlement-core error onto an HTTP status and
// sends it as a JSON error response.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

// statusForError maps the core's sentinel errors to HTTP status codes.
// Unknown errors become 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnknownMarket):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrInvalidStake),
		errors.Is(err, domain.ErrProofRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrMarketExists),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrAlreadyProposed),
		errors.Is(err, domain.ErrAlreadyChallenged),
		errors.Is(err, domain.ErrAlreadyFinalized),
		errors.Is(err, domain.ErrNotProposed),
		errors.Is(err, domain.ErrNotChallenged),
		errors.Is(err, domain.ErrSettleFirst),
		errors.Is(err, domain.ErrWindowNotElapsed),
		errors.Is(err, domain.ErrWindowExpired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrExceedsClaimable),
		errors.Is(err, domain.ErrNotWinningSide),
		errors.Is(err, domain.ErrProofInvalid),
		errors.Is(err, domain.ErrProofTypeNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrLockHeld):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads the request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// callerFrom resolves the caller identity from the request headers.
func callerFrom(r *http.Request) (domain.Caller, error) {
	raw := r.Header.Get(callerHeader)
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("missing %s header", callerHeader)
	}
	return domain.NormalizeCaller(raw), nil
}

// marketIDParam parses the {id} path parameter as a market identifier.
func marketIDParam(r *http.Request) (domain.MarketID, error) {
	return domain.ParseMarketID(r.PathValue("id"))
}

// parseSide accepts "yes"/"no" as well as the numeric encodings 1/0.
func parseSide(s string) (domain.Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "1":
		return domain.SideYes, nil
	case "no", "0":
		return domain.SideNo, nil
	default:
		return domain.SideNone, fmt.Errorf("invalid side %q", s)
	}
}

// parseProofType accepts the scheme names used throughout the API.
func parseProofType(s string) (domain.ProofType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hash", "1":
		return domain.ProofTypeHash, nil
	case "signature", "2":
		return domain.ProofTypeSignature, nil
	case "zkproof", "zk", "3":
		return domain.ProofTypeZK, nil
	default:
		return 0, fmt.Errorf("invalid proof type %q", s)
	}
}

// parseHex decodes a 0x-prefixed (or bare) hex string.
func parseHex(s string) ([]byte, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return b, nil
}

// parseHash32 decodes a hex string into a 32-byte hash.
func parseHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := parseHex(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
