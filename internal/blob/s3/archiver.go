package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// Narrow store interfaces required by the archiver: only the query methods
// it actually calls, not the full domain store interfaces.

// TradeArchiveStore provides read/delete access to trades for archival.
type TradeArchiveStore interface {
	ListByMarket(ctx context.Context, id domain.MarketID, opts domain.ListOpts) ([]domain.Trade, error)
	ListBefore(ctx context.Context, before int64) ([]domain.Trade, error)
	DeleteBefore(ctx context.Context, before int64) (int64, error)
}

// ResolutionArchiveStore provides read access to oracle records for archival.
type ResolutionArchiveStore interface {
	GetOutcome(ctx context.Context, id domain.MarketID) (domain.Outcome, error)
	GetDispute(ctx context.Context, id domain.MarketID) (domain.Dispute, error)
}

// ArchiveImpl implements domain.Archiver by querying the domain stores,
// serializing records to JSONL, and uploading the result to S3.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	trades      TradeArchiveStore
	resolutions ResolutionArchiveStore
	audit       domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	trades TradeArchiveStore,
	resolutions ResolutionArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:      writer,
		trades:      trades,
		resolutions: resolutions,
		audit:       audit,
	}
}

// resolutionRecord is the JSON document uploaded alongside a settled
// market's trade journal.
type resolutionRecord struct {
	Outcome *domain.Outcome `json:"outcome,omitempty"`
	Dispute *domain.Dispute `json:"dispute,omitempty"`
}

// ArchiveMarket uploads the full trade journal and resolution record of a
// settled market under settlements/{marketID}/ and returns the number of
// archived trades. Rows are not deleted; per-market archives are point-in-time
// exports.
func (a *ArchiveImpl) ArchiveMarket(ctx context.Context, id domain.MarketID) (int64, error) {
	trades, err := a.trades.ListByMarket(ctx, id, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive market trades query: %w", err)
	}

	if len(trades) > 0 {
		buf, err := marshalJSONL(trades)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive market trades marshal: %w", err)
		}
		if err := a.writer.Put(ctx, domain.SettlementTradesPath(id), bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return 0, fmt.Errorf("s3blob: archive market trades upload: %w", err)
		}
	}

	var record resolutionRecord
	if o, err := a.resolutions.GetOutcome(ctx, id); err == nil {
		record.Outcome = &o
	} else if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("s3blob: archive market outcome query: %w", err)
	}
	if d, err := a.resolutions.GetDispute(ctx, id); err == nil {
		record.Dispute = &d
	} else if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("s3blob: archive market dispute query: %w", err)
	}

	if record.Outcome != nil || record.Dispute != nil {
		buf, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive market resolution marshal: %w", err)
		}
		if err := a.writer.Put(ctx, domain.SettlementResolutionPath(id), bytes.NewReader(buf), "application/json"); err != nil {
			return 0, fmt.Errorf("s3blob: archive market resolution upload: %w", err)
		}
	}

	count := int64(len(trades))

	if err := a.audit.Log(ctx, "archive.market", map[string]any{
		"market_id": id.String(),
		"trades":    count,
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive market audit log: %w", err)
	}

	return count, nil
}

// ArchiveTradesBefore sweeps all trades executed before the cutoff into a
// dated JSONL object, deletes the archived rows from the primary store, and
// returns the archived count.
func (a *ArchiveImpl) ArchiveTradesBefore(ctx context.Context, before int64) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	// Delete only after the upload succeeded.
	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades delete: %w", err)
	}

	if err := a.audit.Log(ctx, "archive.trades", map[string]any{
		"path":    path,
		"count":   len(trades),
		"deleted": deleted,
		"before":  before,
	}); err != nil {
		return int64(len(trades)), fmt.Errorf("s3blob: archive trades audit log: %w", err)
	}

	return int64(len(trades)), nil
}

// archivePath builds the S3 key for a sweep archive, partitioned by the
// year-month of the cutoff timestamp.
//
//	archive/trades/2025-01.jsonl
func archivePath(kind string, before int64) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, time.Unix(before, 0).UTC().Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
