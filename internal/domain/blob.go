package domain

import (
	"context"
	"io"
)

// BlobWriter uploads immutable objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, body io.Reader, contentType string) error
}

// BlobReader fetches archived objects.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}

// SettlementTradesPath returns the object key a settled market's trade
// journal is archived under.
func SettlementTradesPath(id MarketID) string {
	return "settlements/" + id.String() + "/trades.jsonl"
}

// SettlementResolutionPath returns the object key of a settled market's
// resolution record.
func SettlementResolutionPath(id MarketID) string {
	return "settlements/" + id.String() + "/resolution.json"
}

// Archiver moves the journal of settled markets out of the primary store and
// into object storage.
type Archiver interface {
	// ArchiveMarket uploads the full trade journal, outcome, and dispute
	// record of a settled market, returning the number of archived trades.
	ArchiveMarket(ctx context.Context, id MarketID) (int64, error)
	// ArchiveTradesBefore sweeps all trades older than the cutoff into a
	// dated JSONL object and returns the archived count.
	ArchiveTradesBefore(ctx context.Context, before int64) (int64, error)
}
