package domain

import "context"

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists AMM market state snapshots.
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id MarketID) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	ListAll(ctx context.Context) ([]Market, error)
}

// PositionStore persists outcome-share balances.
type PositionStore interface {
	Upsert(ctx context.Context, p Position) error
	ListByMarket(ctx context.Context, id MarketID) ([]Position, error)
	ListAll(ctx context.Context) ([]Position, error)
}

// LpShareStore persists liquidity-provider share balances.
type LpShareStore interface {
	Upsert(ctx context.Context, s LpShare) error
	ListByMarket(ctx context.Context, id MarketID) ([]LpShare, error)
	ListAll(ctx context.Context) ([]LpShare, error)
}

// TradeStore persists the append-only trade journal.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	ListByMarket(ctx context.Context, id MarketID, opts ListOpts) ([]Trade, error)
	// ListBefore returns trades executed strictly before the given ledger
	// timestamp; used by the archiver.
	ListBefore(ctx context.Context, before int64) ([]Trade, error)
	DeleteBefore(ctx context.Context, before int64) (int64, error)
}

// OutcomeStore persists oracle outcomes and disputes.
type OutcomeStore interface {
	UpsertOutcome(ctx context.Context, o Outcome) error
	GetOutcome(ctx context.Context, id MarketID) (Outcome, error)
	UpsertDispute(ctx context.Context, d Dispute) error
	GetDispute(ctx context.Context, id MarketID) (Dispute, error)
	ListOutcomes(ctx context.Context) ([]Outcome, error)
	ListDisputes(ctx context.Context) ([]Dispute, error)
}

// CommitmentStore persists proof commitments.
type CommitmentStore interface {
	Upsert(ctx context.Context, c Commitment) error
	Get(ctx context.Context, id MarketID) (Commitment, error)
	ListAll(ctx context.Context) ([]Commitment, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt int64
}

// AuditStore persists an append-only audit log of settlement-core operations.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
