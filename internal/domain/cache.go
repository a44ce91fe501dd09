package domain

import (
	"context"
	"time"
)

// PriceCache stores the latest basis-point quote per market for fast reads.
type PriceCache interface {
	SetPrices(ctx context.Context, id MarketID, yesBps, noBps uint64, ts int64) error
	GetPrices(ctx context.Context, id MarketID) (yesBps, noBps uint64, err error)
	Invalidate(ctx context.Context, id MarketID) error
}

// StreamMessage is a single durable message read from the signal bus stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus is the event fan-out used to feed websocket consumers and the
// indexer: ephemeral pub/sub plus a durable ordered stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// LockManager provides cross-replica mutual exclusion. The engine serializes
// in-process; the lock extends that guarantee across deployments sharing one
// database.
type LockManager interface {
	// Acquire returns an unlock function, or ErrLockHeld when the lock is
	// taken by another holder.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
