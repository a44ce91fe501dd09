package domain

import "context"

// RegistryMarket is the slice of market-lifecycle state the settlement core
// consumes from the external market registry.
type RegistryMarket struct {
	MarketID            MarketID
	CloseTimestamp      int64
	ResolutionTimestamp int64
	Active              bool
}

// MarketRegistry is the read interface onto the market-lifecycle collaborator.
// Implementations return ErrNotFound for unknown markets.
type MarketRegistry interface {
	GetMarket(ctx context.Context, id MarketID) (RegistryMarket, error)
}
