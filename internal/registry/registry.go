// Package registry provides market-lifecycle lookups for the settlement core.
// The canonical registry lives in Postgres; StaticRegistry is an in-memory
// implementation for standalone runs and tests.
package registry

import (
	"context"
	"sync"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// StaticRegistry is a fixed, in-memory market registry.
type StaticRegistry struct {
	mu      sync.RWMutex
	markets map[domain.MarketID]domain.RegistryMarket
}

// NewStatic creates an empty static registry.
func NewStatic() *StaticRegistry {
	return &StaticRegistry{markets: make(map[domain.MarketID]domain.RegistryMarket)}
}

// Set registers or replaces a market entry.
func (r *StaticRegistry) Set(m domain.RegistryMarket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[m.MarketID] = m
}

// GetMarket implements domain.MarketRegistry.
func (r *StaticRegistry) GetMarket(_ context.Context, id domain.MarketID) (domain.RegistryMarket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[id]
	if !ok {
		return domain.RegistryMarket{}, domain.ErrNotFound
	}
	return m, nil
}
