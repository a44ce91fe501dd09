package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// RegistryStore implements domain.MarketRegistry against the registry_markets
// table, which an external listing process keeps current.
type RegistryStore struct {
	pool *pgxpool.Pool
}

// NewRegistryStore creates a new RegistryStore backed by the given pool.
func NewRegistryStore(pool *pgxpool.Pool) *RegistryStore {
	return &RegistryStore{pool: pool}
}

// GetMarket returns the lifecycle state of a registered market.
func (s *RegistryStore) GetMarket(ctx context.Context, id domain.MarketID) (domain.RegistryMarket, error) {
	var (
		m   domain.RegistryMarket
		mid string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT market_id, close_timestamp, resolution_timestamp, active
		 FROM registry_markets WHERE market_id = $1`,
		id.String(),
	).Scan(&mid, &m.CloseTimestamp, &m.ResolutionTimestamp, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RegistryMarket{}, domain.ErrNotFound
		}
		return domain.RegistryMarket{}, fmt.Errorf("postgres: get registry market: %w", err)
	}
	m.MarketID = id
	return m, nil
}

// Upsert inserts or replaces a registry entry. Exposed for tooling and tests;
// the settlement core itself only reads.
func (s *RegistryStore) Upsert(ctx context.Context, m domain.RegistryMarket) error {
	const query = `
		INSERT INTO registry_markets (market_id, close_timestamp, resolution_timestamp, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (market_id) DO UPDATE SET
			close_timestamp = EXCLUDED.close_timestamp,
			resolution_timestamp = EXCLUDED.resolution_timestamp,
			active = EXCLUDED.active`
	_, err := s.pool.Exec(ctx, query,
		m.MarketID.String(), m.CloseTimestamp, m.ResolutionTimestamp, m.Active,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert registry market: %w", err)
	}
	return nil
}
