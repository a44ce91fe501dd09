package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		var (
			p       domain.Position
			id      string
			side    int16
			balance int64
		)
		if err := rows.Scan(&id, &side, &p.Owner, &balance); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseMarketID(id)
		if err != nil {
			return nil, err
		}
		p.MarketID = parsed
		p.Side = domain.Side(side)
		p.Balance = uint64(balance)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Upsert inserts or replaces a share balance. Zero balances are deleted so
// the table only holds live positions.
func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	if p.Balance == 0 {
		_, err := s.pool.Exec(ctx,
			`DELETE FROM positions WHERE market_id = $1 AND side = $2 AND owner = $3`,
			p.MarketID.String(), int16(p.Side), p.Owner,
		)
		if err != nil {
			return fmt.Errorf("postgres: delete position: %w", err)
		}
		return nil
	}

	const query = `
		INSERT INTO positions (market_id, side, owner, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (market_id, side, owner) DO UPDATE SET balance = EXCLUDED.balance`
	_, err := s.pool.Exec(ctx, query,
		p.MarketID.String(), int16(p.Side), p.Owner, int64(p.Balance),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position: %w", err)
	}
	return nil
}

// ListByMarket returns every live position in a market.
func (s *PositionStore) ListByMarket(ctx context.Context, id domain.MarketID) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, side, owner, balance FROM positions
		 WHERE market_id = $1 ORDER BY side, owner`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions by market: %w", err)
	}
	defer rows.Close()
	return scanPositionRows(rows)
}

// ListAll returns every live position, used to rebuild ledger state at startup.
func (s *PositionStore) ListAll(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, side, owner, balance FROM positions ORDER BY market_id, side, owner`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all positions: %w", err)
	}
	defer rows.Close()
	return scanPositionRows(rows)
}
