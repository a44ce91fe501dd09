package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// LpShareStore implements domain.LpShareStore using PostgreSQL.
type LpShareStore struct {
	pool *pgxpool.Pool
}

// NewLpShareStore creates a new LpShareStore backed by the given pool.
func NewLpShareStore(pool *pgxpool.Pool) *LpShareStore {
	return &LpShareStore{pool: pool}
}

func scanLpShareRows(rows pgx.Rows) ([]domain.LpShare, error) {
	var shares []domain.LpShare
	for rows.Next() {
		var (
			ls     domain.LpShare
			id     string
			amount int64
		)
		if err := rows.Scan(&id, &ls.Owner, &amount); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseMarketID(id)
		if err != nil {
			return nil, err
		}
		ls.MarketID = parsed
		ls.Shares = uint64(amount)
		shares = append(shares, ls)
	}
	return shares, rows.Err()
}

// Upsert inserts or replaces an LP share balance; zero balances are deleted.
func (s *LpShareStore) Upsert(ctx context.Context, ls domain.LpShare) error {
	if ls.Shares == 0 {
		_, err := s.pool.Exec(ctx,
			`DELETE FROM lp_shares WHERE market_id = $1 AND owner = $2`,
			ls.MarketID.String(), ls.Owner,
		)
		if err != nil {
			return fmt.Errorf("postgres: delete lp share: %w", err)
		}
		return nil
	}

	const query = `
		INSERT INTO lp_shares (market_id, owner, shares)
		VALUES ($1, $2, $3)
		ON CONFLICT (market_id, owner) DO UPDATE SET shares = EXCLUDED.shares`
	_, err := s.pool.Exec(ctx, query, ls.MarketID.String(), ls.Owner, int64(ls.Shares))
	if err != nil {
		return fmt.Errorf("postgres: upsert lp share: %w", err)
	}
	return nil
}

// ListByMarket returns every LP share balance in a market.
func (s *LpShareStore) ListByMarket(ctx context.Context, id domain.MarketID) ([]domain.LpShare, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, owner, shares FROM lp_shares WHERE market_id = $1 ORDER BY owner`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list lp shares by market: %w", err)
	}
	defer rows.Close()
	return scanLpShareRows(rows)
}

// ListAll returns every LP share balance, used at startup.
func (s *LpShareStore) ListAll(ctx context.Context) ([]domain.LpShare, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, owner, shares FROM lp_shares ORDER BY market_id, owner`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all lp shares: %w", err)
	}
	defer rows.Close()
	return scanLpShareRows(rows)
}
