package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketSelectCols = `market_id, yes_pool, no_pool, k, total_volume, total_fees,
	active, settled, winning_side, total_lp_shares, winner_payout_pool,
	lp_collateral_pool, winning_shares_remaining, created_at, updated_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m           domain.Market
		id          string
		yesPool     int64
		noPool      int64
		k           string
		totalVolume int64
		totalFees   int64
		winningSide int16
		totalLp     int64
		winnerPool  int64
		lpPool      int64
		remaining   int64
	)
	err := row.Scan(
		&id, &yesPool, &noPool, &k, &totalVolume, &totalFees,
		&m.Active, &m.Settled, &winningSide, &totalLp, &winnerPool,
		&lpPool, &remaining, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}

	m.ID, err = domain.ParseMarketID(id)
	if err != nil {
		return domain.Market{}, err
	}
	kInt, ok := new(big.Int).SetString(k, 10)
	if !ok {
		return domain.Market{}, fmt.Errorf("postgres: invalid k %q for market %s", k, id)
	}
	m.K = kInt
	m.YesPool = uint64(yesPool)
	m.NoPool = uint64(noPool)
	m.TotalVolume = uint64(totalVolume)
	m.TotalFees = uint64(totalFees)
	m.WinningSide = domain.Side(winningSide)
	m.TotalLpShares = uint64(totalLp)
	m.WinnerPayoutPool = uint64(winnerPool)
	m.LpCollateralPool = uint64(lpPool)
	m.WinningSharesRemaining = uint64(remaining)
	return m, nil
}

func scanMarketRows(rows pgx.Rows) ([]domain.Market, error) {
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// Upsert inserts or replaces a market snapshot.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	k := "0"
	if m.K != nil {
		k = m.K.String()
	}
	const query = `
		INSERT INTO markets (
			market_id, yes_pool, no_pool, k, total_volume, total_fees,
			active, settled, winning_side, total_lp_shares, winner_payout_pool,
			lp_collateral_pool, winning_shares_remaining, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		) ON CONFLICT (market_id) DO UPDATE SET
			yes_pool = EXCLUDED.yes_pool,
			no_pool = EXCLUDED.no_pool,
			k = EXCLUDED.k,
			total_volume = EXCLUDED.total_volume,
			total_fees = EXCLUDED.total_fees,
			active = EXCLUDED.active,
			settled = EXCLUDED.settled,
			winning_side = EXCLUDED.winning_side,
			total_lp_shares = EXCLUDED.total_lp_shares,
			winner_payout_pool = EXCLUDED.winner_payout_pool,
			lp_collateral_pool = EXCLUDED.lp_collateral_pool,
			winning_shares_remaining = EXCLUDED.winning_shares_remaining,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		m.ID.String(), int64(m.YesPool), int64(m.NoPool), k,
		int64(m.TotalVolume), int64(m.TotalFees),
		m.Active, m.Settled, int16(m.WinningSide),
		int64(m.TotalLpShares), int64(m.WinnerPayoutPool),
		int64(m.LpCollateralPool), int64(m.WinningSharesRemaining),
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market: %w", err)
	}
	return nil
}

// GetByID returns a market by identifier.
func (s *MarketStore) GetByID(ctx context.Context, id domain.MarketID) (domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets WHERE market_id = $1`
	m, err := scanMarket(s.pool.QueryRow(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market: %w", err)
	}
	return m, nil
}

// List returns markets ordered by creation time, newest first.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets ORDER BY created_at DESC`
	args := []any{}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	markets, err := scanMarketRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan markets: %w", err)
	}
	return markets, nil
}

// ListAll returns every market, used to rebuild engine state at startup.
func (s *MarketStore) ListAll(ctx context.Context) ([]domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all markets: %w", err)
	}
	defer rows.Close()

	markets, err := scanMarketRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan all markets: %w", err)
	}
	return markets, nil
}
