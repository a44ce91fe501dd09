package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, market_id, trader, side, is_buy, amount_in, amount_out, fee, timestamp`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t         domain.Trade
			id        string
			side      int16
			amountIn  int64
			amountOut int64
			fee       int64
		)
		if err := rows.Scan(
			&t.ID, &id, &t.Trader, &side, &t.IsBuy,
			&amountIn, &amountOut, &fee, &t.Timestamp,
		); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseMarketID(id)
		if err != nil {
			return nil, err
		}
		t.MarketID = parsed
		t.Side = domain.Side(side)
		t.AmountIn = uint64(amountIn)
		t.AmountOut = uint64(amountOut)
		t.Fee = uint64(fee)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert appends one executed trade to the journal. Duplicate IDs are
// silently skipped so redelivery is safe.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (id, market_id, trader, side, is_buy, amount_in, amount_out, fee, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		t.ID, t.MarketID.String(), t.Trader, int16(t.Side), t.IsBuy,
		int64(t.AmountIn), int64(t.AmountOut), int64(t.Fee), t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade: %w", err)
	}
	return nil
}

// ListByMarket returns trades for a market, newest first, with pagination.
func (s *TradeStore) ListByMarket(ctx context.Context, id domain.MarketID, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE market_id = $1 ORDER BY timestamp DESC, id`
	args := []any{id.String()}

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
		return nil, fmt.Errorf("postgres: list trades by market: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by market: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades executed strictly before the given ledger
// timestamp, oldest first, for archiving.
func (s *TradeStore) ListBefore(ctx context.Context, before int64) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE timestamp < $1 ORDER BY timestamp ASC, id`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades executed before the given ledger timestamp.
// Returns the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}
