package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// OracleStore implements domain.OutcomeStore using PostgreSQL.
type OracleStore struct {
	pool *pgxpool.Pool
}

// NewOracleStore creates a new OracleStore backed by the given pool.
func NewOracleStore(pool *pgxpool.Pool) *OracleStore {
	return &OracleStore{pool: pool}
}

// UpsertOutcome inserts or replaces the oracle outcome for a market.
func (s *OracleStore) UpsertOutcome(ctx context.Context, o domain.Outcome) error {
	const query = `
		INSERT INTO outcomes (market_id, result, oracle, timestamp, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (market_id) DO UPDATE SET
			result = EXCLUDED.result,
			oracle = EXCLUDED.oracle,
			timestamp = EXCLUDED.timestamp,
			status = EXCLUDED.status`
	_, err := s.pool.Exec(ctx, query,
		o.MarketID.String(), int16(o.Result), o.Oracle, o.Timestamp, int16(o.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert outcome: %w", err)
	}
	return nil
}

// GetOutcome returns the outcome for a market.
func (s *OracleStore) GetOutcome(ctx context.Context, id domain.MarketID) (domain.Outcome, error) {
	var (
		o      domain.Outcome
		mid    string
		result int16
		status int16
	)
	err := s.pool.QueryRow(ctx,
		`SELECT market_id, result, oracle, timestamp, status FROM outcomes WHERE market_id = $1`,
		id.String(),
	).Scan(&mid, &result, &o.Oracle, &o.Timestamp, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Outcome{}, domain.ErrNotFound
		}
		return domain.Outcome{}, fmt.Errorf("postgres: get outcome: %w", err)
	}
	o.MarketID = id
	o.Result = domain.Side(result)
	o.Status = domain.OutcomeStatus(status)
	return o, nil
}

// UpsertDispute inserts or replaces the dispute for a market.
func (s *OracleStore) UpsertDispute(ctx context.Context, d domain.Dispute) error {
	const query = `
		INSERT INTO disputes (market_id, disputer, proposed_result, stake, timestamp, resolved, valid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (market_id) DO UPDATE SET
			disputer = EXCLUDED.disputer,
			proposed_result = EXCLUDED.proposed_result,
			stake = EXCLUDED.stake,
			timestamp = EXCLUDED.timestamp,
			resolved = EXCLUDED.resolved,
			valid = EXCLUDED.valid`
	_, err := s.pool.Exec(ctx, query,
		d.MarketID.String(), d.Disputer, int16(d.ProposedResult),
		int64(d.Stake), d.Timestamp, d.Resolved, d.Valid,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert dispute: %w", err)
	}
	return nil
}

// GetDispute returns the dispute for a market.
func (s *OracleStore) GetDispute(ctx context.Context, id domain.MarketID) (domain.Dispute, error) {
	var (
		d        domain.Dispute
		mid      string
		proposed int16
		stake    int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT market_id, disputer, proposed_result, stake, timestamp, resolved, valid
		 FROM disputes WHERE market_id = $1`,
		id.String(),
	).Scan(&mid, &d.Disputer, &proposed, &stake, &d.Timestamp, &d.Resolved, &d.Valid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Dispute{}, domain.ErrNotFound
		}
		return domain.Dispute{}, fmt.Errorf("postgres: get dispute: %w", err)
	}
	d.MarketID = id
	d.ProposedResult = domain.Side(proposed)
	d.Stake = uint64(stake)
	return d, nil
}

// ListOutcomes returns every outcome, used to rebuild protocol state.
func (s *OracleStore) ListOutcomes(ctx context.Context) ([]domain.Outcome, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, result, oracle, timestamp, status FROM outcomes ORDER BY market_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.Outcome
	for rows.Next() {
		var (
			o      domain.Outcome
			mid    string
			result int16
			status int16
		)
		if err := rows.Scan(&mid, &result, &o.Oracle, &o.Timestamp, &status); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseMarketID(mid)
		if err != nil {
			return nil, err
		}
		o.MarketID = parsed
		o.Result = domain.Side(result)
		o.Status = domain.OutcomeStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// ListDisputes returns every dispute, used to rebuild protocol state.
func (s *OracleStore) ListDisputes(ctx context.Context) ([]domain.Dispute, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, disputer, proposed_result, stake, timestamp, resolved, valid
		 FROM disputes ORDER BY market_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list disputes: %w", err)
	}
	defer rows.Close()

	var disputes []domain.Dispute
	for rows.Next() {
		var (
			d        domain.Dispute
			mid      string
			proposed int16
			stake    int64
		)
		if err := rows.Scan(&mid, &d.Disputer, &proposed, &stake, &d.Timestamp, &d.Resolved, &d.Valid); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseMarketID(mid)
		if err != nil {
			return nil, err
		}
		d.MarketID = parsed
		d.ProposedResult = domain.Side(proposed)
		d.Stake = uint64(stake)
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}
