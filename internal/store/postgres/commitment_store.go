package postgres

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// CommitmentStore implements domain.CommitmentStore using PostgreSQL.
type CommitmentStore struct {
	pool *pgxpool.Pool
}

// NewCommitmentStore creates a new CommitmentStore backed by the given pool.
func NewCommitmentStore(pool *pgxpool.Pool) *CommitmentStore {
	return &CommitmentStore{pool: pool}
}

func decodeCommitmentHash(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) != 32 {
		return out, fmt.Errorf("postgres: invalid commitment hash %q", s)
	}
	copy(out[:], b)
	return out, nil
}

// Upsert inserts or replaces the active commitment for a market.
func (s *CommitmentStore) Upsert(ctx context.Context, c domain.Commitment) error {
	const query = `
		INSERT INTO commitments (market_id, commitment_hash, proof_type, submitter, timestamp, ipfs_cid, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (market_id) DO UPDATE SET
			commitment_hash = EXCLUDED.commitment_hash,
			proof_type = EXCLUDED.proof_type,
			submitter = EXCLUDED.submitter,
			timestamp = EXCLUDED.timestamp,
			ipfs_cid = EXCLUDED.ipfs_cid,
			verified = EXCLUDED.verified`
	_, err := s.pool.Exec(ctx, query,
		c.MarketID.String(), "0x"+hex.EncodeToString(c.CommitmentHash[:]),
		int16(c.ProofType), c.Submitter, c.Timestamp, c.IpfsCid, c.Verified,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert commitment: %w", err)
	}
	return nil
}

// Get returns the active commitment for a market.
func (s *CommitmentStore) Get(ctx context.Context, id domain.MarketID) (domain.Commitment, error) {
	var (
		c         domain.Commitment
		mid       string
		hash      string
		proofType int16
	)
	err := s.pool.QueryRow(ctx,
		`SELECT market_id, commitment_hash, proof_type, submitter, timestamp, ipfs_cid, verified
		 FROM commitments WHERE market_id = $1`,
		id.String(),
	).Scan(&mid, &hash, &proofType, &c.Submitter, &c.Timestamp, &c.IpfsCid, &c.Verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Commitment{}, domain.ErrNotFound
		}
		return domain.Commitment{}, fmt.Errorf("postgres: get commitment: %w", err)
	}
	c.MarketID = id
	c.ProofType = domain.ProofType(proofType)
	c.CommitmentHash, err = decodeCommitmentHash(hash)
	if err != nil {
		return domain.Commitment{}, err
	}
	return c, nil
}

// ListAll returns every commitment, used to rebuild verifier state.
func (s *CommitmentStore) ListAll(ctx context.Context) ([]domain.Commitment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, commitment_hash, proof_type, submitter, timestamp, ipfs_cid, verified
		 FROM commitments ORDER BY market_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list commitments: %w", err)
	}
	defer rows.Close()

	var commitments []domain.Commitment
	for rows.Next() {
		var (
			c         domain.Commitment
			mid       string
			hash      string
			proofType int16
		)
		if err := rows.Scan(&mid, &hash, &proofType, &c.Submitter, &c.Timestamp, &c.IpfsCid, &c.Verified); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseMarketID(mid)
		if err != nil {
			return nil, err
		}
		c.MarketID = parsed
		c.ProofType = domain.ProofType(proofType)
		c.CommitmentHash, err = decodeCommitmentHash(hash)
		if err != nil {
			return nil, err
		}
		commitments = append(commitments, c)
	}
	return commitments, rows.Err()
}
