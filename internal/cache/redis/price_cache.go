package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each market's
// quote is stored at key "price:{marketID}" with fields "yes_bps", "no_bps"
// and "ts" (ledger timestamp, Unix seconds).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(id domain.MarketID) string {
	return "price:" + id.String()
}

// SetPrices stores the latest basis-point quote for a market.
func (pc *PriceCache) SetPrices(ctx context.Context, id domain.MarketID, yesBps, noBps uint64, ts int64) error {
	fields := map[string]interface{}{
		"yes_bps": strconv.FormatUint(yesBps, 10),
		"no_bps":  strconv.FormatUint(noBps, 10),
		"ts":      strconv.FormatInt(ts, 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(id), fields).Err(); err != nil {
		return fmt.Errorf("redis: set prices %s: %w", id, err)
	}
	return nil
}

// GetPrices retrieves the latest quote for a market. It returns
// domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetPrices(ctx context.Context, id domain.MarketID) (uint64, uint64, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(id)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get prices %s: %w", id, err)
	}
	if len(vals) == 0 {
		return 0, 0, domain.ErrNotFound
	}

	yesStr, ok := vals["yes_bps"]
	if !ok {
		return 0, 0, domain.ErrNotFound
	}
	yesBps, err := strconv.ParseUint(yesStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("redis: parse yes_bps %s: %w", id, err)
	}

	noStr, ok := vals["no_bps"]
	if !ok {
		return 0, 0, domain.ErrNotFound
	}
	noBps, err := strconv.ParseUint(noStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("redis: parse no_bps %s: %w", id, err)
	}

	return yesBps, noBps, nil
}

// Invalidate removes the cached quote for a market, forcing the next read
// through to the engine.
func (pc *PriceCache) Invalidate(ctx context.Context, id domain.MarketID) error {
	if err := pc.rdb.Del(ctx, priceKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate prices %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
