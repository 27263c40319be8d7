package indicatorcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/trendlab/internal/indicators"
)

// RedisTier is the optional shared second tier: computed columns are stored
// in Redis so multiple sweep processes over the same symbol reuse each
// other's work. Columns are encoded as JSON arrays with nulls standing in
// for the warmup NaN sentinel, since JSON has no NaN.
type RedisTier struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTier connects a tier to addr with the given TTL per entry.
func NewRedisTier(addr, password string, db int, ttl time.Duration) *RedisTier {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisTier{client: client, keyPrefix: "trendlab:indicator:", ttl: ttl}
}

// Get fetches and decodes a column; absence is (nil, false, nil).
func (r *RedisTier) Get(ctx context.Context, key Key) (indicators.Column, bool, error) {
	raw, err := r.client.Get(ctx, r.keyPrefix+key.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var encoded []*float64
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return nil, false, fmt.Errorf("decoding cached column: %w", err)
	}
	return decodeColumn(encoded), true, nil
}

// Put encodes and stores a column under the tier's TTL.
func (r *RedisTier) Put(ctx context.Context, key Key, col indicators.Column) error {
	data, err := json.Marshal(encodeColumn(col))
	if err != nil {
		return fmt.Errorf("encoding column: %w", err)
	}
	if err := r.client.Set(ctx, r.keyPrefix+key.String(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisTier) Close() error { return r.client.Close() }

func encodeColumn(col indicators.Column) []*float64 {
	out := make([]*float64, len(col))
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		vv := v
		out[i] = &vv
	}
	return out
}

func decodeColumn(encoded []*float64) indicators.Column {
	col := make(indicators.Column, len(encoded))
	for i, p := range encoded {
		if p == nil {
			col[i] = indicators.Null()
		} else {
			col[i] = *p
		}
	}
	return col
}
