package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

const (
	fillsKey           = "fills:recent"
	defaultFillChannel = "fills"
	defaultMaxFills    = 10000
)

// FillStore keeps the most recent fills in a capped sorted set scored by
// fill timestamp, and publishes every fill on a pub/sub channel so
// reporting consumers can follow the tape. Sequences restart with the
// process, so they only order fills that share a timestamp.
type FillStore struct {
	client   *redis.Client
	channel  string
	maxFills int
}

// NewFillStore connects to Redis and returns a store bound to it.
func NewFillStore(ctx context.Context, cfg RedisConfig) (*FillStore, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewFillStoreWithClient(client, cfg), nil
}

// NewFillStoreWithClient wraps an existing client.
func NewFillStoreWithClient(client *redis.Client, cfg RedisConfig) *FillStore {
	channel := cfg.FillChannel
	if channel == "" {
		channel = defaultFillChannel
	}
	maxFills := cfg.MaxFills
	if maxFills <= 0 {
		maxFills = defaultMaxFills
	}
	return &FillStore{
		client:   client,
		channel:  channel,
		maxFills: maxFills,
	}
}

// Channel is the pub/sub channel fills are published on.
func (s *FillStore) Channel() string { return s.channel }

func (s *FillStore) SaveBatch(ctx context.Context, fills []types.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	for _, fill := range fills {
		data, err := encodeFill(fill)
		if err != nil {
			return err
		}

		pipe.ZAdd(ctx, fillsKey, redis.Z{
			Score:  fillScore(fill),
			Member: data,
		})
		pipe.Publish(ctx, s.channel, data)
	}

	// Keep only the newest maxFills entries
	pipe.ZRemRangeByRank(ctx, fillsKey, 0, int64(-s.maxFills-1))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis fill batch: %w", err)
	}
	return nil
}

func (s *FillStore) Recent(ctx context.Context, limit int) ([]types.Fill, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	// Newest first from Redis, returned oldest first
	results, err := s.client.ZRevRange(ctx, fillsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis recent fills: %w", err)
	}

	fills := make([]types.Fill, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		fill, err := decodeFill([]byte(results[i]))
		if err != nil {
			continue
		}
		fills = append(fills, fill)
	}
	sortFills(fills)
	return fills, nil
}

func (s *FillStore) Close() error {
	return s.client.Close()
}

func encodeFill(fill types.Fill) ([]byte, error) {
	data, err := json.Marshal(fill)
	if err != nil {
		return nil, fmt.Errorf("encode fill %d: %w", fill.Sequence, err)
	}
	return data, nil
}

func decodeFill(data []byte) (types.Fill, error) {
	var fill types.Fill
	if err := json.Unmarshal(data, &fill); err != nil {
		return types.Fill{}, fmt.Errorf("decode fill: %w", err)
	}
	return fill, nil
}

func fillScore(fill types.Fill) float64 {
	ts := fill.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return float64(ts.UnixNano())
}

// sortFills orders fills oldest first. Members with equal scores come back
// from Redis in lexical order, so sequence breaks timestamp ties.
func sortFills(fills []types.Fill) {
	slices.SortStableFunc(fills, func(a, b types.Fill) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Sequence, b.Sequence)
	})
}
