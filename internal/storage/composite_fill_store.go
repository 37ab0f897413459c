package storage

import (
	"context"
	"errors"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// CompositeFillStore fans writes out to every store and reads from the
// first store that has data, e.g. [memory, redis] reads from memory and
// also publishes through Redis.
type CompositeFillStore struct {
	stores []FillStore
}

func NewCompositeFillStore(stores ...FillStore) *CompositeFillStore {
	return &CompositeFillStore{stores: stores}
}

func (c *CompositeFillStore) SaveBatch(ctx context.Context, fills []types.Fill) error {
	var errs []error
	for _, store := range c.stores {
		if err := store.SaveBatch(ctx, fills); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *CompositeFillStore) Recent(ctx context.Context, limit int) ([]types.Fill, error) {
	var errs []error
	for _, store := range c.stores {
		fills, err := store.Recent(ctx, limit)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(fills) > 0 {
			return fills, nil
		}
	}
	if len(errs) == len(c.stores) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return []types.Fill{}, nil
}

func (c *CompositeFillStore) Close() error {
	var errs []error
	for _, store := range c.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
