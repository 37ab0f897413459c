package storage

import (
	"context"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// FillStore receives fill notifications from the engine and serves the most
// recent ones back to a reporting layer.
// Implementations can be an in-memory buffer, Redis, or a composite of both.
type FillStore interface {
	// SaveBatch records fills in the order they were produced
	SaveBatch(ctx context.Context, fills []types.Fill) error

	// Recent returns up to limit of the newest fills, oldest first
	Recent(ctx context.Context, limit int) ([]types.Fill, error)

	// Close releases any resources held by the store
	Close() error
}
