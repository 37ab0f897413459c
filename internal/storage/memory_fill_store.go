package storage

import (
	"context"
	"sync"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// InMemoryFillStore keeps only the N most recent fills.
type InMemoryFillStore struct {
	fills   []types.Fill
	maxSize int
	mutex   sync.RWMutex
}

// NewInMemoryFillStore creates a store holding at most maxSize fills.
func NewInMemoryFillStore(maxSize int) *InMemoryFillStore {
	if maxSize < 1 {
		maxSize = 1
	}
	return &InMemoryFillStore{
		fills:   make([]types.Fill, 0, maxSize),
		maxSize: maxSize,
	}
}

func (s *InMemoryFillStore) SaveBatch(_ context.Context, fills []types.Fill) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.fills = append(s.fills, fills...)

	// Trim to max size
	if len(s.fills) > s.maxSize {
		kept := make([]types.Fill, s.maxSize)
		copy(kept, s.fills[len(s.fills)-s.maxSize:])
		s.fills = kept
	}
	return nil
}

func (s *InMemoryFillStore) Recent(_ context.Context, limit int) ([]types.Fill, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	// Clamp limit to actual size
	if limit <= 0 || limit > len(s.fills) {
		limit = len(s.fills)
	}

	start := len(s.fills) - limit
	result := make([]types.Fill, limit)
	copy(result, s.fills[start:])
	return result, nil
}

func (s *InMemoryFillStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.fills)
}

func (s *InMemoryFillStore) Close() error {
	return nil
}
