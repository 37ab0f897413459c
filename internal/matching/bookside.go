package matching

import (
	"fmt"
	"slices"
	"sort"

	"github.com/PxPatel/limit-matching-engine/internal/types"
)

// bookSide is one side of an order book: a price -> level map for direct
// lookup plus the same key set kept sorted best price first for traversal.
// Every method that adds or removes a price updates both.
type bookSide struct {
	side   types.Side
	levels map[types.Price]*PriceLevel
	prices []types.Price // asks ascending, bids descending
}

func newBookSide(side types.Side) *bookSide {
	return &bookSide{
		side:   side,
		levels: make(map[types.Price]*PriceLevel),
	}
}

// better reports whether a has priority over b on this side.
func (s *bookSide) better(a, b types.Price) bool {
	if s.side == types.Bid {
		return b.Less(a)
	}
	return a.Less(b)
}

// search returns the position of p in prices, or where it would be inserted.
func (s *bookSide) search(p types.Price) int {
	return sort.Search(len(s.prices), func(i int) bool {
		return !s.better(s.prices[i], p)
	})
}

func (s *bookSide) level(p types.Price) (*PriceLevel, bool) {
	l, ok := s.levels[p]
	return l, ok
}

func (s *bookSide) levelOrCreate(p types.Price) *PriceLevel {
	if l, ok := s.levels[p]; ok {
		return l
	}
	l := NewPriceLevel(p)
	s.levels[p] = l
	s.prices = slices.Insert(s.prices, s.search(p), p)
	return l
}

// remove drops the level at p from both structures.
func (s *bookSide) remove(p types.Price) (*PriceLevel, bool) {
	l, ok := s.levels[p]
	if !ok {
		return nil, false
	}
	delete(s.levels, p)

	i := s.search(p)
	if i >= len(s.prices) || s.prices[i] != p {
		panic(fmt.Sprintf("matching: %s price %s present in levels but not in sorted index", s.side, p))
	}
	s.prices = slices.Delete(s.prices, i, i+1)
	return l, true
}

// removeIfEmpty drops the level at p once its last order is gone.
func (s *bookSide) removeIfEmpty(p types.Price) {
	if l, ok := s.levels[p]; ok && l.IsEmpty() {
		s.remove(p)
	}
}

// best returns the level with the highest priority.
func (s *bookSide) best() (*PriceLevel, bool) {
	if len(s.prices) == 0 {
		return nil, false
	}
	l, ok := s.levels[s.prices[0]]
	if !ok {
		panic(fmt.Sprintf("matching: %s best price %s missing from levels", s.side, s.prices[0]))
	}
	return l, true
}

// depth aggregates up to n levels best first; n <= 0 means all.
func (s *bookSide) depth(n int) []types.DepthLevel {
	count := len(s.prices)
	if n > 0 && n < count {
		count = n
	}
	out := make([]types.DepthLevel, 0, count)
	for _, p := range s.prices[:count] {
		l := s.levels[p]
		out = append(out, types.DepthLevel{
			Price:      p,
			Volume:     l.TotalVolume(),
			OrderCount: l.Len(),
		})
	}
	return out
}

// consistent reports whether the sorted index and the map agree and the
// index is strictly ordered best first.
func (s *bookSide) consistent() bool {
	if len(s.prices) != len(s.levels) {
		return false
	}
	for i, p := range s.prices {
		l, ok := s.levels[p]
		if !ok || l.IsEmpty() || l.Price() != p {
			return false
		}
		if i > 0 && !s.better(s.prices[i-1], p) {
			return false
		}
	}
	return true
}
