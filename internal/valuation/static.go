package valuation

import (
	"context"
	"sync"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// StaticResolver is a demo-only upstream Resolver backed by an in-memory
// map, standing in for the external pricing oracle and collection indexer
// the spec deliberately leaves unspecified (§4.2 "the core never assumes a
// specific pricing source"). cmd/engine wraps it in CachingResolver so the
// rest of the engine is exercised exactly as it would be against a real
// oracle. Not meant for production use.
type StaticResolver struct {
	mu          sync.RWMutex
	values      map[models.NFTId]float64
	collections map[models.CollectionId][]models.NFTId
}

// NewStaticResolver returns an empty resolver; SetValue/SetMembers seed it.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		values:      make(map[models.NFTId]float64),
		collections: make(map[models.CollectionId][]models.NFTId),
	}
}

// SetValue sets nft's valuation. ValueOf returns 0 for an NFT never set
// rather than erroring — an unpriced NFT degrades scoring, it does not
// block discovery (§4.2).
func (s *StaticResolver) SetValue(nft models.NFTId, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[nft] = value
}

// SetMembers replaces collection's known membership list.
func (s *StaticResolver) SetMembers(collection models.CollectionId, members []models.NFTId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.NFTId, len(members))
	copy(cp, members)
	s.collections[collection] = cp
}

func (s *StaticResolver) ValueOf(ctx context.Context, nft models.NFTId) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[nft], nil
}

func (s *StaticResolver) MembersOf(ctx context.Context, collection models.CollectionId) ([]models.NFTId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.collections[collection]
	out := make([]models.NFTId, len(members))
	copy(out, members)
	return out, nil
}
