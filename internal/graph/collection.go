package graph

import "github.com/nftloop/tradeloop-engine/pkg/models"

// collection is the store's internal representation of a Collection (§3):
// the set of NFTs currently known to belong to it, mutated by AddNFT and
// UpsertCollectionMembership.
type collection struct {
	id      models.CollectionId
	members map[models.NFTId]struct{}
}

func newCollection(id models.CollectionId) *collection {
	return &collection{id: id, members: make(map[models.NFTId]struct{})}
}
