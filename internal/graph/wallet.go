package graph

import (
	"time"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// wallet is the store's internal, mutable representation of a Wallet
// (§3). ExpandedWants is maintained incrementally by the Want Expander
// (C3) and is the set C4/C5 read when building the wallet-projection
// graph — TenantGraph is the single source of truth; nothing outside this
// package holds a pointer into it.
type wallet struct {
	id              models.WalletId
	owned           map[models.NFTId]struct{}
	specificWants   map[models.NFTId]struct{}
	collectionWants map[models.CollectionId]struct{}
	rejections      map[models.NFTId]struct{}
	expandedWants   map[models.NFTId]struct{}
	lastMutated     time.Time
}

func newWallet(id models.WalletId) *wallet {
	return &wallet{
		id:              id,
		owned:           make(map[models.NFTId]struct{}),
		specificWants:   make(map[models.NFTId]struct{}),
		collectionWants: make(map[models.CollectionId]struct{}),
		rejections:      make(map[models.NFTId]struct{}),
		expandedWants:   make(map[models.NFTId]struct{}),
	}
}

func (w *wallet) ownsNFT(nft models.NFTId) bool {
	_, ok := w.owned[nft]
	return ok
}
