package graph

import "github.com/nftloop/tradeloop-engine/pkg/models"

// nft is the store's internal representation of an NFT (§3). Owner is
// empty only transiently between a RemoveNFT and a re-assigning AddNFT
// within the same batch.
type nft struct {
	id         models.NFTId
	owner      models.WalletId
	collection models.CollectionId
}
