package models

// Mutation is the sealed set of typed state changes the Tenant Graph Store
// accepts (§4.1, §9 "the reimplementation must define typed mutation
// variants; unknown fields in snapshots are ignored, unknown mutation
// variants are rejected"). Every concrete type below implements it; there is
// no escape hatch for an untyped payload reaching the store.
type Mutation interface {
	mutationKind() string
}

// AddNFT creates or re-assigns an NFT to OwnerWallet. CollectionId may be
// empty for NFTs with no collection membership. ValuationHint is accepted
// but not read by the store or the valuation cache; values always come
// through the Valuation Resolver (C2).
type AddNFT struct {
	OwnerWallet   WalletId
	NFT           NFTId
	Collection    CollectionId
	ValuationHint *float64
}

func (AddNFT) mutationKind() string { return "add_nft" }

// RemoveNFT deletes an NFT from the tenant entirely (not merely from a
// wallet). Any active loop referencing it is implicitly invalidated (§3
// Lifecycle).
type RemoveNFT struct {
	NFT NFTId
}

func (RemoveNFT) mutationKind() string { return "remove_nft" }

// AddWant records that Wallet is willing to accept NFT. Silently filtered by
// the store if Wallet already owns NFT (§3 Wallet invariant) or has
// rejected it.
type AddWant struct {
	Wallet WalletId
	NFT    NFTId
}

func (AddWant) mutationKind() string { return "add_want" }

// RemoveWant withdraws a previously submitted specific-NFT want.
type RemoveWant struct {
	Wallet WalletId
	NFT    NFTId
}

func (RemoveWant) mutationKind() string { return "remove_want" }

// AddCollectionWant records that Wallet will accept any NFT currently or
// later found in Collection, expanded incrementally by the Want Expander
// (§4.3).
type AddCollectionWant struct {
	Wallet     WalletId
	Collection CollectionId
}

func (AddCollectionWant) mutationKind() string { return "add_collection_want" }

// RemoveCollectionWant withdraws a collection-level want.
type RemoveCollectionWant struct {
	Wallet     WalletId
	Collection CollectionId
}

func (RemoveCollectionWant) mutationKind() string { return "remove_collection_want" }

// AddRejection marks NFT as one Wallet explicitly refuses to receive,
// regardless of any specific or collection want that would otherwise
// include it.
type AddRejection struct {
	Wallet WalletId
	NFT    NFTId
}

func (AddRejection) mutationKind() string { return "add_rejection" }

// RemoveRejection lifts a previously recorded rejection.
type RemoveRejection struct {
	Wallet WalletId
	NFT    NFTId
}

func (RemoveRejection) mutationKind() string { return "remove_rejection" }

// UpsertCollectionMembership sets the membership of an NFT within a
// collection, used by external collaborators to seed or correct C3's view
// of collection contents independent of ownership mutations.
type UpsertCollectionMembership struct {
	Collection CollectionId
	NFT        NFTId
	Member     bool // false removes the NFT from the collection
}

func (UpsertCollectionMembership) mutationKind() string { return "upsert_collection_membership" }

// DeleteWallet removes a wallet and every loop it participated in. Its
// owned NFTs become ownerless (and are removed, since an NFT without an
// owner cannot satisfy any want) unless reassigned by a preceding AddNFT in
// the same batch.
type DeleteWallet struct {
	Wallet WalletId
}

func (DeleteWallet) mutationKind() string { return "delete_wallet" }

// Batch is the atomic unit applied by the Tenant Graph Store. All mutations
// in a Batch are validated and applied together, or none are (§4.1, §7
// "a mutation either fully applies ... or fails atomically").
type Batch []Mutation
