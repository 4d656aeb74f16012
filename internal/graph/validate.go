package graph

import (
	"fmt"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// validateBatch performs a read-only dry run of batch against g, returning
// the first violation of §3/§7's error taxonomy without mutating g. A
// batch that passes validateBatch is guaranteed to apply cleanly —
// ApplyBatch relies on this to give all-or-nothing semantics without a
// separate rollback path.
func validateBatch(g *TenantGraph, batch models.Batch) error {
	// overlay state tracked purely for this batch, mirroring the ordering
	// rules that make ConflictingOwnership and UnknownNFT/UnknownWallet
	// order-sensitive within a single batch.
	removedThisBatch := make(map[models.NFTId]bool)
	addedThisBatch := make(map[models.NFTId]models.WalletId)
	deletedThisBatch := make(map[models.WalletId]bool)
	mentionedThisBatch := make(map[models.WalletId]bool)

	nftExists := func(id models.NFTId) bool {
		if _, ok := addedThisBatch[id]; ok {
			return true
		}
		if removedThisBatch[id] {
			return false
		}
		_, ok := g.nfts[id]
		return ok
	}
	currentOwner := func(id models.NFTId) (models.WalletId, bool) {
		if o, ok := addedThisBatch[id]; ok {
			return o, true
		}
		if removedThisBatch[id] {
			return "", false
		}
		if n, ok := g.nfts[id]; ok && n.owner != "" {
			return n.owner, true
		}
		return "", false
	}
	walletExists := func(id models.WalletId) bool {
		if deletedThisBatch[id] {
			return false
		}
		if mentionedThisBatch[id] {
			return true
		}
		_, ok := g.wallets[id]
		return ok
	}

	for _, m := range batch {
		switch mm := m.(type) {
		case models.AddNFT:
			if mm.OwnerWallet == "" || mm.NFT == "" {
				return fmt.Errorf("%w: addNFT requires a wallet and nft id", models.ErrInvalidMutation)
			}
			if owner, owned := currentOwner(mm.NFT); owned && owner != mm.OwnerWallet {
				return fmt.Errorf("%w: nft %q already owned by %q", models.ErrConflictingOwnership, mm.NFT, owner)
			}
			addedThisBatch[mm.NFT] = mm.OwnerWallet
			delete(removedThisBatch, mm.NFT)
			mentionedThisBatch[mm.OwnerWallet] = true

		case models.RemoveNFT:
			if mm.NFT == "" {
				return fmt.Errorf("%w: removeNFT requires an nft id", models.ErrInvalidMutation)
			}
			if !nftExists(mm.NFT) {
				return fmt.Errorf("%w: nft %q", models.ErrUnknownNFT, mm.NFT)
			}
			removedThisBatch[mm.NFT] = true
			delete(addedThisBatch, mm.NFT)

		case models.AddWant:
			if mm.Wallet == "" || mm.NFT == "" {
				return fmt.Errorf("%w: addWant requires a wallet and nft id", models.ErrInvalidMutation)
			}
			mentionedThisBatch[mm.Wallet] = true

		case models.RemoveWant:
			if mm.Wallet == "" || mm.NFT == "" {
				return fmt.Errorf("%w: removeWant requires a wallet and nft id", models.ErrInvalidMutation)
			}

		case models.AddCollectionWant:
			if mm.Wallet == "" || mm.Collection == "" {
				return fmt.Errorf("%w: addCollectionWant requires a wallet and collection id", models.ErrInvalidMutation)
			}
			mentionedThisBatch[mm.Wallet] = true

		case models.RemoveCollectionWant:
			if mm.Wallet == "" || mm.Collection == "" {
				return fmt.Errorf("%w: removeCollectionWant requires a wallet and collection id", models.ErrInvalidMutation)
			}

		case models.AddRejection:
			if mm.Wallet == "" || mm.NFT == "" {
				return fmt.Errorf("%w: addRejection requires a wallet and nft id", models.ErrInvalidMutation)
			}
			mentionedThisBatch[mm.Wallet] = true

		case models.RemoveRejection:
			if mm.Wallet == "" || mm.NFT == "" {
				return fmt.Errorf("%w: removeRejection requires a wallet and nft id", models.ErrInvalidMutation)
			}

		case models.UpsertCollectionMembership:
			if mm.Collection == "" || mm.NFT == "" {
				return fmt.Errorf("%w: upsertCollectionMembership requires a collection and nft id", models.ErrInvalidMutation)
			}

		case models.DeleteWallet:
			if mm.Wallet == "" {
				return fmt.Errorf("%w: deleteWallet requires a wallet id", models.ErrInvalidMutation)
			}
			if !walletExists(mm.Wallet) {
				return fmt.Errorf("%w: wallet %q", models.ErrUnknownWallet, mm.Wallet)
			}
			deletedThisBatch[mm.Wallet] = true
			delete(mentionedThisBatch, mm.Wallet)

		default:
			return fmt.Errorf("%w: unrecognized mutation type %T", models.ErrInvalidMutation, m)
		}
	}
	return nil
}
