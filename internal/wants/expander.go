// Package wants implements the Want Expander (C3): translating a wallet's
// specific and collection-level wants into the concrete, deterministic
// expanded want set the rest of the discovery pipeline reads.
package wants

import (
	"sort"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// GraphView is the narrow read-only slice of the Tenant Graph Store (C1)
// the expander needs. Implemented by internal/graph so this package has no
// dependency on it — the expander is a pure function of whatever view it
// is handed.
type GraphView interface {
	SpecificWants(wallet models.WalletId) map[models.NFTId]struct{}
	CollectionWants(wallet models.WalletId) map[models.CollectionId]struct{}
	Rejections(wallet models.WalletId) map[models.NFTId]struct{}
	Owns(wallet models.WalletId, nft models.NFTId) bool
	OwnerOf(nft models.NFTId) (models.WalletId, bool)
	CollectionMembers(collection models.CollectionId) map[models.NFTId]struct{}
}

// Expand computes the deterministic expanded want set for wallet per §4.3:
//
//	specificWants(W) ∪ ⋃ᵢ(membersOf(Kᵢ) ∩ ownedElsewhere) − rejections(W) − owned(W)
//
// The result is returned sorted ascending so that two equal states always
// produce the same ordering — canonicalization (C7) depends on this
// determinism even though set membership itself is order-independent.
func Expand(view GraphView, wallet models.WalletId) []models.NFTId {
	rejections := view.Rejections(wallet)
	result := make(map[models.NFTId]struct{})

	for nft := range view.SpecificWants(wallet) {
		if _, rejected := rejections[nft]; rejected {
			continue
		}
		if view.Owns(wallet, nft) {
			continue
		}
		result[nft] = struct{}{}
	}

	for col := range view.CollectionWants(wallet) {
		for nft := range view.CollectionMembers(col) {
			if _, rejected := rejections[nft]; rejected {
				continue
			}
			if view.Owns(wallet, nft) {
				continue
			}
			owner, owned := view.OwnerOf(nft)
			if !owned || owner == wallet {
				continue // not owned-elsewhere: no edge can exist yet
			}
			result[nft] = struct{}{}
		}
	}

	out := make([]models.NFTId, 0, len(result))
	for nft := range result {
		out = append(out, nft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether two expanded-want slices (assumed sorted, as
// Expand always returns them) represent the same set — used by the store
// to decide whether a wallet's recomputed expansion actually changed and
// therefore belongs in the touched set.
func Equal(a, b []models.NFTId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
