// Package valuation defines the Valuation & Collection Resolver contracts
// (C2), plus a caching decorator for whatever external oracle implements
// them. The Quality Scorer (C8) consumes ValueOf; the Want Expander (C3)
// does not use this package — it reads collection membership from the
// Tenant Graph Store.
//
// The core never assumes a specific pricing source — Resolver is the only
// seam; external collaborators supply the concrete implementation (§4.2).
package valuation

import (
	"context"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// Resolver is the external collaborator contract: value lookups and
// collection membership, both scoped to the calling tenant.
type Resolver interface {
	// ValueOf returns a non-negative valuation for nft. Units are
	// tenant-consistent but otherwise opaque to the engine.
	ValueOf(ctx context.Context, nft models.NFTId) (float64, error)

	// MembersOf returns the current set of NFTId belonging to collection.
	// Must be idempotent per call. No engine component calls it; collection
	// membership enters the graph through AddNFT and
	// UpsertCollectionMembership mutations.
	MembersOf(ctx context.Context, collection models.CollectionId) ([]models.NFTId, error)
}
