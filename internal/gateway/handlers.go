package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nftloop/tradeloop-engine/internal/api"
	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// mutationWire is the JSON wire shape for one models.Mutation. Mutation
// is a sealed interface (unexported mutationKind method) by design — §9
// forbids an untyped payload reaching the store — so the gateway decodes
// the discriminated union here and constructs the concrete type itself
// rather than exposing the interface to encoding/json directly.
type mutationWire struct {
	Type          string   `json:"type" binding:"required"`
	Wallet        string   `json:"wallet,omitempty"`
	NFT           string   `json:"nft,omitempty"`
	Collection    string   `json:"collection,omitempty"`
	OwnerWallet   string   `json:"ownerWallet,omitempty"`
	ValuationHint *float64 `json:"valuationHint,omitempty"`
	Member        *bool    `json:"member,omitempty"`
}

func (w mutationWire) toMutation() (models.Mutation, error) {
	switch w.Type {
	case "add_nft":
		return models.AddNFT{
			OwnerWallet:   models.WalletId(w.OwnerWallet),
			NFT:           models.NFTId(w.NFT),
			Collection:    models.CollectionId(w.Collection),
			ValuationHint: w.ValuationHint,
		}, nil
	case "remove_nft":
		return models.RemoveNFT{NFT: models.NFTId(w.NFT)}, nil
	case "add_want":
		return models.AddWant{Wallet: models.WalletId(w.Wallet), NFT: models.NFTId(w.NFT)}, nil
	case "remove_want":
		return models.RemoveWant{Wallet: models.WalletId(w.Wallet), NFT: models.NFTId(w.NFT)}, nil
	case "add_collection_want":
		return models.AddCollectionWant{Wallet: models.WalletId(w.Wallet), Collection: models.CollectionId(w.Collection)}, nil
	case "remove_collection_want":
		return models.RemoveCollectionWant{Wallet: models.WalletId(w.Wallet), Collection: models.CollectionId(w.Collection)}, nil
	case "add_rejection":
		return models.AddRejection{Wallet: models.WalletId(w.Wallet), NFT: models.NFTId(w.NFT)}, nil
	case "remove_rejection":
		return models.RemoveRejection{Wallet: models.WalletId(w.Wallet), NFT: models.NFTId(w.NFT)}, nil
	case "upsert_collection_membership":
		member := w.Member != nil && *w.Member
		return models.UpsertCollectionMembership{Collection: models.CollectionId(w.Collection), NFT: models.NFTId(w.NFT), Member: member}, nil
	case "delete_wallet":
		return models.DeleteWallet{Wallet: models.WalletId(w.Wallet)}, nil
	default:
		return nil, fmt.Errorf("unknown mutation type %q", w.Type)
	}
}

type batchRequest struct {
	Mutations []mutationWire `json:"mutations" binding:"required"`
}

// postMutations handles POST /tenants/:tenantId/mutations.
func postMutations(registry *api.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := models.TenantId(c.Param("tenantId"))

		var req batchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		batch := make(models.Batch, 0, len(req.Mutations))
		for i, w := range req.Mutations {
			m, err := w.toMutation()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("mutation %d: %v", i, err)})
				return
			}
			batch = append(batch, m)
		}

		touched, err := registry.ApplyMutation(tenantId, batch)
		if err != nil {
			writeRegistryError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"touchedWallets": walletIdsToStrings(touched)})
	}
}

// getLoopsForWallet handles GET /tenants/:tenantId/wallets/:walletId/loops.
func getLoopsForWallet(registry *api.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := models.TenantId(c.Param("tenantId"))
		wallet := models.WalletId(c.Param("walletId"))

		loops, err := registry.GetLoopsForWallet(tenantId, wallet)
		if err != nil {
			writeRegistryError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"loops": loops})
	}
}

// getVersion handles GET /tenants/:tenantId/version.
func getVersion(registry *api.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := models.TenantId(c.Param("tenantId"))

		version, err := registry.GetVersion(tenantId)
		if err != nil {
			writeRegistryError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"version": version})
	}
}

// getProgress handles GET /tenants/:tenantId/progress.
func getProgress(registry *api.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := models.TenantId(c.Param("tenantId"))

		progress, err := registry.GetProgress(tenantId)
		if err != nil {
			writeRegistryError(c, err)
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}

func writeRegistryError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrUnknownTenant) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, models.ErrTenantBackpressured) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, models.ErrInvalidMutation) || errors.Is(err, models.ErrConflictingOwnership) ||
		errors.Is(err, models.ErrUnknownNFT) || errors.Is(err, models.ErrUnknownWallet) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func walletIdsToStrings(ids map[models.WalletId]struct{}) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, string(id))
	}
	return out
}
