package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

type fakeResolver struct{}

func (fakeResolver) ValueOf(ctx context.Context, nft models.NFTId) (float64, error) { return 1.0, nil }
func (fakeResolver) MembersOf(ctx context.Context, c models.CollectionId) ([]models.NFTId, error) {
	return nil, nil
}

func fastConfig() models.TenantConfig {
	cfg := models.DefaultTenantConfig()
	cfg.DebounceWindowMs = 5
	return cfg
}

func TestRegistry_UnknownTenant(t *testing.T) {
	r := NewRegistry(fakeResolver{})
	if _, err := r.GetVersion("ghost"); !errors.Is(err, models.ErrUnknownTenant) {
		t.Fatalf("expected ErrUnknownTenant, got %v", err)
	}
}

func TestRegistry_InitRejectsInvalidConfig(t *testing.T) {
	r := NewRegistry(fakeResolver{})
	cfg := models.DefaultTenantConfig()
	cfg.MaxDepth = 1 // below the valid [2,15] range
	if err := r.InitTenant("t1", cfg); err == nil {
		t.Fatalf("expected invalid config to be rejected")
	}
}

func TestRegistry_SubscribeReceivesLoopAdded(t *testing.T) {
	r := NewRegistry(fakeResolver{})
	if err := r.InitTenant("t1", fastConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.ShutdownTenant("t1")

	sub, err := r.Subscribe("t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Close()

	if _, err := r.ApplyMutation("t1", models.Batch{
		models.AddNFT{OwnerWallet: "alice", NFT: "N1"},
		models.AddNFT{OwnerWallet: "bob", NFT: "N2"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.ApplyMutation("t1", models.Batch{
		models.AddWant{Wallet: "alice", NFT: "N2"},
		models.AddWant{Wallet: "bob", NFT: "N1"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case e := <-sub.Events:
		if e.Type != models.EventLoopAdded {
			t.Fatalf("expected loop_added, got %v", e.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for loop_added event")
	}
}

func TestHub_SubscriberLaggedOnOverflow(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	defer sub.Close()

	for i := 0; i < DefaultSubscriberBuffer+10; i++ {
		h.Publish(models.Event{Type: models.EventLoopAdded, Version: uint64(i)})
	}

	var lastEvent models.Event
	for e := range sub.Events {
		lastEvent = e
	}
	if lastEvent.Type != models.EventSubscriberLagged {
		t.Fatalf("expected final event to be subscriber_lagged, got %v", lastEvent.Type)
	}
}
