package graph

import (
	"errors"
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

func testConfig() models.TenantConfig {
	return models.DefaultTenantConfig()
}

func TestApplyBatch_OwnershipUniqueness(t *testing.T) {
	g := New(testConfig())
	_, err := g.ApplyBatch(models.Batch{
		models.AddNFT{OwnerWallet: "alice", NFT: "N1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	touched, err := g.ApplyBatch(models.Batch{
		models.RemoveNFT{NFT: "N1"},
		models.AddNFT{OwnerWallet: "bob", NFT: "N1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := touched["alice"]; !ok {
		t.Fatalf("expected previous owner alice to be touched, got %v", touched)
	}

	vertices, edges := g.WalletProjection()
	_ = vertices
	_ = edges
	loops := g.ActiveLoopsForWallet("alice")
	if len(loops) != 0 {
		t.Fatalf("expected no loops for alice after losing N1")
	}
}

func TestApplyBatch_ConflictingOwnershipWithoutRemove(t *testing.T) {
	g := New(testConfig())
	if _, err := g.ApplyBatch(models.Batch{models.AddNFT{OwnerWallet: "alice", NFT: "N1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ConflictingOwnership fires for any AddNFT claiming an NFT another
	// wallet owns without a preceding RemoveNFT in the same batch; here the
	// competing claims are made within a single batch.
	_, err := g.ApplyBatch(models.Batch{
		models.AddNFT{OwnerWallet: "carol", NFT: "N2"},
		models.AddNFT{OwnerWallet: "dave", NFT: "N2"},
	})
	if !errors.Is(err, models.ErrConflictingOwnership) {
		t.Fatalf("expected ErrConflictingOwnership, got %v", err)
	}

	// Graph must be unchanged by the failed batch (atomicity).
	if g.Version() != 1 {
		t.Fatalf("expected version to remain at 1 after failed batch, got %d", g.Version())
	}
}

func TestApplyBatch_ConflictingOwnershipWithPrecedingRemove(t *testing.T) {
	g := New(testConfig())
	if _, err := g.ApplyBatch(models.Batch{models.AddNFT{OwnerWallet: "alice", NFT: "N1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := g.ApplyBatch(models.Batch{
		models.RemoveNFT{NFT: "N1"},
		models.AddNFT{OwnerWallet: "bob", NFT: "N1"},
	})
	if err != nil {
		t.Fatalf("expected remove-then-add to succeed, got %v", err)
	}
}

func TestApplyBatch_RemoveUnknownNFT(t *testing.T) {
	g := New(testConfig())
	_, err := g.ApplyBatch(models.Batch{models.RemoveNFT{NFT: "ghost"}})
	if !errors.Is(err, models.ErrUnknownNFT) {
		t.Fatalf("expected ErrUnknownNFT, got %v", err)
	}
}

func TestApplyBatch_DeleteUnknownWallet(t *testing.T) {
	g := New(testConfig())
	_, err := g.ApplyBatch(models.Batch{models.DeleteWallet{Wallet: "ghost"}})
	if !errors.Is(err, models.ErrUnknownWallet) {
		t.Fatalf("expected ErrUnknownWallet, got %v", err)
	}
}

func TestApplyBatch_WantCannotTargetOwnedNFT(t *testing.T) {
	g := New(testConfig())
	if _, err := g.ApplyBatch(models.Batch{models.AddNFT{OwnerWallet: "alice", NFT: "N1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.ApplyBatch(models.Batch{models.AddWant{Wallet: "alice", NFT: "N1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := tenantView{g}
	if view.Owns("alice", "N1") {
		if _, wants := view.SpecificWants("alice")["N1"]; wants {
			t.Fatalf("wallet must never want an nft it owns")
		}
	}
}

func TestApplyBatch_RejectionSuppressesWant(t *testing.T) {
	g := New(testConfig())
	batch := models.Batch{
		models.AddWant{Wallet: "alice", NFT: "N1"},
		models.AddRejection{Wallet: "alice", NFT: "N1"},
	}
	if _, err := g.ApplyBatch(batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := tenantView{g}
	if _, wants := view.SpecificWants("alice")["N1"]; wants {
		t.Fatalf("a rejected nft must never appear in the raw want set")
	}
}

func TestApplyBatch_IdempotentReapplication(t *testing.T) {
	g := New(testConfig())
	batch := models.Batch{
		models.AddNFT{OwnerWallet: "alice", NFT: "N1"},
		models.AddWant{Wallet: "bob", NFT: "N1"},
	}
	if _, err := g.ApplyBatch(batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap1, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	// Re-applying AddWant for the same wallet/nft should be a no-op beyond
	// the version counter — the resulting want sets must be identical.
	if _, err := g.ApplyBatch(models.Batch{models.AddWant{Wallet: "bob", NFT: "N1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap2, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	g1, err := Restore(snap1, testConfig())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	g2, err := Restore(snap2, testConfig())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !wantsEqual(g1, g2, "bob") {
		t.Fatalf("expected idempotent reapplication to leave want sets unchanged")
	}
}

func wantsEqual(a, b *TenantGraph, w models.WalletId) bool {
	wa, oka := a.wallets[w]
	wb, okb := b.wallets[w]
	if oka != okb {
		return false
	}
	if !oka {
		return true
	}
	if len(wa.specificWants) != len(wb.specificWants) {
		return false
	}
	for nft := range wa.specificWants {
		if _, ok := wb.specificWants[nft]; !ok {
			return false
		}
	}
	return true
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New(testConfig())
	batch := models.Batch{
		models.AddNFT{OwnerWallet: "alice", NFT: "N1", Collection: "K1"},
		models.AddNFT{OwnerWallet: "bob", NFT: "N2", Collection: "K1"},
		models.AddCollectionWant{Wallet: "alice", Collection: "K1"},
	}
	if _, err := g.ApplyBatch(batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	restored, err := Restore(data, testConfig())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Version() != g.Version() {
		t.Fatalf("expected version %d, got %d", g.Version(), restored.Version())
	}
	vOrig, eOrig := g.WalletProjection()
	vNew, eNew := restored.WalletProjection()
	if len(vOrig) != len(vNew) {
		t.Fatalf("expected same vertex count after round-trip")
	}
	for _, w := range vOrig {
		if len(eOrig[w]) != len(eNew[w]) {
			t.Fatalf("expected same edge count for wallet %q after round-trip", w)
		}
	}
}

func TestDiffAndCommitLoops_AddAndRemove(t *testing.T) {
	g := New(testConfig())
	batch := models.Batch{
		models.AddNFT{OwnerWallet: "alice", NFT: "N1"},
		models.AddNFT{OwnerWallet: "bob", NFT: "N2"},
		models.AddWant{Wallet: "alice", NFT: "N2"},
		models.AddWant{Wallet: "bob", NFT: "N1"},
	}
	if _, err := g.ApplyBatch(batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loop := &models.TradeLoop{
		CanonicalId:      "loop1",
		Steps:            []models.Step{{GiverWallet: "alice", ReceiverWallet: "bob", NFT: "N1"}, {GiverWallet: "bob", ReceiverWallet: "alice", NFT: "N2"}},
		ParticipantCount: 2,
	}
	added, removed := g.DiffAndCommitLoops(map[string]*models.TradeLoop{"loop1": loop})
	if len(added) != 1 || len(removed) != 0 {
		t.Fatalf("expected 1 added, 0 removed, got %d/%d", len(added), len(removed))
	}

	added, removed = g.DiffAndCommitLoops(map[string]*models.TradeLoop{})
	if len(added) != 0 || len(removed) != 1 {
		t.Fatalf("expected 0 added, 1 removed, got %d/%d", len(added), len(removed))
	}
}

func TestActiveLoopsForWallet_Ordering(t *testing.T) {
	g := New(testConfig())
	l1 := &models.TradeLoop{CanonicalId: "b", QualityScore: 0.9, ParticipantCount: 3,
		Steps: []models.Step{{GiverWallet: "alice", ReceiverWallet: "bob", NFT: "N1"}, {GiverWallet: "bob", ReceiverWallet: "alice", NFT: "N2"}}}
	l2 := &models.TradeLoop{CanonicalId: "a", QualityScore: 0.9, ParticipantCount: 2,
		Steps: []models.Step{{GiverWallet: "alice", ReceiverWallet: "bob", NFT: "N1"}, {GiverWallet: "bob", ReceiverWallet: "alice", NFT: "N2"}}}

	batch := models.Batch{
		models.AddNFT{OwnerWallet: "alice", NFT: "N1"},
		models.AddNFT{OwnerWallet: "bob", NFT: "N2"},
		models.AddWant{Wallet: "alice", NFT: "N2"},
		models.AddWant{Wallet: "bob", NFT: "N1"},
	}
	if _, err := g.ApplyBatch(batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.DiffAndCommitLoops(map[string]*models.TradeLoop{"b": l1, "a": l2})

	loops := g.ActiveLoopsForWallet("alice")
	if len(loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(loops))
	}
	if loops[0].ParticipantCount != 2 {
		t.Fatalf("expected lower participantCount to sort first on quality tie, got %+v", loops[0])
	}
}
