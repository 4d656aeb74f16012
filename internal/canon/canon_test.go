package canon

import (
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

func step(g, r, n string) models.Step {
	return models.Step{GiverWallet: models.WalletId(g), ReceiverWallet: models.WalletId(r), NFT: models.NFTId(n)}
}

func TestKey_RotationInvariant(t *testing.T) {
	cycle := []models.Step{
		step("alice", "bob", "A"),
		step("bob", "carol", "B"),
		step("carol", "alice", "C"),
	}
	rotated := []models.Step{
		step("bob", "carol", "B"),
		step("carol", "alice", "C"),
		step("alice", "bob", "A"),
	}

	if Key(cycle) != Key(rotated) {
		t.Fatalf("expected rotation-invariant keys, got %q vs %q", Key(cycle), Key(rotated))
	}
}

func TestKey_DirectionInvariant(t *testing.T) {
	cycle := []models.Step{
		step("alice", "bob", "A"),
		step("bob", "carol", "B"),
		step("carol", "alice", "C"),
	}
	reversed := []models.Step{
		step("carol", "bob", "C"),
		step("bob", "alice", "B"),
		step("alice", "carol", "A"),
	}

	if Key(cycle) != Key(reversed) {
		t.Fatalf("expected direction-invariant keys, got %q vs %q", Key(cycle), Key(reversed))
	}
}

func TestKey_DifferentCyclesDiffer(t *testing.T) {
	a := []models.Step{step("alice", "bob", "A"), step("bob", "alice", "B")}
	b := []models.Step{step("alice", "bob", "A"), step("bob", "carol", "B"), step("carol", "alice", "C")}

	if Key(a) == Key(b) {
		t.Fatalf("expected distinct keys for distinct cycles")
	}
}

func TestDedup_RegisterAndContains(t *testing.T) {
	d := NewDedup(16, 1e-3)
	key := "k1"

	if d.Contains(key) {
		t.Fatal("expected unregistered key to be absent")
	}
	if !d.Register(key) {
		t.Fatal("expected first registration to succeed")
	}
	if d.Register(key) {
		t.Fatal("expected duplicate registration to fail")
	}
	if !d.Contains(key) {
		t.Fatal("expected registered key to be present")
	}

	d.Unregister(key)
	if d.Contains(key) {
		t.Fatal("expected unregistered key to be absent after Unregister")
	}
}
