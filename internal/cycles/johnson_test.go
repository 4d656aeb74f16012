package cycles

import (
	"context"
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

func fixedEdgeNFTs(table map[[2]models.WalletId][]models.NFTId) EdgeNFTsFunc {
	return func(giver, receiver models.WalletId) []models.NFTId {
		return table[[2]models.WalletId{giver, receiver}]
	}
}

func TestEnumerate_TwoPartyCycle(t *testing.T) {
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"a"},
	}
	edgeNFTs := fixedEdgeNFTs(map[[2]models.WalletId][]models.NFTId{
		{"a", "b"}: {"N1"},
		{"b", "a"}: {"N2"},
	})
	res, err := Enumerate(context.Background(), []models.WalletId{"a", "b"}, edges, edgeNFTs, 10, 1000, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(res.Loops))
	}
	if res.Loops[0].ParticipantCount != 2 {
		t.Fatalf("expected 2 participants, got %d", res.Loops[0].ParticipantCount)
	}
}

func TestEnumerate_ThreePartyCycle(t *testing.T) {
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	edgeNFTs := fixedEdgeNFTs(map[[2]models.WalletId][]models.NFTId{
		{"a", "b"}: {"N1"},
		{"b", "c"}: {"N2"},
		{"c", "a"}: {"N3"},
	})
	res, err := Enumerate(context.Background(), []models.WalletId{"a", "b", "c"}, edges, edgeNFTs, 10, 1000, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(res.Loops))
	}
}

func TestEnumerate_RespectsMaxDepth(t *testing.T) {
	// a 4-cycle, but maxDepth of 3 should exclude it.
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"c"},
		"c": {"d"},
		"d": {"a"},
	}
	edgeNFTs := fixedEdgeNFTs(map[[2]models.WalletId][]models.NFTId{
		{"a", "b"}: {"N1"}, {"b", "c"}: {"N2"}, {"c", "d"}: {"N3"}, {"d", "a"}: {"N4"},
	})
	res, err := Enumerate(context.Background(), []models.WalletId{"a", "b", "c", "d"}, edges, edgeNFTs, 3, 1000, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Loops) != 0 {
		t.Fatalf("expected maxDepth to exclude the 4-cycle, got %d loops", len(res.Loops))
	}
}

func TestEnumerate_SmallestNFTChosenPerEdge(t *testing.T) {
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"a"},
	}
	edgeNFTs := fixedEdgeNFTs(map[[2]models.WalletId][]models.NFTId{
		{"a", "b"}: {"N1", "N2"}, // already sorted ascending, as graph.EdgeNFTs guarantees
		{"b", "a"}: {"N3"},
	})
	res, err := Enumerate(context.Background(), []models.WalletId{"a", "b"}, edges, edgeNFTs, 10, 1000, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(res.Loops))
	}
	for _, s := range res.Loops[0].Steps {
		if s.GiverWallet == "a" && s.NFT != "N1" {
			t.Fatalf("expected smallest NFT N1 chosen, got %s", s.NFT)
		}
	}
}

func TestEnumerate_BudgetExhausted(t *testing.T) {
	// Several disjoint 2-cycles so many distinct elementary cycles exist.
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"}, "b": {"a"},
		"c": {"d"}, "d": {"c"},
		"e": {"f"}, "f": {"e"},
	}
	edgeNFTs := fixedEdgeNFTs(map[[2]models.WalletId][]models.NFTId{
		{"a", "b"}: {"N1"}, {"b", "a"}: {"N2"},
		{"c", "d"}: {"N3"}, {"d", "c"}: {"N4"},
		{"e", "f"}: {"N5"}, {"f", "e"}: {"N6"},
	})
	res, err := Enumerate(context.Background(), []models.WalletId{"a", "b", "c", "d", "e", "f"}, edges, edgeNFTs, 10, 2, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.BudgetExhausted {
		t.Fatalf("expected budget to be exhausted")
	}
	if len(res.Loops) != 2 {
		t.Fatalf("expected exactly 2 loops at budget cutoff, got %d", len(res.Loops))
	}
}
