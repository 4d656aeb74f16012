package community

import (
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

func TestPartition_SeparatesDisjointCliques(t *testing.T) {
	members := []models.WalletId{"a", "b", "c", "d", "e", "f"}
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b", "c"}, "b": {"a", "c"}, "c": {"a", "b"},
		"d": {"e", "f"}, "e": {"d", "f"}, "f": {"d", "e"},
	}
	groups, bridgeVertices, bridgeEdges := Partition(members, edges, 1)
	if len(groups) < 2 {
		t.Fatalf("expected at least 2 communities for two disjoint cliques, got %d", len(groups))
	}
	if len(bridgeVertices) != len(groups) {
		t.Fatalf("expected one bridge vertex per community, got %d vertices for %d groups", len(bridgeVertices), len(groups))
	}
	if len(bridgeEdges) != 0 {
		for _, list := range bridgeEdges {
			if len(list) != 0 {
				t.Fatalf("expected no bridge edges between fully disjoint cliques, got %v", bridgeEdges)
			}
		}
	}
}

func TestPartition_DeterministicAcrossRuns(t *testing.T) {
	members := []models.WalletId{"a", "b", "c", "d"}
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"}, "b": {"a", "c"}, "c": {"b", "d"}, "d": {"c"},
	}
	g1, bv1, _ := Partition(members, edges, 1)
	g2, bv2, _ := Partition(members, edges, 1)
	if len(g1) != len(g2) {
		t.Fatalf("expected deterministic community count, got %d then %d", len(g1), len(g2))
	}
	for i := range bv1 {
		if bv1[i] != bv2[i] {
			t.Fatalf("expected deterministic bridge vertex order, got %v then %v", bv1, bv2)
		}
	}
}
