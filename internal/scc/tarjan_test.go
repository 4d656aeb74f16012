package scc

import (
	"context"
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

func TestPartition_SimpleCycle(t *testing.T) {
	vertices := []models.WalletId{"a", "b", "c"}
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	res, err := Partition(context.Background(), vertices, edges, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Components) != 1 {
		t.Fatalf("expected 1 component, got %d", len(res.Components))
	}
	if len(res.Components[0].Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(res.Components[0].Members))
	}
}

func TestPartition_DropsTrivialComponents(t *testing.T) {
	vertices := []models.WalletId{"a", "b", "c"}
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {}, // a->b with no return edge: no cycle
		"c": {},
	}
	res, err := Partition(context.Background(), vertices, edges, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Components) != 0 {
		t.Fatalf("expected 0 non-trivial components, got %d", len(res.Components))
	}
}

func TestPartition_MultipleDisjointCycles(t *testing.T) {
	vertices := []models.WalletId{"a", "b", "c", "d"}
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"a"},
		"c": {"d"},
		"d": {"c"},
	}
	res, err := Partition(context.Background(), vertices, edges, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(res.Components))
	}
}

func TestPartition_DeterministicAcrossRuns(t *testing.T) {
	vertices := []models.WalletId{"a", "b", "c", "d", "e"}
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"c"},
		"c": {"a", "d"},
		"d": {"e"},
		"e": {"d"},
	}
	res1, _ := Partition(context.Background(), vertices, edges, 4096)
	res2, _ := Partition(context.Background(), vertices, edges, 4096)
	if len(res1.Components) != len(res2.Components) {
		t.Fatalf("expected identical component count across runs")
	}
	for i := range res1.Components {
		if len(res1.Components[i].Members) != len(res2.Components[i].Members) {
			t.Fatalf("expected identical component %d across runs", i)
		}
		for j := range res1.Components[i].Members {
			if res1.Components[i].Members[j] != res2.Components[i].Members[j] {
				t.Fatalf("expected identical member order across runs at component %d, member %d", i, j)
			}
		}
	}
}

func TestPartition_CancellationReturnsPartial(t *testing.T) {
	vertices := []models.WalletId{"a", "b", "c"}
	edges := map[models.WalletId][]models.WalletId{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Partition(ctx, vertices, edges, 1)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
