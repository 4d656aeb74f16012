package scoring

import (
	"context"
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

type constResolver struct {
	byNFT map[models.NFTId]float64
}

func (r constResolver) ValueOf(ctx context.Context, nft models.NFTId) (float64, error) {
	return r.byNFT[nft], nil
}

func (r constResolver) MembersOf(ctx context.Context, collection models.CollectionId) ([]models.NFTId, error) {
	return nil, nil
}

func TestEfficiency_TwoCycleIsPerfect(t *testing.T) {
	if e := Efficiency(2, 10); e != 1.0 {
		t.Fatalf("expected 2-cycle efficiency 1.0, got %f", e)
	}
}

func TestEfficiency_MonotonicInDepth(t *testing.T) {
	e3 := Efficiency(3, 10)
	e5 := Efficiency(5, 10)
	if !(e3 > e5) {
		t.Fatalf("expected efficiency to strictly decrease with more participants: e3=%f e5=%f", e3, e5)
	}
}

func TestFairness_EqualValuesIsPerfect(t *testing.T) {
	if f := Fairness([]float64{10, 10, 10}); f != 1.0 {
		t.Fatalf("expected equal values to score 1.0 fairness, got %f", f)
	}
}

func TestFairness_SkewedValuesPenalized(t *testing.T) {
	f := Fairness([]float64{1, 100})
	if f >= 1.0 {
		t.Fatalf("expected skewed values to score below 1.0, got %f", f)
	}
}

func TestScore_CompositeAcceptance(t *testing.T) {
	steps := []models.Step{
		{GiverWallet: "alice", ReceiverWallet: "bob", NFT: "A"},
		{GiverWallet: "bob", ReceiverWallet: "alice", NFT: "B"},
	}
	resolver := constResolver{byNFT: map[models.NFTId]float64{"A": 10, "B": 10}}
	cfg := models.DefaultTenantConfig()

	result, err := Score(context.Background(), steps, cfg, resolver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Efficiency != 1.0 || result.Fairness != 1.0 || result.Reliability != 1.0 {
		t.Fatalf("expected all sub-scores to be 1.0 for a perfect 2-cycle, got %+v", result)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance at default threshold, got score %f", result.QualityScore)
	}
}
