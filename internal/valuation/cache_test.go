package valuation

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

type fakeResolver struct {
	calls atomic.Int64
	value float64
}

func (f *fakeResolver) ValueOf(ctx context.Context, nft models.NFTId) (float64, error) {
	f.calls.Add(1)
	return f.value, nil
}

func (f *fakeResolver) MembersOf(ctx context.Context, collection models.CollectionId) ([]models.NFTId, error) {
	return nil, nil
}

func TestCachingResolver_CacheHit(t *testing.T) {
	fake := &fakeResolver{value: 42}
	c := NewCachingResolver(fake, 16, 10)

	v1, err := c.ValueOf(context.Background(), "nft-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := c.ValueOf(context.Background(), "nft-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v1 != 42 || v2 != 42 {
		t.Fatalf("expected cached value 42, got %v and %v", v1, v2)
	}
	if fake.calls.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", fake.calls.Load())
	}
}
