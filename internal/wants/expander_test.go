package wants

import (
	"testing"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

type fakeView struct {
	specific    map[models.WalletId]map[models.NFTId]struct{}
	collWants   map[models.WalletId]map[models.CollectionId]struct{}
	rejections  map[models.WalletId]map[models.NFTId]struct{}
	owners      map[models.NFTId]models.WalletId
	collMembers map[models.CollectionId]map[models.NFTId]struct{}
}

func (f fakeView) SpecificWants(w models.WalletId) map[models.NFTId]struct{}       { return f.specific[w] }
func (f fakeView) CollectionWants(w models.WalletId) map[models.CollectionId]struct{} {
	return f.collWants[w]
}
func (f fakeView) Rejections(w models.WalletId) map[models.NFTId]struct{} { return f.rejections[w] }
func (f fakeView) Owns(w models.WalletId, nft models.NFTId) bool          { return f.owners[nft] == w }
func (f fakeView) OwnerOf(nft models.NFTId) (models.WalletId, bool) {
	owner, ok := f.owners[nft]
	return owner, ok
}
func (f fakeView) CollectionMembers(c models.CollectionId) map[models.NFTId]struct{} {
	return f.collMembers[c]
}

func TestExpand_SpecificWantMinusRejectionAndOwned(t *testing.T) {
	view := fakeView{
		specific: map[models.WalletId]map[models.NFTId]struct{}{
			"alice": {"A": {}, "B": {}, "C": {}},
		},
		rejections: map[models.WalletId]map[models.NFTId]struct{}{
			"alice": {"B": {}},
		},
		owners: map[models.NFTId]models.WalletId{"C": "alice"},
	}

	got := Expand(view, "alice")
	want := []models.NFTId{"A"}
	if !Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExpand_CollectionWantRequiresOwnedElsewhere(t *testing.T) {
	view := fakeView{
		collWants: map[models.WalletId]map[models.CollectionId]struct{}{
			"alice": {"K": {}},
		},
		collMembers: map[models.CollectionId]map[models.NFTId]struct{}{
			"K": {"X": {}, "Y": {}, "Z": {}},
		},
		owners: map[models.NFTId]models.WalletId{
			"X": "bob",   // owned elsewhere: included
			"Y": "alice", // owned by alice herself: excluded
			// Z has no owner: excluded
		},
	}

	got := Expand(view, "alice")
	want := []models.NFTId{"X"}
	if !Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExpand_Deterministic(t *testing.T) {
	view := fakeView{
		specific: map[models.WalletId]map[models.NFTId]struct{}{
			"alice": {"Z": {}, "A": {}, "M": {}},
		},
	}

	got1 := Expand(view, "alice")
	got2 := Expand(view, "alice")
	if !Equal(got1, got2) {
		t.Fatalf("expected deterministic output, got %v then %v", got1, got2)
	}
	for i := 1; i < len(got1); i++ {
		if got1[i-1] >= got1[i] {
			t.Fatalf("expected ascending sort, got %v", got1)
		}
	}
}
