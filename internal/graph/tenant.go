// Package graph implements the Tenant Graph Store (C1): the single
// mutable, authoritative per-tenant graph of wallets, NFTs, collections,
// and active trade loops. TenantGraph is the only place ownership, wants,
// rejections, and active loops are recorded — everything else in the
// engine operates on views or copies taken from it (§9 "the graph is the
// single source of truth and references are resolved by lookup").
package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nftloop/tradeloop-engine/internal/canon"
	"github.com/nftloop/tradeloop-engine/internal/wants"
	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// TenantGraph is the root per-tenant entity described in §3. It exposes a
// single logical writer (ApplyBatch, DiffAndCommitLoops) and consistent
// versioned reads (§5). All exported methods take their own lock; there is
// no caller-visible notion of a partially-applied batch.
type TenantGraph struct {
	mu sync.RWMutex

	wallets     map[models.WalletId]*wallet
	nfts        map[models.NFTId]*nft
	collections map[models.CollectionId]*collection
	activeLoops map[string]*models.TradeLoop

	dedup   *canon.Dedup
	version uint64
	cfg     models.TenantConfig
}

// New creates an empty TenantGraph sized from cfg's Bloom false-positive
// rate (§6 bloomFalsePositiveRate).
func New(cfg models.TenantConfig) *TenantGraph {
	return &TenantGraph{
		wallets:     make(map[models.WalletId]*wallet),
		nfts:        make(map[models.NFTId]*nft),
		collections: make(map[models.CollectionId]*collection),
		activeLoops: make(map[string]*models.TradeLoop),
		dedup:       canon.NewDedup(1024, cfg.BloomFalsePositiveRate),
		cfg:         cfg,
	}
}

// Version returns the current monotonic mutation counter (§3, §4.10
// getVersion).
func (g *TenantGraph) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

func (g *TenantGraph) getOrCreateWallet(id models.WalletId) *wallet {
	w, ok := g.wallets[id]
	if !ok {
		w = newWallet(id)
		g.wallets[id] = w
	}
	return w
}

func (g *TenantGraph) getOrCreateCollection(id models.CollectionId) *collection {
	c, ok := g.collections[id]
	if !ok {
		c = newCollection(id)
		g.collections[id] = c
	}
	return c
}

// ApplyBatch applies every mutation in batch atomically: either all of
// them take effect and the version advances exactly once, or none of them
// do and ErrInvalidMutation / ErrConflictingOwnership / ErrUnknownWallet /
// ErrUnknownNFT is returned (§4.1, §7).
//
// Returns the touched-wallet set: the mutation source wallet(s) plus any
// wallet whose expanded want set changed as a result (§4.1, glossary
// "touched wallet").
func (g *TenantGraph) ApplyBatch(batch models.Batch) (map[models.WalletId]struct{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := validateBatch(g, batch); err != nil {
		return nil, err
	}

	touched := make(map[models.WalletId]struct{})
	touchedCollections := make(map[models.CollectionId]struct{})

	for _, m := range batch {
		g.applyOne(m, touched, touchedCollections)
	}

	g.recomputeExpansions(touched, touchedCollections)
	g.version++
	return touched, nil
}

func (g *TenantGraph) applyOne(m models.Mutation, touched map[models.WalletId]struct{}, touchedCollections map[models.CollectionId]struct{}) {
	switch mm := m.(type) {
	case models.AddNFT:
		g.applyAddNFT(mm, touched, touchedCollections)
	case models.RemoveNFT:
		g.applyRemoveNFT(mm, touched, touchedCollections)
	case models.AddWant:
		g.applyAddWant(mm, touched)
	case models.RemoveWant:
		g.applyRemoveWant(mm, touched)
	case models.AddCollectionWant:
		g.applyAddCollectionWant(mm, touched)
	case models.RemoveCollectionWant:
		g.applyRemoveCollectionWant(mm, touched)
	case models.AddRejection:
		g.applyAddRejection(mm, touched)
	case models.RemoveRejection:
		g.applyRemoveRejection(mm, touched)
	case models.UpsertCollectionMembership:
		g.applyUpsertCollectionMembership(mm, touchedCollections)
	case models.DeleteWallet:
		g.applyDeleteWallet(mm, touched)
	}
}

func (g *TenantGraph) applyAddNFT(m models.AddNFT, touched map[models.WalletId]struct{}, touchedCollections map[models.CollectionId]struct{}) {
	n, exists := g.nfts[m.NFT]
	if exists && n.owner != "" && n.owner != m.OwnerWallet {
		// Previous owner loses the NFT and, transitively, any loop that
		// relied on their ownership of it (enforced at diff time).
		if prev, ok := g.wallets[n.owner]; ok {
			delete(prev.owned, m.NFT)
			touched[n.owner] = struct{}{}
		}
	}
	if !exists {
		n = &nft{id: m.NFT}
		g.nfts[m.NFT] = n
	}
	n.owner = m.OwnerWallet
	if m.Collection != "" {
		n.collection = m.Collection
	}

	w := g.getOrCreateWallet(m.OwnerWallet)
	w.owned[m.NFT] = struct{}{}
	// A wallet cannot want an NFT it now owns (§3 invariant).
	delete(w.specificWants, m.NFT)
	w.lastMutated = time.Now()
	touched[m.OwnerWallet] = struct{}{}

	if n.collection != "" {
		col := g.getOrCreateCollection(n.collection)
		col.members[m.NFT] = struct{}{}
		touchedCollections[n.collection] = struct{}{}
	}
}

func (g *TenantGraph) applyRemoveNFT(m models.RemoveNFT, touched map[models.WalletId]struct{}, touchedCollections map[models.CollectionId]struct{}) {
	n, ok := g.nfts[m.NFT]
	if !ok {
		return // validated already; defensive no-op
	}
	if n.owner != "" {
		if w, ok := g.wallets[n.owner]; ok {
			delete(w.owned, m.NFT)
			touched[n.owner] = struct{}{}
		}
	}
	if n.collection != "" {
		if col, ok := g.collections[n.collection]; ok {
			delete(col.members, m.NFT)
		}
		touchedCollections[n.collection] = struct{}{}
	}
	delete(g.nfts, m.NFT)
}

func (g *TenantGraph) applyAddWant(m models.AddWant, touched map[models.WalletId]struct{}) {
	w := g.getOrCreateWallet(m.Wallet)
	touched[m.Wallet] = struct{}{}
	if _, rejected := w.rejections[m.NFT]; rejected {
		return // silently filtered (§3 invariant)
	}
	if w.ownsNFT(m.NFT) {
		return // silently filtered (§3 invariant)
	}
	w.specificWants[m.NFT] = struct{}{}
	w.lastMutated = time.Now()
}

func (g *TenantGraph) applyRemoveWant(m models.RemoveWant, touched map[models.WalletId]struct{}) {
	w, ok := g.wallets[m.Wallet]
	if !ok {
		return
	}
	delete(w.specificWants, m.NFT)
	touched[m.Wallet] = struct{}{}
}

func (g *TenantGraph) applyAddCollectionWant(m models.AddCollectionWant, touched map[models.WalletId]struct{}) {
	w := g.getOrCreateWallet(m.Wallet)
	w.collectionWants[m.Collection] = struct{}{}
	g.getOrCreateCollection(m.Collection)
	touched[m.Wallet] = struct{}{}
}

func (g *TenantGraph) applyRemoveCollectionWant(m models.RemoveCollectionWant, touched map[models.WalletId]struct{}) {
	w, ok := g.wallets[m.Wallet]
	if !ok {
		return
	}
	delete(w.collectionWants, m.Collection)
	touched[m.Wallet] = struct{}{}
}

func (g *TenantGraph) applyAddRejection(m models.AddRejection, touched map[models.WalletId]struct{}) {
	w := g.getOrCreateWallet(m.Wallet)
	w.rejections[m.NFT] = struct{}{}
	// A rejected NFT never appears in that wallet's want set (§3 invariant).
	delete(w.specificWants, m.NFT)
	touched[m.Wallet] = struct{}{}
}

func (g *TenantGraph) applyRemoveRejection(m models.RemoveRejection, touched map[models.WalletId]struct{}) {
	w, ok := g.wallets[m.Wallet]
	if !ok {
		return
	}
	delete(w.rejections, m.NFT)
	touched[m.Wallet] = struct{}{}
}

func (g *TenantGraph) applyUpsertCollectionMembership(m models.UpsertCollectionMembership, touchedCollections map[models.CollectionId]struct{}) {
	col := g.getOrCreateCollection(m.Collection)
	if m.Member {
		col.members[m.NFT] = struct{}{}
	} else {
		delete(col.members, m.NFT)
	}
	if n, ok := g.nfts[m.NFT]; ok && m.Member {
		n.collection = m.Collection
	}
	touchedCollections[m.Collection] = struct{}{}
}

func (g *TenantGraph) applyDeleteWallet(m models.DeleteWallet, touched map[models.WalletId]struct{}) {
	w, ok := g.wallets[m.Wallet]
	if !ok {
		return
	}
	for nftID := range w.owned {
		delete(g.nfts, nftID)
	}
	delete(g.wallets, m.Wallet)
	touched[m.Wallet] = struct{}{}

	// Every loop this wallet participated in is removed at the next
	// diff/consistency sweep (loopStillValid will fail on the missing
	// giver/receiver); nothing to do here beyond marking it touched.
}

// recomputeExpansions recomputes the expanded want set for every wallet
// whose collection-wants overlap a touched collection, in addition to
// wallets already touched directly, adding any wallet whose expansion
// actually changed to touched (§4.3 "recomputes expansion only for wallets
// whose collection-wants overlap the mutation's collection or whose
// specific-wants/rejections/ownership changed").
func (g *TenantGraph) recomputeExpansions(touched map[models.WalletId]struct{}, touchedCollections map[models.CollectionId]struct{}) {
	candidates := make(map[models.WalletId]struct{})
	for w := range touched {
		candidates[w] = struct{}{}
	}
	if len(touchedCollections) > 0 {
		for id, w := range g.wallets {
			for col := range w.collectionWants {
				if _, ok := touchedCollections[col]; ok {
					candidates[id] = struct{}{}
					break
				}
			}
		}
	}

	view := tenantView{g}
	for id := range candidates {
		w, ok := g.wallets[id]
		if !ok {
			continue
		}
		old := sortedNFTKeys(w.expandedWants)
		updated := wants.Expand(view, id)
		if !wants.Equal(old, updated) {
			touched[id] = struct{}{}
		}
		w.expandedWants = toNFTSet(updated)
	}
}

func sortedNFTKeys(m map[models.NFTId]struct{}) []models.NFTId {
	out := make([]models.NFTId, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toNFTSet(s []models.NFTId) map[models.NFTId]struct{} {
	m := make(map[models.NFTId]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	return m
}

// tenantView adapts TenantGraph to wants.GraphView. It assumes the caller
// already holds g.mu (read or write) — it takes no lock of its own.
type tenantView struct{ g *TenantGraph }

func (v tenantView) SpecificWants(w models.WalletId) map[models.NFTId]struct{} {
	if wl, ok := v.g.wallets[w]; ok {
		return wl.specificWants
	}
	return nil
}

func (v tenantView) CollectionWants(w models.WalletId) map[models.CollectionId]struct{} {
	if wl, ok := v.g.wallets[w]; ok {
		return wl.collectionWants
	}
	return nil
}

func (v tenantView) Rejections(w models.WalletId) map[models.NFTId]struct{} {
	if wl, ok := v.g.wallets[w]; ok {
		return wl.rejections
	}
	return nil
}

func (v tenantView) Owns(w models.WalletId, nftID models.NFTId) bool {
	wl, ok := v.g.wallets[w]
	return ok && wl.ownsNFT(nftID)
}

func (v tenantView) OwnerOf(nftID models.NFTId) (models.WalletId, bool) {
	n, ok := v.g.nfts[nftID]
	if !ok || n.owner == "" {
		return "", false
	}
	return n.owner, true
}

func (v tenantView) CollectionMembers(c models.CollectionId) map[models.NFTId]struct{} {
	if col, ok := v.g.collections[c]; ok {
		return col.members
	}
	return nil
}

// WalletProjection returns the wallet-projected directed graph (§4.4): an
// edge u→v exists iff some NFT owned by u is in v's expanded wants.
// Vertex order is ascending by id, satisfying C4's determinism
// requirement that SCC identity is stable across runs over equal states.
func (g *TenantGraph) WalletProjection() ([]models.WalletId, map[models.WalletId][]models.WalletId) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	vertices := make([]models.WalletId, 0, len(g.wallets))
	for id := range g.wallets {
		vertices = append(vertices, id)
	}
	sort.Slice(vertices, func(i, j int) bool { return vertices[i] < vertices[j] })

	wanters := make(map[models.NFTId]map[models.WalletId]struct{})
	for _, v := range vertices {
		vw := g.wallets[v]
		for nftID := range vw.expandedWants {
			if wanters[nftID] == nil {
				wanters[nftID] = make(map[models.WalletId]struct{})
			}
			wanters[nftID][v] = struct{}{}
		}
	}

	edges := make(map[models.WalletId][]models.WalletId, len(vertices))
	for _, u := range vertices {
		uw := g.wallets[u]
		targets := make(map[models.WalletId]struct{})
		for nftID := range uw.owned {
			for v := range wanters[nftID] {
				if v != u {
					targets[v] = struct{}{}
				}
			}
		}
		list := make([]models.WalletId, 0, len(targets))
		for v := range targets {
			list = append(list, v)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		edges[u] = list
	}
	return vertices, edges
}

// EdgeNFTs returns, sorted ascending, every NFT giver owns that receiver
// currently wants — the candidate set the Cycle Enumerator (C5) picks
// from when materializing a step, with ties broken by smallest NFTId
// first (§4.5).
func (g *TenantGraph) EdgeNFTs(giver, receiver models.WalletId) []models.NFTId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	gw, ok := g.wallets[giver]
	if !ok {
		return nil
	}
	rw, ok := g.wallets[receiver]
	if !ok {
		return nil
	}
	var out []models.NFTId
	for nftID := range gw.owned {
		if _, wants := rw.expandedWants[nftID]; wants {
			out = append(out, nftID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// loopValidLocked checks every validity condition in §3's Trade Loop
// definition against the current graph state. Assumes g.mu is held.
func (g *TenantGraph) loopValidLocked(loop *models.TradeLoop) bool {
	if len(loop.Steps) < 2 {
		return false
	}
	seenGivers := make(map[models.WalletId]struct{}, len(loop.Steps))
	seenNFTs := make(map[models.NFTId]struct{}, len(loop.Steps))
	for i, s := range loop.Steps {
		next := loop.Steps[(i+1)%len(loop.Steps)]
		if s.ReceiverWallet != next.GiverWallet {
			return false
		}
		if _, dup := seenGivers[s.GiverWallet]; dup {
			return false
		}
		seenGivers[s.GiverWallet] = struct{}{}
		if _, dup := seenNFTs[s.NFT]; dup {
			return false
		}
		seenNFTs[s.NFT] = struct{}{}

		giver, ok := g.wallets[s.GiverWallet]
		if !ok || !giver.ownsNFT(s.NFT) {
			return false
		}
		receiver, ok := g.wallets[s.ReceiverWallet]
		if !ok {
			return false
		}
		if _, rejected := receiver.rejections[s.NFT]; rejected {
			return false
		}
		if _, wants := receiver.expandedWants[s.NFT]; !wants {
			return false
		}
	}
	return true
}

// LoopStillValid is the exported, locked form of loopValidLocked, used by
// the orchestrator to check each freshly enumerated loop before scoring it.
func (g *TenantGraph) LoopStillValid(loop *models.TradeLoop) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loopValidLocked(loop)
}

// DiffAndCommitLoops reconciles candidates (canonicalId → loop, freshly
// discovered and scored for this round) against the active set, evicting
// loops that are no longer candidates or no longer valid, and admitting
// new ones that are still valid through the dedup filter (§4.1
// diffActiveLoops, §4.7 dedup).
// Returns the loops added and removed this round and bumps the version
// exactly once if anything changed.
func (g *TenantGraph) DiffAndCommitLoops(candidates map[string]*models.TradeLoop) (added, removed []models.TradeLoop) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, loop := range g.activeLoops {
		_, stillCandidate := candidates[id]
		if !stillCandidate || !g.loopValidLocked(loop) {
			loop.Status = models.LoopStale
			removed = append(removed, *loop)
			delete(g.activeLoops, id)
			g.dedup.Unregister(id)
		}
	}

	// Deterministic admission order keeps emitted-event ordering stable
	// across runs over equal candidate sets.
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, exists := g.activeLoops[id]; exists {
			continue
		}
		loop := candidates[id]
		// Re-validate against the current state: mutations may have landed
		// since the loop was enumerated.
		if !g.loopValidLocked(loop) {
			continue
		}
		if !g.dedup.Register(id) {
			continue
		}
		loop.Status = models.LoopActive
		if loop.DiscoveredAt.IsZero() {
			loop.DiscoveredAt = time.Now()
		}
		g.activeLoops[id] = loop
		added = append(added, *loop)
	}

	if len(added) > 0 || len(removed) > 0 {
		g.version++
	}
	return added, removed
}

// ActiveLoopsForWallet implements getActiveLoopsForWallet (§4.1): ordered
// descending by qualityScore, ties broken by lower participantCount then
// lexicographic canonicalId.
func (g *TenantGraph) ActiveLoopsForWallet(w models.WalletId) []models.TradeLoop {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.TradeLoop
	for _, loop := range g.activeLoops {
		if loop.InvolvesWallet(w) {
			out = append(out, *loop)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		if out[i].ParticipantCount != out[j].ParticipantCount {
			return out[i].ParticipantCount < out[j].ParticipantCount
		}
		return out[i].CanonicalId < out[j].CanonicalId
	})
	return out
}

// ActiveLoopCount is a cheap diagnostic accessor used by progress
// reporting; it takes the same read lock as every other query.
func (g *TenantGraph) ActiveLoopCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.activeLoops)
}

// ActiveLoops returns every currently active loop. Callers outside this
// package use it to forward loops a round's affected subgraph never
// touched into that round's candidate set — DiffAndCommitLoops only keeps
// what is present in candidates, so anything absent from it is evicted
// regardless of whether it was ever re-examined (§4.9, Testable Property
// 6: a round must never touch a loop whose participants lie outside its
// affected subgraph).
func (g *TenantGraph) ActiveLoops() []models.TradeLoop {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.TradeLoop, 0, len(g.activeLoops))
	for _, loop := range g.activeLoops {
		out = append(out, *loop)
	}
	return out
}

const snapshotFormatVersion = 1

type walletDoc struct {
	ID              models.WalletId       `json:"id"`
	Owned           []models.NFTId        `json:"owned"`
	SpecificWants   []models.NFTId        `json:"specificWants"`
	CollectionWants []models.CollectionId `json:"collectionWants"`
	Rejections      []models.NFTId        `json:"rejections"`
	ExpandedWants   []models.NFTId        `json:"expandedWants"`
	LastMutated     time.Time             `json:"lastMutated"`
}

type nftDoc struct {
	ID         models.NFTId       `json:"id"`
	Owner      models.WalletId    `json:"owner"`
	Collection models.CollectionId `json:"collection"`
}

type collectionDoc struct {
	ID      models.CollectionId `json:"id"`
	Members []models.NFTId      `json:"members"`
}

type snapshotDoc struct {
	FormatVersion int                 `json:"formatVersion"`
	Version       uint64              `json:"version"`
	Wallets       []walletDoc         `json:"wallets"`
	NFTs          []nftDoc            `json:"nfts"`
	Collections   []collectionDoc     `json:"collections"`
	ActiveLoops   []models.TradeLoop  `json:"activeLoops"`
	DedupKeys     []string            `json:"dedupKeys"`
}

// Snapshot produces an opaque, versioned, self-describing serialization of
// the tenant graph, consistent as of the moment it is taken (§4.1
// snapshot(), §6 Snapshot format). Unknown fields in a future format are
// tolerated by Restore; a future *major* format is rejected.
func (g *TenantGraph) Snapshot() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc := snapshotDoc{
		FormatVersion: snapshotFormatVersion,
		Version:       g.version,
		DedupKeys:     g.dedup.Keys(),
	}

	walletIDs := make([]models.WalletId, 0, len(g.wallets))
	for id := range g.wallets {
		walletIDs = append(walletIDs, id)
	}
	sort.Slice(walletIDs, func(i, j int) bool { return walletIDs[i] < walletIDs[j] })
	for _, id := range walletIDs {
		w := g.wallets[id]
		doc.Wallets = append(doc.Wallets, walletDoc{
			ID:              id,
			Owned:           sortedNFTKeys(w.owned),
			SpecificWants:   sortedNFTKeys(w.specificWants),
			CollectionWants: sortedCollectionKeys(w.collectionWants),
			Rejections:      sortedNFTKeys(w.rejections),
			ExpandedWants:   sortedNFTKeys(w.expandedWants),
			LastMutated:     w.lastMutated,
		})
	}

	nftIDs := make([]models.NFTId, 0, len(g.nfts))
	for id := range g.nfts {
		nftIDs = append(nftIDs, id)
	}
	sort.Slice(nftIDs, func(i, j int) bool { return nftIDs[i] < nftIDs[j] })
	for _, id := range nftIDs {
		n := g.nfts[id]
		doc.NFTs = append(doc.NFTs, nftDoc{ID: id, Owner: n.owner, Collection: n.collection})
	}

	colIDs := make([]models.CollectionId, 0, len(g.collections))
	for id := range g.collections {
		colIDs = append(colIDs, id)
	}
	sort.Slice(colIDs, func(i, j int) bool { return colIDs[i] < colIDs[j] })
	for _, id := range colIDs {
		c := g.collections[id]
		doc.Collections = append(doc.Collections, collectionDoc{ID: id, Members: sortedNFTKeys(c.members)})
	}

	loopIDs := make([]string, 0, len(g.activeLoops))
	for id := range g.activeLoops {
		loopIDs = append(loopIDs, id)
	}
	sort.Strings(loopIDs)
	for _, id := range loopIDs {
		doc.ActiveLoops = append(doc.ActiveLoops, *g.activeLoops[id])
	}

	return json.Marshal(doc)
}

// Restore rebuilds the graph from a snapshot produced by Snapshot. It
// rejects a newer major format with ErrSnapshotIncompatible rather than
// guess at an incompatible layout (§6, §7).
func Restore(data []byte, cfg models.TenantConfig) (*TenantGraph, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSnapshotIncompatible, err)
	}
	if doc.FormatVersion > snapshotFormatVersion {
		return nil, fmt.Errorf("%w: format version %d newer than supported %d", models.ErrSnapshotIncompatible, doc.FormatVersion, snapshotFormatVersion)
	}

	g := New(cfg)
	g.version = doc.Version

	for _, wd := range doc.Wallets {
		w := newWallet(wd.ID)
		for _, id := range wd.Owned {
			w.owned[id] = struct{}{}
		}
		for _, id := range wd.SpecificWants {
			w.specificWants[id] = struct{}{}
		}
		for _, id := range wd.CollectionWants {
			w.collectionWants[id] = struct{}{}
		}
		for _, id := range wd.Rejections {
			w.rejections[id] = struct{}{}
		}
		for _, id := range wd.ExpandedWants {
			w.expandedWants[id] = struct{}{}
		}
		w.lastMutated = wd.LastMutated
		g.wallets[wd.ID] = w
	}

	for _, nd := range doc.NFTs {
		g.nfts[nd.ID] = &nft{id: nd.ID, owner: nd.Owner, collection: nd.Collection}
	}

	for _, cd := range doc.Collections {
		c := newCollection(cd.ID)
		for _, id := range cd.Members {
			c.members[id] = struct{}{}
		}
		g.collections[cd.ID] = c
	}

	for i := range doc.ActiveLoops {
		loop := doc.ActiveLoops[i]
		g.activeLoops[loop.CanonicalId] = &loop
	}
	for _, key := range doc.DedupKeys {
		g.dedup.Register(key)
	}

	return g, nil
}

func sortedCollectionKeys(m map[models.CollectionId]struct{}) []models.CollectionId {
	out := make([]models.CollectionId, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
