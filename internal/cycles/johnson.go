// Package cycles implements the Cycle Enumerator (C5): Johnson's
// elementary-cycle algorithm run over a single SCC subgraph, bounded by a
// maximum participant depth and a per-SCC cycle budget (§4.5).
//
// Hand-rolled for the same reason as internal/scc: the budget/cancellation
// semantics (stop cleanly mid-enumeration, report a partial result plus a
// budgetExhausted signal) are not something a general-purpose cycle-finding
// library exposes, and Johnson's algorithm itself is compact enough that
// hand-rolling it — in the spirit of the teacher's own hand-rolled
// Union-Find — keeps the determinism contract fully in our hands.
package cycles

import (
	"context"
	"sort"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// EdgeNFTsFunc resolves, sorted ascending, the NFTs giver could hand to
// receiver — the same contract as graph.TenantGraph.EdgeNFTs.
type EdgeNFTsFunc func(giver, receiver models.WalletId) []models.NFTId

// Result is the enumerator's output for a single SCC.
type Result struct {
	Loops           []models.TradeLoop
	BudgetExhausted bool
}

// Enumerate finds every elementary cycle within the subgraph induced by
// members, each no longer than maxDepth participants, materializing at
// most maxCyclesPerSCC of them. Where an edge admits more than one
// candidate NFT, the smallest NFTId is chosen deterministically (§4.5) —
// enumerating separate loops per NFT choice on a shared edge is explicitly
// out of scope (spec Non-goals: multi-loop variants over a single wallet
// cycle).
//
// ctx is checked every cancellationCheckEdges edges walked; on
// cancellation Enumerate returns the loops found so far and ctx.Err().
func Enumerate(ctx context.Context, members []models.WalletId, edges map[models.WalletId][]models.WalletId, edgeNFTs EdgeNFTsFunc, maxDepth, maxCyclesPerSCC, cancellationCheckEdges int) (Result, error) {
	if cancellationCheckEdges <= 0 {
		cancellationCheckEdges = 4096
	}

	ordered := append([]models.WalletId(nil), members...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	memberSet := make(map[models.WalletId]struct{}, len(ordered))
	for _, m := range ordered {
		memberSet[m] = struct{}{}
	}

	adj := make(map[models.WalletId][]models.WalletId, len(ordered))
	for _, v := range ordered {
		var list []models.WalletId
		for _, w := range edges[v] {
			if _, ok := memberSet[w]; ok {
				list = append(list, w)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		adj[v] = list
	}

	e := &enumerator{
		adj:                    adj,
		edgeNFTs:                edgeNFTs,
		maxDepth:               maxDepth,
		maxCycles:              maxCyclesPerSCC,
		cancellationCheckEdges: cancellationCheckEdges,
		ctx:                    ctx,
		blocked:                make(map[models.WalletId]bool, len(ordered)),
		blockMap:               make(map[models.WalletId]map[models.WalletId]struct{}, len(ordered)),
	}

	for _, s := range ordered {
		if e.budgetExhausted || e.err != nil {
			break
		}
		e.start = s
		for _, v := range ordered {
			e.blocked[v] = false
			delete(e.blockMap, v)
		}
		e.path = []models.WalletId{s}
		e.onPath = map[models.WalletId]bool{s: true}
		e.circuit(s, s)
	}

	return Result{Loops: e.loops, BudgetExhausted: e.budgetExhausted}, e.err
}

type enumerator struct {
	adj                    map[models.WalletId][]models.WalletId
	edgeNFTs               EdgeNFTsFunc
	maxDepth               int
	maxCycles              int
	cancellationCheckEdges int
	edgesWalked            int
	ctx                    context.Context

	start  models.WalletId
	path   []models.WalletId
	onPath map[models.WalletId]bool

	blocked  map[models.WalletId]bool
	blockMap map[models.WalletId]map[models.WalletId]struct{}

	loops           []models.TradeLoop
	budgetExhausted bool
	err             error
}

// circuit is the classic blocked-set DFS from Johnson's algorithm,
// restricted to the subgraph of vertices >= e.start in ordering (string
// comparison), which is how Johnson avoids rediscovering the same
// elementary cycle from more than one starting vertex.
func (e *enumerator) circuit(v, s models.WalletId) bool {
	if e.err != nil || e.budgetExhausted {
		return false
	}
	found := false
	e.blocked[v] = true

	for _, w := range e.adj[v] {
		if w < e.start {
			continue
		}
		e.edgesWalked++
		if e.edgesWalked%e.cancellationCheckEdges == 0 {
			select {
			case <-e.ctx.Done():
				e.err = e.ctx.Err()
				return found
			default:
			}
		}

		if w == s {
			if len(e.path) <= e.maxDepth {
				e.emit(e.path)
				found = true
				if len(e.loops) >= e.maxCycles {
					e.budgetExhausted = true
					return found
				}
			}
			continue
		}
		if e.blocked[w] || e.onPath[w] {
			continue
		}
		if len(e.path) >= e.maxDepth {
			// Cut off by the depth bound rather than proven cycle-free:
			// treat as found so v is unblocked and stays reachable by a
			// shorter path.
			found = true
			continue
		}
		e.path = append(e.path, w)
		e.onPath[w] = true
		if e.circuit(w, s) {
			found = true
		}
		e.onPath[w] = false
		e.path = e.path[:len(e.path)-1]
		if e.err != nil || e.budgetExhausted {
			return found
		}
	}

	if found {
		e.unblock(v)
	} else {
		for _, w := range e.adj[v] {
			if w < e.start {
				continue
			}
			if e.blockMap[w] == nil {
				e.blockMap[w] = make(map[models.WalletId]struct{})
			}
			e.blockMap[w][v] = struct{}{}
		}
	}
	return found
}

func (e *enumerator) unblock(v models.WalletId) {
	e.blocked[v] = false
	for w := range e.blockMap[v] {
		delete(e.blockMap[v], w)
		if e.blocked[w] {
			e.unblock(w)
		}
	}
}

// emit materializes a draft TradeLoop (no CanonicalId, no score — those
// are C7/C8's job) from a closed vertex path.
func (e *enumerator) emit(vertexPath []models.WalletId) {
	steps := make([]models.Step, len(vertexPath))
	for i, giver := range vertexPath {
		receiver := vertexPath[(i+1)%len(vertexPath)]
		candidates := e.edgeNFTs(giver, receiver)
		if len(candidates) == 0 {
			return // edge no longer realizable; drop silently
		}
		steps[i] = models.Step{GiverWallet: giver, ReceiverWallet: receiver, NFT: candidates[0]}
	}
	e.loops = append(e.loops, models.TradeLoop{
		Steps:            steps,
		ParticipantCount: len(steps),
		Status:           models.LoopPending,
	})
}
