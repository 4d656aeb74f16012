// Package scc implements the SCC Partitioner (C4): Tarjan's algorithm over
// the wallet-projection graph, isolating the strongly connected components
// a trade loop could possibly live inside. Trivial components (a single
// vertex) are dropped — a loop needs at least two participants (§3, §4.4).
//
// Hand-rolled rather than built on a graph library: C4's correctness
// contract is about *stable, deterministic* SCC identity across runs over
// an unchanged graph (§4.4, §8 Testable Property 3), which requires full
// control over traversal and tie-break order that a general-purpose graph
// library does not expose as a documented contract.
package scc

import (
	"context"
	"sort"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// Component is one strongly connected component: a sorted, deterministic
// list of member wallets.
type Component struct {
	Members []models.WalletId
}

// Result is the full partition plus the count of edges walked, reported so
// the orchestrator can account it against cancellationCheckEdges.
type Result struct {
	Components []Component
	EdgesWalked int
}

// Partition runs Tarjan's algorithm over vertices/edges. vertices must
// already be sorted ascending (the caller, internal/orchestrator, sorts
// them) — Tarjan visits them in that order, which is what makes the
// resulting component order and each component's Members order
// reproducible across runs over an identical graph.
//
// ctx is checked every cancellationCheckEdges edges walked; on
// cancellation Partition returns the partial result gathered so far along
// with ctx.Err().
func Partition(ctx context.Context, vertices []models.WalletId, edges map[models.WalletId][]models.WalletId, cancellationCheckEdges int) (Result, error) {
	if cancellationCheckEdges <= 0 {
		cancellationCheckEdges = 4096
	}

	t := &tarjan{
		edges:                  edges,
		index:                  make(map[models.WalletId]int, len(vertices)),
		lowlink:                make(map[models.WalletId]int, len(vertices)),
		onStack:                make(map[models.WalletId]bool, len(vertices)),
		ctx:                    ctx,
		cancellationCheckEdges: cancellationCheckEdges,
	}

	for _, v := range vertices {
		if _, visited := t.index[v]; !visited {
			if err := t.strongconnect(v); err != nil {
				return Result{Components: t.components, EdgesWalked: t.edgesWalked}, err
			}
		}
	}

	nonTrivial := make([]Component, 0, len(t.components))
	for _, c := range t.components {
		if len(c.Members) >= 2 {
			sort.Slice(c.Members, func(i, j int) bool { return c.Members[i] < c.Members[j] })
			nonTrivial = append(nonTrivial, c)
			continue
		}
		// Single-vertex components are always dropped, self-loop or not.
		// The wallet projection never has a self-loop (edges are always
		// between distinct wallets), so no loop is lost by this.
	}

	return Result{Components: nonTrivial, EdgesWalked: t.edgesWalked}, nil
}

type tarjan struct {
	edges   map[models.WalletId][]models.WalletId
	index   map[models.WalletId]int
	lowlink map[models.WalletId]int
	onStack map[models.WalletId]bool
	stack   []models.WalletId
	counter int

	components  []Component
	edgesWalked int

	ctx                    context.Context
	cancellationCheckEdges int
}

// strongconnect is iterative to avoid a recursion-depth limit on large
// wallet graphs; it simulates the classic recursive algorithm with an
// explicit work stack of (vertex, next-neighbor-index) frames.
func (t *tarjan) strongconnect(start models.WalletId) error {
	type frame struct {
		v        models.WalletId
		children []models.WalletId
		ci       int
	}

	work := []*frame{{v: start, children: t.edges[start]}}
	t.index[start] = t.counter
	t.lowlink[start] = t.counter
	t.counter++
	t.stack = append(t.stack, start)
	t.onStack[start] = true

	for len(work) > 0 {
		f := work[len(work)-1]

		advanced := false
		for f.ci < len(f.children) {
			w := f.children[f.ci]
			f.ci++
			t.edgesWalked++
			if t.edgesWalked%t.cancellationCheckEdges == 0 {
				select {
				case <-t.ctx.Done():
					return t.ctx.Err()
				default:
				}
			}

			if _, visited := t.index[w]; !visited {
				t.index[w] = t.counter
				t.lowlink[w] = t.counter
				t.counter++
				t.stack = append(t.stack, w)
				t.onStack[w] = true
				work = append(work, &frame{v: w, children: t.edges[w]})
				advanced = true
				break
			} else if t.onStack[w] {
				if t.index[w] < t.lowlink[f.v] {
					t.lowlink[f.v] = t.index[w]
				}
			}
		}
		if advanced {
			continue
		}

		// All children of f.v processed; pop and propagate lowlink to parent.
		work = work[:len(work)-1]
		if len(work) > 0 {
			parent := work[len(work)-1]
			if t.lowlink[f.v] < t.lowlink[parent.v] {
				t.lowlink[parent.v] = t.lowlink[f.v]
			}
		}

		if t.lowlink[f.v] == t.index[f.v] {
			var members []models.WalletId
			for {
				n := len(t.stack) - 1
				w := t.stack[n]
				t.stack = t.stack[:n]
				t.onStack[w] = false
				members = append(members, w)
				if w == f.v {
					break
				}
			}
			t.components = append(t.components, Component{Members: members})
		}
	}
	return nil
}
