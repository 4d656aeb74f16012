// Package orchestrator implements the Discovery Orchestrator (C9): the
// per-tenant state machine that debounces mutations, assembles the
// affected subgraph, runs C3(already folded into the store)→C4→(C6)→C5→C7→C8,
// diffs the result against the active set, and emits events (§4.9).
package orchestrator

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nftloop/tradeloop-engine/internal/canon"
	"github.com/nftloop/tradeloop-engine/internal/community"
	"github.com/nftloop/tradeloop-engine/internal/cycles"
	"github.com/nftloop/tradeloop-engine/internal/graph"
	"github.com/nftloop/tradeloop-engine/internal/scc"
	"github.com/nftloop/tradeloop-engine/internal/scoring"
	"github.com/nftloop/tradeloop-engine/internal/valuation"
	"github.com/nftloop/tradeloop-engine/pkg/models"
)

const debounceUpperBound = 250 * time.Millisecond

type schedState string

const (
	stateIdle       schedState = "idle"
	stateDebouncing schedState = "debouncing"
	stateComputing  schedState = "computing"
	stateEmitting   schedState = "emitting"
)

// Progress reports coarse counters for the most recently started
// discovery round, adapted from the teacher's BlockScanner.GetProgress()
// pattern of exposing atomic counters for a long-running scan;
// RoundsCompleted is the exception, counting every round since the tenant
// started. Purely observational — nothing in the discovery pipeline reads
// these back.
type Progress struct {
	SCCsVisited          int64 `json:"sccsVisited"`
	CyclesEmitted        int64 `json:"cyclesEmitted"`
	BudgetExhaustedCount int64 `json:"budgetExhaustedCount"`
	RoundsCompleted      int64 `json:"roundsCompleted"`
}

// EventSink receives loop lifecycle events produced by a round. The Query
// & Subscription API (C10) implements this to fan events out to
// subscribers; the orchestrator has no knowledge of transport or buffering
// policy beyond "publish and move on".
type EventSink interface {
	Publish(models.Event)
}

// Tenant drives one tenant's discovery state machine. It owns the
// TenantGraph and is the only thing that ever calls ApplyBatch or
// DiffAndCommitLoops on it.
type Tenant struct {
	ID       models.TenantId
	cfg      models.TenantConfig
	g        *graph.TenantGraph
	resolver valuation.Resolver
	sink     EventSink

	mu             sync.Mutex
	st             schedState
	pendingTouched map[models.WalletId]struct{}
	windowStart    time.Time
	cancel         context.CancelFunc

	queuedCount int64
	wake        chan struct{}
	quit        chan struct{}
	wg          sync.WaitGroup

	progress Progress
}

// NewTenant constructs a Tenant and starts its scheduling goroutine.
// Callers must eventually call Close.
func NewTenant(id models.TenantId, cfg models.TenantConfig, resolver valuation.Resolver, sink EventSink) *Tenant {
	return newTenant(id, cfg, graph.New(cfg), resolver, sink)
}

// NewTenantFromGraph starts a tenant from an already-restored graph (warm
// start from a persisted snapshot) rather than an empty one.
func NewTenantFromGraph(id models.TenantId, cfg models.TenantConfig, g *graph.TenantGraph, resolver valuation.Resolver, sink EventSink) *Tenant {
	return newTenant(id, cfg, g, resolver, sink)
}

func newTenant(id models.TenantId, cfg models.TenantConfig, g *graph.TenantGraph, resolver valuation.Resolver, sink EventSink) *Tenant {
	t := &Tenant{
		ID:             id,
		cfg:            cfg,
		g:              g,
		resolver:       resolver,
		sink:           sink,
		st:             stateIdle,
		pendingTouched: make(map[models.WalletId]struct{}),
		wake:           make(chan struct{}, 1),
		quit:           make(chan struct{}),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// Graph exposes the tenant's store for read-only query operations (C10).
func (t *Tenant) Graph() *graph.TenantGraph { return t.g }

// Progress returns a snapshot of the current/most recent round's counters.
func (t *Tenant) Progress() Progress {
	return Progress{
		SCCsVisited:          atomic.LoadInt64(&t.progress.SCCsVisited),
		CyclesEmitted:        atomic.LoadInt64(&t.progress.CyclesEmitted),
		BudgetExhaustedCount: atomic.LoadInt64(&t.progress.BudgetExhaustedCount),
		RoundsCompleted:      atomic.LoadInt64(&t.progress.RoundsCompleted),
	}
}

// ApplyMutation applies batch to the tenant graph synchronously (the
// store is always consistent immediately after this call returns) and
// schedules a discovery round for the wallets it touched; a round already
// computing is cancelled so the next one sees the new state. Backpressure
// is enforced before the graph is touched: once maxQueuedMutations calls
// have been accepted since the last round started, further calls are
// rejected outright (§5, §6).
func (t *Tenant) ApplyMutation(batch models.Batch) (map[models.WalletId]struct{}, error) {
	if atomic.AddInt64(&t.queuedCount, 1) > int64(t.cfg.MaxQueuedMutations) {
		atomic.AddInt64(&t.queuedCount, -1)
		return nil, models.ErrTenantBackpressured
	}

	touched, err := t.g.ApplyBatch(batch)
	if err != nil {
		atomic.AddInt64(&t.queuedCount, -1)
		return nil, err
	}

	t.mu.Lock()
	for w := range touched {
		t.pendingTouched[w] = struct{}{}
	}
	if t.st == stateComputing && t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return touched, nil
}

// Close stops the scheduling goroutine. A round already running finishes
// and publishes its events before Close returns; a debounce window that
// has not yet expired is dropped without running its round.
// Already-committed graph state is left as-is.
func (t *Tenant) Close() {
	close(t.quit)
	t.wg.Wait()
}

func (t *Tenant) run() {
	defer t.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-t.quit:
			if timer != nil {
				timer.Stop()
			}
			return

		case <-t.wake:
			t.mu.Lock()
			switch t.st {
			case stateIdle:
				t.st = stateDebouncing
				t.windowStart = time.Now()
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(time.Duration(t.cfg.DebounceWindowMs) * time.Millisecond)
				timerC = timer.C
			case stateDebouncing:
				elapsed := time.Since(t.windowStart)
				remaining := time.Duration(t.cfg.DebounceWindowMs) * time.Millisecond
				if elapsed+remaining > debounceUpperBound {
					remaining = debounceUpperBound - elapsed
					if remaining < 0 {
						remaining = 0
					}
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(remaining)
				timerC = timer.C
			case stateComputing:
				// A mutation arrived mid-round: cancel it (ApplyMutation
				// also does this directly, since runRound runs on this
				// goroutine). Its partial results are still diffed and
				// re-validated once it unwinds (§4.9 "a fully cancelled
				// round emits nothing" only applies when nothing survives
				// re-validation).
				if t.cancel != nil {
					t.cancel()
				}
			case stateEmitting:
				// Nothing to do: runRound will notice pendingTouched and
				// re-arm the debounce window itself once it returns to Idle.
			}
			t.mu.Unlock()

		case <-timerC:
			timerC = nil
			t.runRound()
		}
	}
}

func (t *Tenant) runRound() {
	t.mu.Lock()
	t.st = stateComputing
	touched := t.pendingTouched
	t.pendingTouched = make(map[models.WalletId]struct{})
	atomic.StoreInt64(&t.queuedCount, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(t.cfg.ComputeDeadlineMs)*time.Millisecond)
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	atomic.StoreInt64(&t.progress.SCCsVisited, 0)
	atomic.StoreInt64(&t.progress.CyclesEmitted, 0)
	atomic.StoreInt64(&t.progress.BudgetExhaustedCount, 0)

	candidates, err := t.discover(ctx, touched)
	if err == nil {
		// Enumeration tasks fail open silently; a cancelled or timed-out
		// round still shows up here.
		err = ctx.Err()
	}
	if err != nil {
		// Fail-open (§4.9): algorithmic failures never remove existing
		// active loops, they just mean this round found nothing new. Every
		// active loop is kept as a candidate; DiffAndCommitLoops still
		// evicts the ones that no longer pass validation.
		log.Printf("[orchestrator] tenant %s: round error: %v", t.ID, err)
		for _, l := range t.g.ActiveLoops() {
			if _, ok := candidates[l.CanonicalId]; !ok {
				l := l
				candidates[l.CanonicalId] = &l
			}
		}
	}

	t.mu.Lock()
	t.st = stateEmitting
	t.mu.Unlock()

	added, removed := t.g.DiffAndCommitLoops(candidates)
	atomic.AddInt64(&t.progress.RoundsCompleted, 1)
	version := t.g.Version()
	for i := range removed {
		l := removed[i]
		t.sink.Publish(models.Event{Type: models.EventLoopRemoved, Loop: &l, Version: version})
	}
	for i := range added {
		l := added[i]
		t.sink.Publish(models.Event{Type: models.EventLoopAdded, Loop: &l, Version: version})
	}

	t.mu.Lock()
	hasMore := len(t.pendingTouched) > 0
	if hasMore {
		t.st = stateDebouncing
		t.windowStart = time.Now()
	} else {
		t.st = stateIdle
	}
	t.mu.Unlock()

	if hasMore {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

// discover runs C4→(C6)→C5→C7→C8 over the subgraph affected by touched,
// returning a canonicalId-keyed candidate map ready for diffing against
// the active set. DiffAndCommitLoops evicts anything active but absent
// from this map, so every currently active loop whose participants fall
// entirely outside the affected subgraph is forwarded into it unchanged
// (§4.9, Testable Property 6) — this round never re-examines those
// loops, and must not cause them to be evicted as a side effect of
// silence.
func (t *Tenant) discover(ctx context.Context, touched map[models.WalletId]struct{}) (map[string]*models.TradeLoop, error) {
	vertices, edges := t.g.WalletProjection()
	affected := affectedSubgraph(vertices, edges, touched, t.cfg.MaxDepth)

	candidates := make(map[string]*models.TradeLoop)
	forwardUnaffectedLoops(t.g, affected, candidates)

	if len(touched) == 0 || len(affected) == 0 {
		return candidates, nil
	}

	restricted := make(map[models.WalletId][]models.WalletId, len(affected))
	affectedSorted := make([]models.WalletId, 0, len(affected))
	for v := range affected {
		affectedSorted = append(affectedSorted, v)
	}
	sort.Slice(affectedSorted, func(i, j int) bool { return affectedSorted[i] < affectedSorted[j] })
	for _, v := range affectedSorted {
		var list []models.WalletId
		for _, w := range edges[v] {
			if _, ok := affected[w]; ok {
				list = append(list, w)
			}
		}
		restricted[v] = list
	}

	sccResult, err := scc.Partition(ctx, affectedSorted, restricted, t.cfg.CancellationCheckEdges)
	if err != nil && len(sccResult.Components) == 0 {
		return candidates, err
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(t.cfg.MaxSCCConcurrency))
	grp, gctx := errgroup.WithContext(ctx)

	runEnumeration := func(members []models.WalletId, localEdges map[models.WalletId][]models.WalletId) {
		atomic.AddInt64(&t.progress.SCCsVisited, 1)
		grp.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil // cancelled: fail-open, just skip this slice
			}
			defer sem.Release(1)

			res, enumErr := cycles.Enumerate(gctx, members, localEdges, t.g.EdgeNFTs, t.cfg.MaxDepth, t.cfg.MaxCyclesPerSCC, t.cfg.CancellationCheckEdges)
			if enumErr != nil {
				return nil // fail-open
			}
			if res.BudgetExhausted {
				atomic.AddInt64(&t.progress.BudgetExhaustedCount, 1)
				log.Printf("[orchestrator] tenant %s: cycle budget exhausted for a %d-member component", t.ID, len(members))
			}
			atomic.AddInt64(&t.progress.CyclesEmitted, int64(len(res.Loops)))
			scoreAndAdmit(gctx, t.g, t.resolver, t.cfg, res.Loops, &mu, candidates)
			return nil
		})
	}

	for _, c := range sccResult.Components {
		if len(c.Members) <= t.cfg.LargeSCCThreshold {
			runEnumeration(c.Members, restricted)
			continue
		}
		groups, bridgeVertices, bridgeEdges := community.Partition(c.Members, restricted, 1)
		for _, group := range groups {
			runEnumeration(group, restricted)
		}
		runEnumeration(bridgeVertices, bridgeEdges)
	}

	_ = grp.Wait() // errors are never returned: every task fails open internally
	return candidates, err
}

func scoreAndAdmit(ctx context.Context, g *graph.TenantGraph, resolver valuation.Resolver, cfg models.TenantConfig, drafts []models.TradeLoop, mu *sync.Mutex, candidates map[string]*models.TradeLoop) {
	for _, draft := range drafts {
		if !g.LoopStillValid(&draft) {
			continue
		}
		result, err := scoring.Score(ctx, draft.Steps, cfg, resolver, nil)
		if err != nil || !result.Accepted {
			continue
		}
		draft.Efficiency = result.Efficiency
		draft.Fairness = result.Fairness
		draft.QualityScore = result.QualityScore
		draft.CanonicalId = canon.Key(draft.Steps)

		loop := draft
		mu.Lock()
		if _, exists := candidates[loop.CanonicalId]; !exists {
			candidates[loop.CanonicalId] = &loop
		}
		mu.Unlock()
	}
}

// forwardUnaffectedLoops copies every active loop with no participant in
// affected into candidates unchanged. Those loops are out of scope for
// this round — nothing about them could have changed — but
// DiffAndCommitLoops has no notion of "out of scope"; it evicts anything
// active that candidates is silent on, so silence here would be read as
// "no longer valid" instead of "not examined".
func forwardUnaffectedLoops(g *graph.TenantGraph, affected map[models.WalletId]struct{}, candidates map[string]*models.TradeLoop) {
	for _, loop := range g.ActiveLoops() {
		inScope := false
		for _, w := range loop.Wallets() {
			if _, ok := affected[w]; ok {
				inScope = true
				break
			}
		}
		if !inScope {
			l := loop
			candidates[l.CanonicalId] = &l
		}
	}
}

// affectedSubgraph computes the union of BFS neighborhoods (radius =
// maxDepth) around every touched wallet, walking the wallet projection as
// an undirected graph (an edge either direction puts two wallets within
// reach of a shared loop) and restricted to vertices that exist in the
// current projection (§4.9).
func affectedSubgraph(vertices []models.WalletId, edges map[models.WalletId][]models.WalletId, touched map[models.WalletId]struct{}, radius int) map[models.WalletId]struct{} {
	undirected := make(map[models.WalletId][]models.WalletId, len(vertices))
	for _, v := range vertices {
		undirected[v] = append(undirected[v], edges[v]...)
	}
	for _, v := range vertices {
		for _, w := range edges[v] {
			undirected[w] = append(undirected[w], v)
		}
	}

	visited := make(map[models.WalletId]struct{})
	var frontier []models.WalletId
	for w := range touched {
		if _, inProjection := undirected[w]; !inProjection {
			continue
		}
		if _, ok := visited[w]; !ok {
			visited[w] = struct{}{}
			frontier = append(frontier, w)
		}
	}

	for hop := 0; hop < radius && len(frontier) > 0; hop++ {
		var next []models.WalletId
		for _, v := range frontier {
			for _, w := range undirected[v] {
				if _, ok := visited[w]; !ok {
					visited[w] = struct{}{}
					next = append(next, w)
				}
			}
		}
		frontier = next
	}
	return visited
}
