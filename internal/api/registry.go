package api

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nftloop/tradeloop-engine/internal/graph"
	"github.com/nftloop/tradeloop-engine/internal/orchestrator"
	"github.com/nftloop/tradeloop-engine/internal/valuation"
	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// tenantLifecycle mirrors the init→serve→drain→shutdown progression a
// tenant goes through (§4.10, §5).
type tenantLifecycle string

const (
	lifecycleServing  tenantLifecycle = "serving"
	lifecycleDraining tenantLifecycle = "draining"
	lifecycleShutdown tenantLifecycle = "shutdown"
)

type tenantEntry struct {
	orch      *orchestrator.Tenant
	hub       *Hub
	lifecycle tenantLifecycle
}

// Registry is the process-wide home for every tenant's orchestrator and
// event hub — the concrete implementation of C10 that the gateway (or any
// other transport) is built on top of.
type Registry struct {
	mu       sync.RWMutex
	tenants  map[models.TenantId]*tenantEntry
	resolver valuation.Resolver
}

// NewRegistry constructs a Registry backed by a single shared Resolver
// (§5 "the valuation cache is globally shared").
func NewRegistry(resolver valuation.Resolver) *Registry {
	return &Registry{
		tenants:  make(map[models.TenantId]*tenantEntry),
		resolver: resolver,
	}
}

// InitTenant brings a tenant online with cfg, rejecting an invalid
// configuration before any state is created.
func (r *Registry) InitTenant(id models.TenantId, cfg models.TenantConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("init tenant %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[id]; exists {
		return fmt.Errorf("tenant %s already initialized", id)
	}

	hub := NewHub()
	orch := orchestrator.NewTenant(id, cfg, r.resolver, hub)
	r.tenants[id] = &tenantEntry{orch: orch, hub: hub, lifecycle: lifecycleServing}
	return nil
}

// InitTenantFromSnapshot brings a tenant online with a graph restored from
// a previously persisted snapshot rather than an empty one, for
// process-restart warm-start.
func (r *Registry) InitTenantFromSnapshot(id models.TenantId, cfg models.TenantConfig, snapshot []byte) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("init tenant %s: %w", id, err)
	}
	g, err := graph.Restore(snapshot, cfg)
	if err != nil {
		return fmt.Errorf("restore tenant %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[id]; exists {
		return fmt.Errorf("tenant %s already initialized", id)
	}

	hub := NewHub()
	orch := orchestrator.NewTenantFromGraph(id, cfg, g, r.resolver, hub)
	r.tenants[id] = &tenantEntry{orch: orch, hub: hub, lifecycle: lifecycleServing}
	return nil
}

func (r *Registry) entry(id models.TenantId) (*tenantEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: tenant %s", models.ErrUnknownTenant, id)
	}
	return e, nil
}

// ApplyMutation routes batch to tenantId's orchestrator.
func (r *Registry) ApplyMutation(tenantId models.TenantId, batch models.Batch) (map[models.WalletId]struct{}, error) {
	e, err := r.entry(tenantId)
	if err != nil {
		return nil, err
	}
	if e.lifecycle != lifecycleServing {
		return nil, fmt.Errorf("tenant %s is %s", tenantId, e.lifecycle)
	}
	return e.orch.ApplyMutation(batch)
}

// GetLoopsForWallet implements getLoopsForWallet (§4.10): a synchronous
// snapshot read, no involvement of the orchestrator's scheduling state.
func (r *Registry) GetLoopsForWallet(tenantId models.TenantId, wallet models.WalletId) ([]models.TradeLoop, error) {
	e, err := r.entry(tenantId)
	if err != nil {
		return nil, err
	}
	return e.orch.Graph().ActiveLoopsForWallet(wallet), nil
}

// GetVersion implements getVersion (§4.10).
func (r *Registry) GetVersion(tenantId models.TenantId) (uint64, error) {
	e, err := r.entry(tenantId)
	if err != nil {
		return 0, err
	}
	return e.orch.Graph().Version(), nil
}

// GetProgress reports the most recent discovery round's coarse counters
// (SCCs visited, cycles emitted, budget-exhausted count) for a tenant, a
// diagnostics-only view with no bearing on correctness.
func (r *Registry) GetProgress(tenantId models.TenantId) (orchestrator.Progress, error) {
	e, err := r.entry(tenantId)
	if err != nil {
		return orchestrator.Progress{}, err
	}
	return e.orch.Progress(), nil
}

// Graph returns tenantId's underlying graph store, for callers outside the
// request path that need direct access — chiefly snapshot persistence
// ahead of a drain/shutdown. Synchronous reads (ActiveLoopsForWallet,
// Version) are still safe to call concurrently with mutation application.
func (r *Registry) Graph(tenantId models.TenantId) (*graph.TenantGraph, error) {
	e, err := r.entry(tenantId)
	if err != nil {
		return nil, err
	}
	return e.orch.Graph(), nil
}

// Subscribe implements subscribe (§4.10): a bounded-buffer event stream
// for tenantId.
func (r *Registry) Subscribe(tenantId models.TenantId) (*Subscription, error) {
	e, err := r.entry(tenantId)
	if err != nil {
		return nil, err
	}
	return e.hub.Subscribe(), nil
}

// DrainTenant stops accepting new mutations for tenantId while letting
// any in-flight round finish and its events deliver, ahead of
// ShutdownTenant.
func (r *Registry) DrainTenant(tenantId models.TenantId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tenants[tenantId]
	if !ok {
		return fmt.Errorf("%w: tenant %s", models.ErrUnknownTenant, tenantId)
	}
	e.lifecycle = lifecycleDraining
	return nil
}

// ShutdownTenant stops tenantId's orchestrator goroutine and closes every
// subscriber. The tenant's graph state is not deleted — callers wanting a
// durable shutdown should Snapshot it first via Graph().
func (r *Registry) ShutdownTenant(tenantId models.TenantId) error {
	r.mu.Lock()
	e, ok := r.tenants[tenantId]
	if ok {
		e.lifecycle = lifecycleShutdown
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: tenant %s", models.ErrUnknownTenant, tenantId)
	}
	e.orch.Close()
	e.hub.Close()

	r.mu.Lock()
	delete(r.tenants, tenantId)
	r.mu.Unlock()
	return nil
}

// TenantIDs lists every currently known tenant, sorted for deterministic
// diagnostics output.
func (r *Registry) TenantIDs() []models.TenantId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.TenantId, 0, len(r.tenants))
	for id := range r.tenants {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
