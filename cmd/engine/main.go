package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nftloop/tradeloop-engine/internal/api"
	"github.com/nftloop/tradeloop-engine/internal/config"
	"github.com/nftloop/tradeloop-engine/internal/gateway"
	"github.com/nftloop/tradeloop-engine/internal/persistence"
	"github.com/nftloop/tradeloop-engine/internal/valuation"
	"github.com/nftloop/tradeloop-engine/pkg/models"
)

func main() {
	log.Println("Starting NFT Trade Loop Discovery Engine...")

	// ─── Host configuration ──────────────────────────────────────────────
	// Persistence and a per-tenant config override are both optional;
	// listen address falls back to a documented default.
	// ──────────────────────────────────────────────────────────────────────
	hostCfg, err := config.LoadHostConfig(getEnvOrDefault("TENANT_CONFIG_PATH", ""))
	if err != nil {
		log.Fatalf("FATAL: failed to load host config: %v", err)
	}

	var store *persistence.SnapshotStore
	if hostCfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = persistence.Connect(ctx, hostCfg.PostgresDSN)
		cancel()
		if err != nil {
			log.Printf("Warning: failed to connect to snapshot store, continuing without persistence: %v", err)
			store = nil
		} else {
			defer store.Close()
			if err := store.InitSchema(context.Background()); err != nil {
				log.Printf("Warning: snapshot schema init failed: %v", err)
			}
		}
	} else {
		log.Println("POSTGRES_DSN not set — running without snapshot persistence")
	}

	// Resolver is process-wide and shared across every tenant (§5).
	upstream := valuation.NewStaticResolver()
	resolver := valuation.NewCachingResolver(upstream, 100000, 50.0)

	refreshCtx, cancelRefresh := context.WithCancel(context.Background())
	defer cancelRefresh()
	go resolver.RunRefresher(refreshCtx)

	registry := api.NewRegistry(resolver)

	if store != nil {
		warmRestore(registry, store, hostCfg.DefaultTenantCfg)
	}

	demoTenant := models.TenantId(getEnvOrDefault("DEMO_TENANT_ID", "demo"))
	if err := registry.InitTenant(demoTenant, hostCfg.DefaultTenantCfg); err != nil {
		log.Printf("Warning: failed to init demo tenant %s: %v", demoTenant, err)
	} else {
		log.Printf("Tenant %s online", demoTenant)
	}

	rateLimiter := gateway.NewRateLimiter(600, 30)
	router := gateway.SetupRouter(registry, rateLimiter)

	srvCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Engine listening on %s", hostCfg.ListenAddr)
		if err := router.Run(hostCfg.ListenAddr); err != nil {
			log.Fatalf("FATAL: server failed: %v", err)
		}
	}()

	<-srvCtx.Done()
	log.Println("Shutdown signal received, draining tenants...")

	for _, id := range registry.TenantIDs() {
		if err := registry.DrainTenant(id); err != nil {
			log.Printf("Warning: drain failed for tenant %s: %v", id, err)
			continue
		}
		if store != nil {
			snapshotTenant(registry, store, id)
		}
		if err := registry.ShutdownTenant(id); err != nil {
			log.Printf("Warning: shutdown failed for tenant %s: %v", id, err)
		}
	}
	log.Println("Shutdown complete")
}

// warmRestore re-initializes every tenant the snapshot store knows about,
// restoring graph state before the tenant accepts its first mutation.
// Best-effort: a tenant whose snapshot fails to restore starts empty
// rather than blocking the rest of the process.
func warmRestore(registry *api.Registry, store *persistence.SnapshotStore, defaultCfg models.TenantConfig) {
	ctx := context.Background()
	ids, err := store.ListTenants(ctx)
	if err != nil {
		log.Printf("Warning: failed to list persisted tenants: %v", err)
		return
	}
	for _, id := range ids {
		snapshot, version, err := store.Load(ctx, id)
		if err != nil {
			log.Printf("Warning: failed to load snapshot for tenant %s: %v", id, err)
			continue
		}
		if err := registry.InitTenantFromSnapshot(id, defaultCfg, snapshot); err != nil {
			log.Printf("Warning: failed to restore tenant %s, starting empty instead: %v", id, err)
			if err := registry.InitTenant(id, defaultCfg); err != nil {
				log.Printf("Warning: failed to init tenant %s: %v", id, err)
			}
			continue
		}
		log.Printf("Restored tenant %s at version %d (%d bytes)", id, version, len(snapshot))
	}
}

// snapshotTenant persists tenantId's current graph state ahead of shutdown.
func snapshotTenant(registry *api.Registry, store *persistence.SnapshotStore, tenantId models.TenantId) {
	g, err := registry.Graph(tenantId)
	if err != nil {
		log.Printf("Warning: snapshot skipped, tenant %s unavailable: %v", tenantId, err)
		return
	}
	data, err := g.Snapshot()
	if err != nil {
		log.Printf("Warning: failed to snapshot tenant %s: %v", tenantId, err)
		return
	}
	if err := store.Save(context.Background(), tenantId, g.Version(), data); err != nil {
		log.Printf("Warning: failed to save snapshot for tenant %s: %v", tenantId, err)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
