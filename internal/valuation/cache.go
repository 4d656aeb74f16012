package valuation

import (
	"context"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// CachingResolver sits in front of an external Resolver. Per §4.2, stale
// values only degrade scoring, never correctness — so a cached value is
// always preferred over blocking the hot path on the upstream oracle, and
// a background refresher keeps the cache from drifting too far.
//
// Safe for concurrent use: the underlying LRU cache handles its own
// locking, and the refresher is paced by a token-bucket limiter so a large
// tenant can never turn cache warming into an oracle-hammering loop.
type CachingResolver struct {
	upstream Resolver
	values   *lru.Cache[models.NFTId, float64]
	limiter  *rate.Limiter

	mu      sync.Mutex
	dirty   map[models.NFTId]struct{}
	refresh chan struct{}
}

// NewCachingResolver wraps upstream with an LRU cache of the given size and
// a background refresher rate-limited to refreshPerSecond lookups/second.
func NewCachingResolver(upstream Resolver, cacheSize int, refreshPerSecond float64) *CachingResolver {
	cache, err := lru.New[models.NFTId, float64](cacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a setup
		// bug, not a runtime condition; fall back to a minimal cache
		// rather than letting the engine start in a broken state.
		cache, _ = lru.New[models.NFTId, float64](1)
		log.Printf("[valuation] invalid cache size %d, falling back to 1: %v", cacheSize, err)
	}

	return &CachingResolver{
		upstream: upstream,
		values:   cache,
		limiter:  rate.NewLimiter(rate.Limit(refreshPerSecond), 1),
		dirty:    make(map[models.NFTId]struct{}),
		refresh:  make(chan struct{}, 1),
	}
}

// ValueOf returns the cached value if present, otherwise fetches and caches
// it synchronously. A cache hit never touches the upstream resolver.
func (c *CachingResolver) ValueOf(ctx context.Context, nft models.NFTId) (float64, error) {
	if v, ok := c.values.Get(nft); ok {
		return v, nil
	}
	v, err := c.upstream.ValueOf(ctx, nft)
	if err != nil {
		return 0, err
	}
	c.values.Add(nft, v)
	return v, nil
}

// MembersOf is always delegated live; collection membership is never
// cached.
func (c *CachingResolver) MembersOf(ctx context.Context, collection models.CollectionId) ([]models.NFTId, error) {
	return c.upstream.MembersOf(ctx, collection)
}

// MarkDirty flags nft for background refresh on the next RunRefresher tick,
// e.g. when a host collaborator learns its valuation changed out of band.
func (c *CachingResolver) MarkDirty(nft models.NFTId) {
	c.mu.Lock()
	c.dirty[nft] = struct{}{}
	c.mu.Unlock()
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// RunRefresher drains dirty entries one at a time, respecting the rate
// limiter, until ctx is cancelled. Intended to run as a single background
// goroutine per process (the cache itself is process-wide, not
// per-tenant — §5 "Valuation cache is globally shared and safe under
// concurrent readers and a single background refresher").
func (c *CachingResolver) RunRefresher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.refresh:
		case <-time.After(time.Second):
		}

		for {
			nft, ok := c.popDirty()
			if !ok {
				break
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			v, err := c.upstream.ValueOf(ctx, nft)
			if err != nil {
				log.Printf("[valuation] refresh failed for %s: %v", nft, err)
				continue
			}
			c.values.Add(nft, v)
		}
	}
}

func (c *CachingResolver) popDirty() (models.NFTId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for nft := range c.dirty {
		delete(c.dirty, nft)
		return nft, true
	}
	return "", false
}
