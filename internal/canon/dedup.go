package canon

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Dedup guards a tenant's active-loop canonical keys with a Bloom
// pre-filter backed by an exact set, matching §4.7's fails-closed rule:
// a Bloom hit is only ever a reason to do the exact check, never a reason
// to discard a loop outright. Two colliding-but-distinct keys are both
// kept.
//
// The Bloom filter is owned by the single tenant writer. Readers query the
// live filter and exact set under a read lock; no separate immutable copy
// of the filter is kept.
type Dedup struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewDedup sizes the Bloom filter for expectedItems entries at the given
// false-positive rate (§6 bloomFalsePositiveRate, default 10⁻³).
func NewDedup(expectedItems uint, falsePositiveRate float64) *Dedup {
	if expectedItems == 0 {
		expectedItems = 1024
	}
	return &Dedup{
		filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate),
		exact:  make(map[string]struct{}),
	}
}

// Contains reports whether key is already a registered active canonical
// key, always resolving Bloom hits against the exact set before answering.
func (d *Dedup) Contains(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.filter.TestString(key) {
		return false
	}
	_, ok := d.exact[key]
	return ok
}

// Register adds key to both the Bloom filter and the exact set. Returns
// false if key was already registered (caller should treat as a duplicate
// candidate and discard it silently per §4.7).
func (d *Dedup) Register(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.exact[key]; ok {
		return false
	}
	d.filter.AddString(key)
	d.exact[key] = struct{}{}
	return true
}

// Unregister removes key from the exact set. The Bloom filter itself never
// un-sees a key (Bloom filters do not support deletion); that only means
// future Contains calls for this key pay one extra exact-map lookup, never
// an incorrect answer.
func (d *Dedup) Unregister(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.exact, key)
}

// Keys returns a snapshot slice of every currently registered canonical
// key, for serialization into a tenant snapshot.
func (d *Dedup) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.exact))
	for k := range d.exact {
		out = append(out, k)
	}
	return out
}
