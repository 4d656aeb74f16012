// Package canon implements the Canonical ID & Dedup component (C7):
// reducing a candidate trade loop to a rotation- and direction-invariant
// key, and a Bloom-filter-backed pre-check in front of exact dedup.
package canon

import (
	"strings"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// Key computes the canonical identity of a loop per §4.7:
//  1. build the (wallet,nft) sequence in cycle order,
//  2. consider the sequence and its reverse,
//  3. for each, consider every rotation and keep the lexicographically
//     smallest encoding,
//  4. the overall minimum across both directions is the canonical key.
//
// Key is a pure function of loop contents: identical cycles (in any
// rotation or direction) always produce the same string, satisfying
// Invariant 4 (deterministic canonical key).
func Key(steps []models.Step) string {
	if len(steps) == 0 {
		return ""
	}

	forward := make([]string, len(steps))
	for i, s := range steps {
		forward[i] = string(s.GiverWallet) + "|" + string(s.NFT)
	}

	reverse := make([]string, len(forward))
	for i := range forward {
		reverse[i] = forward[len(forward)-1-i]
	}

	best := smallestRotation(forward)
	if alt := smallestRotation(reverse); alt < best {
		best = alt
	}
	return best
}

// smallestRotation returns the lexicographically smallest comma-joined
// encoding across all rotations of seq.
func smallestRotation(seq []string) string {
	n := len(seq)
	var best string
	for start := 0; start < n; start++ {
		var b strings.Builder
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(seq[(start+i)%n])
		}
		candidate := b.String()
		if start == 0 || candidate < best {
			best = candidate
		}
	}
	return best
}
