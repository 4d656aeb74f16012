package models

import "time"

// LoopStatus tracks a trade loop through its lifecycle (§3 Lifecycle).
type LoopStatus string

const (
	LoopPending LoopStatus = "pending"
	LoopActive  LoopStatus = "active"
	LoopStale   LoopStatus = "stale"
)

// Step is one leg of a trade loop: GiverWallet currently owns NFT and
// transfers it to ReceiverWallet, who wants it.
type Step struct {
	GiverWallet    WalletId `json:"giverWalletId"`
	ReceiverWallet WalletId `json:"receiverWalletId"`
	NFT            NFTId    `json:"nftId"`
}

// TradeLoop is the canonical, closed chain of transfers described in §3. A
// valid loop satisfies: successive steps chain, the loop closes (last
// receiver == first giver), every giver currently owns the stated NFT,
// every receiver wants it and has not rejected it, and no giver or NFT
// repeats.
type TradeLoop struct {
	CanonicalId      string     `json:"canonicalId"`
	Steps            []Step     `json:"steps"`
	Efficiency       float64    `json:"efficiency"`
	Fairness         float64    `json:"fairness"`
	QualityScore     float64    `json:"qualityScore"`
	ParticipantCount int        `json:"participantCount"`
	DiscoveredAt     time.Time  `json:"discoveredAt"`
	Status           LoopStatus `json:"status"`
}

// Wallets returns the distinct wallet ids participating in the loop, in
// step order (giver of each step).
func (l TradeLoop) Wallets() []WalletId {
	out := make([]WalletId, len(l.Steps))
	for i, s := range l.Steps {
		out[i] = s.GiverWallet
	}
	return out
}

// InvolvesWallet reports whether w is a giver or receiver in any step.
func (l TradeLoop) InvolvesWallet(w WalletId) bool {
	for _, s := range l.Steps {
		if s.GiverWallet == w || s.ReceiverWallet == w {
			return true
		}
	}
	return false
}
