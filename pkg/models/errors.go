package models

import "errors"

// Error taxonomy (§7). Invariant violations and malformed input surface
// synchronously to the mutation caller; algorithmic partial failures
// (BudgetExhausted, ComputationCancelled) are internal telemetry and never
// propagate as caller-visible errors.
var (
	ErrInvalidMutation     = errors.New("invalid mutation")
	ErrConflictingOwnership = errors.New("conflicting ownership")
	ErrUnknownWallet       = errors.New("unknown wallet")
	ErrUnknownNFT          = errors.New("unknown nft")
	ErrUnknownTenant       = errors.New("unknown tenant")
	ErrTenantBackpressured = errors.New("tenant backpressured")
	ErrSnapshotIncompatible = errors.New("snapshot incompatible")
)
