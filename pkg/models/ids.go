// Package models holds the value types shared across the trade discovery
// engine: identifiers, mutations, and the canonical trade loop shape.
package models

// WalletId identifies a wallet uniquely within a tenant.
type WalletId string

// NFTId identifies an NFT uniquely within a tenant.
type NFTId string

// CollectionId identifies a collection uniquely within a tenant.
type CollectionId string

// TenantId identifies a tenant. Tenants are fully isolated: no graph, cache,
// or loop ever crosses a TenantId boundary.
type TenantId string
