// Package persistence implements optional snapshot durability: the one
// persistence concern the core spec actually names (§3 "optional
// snapshot/restore at boundaries"). Nothing in internal/graph or
// internal/orchestrator depends on this package — a tenant with no store
// configured simply never calls it.
package persistence

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenant_snapshots (
	tenant_id   TEXT PRIMARY KEY,
	version     BIGINT NOT NULL,
	snapshot    JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// SnapshotStore persists and retrieves opaque tenant graph snapshots
// (internal/graph.TenantGraph.Snapshot / Restore) keyed by tenant id.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and verifies connectivity.
// Modeled on the teacher's internal/db.Connect — a store that cannot
// reach Postgres is a configuration error the caller decides how to
// handle (continue without durability, or refuse to start).
func Connect(ctx context.Context, connStr string) (*SnapshotStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	log.Println("[persistence] connected to snapshot store")
	return &SnapshotStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *SnapshotStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the snapshot table if it does not already exist.
func (s *SnapshotStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}
	return nil
}

// Save upserts tenantId's snapshot blob.
func (s *SnapshotStore) Save(ctx context.Context, tenantId models.TenantId, version uint64, snapshot []byte) error {
	const q = `
		INSERT INTO tenant_snapshots (tenant_id, version, snapshot, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET version = EXCLUDED.version, snapshot = EXCLUDED.snapshot, updated_at = now();
	`
	_, err := s.pool.Exec(ctx, q, string(tenantId), int64(version), snapshot)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for tenant %s: %w", tenantId, err)
	}
	return nil
}

// ErrNoSnapshot is returned by Load when a tenant has never been saved.
var ErrNoSnapshot = fmt.Errorf("no snapshot on record")

// Load fetches the most recent snapshot blob for tenantId.
func (s *SnapshotStore) Load(ctx context.Context, tenantId models.TenantId) ([]byte, uint64, error) {
	const q = `SELECT version, snapshot FROM tenant_snapshots WHERE tenant_id = $1`
	var version int64
	var snapshot []byte
	err := s.pool.QueryRow(ctx, q, string(tenantId)).Scan(&version, &snapshot)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrNoSnapshot, tenantId, err)
	}
	return snapshot, uint64(version), nil
}

// ListTenants returns every tenant id with a stored snapshot, used to
// warm-restore the registry on process start.
func (s *SnapshotStore) ListTenants(ctx context.Context) ([]models.TenantId, error) {
	rows, err := s.pool.Query(ctx, `SELECT tenant_id FROM tenant_snapshots ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TenantId
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, models.TenantId(id))
	}
	return out, rows.Err()
}
