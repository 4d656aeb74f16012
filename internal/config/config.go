// Package config loads host-level settings (listen address, optional
// Postgres DSN, default tenant config file) the way the teacher's cmd
// binary does: required env vars fail fast, optional ones fall back to a
// documented default, and structured per-tenant defaults load from YAML
// (gopkg.in/yaml.v3) rather than being wired up by hand.
package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// HostConfig is everything cmd/engine needs to start the process, as
// distinct from a TenantConfig which governs one tenant's discovery
// knobs.
type HostConfig struct {
	ListenAddr       string
	PostgresDSN      string // empty disables snapshot persistence
	DefaultTenantCfg models.TenantConfig
}

// LoadHostConfig reads listen/persistence settings from the environment
// and a default tenant configuration from path (if non-empty).
func LoadHostConfig(defaultTenantConfigPath string) (HostConfig, error) {
	cfg := HostConfig{
		ListenAddr:  getEnvOrDefault("LISTEN_ADDR", ":8080"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}

	if defaultTenantConfigPath == "" {
		cfg.DefaultTenantCfg = models.DefaultTenantConfig()
		return cfg, nil
	}

	tenantCfg, err := LoadTenantConfig(defaultTenantConfigPath)
	if err != nil {
		return HostConfig{}, err
	}
	cfg.DefaultTenantCfg = tenantCfg
	return cfg, nil
}

// LoadTenantConfig reads a YAML tenant configuration file, filling in
// spec defaults for any field the file omits before validating the
// result.
func LoadTenantConfig(path string) (models.TenantConfig, error) {
	cfg := models.DefaultTenantConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return models.TenantConfig{}, fmt.Errorf("reading tenant config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return models.TenantConfig{}, fmt.Errorf("parsing tenant config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return models.TenantConfig{}, fmt.Errorf("invalid tenant config %s: %w", path, err)
	}
	return cfg, nil
}

// requireEnv reads a required environment variable and exits if it is not
// set, mirroring the teacher's fail-fast startup convention.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or fallback for non-critical
// settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
