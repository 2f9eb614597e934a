package store

import (
	"fmt"
	"strings"

	"github.com/go-identity/sso-broker/pkg/core"
)

// StoreType represents the type of store backend.
type StoreType string

const (
	// StoreTypeMemory represents in-memory storage.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeRedis represents Redis storage.
	StoreTypeRedis StoreType = "redis"
)

// Config contains configuration for creating a grant store.
type Config struct {
	// Type specifies the store type (memory or redis).
	Type StoreType
	// Redis contains Redis-specific configuration.
	Redis RedisOptions
}

// Factory creates grant store instances based on configuration.
type Factory struct {
	config Config
}

// NewFactory creates a new store factory with the provided configuration.
func NewFactory(config Config) *Factory {
	return &Factory{config: config}
}

// Create creates and returns a new grant store based on the factory
// configuration. Returns an error if the store type is invalid or if store
// creation fails.
func (f *Factory) Create() (core.GrantStore, error) {
	switch f.config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		return NewRedisStoreFromOptions(f.config.Redis)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", f.config.Type)
	}
}

// NewStore is a convenience function that creates a store directly from
// configuration. It's equivalent to NewFactory(config).Create().
func NewStore(config Config) (core.GrantStore, error) {
	return NewFactory(config).Create()
}

// ParseStoreType parses a string into a StoreType.
// Returns StoreTypeMemory for invalid inputs.
func ParseStoreType(s string) StoreType {
	switch strings.ToLower(s) {
	case "memory":
		return StoreTypeMemory
	case "redis":
		return StoreTypeRedis
	default:
		return StoreTypeMemory
	}
}

// String returns the string representation of a StoreType.
func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the StoreType is valid.
func (t StoreType) IsValid() bool {
	switch t {
	case StoreTypeMemory, StoreTypeRedis:
		return true
	default:
		return false
	}
}
