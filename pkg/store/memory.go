// Package store provides grant store backends behind a small factory.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-identity/sso-broker/pkg/core"
)

var (
	// ErrGrantNotFound is returned when no grant exists for a code.
	ErrGrantNotFound = errors.New("grant not found")
	// ErrNilGrant is returned when attempting to save a nil grant.
	ErrNilGrant = errors.New("grant cannot be nil")
	// ErrEmptyCode is returned when the authorization code string is empty.
	ErrEmptyCode = errors.New("authorization code cannot be empty")
)

// MemoryStore implements core.GrantStore using an in-memory map.
// It provides thread-safe storage with TTL enforcement on read.
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[string]*core.Grant
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grants: make(map[string]*core.Grant),
	}
}

// PutGrant stores a grant in memory.
// It returns an error if the grant is nil or the code string is empty.
func (m *MemoryStore) PutGrant(_ context.Context, grant *core.Grant) error {
	if grant == nil {
		return ErrNilGrant
	}
	if grant.Code == "" {
		return ErrEmptyCode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.grants[grant.Code] = grant
	return nil
}

// GetGrant retrieves a grant from memory by its code.
// It returns ErrGrantNotFound if the grant does not exist or its store TTL
// has passed; reaping expired entries on read mirrors a TTL-managed table.
func (m *MemoryStore) GetGrant(_ context.Context, code string) (*core.Grant, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	grant, exists := m.grants[code]
	if !exists {
		return nil, ErrGrantNotFound
	}
	if grant.TTL > 0 && time.Now().Unix() > grant.TTL {
		delete(m.grants, code)
		return nil, ErrGrantNotFound
	}

	return grant, nil
}

// DeleteGrant removes a grant from memory by its code.
// It returns ErrGrantNotFound if the grant does not exist.
func (m *MemoryStore) DeleteGrant(_ context.Context, code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.grants[code]; !exists {
		return ErrGrantNotFound
	}

	delete(m.grants, code)
	return nil
}
