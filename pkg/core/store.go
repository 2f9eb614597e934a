package core

import "context"

// GrantStore defines the interface for storing and retrieving pending
// authorization-code grants. Lookups are exact-match by code; the store
// honors Grant.TTL independently of the broker's logical code lifetime.
type GrantStore interface {
	PutGrant(ctx context.Context, grant *Grant) error
	GetGrant(ctx context.Context, code string) (*Grant, error)
	DeleteGrant(ctx context.Context, code string) error
}
