package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/go-identity/sso-broker/pkg/core"
)

// grantPrefix namespaces grant keys in Redis.
const grantPrefix = "grant:"

// RedisStore implements core.GrantStore using Redis via rueidis.
// The rueidis client is safe for concurrent use, so one RedisStore is
// shared across all requests.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore creates a new instance of RedisStore with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RedisOptions contains configuration for Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStoreFromOptions creates a new RedisStore with simplified options.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// NewRedisStoreFromClientOption creates a new RedisStore with full rueidis client options.
func NewRedisStoreFromClientOption(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() {
	r.client.Close()
}

// PutGrant stores a grant in Redis with a TTL derived from Grant.TTL.
func (r *RedisStore) PutGrant(ctx context.Context, grant *core.Grant) error {
	if grant == nil {
		return ErrNilGrant
	}
	if grant.Code == "" {
		return ErrEmptyCode
	}

	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal grant: %w", err)
	}

	ttl := time.Until(time.Unix(grant.TTL, 0))
	if ttl <= 0 {
		return errors.New("grant is already expired")
	}

	key := grantPrefix + grant.Code
	cmd := r.client.B().Set().Key(key).Value(string(data)).ExSeconds(int64(ttl.Seconds())).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save grant to redis: %w", err)
	}

	return nil
}

// GetGrant retrieves a grant from Redis by its code.
// It returns ErrGrantNotFound if the grant does not exist or has expired.
// Grants are single-use and deleted immediately after redemption, so reads
// bypass client-side caching.
func (r *RedisStore) GetGrant(ctx context.Context, code string) (*core.Grant, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}

	key := grantPrefix + code
	cmd := r.client.B().Get().Key(key).Build()
	result, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to get grant from redis: %w", err)
	}

	var grant core.Grant
	if err := json.Unmarshal([]byte(result), &grant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grant: %w", err)
	}

	// Double-check expiration (Redis TTL should handle this, but being explicit)
	if grant.TTL > 0 && time.Now().Unix() > grant.TTL {
		_ = r.DeleteGrant(ctx, code)
		return nil, ErrGrantNotFound
	}

	return &grant, nil
}

// DeleteGrant removes a grant from Redis by its code.
// It returns ErrGrantNotFound if the grant does not exist.
func (r *RedisStore) DeleteGrant(ctx context.Context, code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	key := grantPrefix + code
	cmd := r.client.B().Del().Key(key).Build()
	result, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to delete grant from redis: %w", err)
	}

	if result == 0 {
		return ErrGrantNotFound
	}

	return nil
}
