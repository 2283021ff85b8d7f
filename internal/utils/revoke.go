package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9" // Redis client
)

// Revoker records revoked refresh-token JTIs until they would have expired
// anyway. Access tokens stay stateless and simply run out.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevoker backs the revocation list with Redis, letting TTLs expire
// entries on their own.
type RedisRevoker struct {
	Client *redis.Client
}

// Revoke marks a JTI as revoked for the remaining token lifetime
func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if r.Client == nil || ttl <= 0 {
		return nil
	}
	return r.Client.Set(ctx, "revoked:jti:"+jti, "1", ttl).Err()
}

// IsRevoked reports whether a JTI has been revoked
func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.Client == nil {
		return false, nil
	}
	n, err := r.Client.Exists(ctx, "revoked:jti:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevoker is an in-process revocation list for tests
type MemoryRevoker struct {
	revoked map[string]time.Time
}

// NewMemoryRevoker returns an empty in-memory revocation list
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time)}
}

// Revoke records a JTI until its expiry
func (m *MemoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = time.Now().Add(ttl)
	return nil
}

// IsRevoked reports whether a JTI is still on the list
func (m *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	until, ok := m.revoked[jti]
	return ok && time.Now().Before(until), nil
}
