package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist records revoked access token ids until the tokens would have
// expired on their own.
// Key format: revoked:<jti>
type TokenDenylist struct {
	client *redis.Client
}

// NewTokenDenylist creates a TokenDenylist wrapping the given Redis client.
func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client}
}

// Revoke denylists tokenID for ttl. Non-positive ttls are ignored.
func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is currently denylisted.
func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check: %w", err)
	}
	return n > 0, nil
}

func (d *TokenDenylist) key(tokenID string) string {
	return "revoked:" + tokenID
}
