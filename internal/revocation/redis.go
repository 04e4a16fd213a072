package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylist stores revoked token IDs as keys that expire with the token itself,
// so the set never grows past the number of live revoked tokens.
type RedisDenylist struct {
	client redis.UniversalClient
	prefix string
	clock  func() time.Time
}

func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return NewRedisDenylistWithPrefix(client, "revoked_jti:")
}

func NewRedisDenylistWithPrefix(client redis.UniversalClient, prefix string) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: prefix, clock: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token id is required")
	}
	ttl := until.Sub(d.clock())
	if ttl <= 0 {
		// Already expired; verification rejects it without a denylist entry.
		return nil
	}
	return d.client.Set(ctx, d.prefix+tokenID, 1, ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
