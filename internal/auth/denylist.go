package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "revoked:"

// Denylist tracks revoked token ids in redis. Entries expire together with
// the token itself, so the set never needs manual cleanup.
type Denylist struct {
	redisdb *redis.Client
}

func NewDenylist(redisdb *redis.Client) *Denylist {
	return &Denylist{redisdb: redisdb}
}

func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// token already expired, nothing to deny
		return nil
	}

	return d.redisdb.Set(ctx, denylistPrefix+jti, "1", ttl).Err()
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.redisdb.Exists(ctx, denylistPrefix+jti).Result()

	if err != nil {
		return false, err
	}

	return n > 0, nil
}
