package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/soloviov/accounthub/internal/auth"
)

func newTestDenylist(t *testing.T) *auth.Denylist {
	t.Helper()

	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = rdb.Close() })

	return auth.NewDenylist(rdb)
}

func TestDenylistRevoke(t *testing.T) {
	d := newTestDenylist(t)
	ctx := context.Background()

	revoked, err := d.IsRevoked(ctx, "jti-1")

	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}

	if revoked {
		t.Fatal("unknown jti should not be revoked")
	}

	err = d.Revoke(ctx, "jti-1", time.Minute)

	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err = d.IsRevoked(ctx, "jti-1")

	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}

	if !revoked {
		t.Fatal("revoked jti should be reported as revoked")
	}
}

func TestDenylistSkipsExpiredTokens(t *testing.T) {
	d := newTestDenylist(t)
	ctx := context.Background()

	// a ttl <= 0 means the token already expired on its own
	err := d.Revoke(ctx, "jti-2", 0)

	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err := d.IsRevoked(ctx, "jti-2")

	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}

	if revoked {
		t.Fatal("expired token should not occupy a denylist entry")
	}
}
