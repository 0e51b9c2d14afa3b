package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"obser.dev/internal/auth"
)

func newTestBlacklist(t *testing.T) (*auth.RedisBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return auth.NewRedisBlacklist(client), mr
}

func TestRedisBlacklist(t *testing.T) {
	bl, _ := newTestBlacklist(t)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("fresh token reported revoked")
	}

	if err := bl.Revoke(ctx, "tok-1", time.Minute); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	revoked, err = bl.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("revoked token not reported revoked")
	}
}

func TestRedisBlacklistEntriesExpire(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	if err := bl.Revoke(ctx, "tok-1", time.Minute); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	revoked, err := bl.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("entry survived past its ttl")
	}
}

func TestRedisBlacklistNonPositiveTTL(t *testing.T) {
	bl, mr := newTestBlacklist(t)
	ctx := context.Background()

	if err := bl.Revoke(ctx, "tok-1", 0); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if mr.Exists("obser:blacklist:tok-1") {
		t.Fatal("expired token was recorded")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !auth.CheckPassword(hash, "correct-horse") {
		t.Fatal("valid password rejected")
	}
	if auth.CheckPassword(hash, "wrong-horse") {
		t.Fatal("wrong password accepted")
	}
	if _, err := auth.HashPassword("short"); err == nil {
		t.Fatal("short password accepted")
	}
}
