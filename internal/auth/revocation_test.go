package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	if err := store.Add(ctx, "session-a", time.Minute); err != nil {
		t.Fatalf("add: %v", err)
	}
	revoked, err := store.Contains(ctx, "session-a")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !revoked {
		t.Fatal("session-a should be revoked")
	}

	revoked, err = store.Contains(ctx, "session-b")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if revoked {
		t.Fatal("session-b should not be revoked")
	}
}

func TestMemoryRevocationStoreExpiry(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	if err := store.Add(ctx, "short-lived", 5*time.Millisecond); err != nil {
		t.Fatalf("add: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	revoked, err := store.Contains(ctx, "short-lived")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if revoked {
		t.Fatal("expired entry should have been evicted on read")
	}

	// A non-positive ttl means the session is already expired; nothing to do.
	if err := store.Add(ctx, "already-expired", -time.Second); err != nil {
		t.Fatalf("add: %v", err)
	}
	revoked, _ = store.Contains(ctx, "already-expired")
	if revoked {
		t.Fatal("non-positive ttl should not store an entry")
	}
}

func TestMemoryRevocationStoreConcurrent(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", n)
			if err := store.Add(ctx, id, time.Minute); err != nil {
				t.Errorf("add %s: %v", id, err)
			}
			if _, err := store.Contains(ctx, id); err != nil {
				t.Errorf("contains %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		revoked, err := store.Contains(ctx, fmt.Sprintf("session-%d", i))
		if err != nil {
			t.Fatalf("contains: %v", err)
		}
		if !revoked {
			t.Fatalf("session-%d missing after concurrent adds", i)
		}
	}
}

func TestRedisRevocationStore(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	store := NewRedisRevocationStore(client)
	ctx := context.Background()

	if err := store.Add(ctx, "session-a", time.Minute); err != nil {
		t.Fatalf("add: %v", err)
	}
	revoked, err := store.Contains(ctx, "session-a")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !revoked {
		t.Fatal("session-a should be revoked")
	}

	mini.FastForward(2 * time.Minute)

	revoked, err = store.Contains(ctx, "session-a")
	if err != nil {
		t.Fatalf("contains after expiry: %v", err)
	}
	if revoked {
		t.Fatal("entry should expire with the session")
	}
}
