package auth

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is an expiring set of revoked session ids. Entries
// self-evict at the session's original expiry so the set stays bounded.
type RevocationStore interface {
	Add(ctx context.Context, id string, ttl time.Duration) error
	Contains(ctx context.Context, id string) (bool, error)
}

const revocationKeyPrefix = "revoked_session:"

type redisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore backs the revocation set with Redis, sharing the
// set across instances. Expiry is delegated to Redis key TTLs.
func NewRedisRevocationStore(client *redis.Client) RevocationStore {
	return &redisRevocationStore{client: client}
}

func (s *redisRevocationStore) Add(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revocationKeyPrefix+id, "1", ttl).Err()
}

func (s *redisRevocationStore) Contains(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const revocationShards = 8

type revocationShard struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

type memoryRevocationStore struct {
	shards [revocationShards]*revocationShard
	done   chan struct{}
	once   sync.Once
}

// NewMemoryRevocationStore keeps the revocation set in process memory,
// sharded for concurrent access, with a sweeper goroutine evicting expired
// entries. Suitable for single-instance deployments and tests.
func NewMemoryRevocationStore(sweepInterval time.Duration) *MemoryRevocationStore {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	store := &memoryRevocationStore{done: make(chan struct{})}
	for i := range store.shards {
		store.shards[i] = &revocationShard{entries: make(map[string]time.Time)}
	}
	go store.sweep(sweepInterval)
	return &MemoryRevocationStore{inner: store}
}

// MemoryRevocationStore wraps the sharded store with a Stop for shutdown.
type MemoryRevocationStore struct {
	inner *memoryRevocationStore
}

func (s *MemoryRevocationStore) Add(ctx context.Context, id string, ttl time.Duration) error {
	return s.inner.add(id, ttl)
}

func (s *MemoryRevocationStore) Contains(ctx context.Context, id string) (bool, error) {
	return s.inner.contains(id), nil
}

// Stop terminates the sweeper goroutine. Idempotent.
func (s *MemoryRevocationStore) Stop() {
	s.inner.once.Do(func() { close(s.inner.done) })
}

func (s *memoryRevocationStore) shardFor(id string) *revocationShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%revocationShards]
}

func (s *memoryRevocationStore) add(id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	shard := s.shardFor(id)
	shard.mu.Lock()
	shard.entries[id] = time.Now().Add(ttl)
	shard.mu.Unlock()
	return nil
}

func (s *memoryRevocationStore) contains(id string) bool {
	shard := s.shardFor(id)
	shard.mu.RLock()
	expiry, ok := shard.entries[id]
	shard.mu.RUnlock()
	if !ok {
		return false
	}
	// Lazy eviction on read keeps revoked-then-expired ids from lingering
	// between sweeps.
	if time.Now().After(expiry) {
		shard.mu.Lock()
		delete(shard.entries, id)
		shard.mu.Unlock()
		return false
	}
	return true
}

func (s *memoryRevocationStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			for _, shard := range s.shards {
				shard.mu.Lock()
				for id, expiry := range shard.entries {
					if now.After(expiry) {
						delete(shard.entries, id)
					}
				}
				shard.mu.Unlock()
			}
		}
	}
}
