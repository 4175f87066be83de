package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Blacklist records access tokens that were revoked before their natural
// expiry. Entries only need to outlive the token they describe.
type Blacklist interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (b *MemoryBlacklist) Add(_ context.Context, token string, expiresAt time.Time) error {
	digest := tokenDigest(token)

	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.entries[digest]; ok && current.After(expiresAt) {
		return nil
	}
	b.entries[digest] = expiresAt
	return nil
}

// Contains keeps reporting an entry until Sweep evicts it, so a revoked
// token is rejected even if the sweeper is late.
func (b *MemoryBlacklist) Contains(_ context.Context, token string) (bool, error) {
	digest := tokenDigest(token)

	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[digest]
	return ok, nil
}

// Sweep drops entries whose token has expired and returns how many went.
func (b *MemoryBlacklist) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for digest, expiresAt := range b.entries {
		if !now.Before(expiresAt) {
			delete(b.entries, digest)
			removed++
		}
	}
	return removed
}

func (b *MemoryBlacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
