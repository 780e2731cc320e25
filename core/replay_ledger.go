package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultReplayLedgerTTL = 5 * time.Minute

// MemoryReplayLedger tracks claimed idempotency keys for a window. Queue
// consumers claim a job's key before acting; a rejected claim marks a
// duplicate delivery that should be dropped. Expired claims are pruned
// lazily on each Claim, so the map stays bounded by the claim rate times
// the TTL.
type MemoryReplayLedger struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	claims     map[string]time.Time
	Now        func() time.Time
}

func NewMemoryReplayLedger(defaultTTL time.Duration) *MemoryReplayLedger {
	if defaultTTL <= 0 {
		defaultTTL = defaultReplayLedgerTTL
	}
	return &MemoryReplayLedger{
		defaultTTL: defaultTTL,
		claims:     map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryReplayLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("core: replay ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("core: replay key is required")
	}
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for claimed, expiresAt := range l.claims {
		if !now.Before(expiresAt) {
			delete(l.claims, claimed)
		}
	}
	if expiresAt, held := l.claims[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	l.claims[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryReplayLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

var _ ReplayLedger = (*MemoryReplayLedger)(nil)
