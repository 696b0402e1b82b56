package progress

import (
	"context"
	"sync"
	"time"

	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// Retention windows. Running scans get a generous window in case a scan
// stalls; terminal snapshots are kept briefly for late pollers.
const (
	runningTTL  = 1 * time.Hour
	terminalTTL = 15 * time.Minute
)

type memoryItem struct {
	snapshot   *domain.ScanProgress
	expiration int64
}

// MemoryStore is a thread-safe in-process ProgressStore. Suitable for
// single-instance deployments; use the Redis store behind a load balancer.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[domain.ScanID]memoryItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[domain.ScanID]memoryItem)}
}

func (s *MemoryStore) Put(_ context.Context, p *domain.ScanProgress) error {
	ttl := runningTTL
	if p.Status.Terminal() {
		ttl = terminalTTL
	}
	snapshot := *p
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ScanID] = memoryItem{
		snapshot:   &snapshot,
		expiration: time.Now().Add(ttl).UnixNano(),
	}
	return nil
}

// Get returns domain.ErrNotFound for unknown and expired ids alike.
func (s *MemoryStore) Get(_ context.Context, id domain.ScanID) (*domain.ScanProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, found := s.items[id]
	if !found || time.Now().UnixNano() > item.expiration {
		return nil, domain.ErrNotFound
	}
	snapshot := *item.snapshot
	return &snapshot, nil
}

// Cleanup removes expired snapshots. Run periodically from a goroutine.
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixNano()
	for id, item := range s.items {
		if now > item.expiration {
			delete(s.items, id)
		}
	}
}
