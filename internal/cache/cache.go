// Package cache provides an in-memory report cache with TTL and LRU
// eviction. Computed statements, dashboards and forecasts are cached per
// batch and view; entries for a batch are invalidated together when its
// overrides change.
package cache

import "time"

// Cache is the read/write surface used by the report service.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)

	// DeletePrefix removes every key starting with prefix and returns
	// the number of removed entries.
	DeletePrefix(prefix string) int

	Size() int
}

// Cleaner is implemented by caches that support expiry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs a periodic expiry sweep over registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, cache := range m.caches {
				cache.CleanExpired()
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine.
func (m *Manager) Stop() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}

// Key builds a cache key namespaced by batch, so a whole batch can be
// invalidated with DeletePrefix(BatchPrefix(batchID)).
func Key(batchID, view string) string {
	return batchID + "/" + view
}

// BatchPrefix returns the key prefix shared by every view of a batch.
func BatchPrefix(batchID string) string {
	return batchID + "/"
}
