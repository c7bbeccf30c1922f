package dispatch

import (
	"sync"
	"time"
)

// recencySet is a bounded best-effort set of recently seen keys. Entries
// expire after the TTL; when the set grows past its cap, the oldest entries
// are evicted first. It is safe for concurrent use.
type recencySet struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]time.Time

	now func() time.Time
}

func newRecencySet(ttl time.Duration, maxEntries int) *recencySet {
	return &recencySet{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]time.Time),
		now:        time.Now,
	}
}

// Seen reports whether key is inside the recency window, marking it seen
// either way.
func (s *recencySet) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	at, ok := s.entries[key]
	if ok && now.Sub(at) < s.ttl {
		return true
	}

	s.entries[key] = now
	if len(s.entries) > s.maxEntries {
		s.evict(now)
	}
	return false
}

// evict removes expired entries, then the oldest live ones until within cap.
func (s *recencySet) evict(now time.Time) {
	for k, at := range s.entries {
		if now.Sub(at) >= s.ttl {
			delete(s.entries, k)
		}
	}
	for len(s.entries) > s.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, at := range s.entries {
			if oldestKey == "" || at.Before(oldestAt) {
				oldestKey = k
				oldestAt = at
			}
		}
		delete(s.entries, oldestKey)
	}
}
