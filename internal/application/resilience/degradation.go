package resilience

import (
	"sync"
	"time"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
)

// DegradationManager is a bounded in-memory table of recent retry
// exhaustions keyed by (operation, wallet). When a key has exhausted its
// budget repeatedly within the window, further commands on that key are
// fast-failed instead of burning retries against a contended or broken row.
type DegradationManager struct {
	mu         sync.Mutex
	entries    map[string]*degradedEntry
	window     time.Duration
	threshold  int
	maxEntries int
	now        func() time.Time
}

type degradedEntry struct {
	kind     domainErrors.Kind
	failures []time.Time
	lastSeen time.Time
}

// NewDegradationManager creates a manager. threshold is the number of
// exhaustions inside window that trips fast-fail; maxEntries bounds memory.
func NewDegradationManager(window time.Duration, threshold, maxEntries int) *DegradationManager {
	return &DegradationManager{
		entries:    make(map[string]*degradedEntry),
		window:     window,
		threshold:  threshold,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Allow reports whether a command on (operation, key) should run. When it
// returns false, kind is the kind of the exhaustions that tripped it.
func (m *DegradationManager) Allow(operation, key string) (bool, domainErrors.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[operation+"/"+key]
	if !ok {
		return true, ""
	}

	e.failures = pruneOlder(e.failures, m.now().Add(-m.window))
	if len(e.failures) == 0 {
		delete(m.entries, operation+"/"+key)
		return true, ""
	}

	if len(e.failures) >= m.threshold {
		return false, e.kind
	}
	return true, ""
}

// Record notes one retry exhaustion for (operation, key).
func (m *DegradationManager) Record(operation, key string, kind domainErrors.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := operation + "/" + key
	now := m.now()

	e, ok := m.entries[id]
	if !ok {
		if len(m.entries) >= m.maxEntries {
			m.evictOldest()
		}
		e = &degradedEntry{}
		m.entries[id] = e
	}

	e.kind = kind
	e.lastSeen = now
	e.failures = append(pruneOlder(e.failures, now.Add(-m.window)), now)
}

// evictOldest drops the least recently touched entry. Caller holds the lock.
func (m *DegradationManager) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.entries {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey = k
			oldest = e.lastSeen
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

func pruneOlder(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
