package bridge

import (
	"strings"
	"sync"
	"time"
)

// DefaultDedupWindow is how long a two-argument signup notification
// suppresses a single-argument one for the same email.
const DefaultDedupWindow = time.Second

// Correlator remembers recent two-argument signup notifications keyed by
// normalized email. It is a best-effort timing heuristic: entries expire
// after the window and nothing is persisted.
type Correlator struct {
	mu     sync.Mutex
	window time.Duration
	clock  Clock
	seen   map[string]time.Time
}

// NewCorrelator returns a correlator with the given window.
func NewCorrelator(window time.Duration, clock Clock) *Correlator {
	if clock == nil {
		clock = SystemClock()
	}
	return &Correlator{
		window: window,
		clock:  clock,
		seen:   make(map[string]time.Time),
	}
}

// Record notes that a signup notification for email was delivered now.
func (c *Correlator) Record(email string) {
	key := normalizeEmail(email)
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = c.clock.Now()
}

// Recent reports whether email was recorded less than one window ago.
func (c *Correlator) Recent(email string) bool {
	key := normalizeEmail(email)
	if key == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for k, at := range c.seen {
		if now.Sub(at) >= c.window {
			delete(c.seen, k)
		}
	}
	_, ok := c.seen[key]
	return ok
}

// Len returns the number of live entries.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
