package bridge

import (
	"sync"
	"time"
)

// Clock abstracts time so acquisition and de-duplication can be tested
// deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return realClock{} }

// Handle is the result of acquiring the host: either Available with the
// host's capabilities, or Unavailable.
type Handle struct {
	caps Capabilities
	ok   bool
}

// Unavailable is the Handle returned when no host is attached.
func Unavailable() Handle { return Handle{} }

// AvailableHandle wraps a resolved capability set.
func AvailableHandle(c Capabilities) Handle { return Handle{caps: c, ok: true} }

// OK reports whether a host was attached when the handle was resolved.
func (h Handle) OK() bool { return h.ok }

// Capabilities returns the host capabilities. The zero set is returned for
// an unavailable handle.
func (h Handle) Capabilities() Capabilities { return h.caps }

// Slot holds the currently attached host. Hosts attach asynchronously, after
// screens may already be waiting for them.
type Slot struct {
	mu    sync.Mutex
	caps  Capabilities
	gen   uint64
	ok    bool
	ready chan struct{}
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{ready: make(chan struct{})}
}

// Attach installs a host and wakes every waiter. It returns a generation
// number that DetachIf uses to ignore stale detaches.
func (s *Slot) Attach(c Capabilities) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = c
	s.gen++
	if !s.ok {
		s.ok = true
		close(s.ready)
	}
	return s.gen
}

// AttachHost negotiates host's capabilities and attaches them.
func (s *Slot) AttachHost(host any) uint64 {
	return s.Attach(Negotiate(host))
}

// Detach removes the attached host, if any.
func (s *Slot) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
}

// DetachIf removes the host only if it is still the one attached at gen.
func (s *Slot) DetachIf(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.detachLocked()
	}
}

func (s *Slot) detachLocked() {
	if !s.ok {
		return
	}
	s.caps = Capabilities{}
	s.ok = false
	s.ready = make(chan struct{})
}

// Current returns the host attached right now without waiting.
func (s *Slot) Current() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok {
		return Unavailable()
	}
	return AvailableHandle(s.caps)
}

// readyChan returns a channel closed once a host is attached.
func (s *Slot) readyChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}
