package session

import (
	"net"
	"sync"
	"time"
)

// Session accumulates the datagrams of a single client transmission. One
// session exists per client key from the first packet until finalization
// removes it from the registry. All mutable state is guarded by the
// session's own lock; registry membership is guarded separately by the
// Registry, so map operations never contend with payload appends.
type Session struct {
	key       string
	addr      *net.UDPAddr
	createdAt time.Time

	mu           sync.RWMutex
	buf          []byte
	packets      int
	lastPacket   time.Time
	active       bool
	watcherArmed bool
}

// New creates a session for the given client key and return address
func New(key string, addr *net.UDPAddr) *Session {
	now := time.Now()
	return &Session{
		key:        key,
		addr:       addr,
		createdAt:  now,
		lastPacket: now,
		active:     true,
	}
}

// Append adds one datagram payload to the buffer and refreshes the
// last-packet timestamp; the buffer growth, packet count, and timestamp
// update happen atomically as a unit. Appends after finalization has
// claimed the session are ignored. Returns the total buffered byte count.
func (s *Session) Append(payload []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return len(s.buf)
	}

	s.buf = append(s.buf, payload...)
	s.packets++
	s.lastPacket = time.Now()
	return len(s.buf)
}

// TryArmWatcher marks the session as having a silence watcher. Exactly one
// caller observes true and must start exactly one watcher; every other
// caller observes false. This is the exclusivity mechanism that keeps the
// watcher count at one per session no matter how many packets race.
func (s *Session) TryArmWatcher() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcherArmed {
		return false
	}
	s.watcherArmed = true
	return true
}

// DisarmWatcher re-clears the watcher flag when a watcher could not
// actually be started (worker pool rejection), so a later packet can re-arm
func (s *Session) DisarmWatcher() {
	s.mu.Lock()
	s.watcherArmed = false
	s.mu.Unlock()
}

// BeginFinalize atomically claims the session for finalization. The first
// caller gets true and owns the finalization; every later caller gets false
// and must treat the session as already handled.
func (s *Session) BeginFinalize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false
	}
	s.active = false
	return true
}

// Bytes returns the accumulated payload in arrival order. The finalizer is
// the only caller once the session has been claimed, so the underlying
// slice is returned without copying.
func (s *Session) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf
}

// TotalBytes returns the accumulated payload size
func (s *Session) TotalBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

// PacketCount returns how many datagrams have been appended
func (s *Session) PacketCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.packets
}

// LastPacket returns when the most recent datagram arrived
func (s *Session) LastPacket() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPacket
}

// SinceLastPacket returns how long the session has been silent
func (s *Session) SinceLastPacket() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastPacket)
}

// Active reports whether the session has not yet been claimed for finalization
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Key returns the client key the session is registered under
func (s *Session) Key() string {
	return s.key
}

// Addr returns the client's source address for the response datagram
func (s *Session) Addr() *net.UDPAddr {
	return s.addr
}

// CreatedAt returns when the first datagram arrived
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Age returns how long the session has existed
func (s *Session) Age() time.Duration {
	return time.Since(s.createdAt)
}
