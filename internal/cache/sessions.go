// Package cache holds the per-session ownership snapshots. A snapshot is
// a derived, session-scoped copy of a user's ledger records; it exists
// only while the session is tracked and must be flushed by the caller
// when the session ends.
package cache

import (
	"sync"
	"time"

	"ggshop-rest-api/internal/model"
)

// sessionEntry is the mutable state of one tracked session. mu is the
// per-session critical section: it serializes snapshot mutation for the
// session but is never held across repository or oracle I/O.
type sessionEntry struct {
	mu sync.Mutex

	outfits       []model.UserOutfit
	outfitsLoaded bool

	items       []model.UserGeneralItem
	itemsLoaded bool

	// activated maps ownership record id to the expiry that was last
	// signaled for it, making activation idempotent per grant.
	activated map[int64]time.Time
}

// SessionCache maps live session ids to their ownership snapshots. Safe
// for concurrent use across sessions; operations on the same session are
// serialized through the entry's critical section. Writes to sessions
// that have been removed are silently dropped, so a session-end remove
// always supersedes a reconciliation that finishes late.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionCache creates an empty session cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{sessions: make(map[string]*sessionEntry)}
}

// Track registers a session. Tracking is idempotent; a fresh entry has no
// snapshots loaded, which is distinct from loaded-but-empty.
func (c *SessionCache) Track(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions[sessionID]; !ok {
		c.sessions[sessionID] = &sessionEntry{activated: make(map[int64]time.Time)}
	}
}

// Tracked reports whether the session is live.
func (c *SessionCache) Tracked(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.sessions[sessionID]
	return ok
}

// entry returns the session's entry, or nil if the session is not tracked.
func (c *SessionCache) entry(sessionID string) *sessionEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[sessionID]
}

// OutfitsSnapshot returns a copy of the session's outfit snapshot. The
// boolean reports whether a snapshot has been installed at all: absent
// (false) means not-yet-loaded, while (empty, true) means the user owns
// nothing.
func (c *SessionCache) OutfitsSnapshot(sessionID string) ([]model.UserOutfit, bool) {
	e := c.entry(sessionID)
	if e == nil {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.outfitsLoaded {
		return nil, false
	}
	return append([]model.UserOutfit(nil), e.outfits...), true
}

// ItemsSnapshot returns a copy of the session's general-item snapshot.
func (c *SessionCache) ItemsSnapshot(sessionID string) ([]model.UserGeneralItem, bool) {
	e := c.entry(sessionID)
	if e == nil {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.itemsLoaded {
		return nil, false
	}
	return append([]model.UserGeneralItem(nil), e.items...), true
}

// SetOutfits replaces the session's outfit snapshot wholesale. Returns
// false without writing if the session is no longer tracked.
func (c *SessionCache) SetOutfits(sessionID string, records []model.UserOutfit) bool {
	e := c.entry(sessionID)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.outfits = append([]model.UserOutfit(nil), records...)
	e.outfitsLoaded = true
	return true
}

// SetItems replaces the session's general-item snapshot wholesale.
// Returns false without writing if the session is no longer tracked.
func (c *SessionCache) SetItems(sessionID string, records []model.UserGeneralItem) bool {
	e := c.entry(sessionID)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append([]model.UserGeneralItem(nil), records...)
	e.itemsLoaded = true
	return true
}

// UpdateOutfit applies fn to the snapshot record at the given 0-based
// position. Returns the updated record and true, or false if the session
// is untracked, the snapshot is not loaded, or the index is out of range.
func (c *SessionCache) UpdateOutfit(sessionID string, index int, fn func(*model.UserOutfit)) (model.UserOutfit, bool) {
	e := c.entry(sessionID)
	if e == nil {
		return model.UserOutfit{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.outfitsLoaded || index < 0 || index >= len(e.outfits) {
		return model.UserOutfit{}, false
	}
	fn(&e.outfits[index])
	return e.outfits[index], true
}

// Remove untracks the session and returns whatever snapshots it held so
// the caller can flush them. The boolean reports whether the session was
// tracked. After Remove, any in-flight Set for the session is a no-op.
func (c *SessionCache) Remove(sessionID string) ([]model.UserOutfit, []model.UserGeneralItem, bool) {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	if !ok {
		return nil, nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outfits, e.items, true
}

// MarkActivated records that an activation signal was emitted for the
// ownership record with the given expiry. Returns true if the signal is
// new (first time, or the expiry moved since the last signal), false if
// the same expiry was already signaled or the session is untracked.
func (c *SessionCache) MarkActivated(sessionID string, recordID int64, expiry time.Time) bool {
	e := c.entry(sessionID)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if last, ok := e.activated[recordID]; ok && last.Equal(expiry) {
		return false
	}
	e.activated[recordID] = expiry
	return true
}

// Len returns the number of tracked sessions.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
