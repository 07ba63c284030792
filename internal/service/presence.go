package service

import (
	"sync"

	"ggshop-rest-api/internal/model"
)

// presence maps live session ids to the player identity behind them.
// It is the service's view of the session/presence layer: registered on
// join, dropped on leave.
type presence struct {
	mu       sync.RWMutex
	sessions map[string]model.User
}

func newPresence() *presence {
	return &presence{sessions: make(map[string]model.User)}
}

func (p *presence) register(sessionID string, user model.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sessionID] = user
}

func (p *presence) lookup(sessionID string) (model.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.sessions[sessionID]
	return user, ok
}

// update applies fn to the session's user in place.
func (p *presence) update(sessionID string, fn func(*model.User)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.sessions[sessionID]
	if !ok {
		return false
	}
	fn(&user)
	p.sessions[sessionID] = user
	return true
}

func (p *presence) drop(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, sessionID)
}
