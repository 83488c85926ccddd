package app

import (
	"sort"
	"sync"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/metrics"
)

// Connection 一條即時連線, 寫入不可阻塞
type Connection interface {
	// Send enqueue a frame, false when the frame was dropped
	Send(resp domain.WSResponse) bool
	Close()
}

// PresenceRegistry userID -> live connection, last connect wins
type PresenceRegistry struct {
	mu    sync.RWMutex
	conns map[string]Connection
}

// NewPresenceRegistry create PresenceRegistry
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{conns: make(map[string]Connection)}
}

// Connect register conn for userID and return the handle it replaced, if any
func (p *PresenceRegistry) Connect(userID string, conn Connection) Connection {
	p.mu.Lock()
	prev := p.conns[userID]
	p.conns[userID] = conn
	n := len(p.conns)
	p.mu.Unlock()

	metrics.OnlineUsers.Set(float64(n))
	return prev
}

// Disconnect remove userID only when conn is still the current handle.
// A socket replaced by a reconnect must not evict the newer one.
func (p *PresenceRegistry) Disconnect(userID string, conn Connection) bool {
	p.mu.Lock()
	cur, ok := p.conns[userID]
	if !ok || cur != conn {
		p.mu.Unlock()
		return false
	}
	delete(p.conns, userID)
	n := len(p.conns)
	p.mu.Unlock()

	metrics.OnlineUsers.Set(float64(n))
	return true
}

// Lookup current connection of userID
func (p *PresenceRegistry) Lookup(userID string) (Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[userID]
	return c, ok
}

// IsOnline userID has a live connection
func (p *PresenceRegistry) IsOnline(userID string) bool {
	_, ok := p.Lookup(userID)
	return ok
}

// OnlineUsers sorted snapshot of connected user ids
func (p *PresenceRegistry) OnlineUsers() []string {
	p.mu.RLock()
	out := make([]string, 0, len(p.conns))
	for id := range p.conns {
		out = append(out, id)
	}
	p.mu.RUnlock()

	sort.Strings(out)
	return out
}

// snapshot connections for broadcast without holding the lock while writing
func (p *PresenceRegistry) snapshot() map[string]Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]Connection, len(p.conns))
	for id, c := range p.conns {
		out[id] = c
	}
	return out
}

// Close 關閉所有連線並清空 (shutdown)
func (p *PresenceRegistry) Close() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]Connection)
	p.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	metrics.OnlineUsers.Set(0)
}
