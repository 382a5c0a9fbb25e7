package store

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"techsupport-web/internal/admin"
	"techsupport-web/internal/chat"
	"techsupport-web/internal/metrics"
)

// Visitor is the transient client state of one browser.
type Visitor struct {
	ID    string
	Chat  *chat.Controller
	Admin *admin.Screen

	lastSeen time.Time
}

// NewVisitorFunc builds the state for a visitor seen for the first time.
type NewVisitorFunc func(id string) *Visitor

// MemoryStore keeps visitors in memory only; nothing survives a restart.
type MemoryStore struct {
	mu         sync.Mutex
	visitors   map[string]*Visitor
	newVisitor NewVisitorFunc
	idleTTL    time.Duration
	now        func() time.Time
}

func NewMemoryStore(idleTTL time.Duration, newVisitor NewVisitorFunc) *MemoryStore {
	return &MemoryStore{
		visitors:   make(map[string]*Visitor),
		newVisitor: newVisitor,
		idleTTL:    idleTTL,
		now:        time.Now,
	}
}

// GetOrCreate returns the visitor for id, creating it if needed, and marks
// it as seen.
func (m *MemoryStore) GetOrCreate(id string) *Visitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visitors[id]
	if !ok {
		v = m.newVisitor(id)
		v.ID = id
		m.visitors[id] = v
		metrics.VisitorSessions.Set(float64(len(m.visitors)))
	}
	v.lastSeen = m.now()
	return v
}

func (m *MemoryStore) Get(id string) (*Visitor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visitors[id]
	return v, ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

// Sweep drops visitors idle for longer than the TTL. An open chat is ended
// so that a reply still in flight is discarded.
func (m *MemoryStore) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	cutoff := m.now().Add(-m.idleTTL)
	var idle []*Visitor
	for id, v := range m.visitors {
		if v.lastSeen.Before(cutoff) {
			idle = append(idle, v)
			delete(m.visitors, id)
		}
	}
	metrics.VisitorSessions.Set(float64(len(m.visitors)))
	m.mu.Unlock()

	for _, v := range idle {
		v.Chat.End(true)
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.WithField("count", n).Info("evicted idle visitors")
			}
		case <-ctx.Done():
			return
		}
	}
}
