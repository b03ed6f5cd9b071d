package session

import (
	"sync"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
)

// Registry is the process-wide map of live sessions. It is an explicit
// object with a documented create/get/remove lifecycle, injected into the
// components that need it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    *settings.Store
}

// NewRegistry creates an empty registry backed by the given settings store.
func NewRegistry(store *settings.Store) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    store,
	}
}

// Create returns the session for id, creating it if absent. Idempotent: a
// second call with the same id returns the existing session untouched, never
// a re-initialized one.
func (r *Registry) Create(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, false
	}

	s := &Session{
		ID:       id,
		Status:   StatusStarting,
		Settings: r.store.Load(id),
		Chats:    make(map[string]*ChatMeta),
	}
	r.sessions[id] = s
	return s, true
}

// Get returns the session for id, or nil if unknown.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove drops the session from the map. Detaching the connection and
// erasing durable state is the lifecycle manager's job; the registry only
// owns the map.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// IDs returns the ids of all live sessions.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
