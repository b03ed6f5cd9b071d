// Package wa owns the WhatsApp connections: one client per registered
// session, pairing, reconnects and outbound delivery.
package wa

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/admin"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/config"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/dispatch"
	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConnected    = errors.New("session not connected")
)

const defaultReconnectDelay = 2 * time.Second

// Manager starts and stops per-session clients and is the send surface the
// control plane talks to.
type Manager struct {
	cfg        *config.Config
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
	admin      *admin.Router

	reconnectDelay time.Duration

	mu      sync.Mutex
	clients map[string]*Client
}

func NewManager(cfg *config.Config, reg *session.Registry, disp *dispatch.Dispatcher, adminRouter *admin.Router) *Manager {
	return &Manager{
		cfg:            cfg,
		registry:       reg,
		dispatcher:     disp,
		admin:          adminRouter,
		reconnectDelay: defaultReconnectDelay,
		clients:        make(map[string]*Client),
	}
}

// StartSession registers the session and brings up its connection. Idempotent:
// starting a live session returns it untouched.
func (m *Manager) StartSession(id string) (*session.Session, error) {
	sess, created := m.registry.Create(id)

	m.mu.Lock()
	if _, ok := m.clients[id]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	c, err := newClient(m, sess)
	if err != nil {
		if created {
			m.registry.Remove(id)
		}
		return nil, err
	}

	m.mu.Lock()
	if _, ok := m.clients[id]; ok {
		// Lost the race to another starter.
		m.mu.Unlock()
		c.cancel()
		c.db.Close()
		return sess, nil
	}
	m.clients[id] = c
	m.mu.Unlock()

	L_info("wa: starting session", "session", id)
	go c.connect()
	return sess, nil
}

// RestoreSessions starts every session that has a directory on disk, so a
// restart brings paired accounts back without operator action.
func (m *Manager) RestoreSessions() {
	entries, err := os.ReadDir(m.cfg.SessionsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			L_warn("wa: sessions dir scan failed", "error", err)
		}
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := m.StartSession(e.Name()); err != nil {
			L_error("wa: restore failed", "session", e.Name(), "error", err)
		}
	}
}

func (m *Manager) client(id string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[id]
}

// Connected reports whether the session's socket is up.
func (m *Manager) Connected(id string) bool {
	c := m.client(id)
	return c != nil && c.wa.IsConnected()
}

// SendText delivers a text message on behalf of the control plane.
func (m *Manager) SendText(ctx context.Context, id, to, text string) error {
	c := m.client(id)
	if c == nil {
		return ErrSessionNotFound
	}
	if !c.wa.IsConnected() {
		return ErrNotConnected
	}
	return c.SendText(ctx, to, text)
}

// SendContact delivers a contact card on behalf of the control plane.
func (m *Manager) SendContact(ctx context.Context, id, to, displayName, vcard string) error {
	c := m.client(id)
	if c == nil {
		return ErrSessionNotFound
	}
	if !c.wa.IsConnected() {
		return ErrNotConnected
	}
	return c.SendContact(ctx, to, displayName, vcard)
}

// SendMedia fetches the media at spec.URL and delivers it.
func (m *Manager) SendMedia(ctx context.Context, id string, spec MediaSpec) error {
	c := m.client(id)
	if c == nil {
		return ErrSessionNotFound
	}
	if !c.wa.IsConnected() {
		return ErrNotConnected
	}
	return c.SendMediaURL(ctx, spec)
}

// ResetSession unlinks the device, erases its durable state and drops the
// session entirely. A later start with the same id pairs from scratch.
func (m *Manager) ResetSession(id string) error {
	sess := m.registry.Get(id)

	m.mu.Lock()
	c := m.clients[id]
	delete(m.clients, id)
	m.mu.Unlock()

	if sess == nil && c == nil {
		return ErrSessionNotFound
	}

	if c != nil {
		if c.wa.IsConnected() {
			c.logout()
		}
		c.disconnect()
	}

	m.dispatcher.DropSession(id)
	m.registry.Remove(id)

	dir := filepath.Join(m.cfg.SessionsDir, id)
	if err := os.RemoveAll(dir); err != nil {
		L_warn("wa: session dir removal failed", "session", id, "error", err)
	}

	L_info("wa: session reset", "session", id)
	return nil
}

// Shutdown disconnects every client. Sessions stay on disk for the next boot.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.disconnect()
	}
}
