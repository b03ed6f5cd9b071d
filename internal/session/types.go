// Package session holds the process-wide registry of paired accounts and
// the connection lifecycle state machine each one runs.
package session

import (
	"sync"
	"time"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
)

// Status is the connection lifecycle state of a session.
type Status string

const (
	StatusStarting        Status = "starting"
	StatusAwaitingPairing Status = "qr"
	StatusConnected       Status = "connected"
	StatusDisconnected    Status = "disconnected"
	StatusLoggedOut       Status = "logged_out"
)

// ChatMeta tracks per-chat dedup state. In-memory only; it does not survive
// a process restart and is never explicitly destroyed.
type ChatMeta struct {
	LastInboundText    string
	LastOutboundText   string
	LastOutboundAt     time.Time
	HasReceivedWelcome bool
}

// Session is one paired account: its lifecycle status, pairing challenge,
// owned settings record and per-chat metadata.
//
// All mutable fields are guarded by Mu. whatsmeow delivers events from its
// own goroutines, so the cooperative single-writer discipline of the
// reference system becomes a per-session mutex here: take Mu, mutate, release
// before any network call.
type Session struct {
	ID string

	Mu          sync.Mutex
	Status      Status
	PairingCode string // present only while awaiting pairing
	Settings    *settings.Settings
	Chats       map[string]*ChatMeta
}

// Chat returns the metadata for a chat, creating it lazily.
// Caller must hold Mu.
func (s *Session) Chat(chatID string) *ChatMeta {
	meta, ok := s.Chats[chatID]
	if !ok {
		meta = &ChatMeta{}
		s.Chats[chatID] = meta
	}
	return meta
}

// Snapshot returns the status and pairing code under the lock.
func (s *Session) Snapshot() (Status, string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Status, s.PairingCode
}

// SetStatus updates the lifecycle status under the lock.
func (s *Session) SetStatus(st Status) {
	s.Mu.Lock()
	s.Status = st
	s.Mu.Unlock()
}
