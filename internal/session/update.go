package session

import (
	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
)

// UpdateSettings validates a patch, applies it to a copy of the session's
// record and swaps the pointer under the session lock, so pipeline reads
// never observe a half-applied record. The new record is persisted
// best-effort: a failed write is logged and the in-memory record stays
// authoritative.
func (r *Registry) UpdateSettings(s *Session, p *settings.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.Mu.Lock()
	updated := *s.Settings
	s.Mu.Unlock()

	if err := p.Apply(&updated); err != nil {
		return err
	}

	s.Mu.Lock()
	s.Settings = &updated
	s.Mu.Unlock()

	if err := r.store.Save(s.ID, &updated); err != nil {
		L_warn("session: settings write failed, in-memory state remains authoritative",
			"session", s.ID, "error", err)
	}
	return nil
}
