package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/config"
	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
)

const settingsFile = "settings.json"

// Store persists one settings record per session under the sessions base
// directory. Durability is best-effort: a failed write is reported but the
// in-memory record stays authoritative.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Path returns the on-disk location of a session's record.
func (st *Store) Path(sessionID string) string {
	return filepath.Join(st.baseDir, sessionID, settingsFile)
}

// Load reads the session's record, overlaying any persisted fields onto
// defaults. A missing or unreadable record yields pure defaults.
func (st *Store) Load(sessionID string) *Settings {
	s := Defaults()

	data, err := os.ReadFile(st.Path(sessionID))
	if err != nil {
		if !os.IsNotExist(err) {
			L_warn("settings: read failed, using defaults", "session", sessionID, "error", err)
		}
		return s
	}

	if err := json.Unmarshal(data, s); err != nil {
		L_warn("settings: corrupt record, using defaults", "session", sessionID, "error", err)
		return Defaults()
	}

	if err := s.Compile(); err != nil {
		L_warn("settings: bad pattern in persisted record, using defaults", "session", sessionID, "error", err)
		return Defaults()
	}

	return s
}

// Save writes the record atomically.
func (st *Store) Save(sessionID string, s *Settings) error {
	return config.AtomicWriteJSON(st.Path(sessionID), s, 0600)
}
