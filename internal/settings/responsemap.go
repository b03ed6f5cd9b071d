package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ReplyList is one or many reply strings. JSON accepts either a bare string
// or an array of strings; it always marshals as an array.
type ReplyList []string

// UnmarshalJSON accepts "reply" or ["a", "b"].
func (r *ReplyList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = ReplyList{s}
		return nil
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("reply value must be a string or array of strings: %w", err)
	}
	*r = ReplyList(list)
	return nil
}

// Entry is one trigger key and its candidate replies.
type Entry struct {
	Key     string
	Replies ReplyList
}

// ResponseMap is a key -> replies mapping that preserves JSON document
// order. Matching in substring and overlap modes is order-sensitive (first
// key wins), so a plain Go map would not do.
type ResponseMap struct {
	entries []Entry
	index   map[string]int
}

// Len returns the number of entries.
func (m *ResponseMap) Len() int { return len(m.entries) }

// Entries returns the entries in insertion order.
func (m *ResponseMap) Entries() []Entry { return m.entries }

// Keys returns the keys in insertion order.
func (m *ResponseMap) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the replies for a key.
func (m *ResponseMap) Get(key string) (ReplyList, bool) {
	if m.index == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].Replies, true
}

// Set adds or replaces a key, keeping its original position on replace.
func (m *ResponseMap) Set(key string, replies ReplyList) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Replies = replies
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Replies: replies})
}

// MarshalJSON writes an ordered JSON object.
func (m ResponseMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Replies)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order via the token
// stream; the stdlib map decode would lose it.
func (m *ResponseMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("localResponses must be a JSON object")
	}

	m.entries = nil
	m.index = make(map[string]int)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in localResponses", keyTok)
		}

		var replies ReplyList
		if err := dec.Decode(&replies); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		m.Set(key, replies)
	}

	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
