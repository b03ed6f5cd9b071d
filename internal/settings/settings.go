// Package settings holds the per-session durable configuration record and
// its store. A record is always fully populated: partial persisted data is
// overlaid onto defaults on load.
package settings

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPrompt is the system prompt used when a session has not set its own.
const DefaultPrompt = `Bienvenida e Información General
Eres un asistente de la app Consulta PE. Puedo ayudarte a consultar DNI, RUC, SOAT, multas, y también conversar de películas o juegos.
Soy servicial, creativo, inteligente y muy amigable. Siempre tendrás una respuesta.`

// DefaultWelcome is sent once per chat on first contact.
const DefaultWelcome = "¡Hola! Soy tu asistente Consulta PE."

// MatchMode selects the local matcher strategy.
type MatchMode string

const (
	MatchExact   MatchMode = "exact"   // lowercased trimmed equality
	MatchPattern MatchMode = "pattern" // case-insensitive substring
	MatchExpert  MatchMode = "expert"  // regex keys, then token overlap
)

// Valid reports whether the mode is one of the known strategies.
func (m MatchMode) Valid() bool {
	switch m {
	case MatchExact, MatchPattern, MatchExpert:
		return true
	}
	return false
}

// Settings is the durable per-session configuration record.
// JSON field names match the on-disk settings.json layout.
type Settings struct {
	Prompt          string            `json:"prompt"`
	PromptByBackend map[string]string `json:"promptByBackend,omitempty"`
	LocalResponses  ResponseMap       `json:"localResponses"`
	MatchMode       MatchMode         `json:"matchMode"`
	WelcomeMessage  string            `json:"welcomeMessage"`
	LocalEnabled    bool              `json:"localEnabled"`
	SourceIndicator bool              `json:"sourceIndicator"`
	CooldownSeconds int               `json:"cooldownSeconds"`

	compiled []CompiledResponse
}

// Defaults returns a fully populated record with the stock values.
func Defaults() *Settings {
	s := &Settings{
		Prompt:          DefaultPrompt,
		MatchMode:       MatchExact,
		WelcomeMessage:  DefaultWelcome,
		LocalEnabled:    true,
		SourceIndicator: false,
		CooldownSeconds: 10,
	}
	s.LocalResponses.Set("hola", []string{"¡Hola! ¿Cómo estás?"})
	s.LocalResponses.Set("ayuda", []string{"Dime qué necesitas"})
	if err := s.Compile(); err != nil {
		// Stock keys are literals, this cannot fail
		panic(err)
	}
	return s
}

// PromptFor returns the prompt to use for a given backend, preferring a
// backend-specific override over the shared prompt.
func (s *Settings) PromptFor(backend string) string {
	if p, ok := s.PromptByBackend[backend]; ok && p != "" {
		return p
	}
	if s.Prompt != "" {
		return s.Prompt
	}
	return DefaultPrompt
}

// CompiledResponse is a local-response key parsed once at load time into a
// tagged variant: a compiled regex for "/pattern/flags" keys, a plain
// literal otherwise. Tokens are kept for both so overlap scoring can
// consider every key.
type CompiledResponse struct {
	Key     string
	Pattern *regexp.Regexp // non-nil for pattern keys
	Tokens  []string       // lowercased word tokens of the raw key
	Replies []string
}

// Compile parses every local-response key and caches the result on the
// record. Invalid pattern keys are reported, not swallowed.
func (s *Settings) Compile() error {
	compiled := make([]CompiledResponse, 0, s.LocalResponses.Len())
	for _, e := range s.LocalResponses.Entries() {
		cr := CompiledResponse{Key: e.Key, Replies: e.Replies, Tokens: Tokenize(e.Key)}
		if isPatternKey(e.Key) {
			re, err := compilePatternKey(e.Key)
			if err != nil {
				return fmt.Errorf("invalid pattern key %q: %w", e.Key, err)
			}
			cr.Pattern = re
		}
		compiled = append(compiled, cr)
	}
	s.compiled = compiled
	return nil
}

// Compiled returns the parsed local responses in insertion order.
func (s *Settings) Compiled() []CompiledResponse {
	return s.compiled
}

// isPatternKey reports whether a key is written as a delimited pattern
// expression like "/hola|buenos/i".
func isPatternKey(key string) bool {
	return strings.HasPrefix(key, "/") && strings.LastIndex(key, "/") > 0
}

// compilePatternKey compiles "/body/flags" into a Go regexp. The supported
// flags are i, m and s; no flags means case-insensitive, matching the
// historical behavior of persisted records.
func compilePatternKey(key string) (*regexp.Regexp, error) {
	last := strings.LastIndex(key, "/")
	body := key[1:last]
	flags := key[last+1:]
	if flags == "" {
		flags = "i"
	}

	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			prefix.WriteString("(?i)")
		case 'm':
			prefix.WriteString("(?m)")
		case 's':
			prefix.WriteString("(?s)")
		case 'g', 'u':
			// match-all / unicode flags have no Go equivalent and no effect here
		default:
			return nil, fmt.Errorf("unsupported flag %q", string(f))
		}
	}

	return regexp.Compile(prefix.String() + body)
}

var tokenSplit = regexp.MustCompile(`\W+`)

// Tokenize lowercases text and splits it into word tokens.
func Tokenize(text string) []string {
	parts := tokenSplit.Split(strings.ToLower(text), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
