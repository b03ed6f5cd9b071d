// Package resolver turns inbound text into an outbound reply: local
// matching first, then the generation-backend fallback chain, then a fixed
// apology.
package resolver

import (
	"math/rand"
	"strings"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
)

// overlapThreshold is the minimum token-overlap score for an expert-mode
// match.
const overlapThreshold = 0.3

// Matcher runs the local-response matching strategies. The randomness
// source is injected so tests can pin reply selection.
type Matcher struct {
	rand *rand.Rand
}

// NewMatcher creates a matcher with the given randomness source.
func NewMatcher(src rand.Source) *Matcher {
	return &Matcher{rand: rand.New(src)}
}

// Match looks up a local reply for text under the settings' match mode.
// When a key maps to several replies, one is chosen uniformly at random.
func (m *Matcher) Match(text string, s *settings.Settings) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}

	switch s.MatchMode {
	case settings.MatchExact:
		return m.matchExact(trimmed, s.Compiled())
	case settings.MatchPattern:
		return m.matchSubstring(trimmed, s.Compiled())
	case settings.MatchExpert:
		return m.matchExpert(trimmed, s.Compiled())
	}
	return "", false
}

// matchExact requires the lowercased trimmed input to equal a key.
func (m *Matcher) matchExact(text string, entries []settings.CompiledResponse) (string, bool) {
	key := strings.ToLower(text)
	for _, e := range entries {
		if strings.ToLower(e.Key) == key {
			return m.pick(e.Replies), true
		}
	}
	return "", false
}

// matchSubstring returns the first key, in insertion order, contained in
// the lowercased input.
func (m *Matcher) matchSubstring(text string, entries []settings.CompiledResponse) (string, bool) {
	low := strings.ToLower(text)
	for _, e := range entries {
		if strings.Contains(low, strings.ToLower(e.Key)) {
			return m.pick(e.Replies), true
		}
	}
	return "", false
}

// matchExpert tries compiled pattern keys against the raw input first, then
// falls back to token-overlap scoring across all keys. Ties go to the first
// seen key.
func (m *Matcher) matchExpert(text string, entries []settings.CompiledResponse) (string, bool) {
	for _, e := range entries {
		if e.Pattern != nil && e.Pattern.MatchString(text) {
			return m.pick(e.Replies), true
		}
	}

	tokens := settings.Tokenize(text)
	if len(tokens) == 0 {
		return "", false
	}

	bestScore := 0.0
	bestIdx := -1
	for i, e := range entries {
		if len(e.Tokens) == 0 {
			continue
		}
		score := overlapScore(e.Tokens, tokens)
		if score > overlapThreshold && score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return "", false
	}
	return m.pick(entries[bestIdx].Replies), true
}

// overlapScore is |intersection| / max(|key tokens|, |input tokens|).
func overlapScore(keyTokens, inputTokens []string) float64 {
	inputSet := make(map[string]struct{}, len(inputTokens))
	for _, t := range inputTokens {
		inputSet[t] = struct{}{}
	}

	overlap := 0
	for _, t := range keyTokens {
		if _, ok := inputSet[t]; ok {
			overlap++
		}
	}

	denom := len(keyTokens)
	if len(inputTokens) > denom {
		denom = len(inputTokens)
	}
	return float64(overlap) / float64(denom)
}

// pick selects one reply uniformly at random.
func (m *Matcher) pick(replies []string) string {
	if len(replies) == 1 {
		return replies[0]
	}
	return replies[m.rand.Intn(len(replies))]
}
