package resolver

import (
	"context"
	"time"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/llm"
	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
)

// FallbackReply is sent when the whole chain fails: the chat partner always
// gets some reply, silence is reserved for the dedup/cooldown policy.
const FallbackReply = "Lo siento, no tengo una respuesta ahora mismo."

// Source tags for resolved replies.
const (
	SourceLocal    = "local"
	SourceFallback = "fallback"
)

// defaultCallTimeout bounds one backend call so a stuck backend can never
// hang the dispatch pipeline; a timeout just advances the chain.
const defaultCallTimeout = 25 * time.Second

// Resolver produces a reply for inbound text: local matcher, then the
// backend chain in priority order, then the fixed fallback. It never fails
// outward.
type Resolver struct {
	matcher     *Matcher
	chain       []llm.Provider
	callTimeout time.Duration
}

// New creates a resolver over the given backend chain.
func New(matcher *Matcher, chain []llm.Provider) *Resolver {
	return &Resolver{
		matcher:     matcher,
		chain:       chain,
		callTimeout: defaultCallTimeout,
	}
}

// WithCallTimeout overrides the per-backend call timeout.
func (r *Resolver) WithCallTimeout(d time.Duration) *Resolver {
	r.callTimeout = d
	return r
}

// Resolve returns the reply text and the tag of the source that produced
// it. The settings record is read, never mutated.
func (r *Resolver) Resolve(ctx context.Context, text string, s *settings.Settings) (string, string) {
	if s.LocalEnabled {
		if reply, ok := r.matcher.Match(text, s); ok {
			return reply, SourceLocal
		}
	}

	for _, p := range r.chain {
		reply, err := r.callBackend(ctx, p, text, s)
		if err != nil {
			L_warn("resolver: backend failed, advancing chain", "backend", p.Name(), "error", err)
			continue
		}
		if reply == "" {
			L_debug("resolver: backend returned empty reply", "backend", p.Name())
			continue
		}
		return reply, p.Name()
	}

	return FallbackReply, SourceFallback
}

func (r *Resolver) callBackend(ctx context.Context, p llm.Provider, text string, s *settings.Settings) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return p.Generate(callCtx, s.PromptFor(p.Name()), text)
}

// TagSource appends the diagnostic source suffix to a resolved reply.
// Applied after resolution, only when the session enables it.
func TagSource(reply, source string) string {
	if source == "" {
		source = "desconocida"
	}
	return reply + "\n\n(Fuente: " + source + ")"
}
