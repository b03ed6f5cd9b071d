// Package llm provides the generation backends tried by the response
// resolver, behind a single Provider interface.
package llm

import "context"

// Provider is one external text-generation backend.
type Provider interface {
	// Name identifies the backend ("gemini", "cohere", "openai"); it is
	// used as the source tag when this backend produces the reply.
	Name() string

	// Generate produces a reply for userText under the given system prompt.
	// An empty reply with nil error is treated as a miss by the caller.
	// Implementations must respect ctx cancellation and carry their own
	// request timeout.
	Generate(ctx context.Context, systemPrompt, userText string) (string, error)
}
