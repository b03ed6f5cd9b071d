package llm

import (
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/config"
	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
)

// NewChain builds the fallback chain in the configured priority order.
// A backend without a credential is left out of the chain; an empty chain
// is valid and simply means every resolution falls through to the apology.
func NewChain(cfg *config.BackendsConfig) []Provider {
	var chain []Provider

	for _, name := range cfg.Order {
		bc := cfg.Backend(name)
		if bc == nil {
			L_warn("llm: unknown backend in order, skipping", "backend", name)
			continue
		}
		if bc.APIKey == "" {
			L_info("llm: backend disabled, no credential", "backend", name)
			continue
		}

		switch name {
		case "gemini":
			chain = append(chain, NewGeminiProvider(*bc))
		case "cohere":
			chain = append(chain, NewCohereProvider(*bc))
		case "openai":
			chain = append(chain, NewOpenAIProvider(*bc))
		}
	}

	names := make([]string, len(chain))
	for i, p := range chain {
		names[i] = p.Name()
	}
	L_info("llm: backend chain ready", "order", names)

	return chain
}
