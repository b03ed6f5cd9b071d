package settings

import "fmt"

// Patch is a partial settings update from the control plane or an admin
// command. Nil fields are left untouched.
type Patch struct {
	Prompt          *string           `json:"prompt,omitempty"`
	PromptByBackend map[string]string `json:"promptByBackend,omitempty"`
	LocalResponses  *ResponseMap      `json:"localResponses,omitempty"`
	MatchMode       *MatchMode        `json:"matchMode,omitempty"`
	WelcomeMessage  *string           `json:"welcomeMessage,omitempty"`
	LocalEnabled    *bool             `json:"localEnabled,omitempty"`
	SourceIndicator *bool             `json:"sourceIndicator,omitempty"`
	CooldownSeconds *int              `json:"cooldownSeconds,omitempty"`
}

// Validate rejects values that must never reach the pipeline: unknown match
// modes, negative cooldowns, malformed local responses. Pattern keys are
// compiled here, at update time, so match time never sees a bad pattern.
func (p *Patch) Validate() error {
	if p.MatchMode != nil && !p.MatchMode.Valid() {
		return fmt.Errorf("invalid matchMode %q (want exact, pattern or expert)", *p.MatchMode)
	}
	if p.CooldownSeconds != nil && *p.CooldownSeconds < 0 {
		return fmt.Errorf("cooldownSeconds must be >= 0, got %d", *p.CooldownSeconds)
	}
	if p.LocalResponses != nil {
		for _, e := range p.LocalResponses.Entries() {
			if len(e.Replies) == 0 {
				return fmt.Errorf("key %q has no replies", e.Key)
			}
			if isPatternKey(e.Key) {
				if _, err := compilePatternKey(e.Key); err != nil {
					return fmt.Errorf("invalid pattern key %q: %w", e.Key, err)
				}
			}
		}
	}
	return nil
}

// Apply merges the patch into the record and recompiles the local-response
// keys. The patch must have been validated first.
func (p *Patch) Apply(s *Settings) error {
	if p.Prompt != nil {
		s.Prompt = *p.Prompt
	}
	if p.PromptByBackend != nil {
		s.PromptByBackend = p.PromptByBackend
	}
	if p.LocalResponses != nil {
		s.LocalResponses = *p.LocalResponses
	}
	if p.MatchMode != nil {
		s.MatchMode = *p.MatchMode
	}
	if p.WelcomeMessage != nil {
		s.WelcomeMessage = *p.WelcomeMessage
	}
	if p.LocalEnabled != nil {
		s.LocalEnabled = *p.LocalEnabled
	}
	if p.SourceIndicator != nil {
		s.SourceIndicator = *p.SourceIndicator
	}
	if p.CooldownSeconds != nil {
		s.CooldownSeconds = *p.CooldownSeconds
	}
	return s.Compile()
}
