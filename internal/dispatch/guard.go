// Package dispatch runs the inbound-message pipeline: dedup/cooldown
// guard, response resolution, and paced delivery, one mailbox per chat.
package dispatch

import (
	"time"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
)

// Guard applies the dedup/cooldown policy over a chat's metadata. It is a
// pure decision component: its only side effects are on the ChatMeta it is
// given. The clock is injected for tests.
type Guard struct {
	now func() time.Time
}

// NewGuard creates a guard; a nil clock means time.Now.
func NewGuard(now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{now: now}
}

// AllowInbound decides whether an inbound message is processed. A repeat of
// the last inbound text within the cooldown window is suppressed entirely,
// treated as a looped message. The last-seen text is updated either way,
// which means a sender repeating the same text faster than the cooldown
// stays suppressed indefinitely — intentional anti-loop behavior, kept
// as-is pending product sign-off.
// cooldownSeconds == 0 disables the rule.
func (g *Guard) AllowInbound(text string, meta *session.ChatMeta, cooldownSeconds int) bool {
	suppress := cooldownSeconds > 0 &&
		meta.LastInboundText != "" &&
		meta.LastInboundText == text &&
		g.now().Sub(meta.LastOutboundAt) < time.Duration(cooldownSeconds)*time.Second

	meta.LastInboundText = text
	return !suppress
}

// AllowOutbound decides whether a computed reply is actually sent. The same
// reply text within the cooldown window is suppressed to break feedback
// loops; on suppression only the outbound timestamp is refreshed.
// cooldownSeconds == 0 disables the rule.
func (g *Guard) AllowOutbound(reply string, meta *session.ChatMeta, cooldownSeconds int) bool {
	suppress := cooldownSeconds > 0 &&
		meta.LastOutboundText != "" &&
		meta.LastOutboundText == reply &&
		g.now().Sub(meta.LastOutboundAt) < time.Duration(cooldownSeconds)*time.Second

	if suppress {
		meta.LastOutboundAt = g.now()
		return false
	}
	return true
}

// RecordOutbound marks a reply as sent.
func (g *Guard) RecordOutbound(reply string, meta *session.ChatMeta) {
	meta.LastOutboundText = reply
	meta.LastOutboundAt = g.now()
}
