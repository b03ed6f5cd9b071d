package dispatch

import (
	"testing"
	"time"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
)

// fakeClock is an adjustable clock for guard tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newGuardAndClock() (*Guard, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewGuard(clock.now), clock
}

func TestAllowInboundCooldownSuppression(t *testing.T) {
	g, clock := newGuardAndClock()
	meta := &session.ChatMeta{}

	// First message always passes
	if !g.AllowInbound("hola", meta, 10) {
		t.Fatal("first inbound suppressed")
	}
	g.RecordOutbound("Hi", meta)

	// Identical repeat inside the window is suppressed
	clock.advance(3 * time.Second)
	if g.AllowInbound("hola", meta, 10) {
		t.Error("repeat within cooldown not suppressed")
	}
	if meta.LastInboundText != "hola" {
		t.Error("suppressed inbound did not refresh LastInboundText")
	}

	// Different text passes
	if !g.AllowInbound("adios", meta, 10) {
		t.Error("different text suppressed")
	}

	// Identical repeat after the window passes
	meta.LastInboundText = "hola"
	clock.advance(11 * time.Second)
	if !g.AllowInbound("hola", meta, 10) {
		t.Error("repeat after cooldown suppressed")
	}
}

func TestAllowInboundZeroCooldownDisablesRule(t *testing.T) {
	g, _ := newGuardAndClock()
	meta := &session.ChatMeta{}

	g.AllowInbound("hola", meta, 0)
	g.RecordOutbound("Hi", meta)
	if !g.AllowInbound("hola", meta, 0) {
		t.Error("zero cooldown still suppressed a repeat")
	}
}

func TestAllowOutboundDuplicateReply(t *testing.T) {
	g, clock := newGuardAndClock()
	meta := &session.ChatMeta{}

	if !g.AllowOutbound("Hi", meta, 10) {
		t.Fatal("first outbound suppressed")
	}
	g.RecordOutbound("Hi", meta)
	sentAt := meta.LastOutboundAt

	// Same computed reply inside the window: suppressed, timestamp refreshed
	clock.advance(4 * time.Second)
	if g.AllowOutbound("Hi", meta, 10) {
		t.Error("duplicate reply within cooldown not suppressed")
	}
	if !meta.LastOutboundAt.After(sentAt) {
		t.Error("suppression did not refresh LastOutboundAt")
	}

	// Different reply passes
	if !g.AllowOutbound("Bye", meta, 10) {
		t.Error("different reply suppressed")
	}

	// Same reply after the window passes
	clock.advance(11 * time.Second)
	if !g.AllowOutbound("Hi", meta, 10) {
		t.Error("duplicate reply after cooldown suppressed")
	}
}

func TestAllowOutboundZeroCooldownDisablesRule(t *testing.T) {
	g, _ := newGuardAndClock()
	meta := &session.ChatMeta{}
	g.RecordOutbound("Hi", meta)

	if !g.AllowOutbound("Hi", meta, 0) {
		t.Error("zero cooldown still suppressed a duplicate reply")
	}
}
