package pacer

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// fakeTransport records outbound calls in order.
type fakeTransport struct {
	sent     []string
	presence []bool
}

func (f *fakeTransport) SendText(ctx context.Context, chatID, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) SendPresence(ctx context.Context, chatID string, composing bool) {
	f.presence = append(f.presence, composing)
}

func newTestPacer(slept *[]time.Duration) *Pacer {
	return NewWithClock(func(d time.Duration) {
		if slept != nil {
			*slept = append(*slept, d)
		}
	}, rand.NewSource(1))
}

func TestSendSingleShortReply(t *testing.T) {
	var slept []time.Duration
	p := newTestPacer(&slept)
	tr := &fakeTransport{}

	if err := p.Send(context.Background(), tr, "chat", "Hola"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(tr.sent) != 1 || tr.sent[0] != "Hola" {
		t.Errorf("sent = %v, want [Hola]", tr.sent)
	}
	// composing before, paused after
	if len(tr.presence) != 2 || !tr.presence[0] || tr.presence[1] {
		t.Errorf("presence = %v, want [true false]", tr.presence)
	}
	// exactly one typing delay for a single part
	if len(slept) != 1 {
		t.Errorf("sleeps = %d, want 1", len(slept))
	}
}

func TestSendSplitsParagraphsInOrder(t *testing.T) {
	var slept []time.Duration
	p := newTestPacer(&slept)
	tr := &fakeTransport{}

	reply := "Primera parte\n\nSegunda parte\n\n\nTercera parte"
	if err := p.Send(context.Background(), tr, "chat", reply); err != nil {
		t.Fatalf("Send: %v", err)
	}

	want := []string{"Primera parte", "Segunda parte", "Tercera parte"}
	if len(tr.sent) != len(want) {
		t.Fatalf("sent %d parts, want %d", len(tr.sent), len(want))
	}
	for i := range want {
		if tr.sent[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, tr.sent[i], want[i])
		}
	}
	// typing delay + one pause between each adjacent pair
	if len(slept) != 3 {
		t.Errorf("sleeps = %d, want 3", len(slept))
	}
}

func TestTypingDurationMonotonicAndClamped(t *testing.T) {
	short := typingDuration("hi")
	medium := typingDuration(strings.Repeat("a", 100))
	long := typingDuration(strings.Repeat("a", 100000))

	if short >= medium {
		t.Errorf("typing duration not monotonic: %v >= %v", short, medium)
	}
	if long != typingMax {
		t.Errorf("long reply duration = %v, want clamp %v", long, typingMax)
	}
}

func TestSplitParts(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"single paragraph", "hola que tal", 1},
		{"two paragraphs", "uno\n\ndos", 2},
		{"blank lines collapse", "uno\n\n\n\ndos", 2},
		{"whitespace-only reply passes through", "   ", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitParts(tt.reply)
			if len(got) != tt.want {
				t.Errorf("SplitParts(%q) = %d parts, want %d", tt.reply, len(got), tt.want)
			}
		})
	}
}

func TestSplitPartsChunksOversized(t *testing.T) {
	oneLine := strings.Repeat("palabra ", 1000) // ~8000 chars, no newlines
	parts := SplitParts(oneLine)

	if len(parts) < 2 {
		t.Fatalf("oversized paragraph not chunked, got %d part(s)", len(parts))
	}
	for i, p := range parts {
		if len(p) > maxPartLen {
			t.Errorf("part %d length %d exceeds max %d", i, len(p), maxPartLen)
		}
	}
}

func TestSplitPartsChunksOnRuneBoundaries(t *testing.T) {
	// The leading ASCII byte puts every two-byte ñ on an odd offset, so a
	// byte-offset cut lands mid-rune unless the splitter backs up.
	accented := "x" + strings.Repeat("ñ", 4000) // 8001 bytes, no newlines
	parts := SplitParts(accented)

	if len(parts) < 2 {
		t.Fatalf("oversized paragraph not chunked, got %d part(s)", len(parts))
	}
	for i, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %d is not valid UTF-8 (rune cut at chunk edge)", i)
		}
	}
	if got := strings.Count(strings.Join(parts, ""), "ñ"); got != 4000 {
		t.Errorf("runes lost in chunking: %d of 4000", got)
	}
}

func TestSplitPartsCapsCount(t *testing.T) {
	many := strings.TrimSpace(strings.Repeat("parrafo\n\n", 20))
	parts := SplitParts(many)
	if len(parts) > maxParts {
		t.Errorf("parts = %d, want at most %d", len(parts), maxParts)
	}
	// nothing lost: every paragraph survives somewhere
	joined := strings.Join(parts, "\n\n")
	if strings.Count(joined, "parrafo") != 20 {
		t.Errorf("paragraphs lost in capping: %d of 20", strings.Count(joined, "parrafo"))
	}
}
