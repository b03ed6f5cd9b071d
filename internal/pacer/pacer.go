// Package pacer paces outbound replies so they read human: a synthetic
// typing delay, paragraph splitting, and short randomized pauses between
// parts.
package pacer

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Transport is the outbound side of a chat connection. SendPresence is
// best-effort; transports without a presence indicator may no-op.
type Transport interface {
	SendText(ctx context.Context, chatID, text string) error
	SendPresence(ctx context.Context, chatID string, composing bool)
}

const (
	// typing simulation bounds
	typingBase    = 700 * time.Millisecond
	typingPerRune = 15 * time.Millisecond
	typingMax     = 4 * time.Second

	// pause between parts of a split reply
	partPauseBase   = 300 * time.Millisecond
	partPauseJitter = 800 * time.Millisecond

	// pre-resolution "reading" pause
	humanDelayBase   = 700 * time.Millisecond
	humanDelayJitter = 1300 * time.Millisecond

	// very long single paragraphs get chunked
	maxPartLen = 3000
	maxParts   = 6
)

var paragraphSplit = regexp.MustCompile(`\n{2,}`)

// Pacer sends replies with human-plausible cadence. Sleep and randomness
// are injected so tests run instantly and deterministically.
type Pacer struct {
	sleep func(time.Duration)
	rand  *rand.Rand
}

// New creates a pacer with real sleeping and timing jitter.
func New() *Pacer {
	return NewWithClock(time.Sleep, rand.NewSource(time.Now().UnixNano()))
}

// NewWithClock creates a pacer with an injected sleep function and
// randomness source.
func NewWithClock(sleep func(time.Duration), src rand.Source) *Pacer {
	return &Pacer{sleep: sleep, rand: rand.New(src)}
}

// WaitHuman pauses briefly before resolution starts, so replies never come
// back the same instant the message arrived.
func (p *Pacer) WaitHuman() {
	p.sleep(humanDelayBase + time.Duration(p.rand.Int63n(int64(humanDelayJitter))))
}

// Send delivers a reply to one chat: composing presence, a typing delay
// proportional to the reply length, then each part in order with a short
// randomized pause in between.
func (p *Pacer) Send(ctx context.Context, t Transport, chatID, reply string) error {
	t.SendPresence(ctx, chatID, true)
	p.sleep(typingDuration(reply))

	parts := SplitParts(reply)
	for i, part := range parts {
		if i > 0 {
			p.sleep(partPauseBase + time.Duration(p.rand.Int63n(int64(partPauseJitter))))
		}
		if err := t.SendText(ctx, chatID, part); err != nil {
			t.SendPresence(ctx, chatID, false)
			return err
		}
	}

	t.SendPresence(ctx, chatID, false)
	return nil
}

// typingDuration grows monotonically with reply length, clamped to a
// human-plausible maximum.
func typingDuration(reply string) time.Duration {
	d := typingBase + time.Duration(len([]rune(reply)))*typingPerRune
	if d > typingMax {
		return typingMax
	}
	return d
}

// SplitParts splits a reply on blank-line boundaries; oversized single
// parts are further chunked at newline-biased offsets, capped at a small
// part count with the remainder folded into the last chunk.
func SplitParts(reply string) []string {
	var parts []string
	for _, p := range paragraphSplit.Split(reply, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) > maxPartLen {
			parts = append(parts, chunk(p, maxPartLen)...)
		} else {
			parts = append(parts, p)
		}
	}

	if len(parts) == 0 {
		return []string{reply}
	}

	if len(parts) > maxParts {
		rest := strings.Join(parts[maxParts-1:], "\n\n")
		parts = append(parts[:maxParts-1], rest)
	}
	return parts
}

// chunk splits text into pieces of at most maxLen, preferring to break at a
// newline past the midpoint of each piece.
func chunk(text string, maxLen int) []string {
	var chunks []string
	for len(text) > 0 {
		end := maxLen
		if end > len(text) {
			end = len(text)
		}
		if end < len(text) {
			if idx := strings.LastIndex(text[:end], "\n"); idx > end/2 {
				end = idx + 1
			}
			// Never slice through a multibyte rune.
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[:end]))
		text = text[end:]
	}
	return chunks
}
